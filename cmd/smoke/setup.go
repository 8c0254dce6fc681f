package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"volley-observer/src/logger"
	"volley-observer/src/models"
	"volley-observer/src/notifier"
	"volley-observer/src/objectstore"
	"volley-observer/src/server"
	"volley-observer/src/storage"
)

// -----------------------------------------------------------------------------

// setupPipeline wires store, change feed, hub and HTTP server exactly the way
// cmd/main does, minus signal handling.
func setupPipeline(ctx context.Context, conf *models.MConfig, appLogger *logger.Logger) (*server.APIServer, error) {
	db, err := storage.NewSQLiteDB(conf, logger.NewLogger(conf, "SQLiteDB"))
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.Initialize(); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	// Seed a finished match before the change hook exists: history must be
	// readable through snapshots but never appear on the live stream
	if err := db.InsertMetricsBulk([]models.MMetric{
		{MatchID: "m0", PlayerID: "p1", ServeAccuracy: 0.74, SpikeSuccess: 0.61, BlockEff: 0.52},
		{MatchID: "m0", PlayerID: "p2", ServeAccuracy: 0.69, SpikeSuccess: 0.58, BlockEff: 0.47},
		{MatchID: "m0", PlayerID: "p3", ServeAccuracy: 0.81, SpikeSuccess: 0.66, BlockEff: 0.59},
	}); err != nil {
		return nil, fmt.Errorf("seed metrics: %w", err)
	}

	videos, err := objectstore.NewLocalStore(conf, logger.NewLogger(conf, "ObjectStore"))
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	srv := server.NewAPIServer(conf, db, videos, logger.NewLogger(conf, "APIServer"))

	local := notifier.NewLocalNotifier(srv, logger.NewLogger(conf, "ChangeNotifier"))
	db.SetChangeHook(local.Hook())

	go func() {
		if err := local.Start(ctx); err != nil {
			appLogger.Error("Change notifier failed: %v", err)
		}
	}()

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	return srv, nil
}

// -----------------------------------------------------------------------------

// waitHealthy polls /api/health until the listener answers.
func waitHealthy(baseURL string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("no healthy response from %s within 5s", baseURL)
}
