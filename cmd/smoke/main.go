package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"volley-observer/src/logger"
	"volley-observer/src/models"
)

// Smoke harness: boots the whole pipeline on the embedded store and drives it
// end to end (ingest -> change feed -> hub -> reconcilers). Exits non-zero on
// the first failed expectation.
func main() {
	port := flag.Int("port", 9390, "port to bind the harness server on")
	flag.Parse()

	tmpDir, err := os.MkdirTemp("", "volley-smoke-")
	if err != nil {
		fmt.Printf("Error creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	conf := &models.MConfig{
		Name:     "volley-smoke",
		Host:     "127.0.0.1",
		Port:     *port,
		LogLevel: "INFO",
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(tmpDir, "smoke.db"),
		},
		Realtime: models.MRealtimeConfig{
			ClientQueueSize: 64,
			FeedCapacity:    64,
		},
		Upload: models.MUploadConfig{
			Dir:         filepath.Join(tmpDir, "videos"),
			MaxUploadMB: 16,
		},
	}

	appLogger := logger.NewLogger(conf, conf.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := setupPipeline(ctx, conf, appLogger)
	if err != nil {
		appLogger.Critical("Pipeline setup failed: %v", err)
	}

	baseURL := fmt.Sprintf("http://%s:%d", conf.Host, conf.Port)
	if err := waitHealthy(baseURL); err != nil {
		appLogger.Critical("Server never became healthy: %v", err)
	}

	if err := runScenario(ctx, conf, baseURL, appLogger); err != nil {
		appLogger.Error("SMOKE FAILED: %v", err)
		srv.Stop()
		os.Exit(1)
	}

	appLogger.Info("SMOKE OK")
	srv.Stop()
}
