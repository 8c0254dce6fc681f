package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"volley-observer/src/feed"
	"volley-observer/src/logger"
	"volley-observer/src/models"
)

// -----------------------------------------------------------------------------

// runScenario drives the end-to-end flow: two reconcilers observe matches m1
// and m2, three metrics are ingested, and each view must contain exactly the
// records for its own match.
func runScenario(ctx context.Context, conf *models.MConfig, baseURL string, appLogger *logger.Logger) error {
	feedM1 := feed.NewReconciler(conf, baseURL, "m1", logger.NewLogger(conf, "FeedM1"))
	feedM2 := feed.NewReconciler(conf, baseURL, "m2", logger.NewLogger(conf, "FeedM2"))

	if err := feedM1.Mount(ctx); err != nil {
		return fmt.Errorf("mount m1: %w", err)
	}
	defer feedM1.Unmount()
	if err := feedM2.Mount(ctx); err != nil {
		return fmt.Errorf("mount m2: %w", err)
	}
	defer feedM2.Unmount()

	// Give the sessions a moment to register before publishing
	time.Sleep(200 * time.Millisecond)

	// Ingest two m1 records and one m2 record
	first, err := ingest(baseURL, "m1", "p1", 0.85, 0.78, 0.65)
	if err != nil {
		return err
	}
	if first.ID == "" || first.UpdatedAt.IsZero() {
		return fmt.Errorf("stored record missing assigned fields: %+v", first)
	}
	if first.ServeAccuracy != 0.85 || first.SpikeSuccess != 0.78 || first.BlockEff != 0.65 {
		return fmt.Errorf("stored record does not echo request values: %+v", first)
	}
	if _, err := ingest(baseURL, "m1", "p2", 0.91, 0.66, 0.72); err != nil {
		return err
	}
	if _, err := ingest(baseURL, "m2", "p1", 0.55, 0.43, 0.38); err != nil {
		return err
	}

	// Validation failure must not produce a change event
	if err := ingestMissingPlayer(baseURL); err != nil {
		return err
	}

	// Let the change feed drain
	time.Sleep(500 * time.Millisecond)

	m1Entries := feedM1.Entries()
	if len(m1Entries) != 2 {
		return fmt.Errorf("m1 view: want 2 records, got %d", len(m1Entries))
	}
	for _, m := range m1Entries {
		if m.MatchID != "m1" {
			return fmt.Errorf("m1 view holds foreign record: %+v", m)
		}
	}

	m2Entries := feedM2.Entries()
	if len(m2Entries) != 1 {
		return fmt.Errorf("m2 view: want 1 record, got %d", len(m2Entries))
	}

	// Snapshot read must return exactly the match's records
	stored, err := fetchMetrics(baseURL, "m1")
	if err != nil {
		return err
	}
	if len(stored) != 2 {
		return fmt.Errorf("GET /api/metrics/m1: want 2 records, got %d", len(stored))
	}

	// Seeded history is served through snapshots only
	seeded, err := fetchMetrics(baseURL, "m0")
	if err != nil {
		return err
	}
	if len(seeded) != 3 {
		return fmt.Errorf("GET /api/metrics/m0: want 3 seeded records, got %d", len(seeded))
	}
	for _, m := range seeded {
		if m.ID == "" {
			return fmt.Errorf("seeded record missing assigned id: %+v", m)
		}
	}

	appLogger.Info("Scenario complete: m1=%d live records, m2=%d live records", len(m1Entries), len(m2Entries))
	return nil
}

// -----------------------------------------------------------------------------

func ingest(baseURL, matchID, playerID string, serve, spike, block float64) (models.MMetric, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"matchId":       matchID,
		"playerId":      playerID,
		"serveAccuracy": serve,
		"spikeSuccess":  spike,
		"blockEff":      block,
	})

	resp, err := http.Post(baseURL+"/api/metrics", "application/json", bytes.NewReader(body))
	if err != nil {
		return models.MMetric{}, fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 201 {
		return models.MMetric{}, fmt.Errorf("ingest returned %d, want 201", resp.StatusCode)
	}

	var stored models.MMetric
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return models.MMetric{}, fmt.Errorf("failed to decode stored record: %w", err)
	}
	return stored, nil
}

// -----------------------------------------------------------------------------

func ingestMissingPlayer(baseURL string) error {
	body := []byte(`{"matchId":"m1","serveAccuracy":0.5,"spikeSuccess":0.5,"blockEff":0.5}`)

	resp, err := http.Post(baseURL+"/api/metrics", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ingest request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 400 {
		return fmt.Errorf("ingest without playerId returned %d, want 400", resp.StatusCode)
	}
	return nil
}

// -----------------------------------------------------------------------------

func fetchMetrics(baseURL, matchID string) ([]models.MMetric, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/metrics/%s", baseURL, matchID))
	if err != nil {
		return nil, fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("metrics request returned %d, want 200", resp.StatusCode)
	}

	var result []models.MMetric
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return result, nil
}
