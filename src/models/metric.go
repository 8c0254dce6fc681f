package models

import (
	"sort"
	"time"
)

// MMetric represents one stored per-match player performance record.
// Immutable once persisted: there is no update or delete path.
type MMetric struct {
	ID            string    `json:"id"`
	MatchID       string    `json:"match_id"`
	PlayerID      string    `json:"player_id"`
	ServeAccuracy float64   `json:"serve_accuracy"`
	SpikeSuccess  float64   `json:"spike_success"`
	BlockEff      float64   `json:"block_eff"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SortMetricsChronological orders records oldest first, breaking timestamp
// ties by id so the order is stable across snapshot fetches.
func SortMetricsChronological(metrics []MMetric) {
	sort.SliceStable(metrics, func(i, j int) bool {
		if metrics[i].UpdatedAt.Equal(metrics[j].UpdatedAt) {
			return metrics[i].ID < metrics[j].ID
		}
		return metrics[i].UpdatedAt.Before(metrics[j].UpdatedAt)
	})
}
