package interfaces

import "volley-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for storage operations.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// InsertMetric persists one metric record and returns the stored record,
	// including the store-assigned id and updated_at.
	InsertMetric(m models.MMetric) (models.MMetric, error)

	// -----------------------------------------------------------------------------

	// InsertMetricsBulk inserts a batch of metric records (seeding/import).
	InsertMetricsBulk(metrics []models.MMetric) error

	// -----------------------------------------------------------------------------

	// MetricsByMatch returns all metric records for one match, in store order.
	MetricsByMatch(matchID string) ([]models.MMetric, error)

	// -----------------------------------------------------------------------------

	// InsertPlayer adds a roster entry and returns its id.
	InsertPlayer(p models.MPlayer) (string, error)

	// -----------------------------------------------------------------------------

	// Players returns the full roster.
	Players() ([]models.MPlayer, error)

	// -----------------------------------------------------------------------------

	// InsertMatch adds a match record and returns its id.
	InsertMatch(m models.MMatch) (string, error)

	// -----------------------------------------------------------------------------

	// Matches returns all matches, most recent match_date first.
	Matches() ([]models.MMatch, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
