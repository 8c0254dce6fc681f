package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"volley-observer/src/helpers"
	"volley-observer/src/logger"
	"volley-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return &helpers.DatabaseError{VolleyObserverError: helpers.VolleyObserverError{
			Message: "postgres unreachable",
			Cause:   err,
		}}
	}

	d.DB = db

	if err := d.ensureTables(); err != nil {
		return err
	}
	if err := d.ensureNotifyTrigger(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (channel: %s)", d.Config.Storage.ListenChannel)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ensureTables() error {
	// Create players
	query := `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY DEFAULT (gen_random_uuid())::text,
			full_name TEXT NOT NULL,
			position TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create players: %w", err)
	}

	// Create matches
	query = `
		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY DEFAULT (gen_random_uuid())::text,
			opponent TEXT NOT NULL,
			match_date TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create matches: %w", err)
	}

	// Create metrics (append-mostly, never updated in place)
	query = `
		CREATE TABLE IF NOT EXISTS metrics (
			id TEXT PRIMARY KEY DEFAULT (gen_random_uuid())::text,
			match_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			serve_accuracy DOUBLE PRECISION NOT NULL,
			spike_success DOUBLE PRECISION NOT NULL,
			block_eff DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	if _, err := d.DB.Exec(`CREATE INDEX IF NOT EXISTS metrics_match_idx ON metrics (match_id);`); err != nil {
		return fmt.Errorf("failed to create metrics index: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ensureNotifyTrigger installs the change-capture trigger: every metrics
// INSERT is published on the configured channel as the full row in JSON.
// This trigger, not the HTTP layer, is the sole producer of change events.
func (d *PostgresDB) ensureNotifyTrigger() error {
	channel := d.Config.Storage.ListenChannel

	query := fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION notify_metric_inserted() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('%s', row_to_json(NEW)::text);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;
	`, channel)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create notify function: %w", err)
	}

	if _, err := d.DB.Exec(`DROP TRIGGER IF EXISTS metrics_notify_insert ON metrics;`); err != nil {
		return fmt.Errorf("failed to drop notify trigger: %w", err)
	}

	query = `
		CREATE TRIGGER metrics_notify_insert
		AFTER INSERT ON metrics
		FOR EACH ROW EXECUTE FUNCTION notify_metric_inserted();
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create notify trigger: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) InsertMetric(m models.MMetric) (models.MMetric, error) {
	query := `
		INSERT INTO metrics (match_id, player_id, serve_accuracy, spike_success, block_eff)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, match_id, player_id, serve_accuracy, spike_success, block_eff, updated_at;
	`
	var stored models.MMetric
	err := d.DB.QueryRow(query, m.MatchID, m.PlayerID, m.ServeAccuracy, m.SpikeSuccess, m.BlockEff).Scan(
		&stored.ID, &stored.MatchID, &stored.PlayerID,
		&stored.ServeAccuracy, &stored.SpikeSuccess, &stored.BlockEff,
		&stored.UpdatedAt,
	)
	if err != nil {
		return models.MMetric{}, fmt.Errorf("failed to insert metric: %w", err)
	}
	return stored, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) InsertMetricsBulk(metrics []models.MMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO metrics (match_id, player_id, serve_accuracy, spike_success, block_eff) VALUES `)

	args := make([]interface{}, 0, len(metrics)*5)
	for i, m := range metrics {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5))
		args = append(args, m.MatchID, m.PlayerID, m.ServeAccuracy, m.SpikeSuccess, m.BlockEff)
	}

	if _, err := d.DB.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("failed to bulk insert metrics: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) MetricsByMatch(matchID string) ([]models.MMetric, error) {
	query := `
		SELECT id, match_id, player_id, serve_accuracy, spike_success, block_eff, updated_at
		FROM metrics
		WHERE match_id = $1;
	`
	rows, err := d.DB.Query(query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var result []models.MMetric
	for rows.Next() {
		var m models.MMetric
		if err := rows.Scan(&m.ID, &m.MatchID, &m.PlayerID, &m.ServeAccuracy, &m.SpikeSuccess, &m.BlockEff, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) InsertPlayer(p models.MPlayer) (string, error) {
	var id string
	err := d.DB.QueryRow(
		`INSERT INTO players (full_name, position) VALUES ($1, $2) RETURNING id;`,
		p.FullName, p.Position,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert player: %w", err)
	}
	return id, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Players() ([]models.MPlayer, error) {
	rows, err := d.DB.Query(`SELECT id, full_name, position FROM players;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var result []models.MPlayer
	for rows.Next() {
		var p models.MPlayer
		if err := rows.Scan(&p.ID, &p.FullName, &p.Position); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) InsertMatch(m models.MMatch) (string, error) {
	var id string
	err := d.DB.QueryRow(
		`INSERT INTO matches (opponent, match_date, location, created_by) VALUES ($1, $2, $3, $4) RETURNING id;`,
		m.Opponent, m.MatchDate, m.Location, m.CreatedBy,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert match: %w", err)
	}
	return id, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Matches() ([]models.MMatch, error) {
	rows, err := d.DB.Query(`SELECT id, opponent, match_date, location FROM matches ORDER BY match_date DESC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var result []models.MMatch
	for rows.Next() {
		var m models.MMatch
		if err := rows.Scan(&m.ID, &m.Opponent, &m.MatchDate, &m.Location); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
