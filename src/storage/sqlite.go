package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"volley-observer/src/helpers"
	"volley-observer/src/logger"
	"volley-observer/src/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite batch constants
const (
	sqliteMaxVars   = 32000
	paramsPerRow    = 7
	sqliteBatchSize = sqliteMaxVars / paramsPerRow
)

// -----------------------------------------------------------------------------

// SQLiteDB is the embedded store. SQLite has no server-side change capture, so
// the store itself is the change source: a hook set via SetChangeHook fires
// after every successful metric insert, preserving insert order.
type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger

	changeHook func(models.MMetric)
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

// SetChangeHook registers the post-insert callback. Must be called before the
// store receives writes; there is no locking around the hook field.
func (d *SQLiteDB) SetChangeHook(hook func(models.MMetric)) {
	d.changeHook = hook
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return &helpers.DatabaseError{VolleyObserverError: helpers.VolleyObserverError{
			Message: fmt.Sprintf("sqlite unreachable at '%s'", dsn),
			Cause:   err,
		}}
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.ensureTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) ensureTables() error {
	// SQLite types: TEXT for string, REAL for float64
	query := `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			position TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create players: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS matches (
			id TEXT PRIMARY KEY,
			opponent TEXT NOT NULL,
			match_date TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create matches: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS metrics (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			serve_accuracy REAL NOT NULL,
			spike_success REAL NOT NULL,
			block_eff REAL NOT NULL,
			updated_at TEXT NOT NULL
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

func (d *SQLiteDB) InsertMetric(m models.MMetric) (models.MMetric, error) {
	m.ID = uuid.NewString()
	m.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO metrics (id, match_id, player_id, serve_accuracy, spike_success, block_eff, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);
	`
	_, err := d.DB.Exec(query,
		m.ID, m.MatchID, m.PlayerID,
		m.ServeAccuracy, m.SpikeSuccess, m.BlockEff,
		m.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return models.MMetric{}, fmt.Errorf("failed to insert metric: %w", err)
	}

	if d.changeHook != nil {
		d.changeHook(m)
	}
	return m, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) InsertMetricsBulk(metrics []models.MMetric) error {
	for start := 0; start < len(metrics); start += sqliteBatchSize {
		end := start + sqliteBatchSize
		if end > len(metrics) {
			end = len(metrics)
		}
		if err := d.insertMetricsBatch(metrics[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) insertMetricsBatch(metrics []models.MMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO metrics (id, match_id, player_id, serve_accuracy, spike_success, block_eff, updated_at) VALUES `)

	now := time.Now().UTC()
	stored := make([]models.MMetric, 0, len(metrics))
	args := make([]interface{}, 0, len(metrics)*paramsPerRow)
	for i, m := range metrics {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?)")

		m.ID = uuid.NewString()
		m.UpdatedAt = now
		stored = append(stored, m)
		args = append(args,
			m.ID, m.MatchID, m.PlayerID,
			m.ServeAccuracy, m.SpikeSuccess, m.BlockEff,
			m.UpdatedAt.Format(time.RFC3339Nano),
		)
	}

	if _, err := d.DB.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("failed to bulk insert metrics: %w", err)
	}

	// One change event per persisted row, in insert order
	if d.changeHook != nil {
		for _, m := range stored {
			d.changeHook(m)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) MetricsByMatch(matchID string) ([]models.MMetric, error) {
	query := `
		SELECT id, match_id, player_id, serve_accuracy, spike_success, block_eff, updated_at
		FROM metrics
		WHERE match_id = ?;
	`
	rows, err := d.DB.Query(query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var result []models.MMetric
	for rows.Next() {
		var m models.MMetric
		var updatedAt string
		if err := rows.Scan(&m.ID, &m.MatchID, &m.PlayerID, &m.ServeAccuracy, &m.SpikeSuccess, &m.BlockEff, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			m.UpdatedAt = ts
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) InsertPlayer(p models.MPlayer) (string, error) {
	p.ID = uuid.NewString()
	_, err := d.DB.Exec(
		`INSERT INTO players (id, full_name, position) VALUES (?, ?, ?);`,
		p.ID, p.FullName, p.Position,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert player: %w", err)
	}
	return p.ID, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Players() ([]models.MPlayer, error) {
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

func (d *SQLiteDB) InsertMatch(m models.MMatch) (string, error) {
	m.ID = uuid.NewString()
	_, err := d.DB.Exec(
		`INSERT INTO matches (id, opponent, match_date, location, created_by) VALUES (?, ?, ?, ?, ?);`,
		m.ID, m.Opponent, m.MatchDate, m.Location, m.CreatedBy,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert match: %w", err)
	}
	return m.ID, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Matches() ([]models.MMatch, error) {
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

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
