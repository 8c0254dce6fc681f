package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"volley-observer/src/interfaces"
	"volley-observer/src/logger"
	"volley-observer/src/models"

	"github.com/lib/pq"
)

// -----------------------------------------------------------------------------
// Postgres change-capture subscription
// -----------------------------------------------------------------------------

const (
	minReconnectInterval = 1 * time.Second
	maxReconnectInterval = 30 * time.Second
	pingInterval         = 90 * time.Second
)

// PostgresNotifier holds the process's single LISTEN subscription on the
// metrics insert channel. lib/pq reconnects with exponential backoff between
// minReconnectInterval and maxReconnectInterval; events emitted while the
// connection was down are unrecoverable, so a reconnect triggers a resync
// broadcast telling every live session to re-fetch its snapshot.
type PostgresNotifier struct {
	Config *models.MConfig
	Hub    interfaces.IBroadcaster
	Logger *logger.Logger

	listener *pq.Listener
}

// -----------------------------------------------------------------------------

func NewPostgresNotifier(cfg *models.MConfig, hub interfaces.IBroadcaster, log *logger.Logger) *PostgresNotifier {
	return &PostgresNotifier{
		Config: cfg,
		Hub:    hub,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Start subscribes and blocks delivering change events until ctx is cancelled.
func (n *PostgresNotifier) Start(ctx context.Context) error {
	channel := n.Config.Storage.ListenChannel

	n.listener = pq.NewListener(
		n.Config.Storage.DBConnectionString,
		minReconnectInterval,
		maxReconnectInterval,
		n.handleListenerEvent,
	)

	if err := n.listener.Listen(channel); err != nil {
		return fmt.Errorf("failed to LISTEN on %s: %w", channel, err)
	}
	n.Logger.Info("Subscribed to channel %s", channel)

	for {
		select {
		case <-ctx.Done():
			return nil

		case notification := <-n.listener.Notify:
			// A nil notification marks a re-established connection
			if notification == nil {
				continue
			}
			metric, err := DecodeChange([]byte(notification.Extra))
			if err != nil {
				n.Logger.Error("Dropping undecodable change payload: %v", err)
				continue
			}
			n.Hub.Publish(metric)

		case <-time.After(pingInterval):
			// Keep the connection honest during idle stretches
			if err := n.listener.Ping(); err != nil {
				n.Logger.Warning("Listener ping failed: %v", err)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (n *PostgresNotifier) handleListenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnected:
		n.Logger.Info("Change-capture connection established")
	case pq.ListenerEventDisconnected:
		n.Logger.Warning("Change-capture connection lost: %v", err)
	case pq.ListenerEventReconnected:
		n.Logger.Info("Change-capture connection re-established, requesting resync")
		// Missed events cannot be replayed; force every session to re-fetch.
		n.Hub.PublishResync()
	case pq.ListenerEventConnectionAttemptFailed:
		n.Logger.Warning("Change-capture reconnect attempt failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (n *PostgresNotifier) Stop() error {
	if n.listener != nil {
		return n.listener.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Payload decoding
// -----------------------------------------------------------------------------

// changePayload mirrors row_to_json(NEW) for the metrics table.
type changePayload struct {
	ID            string  `json:"id"`
	MatchID       string  `json:"match_id"`
	PlayerID      string  `json:"player_id"`
	ServeAccuracy float64 `json:"serve_accuracy"`
	SpikeSuccess  float64 `json:"spike_success"`
	BlockEff      float64 `json:"block_eff"`
	UpdatedAt     string  `json:"updated_at"`
}

// DecodeChange converts one NOTIFY payload into a metric record. The payload
// must carry id, match_id and player_id; anything else is a malformed event.
func DecodeChange(data []byte) (models.MMetric, error) {
	var p changePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return models.MMetric{}, fmt.Errorf("failed to decode change payload: %w", err)
	}
	if p.ID == "" || p.MatchID == "" || p.PlayerID == "" {
		return models.MMetric{}, fmt.Errorf("change payload missing identity fields: %s", string(data))
	}

	m := models.MMetric{
		ID:            p.ID,
		MatchID:       p.MatchID,
		PlayerID:      p.PlayerID,
		ServeAccuracy: p.ServeAccuracy,
		SpikeSuccess:  p.SpikeSuccess,
		BlockEff:      p.BlockEff,
	}

	// row_to_json renders timestamptz without the 'Z' shorthand; try RFC3339
	// first, then the zone-less render used by some server configurations.
	if ts, err := time.Parse(time.RFC3339Nano, p.UpdatedAt); err == nil {
		m.UpdatedAt = ts
	} else if ts, err := time.Parse("2006-01-02T15:04:05.999999999", p.UpdatedAt); err == nil {
		m.UpdatedAt = ts.UTC()
	}

	return m, nil
}
