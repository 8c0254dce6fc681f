package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"volley-observer/src/helpers"
	"volley-observer/src/logger"
	"volley-observer/src/models"
	"volley-observer/src/utils"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Reconciler
// -----------------------------------------------------------------------------

// SnapshotFunc fetches the current full metric set for one match.
type SnapshotFunc func(ctx context.Context, matchID string) ([]models.MMetric, error)

// Reconciler maintains one match's live metric view: a snapshot fetched on
// mount merged with the broadcast stream, deduplicated by record id and kept
// in chronological order. The view is bounded by a fixed-capacity ring; ids
// already applied stay deduplicated even after their records rotate out.
//
// Lifecycle: unmounted -> mounting (snapshot in flight) -> live -> unmounted.
// A transport loss mid-life is not repaired; the view goes stale until a
// fresh Mount.
type Reconciler struct {
	MatchID string
	Logger  *logger.Logger

	// Snapshot is swappable for tests; the default fetches over HTTP.
	Snapshot SnapshotFunc

	baseURL string

	mu         sync.Mutex
	ring       *utils.MetricRing
	seen       map[string]struct{}
	generation int
	mounted    bool
	conn       *websocket.Conn
}

// -----------------------------------------------------------------------------

func NewReconciler(cfg *models.MConfig, baseURL, matchID string, log *logger.Logger) *Reconciler {
	r := &Reconciler{
		MatchID: matchID,
		Logger:  log,
		baseURL: strings.TrimRight(baseURL, "/"),
		ring:    utils.NewMetricRing(cfg.Realtime.FeedCapacity),
		seen:    make(map[string]struct{}),
	}
	r.Snapshot = r.httpSnapshot
	return r
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Mount connects the live stream and kicks off the snapshot fetch. The two
// race; the id dedup makes double delivery of a record harmless.
func (r *Reconciler) Mount(ctx context.Context) error {
	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return fmt.Errorf("reconciler for match %s already mounted", r.MatchID)
	}

	wsURL := strings.Replace(r.baseURL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		r.mu.Unlock()
		return &helpers.TransportError{VolleyObserverError: helpers.VolleyObserverError{
			Message: fmt.Sprintf("failed to dial %s", wsURL),
			Cause:   err,
		}}
	}

	r.conn = conn
	r.mounted = true
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	go r.fetchSnapshot(ctx, gen)
	go r.readLoop(conn)
	return nil
}

// -----------------------------------------------------------------------------

// Unmount synchronously unsubscribes. An in-flight snapshot fetch is not
// cancelled; bumping the generation makes its result stale so it is discarded
// on arrival.
func (r *Reconciler) Unmount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mounted {
		return
	}
	r.mounted = false
	r.generation++
	r.conn.Close()
	r.conn = nil
}

// -----------------------------------------------------------------------------
// Views
// -----------------------------------------------------------------------------

// Entries returns the current view, oldest first.
func (r *Reconciler) Entries() []models.MMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring.GetAll()
}

// Recent returns the n most recent records.
func (r *Reconciler) Recent(n int) []models.MMetric {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ring.GetLatest(n)
}

// -----------------------------------------------------------------------------
// Stream handling
// -----------------------------------------------------------------------------

func (r *Reconciler) readLoop(conn *websocket.Conn) {
	for {
		var msg models.MWireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			// Transport loss: the view stops updating until a fresh Mount
			r.Logger.Info("Live stream closed for match %s: %v", r.MatchID, err)
			return
		}
		r.Apply(msg)
	}
}

// -----------------------------------------------------------------------------

// Apply folds one wire message into the view.
func (r *Reconciler) Apply(msg models.MWireMessage) {
	switch msg.Type {
	case models.WireMetricInserted:
		if msg.Metric == nil {
			return
		}
		r.applyLive(*msg.Metric)

	case models.WireSnapshot:
		if msg.MatchID != r.MatchID {
			return
		}
		r.mu.Lock()
		gen := r.generation
		r.mu.Unlock()
		r.mergeSnapshot(gen, msg.Metrics)

	case models.WireResync:
		// The server lost and re-established its change feed; ask for a
		// fresh snapshot over the same socket.
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn == nil {
			return
		}
		cmd := models.MClientCommand{Command: "snapshot", MatchID: r.MatchID}
		if err := conn.WriteJSON(cmd); err != nil {
			r.Logger.Info("Snapshot request failed for match %s: %v", r.MatchID, err)
		}
	}
}

// -----------------------------------------------------------------------------

// applyLive appends one broadcast record: skipped unless it belongs to the
// observed match, skipped if its id was already applied.
func (r *Reconciler) applyLive(m models.MMetric) {
	if m.MatchID != r.MatchID {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.seen[m.ID]; dup {
		return
	}
	r.seen[m.ID] = struct{}{}
	r.ring.Append(m)
}

// -----------------------------------------------------------------------------
// Snapshot handling
// -----------------------------------------------------------------------------

func (r *Reconciler) fetchSnapshot(ctx context.Context, gen int) {
	metrics, err := r.Snapshot(ctx, r.MatchID)
	if err != nil {
		// No retry: start from the live stream alone
		r.Logger.Error("Snapshot fetch failed for match %s: %v", r.MatchID, err)
		return
	}
	r.mergeSnapshot(gen, metrics)
}

// -----------------------------------------------------------------------------

// mergeSnapshot folds a snapshot into the view. Results from a previous
// generation (fetched before an Unmount or a re-Mount) are discarded.
func (r *Reconciler) mergeSnapshot(gen int, metrics []models.MMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation || !r.mounted {
		return
	}

	fresh := make([]models.MMetric, 0, len(metrics))
	for _, m := range metrics {
		if m.MatchID != r.MatchID {
			continue
		}
		if _, dup := r.seen[m.ID]; dup {
			continue
		}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return
	}

	// Rebuild the view with the snapshot records interleaved in timestamp
	// order; live records already applied keep their identity
	merged := append(r.ring.GetAll(), fresh...)
	models.SortMetricsChronological(merged)

	r.ring.Clear()
	for _, m := range merged {
		r.seen[m.ID] = struct{}{}
		r.ring.Append(m)
	}
}

// -----------------------------------------------------------------------------

// httpSnapshot is the default SnapshotFunc: GET /api/metrics/:matchId.
func (r *Reconciler) httpSnapshot(ctx context.Context, matchID string) ([]models.MMetric, error) {
	url := fmt.Sprintf("%s/api/metrics/%s", r.baseURL, matchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("snapshot request returned %d: %s", resp.StatusCode, string(body))
	}

	var metrics []models.MMetric
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return metrics, nil
}
