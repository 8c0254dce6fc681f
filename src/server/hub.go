package server

import (
	"encoding/json"
	"net/http"

	"volley-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// directedMessage carries a reply meant for exactly one session. Delivered by
// the hub loop so session queues have a single sender.
type directedMessage struct {
	client  *Client
	message models.MWireMessage
}

// handleWebsockets is the main Hub loop. It is the only goroutine touching the
// session set and the only sender on session queues, so registration arriving
// mid-broadcast cannot corrupt the iteration, every session observes events in
// publish order, and a queue closed by a prune can never be written again.
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.sessionCount.Store(int64(len(s.clients)))
			s.instruments.ConnectedSessions.Set(float64(len(s.clients)))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}
			s.sessionCount.Store(int64(len(s.clients)))
			s.instruments.ConnectedSessions.Set(float64(len(s.clients)))

		case message := <-s.broadcast:
			// Broadcast to all sessions, regardless of observed match;
			// clients filter by match_id on their side
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Session too slow, disconnect to prevent Hub blocking.
					// Missed events are unrecoverable, so slow consumers are
					// pruned rather than queued without bound.
					delete(s.clients, client)
					close(client.send)
					s.instruments.DroppedSessions.Inc()
				}
			}
			s.sessionCount.Store(int64(len(s.clients)))
			s.instruments.ConnectedSessions.Set(float64(len(s.clients)))
			s.instruments.BroadcastEvents.Inc()

		case dm := <-s.directed:
			// The session may have been pruned or unregistered since it
			// asked; its queue is closed then, so membership gates the send
			if _, ok := s.clients[dm.client]; !ok {
				continue
			}
			select {
			case dm.client.send <- dm.message:
			default:
				delete(s.clients, dm.client)
				close(dm.client.send)
				s.instruments.DroppedSessions.Inc()
				s.sessionCount.Store(int64(len(s.clients)))
				s.instruments.ConnectedSessions.Set(float64(len(s.clients)))
			}

		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.sessionCount.Store(0)
			s.instruments.ConnectedSessions.Set(0)
			return
		}
	}
}

// -----------------------------------------------------------------------------
// Broadcaster Interface Implementation
// -----------------------------------------------------------------------------

// Publish fans one inserted metric out to every connected session.
func (s *APIServer) Publish(metric models.MMetric) {
	s.broadcast <- models.MWireMessage{
		Type:   models.WireMetricInserted,
		Metric: &metric,
	}
}

// -----------------------------------------------------------------------------

// PublishResync tells every session its snapshot may be stale. Sent after the
// change-capture subscription reconnects.
func (s *APIServer) PublishResync() {
	s.broadcast <- models.MWireMessage{Type: models.WireResync}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	queueSize := s.Config.Realtime.ClientQueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	client := &Client{
		hub: s,
		conn: conn,
		// Bounded queue: a session that cannot drain it is dropped by the hub
		send: make(chan models.MWireMessage, queueSize),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage serves the one upstream command a session may issue: a
// snapshot request for a match, answered over the same socket. Reconcilers use
// it after a resync event instead of an extra HTTP round trip.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "snapshot" || cmd.MatchID == "" {
		return
	}

	metrics, err := s.Store.MetricsByMatch(cmd.MatchID)
	if err != nil {
		s.Logger.Error("Snapshot for %s failed: %v", cmd.MatchID, err)
		return
	}
	models.SortMetricsChronological(metrics)

	response := models.MWireMessage{
		Type:    models.WireSnapshot,
		MatchID: cmd.MatchID,
		Metrics: metrics,
	}

	// Hand the reply to the hub loop instead of writing client.send here:
	// the read pump may race a prune that has already closed the queue
	select {
	case s.directed <- directedMessage{client: client, message: response}:
	case <-s.done:
	}
}
