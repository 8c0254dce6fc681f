package models

// -----------------------------------------------------------------------------
// Websocket wire contract
// -----------------------------------------------------------------------------

// Wire message types pushed to sessions.
const (
	WireMetricInserted = "metric_inserted"
	WireSnapshot       = "snapshot"
	WireResync         = "resync"
)

// MWireMessage is the single envelope crossing the websocket boundary.
// Exactly one of Metric/Metrics is set depending on Type.
type MWireMessage struct {
	Type    string    `json:"type"`
	MatchID string    `json:"match_id,omitempty"`
	Metric  *MMetric  `json:"metric,omitempty"`
	Metrics []MMetric `json:"metrics,omitempty"`
}

// MClientCommand is the only message a session may send upstream.
type MClientCommand struct {
	Command string `json:"command"`
	MatchID string `json:"matchId"`
}
