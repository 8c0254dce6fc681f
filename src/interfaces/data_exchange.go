package interfaces

import "volley-observer/src/models"

// -----------------------------------------------------------------------------
// IBroadcaster defines the interface for pushing change events to connected
// sessions (Server/Hub).
// -----------------------------------------------------------------------------

type IBroadcaster interface {
	// -----------------------------------------------------------------------------
	// Publish fans one inserted metric out to every connected session.
	Publish(metric models.MMetric)

	// -----------------------------------------------------------------------------
	// PublishResync tells every session to re-fetch its snapshot. Used after
	// the change-capture subscription reconnects and may have missed events.
	PublishResync()

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
