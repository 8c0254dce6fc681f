package interfaces

import "context"

// -----------------------------------------------------------------------------
// IChangeNotifier defines the change-capture subscription: it watches the
// metrics table for inserts and delivers each new record to the broadcaster.
// -----------------------------------------------------------------------------

type IChangeNotifier interface {
	// Start blocks until ctx is cancelled, delivering change events as they
	// arrive. Reconnection is the implementation's responsibility.
	Start(ctx context.Context) error

	// Stop releases the underlying subscription.
	Stop() error
}
