package notifier

import (
	"context"

	"volley-observer/src/interfaces"
	"volley-observer/src/logger"
	"volley-observer/src/models"
)

// -----------------------------------------------------------------------------
// In-process change feed (sqlite backend)
// -----------------------------------------------------------------------------

// LocalNotifier is the change-capture path for the embedded store, which has
// no server-side notification facility. The store's post-insert hook feeds a
// buffered channel drained by a single goroutine, so publish order equals
// insert order.
type LocalNotifier struct {
	Hub    interfaces.IBroadcaster
	Logger *logger.Logger

	events chan models.MMetric
}

// -----------------------------------------------------------------------------

func NewLocalNotifier(hub interfaces.IBroadcaster, log *logger.Logger) *LocalNotifier {
	return &LocalNotifier{
		Hub:    hub,
		Logger: log,
		events: make(chan models.MMetric, 256),
	}
}

// -----------------------------------------------------------------------------

// Hook returns the callback to register on the store. Sends block when the
// buffer is full rather than dropping: the consumer is a single fast publish
// loop, and losing events here would silently diverge live views.
func (n *LocalNotifier) Hook() func(models.MMetric) {
	return func(m models.MMetric) {
		n.events <- m
	}
}

// -----------------------------------------------------------------------------

// Start blocks delivering change events until ctx is cancelled.
func (n *LocalNotifier) Start(ctx context.Context) error {
	n.Logger.Info("Local change feed running")
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-n.events:
			n.Hub.Publish(m)
		}
	}
}

// -----------------------------------------------------------------------------

func (n *LocalNotifier) Stop() error {
	return nil
}
