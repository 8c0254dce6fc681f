package notifier_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"volley-observer/src/logger"
	"volley-observer/src/models"
	"volley-observer/src/notifier"

	. "github.com/smartystreets/goconvey/convey"
)

// -----------------------------------------------------------------------------

type captureBroadcaster struct {
	mu      sync.Mutex
	metrics []models.MMetric
	resyncs int
}

func (b *captureBroadcaster) Publish(m models.MMetric) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = append(b.metrics, m)
}

func (b *captureBroadcaster) PublishResync() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resyncs++
}

func (b *captureBroadcaster) Start() error { return nil }
func (b *captureBroadcaster) Stop() error  { return nil }

func (b *captureBroadcaster) published() []models.MMetric {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.MMetric(nil), b.metrics...)
}

// -----------------------------------------------------------------------------

func TestLocalNotifier(t *testing.T) {
	conf := &models.MConfig{Name: "volley-test", LogLevel: "ERROR"}

	Convey("Given a running local change feed", t, func() {
		hub := &captureBroadcaster{}
		n := notifier.NewLocalNotifier(hub, logger.NewLogger(conf, "ChangeNotifier"))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			n.Start(ctx)
			close(done)
		}()

		Convey("When the store hook fires for several inserts", func() {
			hook := n.Hook()
			hook(models.MMetric{ID: "a", MatchID: "m1", PlayerID: "p1"})
			hook(models.MMetric{ID: "b", MatchID: "m1", PlayerID: "p2"})
			hook(models.MMetric{ID: "c", MatchID: "m2", PlayerID: "p1"})

			Convey("Then events reach the hub in insert order", func() {
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && len(hub.published()) < 3 {
					time.Sleep(5 * time.Millisecond)
				}

				published := hub.published()
				So(len(published), ShouldEqual, 3)
				So(published[0].ID, ShouldEqual, "a")
				So(published[1].ID, ShouldEqual, "b")
				So(published[2].ID, ShouldEqual, "c")
			})
		})

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then the feed loop exits", func() {
				select {
				case <-done:
				case <-time.After(2 * time.Second):
					So("feed loop still running", ShouldBeEmpty)
				}
			})
		})

		Reset(func() {
			cancel()
			<-done
		})
	})
}
