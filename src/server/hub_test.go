package server

import (
	"encoding/json"
	"testing"
	"time"

	"volley-observer/src/models"

	. "github.com/smartystreets/goconvey/convey"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// newHubClient builds a session without a transport; the hub only touches the
// send queue, so tests read it directly instead of running the pumps.
func newHubClient(s *APIServer, queueSize int) *Client {
	return &Client{
		hub:  s,
		send: make(chan models.MWireMessage, queueSize),
	}
}

func recv(c *Client) (models.MWireMessage, bool) {
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(2 * time.Second):
		return models.MWireMessage{}, false
	}
}

func waitClosed(c *Client) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case _, ok := <-c.send:
			if !ok {
				return true
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Hub behaviour
// -----------------------------------------------------------------------------

func TestHubBroadcast(t *testing.T) {
	Convey("Given a running hub", t, func() {
		s := newTestServer(&fakeStore{}, &fakeVideos{})
		s.RunHub()
		defer s.Stop()

		Convey("When two metrics are published to a registered session", func() {
			c := newHubClient(s, 8)
			s.register <- c

			s.Publish(models.MMetric{ID: "e1", MatchID: "m1", PlayerID: "p1"})
			s.Publish(models.MMetric{ID: "e2", MatchID: "m1", PlayerID: "p2"})

			Convey("Then the session observes them in publish order", func() {
				first, ok := recv(c)
				So(ok, ShouldBeTrue)
				So(first.Type, ShouldEqual, models.WireMetricInserted)
				So(first.Metric.ID, ShouldEqual, "e1")

				second, ok := recv(c)
				So(ok, ShouldBeTrue)
				So(second.Metric.ID, ShouldEqual, "e2")
			})
		})

		Convey("When a session registers after an event was published", func() {
			early := newHubClient(s, 8)
			s.register <- early
			s.Publish(models.MMetric{ID: "e1", MatchID: "m1", PlayerID: "p1"})

			// Draining e1 proves the broadcast was processed before the
			// second session joins
			msg, ok := recv(early)
			So(ok, ShouldBeTrue)
			So(msg.Metric.ID, ShouldEqual, "e1")

			late := newHubClient(s, 8)
			s.register <- late
			s.Publish(models.MMetric{ID: "e2", MatchID: "m1", PlayerID: "p1"})

			Convey("Then the late session receives no backfill", func() {
				msg, ok := recv(late)
				So(ok, ShouldBeTrue)
				So(msg.Metric.ID, ShouldEqual, "e2")

				select {
				case extra := <-late.send:
					So(extra.Metric, ShouldBeNil) // no further event expected
				default:
				}
			})
		})

		Convey("When events belong to different matches", func() {
			c := newHubClient(s, 8)
			s.register <- c
			s.Publish(models.MMetric{ID: "e1", MatchID: "m1", PlayerID: "p1"})
			s.Publish(models.MMetric{ID: "e2", MatchID: "m2", PlayerID: "p1"})

			Convey("Then the hub fans both out without filtering", func() {
				first, _ := recv(c)
				second, _ := recv(c)
				So(first.Metric.MatchID, ShouldEqual, "m1")
				So(second.Metric.MatchID, ShouldEqual, "m2")
			})
		})

		Convey("When a session cannot drain its queue", func() {
			slow := newHubClient(s, 1)
			healthy := newHubClient(s, 8)
			s.register <- slow
			s.register <- healthy

			s.Publish(models.MMetric{ID: "e1", MatchID: "m1", PlayerID: "p1"})
			s.Publish(models.MMetric{ID: "e2", MatchID: "m1", PlayerID: "p1"})

			Convey("Then the slow session is dropped and the rest keep receiving", func() {
				// Draining both events from the healthy session first proves
				// the hub finished e2, the broadcast that overflowed the
				// slow queue of one and pruned the session
				first, ok := recv(healthy)
				So(ok, ShouldBeTrue)
				So(first.Metric.ID, ShouldEqual, "e1")
				second, ok := recv(healthy)
				So(ok, ShouldBeTrue)
				So(second.Metric.ID, ShouldEqual, "e2")

				So(waitClosed(slow), ShouldBeTrue)
			})
		})

		Convey("When a session unregisters", func() {
			c := newHubClient(s, 8)
			s.register <- c
			s.unregister <- c

			Convey("Then its queue is closed", func() {
				So(waitClosed(c), ShouldBeTrue)
			})
		})

		Convey("When a resync is published", func() {
			c := newHubClient(s, 8)
			s.register <- c
			s.PublishResync()

			Convey("Then the session receives a resync envelope", func() {
				msg, ok := recv(c)
				So(ok, ShouldBeTrue)
				So(msg.Type, ShouldEqual, models.WireResync)
				So(msg.Metric, ShouldBeNil)
			})
		})
	})

	Convey("Given a hub that is stopped", t, func() {
		s := newTestServer(&fakeStore{}, &fakeVideos{})
		s.RunHub()

		c := newHubClient(s, 8)
		s.register <- c
		s.Stop()

		Convey("Then every session queue is closed", func() {
			So(waitClosed(c), ShouldBeTrue)
		})
	})
}

// -----------------------------------------------------------------------------
// Client snapshot command
// -----------------------------------------------------------------------------

func TestHandleClientMessage(t *testing.T) {
	snapshotCmd := func(matchID string) []byte {
		cmd, _ := json.Marshal(models.MClientCommand{Command: "snapshot", MatchID: matchID})
		return cmd
	}

	Convey("Given a running hub over records in non-chronological order", t, func() {
		base := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
		store := &fakeStore{metrics: []models.MMetric{
			{ID: "b", MatchID: "m1", PlayerID: "p1", UpdatedAt: base.Add(2 * time.Minute)},
			{ID: "a", MatchID: "m1", PlayerID: "p2", UpdatedAt: base},
			{ID: "c", MatchID: "m2", PlayerID: "p1", UpdatedAt: base.Add(time.Minute)},
		}}
		s := newTestServer(store, &fakeVideos{})
		s.RunHub()
		defer s.Stop()

		c := newHubClient(s, 8)
		s.register <- c

		Convey("When a snapshot command arrives", func() {
			s.HandleClientMessage(c, snapshotCmd("m1"))

			Convey("Then the reply holds the match's records oldest first", func() {
				msg, ok := recv(c)
				So(ok, ShouldBeTrue)
				So(msg.Type, ShouldEqual, models.WireSnapshot)
				So(msg.MatchID, ShouldEqual, "m1")
				So(len(msg.Metrics), ShouldEqual, 2)
				So(msg.Metrics[0].ID, ShouldEqual, "a")
				So(msg.Metrics[1].ID, ShouldEqual, "b")
			})
		})

		Convey("When the command names no match", func() {
			s.HandleClientMessage(c, snapshotCmd(""))

			Convey("Then nothing is sent", func() {
				select {
				case <-c.send:
					So("received a reply", ShouldBeEmpty)
				case <-time.After(100 * time.Millisecond):
				}
			})
		})

		Convey("When the command verb is unknown", func() {
			cmd, _ := json.Marshal(models.MClientCommand{Command: "subscribe", MatchID: "m1"})
			s.HandleClientMessage(c, cmd)

			Convey("Then it is ignored", func() {
				select {
				case <-c.send:
					So("received a reply", ShouldBeEmpty)
				case <-time.After(100 * time.Millisecond):
				}
			})
		})

		Convey("When a session the hub has already pruned requests a snapshot", func() {
			slow := newHubClient(s, 1)
			s.register <- slow

			s.Publish(models.MMetric{ID: "e1", MatchID: "m1", PlayerID: "p1"})
			s.Publish(models.MMetric{ID: "e2", MatchID: "m1", PlayerID: "p1"})

			// c drains both events, proving the hub finished the broadcast
			// that overflowed slow's queue and closed it
			first, ok := recv(c)
			So(ok, ShouldBeTrue)
			So(first.Metric.ID, ShouldEqual, "e1")
			second, ok := recv(c)
			So(ok, ShouldBeTrue)
			So(second.Metric.ID, ShouldEqual, "e2")
			So(waitClosed(slow), ShouldBeTrue)

			Convey("Then the command is absorbed without a panic", func() {
				So(func() { s.HandleClientMessage(slow, snapshotCmd("m1")) }, ShouldNotPanic)
			})

			Convey("And remaining sessions keep receiving afterwards", func() {
				s.HandleClientMessage(slow, snapshotCmd("m1"))
				s.Publish(models.MMetric{ID: "e3", MatchID: "m1", PlayerID: "p1"})

				for {
					msg, ok := recv(c)
					So(ok, ShouldBeTrue)
					if msg.Type == models.WireMetricInserted && msg.Metric.ID == "e3" {
						break
					}
				}
			})
		})
	})
}
