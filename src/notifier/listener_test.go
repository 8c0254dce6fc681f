package notifier_test

import (
	"testing"
	"time"

	"volley-observer/src/notifier"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDecodeChange(t *testing.T) {
	Convey("Given NOTIFY payloads produced by the insert trigger", t, func() {
		Convey("When the payload is a complete row", func() {
			payload := `{
				"id": "7b1e9c4a-6f0d-4f52-9a4a-0d8f2f6a1c11",
				"match_id": "m1",
				"player_id": "p1",
				"serve_accuracy": 0.85,
				"spike_success": 0.78,
				"block_eff": 0.65,
				"updated_at": "2026-08-30T18:00:00.123456Z"
			}`

			m, err := notifier.DecodeChange([]byte(payload))

			Convey("Then every field decodes", func() {
				So(err, ShouldBeNil)
				So(m.ID, ShouldEqual, "7b1e9c4a-6f0d-4f52-9a4a-0d8f2f6a1c11")
				So(m.MatchID, ShouldEqual, "m1")
				So(m.PlayerID, ShouldEqual, "p1")
				So(m.ServeAccuracy, ShouldEqual, 0.85)
				So(m.SpikeSuccess, ShouldEqual, 0.78)
				So(m.BlockEff, ShouldEqual, 0.65)
				So(m.UpdatedAt.Equal(time.Date(2026, 8, 30, 18, 0, 0, 123456000, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the timestamp is rendered without a zone", func() {
			payload := `{"id":"x","match_id":"m1","player_id":"p1","updated_at":"2026-08-30T18:00:00.5"}`

			m, err := notifier.DecodeChange([]byte(payload))

			Convey("Then it is parsed as UTC", func() {
				So(err, ShouldBeNil)
				So(m.UpdatedAt.Equal(time.Date(2026, 8, 30, 18, 0, 0, 500000000, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the timestamp is unparsable", func() {
			payload := `{"id":"x","match_id":"m1","player_id":"p1","updated_at":"yesterday"}`

			m, err := notifier.DecodeChange([]byte(payload))

			Convey("Then the record still decodes with a zero timestamp", func() {
				So(err, ShouldBeNil)
				So(m.UpdatedAt.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When identity fields are missing", func() {
			for _, payload := range []string{
				`{"match_id":"m1","player_id":"p1"}`,
				`{"id":"x","player_id":"p1"}`,
				`{"id":"x","match_id":"m1"}`,
			} {
				_, err := notifier.DecodeChange([]byte(payload))
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "identity")
			}
		})

		Convey("When the payload is not JSON", func() {
			_, err := notifier.DecodeChange([]byte("not json"))
			So(err, ShouldNotBeNil)
		})
	})
}
