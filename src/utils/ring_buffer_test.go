package utils_test

import (
	"fmt"
	"testing"

	"volley-observer/src/models"
	"volley-observer/src/utils"

	. "github.com/smartystreets/goconvey/convey"
)

func metric(id string) models.MMetric {
	return models.MMetric{ID: id, MatchID: "m1", PlayerID: "p1"}
}

func TestMetricRing(t *testing.T) {
	Convey("Given a ring with capacity 3", t, func() {
		rb := utils.NewMetricRing(3)

		Convey("Then it starts empty", func() {
			So(rb.Size(), ShouldEqual, 0)
			So(rb.Capacity(), ShouldEqual, 3)
			So(rb.IsFull(), ShouldBeFalse)
			So(rb.GetAll(), ShouldBeEmpty)
		})

		Convey("When fewer records than capacity are appended", func() {
			rb.Append(metric("a"))
			rb.Append(metric("b"))

			Convey("Then GetAll returns them oldest first", func() {
				all := rb.GetAll()
				So(len(all), ShouldEqual, 2)
				So(all[0].ID, ShouldEqual, "a")
				So(all[1].ID, ShouldEqual, "b")
			})

			Convey("And GetLatest(1) returns only the newest", func() {
				latest := rb.GetLatest(1)
				So(len(latest), ShouldEqual, 1)
				So(latest[0].ID, ShouldEqual, "b")
			})
		})

		Convey("When more records than capacity are appended", func() {
			for i := 0; i < 5; i++ {
				rb.Append(metric(fmt.Sprintf("id-%d", i)))
			}

			Convey("Then the oldest records are overwritten", func() {
				So(rb.Size(), ShouldEqual, 3)
				So(rb.IsFull(), ShouldBeTrue)

				all := rb.GetAll()
				So(all[0].ID, ShouldEqual, "id-2")
				So(all[1].ID, ShouldEqual, "id-3")
				So(all[2].ID, ShouldEqual, "id-4")
			})

			Convey("And GetLatest caps at the current size", func() {
				So(len(rb.GetLatest(10)), ShouldEqual, 3)
			})
		})

		Convey("When the ring is cleared", func() {
			rb.Append(metric("a"))
			rb.Clear()

			Convey("Then it behaves as new", func() {
				So(rb.Size(), ShouldEqual, 0)
				So(rb.GetAll(), ShouldBeEmpty)

				rb.Append(metric("b"))
				So(rb.GetAll()[0].ID, ShouldEqual, "b")
			})
		})

		Convey("When constructed with a non-positive capacity", func() {
			tiny := utils.NewMetricRing(0)

			Convey("Then a default capacity is applied", func() {
				So(tiny.Capacity(), ShouldEqual, 256)
			})
		})
	})
}
