package models_test

import (
	"testing"
	"time"

	"volley-observer/src/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSortMetricsChronological(t *testing.T) {
	base := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	Convey("Given records with distinct timestamps", t, func() {
		metrics := []models.MMetric{
			{ID: "c", UpdatedAt: base.Add(2 * time.Minute)},
			{ID: "a", UpdatedAt: base},
			{ID: "b", UpdatedAt: base.Add(time.Minute)},
		}

		Convey("When sorted", func() {
			models.SortMetricsChronological(metrics)

			Convey("Then they are ordered oldest first", func() {
				So(metrics[0].ID, ShouldEqual, "a")
				So(metrics[1].ID, ShouldEqual, "b")
				So(metrics[2].ID, ShouldEqual, "c")
			})
		})
	})

	Convey("Given records sharing a timestamp", t, func() {
		metrics := []models.MMetric{
			{ID: "z", UpdatedAt: base},
			{ID: "a", UpdatedAt: base},
			{ID: "m", UpdatedAt: base},
		}

		Convey("When sorted", func() {
			models.SortMetricsChronological(metrics)

			Convey("Then ties break on id so the order is reproducible", func() {
				So(metrics[0].ID, ShouldEqual, "a")
				So(metrics[1].ID, ShouldEqual, "m")
				So(metrics[2].ID, ShouldEqual, "z")
			})
		})
	})

	Convey("Given an empty slice", t, func() {
		Convey("When sorted", func() {
			So(func() { models.SortMetricsChronological(nil) }, ShouldNotPanic)
		})
	})
}
