package objectstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"volley-observer/src/logger"
	"volley-observer/src/models"
	"volley-observer/src/objectstore"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestStore(t *testing.T) (*objectstore.LocalStore, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "videos")
	conf := &models.MConfig{
		Name:     "volley-test",
		LogLevel: "ERROR",
		Upload:   models.MUploadConfig{Dir: root, MaxUploadMB: 16},
	}

	store, err := objectstore.NewLocalStore(conf, logger.NewLogger(conf, "ObjectStore"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, root
}

func TestLocalStore(t *testing.T) {
	Convey("Given a local object store", t, func() {
		store, root := newTestStore(t)

		Convey("Then the root directory exists", func() {
			info, err := os.Stat(root)
			So(err, ShouldBeNil)
			So(info.IsDir(), ShouldBeTrue)
		})

		Convey("When an object is stored under a nested key", func() {
			err := store.Put("m1/1756576800000.mp4", []byte("frames"), "video/mp4")

			Convey("Then the payload is on disk under the key path", func() {
				So(err, ShouldBeNil)

				data, err := os.ReadFile(filepath.Join(root, "m1", "1756576800000.mp4"))
				So(err, ShouldBeNil)
				So(string(data), ShouldEqual, "frames")
			})
		})

		Convey("When an object is overwritten", func() {
			So(store.Put("m1/clip.mp4", []byte("old"), "video/mp4"), ShouldBeNil)
			So(store.Put("m1/clip.mp4", []byte("new"), "video/mp4"), ShouldBeNil)

			data, err := os.ReadFile(filepath.Join(root, "m1", "clip.mp4"))
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "new")
		})

		Convey("When keys would escape the root", func() {
			Convey("Then an empty key is rejected", func() {
				So(store.Put("", []byte("x"), ""), ShouldNotBeNil)
			})

			Convey("Then an absolute key is rejected", func() {
				So(store.Put("/etc/passwd", []byte("x"), ""), ShouldNotBeNil)
			})

			Convey("Then a traversal key is rejected", func() {
				err := store.Put("m1/../../outside.mp4", []byte("x"), "")
				So(err, ShouldNotBeNil)

				_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "outside.mp4"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})
	})
}
