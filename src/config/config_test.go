package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"volley-observer/src/config"

	. "github.com/smartystreets/goconvey/convey"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
name: volley-observer
host: 127.0.0.1
port: 3001
log_level: INFO
storage:
  db_type: sqlite
  db_path: test.db
`

func TestNewConfig(t *testing.T) {
	Convey("Given a valid configuration file", t, func() {
		path := writeConfig(t, validYAML)

		Convey("When loading it", func() {
			conf, err := config.NewConfig(path)

			Convey("Then it loads without error", func() {
				So(err, ShouldBeNil)
				So(conf.Name, ShouldEqual, "volley-observer")
				So(conf.Port, ShouldEqual, 3001)
				So(conf.Storage.DBType, ShouldEqual, "sqlite")
			})

			Convey("And defaults are applied to omitted fields", func() {
				So(conf.Storage.ListenChannel, ShouldEqual, "metrics_inserted")
				So(conf.Realtime.ClientQueueSize, ShouldEqual, 256)
				So(conf.Realtime.FeedCapacity, ShouldEqual, 256)
				So(conf.Upload.Dir, ShouldEqual, "videos")
				So(conf.Upload.MaxUploadMB, ShouldEqual, 512)
			})
		})
	})

	Convey("Given invalid configuration files", t, func() {
		Convey("When the file does not exist", func() {
			_, err := config.NewConfig(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})

		Convey("When the YAML is malformed", func() {
			path := writeConfig(t, "name: [unclosed")
			_, err := config.NewConfig(path)
			So(err, ShouldNotBeNil)
		})

		Convey("When the name is missing", func() {
			path := writeConfig(t, `
host: 127.0.0.1
port: 3001
storage:
  db_type: sqlite
  db_path: test.db
`)
			_, err := config.NewConfig(path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "name")
		})

		Convey("When the port is out of range", func() {
			path := writeConfig(t, `
name: volley-observer
host: 127.0.0.1
port: 80
storage:
  db_type: sqlite
  db_path: test.db
`)
			_, err := config.NewConfig(path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "port")
		})

		Convey("When sqlite is selected without a path", func() {
			path := writeConfig(t, `
name: volley-observer
host: 127.0.0.1
port: 3001
storage:
  db_type: sqlite
`)
			_, err := config.NewConfig(path)
			So(err, ShouldNotBeNil)
		})

		Convey("When postgres is selected without a connection string", func() {
			path := writeConfig(t, `
name: volley-observer
host: 127.0.0.1
port: 3001
storage:
  db_type: postgres
`)
			_, err := config.NewConfig(path)
			So(err, ShouldNotBeNil)
		})

		Convey("When the database type is unknown", func() {
			path := writeConfig(t, `
name: volley-observer
host: 127.0.0.1
port: 3001
storage:
  db_type: oracle
`)
			_, err := config.NewConfig(path)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "unknown database type")
		})
	})

	Convey("Given a loaded configuration", t, func() {
		path := writeConfig(t, validYAML)
		conf, err := config.NewConfig(path)
		So(err, ShouldBeNil)

		Convey("When saving it to a new path", func() {
			out := filepath.Join(t.TempDir(), "saved.yaml")
			So(conf.Save(out), ShouldBeNil)

			Convey("Then the saved file loads back identically", func() {
				reloaded, err := config.NewConfig(out)
				So(err, ShouldBeNil)
				So(reloaded.Name, ShouldEqual, conf.Name)
				So(reloaded.Storage.DBPath, ShouldEqual, conf.Storage.DBPath)
			})
		})
	})
}
