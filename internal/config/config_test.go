package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/studyhall-app/studyhall/internal/config"
)

// clearEnv removes every STUDYHALL_ variable so tests start from defaults.
func clearEnv() {
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "STUDYHALL_") {
			os.Unsetenv(name)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	Convey("Given no configuration sources", t, func() {
		clearEnv()

		Convey("When the config is loaded", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.Timezone, ShouldEqual, "UTC")
				So(cfg.StoreBackend, ShouldEqual, config.StoreMemory)
				So(cfg.ActivityQueueSize, ShouldEqual, 100_000)
				So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
				So(cfg.DefaultPointAward, ShouldEqual, 5)
				So(cfg.Location().String(), ShouldEqual, "UTC")
			})
		})
	})
}

func TestLoadFromEnv(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		clearEnv()
		os.Setenv("STUDYHALL_ADDR", ":8088")
		os.Setenv("STUDYHALL_TIMEZONE", "America/New_York")
		os.Setenv("STUDYHALL_QUEUE_SIZE", "500")
		os.Setenv("STUDYHALL_LOG_LEVEL", "debug")
		defer clearEnv()

		Convey("When the config is loaded", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then env values override defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":8088")
				So(cfg.Timezone, ShouldEqual, "America/New_York")
				So(cfg.ActivityQueueSize, ShouldEqual, 500)
				So(cfg.LogLevel, ShouldEqual, "debug")
				So(cfg.Location().String(), ShouldEqual, "America/New_York")
			})
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		clearEnv()
		dir := t.TempDir()
		path := filepath.Join(dir, "studyhall.yaml")
		yaml := []byte("addr: \":7070\"\nworker_count: 3\npoint_awards:\n  practice_correct: 12\n")
		So(os.WriteFile(path, yaml, 0o600), ShouldBeNil)
		os.Setenv("STUDYHALL_CONFIG", path)
		defer clearEnv()

		Convey("When the config is loaded", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then file values layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.WorkerCount, ShouldEqual, 3)
				So(cfg.PointAwards["practice_correct"], ShouldEqual, 12)
			})
		})

		Convey("When an env var overrides the file", func() {
			os.Setenv("STUDYHALL_ADDR", ":6060")
			cfg, err := config.Load(context.Background())

			Convey("Then the env value wins", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
			})
		})
	})

	Convey("Given a missing config file path", t, func() {
		clearEnv()
		os.Setenv("STUDYHALL_CONFIG", "/nonexistent/studyhall.yaml")
		defer clearEnv()

		Convey("When the config is loaded", func() {
			_, err := config.Load(context.Background())

			Convey("Then loading fails with the load sentinel", func() {
				So(err, ShouldWrap, config.ErrLoadConfig)
			})
		})
	})
}

func TestValidation(t *testing.T) {
	Convey("Given invalid configuration values", t, func() {
		clearEnv()
		defer clearEnv()

		cases := []struct {
			name  string
			key   string
			value string
		}{
			{"unknown store backend", "STUDYHALL_STORE_BACKEND", "postgres"},
			{"bad timezone", "STUDYHALL_TIMEZONE", "Mars/Olympus"},
			{"non-positive queue size", "STUDYHALL_QUEUE_SIZE", "0"},
			{"non-positive leaderboard limit", "STUDYHALL_MAX_LEADERBOARD_LIMIT", "0"},
		}

		for _, tc := range cases {
			Convey("When loaded with "+tc.name, func() {
				os.Setenv(tc.key, tc.value)
				defer os.Unsetenv(tc.key)

				_, err := config.Load(context.Background())

				Convey("Then validation fails", func() {
					So(err, ShouldWrap, config.ErrInvalidConfig)
				})
			})
		}

		Convey("When the sqlite backend has no DSN", func() {
			os.Setenv("STUDYHALL_STORE_BACKEND", "sqlite")
			os.Setenv("STUDYHALL_SQLITE_DSN", "")
			defer clearEnv()

			_, err := config.Load(context.Background())

			Convey("Then validation fails", func() {
				So(err, ShouldWrap, config.ErrInvalidConfig)
			})
		})
	})
}
