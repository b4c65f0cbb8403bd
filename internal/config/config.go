// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer sources.
// - External errors must be wrapped via this package's sentinel errors.
package config

import (
	"runtime"

	"github.com/studyhall-app/studyhall/internal/domain/badges"
	"github.com/studyhall-app/studyhall/internal/domain/leveling"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Timezone names the IANA location used for leaderboard windows and
	// streak day boundaries, e.g. "America/New_York".
	Timezone string `koanf:"timezone"`

	// StoreBackend selects the persistence layer: memory or sqlite.
	StoreBackend string `koanf:"store_backend"`

	// SQLiteDSN is the data source name used when StoreBackend is sqlite.
	SQLiteDSN string `koanf:"sqlite_dsn"`

	// ActivityQueueSize bounds the in-memory activity queue.
	ActivityQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of activity workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// PointAwards maps activity kinds to the points they earn.
	PointAwards map[string]int `koanf:"point_awards"`

	// DefaultPointAward is used for unknown activity kinds.
	DefaultPointAward int `koanf:"default_point_award"`

	// LevelCurve overrides the built-in level thresholds when non-empty.
	LevelCurve []leveling.Definition `koanf:"level_curve"`

	// Badges overrides the built-in badge set when non-empty.
	Badges []badges.Definition `koanf:"badges"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		Timezone:            "UTC",
		StoreBackend:        StoreMemory,
		SQLiteDSN:           "file:studyhall.db?cache=shared",
		ActivityQueueSize:   100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		DefaultPointAward:   5,
	}
}
