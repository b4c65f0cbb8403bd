package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/studyhall-app/studyhall/internal/adapters/http/api"
	"github.com/studyhall-app/studyhall/internal/adapters/http/swagger"
	"github.com/studyhall-app/studyhall/internal/adapters/repository"
	app "github.com/studyhall-app/studyhall/internal/app"
	"github.com/studyhall-app/studyhall/internal/config"
	"github.com/studyhall-app/studyhall/internal/domain/badges"
	"github.com/studyhall-app/studyhall/internal/domain/leveling"
	"github.com/studyhall-app/studyhall/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	// Disable default Go metrics collection to avoid duplicate metrics.
	// The service publishes its own system metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts, err := serviceOptions(cfg, log)
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		return
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// HTTP mux and routes.
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// serviceOptions translates the loaded configuration into service options.
func serviceOptions(cfg *config.Config, log logger.Logger) ([]app.Option, error) {
	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.ActivityQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		app.WithLocation(cfg.Location()),
		app.WithPointAwards(cfg.PointAwards, cfg.DefaultPointAward),
	}

	if len(cfg.LevelCurve) > 0 {
		curve, err := leveling.NewCurve(cfg.LevelCurve)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithLevelCurve(curve))
	}
	if len(cfg.Badges) > 0 {
		set, err := badges.NewSet(cfg.Badges)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithBadgeSet(set))
	}
	if cfg.StoreBackend == config.StoreSQLite {
		dsn := cfg.SQLiteDSN
		opts = append(opts, app.WithStoreFactory(func(ctx context.Context) (repository.Store, error) {
			store, err := repository.NewSQLStore(ctx, "sqlite3", dsn)
			if err != nil {
				return nil, err
			}
			return store, nil
		}))
	}

	return opts, nil
}
