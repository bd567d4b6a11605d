package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/wolfeidau/gazerecorder/internal/config"
	"github.com/wolfeidau/gazerecorder/internal/logger"
	"github.com/wolfeidau/gazerecorder/internal/store"
	"github.com/wolfeidau/gazerecorder/internal/store/memory"
	"github.com/wolfeidau/gazerecorder/internal/store/postgres"
	"github.com/wolfeidau/gazerecorder/internal/store/sqlite"
	"github.com/wolfeidau/gazerecorder/internal/telemetry"
)

type Globals struct {
	Debug       bool
	Config      string
	Store       string
	StorePath   string
	PostgresURL string
	Otel        bool
	Version     string

	// Stdout receives command output. Defaults to os.Stdout.
	Stdout io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// loadConfig reads the config file and applies flag overrides.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}

	if g.Store != "" {
		cfg.Store.Driver = g.Store
	}
	if g.StorePath != "" {
		cfg.Store.Path = g.StorePath
	}
	if g.PostgresURL != "" {
		cfg.Store.Postgres.ConnString = g.PostgresURL
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured backend wrapped with metrics.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.SessionStore, error) {
	var (
		next store.SessionStore
		err  error
	)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		next = memory.NewSessionStore()
	case config.DriverPostgres:
		next, err = postgres.Open(ctx, &cfg.Store.Postgres,
			postgres.WithRetry(cfg.Store.Retry),
			postgres.WithLogger(log),
		)
	default:
		next, err = sqlite.Open(ctx, cfg.Store.Path,
			sqlite.WithRetry(cfg.Store.Retry),
			sqlite.WithLogger(log),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	log.Debug().Str("driver", cfg.Store.Driver).Msg("Session store opened")
	return store.Instrument(next, cfg.Store.Driver), nil
}

// startTelemetry installs OTLP exporters when --otel is set. The returned
// function flushes them and is always safe to call.
func (g *Globals) startTelemetry(ctx context.Context, appID string, log zerolog.Logger) func() {
	if !g.Otel {
		return func() {}
	}

	shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Options{
		ServiceName: "gazectl",
		Version:     g.Version,
		AppID:       appID,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// setupLogger builds the process logger and installs it as the zerolog
// global for packages that log without an injected logger.
func (g *Globals) setupLogger() zerolog.Logger {
	log := logger.Setup(g.Debug)
	zlog.Logger = log
	return log
}

func closeStore(s store.SessionStore, log zerolog.Logger) {
	if err := s.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close session store")
	}
}

// openSessions sets up logging, loads configuration and opens the store.
// The returned cleanup closes the store and flushes telemetry.
func (g *Globals) openSessions(ctx context.Context) (store.SessionStore, zerolog.Logger, func(), error) {
	log := g.setupLogger()

	cfg, err := g.loadConfig()
	if err != nil {
		return nil, log, nil, err
	}

	stopTelemetry := g.startTelemetry(ctx, cfg.AppID, log)

	sessions, err := openStore(ctx, cfg, log)
	if err != nil {
		stopTelemetry()
		return nil, log, nil, err
	}

	return sessions, log, func() {
		closeStore(sessions, log)
		stopTelemetry()
	}, nil
}
