// Package app wires configuration into the cache, gateway, coordinator and
// HTTP stack.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"fintrack-sync/internal/cache"
	"fintrack-sync/internal/config"
	"fintrack-sync/internal/gateway"
	"fintrack-sync/internal/handler"
	"fintrack-sync/internal/logging"
	"fintrack-sync/internal/repository"
	"fintrack-sync/internal/router"
	"fintrack-sync/internal/service"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// App holds the long-lived components of a running service.
type App struct {
	Config      *config.Config
	Store       *cache.Store
	Gateway     gateway.Gateway
	Coordinator *service.Coordinator
	Scheduler   *service.EvictionScheduler
	Router      http.Handler

	logger  zerolog.Logger
	closers []io.Closer
}

// OpenDurable opens the durable settings store selected by cfg.Backend.
// The returned closer is nil for backends without resources.
func OpenDurable(cfg config.CacheConfig, logger zerolog.Logger) (cache.SettingsStore, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		s, err := repository.NewSQLiteSettingsStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendMySQL:
		s, err := repository.NewMySQLSettingsStore(cfg.MySQLDSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendPostgres:
		s, err := repository.NewPostgresSettingsStore(cfg.PostgresDSN(), logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.BackendRedis:
		s, err := cache.NewRedisSettingsStore(cache.RedisSettingsConfig{
			Addr:     cfg.RedisAddress(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return cache.NewMemorySettingsStore(), nil, nil
	}
}

// OpenGateway opens the remote document store selected by cfg.Type.
func OpenGateway(cfg config.GatewayConfig, logger zerolog.Logger) (gateway.Gateway, io.Closer, error) {
	switch cfg.Type {
	case config.GatewayMongoDB:
		g, err := gateway.NewMongoGateway(gateway.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	default:
		g := gateway.NewMemoryGateway()
		if cfg.SeedFile != "" {
			n, err := g.LoadSeedFile(cfg.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			logger.Info().Str("file", cfg.SeedFile).Int("documents", n).Msg("memory gateway seeded")
		}
		return g, nil, nil
	}
}

// New builds the application from cfg. Call Start to begin background work
// and Close to release resources.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	durable, closer, err := OpenDurable(cfg.Cache, logging.ComponentLogger(logger, "durable"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache backend: %w", cfg.Cache.Backend, err)
	}
	a.addCloser(closer)

	gw, closer, err := OpenGateway(cfg.Gateway, logging.ComponentLogger(logger, "gateway"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open %s gateway: %w", cfg.Gateway.Type, err)
	}
	a.addCloser(closer)
	a.Gateway = gw

	a.Store = cache.NewStore(durable, cache.WithLogger(logging.ComponentLogger(logger, "cache")))

	a.Coordinator = service.NewCoordinator(a.Store, gw, service.CoordinatorConfig{
		Durations:      cfg.Cache.Durations(),
		Coalesce:       cfg.Coordinator.Coalesce,
		GatewayTimeout: cfg.Gateway.Timeout,
	}, logging.ComponentLogger(logger, "coordinator"))

	a.Scheduler = service.NewEvictionScheduler(a.Store, service.EvictionConfig{
		Interval: cfg.Cache.SweepInterval,
	}, logging.ComponentLogger(logger, "eviction"))

	var checks []handler.ReadyCheck
	if p, ok := a.Store.Durable().(pinger); ok {
		checks = append(checks, handler.ReadyCheck{Name: "cache_" + cfg.Cache.Backend, Ping: p.Ping})
	}
	if p, ok := gw.(pinger); ok {
		checks = append(checks, handler.ReadyCheck{Name: "gateway_" + cfg.Gateway.Type, Ping: p.Ping})
	}

	a.Router = router.New(router.Config{
		Handler:        handler.New(cfg.App.Name, cfg.App.Version, checks...),
		FinanceHandler: handler.NewFinanceHandler(a.Coordinator),
		AdminHandler:   handler.NewAdminHandler(a.Store, a.Scheduler, cfg.Cache.Backend),
		APIKeys:        cfg.App.APIKeys,
		Logger:         logging.ComponentLogger(logger, "http"),
	})

	return a, nil
}

// Start launches background work. The eviction scheduler is started exactly
// once per App.
func (a *App) Start() {
	a.Scheduler.Start()
	a.logger.Info().
		Str("cache_backend", a.Config.Cache.Backend).
		Str("gateway", a.Config.Gateway.Type).
		Bool("coalesce", a.Config.Coordinator.Coalesce).
		Msg("application started")
}

// Close stops background work and releases every opened resource.
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) addCloser(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}
