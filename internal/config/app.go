package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/birbparty/birb-baas/internal/cache"
	"github.com/birbparty/birb-baas/internal/database"
	"github.com/birbparty/birb-baas/internal/queue"
	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/birbparty/birb-baas/sdk"
	"github.com/sirupsen/logrus"
)

// Closer releases the backends opened by Build
type Closer func() error

// Build assembles an App with the adapters selected by cfg. The returned
// Closer must be called once the App is no longer used.
func Build(ctx context.Context, cfg *Config, log logrus.FieldLogger, metrics *telemetry.Metrics) (*sdk.App, Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if metrics == nil {
		metrics = telemetry.M()
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	opts := sdk.DefaultOptions().
		WithBaseURL(cfg.BaseURL).
		WithAPIVersion(cfg.APIVersion).
		WithObserver(telemetry.NewObserver(metrics, log)).
		WithLogger(log)

	if cfg.Tracing {
		opts.WithHTTPClient(telemetry.InstrumentedHTTPClientFactory())
	}

	switch cfg.Storage {
	case StorageRedis:
		store, err := cache.NewRedisStorage(cfg.Redis, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		closers = append(closers, store.Close)
		opts.WithStorageHandler(store.Factory())

	case StoragePostgres:
		db, err := database.NewDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		closers = append(closers, func() error { db.Close(); return nil })

		store := database.NewPostgresStorage(db, cfg.Postgres.Namespace, metrics)
		if err := store.Migrate(ctx); err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("failed to migrate session table: %w", err)
		}
		opts.WithStorageHandler(store.Factory())
	}

	if cfg.Events == EventsNATS {
		nc, err := queue.Connect(cfg.NATS, log)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		closers = append(closers, func() error { nc.Close(); return nil })

		bridge, err := queue.NewEventBridge(nc, cfg.NATS, metrics, log)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("failed to start event bridge: %w", err)
		}
		closers = append(closers, bridge.Close)
		opts.WithEventHandler(bridge.Factory())
	}

	app, err := sdk.New(cfg.APIKey, opts)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}

	log.WithFields(logrus.Fields{
		"baseURL": cfg.BaseURL,
		"storage": cfg.Storage,
		"events":  cfg.Events,
	}).Debug("App assembled")

	return app, closeAll, nil
}
