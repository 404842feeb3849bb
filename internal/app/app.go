// Package app wires the components shared by the server and the CLI
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/content"
	"github.com/Kamar-Folarin/site-sync/internal/db"
	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/scheduler"
	"github.com/Kamar-Folarin/site-sync/internal/sites"
	"github.com/Kamar-Folarin/site-sync/internal/syncer"
	"github.com/Kamar-Folarin/site-sync/internal/wordpress"
)

// App holds the long-lived components of one process
type App struct {
	Config    *config.Config
	Logger    logrus.FieldLogger
	Store     db.Store
	Sites     *sites.Registry
	Fetcher   *wordpress.Fetcher
	Syncer    *syncer.Service
	Sessions  batch.SessionStore
	Batch     *batch.Processor
	Scheduler *scheduler.Scheduler

	redis *redis.Client
}

// New builds every component from the configuration. The scheduler is nil when
// no schedule is configured; it is not started.
func New(cfg *config.Config, logger logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	store, err := OpenStore(&cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	a.Sessions, a.redis, err = OpenSessionStore(&cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Sites, err = sites.NewRegistry(cfg.Sites, &cfg.Remote, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Fetcher = wordpress.NewFetcher(a.Sites, &cfg.Sync, logger)
	a.Syncer = syncer.NewService(a.Store, a.Fetcher, &cfg.Sync, logger)

	var generator batch.Generator = missingGenerator{}
	if cfg.Gemini.APIKey != "" || cfg.Gemini.AccessToken != "" {
		gemini, err := content.NewGeminiClient(&cfg.Gemini, &cfg.Remote, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		generator = gemini
	} else {
		logger.Warn("No Gemini credentials configured, content batches will fail")
	}
	a.Batch = batch.NewProcessor(generator, sites.NewContentUpdater(a.Sites), a.Sessions, &cfg.Batch, batch.WithLogger(logger))

	if cfg.Sync.Schedule != "" {
		a.Scheduler, err = scheduler.New(cfg.Sync.Schedule, a.Syncer, a.Sites, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

// OpenStore opens the configured cache backend. Postgres schemas are migrated before use.
func OpenStore(cfg *config.StoreConfig, logger logrus.FieldLogger) (db.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		store, err := db.NewPostgresStore(cfg.ConnectionString, logger)
		if err != nil {
			return nil, err
		}
		if err := retry(3, 5*time.Second, store.Migrate); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to run migrations after retries: %w", err)
		}
		return store, nil
	case "badger":
		return db.NewBadgerStore(cfg.BadgerPath, logger)
	case "memory":
		return db.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// OpenSessionStore connects to Redis when an address is configured and falls
// back to process memory otherwise
func OpenSessionStore(cfg *config.RedisConfig) (batch.SessionStore, *redis.Client, error) {
	if cfg.Address == "" {
		return batch.NewMemorySessionStore(), nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Address})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return batch.NewRedisSessionStore(client, cfg.PrefixKey(batch.SessionKey)), client, nil
}

// Close stops background work and releases the store and Redis connection
func (a *App) Close() error {
	var errs []error
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Batch != nil && a.Batch.IsRunning() {
		if err := a.Batch.Cancel(); err == nil {
			a.Batch.Wait()
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

type missingGenerator struct{}

func (missingGenerator) Generate(ctx context.Context, item batch.Item, style string) (*models.GeneratedContent, error) {
	return nil, apperrors.NewUnauthorizedError("content generator is not configured", nil)
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
