// Package daemon wires the store, the authorization cache, the decision engine and the web service.
package daemon

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/accessd/accessd/internal/authz"
	"github.com/accessd/accessd/internal/authz/cache"
	"github.com/accessd/accessd/internal/config"
	"github.com/accessd/accessd/internal/db"
	"github.com/accessd/accessd/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	DB         *gorm.DB
	Authz      *authz.Service
	webService *web.Service
	closers    []func() error
}

// NewBackend creates the cache backend selected by cfg.Cache.Backend. The returned closer
// releases the connection of a redis backend and is a no-op otherwise.
func NewBackend(ctx context.Context, cfg *config.Config) (cache.Backend, func() error, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, nil, errors.Wrapf(err, "failed to reach redis at %s", cfg.Redis.Addr)
		}

		return cache.NewRedis(client, cfg.Redis.Prefix, cfg.Cache.TTL), client.Close, nil
	case config.CacheBackendMemory, "":
		m, err := cache.NewMemory(cfg.Cache.Size)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create memory cache")
		}

		return m, func() error { return nil }, nil
	default:
		return nil, nil, errors.Wrap(config.ErrUnknownCacheBackend, cfg.Cache.Backend)
	}
}

// Open connects and migrates the database and builds the authorization service on top of it.
func Open(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(conn); err != nil {
		return nil, err
	}

	backend, closeBackend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log.Info().Str("engine", cfg.DB.GormEngine).Str("cache", cfg.Cache.Backend).Msg("store and cache ready")

	return &Daemon{
		DB:      conn,
		Authz:   authz.NewService(conn, cache.New(backend), cfg.Authz),
		closers: []func() error{closeBackend},
	}, nil
}

// New opens the daemon, seeds it when enabled and prepares the web service.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	d, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Seed.Enabled {
		if _, err = Seed(ctx, d.DB, d.Authz, cfg); err != nil {
			_ = d.Close()

			return nil, err
		}
	}

	d.webService = web.New(cfg, d.DB, d.Authz)

	return d, nil
}

// Start runs the web service until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	if d.webService == nil {
		return errors.New("web service not initialized")
	}

	errc := make(chan error, 1)

	go func() {
		errc <- d.webService.Start()
	}()

	go d.webService.WaitShutdown()

	err := <-errc

	if cerr := d.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("failed to release resources")
	}

	return err
}

// Close releases the cache backend and the database connection.
func (d *Daemon) Close() error {
	var errList []error

	for _, c := range d.closers {
		if err := c(); err != nil {
			errList = append(errList, err)
		}
	}

	if sqlDB, err := d.DB.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			errList = append(errList, err)
		}
	}

	if len(errList) > 0 {
		return errors.Errorf("close: %v", errList)
	}

	return nil
}
