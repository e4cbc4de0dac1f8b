package server

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/plantdash/plantdash/internal/config"
	"github.com/plantdash/plantdash/internal/storage"
)

// OpenSessionStore opens the key-value store selected by SESSION_STORE.
// The returned function closes it.
func OpenSessionStore(ctx context.Context, cfg *config.Config, db *gorm.DB, zlog zerolog.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Sessions.Store {
	case config.StoreSQLite:
		return storage.NewGormStore(db), noop, nil

	case config.StorePostgres:
		store, err := storage.NewPostgresStore(ctx, cfg.Sessions.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return storage.NewRedisStore(rdb, cfg.Sessions.TTL), rdb.Close, nil

	case config.StoreMemory:
		zlog.Warn().Msg("Using in-memory session store - sessions are lost on restart and invisible to the worker")
		return storage.NewMemoryStore(), noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Sessions.Store)
	}
}
