package core

import (
	"context"
	"fmt"
	"io"

	"featureboard/internal/idgen"
	"featureboard/internal/infra/persistence/memory"
	"featureboard/internal/infra/persistence/postgres"
	"featureboard/internal/infra/persistence/redis"
	"featureboard/internal/infra/persistence/sqlite"
	"featureboard/pkg/domain"
)

// StorageDriver identifies a concrete store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // Redis server
)

// StorageOptions selects and configures the store backend.
type StorageOptions struct {
	Driver         StorageDriver
	SQLitePath     string
	PostgresDSN    string
	RedisURL       string
	RedisKeyPrefix string
	IDScheme       idgen.Scheme
}

// OpenStore constructs the store named by opts.Driver (memory when empty).
// Durable stores implement io.Closer; release them with CloseStore.
func OpenStore(ctx context.Context, opts StorageOptions, engine *domain.RulesEngine) (domain.Store, error) {
	ids, err := idgen.New(opts.IDScheme, "req-")
	if err != nil {
		return nil, err
	}
	memOpts := []memory.Option{memory.WithIDGenerator(ids)}
	driver := opts.Driver
	if driver == "" {
		driver = StorageMemory
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine, memOpts...), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, opts.SQLitePath, engine, memOpts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, opts.PostgresDSN, engine, memOpts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageRedis:
		store, err := redis.NewStore(ctx, opts.RedisURL, opts.RedisKeyPrefix, engine, memOpts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// CloseStore releases store resources when the store holds any.
func CloseStore(store domain.Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
