package stores

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

const localCacheTable = "local_record_cache"

const createLocalCacheTable = `CREATE TABLE IF NOT EXISTS local_record_cache (
	cache_key       TEXT PRIMARY KEY,
	cache_value     TEXT NOT NULL,
	datetime_update TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresLocalStore persists the cache in a single key/value table.
type PostgresLocalStore struct {
	db *goqu.Database
}

func NewPostgresLocalStore(db *goqu.Database) *PostgresLocalStore {
	return &PostgresLocalStore{db: db}
}

// EnsureSchema creates the cache table when it does not exist yet.
func (s *PostgresLocalStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createLocalCacheTable); err != nil {
		return fmt.Errorf("failed to create %s: %w", localCacheTable, err)
	}
	return nil
}

func (s *PostgresLocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	found, err := s.db.From(localCacheTable).
		Select("cache_value").
		Where(goqu.C("cache_key").Eq(key)).
		ScanValContext(ctx, &value)
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return value, found, nil
}

func (s *PostgresLocalStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Insert(localCacheTable).
		Rows(goqu.Record{
			"cache_key":       key,
			"cache_value":     value,
			"datetime_update": goqu.L("NOW()"),
		}).
		OnConflict(goqu.DoUpdate("cache_key", goqu.Record{
			"cache_value":     goqu.L("EXCLUDED.cache_value"),
			"datetime_update": goqu.L("NOW()"),
		})).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresLocalStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.Delete(localCacheTable).
		Where(goqu.C("cache_key").Eq(key)).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove cache key %s: %w", key, err)
	}
	return nil
}

func (s *PostgresLocalStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.From(localCacheTable).
		Select("cache_key").
		Order(goqu.C("cache_key").Asc()).
		ScanValsContext(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return keys, nil
}
