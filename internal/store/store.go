package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// KV is the key-value collaborator holding session data, cached API answers
// and the last estimate set. Get returns (nil, nil) for a missing or
// expired key. A zero ttl never expires.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Migrator is implemented by backends that need a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Open connects to the backend named by driver and migrates it.
func Open(ctx context.Context, driver, dsn string) (KV, error) {
	var (
		kv  KV
		err error
	)
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		kv, err = NewSQLite(dsn)
	case "postgres":
		kv, err = NewPostgres(ctx, dsn, nil)
	case "redis":
		kv, err = NewRedis(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if m, ok := kv.(Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			kv.Close() //nolint:errcheck
			return nil, err
		}
	}
	return kv, nil
}

// GetJSON decodes the value at key into a T. found is false when the key
// is absent.
func GetJSON[T any](ctx context.Context, kv KV, key string) (v T, found bool, err error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return v, false, err
	}
	if data == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, eris.Wrapf(err, "store: decode %s", key)
	}
	return v, true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, kv KV, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: encode %s", key)
	}
	return kv.Set(ctx, key, data, ttl)
}

func expiry(now time.Time, ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := now.Add(ttl)
	return &t
}
