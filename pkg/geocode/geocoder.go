// Package geocode caches BAN geocoding answers in a key-value store so
// sellers sharing an address cost one API call.
package geocode

import (
	"context"
	"time"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// DefaultTTL keeps an answer for a week.
const DefaultTTL = 7 * 24 * time.Hour

// Backend performs the uncached lookup. oxsirene.Client satisfies it.
type Backend interface {
	Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error)
}

// KV is the cache storage. store.KV satisfies it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Option configures the geocoder.
type Option func(*Geocoder)

// WithTTL sets how long answers are kept. ttl <= 0 keeps the default.
func WithTTL(ttl time.Duration) Option {
	return func(g *Geocoder) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// Geocoder decorates a Backend with a cache.
type Geocoder struct {
	backend Backend
	kv      KV
	ttl     time.Duration
}

// New wraps backend. A nil kv disables caching.
func New(backend Backend, kv KV, opts ...Option) *Geocoder {
	g := &Geocoder{backend: backend, kv: kv, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode returns the cached answer for address, or asks the backend and
// caches answers that carry coordinates.
func (g *Geocoder) Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error) {
	key := CacheKey(address)
	if r := g.checkCache(ctx, key); r != nil {
		return r, nil
	}

	r, err := g.backend.Geocode(ctx, cid, address)
	if err != nil {
		return nil, err
	}
	if r.HasCoordinates() {
		g.storeCache(ctx, key, r)
	}
	return r, nil
}
