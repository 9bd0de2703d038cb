package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// KeyPrefix namespaces cache entries in the shared store.
const KeyPrefix = "geocode:"

// Normalize lowercases address, strips diacritics and collapses whitespace.
func Normalize(address string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, address)
	if err != nil {
		folded = address
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// CacheKey returns the store key for address.
func CacheKey(address string) string {
	h := sha256.Sum256([]byte(Normalize(address)))
	return fmt.Sprintf("%s%x", KeyPrefix, h)
}

// checkCache returns nil on a miss. Read and decode failures count as misses.
func (g *Geocoder) checkCache(ctx context.Context, key string) *model.GeocodeRecord {
	if g.kv == nil {
		return nil
	}
	data, err := g.kv.Get(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache read failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}
	var r model.GeocodeRecord
	if err := json.Unmarshal(data, &r); err != nil {
		zap.L().Warn("geocode: cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	zap.L().Debug("geocode cache hit", zap.String("key", key[:min(len(key), len(KeyPrefix)+12)]))
	return &r
}

func (g *Geocoder) storeCache(ctx context.Context, key string, r *model.GeocodeRecord) {
	if g.kv == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		zap.L().Warn("geocode: cache encode failed", zap.Error(err))
		return
	}
	if err := g.kv.Set(ctx, key, data, g.ttl); err != nil {
		zap.L().Warn("geocode: cache write failed", zap.String("key", key), zap.Error(err))
	}
}
