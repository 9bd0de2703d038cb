package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// LastEstimatesKey holds the single most recent estimate set.
const LastEstimatesKey = "estimates_last"

// ResultStore keeps the most recent non-empty estimate set. It has one slot:
// every Save replaces whatever was there, for any URL.
type ResultStore struct {
	kv KV
}

// NewResultStore wraps kv.
func NewResultStore(kv KV) *ResultStore {
	return &ResultStore{kv: kv}
}

// Save persists set. An empty set clears the slot instead.
func (s *ResultStore) Save(ctx context.Context, set model.EstimateSet) error {
	if set.Empty() {
		return s.Clear(ctx, set.SourceURL)
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	return eris.Wrap(SetJSON(ctx, s.kv, LastEstimatesKey, set, 0), "store: save estimates")
}

// Clear empties the slot. sourceURL is informational: the slot is cleared
// whichever URL it held.
func (s *ResultStore) Clear(ctx context.Context, sourceURL string) error {
	return eris.Wrapf(s.kv.Delete(ctx, LastEstimatesKey), "store: clear estimates for %s", sourceURL)
}

// Load returns the stored set, or nil when the slot is empty.
func (s *ResultStore) Load(ctx context.Context) (*model.EstimateSet, error) {
	set, found, err := GetJSON[model.EstimateSet](ctx, s.kv, LastEstimatesKey)
	if err != nil {
		return nil, eris.Wrap(err, "store: load estimates")
	}
	if !found {
		return nil, nil
	}
	return &set, nil
}
