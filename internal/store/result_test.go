package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxsirene/reseller-cli/internal/model"
)

func sampleSet(url string, distances ...float64) model.EstimateSet {
	product := model.ProductContext{URL: url, CorrelationID: "m-1", MarketPlaceID: "amazon", ProductName: "Perceuse"}
	set := model.EstimateSet{SourceURL: url, Product: product, CorrelationID: "m-1"}
	for i, d := range distances {
		e := model.NewEnrichedSeller(product, model.SlotAt(i), model.SellerRecord{SellerID: "S" + string(rune('A'+i))}).
			WithEstimate(model.DistanceEstimate{DistanceKm: d})
		set.Estimates = append(set.Estimates, e)
	}
	return set
}

func TestResultStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	rs := NewResultStore(NewMemory())

	got, err := rs.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, rs.Save(ctx, sampleSet("https://www.amazon.fr/dp/B01", 3.2, 7.5)))

	got, err = rs.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://www.amazon.fr/dp/B01", got.SourceURL)
	assert.Equal(t, "Perceuse", got.Product.ProductName)
	require.Len(t, got.Estimates, 2)
	assert.InDelta(t, 3.2, got.Estimates[0].DistanceKm(), 1e-9)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestResultStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	rs := NewResultStore(NewMemory())

	require.NoError(t, rs.Save(ctx, sampleSet("https://www.amazon.fr/dp/A", 1)))
	require.NoError(t, rs.Save(ctx, sampleSet("https://www.cdiscount.com/f-1.html", 2)))

	got, err := rs.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://www.cdiscount.com/f-1.html", got.SourceURL)
}

func TestResultStore_EmptySaveClears(t *testing.T) {
	ctx := context.Background()
	rs := NewResultStore(NewMemory())

	require.NoError(t, rs.Save(ctx, sampleSet("https://www.amazon.fr/dp/A", 1)))
	require.NoError(t, rs.Save(ctx, sampleSet("https://www.amazon.fr/dp/B")))

	got, err := rs.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultStore_ClearIgnoresURL(t *testing.T) {
	ctx := context.Background()
	rs := NewResultStore(NewMemory())

	require.NoError(t, rs.Save(ctx, sampleSet("https://www.amazon.fr/dp/A", 1)))
	require.NoError(t, rs.Clear(ctx, "https://www.amazon.fr/dp/other"))

	got, err := rs.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultStore_KeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	rs := NewResultStore(NewMemory())

	set := sampleSet("https://www.amazon.fr/dp/A", 1)
	set.CreatedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, rs.Save(ctx, set))

	got, err := rs.Load(ctx)
	require.NoError(t, err)
	assert.True(t, set.CreatedAt.Equal(got.CreatedAt))
}

func TestResultStore_CorruptSlot(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Set(ctx, LastEstimatesKey, []byte("{"), 0))

	_, err := NewResultStore(kv).Load(ctx)
	assert.Error(t, err)
}
