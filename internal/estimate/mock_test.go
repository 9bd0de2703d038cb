package estimate

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/progress"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ScrapProduct(ctx context.Context, cid, pageURL string) (*model.ProductListing, error) {
	args := m.Called(ctx, cid, pageURL)
	if v := args.Get(0); v != nil {
		return v.(*model.ProductListing), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) ScrapSeller(ctx context.Context, cid, marketPlaceID, sellerID string) (*model.SellerRecord, error) {
	args := m.Called(ctx, cid, marketPlaceID, sellerID)
	if v := args.Get(0); v != nil {
		return v.(*model.SellerRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) LookupRegistry(ctx context.Context, cid, legalCode string) (*model.RegistryRecord, error) {
	args := m.Called(ctx, cid, legalCode)
	if v := args.Get(0); v != nil {
		return v.(*model.RegistryRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error) {
	args := m.Called(ctx, cid, address)
	if v := args.Get(0); v != nil {
		return v.(*model.GeocodeRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) EstimateDistance(ctx context.Context, cid string, origin, dest model.Coordinates) (*model.DistanceEstimate, error) {
	args := m.Called(ctx, cid, origin, dest)
	if v := args.Get(0); v != nil {
		return v.(*model.DistanceEstimate), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockResults struct {
	mock.Mock
}

func (m *mockResults) Save(ctx context.Context, set model.EstimateSet) error {
	return m.Called(ctx, set).Error(0)
}

func (m *mockResults) Load(ctx context.Context) (*model.EstimateSet, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*model.EstimateSet), args.Error(1)
	}
	return nil, args.Error(1)
}

type countingRecorder struct {
	mu      sync.Mutex
	runs    map[string]int
	sellers map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{runs: map[string]int{}, sellers: map[string]int{}}
}

func (r *countingRecorder) RunFinished(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[outcome]++
}

func (r *countingRecorder) SellerFinished(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sellers[outcome]++
}

type eventLog struct {
	mu     sync.Mutex
	events []progress.Event
}

func (l *eventLog) Emit(_ context.Context, e progress.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []progress.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]progress.Event(nil), l.events...)
}
