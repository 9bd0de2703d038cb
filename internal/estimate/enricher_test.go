package estimate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/progress"
	"github.com/oxsirene/reseller-cli/pkg/oxsirene"
)

var (
	paris = model.Coordinates{Lon: 2.3522, Lat: 48.8566}
	lyon  = model.Coordinates{Lon: 4.8357, Lat: 45.7640}
)

func testContext() model.ProductContext {
	return model.ProductContext{
		URL:           "https://www.amazon.fr/dp/B000",
		CorrelationID: "m-1-abc",
		MarketPlaceID: "amazon",
		ProductName:   "Perceuse",
	}
}

// expectSeller wires the mock so that sellerID goes through every stage and
// ends km away from the delivery point. It returns the ScrapSeller call so
// callers can delay the branch.
func expectSeller(api *mockAPI, sellerID, siret, address string, coords model.Coordinates, km float64) *mock.Call {
	call := api.On("ScrapSeller", mock.Anything, mock.Anything, "amazon", sellerID).
		Return(&model.SellerRecord{SellerID: sellerID, Siret: siret}, nil).Once()
	api.On("LookupRegistry", mock.Anything, mock.Anything, siret).
		Return(&model.RegistryRecord{Organizations: []model.Organization{{Name: "Org " + sellerID, Address: address}}}, nil).Once()
	api.On("Geocode", mock.Anything, mock.Anything, address).
		Return(&model.GeocodeRecord{Address: address, Coordinates: &coords}, nil).Once()
	api.On("EstimateDistance", mock.Anything, mock.Anything, paris, coords).
		Return(&model.DistanceEstimate{DistanceKm: km}, nil).Once()
	return call
}

func TestEnrich_AllStages(t *testing.T) {
	api := &mockAPI{}
	expectSeller(api, "S1", "12345678900011", "1 rue de la Paix Lyon", lyon, 465.2)
	log := &eventLog{}

	e := NewEnricher(api, api, paris, progress.NewTracker("m-1-abc", log))
	res, err := e.Enrich(context.Background(), testContext(), "S1", model.SlotAt(3))
	require.NoError(t, err)

	assert.True(t, res.Complete())
	assert.InDelta(t, 465.2, res.DistanceKm(), 1e-9)
	assert.Equal(t, "Org S1", res.DisplayName())
	assert.Equal(t, model.SlotAt(3), res.Slot)
	api.AssertExpectations(t)

	var labels []string
	for _, ev := range log.all() {
		require.NotNil(t, ev.ParentGroupID)
		assert.Equal(t, 3, *ev.ParentGroupID)
		labels = append(labels, ev.Label)
	}
	assert.Equal(t, []string{
		"Collecting seller S1 (12345678900011 - Sirene).",
		"Locating 1 rue de la Paix Lyon (BAN).",
		"1 rue de la Paix Lyon.",
		"Estimating delivery.",
		"Delivery distance: 465.20 km.",
	}, labels)
}

func TestEnrich_NoLegalCodeSkipsRemainingStages(t *testing.T) {
	api := &mockAPI{}
	api.On("ScrapSeller", mock.Anything, mock.Anything, "amazon", "S1").
		Return(&model.SellerRecord{SellerID: "S1", Name: "Shop"}, nil)
	log := &eventLog{}

	e := NewEnricher(api, api, paris, progress.NewTracker("cid", log))
	res, err := e.Enrich(context.Background(), testContext(), "S1", model.SlotAt(0))
	require.NoError(t, err)

	assert.False(t, res.Complete())
	assert.Nil(t, res.Registry)
	api.AssertNotCalled(t, "LookupRegistry", mock.Anything, mock.Anything, mock.Anything)

	events := log.all()
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].Amount)
	assert.Contains(t, events[0].Label, "not located in France")
}

func TestEnrich_SkipRules(t *testing.T) {
	tests := []struct {
		name     string
		registry *model.RegistryRecord
		geocode  *model.GeocodeRecord
		wantGeo  bool
	}{
		{
			name:     "no organizations",
			registry: &model.RegistryRecord{},
		},
		{
			name:     "organization without address",
			registry: &model.RegistryRecord{Organizations: []model.Organization{{Name: "Org"}}},
		},
		{
			name:     "address without coordinates",
			registry: &model.RegistryRecord{Organizations: []model.Organization{{Name: "Org", Address: "nowhere"}}},
			geocode:  &model.GeocodeRecord{Address: "nowhere"},
			wantGeo:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			api.On("ScrapSeller", mock.Anything, mock.Anything, "amazon", "S1").
				Return(&model.SellerRecord{SellerID: "S1", Siren: "123456789"}, nil)
			api.On("LookupRegistry", mock.Anything, mock.Anything, "123456789").Return(tt.registry, nil)
			if tt.geocode != nil {
				api.On("Geocode", mock.Anything, mock.Anything, "nowhere").Return(tt.geocode, nil)
			}

			e := NewEnricher(api, api, paris, nil)
			res, err := e.Enrich(context.Background(), testContext(), "S1", model.SlotAt(0))
			require.NoError(t, err)

			assert.False(t, res.Complete())
			assert.NotNil(t, res.Registry)
			assert.Equal(t, tt.wantGeo, res.Geocode != nil)
			api.AssertNotCalled(t, "EstimateDistance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			api.AssertExpectations(t)
		})
	}
}

func TestEnrich_ZeroDistanceIsAnEstimate(t *testing.T) {
	api := &mockAPI{}
	expectSeller(api, "S1", "12345678900011", "Place de l'Hôtel de Ville Paris", paris, 0)

	res, err := NewEnricher(api, api, paris, nil).Enrich(context.Background(), testContext(), "S1", model.SlotAt(0))
	require.NoError(t, err)
	assert.True(t, res.Complete())
	assert.Zero(t, res.DistanceKm())
}

func TestEnrich_FillsMissingSellerID(t *testing.T) {
	api := &mockAPI{}
	api.On("ScrapSeller", mock.Anything, mock.Anything, "amazon", "S9").
		Return(&model.SellerRecord{}, nil)

	res, err := NewEnricher(api, api, paris, nil).Enrich(context.Background(), testContext(), "S9", model.SlotAt(0))
	require.NoError(t, err)
	assert.Equal(t, "S9", res.Seller.SellerID)
}

func TestEnrich_StageFailures(t *testing.T) {
	boom := &oxsirene.StatusError{Operation: "x", StatusCode: 500}

	tests := []struct {
		name  string
		setup func(api *mockAPI)
		stage Stage
	}{
		{
			name: "scrap seller",
			setup: func(api *mockAPI) {
				api.On("ScrapSeller", mock.Anything, mock.Anything, mock.Anything, "S1").Return(nil, boom)
			},
			stage: StageScrapSeller,
		},
		{
			name: "registry",
			setup: func(api *mockAPI) {
				api.On("ScrapSeller", mock.Anything, mock.Anything, mock.Anything, "S1").
					Return(&model.SellerRecord{SellerID: "S1", Siret: "1"}, nil)
				api.On("LookupRegistry", mock.Anything, mock.Anything, "1").Return(nil, boom)
			},
			stage: StageRegistry,
		},
		{
			name: "geocode",
			setup: func(api *mockAPI) {
				api.On("ScrapSeller", mock.Anything, mock.Anything, mock.Anything, "S1").
					Return(&model.SellerRecord{SellerID: "S1", Siret: "1"}, nil)
				api.On("LookupRegistry", mock.Anything, mock.Anything, "1").
					Return(&model.RegistryRecord{Organizations: []model.Organization{{Address: "a"}}}, nil)
				api.On("Geocode", mock.Anything, mock.Anything, "a").Return(nil, boom)
			},
			stage: StageGeocode,
		},
		{
			name: "distance",
			setup: func(api *mockAPI) {
				api.On("ScrapSeller", mock.Anything, mock.Anything, mock.Anything, "S1").
					Return(&model.SellerRecord{SellerID: "S1", Siret: "1"}, nil)
				api.On("LookupRegistry", mock.Anything, mock.Anything, "1").
					Return(&model.RegistryRecord{Organizations: []model.Organization{{Address: "a"}}}, nil)
				api.On("Geocode", mock.Anything, mock.Anything, "a").
					Return(&model.GeocodeRecord{Address: "a", Coordinates: &lyon}, nil)
				api.On("EstimateDistance", mock.Anything, mock.Anything, paris, lyon).Return(nil, boom)
			},
			stage: StageDistance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			tt.setup(api)

			_, err := NewEnricher(api, api, paris, nil).Enrich(context.Background(), testContext(), "S1", model.SlotAt(2))
			require.Error(t, err)

			var be *BranchError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tt.stage, be.Stage)
			assert.Equal(t, "S1", be.SellerID)
			assert.Equal(t, 2, be.Position)
			assert.ErrorIs(t, err, boom)
			assert.False(t, IsFatal(err))
		})
	}
}
