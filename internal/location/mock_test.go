package location

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oxsirene/reseller-cli/internal/model"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) record(args mock.Arguments) (*model.GeocodeRecord, error) {
	if r := args.Get(0); r != nil {
		return r.(*model.GeocodeRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error) {
	return m.record(m.Called(ctx, cid, address))
}

func (m *mockAPI) ReverseGeocode(ctx context.Context, cid string, coords model.Coordinates) (*model.GeocodeRecord, error) {
	return m.record(m.Called(ctx, cid, coords))
}

func (m *mockAPI) LocateIP(ctx context.Context, cid, ip string) (*model.GeocodeRecord, error) {
	return m.record(m.Called(ctx, cid, ip))
}

func (m *mockAPI) PublicIP(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) SetDeliveryLocation(ctx context.Context, loc model.Location) error {
	return m.Called(ctx, loc).Error(0)
}
