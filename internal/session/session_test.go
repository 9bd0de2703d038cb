package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/store"
	"github.com/oxsirene/reseller-cli/pkg/oxsirene"
)

type mockIssuer struct {
	mock.Mock
}

func (m *mockIssuer) Token(ctx context.Context, cid string) (*oxsirene.AccessToken, error) {
	args := m.Called(ctx, cid)
	if t := args.Get(0); t != nil {
		return t.(*oxsirene.AccessToken), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestMachineID_CreatedOnceAndPersisted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := store.NewMemory()

	m := NewManager(kv, nil)
	id, err := m.MachineID(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	again, err := NewManager(kv, nil).MachineID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestMachineID_Concurrent(t *testing.T) {
	t.Parallel()
	m := NewManager(store.NewMemory(), nil)

	ids := make([]string, 20)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i], _ = m.MachineID(context.Background())
		}()
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()
	m := NewManager(store.NewMemory(), nil)

	machine, err := m.MachineID(context.Background())
	require.NoError(t, err)
	cid, err := m.CorrelationID(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cid.String(), machine+"-"))
}

func TestToken_RefreshesWhenMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := store.NewMemory()

	issuer := &mockIssuer{}
	issuer.On("Token", mock.Anything, mock.AnythingOfType("string")).Return(&oxsirene.AccessToken{Key: "k1"}, nil).Once()

	m := NewManager(kv, issuer)
	tok, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k1", tok)

	// Cached in memory and in the store.
	tok, err = m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "k1", tok)

	stored, found, err := store.GetJSON[AccessToken](ctx, kv, KeyAccessToken)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "k1", stored.Token)
	issuer.AssertExpectations(t)
}

func TestToken_ReusesStoredToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, store.SetJSON(ctx, kv, KeyAccessToken, AccessToken{Date: time.Now().Add(-time.Hour), Token: "old-but-valid"}, 0))

	issuer := &mockIssuer{}
	tok, err := NewManager(kv, issuer).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "old-but-valid", tok)
	issuer.AssertNotCalled(t, "Token", mock.Anything, mock.Anything)
}

func TestToken_RefreshesExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, store.SetJSON(ctx, kv, KeyAccessToken, AccessToken{Date: time.Now().Add(-25 * time.Hour), Token: "stale"}, 0))

	issuer := &mockIssuer{}
	issuer.On("Token", mock.Anything, mock.Anything).Return(&oxsirene.AccessToken{Key: "fresh"}, nil).Once()

	tok, err := NewManager(kv, issuer).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}

func TestToken_MaxAgeOption(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, store.SetJSON(ctx, kv, KeyAccessToken, AccessToken{Date: time.Now().Add(-2 * time.Hour), Token: "stale"}, 0))

	issuer := &mockIssuer{}
	issuer.On("Token", mock.Anything, mock.Anything).Return(&oxsirene.AccessToken{Key: "fresh"}, nil).Once()

	tok, err := NewManager(kv, issuer, WithTokenMaxAge(time.Hour)).Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}

func TestToken_IssuerError(t *testing.T) {
	t.Parallel()
	issuer := &mockIssuer{}
	issuer.On("Token", mock.Anything, mock.Anything).Return(nil, errors.New("api down"))

	_, err := NewManager(store.NewMemory(), issuer).Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh access token")
}

func TestToken_NoIssuer(t *testing.T) {
	t.Parallel()
	_, err := NewManager(store.NewMemory(), nil).Token(context.Background())
	assert.Error(t, err)
}

func TestRefreshToken_Forced(t *testing.T) {
	t.Parallel()
	issuer := &mockIssuer{}
	issuer.On("Token", mock.Anything, mock.Anything).Return(&oxsirene.AccessToken{Key: "a"}, nil).Once()
	issuer.On("Token", mock.Anything, mock.Anything).Return(&oxsirene.AccessToken{Key: "b"}, nil).Once()

	m := NewManager(store.NewMemory(), nil)
	m.SetIssuer(issuer)

	first, err := m.RefreshToken(context.Background())
	require.NoError(t, err)
	second, err := m.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", first.Token)
	assert.Equal(t, "b", second.Token)
}

func TestDeliveryLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewManager(store.NewMemory(), nil)

	loc, err := m.DeliveryLocation(ctx)
	require.NoError(t, err)
	assert.Nil(t, loc)

	err = m.SetDeliveryLocation(ctx, model.Location{Address: "no coords"})
	assert.Error(t, err)

	want := model.Location{Address: "1 place Bellecour 69002 Lyon", City: "Lyon", Coordinates: &model.Coordinates{Lon: 4.832, Lat: 45.757}}
	require.NoError(t, m.SetDeliveryLocation(ctx, want))

	s, err := m.Load(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.MachineID)
	require.NotNil(t, s.Delivery)
	assert.Equal(t, "Lyon", s.Delivery.City)

	c, ok := s.DeliveryCoordinates()
	assert.True(t, ok)
	assert.InDelta(t, 4.832, c.Lon, 1e-9)
}

func TestSession_NoDelivery(t *testing.T) {
	t.Parallel()
	_, ok := Session{}.DeliveryCoordinates()
	assert.False(t, ok)
}
