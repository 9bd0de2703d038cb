// Package session holds the per-installation state persisted in the
// key-value store: the machine ID, the API access token and the delivery
// location.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oxsirene/reseller-cli/internal/correlation"
	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/store"
	"github.com/oxsirene/reseller-cli/pkg/oxsirene"
)

// Store keys.
const (
	KeyMachineID   = "machine_id"
	KeyAccessToken = "access_token"
	KeyLocation    = "location"
)

// DefaultTokenMaxAge is how long an access token is reused.
const DefaultTokenMaxAge = 24 * time.Hour

// TokenIssuer issues fresh access tokens. oxsirene.Client satisfies it.
type TokenIssuer interface {
	Token(ctx context.Context, cid string) (*oxsirene.AccessToken, error)
}

// AccessToken is the persisted token with its issue date.
type AccessToken struct {
	Date  time.Time `json:"date"`
	Token string    `json:"token"`
}

// Expired reports whether the token is missing or older than maxAge.
func (t *AccessToken) Expired(now time.Time, maxAge time.Duration) bool {
	return t == nil || t.Token == "" || now.Sub(t.Date) > maxAge
}

// Session is the snapshot handed to an estimate run.
type Session struct {
	MachineID string
	Delivery  *model.Location
}

// DeliveryCoordinates returns the delivery point, if one is set.
func (s Session) DeliveryCoordinates() (model.Coordinates, bool) {
	if !s.Delivery.HasCoordinates() {
		return model.Coordinates{}, false
	}
	return *s.Delivery.Coordinates, true
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenMaxAge overrides DefaultTokenMaxAge.
func WithTokenMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// Manager reads and writes session state.
type Manager struct {
	kv     store.KV
	issuer TokenIssuer
	maxAge time.Duration
	now    func() time.Time

	idMu      sync.Mutex
	machineID string

	tokenMu sync.Mutex
	token   *AccessToken
}

// NewManager creates a Manager. issuer may be nil when no token is needed.
func NewManager(kv store.KV, issuer TokenIssuer, opts ...Option) *Manager {
	m := &Manager{kv: kv, issuer: issuer, maxAge: DefaultTokenMaxAge, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetIssuer sets the token issuer after construction. The API client and
// the Manager depend on each other, so one of them is wired late.
func (m *Manager) SetIssuer(issuer TokenIssuer) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	m.issuer = issuer
}

// MachineID returns the installation ID, creating it on first use.
func (m *Manager) MachineID(ctx context.Context) (string, error) {
	m.idMu.Lock()
	defer m.idMu.Unlock()

	if m.machineID != "" {
		return m.machineID, nil
	}
	id, found, err := store.GetJSON[string](ctx, m.kv, KeyMachineID)
	if err != nil {
		return "", eris.Wrap(err, "session: load machine id")
	}
	if !found || id == "" {
		id = correlation.NewMachineID()
		if err := store.SetJSON(ctx, m.kv, KeyMachineID, id, 0); err != nil {
			return "", eris.Wrap(err, "session: save machine id")
		}
		zap.L().Info("session: created machine id", zap.String("machine_id", id))
	}
	m.machineID = id
	return id, nil
}

// CorrelationID returns a fresh correlation ID for this installation.
func (m *Manager) CorrelationID(ctx context.Context) (correlation.ID, error) {
	id, err := m.MachineID(ctx)
	if err != nil {
		return "", err
	}
	return correlation.New(id), nil
}

// Token returns a valid access token, refreshing it when missing or older
// than the max age.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()

	if !m.token.Expired(m.now(), m.maxAge) {
		return m.token.Token, nil
	}
	stored, found, err := store.GetJSON[AccessToken](ctx, m.kv, KeyAccessToken)
	if err != nil {
		return "", eris.Wrap(err, "session: load access token")
	}
	if found && !stored.Expired(m.now(), m.maxAge) {
		m.token = &stored
		return stored.Token, nil
	}
	t, err := m.refreshLocked(ctx)
	if err != nil {
		return "", err
	}
	return t.Token, nil
}

// RefreshToken always issues and stores a new token.
func (m *Manager) RefreshToken(ctx context.Context) (*AccessToken, error) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) (*AccessToken, error) {
	if m.issuer == nil {
		return nil, eris.New("session: no token issuer configured")
	}
	cid, err := m.CorrelationID(ctx)
	if err != nil {
		return nil, err
	}
	issued, err := m.issuer.Token(ctx, cid.String())
	if err != nil {
		return nil, eris.Wrap(err, "session: refresh access token")
	}
	t := &AccessToken{Date: m.now().UTC(), Token: issued.Key}
	if err := store.SetJSON(ctx, m.kv, KeyAccessToken, t, 0); err != nil {
		return nil, eris.Wrap(err, "session: save access token")
	}
	m.token = t
	zap.L().Info("session: access token refreshed", zap.String("correlation_id", cid.String()))
	return t, nil
}

// DeliveryLocation returns the stored delivery location, nil when unset.
func (m *Manager) DeliveryLocation(ctx context.Context) (*model.Location, error) {
	loc, found, err := store.GetJSON[model.Location](ctx, m.kv, KeyLocation)
	if err != nil {
		return nil, eris.Wrap(err, "session: load location")
	}
	if !found {
		return nil, nil
	}
	return &loc, nil
}

// SetDeliveryLocation stores loc. It must carry coordinates.
func (m *Manager) SetDeliveryLocation(ctx context.Context, loc model.Location) error {
	if !loc.HasCoordinates() {
		return eris.New("session: delivery location has no coordinates")
	}
	return eris.Wrap(store.SetJSON(ctx, m.kv, KeyLocation, loc, 0), "session: save location")
}

// Load returns the snapshot used to configure a run.
func (m *Manager) Load(ctx context.Context) (Session, error) {
	id, err := m.MachineID(ctx)
	if err != nil {
		return Session{}, err
	}
	loc, err := m.DeliveryLocation(ctx)
	if err != nil {
		return Session{}, err
	}
	return Session{MachineID: id, Delivery: loc}, nil
}
