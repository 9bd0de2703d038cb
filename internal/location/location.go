// Package location resolves the user's delivery location from an address,
// coordinates or the caller's IP address.
package location

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// API is the subset of oxsirene.Client used here.
type API interface {
	Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error)
	ReverseGeocode(ctx context.Context, cid string, coords model.Coordinates) (*model.GeocodeRecord, error)
	LocateIP(ctx context.Context, cid, ip string) (*model.GeocodeRecord, error)
	PublicIP(ctx context.Context) (string, error)
}

// Saver persists the resolved location. session.Manager satisfies it.
type Saver interface {
	SetDeliveryLocation(ctx context.Context, loc model.Location) error
}

// Locator turns user input into a delivery location.
type Locator struct {
	api   API
	saver Saver
}

// New creates a Locator. saver may be nil to skip persistence.
func New(api API, saver Saver) *Locator {
	return &Locator{api: api, saver: saver}
}

// FromAddress geocodes address through the BAN.
func (l *Locator) FromAddress(ctx context.Context, cid, address string) (*model.Location, error) {
	r, err := l.api.Geocode(ctx, cid, address)
	if err != nil {
		return nil, eris.Wrap(err, "location: geocode address")
	}
	if !r.HasCoordinates() {
		return nil, eris.Errorf("location: address %q not found", address)
	}
	return r, nil
}

// FromCoordinates finds the BAN address closest to coords.
func (l *Locator) FromCoordinates(ctx context.Context, cid string, coords model.Coordinates) (*model.Location, error) {
	if !coords.Valid() {
		return nil, eris.Errorf("location: invalid coordinates %v,%v", coords.Lon, coords.Lat)
	}
	r, err := l.api.ReverseGeocode(ctx, cid, coords)
	if err != nil {
		return nil, eris.Wrap(err, "location: reverse geocode")
	}
	if r.Coordinates == nil {
		c := coords
		r.Coordinates = &c
	}
	return r, nil
}

// FromIP geolocates ip, or the caller when ip is empty. When the API cannot
// place the caller, the public IP echo service supplies an address and the
// lookup is tried once more with it.
func (l *Locator) FromIP(ctx context.Context, cid, ip string) (*model.Location, error) {
	ip = strings.TrimSpace(ip)
	r, err := l.api.LocateIP(ctx, cid, ip)
	if err != nil {
		if ip != "" {
			return nil, eris.Wrapf(err, "location: locate ip %s", ip)
		}
		zap.L().Warn("location: api could not locate caller, asking ip echo service",
			zap.String("correlation_id", cid), zap.Error(err))
		public, echoErr := l.api.PublicIP(ctx)
		if echoErr != nil {
			return nil, eris.Wrap(echoErr, "location: public ip")
		}
		return l.FromIP(ctx, cid, public)
	}
	if !r.HasCoordinates() {
		return nil, eris.New("location: ip lookup returned no coordinates")
	}
	return l.FromCoordinates(ctx, cid, *r.Coordinates)
}

// Resolve locates address, or the caller's IP when address is blank, and
// stores the result as the delivery location.
func (l *Locator) Resolve(ctx context.Context, cid, address string) (*model.Location, error) {
	var (
		loc *model.Location
		err error
	)
	if strings.TrimSpace(address) == "" {
		loc, err = l.FromIP(ctx, cid, "")
	} else {
		loc, err = l.FromAddress(ctx, cid, address)
	}
	if err != nil {
		return nil, err
	}
	if l.saver != nil {
		if err := l.saver.SetDeliveryLocation(ctx, *loc); err != nil {
			return nil, err
		}
	}
	zap.L().Info("location: delivery location set",
		zap.String("correlation_id", cid), zap.String("address", loc.Address))
	return loc, nil
}
