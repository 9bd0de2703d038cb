package estimate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/progress"
)

// API is the subset of oxsirene.Client an estimate run calls.
type API interface {
	ScrapProduct(ctx context.Context, cid, pageURL string) (*model.ProductListing, error)
	ScrapSeller(ctx context.Context, cid, marketPlaceID, sellerID string) (*model.SellerRecord, error)
	LookupRegistry(ctx context.Context, cid, legalCode string) (*model.RegistryRecord, error)
	EstimateDistance(ctx context.Context, cid string, origin, dest model.Coordinates) (*model.DistanceEstimate, error)
}

// Geocoder resolves a seller address. Both oxsirene.Client and the cached
// geocode.Geocoder satisfy it.
type Geocoder interface {
	Geocode(ctx context.Context, cid, address string) (*model.GeocodeRecord, error)
}

// Enricher runs the four sequential lookups for one seller. A stage whose
// input is missing is skipped and the seller passes through unchanged.
type Enricher struct {
	api      API
	geocoder Geocoder
	delivery model.Coordinates
	tracker  *progress.Tracker
}

// NewEnricher binds the lookups of one run to its delivery point and
// progress tracker. A nil tracker discards progress.
func NewEnricher(api API, geocoder Geocoder, delivery model.Coordinates, tracker *progress.Tracker) *Enricher {
	if tracker == nil {
		tracker = progress.NewTracker("", nil)
	}
	return &Enricher{api: api, geocoder: geocoder, delivery: delivery, tracker: tracker}
}

// Enrich scrapes sellerID and walks it through the registry, geocoding and
// distance stages. Any remote failure is returned as a *BranchError.
func (e *Enricher) Enrich(ctx context.Context, pc model.ProductContext, sellerID string, slot model.Slot) (model.EnrichedSeller, error) {
	log := zap.L().With(
		zap.String("correlation_id", pc.CorrelationID),
		zap.String("seller_id", sellerID),
		zap.Int("position", slot.Group),
	)
	fail := func(stage Stage, err error) (model.EnrichedSeller, error) {
		return model.EnrichedSeller{}, &BranchError{SellerID: sellerID, Position: slot.Group, Stage: stage, Err: err}
	}
	parent := progress.Parent(slot.Group)

	rec, err := e.api.ScrapSeller(ctx, pc.CorrelationID, pc.MarketPlaceID, sellerID)
	if err != nil {
		return fail(StageScrapSeller, err)
	}
	if rec.SellerID == "" {
		rec.SellerID = sellerID
	}
	acc := model.NewEnrichedSeller(pc, slot, *rec)

	code := rec.LegalCode()
	if code == "" {
		log.Debug("estimate: no legal code, skipping registry")
		e.tracker.Advance(ctx, 0, fmt.Sprintf("Seller %s is not located in France.", rec.SellerID), parent)
		return acc, nil
	}
	e.tracker.Advance(ctx, progress.StepWeight, fmt.Sprintf("Collecting seller %s (%s - Sirene).", rec.SellerID, code), parent)

	reg, err := e.api.LookupRegistry(ctx, pc.CorrelationID, code)
	if err != nil {
		return fail(StageRegistry, err)
	}
	if reg == nil {
		log.Debug("estimate: empty registry answer, skipping geocode")
		return acc, nil
	}
	acc = acc.WithRegistry(*reg)
	if acc.Organization == nil {
		log.Debug("estimate: no organization, skipping geocode")
		return acc, nil
	}
	address := strings.TrimSpace(acc.Organization.Address)
	if address == "" {
		log.Debug("estimate: organization has no address, skipping geocode")
		return acc, nil
	}
	e.tracker.Advance(ctx, progress.StepWeight, fmt.Sprintf("Locating %s (BAN).", address), parent)

	ban, err := e.geocoder.Geocode(ctx, pc.CorrelationID, address)
	if err != nil {
		return fail(StageGeocode, err)
	}
	if ban == nil {
		return acc, nil
	}
	acc = acc.WithGeocode(*ban)
	if ban.Address != "" {
		e.tracker.Advance(ctx, 0, ban.Address+".", parent)
		e.tracker.Advance(ctx, progress.StepWeight, "Estimating delivery.", parent)
	}
	if !ban.HasCoordinates() {
		log.Debug("estimate: address has no coordinates, skipping distance")
		return acc, nil
	}

	dist, err := e.api.EstimateDistance(ctx, pc.CorrelationID, e.delivery, *ban.Coordinates)
	if err != nil {
		return fail(StageDistance, err)
	}
	if dist == nil {
		return acc, nil
	}
	acc = acc.WithEstimate(*dist)
	e.tracker.Advance(ctx, progress.StepWeight, fmt.Sprintf("Delivery distance: %.2f km.", dist.DistanceKm), parent)
	return acc, nil
}
