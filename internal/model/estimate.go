package model

import (
	"slices"
	"time"
)

// Slot places a seller in a run. Group keys the progress UI entry and
// Order is the fan-out order used to break distance ties. Both are the
// seller's index in the deduplicated ID list.
type Slot struct {
	Group int `json:"group" yaml:"group"`
	Order int `json:"order" yaml:"order"`
}

// SlotAt returns the slot for the i-th deduplicated seller.
func SlotAt(i int) Slot {
	return Slot{Group: i, Order: i}
}

// EnrichedSeller accumulates everything learned about one seller during a
// run. Every With* method returns a modified copy so concurrent branches
// never share state.
type EnrichedSeller struct {
	Context      ProductContext    `json:"context" yaml:"context"`
	Slot         Slot              `json:"slot" yaml:"slot"`
	Seller       SellerRecord      `json:"seller" yaml:"seller"`
	Registry     *RegistryRecord   `json:"registry,omitempty" yaml:"registry,omitempty"`
	Organization *Organization     `json:"organization,omitempty" yaml:"organization,omitempty"`
	Geocode      *GeocodeRecord    `json:"geocode,omitempty" yaml:"geocode,omitempty"`
	Estimate     *DistanceEstimate `json:"estimate,omitempty" yaml:"estimate,omitempty"`
}

// NewEnrichedSeller starts the accumulator for a scraped seller.
func NewEnrichedSeller(ctx ProductContext, slot Slot, seller SellerRecord) EnrichedSeller {
	return EnrichedSeller{Context: ctx, Slot: slot, Seller: seller}
}

// WithRegistry records the SIRENE answer and its authoritative organization.
func (e EnrichedSeller) WithRegistry(r RegistryRecord) EnrichedSeller {
	r.Organizations = slices.Clone(r.Organizations)
	e.Registry = &r
	e.Organization = r.Primary()
	return e
}

// WithGeocode records the BAN address of the seller.
func (e EnrichedSeller) WithGeocode(g GeocodeRecord) EnrichedSeller {
	if g.Coordinates != nil {
		c := *g.Coordinates
		g.Coordinates = &c
	}
	e.Geocode = &g
	return e
}

// WithEstimate records the delivery distance.
func (e EnrichedSeller) WithEstimate(d DistanceEstimate) EnrichedSeller {
	e.Estimate = &d
	return e
}

// Complete reports whether the seller has a distance estimate.
func (e EnrichedSeller) Complete() bool {
	return e.Estimate != nil
}

// DistanceKm returns the estimated distance, 0 when incomplete.
func (e EnrichedSeller) DistanceKm() float64 {
	if e.Estimate == nil {
		return 0
	}
	return e.Estimate.DistanceKm
}

// DisplayName picks the registry name, then the marketplace name, then "?".
func (e EnrichedSeller) DisplayName() string {
	if e.Organization != nil && !isBlank(e.Organization.Name) {
		return e.Organization.Name
	}
	if !isBlank(e.Seller.Name) {
		return e.Seller.Name
	}
	return "?"
}

// EstimateSet is the result of one run, sorted by ascending distance.
type EstimateSet struct {
	SourceURL     string           `json:"url" yaml:"url"`
	Product       ProductContext   `json:"product" yaml:"product"`
	Estimates     []EnrichedSeller `json:"estimates" yaml:"estimates"`
	CorrelationID string           `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at" yaml:"created_at"`
}

// Empty reports whether no reseller could be estimated.
func (s *EstimateSet) Empty() bool {
	return s == nil || len(s.Estimates) == 0
}

// DedupeSellerIDs collapses duplicate IDs, keeping first-seen order.
// Blank IDs are dropped.
func DedupeSellerIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if isBlank(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FilterComplete drops nil entries and entries without a distance estimate.
func FilterComplete(in []*EnrichedSeller) []EnrichedSeller {
	out := make([]EnrichedSeller, 0, len(in))
	for _, e := range in {
		if e == nil || !e.Complete() {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// SortByDistance sorts in place by ascending distance. Ties keep their
// relative order.
func SortByDistance(in []EnrichedSeller) {
	slices.SortStableFunc(in, func(a, b EnrichedSeller) int {
		switch {
		case a.DistanceKm() < b.DistanceKm():
			return -1
		case a.DistanceKm() > b.DistanceKm():
			return 1
		default:
			return 0
		}
	})
}
