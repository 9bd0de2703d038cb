package estimate

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoDeliveryLocation is returned by Run when the session has no delivery
// coordinates to estimate against.
var ErrNoDeliveryLocation = eris.New("estimate: no delivery location set")

// FatalError aborts a run: the product page could not be scraped, so there
// is nothing to estimate and the stored result is left untouched.
type FatalError struct {
	URL string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("estimate: scrap product %s: %v", e.URL, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err aborted a run.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Stage names one remote call of the enrichment pipeline.
type Stage string

const (
	StageScrapSeller Stage = "scrap_seller"
	StageRegistry    Stage = "lookup_registry"
	StageGeocode     Stage = "geocode"
	StageDistance    Stage = "estimate_distance"
)

// BranchError is the failure of one seller's pipeline. The orchestrator logs
// it and drops the seller; it never reaches Run's caller.
type BranchError struct {
	SellerID string
	Position int
	Stage    Stage
	Err      error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("estimate: seller %s (#%d) failed at %s: %v", e.SellerID, e.Position, e.Stage, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }
