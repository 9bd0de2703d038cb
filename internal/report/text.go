// Package report renders estimate sets for the terminal and for other tools.
package report

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// NoResellerMessage is printed when a run found nothing to rank.
const NoResellerMessage = "No reseller was found in France."

// Text writes one block per reseller, closest first. delivery may be nil,
// in which case the directions link is omitted.
func Text(w io.Writer, set *model.EstimateSet, delivery *model.Coordinates) error {
	ew := &errWriter{w: w}
	if set != nil && set.Product.ProductName != "" {
		ew.printf("%s\n%s\n\n", set.Product.ProductName, set.SourceURL)
	}
	if set.Empty() {
		ew.printf("%s\n", NoResellerMessage)
		return eris.Wrap(ew.err, "report: write text")
	}

	for i, e := range set.Estimates {
		name := e.DisplayName()
		ew.printf("%d. %s\n", i+1, name)
		if g := e.Geocode; g != nil {
			ew.printf("   %s\n", g.Address)
			ew.printf("   Pages Jaunes: %s\n", PagesJaunesURL(g.City, name))
			if g.HasCoordinates() {
				ew.printf("   Map: %s\n", OSMMarkerURL(*g.Coordinates))
			}
		}
		ew.printf("   Distance: %.2f km\n", e.DistanceKm())
		if delivery != nil && e.Geocode.HasCoordinates() {
			ew.printf("   Route: %s\n", OSMDirectionsURL(*e.Geocode.Coordinates, *delivery))
		}
		ew.printf("\n")
	}
	return eris.Wrap(ew.err, "report: write text")
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
