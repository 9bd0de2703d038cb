package report

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// FeatureCollection maps every located reseller to a Point feature.
// Resellers without coordinates are left out.
func FeatureCollection(set *model.EstimateSet) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	if set == nil {
		return fc
	}
	for i, e := range set.Estimates {
		if !e.Geocode.HasCoordinates() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(i + 1),
			Geometry: e.Geocode.Coordinates.Point(),
			Properties: map[string]any{
				"rank":        i + 1,
				"name":        e.DisplayName(),
				"seller_id":   e.Seller.SellerID,
				"address":     e.Geocode.Address,
				"distance_km": e.DistanceKm(),
			},
		})
	}
	return fc
}

// GeoJSON writes the set as a GeoJSON FeatureCollection.
func GeoJSON(w io.Writer, set *model.EstimateSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(FeatureCollection(set)), "report: encode geojson")
}
