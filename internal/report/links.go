package report

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/oxsirene/reseller-cli/internal/model"
)

const (
	pagesJaunesBase = "https://www.pagesjaunes.fr/recherche/"
	osmBase         = "https://www.openstreetmap.org/"
)

// PagesJaunesURL searches the directory for name in city.
func PagesJaunesURL(city, name string) string {
	return pagesJaunesBase + url.PathEscape(city) + "/" + url.PathEscape(name)
}

// OSMMarkerURL centers an OpenStreetMap view on c with a marker.
func OSMMarkerURL(c model.Coordinates) string {
	lat, lon := ftoa(c.Lat), ftoa(c.Lon)
	return fmt.Sprintf("%s?mlat=%s&mlon=%s#map=13/%s/%s", osmBase, lat, lon, lat, lon)
}

// OSMDirectionsURL routes by car from one point to another.
func OSMDirectionsURL(from, to model.Coordinates) string {
	return fmt.Sprintf("%sdirections?engine=fossgis_osrm_car&route=%s,%s;%s,%s",
		osmBase, ftoa(from.Lat), ftoa(from.Lon), ftoa(to.Lat), ftoa(to.Lon))
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
