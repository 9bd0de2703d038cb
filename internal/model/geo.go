package model

import (
	"math"

	"github.com/twpayne/go-geom"
)

// SRID of every coordinate handled by the API (WGS84).
const SRID = 4326

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lon float64 `json:"lon" yaml:"lon"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// Valid reports whether the coordinates are finite and within WGS84 bounds.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Point returns the coordinates as a go-geom point.
func (c Coordinates) Point() *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}).SetSRID(SRID)
}

// GeocodeRecord is a BAN (Base Adresse Nationale) address.
type GeocodeRecord struct {
	Address     string       `json:"address" yaml:"address"`
	City        string       `json:"city,omitempty" yaml:"city,omitempty"`
	PostCode    string       `json:"postcode,omitempty" yaml:"postcode,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}

// HasCoordinates reports whether the record carries a usable position.
func (g *GeocodeRecord) HasCoordinates() bool {
	return g != nil && g.Coordinates != nil && g.Coordinates.Valid()
}

// Location is the user's delivery location.
type Location = GeocodeRecord

// DistanceEstimate is the delivery effort between a reseller and the
// delivery location.
type DistanceEstimate struct {
	DistanceKm float64 `json:"distance" yaml:"distance_km"`
}
