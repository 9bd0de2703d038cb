package report

import (
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// YAML writes the set as YAML.
func YAML(w io.Writer, set *model.EstimateSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(set); err != nil {
		return eris.Wrap(err, "report: encode yaml")
	}
	return eris.Wrap(enc.Close(), "report: encode yaml")
}

// Format names an output format.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatYAML    Format = "yaml"
)

// Write renders set in format.
func Write(w io.Writer, format Format, set *model.EstimateSet, delivery *model.Coordinates) error {
	switch format {
	case FormatText, "":
		return Text(w, set, delivery)
	case FormatJSON:
		return JSON(w, set)
	case FormatGeoJSON:
		return GeoJSON(w, set)
	case FormatYAML:
		return YAML(w, set)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}
