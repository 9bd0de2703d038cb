package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/oxsirene/reseller-cli/internal/model"
)

// JSON writes the set as indented JSON.
func JSON(w io.Writer, set *model.EstimateSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(set), "report: encode json")
}
