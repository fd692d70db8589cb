package taxonomy

import (
	"fmt"

	"github.com/ena-tools/magsub/internal/tabular"
)

// ReadManual reads a manual taxonomy override sheet with columns
// Bin_id, Tax_id and Scientific_name.
func ReadManual(path string) (map[string]Manual, error) {
	sheet, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := sheet.Require("Bin_id", "Tax_id", "Scientific_name"); err != nil {
		return nil, fmt.Errorf("manual taxonomy %s: %w", path, err)
	}
	out := map[string]Manual{}
	for _, row := range sheet.Rows() {
		id := sheet.Get(row, "Bin_id")
		if id == "" {
			continue
		}
		m := Manual{
			TaxID:          sheet.Get(row, "Tax_id"),
			ScientificName: sheet.Get(row, "Scientific_name"),
		}
		if m.TaxID == "" || m.ScientificName == "" {
			return nil, fmt.Errorf("manual taxonomy %s: bin %s: Tax_id and Scientific_name are both required", path, id)
		}
		out[id] = m
	}
	return out, nil
}
