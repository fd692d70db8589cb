package coverage

import (
	"fmt"
	"strconv"

	"github.com/ena-tools/magsub/internal/tabular"
)

// ReadTable reads a two-column Bin_id/Coverage sheet. Every id in
// required must appear; extra rows are ignored.
func ReadTable(path string, required []string) (map[string]float64, error) {
	sheet, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := sheet.Require("Bin_id", "Coverage"); err != nil {
		return nil, fmt.Errorf("coverage file %s: %w", path, err)
	}
	out := map[string]float64{}
	for _, row := range sheet.Rows() {
		id := sheet.Get(row, "Bin_id")
		if id == "" {
			continue
		}
		v, err := strconv.ParseFloat(sheet.Get(row, "Coverage"), 64)
		if err != nil {
			return nil, fmt.Errorf("coverage file %s: bin %s: bad coverage: %w", path, id, err)
		}
		out[id] = v
	}
	var missing []string
	for _, id := range required {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("coverage file %s: missing bin(s) %v", path, missing)
	}
	return out, nil
}

// WriteTable writes a Bin_id/Coverage sheet reusable as tabular input in
// later runs. Values are formatted so a round-trip reproduces the floats
// bit for bit.
func WriteTable(path string, cov map[string]float64, ids []string) error {
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, strconv.FormatFloat(cov[id], 'g', -1, 64)})
	}
	return tabular.WriteFile(path, []string{"Bin_id", "Coverage"}, rows)
}
