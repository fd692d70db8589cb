// Package bins handles discovery of bin FASTA files and the quality and
// MAG metadata sheets that accompany them. A bin is identified by the
// basename of its FASTA file with the extension stripped.
package bins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ena-tools/magsub/internal/tabular"
	"github.com/ena-tools/magsub/vocab"
)

// FastaExtensions are the recognised FASTA suffixes, with or without .gz.
var FastaExtensions = []string{".fasta", ".fa", ".fna"}

// Quality holds the completeness and contamination of one bin.
type Quality struct {
	Completeness  float64
	Contamination float64
}

// MAG holds the promotion metadata of one MAG.
type MAG struct {
	QualityCategory string
	FlatfilePath    string
	UnlocalisedPath string
	ChromosomesPath string
}

// IsFasta reports whether path carries a recognised FASTA extension.
func IsFasta(path string) bool {
	name := strings.ToLower(path)
	name = strings.TrimSuffix(name, ".gz")
	for _, ext := range FastaExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ID derives the bin id from a FASTA path.
func ID(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, ".gz")
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Files maps bin ids to FASTA paths for every FASTA file in dir.
func Files(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading bins directory: %w", err)
	}
	files := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !IsFasta(e.Name()) {
			continue
		}
		files[ID(e.Name())] = filepath.Join(dir, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no FASTA files in bins directory %s", dir)
	}
	return files, nil
}

// ReadQuality reads a quality sheet with the exact required header
// columns "Bin Id", "Completeness" and "Contamination"; additional
// columns are tolerated.
func ReadQuality(path string) (map[string]Quality, error) {
	sheet, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := sheet.Require("Bin Id", "Completeness", "Contamination"); err != nil {
		return nil, fmt.Errorf("quality file %s: %w", path, err)
	}
	out := map[string]Quality{}
	for _, row := range sheet.Rows() {
		id := sheet.Get(row, "Bin Id")
		if id == "" {
			continue
		}
		comp, err := strconv.ParseFloat(sheet.Get(row, "Completeness"), 64)
		if err != nil {
			return nil, fmt.Errorf("quality file %s: bin %s: bad completeness: %w", path, id, err)
		}
		cont, err := strconv.ParseFloat(sheet.Get(row, "Contamination"), 64)
		if err != nil {
			return nil, fmt.Errorf("quality file %s: bin %s: bad contamination: %w", path, id, err)
		}
		out[id] = Quality{Completeness: comp, Contamination: cont}
	}
	return out, nil
}

// Filter returns the sorted ids of bins meeting the quality thresholds:
// completeness >= minCompleteness and contamination <= maxContamination.
// A bin exactly at a threshold passes.
func Filter(quality map[string]Quality, minCompleteness, maxContamination float64) []string {
	var ids []string
	for id, q := range quality {
		if q.Completeness >= minCompleteness && q.Contamination <= maxContamination {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ReadMAGMetadata reads the MAG metadata sheet. Required columns:
// Bin_id, Quality_category, Flatfile_path, Unlocalised_path,
// Chromosomes_path.
func ReadMAGMetadata(path string) (map[string]MAG, error) {
	sheet, err := tabular.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := sheet.Require("Bin_id", "Quality_category", "Flatfile_path", "Unlocalised_path", "Chromosomes_path"); err != nil {
		return nil, fmt.Errorf("MAG metadata %s: %w", path, err)
	}
	out := map[string]MAG{}
	for _, row := range sheet.Rows() {
		id := sheet.Get(row, "Bin_id")
		if id == "" {
			continue
		}
		m := MAG{
			QualityCategory: sheet.Get(row, "Quality_category"),
			FlatfilePath:    cleanPath(sheet.Get(row, "Flatfile_path")),
			UnlocalisedPath: cleanPath(sheet.Get(row, "Unlocalised_path")),
			ChromosomesPath: cleanPath(sheet.Get(row, "Chromosomes_path")),
		}
		if !vocab.IsMAGQualityCategory(m.QualityCategory) {
			return nil, fmt.Errorf("MAG metadata %s: bin %s: quality category %q not in {finished, high, medium}",
				path, id, m.QualityCategory)
		}
		out[id] = m
	}
	return out, nil
}

// cleanPath normalizes the "no file" spellings used in hand-authored
// sheets.
func cleanPath(s string) string {
	switch strings.ToLower(s) {
	case "", "na", "n/a", "none", "-":
		return ""
	}
	return s
}

// SortedIDs returns the sorted key set of any bin-keyed map.
func SortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
