// Package taxonomy maps NCBI-style lineage strings to the single
// (tax_id, scientific_name) pair the archive accepts for MAG submission.
package taxonomy

import (
	"fmt"
	"strings"

	"github.com/ena-tools/magsub/internal/tabular"
)

// Rank levels, domain first, matching lineage positions 0..6.
var levels = []string{"domain", "phylum", "class", "order", "family", "genus", "species"}

// Two-character NCBI-style rank markers by lineage position.
var rankMarkers = []string{"d__", "p__", "c__", "o__", "f__", "g__", "s__"}

var knownDomains = map[string]bool{
	"Bacteria":  true,
	"Archaea":   true,
	"Eukaryota": true,
}

// Rank is the outcome of best-rank selection over a lineage.
type Rank struct {
	Level          string // "species".."domain"
	Classification string
	Domain         string
}

// unclassifiedPrefix marks one-element lineages that collapse to domain
// level.
const unclassifiedPrefix = "Unclassified "

// BestRank scans a lineage from species up to domain and returns the
// first non-empty entry. A single "Unclassified <Domain>" entry collapses
// to domain level. Domains outside Bacteria/Archaea/Eukaryota are a data
// error in the upstream classifier output.
func BestRank(lineage []string) (Rank, error) {
	if len(lineage) == 1 && strings.HasPrefix(lineage[0], unclassifiedPrefix) {
		domain := strings.TrimPrefix(lineage[0], unclassifiedPrefix)
		if !knownDomains[domain] {
			return Rank{}, fmt.Errorf("unknown domain %q in lineage", domain)
		}
		return Rank{Level: "domain", Classification: domain, Domain: domain}, nil
	}
	if len(lineage) != len(levels) {
		return Rank{}, fmt.Errorf("lineage has %d levels, want %d", len(lineage), len(levels))
	}

	domain := stripMarker(lineage[0], 0)
	if domain != "" && !knownDomains[domain] {
		return Rank{}, fmt.Errorf("unknown domain %q in lineage", domain)
	}
	for i := len(lineage) - 1; i >= 0; i-- {
		cls := stripMarker(lineage[i], i)
		if cls == "" {
			continue
		}
		return Rank{Level: levels[i], Classification: cls, Domain: domain}, nil
	}
	return Rank{}, fmt.Errorf("lineage is empty at every level")
}

func stripMarker(entry string, position int) string {
	entry = strings.TrimSpace(entry)
	if position < len(rankMarkers) {
		entry = strings.TrimPrefix(entry, rankMarkers[position])
	}
	return strings.TrimSpace(entry)
}

// Taxonomy sheet header variants.
const (
	majorityVoteIDColumn = "Genome ID"
	majorityVoteGTDB     = "GTDB classification"
	majorityVoteNCBI     = "Majority vote NCBI classification"
	twoColumnIDColumn    = "Bin_id"
	twoColumnNCBIColumn  = "NCBI_taxonomy"
)

// ReadLineages reads one or more NCBI taxonomy sheets and merges them
// into a bin id -> lineage map. Two header formats are accepted: the
// 3-column majority-vote format and the 2-column Bin_id/NCBI_taxonomy
// format. A bin appearing in more than one sheet keeps the first
// occurrence.
func ReadLineages(paths []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, path := range paths {
		sheet, err := tabular.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var idCol, taxCol string
		switch {
		case sheet.HasColumn(majorityVoteIDColumn) && sheet.HasColumn(majorityVoteNCBI):
			idCol, taxCol = majorityVoteIDColumn, majorityVoteNCBI
		case sheet.HasColumn(twoColumnIDColumn) && sheet.HasColumn(twoColumnNCBIColumn):
			idCol, taxCol = twoColumnIDColumn, twoColumnNCBIColumn
		default:
			return nil, fmt.Errorf("taxonomy file %s: header is neither the majority-vote format (%q, %q) nor the 2-column format (%q, %q)",
				path, majorityVoteIDColumn, majorityVoteNCBI, twoColumnIDColumn, twoColumnNCBIColumn)
		}
		for _, row := range sheet.Rows() {
			id := sheet.Get(row, idCol)
			if id == "" {
				continue
			}
			if _, ok := out[id]; ok {
				continue
			}
			out[id] = parseLineage(sheet.Get(row, taxCol))
		}
	}
	return out, nil
}

// parseLineage splits a semicolon-delimited lineage string into its rank
// entries. "Unclassified X" strings stay a single entry.
func parseLineage(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, unclassifiedPrefix) {
		return []string{s}
	}
	parts := strings.Split(s, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
