package taxonomy

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/ena-tools/magsub/ena"
)

// Archive is the slice of the archive client the resolver needs.
type Archive interface {
	TaxonomySuggestions(ctx context.Context, query string) ([]ena.Suggestion, error)
	TaxidOfScientificName(ctx context.Context, name string) (string, error)
}

// Assignment binds one bin to an archive-accepted taxonomy entry.
type Assignment struct {
	BinID          string
	Level          string
	Classification string
	TaxID          string
	ScientificName string
}

// Issue records a bin whose lineage resolved to zero or multiple
// candidates. Suggestions holds the raw, unfiltered archive response for
// human triage.
type Issue struct {
	BinID          string
	Level          string
	Classification string
	Suggestions    []ena.Suggestion
}

// Manual is a per-bin taxonomy override.
type Manual struct {
	TaxID          string
	ScientificName string
}

// Resolver maps bin lineages to archive taxonomy entries.
type Resolver struct {
	archive  Archive
	logger   zerolog.Logger
	progress bool
}

// NewResolver creates a resolver over the given archive client.
func NewResolver(archive Archive, logger zerolog.Logger, progress bool) *Resolver {
	return &Resolver{archive: archive, logger: logger, progress: progress}
}

// Per-domain fixed query strings and generic epithets.
var (
	domainQueries = map[string]string{
		"Bacteria":  "uncultured bacterium",
		"Archaea":   "uncultured archaeon",
		"Eukaryota": "uncultured eukaryote",
	}
	domainEpithets = map[string]string{
		"Bacteria":  "bacterium",
		"Archaea":   "archaeon",
		"Eukaryota": "eukaryote",
	}
)

// Query forms the suggestion query string for a rank.
func Query(r Rank) (string, error) {
	switch r.Level {
	case "species", "metagenome":
		return r.Classification, nil
	case "genus":
		return r.Classification + " sp.", nil
	case "domain":
		q, ok := domainQueries[r.Classification]
		if !ok {
			return "", fmt.Errorf("no fixed query for domain %q", r.Classification)
		}
		return q, nil
	case "phylum", "class", "order", "family":
		ep, ok := domainEpithets[r.Domain]
		if !ok {
			return "", fmt.Errorf("no generic epithet for domain %q", r.Domain)
		}
		return r.Classification + " " + ep, nil
	default:
		return "", fmt.Errorf("unknown rank level %q", r.Level)
	}
}

// Filter applies the rank-specific whitelist to raw suggestions. Every
// kept candidate contains the classification as a whole word, except at
// domain level where the accepted name is the fixed generic string and
// never contains the domain itself; the per-rank patterns defeat
// off-target archive responses.
func Filter(r Rank, suggestions []ena.Suggestion) []ena.Suggestion {
	wholeWord := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(r.Classification) + `\b`)

	var rankPattern *regexp.Regexp
	switch r.Level {
	case "genus":
		rankPattern = regexp.MustCompile(`^(Candidatus )?` + regexp.QuoteMeta(r.Classification) + ` sp\.$`)
	case "species":
		rankPattern = regexp.MustCompile(`^(Candidatus )?` + regexp.QuoteMeta(r.Classification) + `$`)
	case "phylum", "class", "order", "family":
		rankPattern = regexp.MustCompile(`^(Candidatus )?` + regexp.QuoteMeta(r.Classification) + ` (bacterium|archaeon|eukaryote)$`)
	}

	var kept []ena.Suggestion
	for _, s := range suggestions {
		name := s.ScientificName
		if r.Level != "domain" && !wholeWord.MatchString(name) {
			continue
		}
		switch r.Level {
		case "domain":
			if name != domainQueries[r.Classification] {
				continue
			}
		case "species":
			if !rankPattern.MatchString(name) {
				continue
			}
			if strings.Contains(name, "subsp.") || strings.Contains(name, "sv.") ||
				strings.Contains(name, "serovar") || strings.Contains(name, "strain") {
				continue
			}
		case "metagenome":
			// Whole-word containment only.
		default:
			if rankPattern != nil && !rankPattern.MatchString(name) {
				continue
			}
		}
		kept = append(kept, s)
	}
	return kept
}

// Resolve maps every bin in binIDs to an assignment. Bins with a manual
// override are validated against the archive instead of queried; a
// mismatched or unknown override is a hard error. Bins missing from the
// lineage map, and bins with zero or ambiguous filtered suggestions, are
// collected into an UnresolvedError listing every problematic bin.
func (r *Resolver) Resolve(ctx context.Context, binIDs []string, lineages map[string][]string, manual map[string]Manual) (map[string]Assignment, error) {
	assignments := make(map[string]Assignment, len(binIDs))
	var issues []Issue

	var bar *progressbar.ProgressBar
	if r.progress {
		bar = progressbar.Default(int64(len(binIDs)), "resolving taxonomy")
	}

	for _, id := range binIDs {
		if bar != nil {
			bar.Add(1)
		}

		if m, ok := manual[id]; ok {
			taxid, err := r.archive.TaxidOfScientificName(ctx, m.ScientificName)
			if err != nil {
				return nil, err
			}
			if taxid == "" {
				return nil, fmt.Errorf("manual taxonomy for bin %s: scientific name %q is unknown to the archive", id, m.ScientificName)
			}
			if taxid != m.TaxID {
				return nil, fmt.Errorf("manual taxonomy for bin %s: tax id %s does not match archive tax id %s for %q",
					id, m.TaxID, taxid, m.ScientificName)
			}
			assignments[id] = Assignment{BinID: id, Level: "manual", Classification: m.ScientificName,
				TaxID: m.TaxID, ScientificName: m.ScientificName}
			continue
		}

		lineage, ok := lineages[id]
		if !ok || len(lineage) == 0 {
			issues = append(issues, Issue{BinID: id, Level: "N/A", Classification: "N/A"})
			continue
		}
		rank, err := BestRank(lineage)
		if err != nil {
			return nil, fmt.Errorf("bin %s: %w", id, err)
		}
		query, err := Query(rank)
		if err != nil {
			return nil, fmt.Errorf("bin %s: %w", id, err)
		}

		suggestions, err := r.archive.TaxonomySuggestions(ctx, query)
		if err != nil {
			return nil, err
		}
		kept := Filter(rank, suggestions)
		if len(kept) != 1 {
			issues = append(issues, Issue{BinID: id, Level: rank.Level,
				Classification: rank.Classification, Suggestions: suggestions})
			continue
		}
		r.logger.Debug().Str("bin", id).Str("query", query).
			Str("taxid", kept[0].TaxID).Str("name", kept[0].ScientificName).
			Msg("taxonomy resolved")
		assignments[id] = Assignment{BinID: id, Level: rank.Level,
			Classification: rank.Classification,
			TaxID:          kept[0].TaxID, ScientificName: kept[0].ScientificName}
	}

	if len(issues) > 0 {
		return nil, &UnresolvedError{Issues: issues}
	}
	return assignments, nil
}

// UnresolvedError consolidates every bin that failed taxonomy
// resolution. The submission aborts before any network submission
// traffic when this fires.
type UnresolvedError struct {
	Issues []Issue
}

func (e *UnresolvedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "taxonomy resolution failed for %d bin(s):\n", len(e.Issues))
	for _, issue := range e.Issues {
		fmt.Fprintf(&b, "  bin %s (level %s, classification %s): ", issue.BinID, issue.Level, issue.Classification)
		if len(issue.Suggestions) == 0 {
			b.WriteString("no archive suggestions survived filtering\n")
			continue
		}
		fmt.Fprintf(&b, "%d raw suggestion(s):\n", len(issue.Suggestions))
		for _, s := range issue.Suggestions {
			fmt.Fprintf(&b, "    taxId=%s scientificName=%q displayName=%q\n", s.TaxID, s.ScientificName, s.DisplayName)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
