package taxonomy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ena-tools/magsub/ena"
)

// fakeArchive serves canned suggestion lists keyed by query string.
type fakeArchive struct {
	suggestions map[string][]ena.Suggestion
	taxids      map[string]string
	queries     []string
}

func (f *fakeArchive) TaxonomySuggestions(_ context.Context, query string) ([]ena.Suggestion, error) {
	f.queries = append(f.queries, query)
	return f.suggestions[query], nil
}

func (f *fakeArchive) TaxidOfScientificName(_ context.Context, name string) (string, error) {
	return f.taxids[name], nil
}

func lineage(entries ...string) []string { return entries }

func TestBestRankDomainOnly(t *testing.T) {
	r, err := BestRank(lineage("d__Bacteria", "p__", "c__", "o__", "f__", "g__", "s__"))
	require.NoError(t, err)
	assert.Equal(t, "domain", r.Level)
	assert.Equal(t, "Bacteria", r.Classification)

	q, err := Query(r)
	require.NoError(t, err)
	assert.Equal(t, "uncultured bacterium", q)
}

func TestBestRankGenus(t *testing.T) {
	r, err := BestRank(lineage("d__Bacteria", "p__Pseudomonadota", "c__", "o__", "f__", "g__Escherichia", "s__"))
	require.NoError(t, err)
	assert.Equal(t, "genus", r.Level)
	assert.Equal(t, "Escherichia", r.Classification)
	assert.Equal(t, "Bacteria", r.Domain)

	q, err := Query(r)
	require.NoError(t, err)
	assert.Equal(t, "Escherichia sp.", q)
}

func TestBestRankUnclassified(t *testing.T) {
	r, err := BestRank(lineage("Unclassified Archaea"))
	require.NoError(t, err)
	assert.Equal(t, "domain", r.Level)
	assert.Equal(t, "Archaea", r.Classification)

	q, err := Query(r)
	require.NoError(t, err)
	assert.Equal(t, "uncultured archaeon", q)
}

func TestBestRankUnknownDomain(t *testing.T) {
	_, err := BestRank(lineage("d__Viruses", "p__", "c__", "o__", "f__", "g__", "s__"))
	assert.Error(t, err)

	_, err = BestRank(lineage("Unclassified Viruses"))
	assert.Error(t, err)
}

func TestQueryIntermediateRank(t *testing.T) {
	r, err := BestRank(lineage("d__Archaea", "p__Halobacteriota", "c__", "o__", "f__", "g__", "s__"))
	require.NoError(t, err)
	assert.Equal(t, "phylum", r.Level)

	q, err := Query(r)
	require.NoError(t, err)
	assert.Equal(t, "Halobacteriota archaeon", q)
}

func TestFilterGenus(t *testing.T) {
	r := Rank{Level: "genus", Classification: "Escherichia", Domain: "Bacteria"}
	kept := Filter(r, []ena.Suggestion{
		{TaxID: "561", ScientificName: "Escherichia sp."},
		{TaxID: "562", ScientificName: "Escherichia coli"},
		{TaxID: "1", ScientificName: "Candidatus Escherichia sp."},
		{TaxID: "2", ScientificName: "Shigella sp."},
	})
	require.Len(t, kept, 2)
	assert.Equal(t, "561", kept[0].TaxID)
	assert.Equal(t, "1", kept[1].TaxID)
}

func TestFilterSpeciesDiscardsSubspecies(t *testing.T) {
	r := Rank{Level: "species", Classification: "Escherichia coli", Domain: "Bacteria"}
	kept := Filter(r, []ena.Suggestion{
		{TaxID: "562", ScientificName: "Escherichia coli"},
		{TaxID: "83333", ScientificName: "Escherichia coli subsp. K12"},
		{TaxID: "90370", ScientificName: "Escherichia coli serovar Typhi"},
	})
	require.Len(t, kept, 1)
	assert.Equal(t, "562", kept[0].TaxID)
}

func TestFilterDomainFixedString(t *testing.T) {
	r := Rank{Level: "domain", Classification: "Bacteria", Domain: "Bacteria"}
	kept := Filter(r, []ena.Suggestion{
		{TaxID: "77133", ScientificName: "uncultured bacterium"},
		{TaxID: "2", ScientificName: "Bacteria"},
	})
	require.Len(t, kept, 1)
	assert.Equal(t, "uncultured bacterium", kept[0].ScientificName)
}

func TestFilterWholeWordDefeatsOffTarget(t *testing.T) {
	r := Rank{Level: "metagenome", Classification: "soil metagenome"}
	kept := Filter(r, []ena.Suggestion{
		{TaxID: "410658", ScientificName: "soil metagenome"},
		{TaxID: "9999", ScientificName: "subsoil metagenometric"},
	})
	require.Len(t, kept, 1)
	assert.Equal(t, "410658", kept[0].TaxID)
}

func TestResolveSingleSurvivor(t *testing.T) {
	arch := &fakeArchive{suggestions: map[string][]ena.Suggestion{
		"Escherichia sp.": {{TaxID: "1917441", ScientificName: "Escherichia sp."}},
	}}
	r := NewResolver(arch, zerolog.Nop(), false)

	got, err := r.Resolve(context.Background(), []string{"bin.1"},
		map[string][]string{"bin.1": lineage("d__Bacteria", "p__", "c__", "o__", "f__", "g__Escherichia", "s__")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "1917441", got["bin.1"].TaxID)
	assert.Equal(t, "Escherichia sp.", got["bin.1"].ScientificName)
	assert.Equal(t, []string{"Escherichia sp."}, arch.queries)
}

func TestResolveDomainOnlyLineage(t *testing.T) {
	arch := &fakeArchive{suggestions: map[string][]ena.Suggestion{
		"uncultured bacterium": {
			{TaxID: "77133", ScientificName: "uncultured bacterium"},
			{TaxID: "77133", ScientificName: "uncultured bacterium Adriatic"},
		},
	}}
	r := NewResolver(arch, zerolog.Nop(), false)

	got, err := r.Resolve(context.Background(), []string{"bin.1"},
		map[string][]string{"bin.1": lineage("d__Bacteria", "p__", "c__", "o__", "f__", "g__", "s__")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "77133", got["bin.1"].TaxID)
	assert.Equal(t, "uncultured bacterium", got["bin.1"].ScientificName)
}

func TestResolveCollectsIssues(t *testing.T) {
	arch := &fakeArchive{suggestions: map[string][]ena.Suggestion{
		// Ambiguous: two survivors.
		"Escherichia coli": {
			{TaxID: "562", ScientificName: "Escherichia coli"},
			{TaxID: "563", ScientificName: "Candidatus Escherichia coli"},
		},
		// Unresolvable: nothing survives.
		"Nonexistium sp.": {{TaxID: "7", ScientificName: "Somethingelsum sp."}},
	}}
	r := NewResolver(arch, zerolog.Nop(), false)

	_, err := r.Resolve(context.Background(), []string{"amb", "none", "missing"},
		map[string][]string{
			"amb":  lineage("d__Bacteria", "p__", "c__", "o__", "f__", "g__", "s__Escherichia coli"),
			"none": lineage("d__Bacteria", "p__", "c__", "o__", "f__", "g__Nonexistium", "s__"),
		}, nil)

	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved))
	require.Len(t, unresolved.Issues, 3)

	byBin := map[string]Issue{}
	for _, is := range unresolved.Issues {
		byBin[is.BinID] = is
	}
	// The ambiguous bin reports the raw, unfiltered suggestion list.
	assert.Len(t, byBin["amb"].Suggestions, 2)
	assert.Equal(t, "genus", byBin["none"].Level)
	// Bins absent from every lineage source report N/A.
	assert.Equal(t, "N/A", byBin["missing"].Level)
	assert.Equal(t, "N/A", byBin["missing"].Classification)
	assert.Contains(t, unresolved.Error(), "amb")
}

func TestResolveManualOverride(t *testing.T) {
	arch := &fakeArchive{taxids: map[string]string{"Methanoculleus bourgensis": "83986"}}
	r := NewResolver(arch, zerolog.Nop(), false)

	got, err := r.Resolve(context.Background(), []string{"bin.1"}, nil,
		map[string]Manual{"bin.1": {TaxID: "83986", ScientificName: "Methanoculleus bourgensis"}})
	require.NoError(t, err)
	assert.Equal(t, "83986", got["bin.1"].TaxID)
	// No suggestion query happened.
	assert.Empty(t, arch.queries)
}

func TestResolveManualOverrideMismatch(t *testing.T) {
	arch := &fakeArchive{taxids: map[string]string{"Methanoculleus bourgensis": "83986"}}
	r := NewResolver(arch, zerolog.Nop(), false)

	_, err := r.Resolve(context.Background(), []string{"bin.1"}, nil,
		map[string]Manual{"bin.1": {TaxID: "1", ScientificName: "Methanoculleus bourgensis"}})
	assert.Error(t, err)

	_, err = r.Resolve(context.Background(), []string{"bin.1"}, nil,
		map[string]Manual{"bin.1": {TaxID: "1", ScientificName: "Unknownium"}})
	assert.Error(t, err)
}

func TestReadLineagesBothFormats(t *testing.T) {
	dir := t.TempDir()

	gtdb := filepath.Join(dir, "majority.tsv")
	require.NoError(t, os.WriteFile(gtdb, []byte(
		"Genome ID\tGTDB classification\tMajority vote NCBI classification\n"+
			"bin.1\td__Bacteria;...\td__Bacteria;p__;c__;o__;f__;g__Escherichia;s__\n"), 0o644))

	twocol := filepath.Join(dir, "simple.tsv")
	require.NoError(t, os.WriteFile(twocol, []byte(
		"Bin_id\tNCBI_taxonomy\n"+
			"bin.2\tUnclassified Bacteria\n"), 0o644))

	got, err := ReadLineages([]string{gtdb, twocol})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "g__Escherichia", got["bin.1"][5])
	assert.Equal(t, []string{"Unclassified Bacteria"}, got["bin.2"])
}

func TestReadLineagesBadHeader(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.tsv")
	require.NoError(t, os.WriteFile(bad, []byte("id\ttax\nbin.1\tx\n"), 0o644))
	_, err := ReadLineages([]string{bad})
	assert.Error(t, err)
}

func TestReadManual(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manual.tsv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Bin_id\tTax_id\tScientific_name\nbin.1\t83986\tMethanoculleus bourgensis\n"), 0o644))

	got, err := ReadManual(path)
	require.NoError(t, err)
	assert.Equal(t, Manual{TaxID: "83986", ScientificName: "Methanoculleus bourgensis"}, got["bin.1"])
}
