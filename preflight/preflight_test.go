package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/plan"
)

// fakeArchive answers remote lookups from fixed maps. Unlisted aliases
// and titles are absent.
type fakeArchive struct {
	studies      map[string]bool
	sampleAccs   map[string]bool
	sampleAlias  map[string]string
	sampleTitles map[string]string
	runAliases   map[string]string
	taxids       map[string]string
}

func (f *fakeArchive) StudyExists(_ context.Context, study string) (bool, error) {
	return f.studies[study], nil
}

func (f *fakeArchive) SampleAccessionExists(_ context.Context, accession string) (bool, error) {
	return f.sampleAccs[accession], nil
}

func (f *fakeArchive) SampleAliasAccession(_ context.Context, _, alias string) (string, error) {
	return f.sampleAlias[alias], nil
}

func (f *fakeArchive) SampleTitleAccession(_ context.Context, _, title string) (string, error) {
	return f.sampleTitles[title], nil
}

func (f *fakeArchive) RunAliasAccession(_ context.Context, _, alias string) (string, error) {
	return f.runAliases[alias], nil
}

func (f *fakeArchive) TaxidOfScientificName(_ context.Context, name string) (string, error) {
	return f.taxids[name], nil
}

func emptyArchive() *fakeArchive {
	return &fakeArchive{
		studies:    map[string]bool{"PRJEB1": true},
		sampleAccs: map[string]bool{"SAMEA1": true},
		taxids:     map[string]string{"soil metagenome": "410658"},
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// binFixture lays out a bins directory with two fastas, a matching
// quality table and a matching two-column taxonomy table.
func binFixture(t *testing.T) (dir, quality, tax string) {
	t.Helper()
	root := t.TempDir()
	dir = filepath.Join(root, "bins")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, dir, "bin1.fasta", ">c1\nACGT\n")
	writeFile(t, dir, "bin2.fasta", ">c2\nACGT\n")
	quality = writeFile(t, root, "quality.tsv",
		"Bin Id\tCompleteness\tContamination\nbin1\t95.0\t2.0\nbin2\t80.0\t4.0\n")
	tax = writeFile(t, root, "taxonomy.tsv",
		"Bin_id\tNCBI_taxonomy\nbin1\td__Bacteria\nbin2\td__Bacteria\n")
	return dir, quality, tax
}

func mustPlan(t *testing.T, targets ...plan.Target) plan.Plan {
	t.Helper()
	m := make(map[plan.Target]bool)
	for _, target := range targets {
		m[target] = true
	}
	p, err := plan.New(m)
	require.NoError(t, err)
	return p
}

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func runValidator(t *testing.T, cfg *config.Config, archive Archive, p plan.Plan) error {
	t.Helper()
	v := New(cfg, archive, p, false, zerolog.Nop())
	return v.Run(context.Background())
}

func failures(t *testing.T, err error) []Failure {
	t.Helper()
	var perr *Error
	require.ErrorAs(t, err, &perr)
	return perr.Failures
}

func TestValidDate(t *testing.T) {
	for _, ok := range []string{"2023", "2023-03", "2023-03-15", "2023-03-15T10:30", "2023-03-15T10:30:05"} {
		assert.True(t, ValidDate(ok), ok)
	}
	for _, bad := range []string{"2023/03", "15-03-2023", "2023-13", "yesterday", ""} {
		assert.False(t, ValidDate(bad), bad)
	}
}

func TestIsFastq(t *testing.T) {
	for _, ok := range []string{"a.fastq", "a.fq", "a.fastq.gz", "a.fq.gz"} {
		assert.True(t, IsFastq(ok), ok)
	}
	for _, bad := range []string{"a.fasta", "a.txt.gz", "a.gz"} {
		assert.False(t, IsFastq(bad), bad)
	}
}

func TestSamplesPass(t *testing.T) {
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
new_samples:
  - title: S1
    collection_date: "2023-03"
    location: France
  - title: S2
    collection_date: "2023"
    location: Germany
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Samples))
	assert.NoError(t, err)
}

func TestSampleProblemsAccumulate(t *testing.T) {
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
new_samples:
  - title: S1
    collection_date: "2023/03"
    location: Atlantis
  - title: S1
    collection_date: "2023"
    location: France
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Samples))
	fs := failures(t, err)
	require.Len(t, fs, 3)
	details := err.Error()
	assert.Contains(t, details, "2023/03")
	assert.Contains(t, details, "Atlantis")
	assert.Contains(t, details, "duplicate sample title")
}

func TestSampleTitleCollidesRemotely(t *testing.T) {
	archive := emptyArchive()
	archive.sampleTitles = map[string]string{"S1": "SAMEA111"}
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
new_samples:
  - title: S1
    collection_date: "2023"
    location: France
`)
	err := runValidator(t, cfg, archive, mustPlan(t, plan.Samples))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "SAMEA111")
}

func TestStudyAbsent(t *testing.T) {
	cfg := parseConfig(t, `
study: PRJEB404
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
new_samples:
  - title: S1
    collection_date: "2023"
    location: France
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Samples))
	fs := failures(t, err)
	require.NotEmpty(t, fs)
	assert.Equal(t, "study", fs[0].Check)
}

func TestReadsChecks(t *testing.T) {
	dir := t.TempDir()
	fq := writeFile(t, dir, "r1.fastq.gz", "@r\nACGT\n+\nIIII\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
single_reads:
  - name: run1
    platform: ILLUMINA
    instrument: Illumina MiSeq
    library_source: METAGENOMIC
    library_selection: RANDOM
    library_strategy: WGS
    related_sample_accession: SAMEA1
    fastq_file: `+fq+`
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Reads))
	assert.NoError(t, err)
}

func TestReadsVocabularyAndFileFailures(t *testing.T) {
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
single_reads:
  - name: run1
    platform: ILLUMINA
    instrument: Sequelizer 3000
    library_source: METAGENOMIC
    library_selection: RANDOM
    library_strategy: WGS
    related_sample_accession: SAMEA1
    fastq_file: /no/such/reads.txt
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Reads))
	fs := failures(t, err)
	require.Len(t, fs, 3)
	details := err.Error()
	assert.Contains(t, details, "Sequelizer 3000")
	assert.Contains(t, details, "recognised fastq extension")
	assert.Contains(t, details, "not readable")
}

func TestReadsRunAliasCollision(t *testing.T) {
	archive := emptyArchive()
	archive.runAliases = map[string]string{"run1": "ERR1"}
	dir := t.TempDir()
	fq := writeFile(t, dir, "r.fq", "@r\nACGT\n+\nIIII\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
single_reads:
  - name: run1
    platform: ILLUMINA
    instrument: Illumina MiSeq
    library_source: METAGENOMIC
    library_selection: RANDOM
    library_strategy: WGS
    related_sample_accession: SAMEA1
    fastq_file: `+fq+`
`)
	err := runValidator(t, cfg, archive, mustPlan(t, plan.Reads))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "ERR1")
}

func TestAssemblyChecks(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "asm.fasta", ">c1\nACGT\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
assembly:
  name: coasm1
  software: metaSPAdes
  collection_date: "2023-03"
  location: France
  fasta_file: `+fasta+`
  coverage: "20.5"
  run_accessions: [ERR1]
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Assembly))
	assert.NoError(t, err)
}

func TestAssemblyNameTooLong(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "asm.fasta", ">c1\nACGT\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
assembly:
  name: an_extremely_long_assembly_name
  software: metaSPAdes
  collection_date: "2023-03"
  location: France
  fasta_file: `+fasta+`
  coverage: "20.5"
  run_accessions: [ERR1]
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Assembly))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "31 characters")
	assert.Contains(t, fs[0].Detail, "20-character limit")
}

func TestAssemblyNameLimitMentionsTimestamp(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "asm.fasta", ">c1\nACGT\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
assembly:
  name: an_extremely_long_assembly_name
  software: metaSPAdes
  collection_date: "2023-03"
  location: France
  fasta_file: `+fasta+`
  coverage: "20.5"
  run_accessions: [ERR1]
`)
	v := New(cfg, emptyArchive(), mustPlan(t, plan.Assembly), true, zerolog.Nop())
	fs := failures(t, v.Run(context.Background()))
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "20-character limit")
	assert.Contains(t, fs[0].Detail, "timestamp prefix")
}

func TestAssemblyTaxidMismatch(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "asm.fasta", ">c1\nACGT\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "999"
metagenome_scientific_name: soil metagenome
assembly:
  name: coasm1
  software: metaSPAdes
  collection_date: "2023-03"
  location: France
  fasta_file: `+fasta+`
  coverage: "20.5"
  run_accessions: [ERR1]
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Assembly))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "410658")
}

func TestBinsPass(t *testing.T) {
	dir, quality, tax := binFixture(t)
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  binning_software: metabat2
  completeness_software: checkm
  coverage_file: /dev/null
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	assert.NoError(t, err)
}

func TestBinMissingFromQuality(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bins")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, dir, "binA.fasta", ">c\nACGT\n")
	writeFile(t, dir, "binB.fasta", ">c\nACGT\n")
	quality := writeFile(t, root, "quality.tsv",
		"Bin Id\tCompleteness\tContamination\nbinA\t95.0\t2.0\n")
	tax := writeFile(t, root, "taxonomy.tsv",
		"Bin_id\tNCBI_taxonomy\nbinA\td__Bacteria\nbinB\td__Bacteria\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  coverage_file: /dev/null
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "binB", fs[0].Subject)
	assert.Contains(t, fs[0].Detail, "no quality entry")
}

func TestBinThresholdFractionRejected(t *testing.T) {
	dir, quality, tax := binFixture(t)
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  min_completeness: "0.5"
  coverage_file: /dev/null
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "min_completeness", fs[0].Subject)
}

func TestBinContaminationExceeds100(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bins")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, dir, "bin1.fasta", ">c\nACGT\n")
	quality := writeFile(t, root, "quality.tsv",
		"Bin Id\tCompleteness\tContamination\nbin1\t95.0\t140.0\n")
	tax := writeFile(t, root, "taxonomy.tsv",
		"Bin_id\tNCBI_taxonomy\nbin1\td__Bacteria\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  coverage_file: /dev/null
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "exceeds 100")
}

func TestMAGUnlocalisedWithoutChromosomes(t *testing.T) {
	dir, quality, tax := binFixture(t)
	root := filepath.Dir(quality)
	unloc := writeFile(t, root, "bin1_unloc.txt", "c1\n")
	meta := writeFile(t, root, "mags.tsv",
		"Bin_id\tQuality_category\tFlatfile_path\tUnlocalised_path\tChromosomes_path\n"+
			"bin1\tmedium\t\t"+unloc+"\t\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  coverage_file: /dev/null
mags:
  metadata_file: `+meta+`
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins, plan.MAGs))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "Chromosomes_path")
}

func TestMAGMetadataNamesUnknownBin(t *testing.T) {
	dir, quality, tax := binFixture(t)
	root := filepath.Dir(quality)
	flat := writeFile(t, root, "bin9.embl.gz", "stub")
	meta := writeFile(t, root, "mags.tsv",
		"Bin_id\tQuality_category\tFlatfile_path\tUnlocalised_path\tChromosomes_path\n"+
			"bin9\tfinished\t"+flat+"\t\t\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  coverage_file: /dev/null
mags:
  metadata_file: `+meta+`
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins, plan.MAGs))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "bin9", fs[0].Subject)
	assert.Contains(t, fs[0].Detail, "no fasta file")
}

func TestReferencedSampleAccessionUnknown(t *testing.T) {
	dir := t.TempDir()
	fq := writeFile(t, dir, "r1.fastq.gz", "@r\nACGT\n+\nIIII\n")
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
single_reads:
  - name: run1
    platform: ILLUMINA
    instrument: Illumina MiSeq
    library_source: METAGENOMIC
    library_selection: RANDOM
    library_strategy: WGS
    related_sample_accession: SAMEA404
    fastq_file: `+fq+`
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Reads))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, "SAMEA404", fs[0].Subject)
	assert.Contains(t, fs[0].Detail, "not found")
}

func TestSampleAccessionListChecked(t *testing.T) {
	archive := emptyArchive()
	archive.sampleAccs["SAMEA2"] = true
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
sample_accessions: [SAMEA1, SAMEA2, SAMEA999]
assembly:
  name: coasm1
  software: metaSPAdes
  collection_date: "2023-03"
  location: France
  coverage: "20.5"
  run_accessions: [ERR1]
`)
	err := runValidator(t, cfg, archive, mustPlan(t, plan.Assembly))
	fs := failures(t, err)
	found := false
	for _, f := range fs {
		if f.Subject == "SAMEA999" {
			found = true
			assert.Contains(t, f.Detail, "not found")
		}
		assert.NotEqual(t, "SAMEA1", f.Subject)
		assert.NotEqual(t, "SAMEA2", f.Subject)
	}
	assert.True(t, found, "unknown accession must be reported")
}

func TestLocalChecksReportBeforeRemote(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bins")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeFile(t, dir, "bin1.fasta", ">c\nACGT\n")
	quality := writeFile(t, root, "quality.tsv",
		"Bin Id\tCompleteness\tContamination\nbin1\t95.0\t140.0\n")
	tax := writeFile(t, root, "taxonomy.tsv",
		"Bin_id\tNCBI_taxonomy\nbin1\td__Bacteria\n")
	cfg := parseConfig(t, `
study: PRJEB404
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  coverage_file: /dev/null
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	fs := failures(t, err)
	require.Len(t, fs, 2)
	assert.Equal(t, "bins", fs[0].Check)
	assert.Equal(t, "study", fs[1].Check)
}

func TestCoverageSourceExclusive(t *testing.T) {
	dir, quality, tax := binFixture(t)
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bam_files: [/data/a.bam]
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
  coverage_file: /dev/null
`)
	err := runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	fs := failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "exactly one source")

	cfg = parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
bins:
  directory: `+dir+`
  quality_file: `+quality+`
  ncbi_taxonomy_files: [`+tax+`]
`)
	err = runValidator(t, cfg, emptyArchive(), mustPlan(t, plan.Bins))
	fs = failures(t, err)
	require.Len(t, fs, 1)
	assert.Contains(t, fs[0].Detail, "no coverage source")
}

func TestArchiveErrorIsFatal(t *testing.T) {
	cfg := parseConfig(t, `
study: PRJEB1
metagenome_taxid: "410658"
metagenome_scientific_name: soil metagenome
new_samples:
  - title: S1
    collection_date: "2023"
    location: France
`)
	v := New(cfg, &failingArchive{}, mustPlan(t, plan.Samples), false, zerolog.Nop())
	err := v.Run(context.Background())
	require.Error(t, err)
	var perr *Error
	assert.False(t, errors.As(err, &perr), "transport errors must not be folded into failures")
}

type failingArchive struct{}

func (failingArchive) StudyExists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingArchive) SampleAccessionExists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingArchive) SampleAliasAccession(context.Context, string, string) (string, error) {
	return "", errors.New("connection refused")
}
func (failingArchive) SampleTitleAccession(context.Context, string, string) (string, error) {
	return "", errors.New("connection refused")
}
func (failingArchive) RunAliasAccession(context.Context, string, string) (string, error) {
	return "", errors.New("connection refused")
}
func (failingArchive) TaxidOfScientificName(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}
