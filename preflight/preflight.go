// Package preflight validates a submission end to end before any
// artifact leaves the machine. Checks run in a fixed order and
// accumulate, so one pass surfaces every problem at once.
package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ena-tools/magsub/bins"
	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/plan"
	"github.com/ena-tools/magsub/taxonomy"
	"github.com/ena-tools/magsub/vocab"
)

// The uploader prefixes assembly names with "webin-genome-" and a
// sample accession when building archive-side aliases, which are capped
// at 50 characters. TimestampLen covers the "HHMM_" prefix added when
// timestamping is on.
const (
	MaxAssemblyNameLen = 50 - len("webin-genome-XXX_SAMEA________")
	TimestampLen       = 5
)

// datePatterns are the accepted collection date layouts, full timestamp
// down to bare year.
var datePatterns = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// fastqExtensions accepted for read files, with or without .gz.
var fastqExtensions = []string{".fastq", ".fq"}

// Archive is the read-side archive surface the validator queries.
type Archive interface {
	StudyExists(ctx context.Context, study string) (bool, error)
	SampleAccessionExists(ctx context.Context, accession string) (bool, error)
	SampleAliasAccession(ctx context.Context, study, alias string) (string, error)
	SampleTitleAccession(ctx context.Context, study, title string) (string, error)
	RunAliasAccession(ctx context.Context, study, alias string) (string, error)
	TaxidOfScientificName(ctx context.Context, name string) (string, error)
}

// Failure is one violated invariant.
type Failure struct {
	Check   string
	Subject string
	Detail  string
}

func (f Failure) String() string {
	if f.Subject == "" {
		return fmt.Sprintf("[%s] %s", f.Check, f.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Check, f.Subject, f.Detail)
}

// Error aggregates every failure of a validation pass.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d preflight check(s) failed:\n", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("  " + f.String() + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Validator runs the preflight checks for one submission.
type Validator struct {
	cfg        *config.Config
	archive    Archive
	plan       plan.Plan
	timestamps bool
	logger     zerolog.Logger

	failures []Failure
}

// New builds a validator. timestamps mirrors the run's timestamping
// setting, which tightens the assembly name length cap.
func New(cfg *config.Config, archive Archive, p plan.Plan, timestamps bool, logger zerolog.Logger) *Validator {
	return &Validator{cfg: cfg, archive: archive, plan: p, timestamps: timestamps, logger: logger}
}

// Run executes all checks in order. Accumulated invariant violations
// come back as *Error; archive transport errors abort immediately.
func (v *Validator) Run(ctx context.Context) error {
	v.failures = nil
	// Purely local checks go first so their failures are on record
	// before the first archive round trip can abort the pass.
	steps := []func(context.Context) error{
		v.checkBins,
		v.checkMAGs,
		v.checkCoverageSource,
		v.checkStudy,
		v.checkSamples,
		v.checkReads,
		v.checkAssembly,
		v.checkSampleAccessions,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	if len(v.failures) > 0 {
		return &Error{Failures: v.failures}
	}
	v.logger.Info().Msg("preflight checks passed")
	return nil
}

func (v *Validator) fail(check, subject, format string, args ...any) {
	v.failures = append(v.failures, Failure{Check: check, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

func (v *Validator) checkStudy(ctx context.Context) error {
	study, err := v.cfg.Study()
	if err != nil {
		v.fail("study", "", "%v", err)
		return nil
	}
	exists, err := v.archive.StudyExists(ctx, study)
	if err != nil {
		return err
	}
	if !exists {
		v.fail("study", study, "study not found on the archive")
	}
	return nil
}

func (v *Validator) checkSamples(ctx context.Context) error {
	if !v.plan.Has(plan.Samples) {
		return nil
	}
	samples, err := v.cfg.Samples()
	if err != nil {
		v.fail("samples", "", "%v", err)
		return nil
	}
	if len(samples) == 0 {
		v.fail("samples", "", "samples submission requested but no new_samples are configured")
		return nil
	}
	study, _ := v.cfg.Study()

	seen := make(map[string]bool)
	for _, s := range samples {
		if seen[s.Title] {
			v.fail("samples", s.Title, "duplicate sample title")
		}
		seen[s.Title] = true

		if s.CollectionDate == "" {
			v.fail("samples", s.Title, "collection_date is missing")
		} else if !ValidDate(s.CollectionDate) {
			v.fail("samples", s.Title, "collection_date %q is not an accepted ISO-8601 form", s.CollectionDate)
		}
		if s.Location == "" {
			v.fail("samples", s.Title, "location is missing")
		} else if !vocab.IsGeographicLocation(s.Location) {
			v.fail("samples", s.Title, "location %q is not in the geographic location vocabulary", s.Location)
		}

		if study == "" {
			continue
		}
		if acc, err := v.archive.SampleAliasAccession(ctx, study, s.Title); err != nil {
			return err
		} else if acc != "" {
			v.fail("samples", s.Title, "a sample with this alias already exists under %s (%s)", study, acc)
		}
		if acc, err := v.archive.SampleTitleAccession(ctx, study, s.Title); err != nil {
			return err
		} else if acc != "" {
			v.fail("samples", s.Title, "a sample with this title already exists under %s (%s)", study, acc)
		}
	}
	return nil
}

func (v *Validator) checkReads(ctx context.Context) error {
	if !v.plan.Has(plan.Reads) {
		return nil
	}
	sets, err := v.cfg.ReadSets()
	if err != nil {
		v.fail("reads", "", "%v", err)
		return nil
	}
	if len(sets) == 0 {
		v.fail("reads", "", "reads submission requested but no read sets are configured")
		return nil
	}
	study, _ := v.cfg.Study()

	newTitles := make(map[string]bool)
	if v.plan.Has(plan.Samples) {
		samples, err := v.cfg.Samples()
		if err == nil {
			for _, s := range samples {
				newTitles[s.Title] = true
			}
		}
	}

	seen := make(map[string]bool)
	for _, rs := range sets {
		if seen[rs.Name] {
			v.fail("reads", rs.Name, "duplicate read set name")
		}
		seen[rs.Name] = true

		if !vocab.IsLibrarySource(rs.LibrarySource) {
			v.fail("reads", rs.Name, "library_source %q is not in the vocabulary", rs.LibrarySource)
		}
		if !vocab.IsLibrarySelection(rs.LibrarySelection) {
			v.fail("reads", rs.Name, "library_selection %q is not in the vocabulary", rs.LibrarySelection)
		}
		if !vocab.IsLibraryStrategy(rs.LibraryStrategy) {
			v.fail("reads", rs.Name, "library_strategy %q is not in the vocabulary", rs.LibraryStrategy)
		}
		if !vocab.IsInstrument(rs.Instrument) {
			v.fail("reads", rs.Name, "instrument %q is not in the vocabulary", rs.Instrument)
		}

		if v.plan.Has(plan.Samples) && rs.RelatedSampleTitle != "" && !newTitles[rs.RelatedSampleTitle] {
			v.fail("reads", rs.Name, "related_sample_title %q does not match any configured new sample", rs.RelatedSampleTitle)
		}
		if rs.RelatedSampleTitle == "" && rs.RelatedSampleAccession == "" {
			v.fail("reads", rs.Name, "neither related_sample_title nor related_sample_accession is set")
		}

		for _, fq := range rs.FastqFiles {
			if fq == "" {
				v.fail("reads", rs.Name, "fastq file entry is empty")
				continue
			}
			if !IsFastq(fq) {
				v.fail("reads", rs.Name, "%s does not have a recognised fastq extension", fq)
			}
			if _, err := os.Stat(fq); err != nil {
				v.fail("reads", rs.Name, "fastq file %s is not readable: %v", fq, err)
			}
		}

		if study == "" {
			continue
		}
		if acc, err := v.archive.RunAliasAccession(ctx, study, rs.Name); err != nil {
			return err
		} else if acc != "" {
			v.fail("reads", rs.Name, "a run with this alias already exists under %s (%s)", study, acc)
		}
	}
	return nil
}

func (v *Validator) checkAssembly(ctx context.Context) error {
	if !v.plan.Has(plan.Assembly) {
		return nil
	}
	asm, err := v.cfg.Assembly()
	if err != nil {
		v.fail("assembly", "", "%v", err)
		return nil
	}
	if asm == nil {
		v.fail("assembly", "", "assembly submission requested but no assembly is configured")
		return nil
	}

	// asm.Name arrives already stamped, so the cap applies to the full
	// name as measured here.
	if len(asm.Name) > MaxAssemblyNameLen {
		detail := fmt.Sprintf("assembly name is %d characters, above the %d-character limit", len(asm.Name), MaxAssemblyNameLen)
		if v.timestamps {
			detail += fmt.Sprintf(" (%d of them are the timestamp prefix)", TimestampLen)
		}
		v.fail("assembly", asm.Name, "%s", detail)
	}

	if asm.Software == "" {
		v.fail("assembly", asm.Name, "software is missing")
	}
	if asm.CollectionDate == "" {
		v.fail("assembly", asm.Name, "collection_date is missing")
	} else if !ValidDate(asm.CollectionDate) {
		v.fail("assembly", asm.Name, "collection_date %q is not an accepted ISO-8601 form", asm.CollectionDate)
	}
	if asm.Location == "" {
		v.fail("assembly", asm.Name, "location is missing")
	} else if !vocab.IsGeographicLocation(asm.Location) {
		v.fail("assembly", asm.Name, "location %q is not in the geographic location vocabulary", asm.Location)
	}

	if asm.FastaFile == "" {
		v.fail("assembly", asm.Name, "fasta_file is missing")
	} else {
		if !bins.IsFasta(asm.FastaFile) {
			v.fail("assembly", asm.Name, "%s does not have a recognised fasta extension", asm.FastaFile)
		}
		if _, err := os.Stat(asm.FastaFile); err != nil {
			v.fail("assembly", asm.Name, "fasta file %s is not readable: %v", asm.FastaFile, err)
		}
	}

	return v.checkMetagenomeTaxonomy(ctx)
}

// checkMetagenomeTaxonomy verifies the configured metagenome taxid and
// scientific name agree with the archive's taxonomy service.
func (v *Validator) checkMetagenomeTaxonomy(ctx context.Context) error {
	taxid, err := v.cfg.MetagenomeTaxID()
	if err != nil {
		v.fail("taxonomy", "", "%v", err)
		return nil
	}
	name, err := v.cfg.MetagenomeScientificName()
	if err != nil {
		v.fail("taxonomy", "", "%v", err)
		return nil
	}
	remote, err := v.archive.TaxidOfScientificName(ctx, name)
	if err != nil {
		return err
	}
	if remote == "" {
		v.fail("taxonomy", name, "scientific name is unknown to the archive's taxonomy service")
	} else if remote != taxid {
		v.fail("taxonomy", name, "configured taxid %s does not match the archive's taxid %s", taxid, remote)
	}
	return nil
}

// checkSampleAccessions verifies that every pre-existing sample
// accession the configuration references is known to the archive. When
// samples are registered in the same run their accessions do not exist
// yet, so only the standalone references are checked.
func (v *Validator) checkSampleAccessions(ctx context.Context) error {
	if v.plan.Has(plan.Samples) {
		return nil
	}
	refs := append([]string(nil), v.cfg.SampleAccessions()...)
	if v.plan.Has(plan.Reads) {
		if sets, err := v.cfg.ReadSets(); err == nil {
			for _, rs := range sets {
				if rs.RelatedSampleAccession != "" {
					refs = append(refs, rs.RelatedSampleAccession)
				}
			}
		}
	}
	if v.plan.Has(plan.Assembly) {
		if asm, err := v.cfg.Assembly(); err == nil && asm != nil && asm.ExistingSampleAccession != "" {
			refs = append(refs, asm.ExistingSampleAccession)
		}
	}

	seen := make(map[string]bool)
	for _, acc := range refs {
		if seen[acc] {
			continue
		}
		seen[acc] = true
		exists, err := v.archive.SampleAccessionExists(ctx, acc)
		if err != nil {
			return err
		}
		if !exists {
			v.fail("samples", acc, "sample accession not found on the archive")
		}
	}
	return nil
}

func (v *Validator) checkBins(_ context.Context) error {
	if !v.plan.Has(plan.Bins) && !v.plan.Has(plan.MAGs) {
		return nil
	}
	b, err := v.cfg.Bins()
	if err != nil {
		v.fail("bins", "", "%v", err)
		return nil
	}
	if b == nil {
		v.fail("bins", "", "bin submission requested but no bins section is configured")
		return nil
	}

	if b.MinCompleteness != 0 && !validThreshold(b.MinCompleteness) {
		v.fail("bins", "min_completeness", "value %v must be a percentage in (1, 100]", b.MinCompleteness)
	}
	if !validThreshold(b.MaxContamination) {
		v.fail("bins", "max_contamination", "value %v must be a percentage in (1, 100]", b.MaxContamination)
	}

	fastaIDs, err := bins.Files(b.Directory)
	if err != nil {
		v.fail("bins", b.Directory, "%v", err)
		return nil
	}

	quality, err := bins.ReadQuality(b.QualityFile)
	if err != nil {
		v.fail("bins", b.QualityFile, "%v", err)
		return nil
	}
	for _, id := range bins.SortedIDs(quality) {
		if quality[id].Contamination > 100 {
			v.fail("bins", id, "contamination %v exceeds 100", quality[id].Contamination)
		}
	}

	if len(b.TaxonomyFiles) == 0 && b.ManualTaxonomyFile == "" {
		v.fail("bins", "", "at least one taxonomy source is required (ncbi_taxonomy_files or manual_taxonomy_file)")
		return nil
	}
	taxIDs := make(map[string]bool)
	if len(b.TaxonomyFiles) > 0 {
		lineages, err := taxonomy.ReadLineages(b.TaxonomyFiles)
		if err != nil {
			v.fail("bins", "", "%v", err)
			return nil
		}
		for id := range lineages {
			taxIDs[id] = true
		}
	}
	if b.ManualTaxonomyFile != "" {
		manual, err := taxonomy.ReadManual(b.ManualTaxonomyFile)
		if err != nil {
			v.fail("bins", b.ManualTaxonomyFile, "%v", err)
			return nil
		}
		for id := range manual {
			taxIDs[id] = true
		}
	}

	v.checkBinSets(fastaIDs, quality, taxIDs)
	return nil
}

// checkBinSets enforces that the fasta directory, the quality table and
// the taxonomy sources describe the same set of bins.
func (v *Validator) checkBinSets(fastaIDs map[string]string, quality map[string]bins.Quality, taxIDs map[string]bool) {
	for _, id := range bins.SortedIDs(fastaIDs) {
		if _, ok := quality[id]; !ok {
			v.fail("bins", id, "bin has a fasta file but no quality entry")
		}
		if !taxIDs[id] {
			v.fail("bins", id, "bin has a fasta file but no taxonomy entry")
		}
	}
	for _, id := range bins.SortedIDs(quality) {
		if _, ok := fastaIDs[id]; !ok {
			v.fail("bins", id, "quality entry has no matching fasta file")
		}
	}
	for _, id := range bins.SortedIDs(taxIDs) {
		if _, ok := fastaIDs[id]; !ok {
			v.fail("bins", id, "taxonomy entry has no matching fasta file")
		}
	}
}

func (v *Validator) checkMAGs(_ context.Context) error {
	if !v.plan.Has(plan.MAGs) {
		return nil
	}
	m, err := v.cfg.MAGs()
	if err != nil {
		v.fail("mags", "", "%v", err)
		return nil
	}
	if m == nil || m.MetadataFile == "" {
		v.fail("mags", "", "MAG submission requested but no metadata_file is configured")
		return nil
	}
	meta, err := bins.ReadMAGMetadata(m.MetadataFile)
	if err != nil {
		v.fail("mags", m.MetadataFile, "%v", err)
		return nil
	}

	// MAG metadata may name only a subset of the bins, never a
	// superset: an id with no bin fasta has nothing to upgrade.
	var fastaIDs map[string]string
	if b, err := v.cfg.Bins(); err == nil && b != nil {
		fastaIDs, _ = bins.Files(b.Directory)
	}

	for _, id := range bins.SortedIDs(meta) {
		entry := meta[id]
		if fastaIDs != nil {
			if _, ok := fastaIDs[id]; !ok {
				v.fail("mags", id, "MAG metadata names a bin with no fasta file in the bin directory")
			}
		}
		if entry.UnlocalisedPath != "" && entry.ChromosomesPath == "" {
			v.fail("mags", id, "Unlocalised_path is set without a Chromosomes_path")
		}
		for _, p := range []string{entry.FlatfilePath, entry.UnlocalisedPath, entry.ChromosomesPath} {
			if p == "" {
				continue
			}
			if _, err := os.Stat(p); err != nil {
				v.fail("mags", id, "%s is not readable: %v", p, err)
			}
		}
	}
	return nil
}

// checkCoverageSource enforces exactly one coverage source when any
// sequence artifact is submitted.
func (v *Validator) checkCoverageSource(_ context.Context) error {
	needed := v.plan.Has(plan.Assembly) || v.plan.Has(plan.Bins) || v.plan.Has(plan.MAGs)
	if !needed {
		return nil
	}
	hasBAMs := len(v.cfg.BAMFiles()) > 0

	hasTabular := false
	if v.plan.Has(plan.Assembly) {
		if asm, err := v.cfg.Assembly(); err == nil && asm != nil && asm.Coverage != "" {
			hasTabular = true
		}
	}
	if v.plan.Has(plan.Bins) || v.plan.Has(plan.MAGs) {
		if b, err := v.cfg.Bins(); err == nil && b != nil && b.CoverageFile != "" {
			hasTabular = true
		}
	}

	switch {
	case hasBAMs && hasTabular:
		v.fail("coverage", "", "both bam_files and tabular coverage are configured; provide exactly one source")
	case !hasBAMs && !hasTabular:
		v.fail("coverage", "", "no coverage source configured; provide bam_files or tabular coverage values")
	}
	return nil
}

// ValidDate reports whether the date matches one of the accepted
// ISO-8601 truncations.
func ValidDate(s string) bool {
	for _, layout := range datePatterns {
		if t, err := time.Parse(layout, s); err == nil {
			// time.Parse tolerates some sloppy inputs; require the
			// round trip to reproduce the original string.
			if t.Format(layout) == s {
				return true
			}
		}
	}
	return false
}

// IsFastq reports whether the path carries a recognised fastq
// extension, optionally gzip-compressed.
func IsFastq(path string) bool {
	base := path
	if strings.EqualFold(filepath.Ext(base), ".gz") {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range fastqExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func validThreshold(v float64) bool { return v > 1 && v <= 100 }
