// Package submit drives a full submission run: coverage acquisition,
// sample registration, artifact staging and the leaves-first execution
// of the plan. Accessions assigned in one phase are threaded into the
// next; each phase records its assignments in the logging tree before
// the next phase starts.
package submit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ena-tools/magsub/bins"
	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/internal/tabular"
	"github.com/ena-tools/magsub/plan"
	"github.com/ena-tools/magsub/samplesheet"
	"github.com/ena-tools/magsub/taxonomy"
	"github.com/ena-tools/magsub/webin"
)

// Archive is the slice of the read-side client the orchestrator needs.
type Archive interface {
	SamplesOfAssemblyAnalysis(ctx context.Context, analysis string) (string, error)
	ScientificNameOfSample(ctx context.Context, accession string) (string, error)
}

// Uploader submits payload-bearing artifacts through the external CLI.
type Uploader interface {
	Validate(ctx context.Context, job webin.Job) error
	Submit(ctx context.Context, job webin.Job) (string, error)
}

// Registrar registers samplesheet XML documents with the archive.
type Registrar interface {
	SubmitSamples(ctx context.Context, set *samplesheet.SampleSet) (map[string]string, error)
}

// Options are the run-level knobs of one submission.
type Options struct {
	StagingDir     string
	LoggingDir     string
	Threads        int
	KeepDepthFiles bool
	// MiniTest caps bins to the first filtered bin, for a cheap
	// end-to-end run against the development service.
	MiniTest bool
}

// Orchestrator executes a validated submission plan.
type Orchestrator struct {
	cfg         *config.Config
	plan        plan.Plan
	archive     Archive
	uploader    Uploader
	registrar   Registrar
	assignments map[string]taxonomy.Assignment
	opts        Options
	logger      zerolog.Logger

	// Accession state threaded between phases.
	sampleAccessions map[string]string // sample title -> accession
	runAccessions    []string          // run accessions backing the assembly
	assemblySample   string            // sample accession the assembly is derived from
	binSamples       map[string]string // bin id -> virtual sample accession
	cov              *coverageState
}

// New builds an orchestrator. assignments carries the resolved taxonomy
// for every bin that may be submitted; it may be nil when the plan has
// no bin or MAG phase.
func New(cfg *config.Config, p plan.Plan, archive Archive, uploader Uploader, registrar Registrar,
	assignments map[string]taxonomy.Assignment, opts Options, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		plan:        p,
		archive:     archive,
		uploader:    uploader,
		registrar:   registrar,
		assignments: assignments,
		opts:        opts,
		logger:      logger,
	}
}

// Run executes the plan leaves-first. Any error is fatal; partial work
// stays in the staging tree for manual reclamation.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info().Stringer("plan", o.plan).Msg("starting submission")
	for _, dir := range []string{o.opts.StagingDir, o.opts.LoggingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := o.acquireCoverage(ctx); err != nil {
		return err
	}

	if o.plan.Has(plan.Samples) {
		if err := o.submitSamples(ctx); err != nil {
			return err
		}
	} else {
		o.sampleAccessions = nil
	}

	if o.plan.Has(plan.Reads) {
		if err := o.submitReads(ctx); err != nil {
			return err
		}
	} else if err := o.collectRunAccessions(); err != nil {
		return err
	}

	if o.plan.Has(plan.Assembly) {
		if err := o.submitAssembly(ctx); err != nil {
			return err
		}
	} else if err := o.deriveAssemblySample(ctx); err != nil {
		return err
	}

	if o.plan.Has(plan.Bins) {
		if err := o.submitBins(ctx); err != nil {
			return err
		}
	}
	if o.plan.Has(plan.MAGs) {
		if err := o.submitMAGs(ctx); err != nil {
			return err
		}
	}
	o.logger.Info().Msg("submission completed")
	return nil
}

// collectRunAccessions pulls the run accessions backing the assembly
// from the assembly record when no reads phase runs.
func (o *Orchestrator) collectRunAccessions() error {
	if !o.needsAssemblyContext() {
		return nil
	}
	asm, err := o.cfg.Assembly()
	if err != nil {
		return err
	}
	if asm != nil {
		o.runAccessions = asm.RunAccessions
	}
	return nil
}

// deriveAssemblySample resolves the sample accession behind an already
// archived assembly, used as the derived-from reference of bin and MAG
// virtual samples.
func (o *Orchestrator) deriveAssemblySample(ctx context.Context) error {
	if !o.plan.Has(plan.Bins) && !o.plan.Has(plan.MAGs) {
		return nil
	}
	asm, err := o.cfg.Assembly()
	if err != nil {
		return err
	}
	if asm == nil {
		return fmt.Errorf("bin submission needs an assembly section to derive sample accessions from")
	}
	if asm.ExistingSampleAccession != "" {
		o.assemblySample = asm.ExistingSampleAccession
	} else {
		if asm.ExistingAnalysisAccession == "" {
			return fmt.Errorf("assembly record names neither an existing analysis accession nor an existing sample accession")
		}
		sample, err := o.archive.SamplesOfAssemblyAnalysis(ctx, asm.ExistingAnalysisAccession)
		if err != nil {
			return err
		}
		o.assemblySample = sample
		o.logger.Info().Str("analysis", asm.ExistingAnalysisAccession).Str("sample", sample).
			Msg("derived assembly sample from archived analysis")
	}

	// Every virtual sample is about to point at this accession, so make
	// sure the archive actually knows it as a sample.
	name, err := o.archive.ScientificNameOfSample(ctx, o.assemblySample)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("assembly sample %s is unknown to the archive", o.assemblySample)
	}
	o.logger.Debug().Str("sample", o.assemblySample).Str("scientific_name", name).
		Msg("assembly sample verified")
	return nil
}

func (o *Orchestrator) needsAssemblyContext() bool {
	return o.plan.Has(plan.Assembly) || o.plan.Has(plan.Bins) || o.plan.Has(plan.MAGs)
}

// platforms returns the distinct sequencing platforms of the configured
// read sets, comma-joined for genome manifests.
func (o *Orchestrator) platforms() (string, error) {
	sets, err := o.cfg.ReadSets()
	if err != nil {
		return "", err
	}
	seen := make(map[string]bool)
	var out []string
	for _, rs := range sets {
		if rs.Platform == "" || seen[rs.Platform] {
			continue
		}
		seen[rs.Platform] = true
		out = append(out, rs.Platform)
	}
	return strings.Join(out, ","), nil
}

// writeAccessions records one phase's (local id, preliminary accession)
// assignments under the logging tree.
func (o *Orchestrator) writeAccessions(name string, accessions map[string]string) error {
	path := filepath.Join(o.opts.LoggingDir, name+"_preliminary_accessions.tsv")
	w, err := tabular.NewWriter(path, "Local_id", "Preliminary_accession")
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(accessions))
	for id := range accessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := w.Write(id, accessions[id]); err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	o.logger.Info().Str("file", path).Int("entries", len(accessions)).Msg("recorded preliminary accessions")
	return nil
}

// formatCoverage renders coverage floats the same way the tabular
// coverage files do, keeping round trips bit-identical.
func formatCoverage(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// filteredBins applies the quality thresholds, sorted by bin id. With
// MiniTest only the first survivor remains.
func (o *Orchestrator) filteredBins(b *config.Bins, quality map[string]bins.Quality) []string {
	ids := bins.Filter(quality, b.MinCompleteness, b.MaxContamination)
	if o.opts.MiniTest && len(ids) > 1 {
		o.logger.Warn().Str("bin", ids[0]).Msg("minitest: submitting only the first filtered bin")
		ids = ids[:1]
	}
	return ids
}
