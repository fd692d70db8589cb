package submit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ena-tools/magsub/bins"
	"github.com/ena-tools/magsub/coverage"
	"github.com/ena-tools/magsub/plan"
)

// coverageState holds the run's coverage values. In depth mode the
// values are computed once up front; in tabular mode the assembly value
// comes from the config and per-bin values are read lazily against the
// filtered bin set.
type coverageState struct {
	depthMode bool
	depthBins map[string]float64
	assembly  string
}

// acquireCoverage resolves the coverage source before any phase runs.
// With BAM inputs the external depth tool fans out under the staging
// tree; the depth files are removed afterwards unless the run keeps
// them.
func (o *Orchestrator) acquireCoverage(ctx context.Context) error {
	if !o.needsAssemblyContext() {
		return nil
	}
	o.cov = &coverageState{}

	bams := o.cfg.BAMFiles()
	if len(bams) == 0 {
		if o.plan.Has(plan.Assembly) {
			asm, err := o.cfg.Assembly()
			if err != nil {
				return err
			}
			o.cov.assembly = asm.Coverage
		}
		return nil
	}

	o.cov.depthMode = true
	depthDir, err := o.stageDir("depth")
	if err != nil {
		return err
	}
	o.logger.Info().Int("bams", len(bams)).Msg("computing coverage from BAM files")
	depthFiles, err := coverage.MakeDepthFiles(ctx, bams, depthDir, o.opts.Threads)
	if err != nil {
		return err
	}

	var binContigs map[string][]string
	if o.plan.Has(plan.Bins) || o.plan.Has(plan.MAGs) {
		b, err := o.cfg.Bins()
		if err != nil {
			return err
		}
		files, err := bins.Files(b.Directory)
		if err != nil {
			return err
		}
		binContigs, err = coverage.BinContigs(files)
		if err != nil {
			return err
		}
	}

	result, err := coverage.Compute(ctx, depthFiles, binContigs, o.opts.Threads)
	if err != nil {
		return err
	}
	o.cov.depthBins = result.Bins
	o.cov.assembly = formatCoverage(result.Assembly)

	if len(result.Bins) > 0 {
		table := filepath.Join(o.opts.LoggingDir, "bin_coverages.tsv")
		if err := coverage.WriteTable(table, result.Bins, bins.SortedIDs(result.Bins)); err != nil {
			return err
		}
		o.logger.Info().Str("file", table).Msg("wrote per-bin coverage table")
	}

	if !o.opts.KeepDepthFiles {
		if err := os.RemoveAll(depthDir); err != nil {
			return err
		}
	}
	return nil
}

// binCoverage returns the coverage of every listed bin, from the depth
// computation or from the configured tabular file.
func (o *Orchestrator) binCoverage(ids []string) (map[string]float64, error) {
	if o.cov.depthMode {
		out := make(map[string]float64, len(ids))
		for _, id := range ids {
			v, ok := o.cov.depthBins[id]
			if !ok {
				return nil, fmt.Errorf("no computed coverage for bin %s", id)
			}
			out[id] = v
		}
		return out, nil
	}
	b, err := o.cfg.Bins()
	if err != nil {
		return nil, err
	}
	if b == nil || b.CoverageFile == "" {
		return nil, fmt.Errorf("no coverage source for bins: neither bam_files nor a coverage_file is configured")
	}
	return coverage.ReadTable(b.CoverageFile, ids)
}
