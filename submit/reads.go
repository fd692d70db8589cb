package submit

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/samplesheet"
	"github.com/ena-tools/magsub/webin"
)

// submitReads stages and submits every configured read set, collecting
// run accessions in configuration order for the assembly phase.
func (o *Orchestrator) submitReads(ctx context.Context) error {
	sets, err := o.cfg.ReadSets()
	if err != nil {
		return err
	}
	study, err := o.cfg.Study()
	if err != nil {
		return err
	}

	accessions := make(map[string]string, len(sets))
	for _, rs := range sets {
		sample, err := o.readSampleAccession(rs)
		if err != nil {
			return err
		}

		dir, err := o.stageDir("reads", rs.Name)
		if err != nil {
			return err
		}
		staged, err := o.stageFastqs(rs, dir)
		if err != nil {
			return err
		}

		manifest := samplesheet.ReadsManifest{
			Study:            study,
			Sample:           sample,
			Name:             rs.Name,
			Platform:         rs.Platform,
			Instrument:       rs.Instrument,
			InsertSize:       rs.InsertSize,
			LibrarySource:    rs.LibrarySource,
			LibrarySelection: rs.LibrarySelection,
			LibraryStrategy:  rs.LibraryStrategy,
			FastqPaths:       staged,
			Extra:            rs.AdditionalManifestRows,
		}
		manifestPath := filepath.Join(dir, "manifest.tsv")
		if err := manifest.Build().WriteFile(manifestPath); err != nil {
			return err
		}

		receiptDir := filepath.Join(o.opts.LoggingDir, "receipts", "reads", rs.Name)
		job := webin.Job{
			Manifest:  manifestPath,
			InputDir:  dir,
			OutputDir: receiptDir,
			Context:   webin.ContextReads,
		}
		if err := o.uploader.Validate(ctx, job); err != nil {
			return err
		}
		o.logger.Info().Str("reads", rs.Name).Msg("submitting read set")
		accession, err := o.uploader.Submit(ctx, job)
		if err != nil {
			return err
		}
		accessions[rs.Name] = accession
		o.runAccessions = append(o.runAccessions, accession)
	}
	return o.writeAccessions("reads", accessions)
}

// readSampleAccession resolves the sample a read set belongs to, either
// a preexisting accession from the config or a sample registered in
// this run.
func (o *Orchestrator) readSampleAccession(rs config.ReadSet) (string, error) {
	if rs.RelatedSampleAccession != "" {
		return rs.RelatedSampleAccession, nil
	}
	if rs.RelatedSampleTitle != "" {
		if acc := o.sampleAccessions[rs.RelatedSampleTitle]; acc != "" {
			return acc, nil
		}
		return "", fmt.Errorf("read set %q references sample title %q but no accession is known for it", rs.Name, rs.RelatedSampleTitle)
	}
	return "", fmt.Errorf("read set %q names no related sample", rs.Name)
}

// stageFastqs gzips the read files into the staging directory and
// returns the staged file names, manifest-relative.
func (o *Orchestrator) stageFastqs(rs config.ReadSet, dir string) ([]string, error) {
	names := []string{"reads.fastq.gz"}
	if rs.Paired {
		names = []string{"reads_1.fastq.gz", "reads_2.fastq.gz"}
	}
	if len(rs.FastqFiles) != len(names) {
		return nil, fmt.Errorf("read set %q has %d fastq files, expected %d", rs.Name, len(rs.FastqFiles), len(names))
	}
	for i, src := range rs.FastqFiles {
		if err := stageGzip(src, filepath.Join(dir, names[i]), o.opts.Threads); err != nil {
			return nil, fmt.Errorf("staging %s: %w", src, err)
		}
	}
	return names, nil
}
