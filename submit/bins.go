package submit

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ena-tools/magsub/bins"
	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/samplesheet"
	"github.com/ena-tools/magsub/taxonomy"
	"github.com/ena-tools/magsub/webin"
)

// Archive descriptions of the MAG quality categories.
var magQualityDescriptions = map[string]string{
	"finished": "Single contiguous sequence without gaps or ambiguities " +
		"with a consensus error rate equivalent to Q50 or better",
	"high": "Multiple fragments where gaps span repetitive regions. " +
		"Presence of the 23S, 16S and 5S rRNA genes and at least 18 tRNAs",
	"medium": "Many fragments with little to no review of assembly " +
		"other than reporting of standard assembly statistics",
}

// submitBins registers virtual samples for every filtered bin and
// submits the bin assemblies one at a time.
func (o *Orchestrator) submitBins(ctx context.Context) error {
	b, asm, err := o.binContext()
	if err != nil {
		return err
	}
	quality, err := bins.ReadQuality(b.QualityFile)
	if err != nil {
		return err
	}
	ids := o.filteredBins(b, quality)
	if len(ids) == 0 {
		return fmt.Errorf("no bins pass the quality thresholds (completeness >= %v, contamination <= %v)",
			b.MinCompleteness, b.MaxContamination)
	}
	cov, err := o.binCoverage(ids)
	if err != nil {
		return err
	}
	binFiles, err := bins.Files(b.Directory)
	if err != nil {
		return err
	}

	set := &samplesheet.SampleSet{}
	for _, id := range ids {
		assignment, err := o.assignment(id)
		if err != nil {
			return err
		}
		q := quality[id]
		attrs := []samplesheet.Attribute{
			{Tag: "completeness score", Value: formatPercent(q.Completeness)},
			{Tag: "contamination score", Value: formatPercent(q.Contamination)},
			{Tag: "binning software", Value: b.BinningSoftware},
			{Tag: "completeness software", Value: b.CompletenessSoftware},
			{Tag: attrDerivedFrom, Value: o.assemblySample},
			{Tag: attrProjectName, Value: o.cfg.ProjectName()},
		}
		alias := samplesheet.BinSampleAlias(asm.Name, id)
		title := asm.Name + " bin " + id
		set.Samples = append(set.Samples,
			samplesheet.NewSample(alias, title, assignment.TaxID, assignment.ScientificName, attrs))
	}

	o.logger.Info().Int("bins", len(ids)).Msg("registering bin virtual samples")
	registered, err := o.registrar.SubmitSamples(ctx, set)
	if err != nil {
		return err
	}
	o.binSamples = make(map[string]string, len(ids))
	for alias, accession := range registered {
		id, ok := samplesheet.BinIDFromAlias(alias, asm.Name, false)
		if !ok {
			return fmt.Errorf("receipt alias %q does not match any bin virtual-sample alias", alias)
		}
		o.binSamples[id] = accession
	}
	for _, id := range ids {
		if o.binSamples[id] == "" {
			return fmt.Errorf("archive returned no accession for bin %s virtual sample", id)
		}
	}
	if err := o.writeAccessions("bin_samples", registered); err != nil {
		return err
	}

	platforms, err := o.platforms()
	if err != nil {
		return err
	}
	study, err := o.cfg.Study()
	if err != nil {
		return err
	}

	// Uploads run strictly sequentially: the external uploader is
	// stateful per invocation.
	accessions := make(map[string]string, len(ids))
	for _, id := range ids {
		dir, err := o.stageDir("bins", id)
		if err != nil {
			return err
		}
		stagedFasta := id + "_assembly_upload.fna.gz"
		if err := stageGzip(binFiles[id], filepath.Join(dir, stagedFasta), o.opts.Threads); err != nil {
			return err
		}

		manifest := samplesheet.AssemblyManifest{
			Study:         study,
			Sample:        o.binSamples[id],
			AssemblyName:  asm.Name + "_bin_" + id,
			AssemblyType:  samplesheet.AssemblyTypeBinned,
			Coverage:      formatCoverage(cov[id]),
			Program:       asm.Software,
			Platform:      platforms,
			RunAccessions: o.runAccessions,
			FastaPath:     stagedFasta,
			Extra:         asm.ManifestFields,
		}
		manifestPath := filepath.Join(dir, "manifest.tsv")
		if err := manifest.Build().WriteFile(manifestPath); err != nil {
			return err
		}

		job := webin.Job{
			Manifest:  manifestPath,
			InputDir:  dir,
			OutputDir: filepath.Join(o.opts.LoggingDir, "receipts", "bins", id),
			Context:   webin.ContextGenome,
		}
		if err := o.uploader.Validate(ctx, job); err != nil {
			return err
		}
		o.logger.Info().Str("bin", id).Msg("submitting bin assembly")
		accession, err := o.uploader.Submit(ctx, job)
		if err != nil {
			return err
		}
		accessions[id] = accession
	}
	return o.writeAccessions("bins", accessions)
}

// submitMAGs registers MAG virtual samples and submits each MAG
// assembly listed in the metadata table, restricted to bins that passed
// the quality filter.
func (o *Orchestrator) submitMAGs(ctx context.Context) error {
	m, err := o.cfg.MAGs()
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("MAG submission requested but no mags section is configured")
	}
	meta, err := bins.ReadMAGMetadata(m.MetadataFile)
	if err != nil {
		return err
	}

	b, asm, err := o.binContext()
	if err != nil {
		return err
	}
	quality, err := bins.ReadQuality(b.QualityFile)
	if err != nil {
		return err
	}
	filtered := make(map[string]bool)
	for _, id := range o.filteredBins(b, quality) {
		filtered[id] = true
	}
	var ids []string
	for _, id := range bins.SortedIDs(meta) {
		if filtered[id] {
			ids = append(ids, id)
			continue
		}
		if _, ok := quality[id]; ok {
			o.logger.Warn().Str("bin", id).Msg("MAG metadata entry skipped, bin did not pass the quality thresholds")
		} else {
			o.logger.Warn().Str("bin", id).Msg("MAG metadata entry skipped, id is unknown to the quality table")
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no MAG in %s passes the quality thresholds", m.MetadataFile)
	}
	cov, err := o.binCoverage(ids)
	if err != nil {
		return err
	}
	binFiles, err := bins.Files(b.Directory)
	if err != nil {
		return err
	}

	set := &samplesheet.SampleSet{}
	for _, id := range ids {
		assignment, err := o.assignment(id)
		if err != nil {
			return err
		}
		q := quality[id]
		derived := o.binSamples[id]
		if derived == "" {
			derived = o.assemblySample
		}
		attrs := []samplesheet.Attribute{
			{Tag: "completeness score", Value: formatPercent(q.Completeness)},
			{Tag: "contamination score", Value: formatPercent(q.Contamination)},
			{Tag: "assembly quality", Value: magQualityDescriptions[meta[id].QualityCategory]},
			{Tag: "assembly software", Value: asm.Software},
			{Tag: "binning software", Value: b.BinningSoftware},
			{Tag: attrDerivedFrom, Value: derived},
			{Tag: attrProjectName, Value: o.cfg.ProjectName()},
		}
		alias := samplesheet.MAGSampleAlias(asm.Name, id)
		title := asm.Name + " MAG " + id
		set.Samples = append(set.Samples,
			samplesheet.NewSample(alias, title, assignment.TaxID, assignment.ScientificName, attrs))
	}

	o.logger.Info().Int("mags", len(ids)).Msg("registering MAG virtual samples")
	registered, err := o.registrar.SubmitSamples(ctx, set)
	if err != nil {
		return err
	}
	magSamples := make(map[string]string, len(ids))
	for alias, accession := range registered {
		id, ok := samplesheet.BinIDFromAlias(alias, asm.Name, true)
		if !ok {
			return fmt.Errorf("receipt alias %q does not match any MAG virtual-sample alias", alias)
		}
		magSamples[id] = accession
	}
	for _, id := range ids {
		if magSamples[id] == "" {
			return fmt.Errorf("archive returned no accession for MAG %s virtual sample", id)
		}
	}
	if err := o.writeAccessions("mag_samples", registered); err != nil {
		return err
	}

	platforms, err := o.platforms()
	if err != nil {
		return err
	}
	study, err := o.cfg.Study()
	if err != nil {
		return err
	}

	accessions := make(map[string]string, len(ids))
	for _, id := range ids {
		dir, err := o.stageDir("mags", id)
		if err != nil {
			return err
		}
		manifest := samplesheet.AssemblyManifest{
			Study:         study,
			Sample:        magSamples[id],
			AssemblyName:  asm.Name + "_MAG_" + id,
			AssemblyType:  samplesheet.AssemblyTypeMAG,
			Coverage:      formatCoverage(cov[id]),
			Program:       asm.Software,
			Platform:      platforms,
			RunAccessions: o.runAccessions,
			Extra:         asm.ManifestFields,
		}
		if err := o.stageMAGPayload(meta[id], binFiles[id], id, dir, &manifest); err != nil {
			return err
		}
		manifestPath := filepath.Join(dir, "manifest.tsv")
		if err := manifest.Build().WriteFile(manifestPath); err != nil {
			return err
		}

		job := webin.Job{
			Manifest:  manifestPath,
			InputDir:  dir,
			OutputDir: filepath.Join(o.opts.LoggingDir, "receipts", "mags", id),
			Context:   webin.ContextGenome,
		}
		if err := o.uploader.Validate(ctx, job); err != nil {
			return err
		}
		o.logger.Info().Str("mag", id).Msg("submitting MAG assembly")
		accession, err := o.uploader.Submit(ctx, job)
		if err != nil {
			return err
		}
		accessions[id] = accession
	}
	return o.writeAccessions("mags", accessions)
}

// stageMAGPayload places the MAG's sequence payload in the staging
// directory and fills the matching manifest rows. A flatfile replaces
// the fasta when the metadata provides one; chromosome and unlocalised
// lists are gzipped alongside.
func (o *Orchestrator) stageMAGPayload(entry bins.MAG, fastaPath, id, dir string, manifest *samplesheet.AssemblyManifest) error {
	if entry.FlatfilePath != "" {
		name := id + "_flatfile.embl.gz"
		if err := stageGzip(entry.FlatfilePath, filepath.Join(dir, name), o.opts.Threads); err != nil {
			return err
		}
		manifest.FlatfilePath = name
	} else {
		name := id + "_mag_upload.fna.gz"
		if err := stageGzip(fastaPath, filepath.Join(dir, name), o.opts.Threads); err != nil {
			return err
		}
		manifest.FastaPath = name
	}
	if entry.ChromosomesPath != "" {
		name := id + "_chromosome_list.txt.gz"
		if err := stageGzip(entry.ChromosomesPath, filepath.Join(dir, name), o.opts.Threads); err != nil {
			return err
		}
		manifest.ChromosomeList = name
	}
	if entry.UnlocalisedPath != "" {
		name := id + "_unlocalised_list.txt.gz"
		if err := stageGzip(entry.UnlocalisedPath, filepath.Join(dir, name), o.opts.Threads); err != nil {
			return err
		}
		manifest.UnlocalisedList = name
	}
	return nil
}

// binContext loads the bins and assembly records both bin-bearing
// phases need, enforcing the accession threading invariant.
func (o *Orchestrator) binContext() (*config.Bins, *config.Assembly, error) {
	b, err := o.cfg.Bins()
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		return nil, nil, fmt.Errorf("bin submission requested but no bins section is configured")
	}
	asm, err := o.cfg.Assembly()
	if err != nil {
		return nil, nil, err
	}
	if asm == nil {
		return nil, nil, fmt.Errorf("bin submission needs an assembly section for naming and metadata")
	}
	if o.assemblySample == "" {
		return nil, nil, fmt.Errorf("no assembly sample accession available for bin virtual samples")
	}
	return b, asm, nil
}

func (o *Orchestrator) assignment(id string) (taxonomy.Assignment, error) {
	a, ok := o.assignments[id]
	if !ok {
		return taxonomy.Assignment{}, fmt.Errorf("no resolved taxonomy for bin %s", id)
	}
	return a, nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
