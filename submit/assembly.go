package submit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/samplesheet"
	"github.com/ena-tools/magsub/webin"
)

// submitAssembly stages and submits the primary assembly. Co-assemblies
// over multiple samples get a virtual sample registered first; its
// accession becomes the assembly's sample reference.
func (o *Orchestrator) submitAssembly(ctx context.Context) error {
	asm, err := o.cfg.Assembly()
	if err != nil {
		return err
	}
	if asm == nil {
		return fmt.Errorf("assembly submission requested but no assembly is configured")
	}
	study, err := o.cfg.Study()
	if err != nil {
		return err
	}

	accessions := make(map[string]string)
	sample, virtualAlias, err := o.assemblySampleAccession(ctx, asm)
	if err != nil {
		return err
	}
	if virtualAlias != "" {
		accessions[virtualAlias] = sample
	}
	o.assemblySample = sample

	if o.cov.assembly == "" {
		return fmt.Errorf("no coverage value available for assembly %q", asm.Name)
	}

	dir, err := o.stageDir("assembly")
	if err != nil {
		return err
	}
	stagedFasta := asm.Name + "_assembly_upload.fna.gz"
	o.logger.Info().Str("fasta", asm.FastaFile).Msg("staging assembly")
	if err := stageGzip(asm.FastaFile, filepath.Join(dir, stagedFasta), o.opts.Threads); err != nil {
		return err
	}

	platforms, err := o.platforms()
	if err != nil {
		return err
	}
	manifest := samplesheet.AssemblyManifest{
		Study:         study,
		Sample:        sample,
		AssemblyName:  asm.Name,
		AssemblyType:  samplesheet.AssemblyTypePrimary,
		Coverage:      o.cov.assembly,
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
		OutputDir: filepath.Join(o.opts.LoggingDir, "receipts", "assembly"),
		Context:   webin.ContextGenome,
	}
	if err := o.uploader.Validate(ctx, job); err != nil {
		return err
	}
	o.logger.Info().Str("assembly", asm.Name).Msg("submitting assembly")
	analysis, err := o.uploader.Submit(ctx, job)
	if err != nil {
		return err
	}
	accessions[asm.Name] = analysis
	return o.writeAccessions("assembly", accessions)
}

// assemblySampleAccession resolves the sample the assembly derives
// from. One backing sample is referenced directly; several are folded
// into a co-assembly virtual sample. Returns the alias of a virtual
// sample when one was registered.
func (o *Orchestrator) assemblySampleAccession(ctx context.Context, asm *config.Assembly) (string, string, error) {
	if asm.ExistingSampleAccession != "" {
		return asm.ExistingSampleAccession, "", nil
	}

	backing, err := o.backingSampleAccessions()
	if err != nil {
		return "", "", err
	}
	switch len(backing) {
	case 0:
		return "", "", fmt.Errorf("assembly %q has no backing sample accessions", asm.Name)
	case 1:
		return backing[0], "", nil
	}

	taxid, err := o.cfg.MetagenomeTaxID()
	if err != nil {
		return "", "", err
	}
	name, err := o.cfg.MetagenomeScientificName()
	if err != nil {
		return "", "", err
	}
	alias := asm.Name + "_virtual_sample"
	attrs := []samplesheet.Attribute{
		{Tag: attrCollectionDate, Value: asm.CollectionDate},
		{Tag: attrLocation, Value: asm.Location},
		{Tag: "isolation_source", Value: asm.IsolationSource},
		{Tag: attrProjectName, Value: o.cfg.ProjectName()},
		{Tag: attrDerivedFrom, Value: strings.Join(backing, ",")},
	}
	for _, k := range config.SortedKeys(asm.SamplesheetFields) {
		attrs = append(attrs, samplesheet.Attribute{Tag: k, Value: asm.SamplesheetFields[k]})
	}
	set := &samplesheet.SampleSet{Samples: []samplesheet.Sample{
		samplesheet.NewSample(alias, "co-assembly "+asm.Name, taxid, name, attrs),
	}}

	o.logger.Info().Str("alias", alias).Int("samples", len(backing)).Msg("registering co-assembly virtual sample")
	result, err := o.registrar.SubmitSamples(ctx, set)
	if err != nil {
		return "", "", err
	}
	accession := result[alias]
	if accession == "" {
		return "", "", fmt.Errorf("archive returned no accession for virtual sample %q", alias)
	}
	return accession, alias, nil
}

// backingSampleAccessions lists the samples the assembly was computed
// over, in configuration order.
func (o *Orchestrator) backingSampleAccessions() ([]string, error) {
	if o.sampleAccessions != nil {
		samples, err := o.cfg.Samples()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(samples))
		for _, s := range samples {
			out = append(out, o.sampleAccessions[s.Title])
		}
		return out, nil
	}
	return o.cfg.SampleAccessions(), nil
}
