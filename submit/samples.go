package submit

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ena-tools/magsub/config"
	"github.com/ena-tools/magsub/samplesheet"
)

// Attribute tags of the archive's sample checklists.
const (
	attrCollectionDate = "collection date"
	attrLocation       = "geographic location (country and/or sea)"
	attrProjectName    = "project name"
	attrDerivedFrom    = "sample derived from"
)

// submitSamples registers the configured new samples and keeps their
// accessions keyed by title for the reads phase.
func (o *Orchestrator) submitSamples(ctx context.Context) error {
	samples, err := o.cfg.Samples()
	if err != nil {
		return err
	}
	taxid, err := o.cfg.MetagenomeTaxID()
	if err != nil {
		return err
	}
	name, err := o.cfg.MetagenomeScientificName()
	if err != nil {
		return err
	}

	set := &samplesheet.SampleSet{}
	for _, s := range samples {
		attrs := []samplesheet.Attribute{
			{Tag: attrCollectionDate, Value: s.CollectionDate},
			{Tag: attrLocation, Value: s.Location},
			{Tag: attrProjectName, Value: o.cfg.ProjectName()},
		}
		for _, k := range config.SortedKeys(s.Attributes) {
			attrs = append(attrs, samplesheet.Attribute{Tag: k, Value: s.Attributes[k]})
		}
		set.Samples = append(set.Samples, samplesheet.NewSample(s.Title, s.Title, taxid, name, attrs))
	}

	dir, err := o.stageDir("samples")
	if err != nil {
		return err
	}
	if err := set.WriteFile(filepath.Join(dir, "samplesheet.xml")); err != nil {
		return err
	}

	o.logger.Info().Int("samples", len(set.Samples)).Msg("registering samples")
	accessions, err := o.registrar.SubmitSamples(ctx, set)
	if err != nil {
		return err
	}
	for _, s := range samples {
		if accessions[s.Title] == "" {
			return fmt.Errorf("archive returned no accession for sample %q", s.Title)
		}
	}
	o.sampleAccessions = accessions
	return o.writeAccessions("samples", accessions)
}
