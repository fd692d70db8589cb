package config

import "strconv"

// Typed views over the configuration records consumed by preflight and
// the orchestrator. All alias-bearing fields come back stamped.

// Sample is a biological sample to be created during this submission.
type Sample struct {
	Title          string
	CollectionDate string
	Location       string
	Attributes     map[string]string
}

// ReadSet is one single or paired sequencing read set.
type ReadSet struct {
	Name                   string
	Platform               string
	Instrument             string
	LibrarySource          string
	LibrarySelection       string
	LibraryStrategy        string
	InsertSize             string
	FastqFiles             []string
	RelatedSampleTitle     string
	RelatedSampleAccession string
	Paired                 bool
	AdditionalManifestRows map[string]string
}

// Assembly is the primary assembly record. One assembly per run; multiple
// assemblies require separate runs of the tool.
type Assembly struct {
	Name                      string
	Software                  string
	IsolationSource           string
	CollectionDate            string
	Location                  string
	FastaFile                 string
	Coverage                  string
	RunAccessions             []string
	ExistingAnalysisAccession string
	ExistingSampleAccession   string
	SamplesheetFields         map[string]string
	ManifestFields            map[string]string
}

// Bins describes the binned-contig inputs.
type Bins struct {
	Directory            string
	QualityFile          string
	TaxonomyFiles        []string
	ManualTaxonomyFile   string
	BinningSoftware      string
	CompletenessSoftware string
	MinCompleteness      float64
	MaxContamination     float64
	CoverageFile         string
}

// MAGs describes the MAG promotion inputs.
type MAGs struct {
	MetadataFile string
}

// Study returns the study accession.
func (c *Config) Study() (string, error) { return c.Get("study") }

// ProjectName returns the stamped project name, or "" when absent.
func (c *Config) ProjectName() string {
	s, err := c.Stamped("project_name")
	if err != nil {
		return ""
	}
	return s
}

// MetagenomeTaxID returns the inherited metagenome taxid.
func (c *Config) MetagenomeTaxID() (string, error) { return c.Get("metagenome_taxid") }

// MetagenomeScientificName returns the inherited metagenome scientific name.
func (c *Config) MetagenomeScientificName() (string, error) {
	return c.Get("metagenome_scientific_name")
}

// SampleAccessions returns the referenced pre-existing sample accessions.
func (c *Config) SampleAccessions() []string { return c.OptionalList("sample_accessions") }

// BAMFiles returns the BAM paths for depth-based coverage, or nil.
func (c *Config) BAMFiles() []string { return c.OptionalList("bam_files") }

// Samples returns the new-sample records, empty when none are declared.
func (c *Config) Samples() ([]Sample, error) {
	if !c.Has("new_samples") {
		return nil, nil
	}
	recs, err := c.records("new_samples")
	if err != nil {
		return nil, err
	}
	out := make([]Sample, 0, len(recs))
	for _, r := range recs {
		title, err := r.Stamped("title")
		if err != nil {
			return nil, err
		}
		out = append(out, Sample{
			Title:          title,
			CollectionDate: r.Optional("collection_date"),
			Location:       r.Optional("location"),
			Attributes:     r.StringMap("attributes"),
		})
	}
	return out, nil
}

// SingleReads returns the single-end read set records.
func (c *Config) SingleReads() ([]ReadSet, error) {
	return c.readSets("single_reads", false)
}

// PairedReads returns the paired-end read set records.
func (c *Config) PairedReads() ([]ReadSet, error) {
	return c.readSets("paired_reads", true)
}

// ReadSets returns all read sets, single first.
func (c *Config) ReadSets() ([]ReadSet, error) {
	single, err := c.SingleReads()
	if err != nil {
		return nil, err
	}
	paired, err := c.PairedReads()
	if err != nil {
		return nil, err
	}
	return append(single, paired...), nil
}

func (c *Config) readSets(key string, paired bool) ([]ReadSet, error) {
	if !c.Has(key) {
		return nil, nil
	}
	recs, err := c.records(key)
	if err != nil {
		return nil, err
	}
	out := make([]ReadSet, 0, len(recs))
	for _, r := range recs {
		name, err := r.Stamped("name")
		if err != nil {
			return nil, err
		}
		rs := ReadSet{
			Name:                   name,
			Platform:               r.Optional("platform"),
			Instrument:             r.Optional("instrument"),
			LibrarySource:          r.Optional("library_source"),
			LibrarySelection:       r.Optional("library_selection"),
			LibraryStrategy:        r.Optional("library_strategy"),
			InsertSize:             r.Optional("insert_size"),
			RelatedSampleAccession: r.Optional("related_sample_accession"),
			Paired:                 paired,
			AdditionalManifestRows: r.StringMap("additional_manifest_fields"),
		}
		if title := r.Optional("related_sample_title"); title != "" {
			rs.RelatedSampleTitle = c.applyStamp("related_sample_title", title)
		}
		if paired {
			rs.FastqFiles = []string{r.Optional("fastq1_file"), r.Optional("fastq2_file")}
		} else {
			rs.FastqFiles = []string{r.Optional("fastq_file")}
		}
		out = append(out, rs)
	}
	return out, nil
}

// Assembly returns the assembly record, or nil when absent.
func (c *Config) Assembly() (*Assembly, error) {
	if !c.Has("assembly") {
		return nil, nil
	}
	r, err := c.record("assembly")
	if err != nil {
		return nil, err
	}
	name, err := r.Stamped("name")
	if err != nil {
		return nil, err
	}
	return &Assembly{
		Name:                      name,
		Software:                  r.Optional("software"),
		IsolationSource:           r.Optional("isolation_source"),
		CollectionDate:            r.Optional("collection_date"),
		Location:                  r.Optional("location"),
		FastaFile:                 r.Optional("fasta_file"),
		Coverage:                  r.Optional("coverage"),
		RunAccessions:             r.List("run_accessions"),
		ExistingAnalysisAccession: r.Optional("existing_analysis_accession"),
		ExistingSampleAccession:   r.Optional("existing_coassembly_sample_accession"),
		SamplesheetFields:         r.StringMap("additional_samplesheet_fields"),
		ManifestFields:            r.StringMap("additional_manifest_fields"),
	}, nil
}

// Bins returns the bins record, or nil when absent.
func (c *Config) Bins() (*Bins, error) {
	if !c.Has("bins") {
		return nil, nil
	}
	r, err := c.record("bins")
	if err != nil {
		return nil, err
	}
	b := &Bins{
		Directory:            r.Optional("directory"),
		QualityFile:          r.Optional("quality_file"),
		TaxonomyFiles:        r.List("ncbi_taxonomy_files"),
		ManualTaxonomyFile:   r.Optional("manual_taxonomy_file"),
		BinningSoftware:      r.Optional("binning_software"),
		CompletenessSoftware: r.Optional("completeness_software"),
		CoverageFile:         r.Optional("coverage_file"),
	}
	b.MinCompleteness = floatOr(r.Optional("min_completeness"), 0)
	b.MaxContamination = floatOr(r.Optional("max_contamination"), 100)
	return b, nil
}

// MAGs returns the MAG record, or nil when absent.
func (c *Config) MAGs() (*MAGs, error) {
	if !c.Has("mags") {
		return nil, nil
	}
	r, err := c.record("mags")
	if err != nil {
		return nil, err
	}
	return &MAGs{MetadataFile: r.Optional("metadata_file")}, nil
}

func floatOr(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
