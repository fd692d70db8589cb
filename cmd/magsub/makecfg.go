package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	makecfgOutput string
	makecfgForce  bool
)

var makecfgCmd = &cobra.Command{
	Use:   "makecfg",
	Short: "Write a commented configuration template",
	RunE:  runMakecfg,
}

func init() {
	makecfgCmd.Flags().StringVar(&makecfgOutput, "output", "config.yaml", "where to write the template")
	makecfgCmd.Flags().BoolVar(&makecfgForce, "force", false, "overwrite an existing file")
}

func runMakecfg(cmd *cobra.Command, args []string) error {
	if !makecfgForce {
		if _, err := os.Stat(makecfgOutput); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", makecfgOutput)
		}
	}
	if err := os.WriteFile(makecfgOutput, []byte(configTemplate), 0o644); err != nil {
		return err
	}
	fmt.Printf("Wrote configuration template to %s.\n", makecfgOutput)
	return nil
}

const configTemplate = `# Submission configuration template.
# Remove the sections you are not submitting and fill in the rest.

# Accession of the archive study (project) the submission belongs to.
study: "PRJEB00000"

# Short project name used in sample attributes.
project_name: "my metagenome project"

# Taxid and scientific name of the environmental taxon, e.g.
# 410658 / "soil metagenome". See the archive's environmental taxonomy.
metagenome_taxid: "410658"
metagenome_scientific_name: "soil metagenome"

# New samples to register. Remove when reusing existing samples.
new_samples:
  - title: "sample 1"
    collection_date: "2023-03"
    location: "France"
    attributes:
      "broad-scale environmental context": "agricultural soil"

# Existing sample accessions backing the assembly, used when no new
# samples are registered.
#sample_accessions: [SAMEA0000001, SAMEA0000002]

# Read sets. fastq files may be gzipped.
paired_reads:
  - name: "run 1"
    platform: "ILLUMINA"
    instrument: "Illumina MiSeq"
    library_source: "METAGENOMIC"
    library_selection: "RANDOM"
    library_strategy: "WGS"
    insert_size: "300"
    related_sample_title: "sample 1"
    fastq1_file: "/path/to/reads_1.fastq.gz"
    fastq2_file: "/path/to/reads_2.fastq.gz"

#single_reads:
#  - name: "run 2"
#    platform: "OXFORD_NANOPORE"
#    instrument: "MinION"
#    library_source: "METAGENOMIC"
#    library_selection: "RANDOM"
#    library_strategy: "WGS"
#    related_sample_title: "sample 1"
#    fastq_file: "/path/to/reads.fastq.gz"

assembly:
  name: "asm1"
  software: "metaSPAdes_v3.15"
  collection_date: "2023-03"
  location: "France"
  isolation_source: "agricultural topsoil"
  fasta_file: "/path/to/assembly.fasta"
  # Tabular coverage value; remove when bam_files are given instead.
  coverage: "20.5"
  # Run accessions backing the assembly when reads are not submitted
  # in the same run.
  #run_accessions: [ERR0000001]
  # For bin-only submissions against an archived assembly:
  #existing_analysis_accession: "ERZ0000001"
  #existing_coassembly_sample_accession: "SAMEA0000003"

bins:
  directory: "/path/to/bins"
  quality_file: "/path/to/checkm_quality.tsv"
  ncbi_taxonomy_files:
    - "/path/to/gtdbtk_ncbi_majority_vote.tsv"
  #manual_taxonomy_file: "/path/to/manual_taxonomy.tsv"
  binning_software: "metabat2_v2.15"
  completeness_software: "CheckM"
  min_completeness: "50"
  max_contamination: "10"
  # Tabular per-bin coverage; remove when bam_files are given instead.
  coverage_file: "/path/to/bin_coverage.tsv"

#mags:
#  metadata_file: "/path/to/mag_metadata.tsv"

# Depth-based coverage: reads mapped back to the assembly. Exactly one
# of bam_files or the tabular coverage values above must be provided.
#bam_files:
#  - "/path/to/mapping1.bam"
`
