package samplesheet

import (
	"bufio"
	"os"
	"strings"

	"github.com/ena-tools/magsub/config"
)

// Manifest is an ordered list of tab-separated key/value rows consumed
// by the external uploader for one artifact. Rows with empty values are
// skipped at Add time so rendering stays deterministic.
type Manifest struct {
	rows [][2]string
}

// Add appends one row unless the value is empty.
func (m *Manifest) Add(key, value string) {
	if value == "" {
		return
	}
	m.rows = append(m.rows, [2]string{key, value})
}

// AddMap appends the pairs of a free-form field map in sorted key order.
func (m *Manifest) AddMap(fields map[string]string) {
	for _, k := range config.SortedKeys(fields) {
		m.Add(k, fields[k])
	}
}

// Rows exposes the manifest rows for inspection.
func (m *Manifest) Rows() [][2]string { return m.rows }

// WriteFile writes the manifest as tab-separated key/value lines.
func (m *Manifest) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, row := range m.rows {
		if _, err := w.WriteString(row[0] + "\t" + row[1] + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Assembly types used in genome-context manifests.
const (
	AssemblyTypePrimary = "primary metagenome"
	AssemblyTypeBinned  = "binned metagenome"
	AssemblyTypeMAG     = "Metagenome-Assembled Genome (MAG)"
)

// AssemblyManifest is the input for a genome-context manifest.
type AssemblyManifest struct {
	Study           string
	Sample          string
	AssemblyName    string
	AssemblyType    string
	Coverage        string
	Program         string
	Platform        string
	RunAccessions   []string
	FastaPath       string
	FlatfilePath    string
	ChromosomeList  string
	UnlocalisedList string
	Description     string
	Extra           map[string]string
}

// Build renders the manifest rows in the archive's canonical order.
func (a *AssemblyManifest) Build() *Manifest {
	m := &Manifest{}
	m.Add("STUDY", a.Study)
	m.Add("SAMPLE", a.Sample)
	m.Add("ASSEMBLYNAME", a.AssemblyName)
	m.Add("ASSEMBLY_TYPE", a.AssemblyType)
	m.Add("COVERAGE", a.Coverage)
	m.Add("PROGRAM", a.Program)
	m.Add("PLATFORM", a.Platform)
	m.Add("MOLECULETYPE", "genomic DNA")
	m.Add("DESCRIPTION", a.Description)
	m.Add("RUN_REF", joinComma(a.RunAccessions))
	m.Add("FASTA", a.FastaPath)
	m.Add("FLATFILE", a.FlatfilePath)
	m.Add("CHROMOSOME_LIST", a.ChromosomeList)
	m.Add("UNLOCALISED_LIST", a.UnlocalisedList)
	m.AddMap(a.Extra)
	return m
}

// ReadsManifest is the input for a reads-context manifest.
type ReadsManifest struct {
	Study            string
	Sample           string
	Name             string
	Platform         string
	Instrument       string
	InsertSize       string
	LibrarySource    string
	LibrarySelection string
	LibraryStrategy  string
	FastqPaths       []string
	Extra            map[string]string
}

// Build renders the manifest rows in the archive's canonical order. One
// FASTQ row per file; paired sets carry two.
func (r *ReadsManifest) Build() *Manifest {
	m := &Manifest{}
	m.Add("STUDY", r.Study)
	m.Add("SAMPLE", r.Sample)
	m.Add("NAME", r.Name)
	m.Add("PLATFORM", r.Platform)
	m.Add("INSTRUMENT", r.Instrument)
	m.Add("INSERT_SIZE", r.InsertSize)
	m.Add("LIBRARY_SOURCE", r.LibrarySource)
	m.Add("LIBRARY_SELECTION", r.LibrarySelection)
	m.Add("LIBRARY_STRATEGY", r.LibraryStrategy)
	for _, fq := range r.FastqPaths {
		m.Add("FASTQ", fq)
	}
	m.AddMap(r.Extra)
	return m
}

func joinComma(items []string) string {
	return strings.Join(items, ",")
}
