// Package samplesheet renders the XML SAMPLE_SET documents and the TSV
// manifests consumed by the archive. Rendering is deterministic:
// attribute insertion order is preserved and empty attribute values are
// omitted.
package samplesheet

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Attribute is one SAMPLE_ATTRIBUTE tag/value pair.
type Attribute struct {
	Tag   string `xml:"TAG"`
	Value string `xml:"VALUE"`
}

// SampleName carries the taxonomy of one sample.
type SampleName struct {
	TaxonID        string `xml:"TAXON_ID"`
	ScientificName string `xml:"SCIENTIFIC_NAME"`
}

// Sample is one SAMPLE element of a SAMPLE_SET.
type Sample struct {
	XMLName    xml.Name    `xml:"SAMPLE"`
	Alias      string      `xml:"alias,attr"`
	Title      string      `xml:"TITLE"`
	Name       SampleName  `xml:"SAMPLE_NAME"`
	Attributes *attributes `xml:"SAMPLE_ATTRIBUTES,omitempty"`
}

type attributes struct {
	Attributes []Attribute `xml:"SAMPLE_ATTRIBUTE"`
}

// SampleSet is a SAMPLE_SET document.
type SampleSet struct {
	XMLName xml.Name `xml:"SAMPLE_SET"`
	Samples []Sample `xml:"SAMPLE"`
}

// NewSample builds a sample. Attributes with empty values are dropped;
// the remaining attributes keep their insertion order.
func NewSample(alias, title, taxonID, scientificName string, attrs []Attribute) Sample {
	s := Sample{
		Alias: alias,
		Title: title,
		Name:  SampleName{TaxonID: taxonID, ScientificName: scientificName},
	}
	var kept []Attribute
	for _, a := range attrs {
		if strings.TrimSpace(a.Value) == "" {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) > 0 {
		s.Attributes = &attributes{Attributes: kept}
	}
	return s
}

// Render marshals the sample set as UTF-8 XML without an XML
// declaration, the form the archive's drop box expects.
func (ss *SampleSet) Render() ([]byte, error) {
	out, err := xml.MarshalIndent(ss, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering sample set: %w", err)
	}
	return append(out, '\n'), nil
}

// WriteFile renders the sample set into path.
func (ss *SampleSet) WriteFile(path string) error {
	data, err := ss.Render()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Submission is the SUBMISSION document paired with a samplesheet in a
// drop-box request.
type Submission struct {
	XMLName xml.Name `xml:"SUBMISSION"`
	Actions submissionActions
}

type submissionActions struct {
	XMLName xml.Name           `xml:"ACTIONS"`
	Actions []submissionAction `xml:"ACTION"`
}

type submissionAction struct {
	Add *struct{} `xml:"ADD,omitempty"`
}

// AddSubmission renders the minimal SUBMISSION document with a single
// ADD action.
func AddSubmission() ([]byte, error) {
	sub := Submission{Actions: submissionActions{Actions: []submissionAction{{Add: &struct{}{}}}}}
	out, err := xml.MarshalIndent(&sub, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
