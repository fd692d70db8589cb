package webin

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/ena-tools/magsub/auth"
	"github.com/ena-tools/magsub/samplesheet"
)

// Drop-box endpoints for programmatic XML submission.
const (
	DropboxURL    = "https://www.ebi.ac.uk/ena/submit/drop-box/submit"
	DevDropboxURL = "https://wwwdev.ebi.ac.uk/ena/submit/drop-box/submit"
)

// Dropbox submits sample set XML documents to the archive's drop-box.
type Dropbox struct {
	URL        string
	HTTPClient *http.Client
	Creds      auth.Credentials
}

// NewDropbox returns a drop-box pointed at the production or development
// service.
func NewDropbox(creds auth.Credentials, development bool) *Dropbox {
	url := DropboxURL
	if development {
		url = DevDropboxURL
	}
	return &Dropbox{URL: url, HTTPClient: http.DefaultClient, Creds: creds}
}

// receipt mirrors the drop-box RECEIPT document. Only the fields this
// tool consumes are mapped.
type receipt struct {
	XMLName xml.Name        `xml:"RECEIPT"`
	Success bool            `xml:"success,attr"`
	Samples []receiptSample `xml:"SAMPLE"`
	Errors  []string        `xml:"MESSAGES>ERROR"`
}

type receiptSample struct {
	Accession string         `xml:"accession,attr"`
	Alias     string         `xml:"alias,attr"`
	ExtIDs    []receiptExtID `xml:"EXT_ID"`
}

type receiptExtID struct {
	Accession string `xml:"accession,attr"`
	Type      string `xml:"type,attr"`
}

// SubmitSamples registers the sample set and returns alias to accession
// assignments. Biosample identifiers are preferred over the archive's
// internal sample accessions when the receipt carries both.
func (d *Dropbox) SubmitSamples(ctx context.Context, set *samplesheet.SampleSet) (map[string]string, error) {
	sampleXML, err := set.Render()
	if err != nil {
		return nil, err
	}
	submissionXML, err := samplesheet.AddSubmission()
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := writeFormFile(form, "SUBMISSION", "submission.xml", submissionXML); err != nil {
		return nil, err
	}
	if err := writeFormFile(form, "SAMPLE", "samples.xml", sampleXML); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.SetBasicAuth(d.Creds.Username, d.Creds.Password)

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drop-box request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drop-box returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return ParseReceipt(raw)
}

// ParseReceipt decodes a RECEIPT document into alias to accession
// assignments.
func ParseReceipt(raw []byte) (map[string]string, error) {
	var r receipt
	if err := xml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse receipt: %w", err)
	}
	if !r.Success {
		return nil, &ReceiptError{Errors: r.Errors}
	}
	accessions := make(map[string]string, len(r.Samples))
	for _, s := range r.Samples {
		accession := s.Accession
		for _, ext := range s.ExtIDs {
			if ext.Type == "biosample" && ext.Accession != "" {
				accession = ext.Accession
			}
		}
		if s.Alias == "" || accession == "" {
			return nil, fmt.Errorf("receipt sample missing alias or accession (alias %q)", s.Alias)
		}
		accessions[s.Alias] = accession
	}
	return accessions, nil
}

func writeFormFile(form *multipart.Writer, field, name string, content []byte) error {
	w, err := form.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// ReceiptError reports a drop-box submission the archive rejected.
type ReceiptError struct {
	Errors []string
}

func (e *ReceiptError) Error() string {
	if len(e.Errors) == 0 {
		return "sample submission rejected by the archive"
	}
	return "sample submission rejected by the archive: " + strings.Join(e.Errors, "; ")
}
