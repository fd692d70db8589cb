package ena

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Suggestion is one candidate from the suggest-for-submission endpoint.
type Suggestion struct {
	TaxID          string `json:"taxId"`
	ScientificName string `json:"scientificName"`
	DisplayName    string `json:"displayName"`
}

// StudyExists reports whether the study accession exists on the target
// endpoint. On the development endpoint an empty result falls back to
// production, because the dev index lags; the fallback is logged so a
// false positive stays visible.
func (c *Client) StudyExists(ctx context.Context, study string) (bool, error) {
	query := fmt.Sprintf(`study_accession="%s" OR secondary_study_accession="%s"`, study, study)
	rows, err := c.search(ctx, c.PortalURL, "study", query, []string{"study_accession"})
	if err != nil {
		return false, err
	}
	if len(rows) > 0 {
		return true, nil
	}
	if !c.Development || c.ProdPortalURL == c.PortalURL {
		return false, nil
	}
	rows, err = c.search(ctx, c.ProdPortalURL, "study", query, []string{"study_accession"})
	if err != nil {
		return false, err
	}
	if len(rows) > 0 {
		c.Logger.Warn().Str("study", study).
			Msg("study missing from the development index but present on production; assuming the dev index lags")
		return true, nil
	}
	return false, nil
}

// SampleAccessionExists reports whether the sample accession exists.
func (c *Client) SampleAccessionExists(ctx context.Context, accession string) (bool, error) {
	query := fmt.Sprintf(`sample_accession="%s" OR secondary_sample_accession="%s"`, accession, accession)
	rows, err := c.search(ctx, c.PortalURL, "sample", query, []string{"sample_accession"})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// SampleAliasAccession returns the accession of the sample with the given
// alias under the study, or "" when none exists.
func (c *Client) SampleAliasAccession(ctx context.Context, study, alias string) (string, error) {
	query := fmt.Sprintf(`sample_alias="%s" AND study_accession="%s"`, alias, study)
	return c.singleAccession(ctx, "sample", query, "sample_accession", "sample alias", alias)
}

// SampleTitleAccession returns the accession of the sample with the given
// title under the study, or "" when none exists.
func (c *Client) SampleTitleAccession(ctx context.Context, study, title string) (string, error) {
	query := fmt.Sprintf(`sample_title="%s" AND study_accession="%s"`, title, study)
	return c.singleAccession(ctx, "sample", query, "sample_accession", "sample title", title)
}

// RunAliasAccession returns the accession of the run with the given alias
// under the study, or "" when none exists.
func (c *Client) RunAliasAccession(ctx context.Context, study, alias string) (string, error) {
	query := fmt.Sprintf(`run_alias="%s" AND study_accession="%s"`, alias, study)
	return c.singleAccession(ctx, "read_run", query, "run_accession", "run alias", alias)
}

func (c *Client) singleAccession(ctx context.Context, result, query, field, what, key string) (string, error) {
	rows, err := c.search(ctx, c.PortalURL, result, query, []string{field})
	if err != nil {
		return "", err
	}
	values := distinct(rows, field)
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		return "", &RemoteAmbiguousError{What: what + " matches", Key: key, Values: values}
	}
}

// SamplesOfAssemblyAnalysis returns the single sample accession backing
// an assembly analysis. A multi-sample analysis is an error: bins can
// only be tied to one derived sample.
func (c *Client) SamplesOfAssemblyAnalysis(ctx context.Context, analysis string) (string, error) {
	query := fmt.Sprintf(`analysis_accession="%s"`, analysis)
	rows, err := c.search(ctx, c.PortalURL, "analysis", query, []string{"sample_accession"})
	if err != nil {
		return "", err
	}
	seen := map[string]bool{}
	var values []string
	for _, row := range rows {
		// The portal packs multiple accessions into one field; both
		// semicolon and newline delimiters occur in the wild.
		for _, v := range strings.FieldsFunc(row["sample_accession"], func(r rune) bool {
			return r == ';' || r == '\n' || r == ','
		}) {
			v = strings.TrimSpace(v)
			if v != "" && !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	switch len(values) {
	case 0:
		return "", &RemoteAbsentError{What: "sample of assembly analysis", Key: analysis}
	case 1:
		return values[0], nil
	default:
		return "", &RemoteAmbiguousError{What: "samples of assembly analysis", Key: analysis, Values: values}
	}
}

// ScientificNameOfSample returns the scientific name recorded for a
// sample accession.
func (c *Client) ScientificNameOfSample(ctx context.Context, accession string) (string, error) {
	query := fmt.Sprintf(`sample_accession="%s" OR secondary_sample_accession="%s"`, accession, accession)
	rows, err := c.search(ctx, c.PortalURL, "sample", query, []string{"scientific_name"})
	if err != nil {
		return "", err
	}
	values := distinct(rows, "scientific_name")
	if len(values) == 0 {
		return "", &RemoteAbsentError{What: "sample", Key: accession}
	}
	return values[0], nil
}

// TaxidOfScientificName returns the taxid registered for a scientific
// name, or "" when the archive does not know the name.
func (c *Client) TaxidOfScientificName(ctx context.Context, name string) (string, error) {
	rawURL := c.TaxonomyURL + "/scientific-name/" + url.PathEscape(name)
	body, _, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", nil
	}
	var entries []struct {
		TaxID string `json:"taxId"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("decoding taxonomy response for %q: %w", name, err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].TaxID, nil
}

// TaxonomySuggestions returns the archive's submission suggestions for a
// free-text taxonomy query. An unknown query yields an empty list.
func (c *Client) TaxonomySuggestions(ctx context.Context, query string) ([]Suggestion, error) {
	rawURL := c.TaxonomyURL + "/suggest-for-submission/" + url.PathEscape(query)
	body, _, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	var suggestions []Suggestion
	if err := json.Unmarshal(body, &suggestions); err != nil {
		return nil, fmt.Errorf("decoding suggestions for %q: %w", query, err)
	}
	return suggestions, nil
}

func distinct(rows []map[string]string, field string) []string {
	seen := map[string]bool{}
	var values []string
	for _, row := range rows {
		v := row[field]
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}
