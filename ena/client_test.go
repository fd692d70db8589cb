package ena

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestClient points every endpoint at the test server and removes the
// request pacing so tests run fast.
func newTestClient(serverURL string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithPortalURL(serverURL + "/portal"),
		WithTaxonomyURL(serverURL + "/taxonomy"),
		WithRateLimit(10000),
	}
	return NewClient(append(base, opts...)...)
}

func TestStudyExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		if got := r.URL.Query().Get("result"); got != "study" {
			t.Errorf("result = %q, want study", got)
		}
		fmt.Fprint(w, "study_accession\nPRJEB71644\n")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ok, err := c.StudyExists(context.Background(), "PRJEB71644")
	if err != nil {
		t.Fatalf("StudyExists() error = %v", err)
	}
	if !ok {
		t.Error("StudyExists() = false, want true")
	}
}

func TestStudyExistsDevFallback(t *testing.T) {
	prod := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, "study_accession\nPRJEB1\n")
	}))
	defer prod.Close()

	dev := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Empty dev index: header only.
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, "study_accession\n")
	}))
	defer dev.Close()

	c := NewClient(
		WithPortalURL(dev.URL),
		WithProdPortalURL(prod.URL),
		WithRateLimit(10000),
	)
	c.Development = true

	ok, err := c.StudyExists(context.Background(), "PRJEB1")
	if err != nil {
		t.Fatalf("StudyExists() error = %v", err)
	}
	if !ok {
		t.Error("StudyExists() = false, want true via prod fallback")
	}
}

func TestSampleAliasAccession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, "sample_accession\nSAMEA112223334\n")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	acc, err := c.SampleAliasAccession(context.Background(), "PRJEB1", "digester_a")
	if err != nil {
		t.Fatalf("SampleAliasAccession() error = %v", err)
	}
	if acc != "SAMEA112223334" {
		t.Errorf("accession = %q, want SAMEA112223334", acc)
	}
}

func TestSampleAliasAccessionAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		// The portal answers 204 with no body when nothing matches.
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	acc, err := c.SampleAliasAccession(context.Background(), "PRJEB1", "nope")
	if err != nil {
		t.Fatalf("SampleAliasAccession() error = %v", err)
	}
	if acc != "" {
		t.Errorf("accession = %q, want empty", acc)
	}
}

func TestSamplesOfAssemblyAnalysisSingle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, "sample_accession\nSAMEA1\n")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	acc, err := c.SamplesOfAssemblyAnalysis(context.Background(), "ERZ123")
	if err != nil {
		t.Fatalf("SamplesOfAssemblyAnalysis() error = %v", err)
	}
	if acc != "SAMEA1" {
		t.Errorf("accession = %q, want SAMEA1", acc)
	}
}

func TestSamplesOfAssemblyAnalysisMultiple(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, "sample_accession\nSAMEA1;SAMEA2\n")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.SamplesOfAssemblyAnalysis(context.Background(), "ERZ123")
	var ambiguous *RemoteAmbiguousError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("error = %v, want RemoteAmbiguousError", err)
	}
	if len(ambiguous.Values) != 2 {
		t.Errorf("len(Values) = %d, want 2", len(ambiguous.Values))
	}
}

func TestTaxonomySuggestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, `[{"taxId":"561","scientificName":"Escherichia sp.","displayName":"Escherichia sp."}]`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	got, err := c.TaxonomySuggestions(context.Background(), "Escherichia sp.")
	if err != nil {
		t.Fatalf("TaxonomySuggestions() error = %v", err)
	}
	if len(got) != 1 || got[0].TaxID != "561" {
		t.Errorf("suggestions = %+v, want one entry with taxId 561", got)
	}
}

func TestTaxidOfScientificNameAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	taxid, err := c.TaxidOfScientificName(context.Background(), "No such organism")
	if err != nil {
		t.Fatalf("TaxidOfScientificName() error = %v", err)
	}
	if taxid != "" {
		t.Errorf("taxid = %q, want empty", taxid)
	}
}

func TestServerErrorOnProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.StudyExists(context.Background(), "PRJEB1")
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error = %v, want ServerError", err)
	}
}

func TestServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := newTestClient(server.URL)
	_, err := c.StudyExists(context.Background(), "PRJEB1")
	var unreachable *ServerUnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("error = %v, want ServerUnreachableError", err)
	}
}

func TestRateLimiterPacesRequests(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Method == http.MethodOptions {
			return
		}
		fmt.Fprint(w, "study_accession\nPRJEB1\n")
	}))
	defer server.Close()

	// 20 req/s budget; each StudyExists call costs two requests (probe +
	// GET), so three calls need at least 5 limiter intervals.
	c := newTestClient(server.URL, WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.StudyExists(context.Background(), "PRJEB1"); err != nil {
			t.Fatalf("StudyExists() error = %v", err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 200*time.Millisecond {
		t.Errorf("3 calls (%d requests) completed in %v, limiter not pacing", hits, elapsed)
	}
}
