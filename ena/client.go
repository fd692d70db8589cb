// Package ena provides a read-only client for the ENA portal search and
// taxonomy endpoints.
//
// Every call is preceded by an OPTIONS reachability probe and passes
// through a process-global token bucket so the archive never sees more
// than RequestsPerSecond requests in any one-second window.
package ena

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultPortalURL is the production portal API endpoint.
	DefaultPortalURL = "https://www.ebi.ac.uk/ena/portal/api"
	// DevPortalURL is the development portal API endpoint. Its index is
	// known to lag behind production.
	DevPortalURL = "https://wwwdev.ebi.ac.uk/ena/portal/api"
	// DefaultTaxonomyURL is the taxonomy REST endpoint.
	DefaultTaxonomyURL = "https://www.ebi.ac.uk/ena/taxonomy/rest"

	// RequestsPerSecond is the global request budget against the archive.
	RequestsPerSecond = 50
	// ProbeTimeout bounds the reachability probe before each call.
	ProbeTimeout = 5 * time.Second
)

// Client provides access to the archive's read-only endpoints.
type Client struct {
	PortalURL     string
	ProdPortalURL string
	TaxonomyURL   string
	HTTPClient    *http.Client
	Development   bool
	Logger        zerolog.Logger

	limiter *rate.Limiter
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithDevelopment selects the development portal endpoint. Study lookups
// that come back empty on dev fall back to production.
func WithDevelopment(dev bool) ClientOption {
	return func(c *Client) {
		c.Development = dev
		if dev {
			c.PortalURL = DevPortalURL
		}
	}
}

// WithPortalURL overrides the portal endpoint (and the production
// fallback endpoint).
func WithPortalURL(u string) ClientOption {
	return func(c *Client) {
		c.PortalURL = strings.TrimSuffix(u, "/")
		c.ProdPortalURL = c.PortalURL
	}
}

// WithProdPortalURL overrides only the production fallback endpoint.
func WithProdPortalURL(u string) ClientOption {
	return func(c *Client) {
		c.ProdPortalURL = strings.TrimSuffix(u, "/")
	}
}

// WithTaxonomyURL overrides the taxonomy endpoint.
func WithTaxonomyURL(u string) ClientOption {
	return func(c *Client) {
		c.TaxonomyURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = httpClient
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.Logger = logger
	}
}

// WithRateLimit overrides the request budget. Tests use this to avoid
// pacing; production code should leave the default.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewClient creates an archive client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		PortalURL:     DefaultPortalURL,
		ProdPortalURL: DefaultPortalURL,
		TaxonomyURL:   DefaultTaxonomyURL,
		HTTPClient:    &http.Client{},
		Logger:        zerolog.Nop(),
		limiter:       rate.NewLimiter(rate.Limit(RequestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// probe checks endpoint reachability with an OPTIONS request. Connection
// failures are reported as ServerUnreachableError, 5xx responses as
// ServerError; anything else passes.
func (c *Client) probe(ctx context.Context, rawURL string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodOptions, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating probe request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &ServerUnreachableError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return &ServerError{URL: rawURL, Status: resp.Status, StatusCode: resp.StatusCode}
	}
	return nil
}

// get performs a probed, rate-limited GET. 4xx responses are not fatal:
// the caller receives a nil body and the status code.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	if err := c.probe(ctx, rawURL); err != nil {
		return nil, 0, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, &ServerUnreachableError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, resp.StatusCode, &ServerError{URL: rawURL, Status: resp.Status, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		// Absent, not fatal.
		c.Logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Msg("archive returned client error, treating as absent")
		return nil, resp.StatusCode, nil
	}
	return body, resp.StatusCode, nil
}

// search queries the portal search endpoint and parses the TSV response
// into one map per row.
func (c *Client) search(ctx context.Context, portalURL, result, query string, fields []string) ([]map[string]string, error) {
	params := url.Values{}
	params.Set("result", result)
	params.Set("query", query)
	params.Set("fields", strings.Join(fields, ","))
	params.Set("format", "tsv")

	rawURL := portalURL + "/search?" + params.Encode()
	body, _, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return parseTSV(body), nil
}

// parseTSV parses a headered portal TSV payload.
func parseTSV(body []byte) []map[string]string {
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}
	headers := strings.Split(lines[0], "\t")
	var rows []map[string]string
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(fields) {
				row[h] = strings.TrimSpace(fields[i])
			}
		}
		rows = append(rows, row)
	}
	return rows
}
