// Package usgs queries the USGS Elevation Point Query Service.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://epqs.nationalmap.gov/v1/json"

// Client fetches ground elevation for a coordinate.
type Client interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the EPQS endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.hc = hc }
}

type httpClient struct {
	baseURL string
	hc      *http.Client
}

// NewClient creates an EPQS client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// epqsResponse is the EPQS v1 JSON response. The service returns the value
// as a quoted string, but bare numbers show up too, so keep it raw.
type epqsResponse struct {
	Value json.RawMessage `json:"value"`
}

// Elevation implements Client, returning elevation in meters.
func (c *httpClient) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	params := url.Values{
		"x":     {fmt.Sprintf("%f", lon)},
		"y":     {fmt.Sprintf("%f", lat)},
		"units": {"Meters"},
		"wkid":  {"4326"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, eris.Wrap(err, "usgs: build request")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "usgs: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("usgs: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "usgs: read body")
	}

	var epqs epqsResponse
	if err := json.Unmarshal(body, &epqs); err != nil {
		return 0, eris.Wrap(err, "usgs: parse response")
	}

	raw := strings.Trim(string(epqs.Value), `"`)
	meters, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "usgs: parse elevation %q", raw)
	}
	return meters, nil
}
