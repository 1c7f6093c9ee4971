// Package fcc queries the FCC National Broadband Map for fixed-broadband
// availability at a point.
package fcc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://broadbandmap.fcc.gov/api/public/map"

// Client fetches fixed-broadband coverage for a coordinate.
type Client interface {
	Coverage(ctx context.Context, lat, lon float64) (*Coverage, error)
}

// Coverage summarizes the best available fixed-broadband service at a point.
type Coverage struct {
	MaxDownloadMbps float64
	MaxUploadMbps   float64
	ProviderCount   int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the broadband map endpoint (used in tests).
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

// NewClient creates a National Broadband Map client.
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

// coverageResponse mirrors the broadband map availability payload.
type coverageResponse struct {
	Data []struct {
		ProviderName string  `json:"provider_name"`
		MaxDownload  float64 `json:"max_advertised_download_speed"`
		MaxUpload    float64 `json:"max_advertised_upload_speed"`
	} `json:"data"`
}

// Coverage implements Client.
func (c *httpClient) Coverage(ctx context.Context, lat, lon float64) (*Coverage, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", lat)},
		"longitude": {fmt.Sprintf("%f", lon)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/coverage?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fcc: build request")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fcc: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fcc: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fcc: read body")
	}

	var cov coverageResponse
	if err := json.Unmarshal(body, &cov); err != nil {
		return nil, eris.Wrap(err, "fcc: parse response")
	}

	result := &Coverage{}
	providers := make(map[string]struct{})
	for _, d := range cov.Data {
		if d.ProviderName != "" {
			providers[d.ProviderName] = struct{}{}
		}
		if d.MaxDownload > result.MaxDownloadMbps {
			result.MaxDownloadMbps = d.MaxDownload
		}
		if d.MaxUpload > result.MaxUploadMbps {
			result.MaxUploadMbps = d.MaxUpload
		}
	}
	result.ProviderCount = len(providers)
	return result, nil
}
