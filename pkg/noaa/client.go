// Package noaa queries NCEI annual climate normals for the station nearest
// a coordinate.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/taxdeedflow/property-report/internal/resilience"
)

const defaultBaseURL = "https://www.ncei.noaa.gov/access/services/data/v1"

// Client fetches long-term climate normals near a coordinate.
type Client interface {
	Normals(ctx context.Context, lat, lon float64) (*Normals, error)
}

// Normals holds 30-year annual climate normals from the nearest station.
type Normals struct {
	AnnualPrecipInches float64
	AvgTempF           float64
	Station            string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the NCEI endpoint (used in tests).
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
	retry   resilience.RetryConfig
}

// NewClient creates an NCEI climate normals client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: 20 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalsRow is one station row from the normals-annual dataset.
type normalsRow struct {
	Station     string `json:"STATION"`
	AnnPrcpNorm string `json:"ANN-PRCP-NORMAL"`
	AnnTavgNorm string `json:"ANN-TAVG-NORMAL"`
}

// Normals implements Client. NCEI resolves the bounding box to the stations
// it covers; a half-degree box around the point keeps the result local.
func (c *httpClient) Normals(ctx context.Context, lat, lon float64) (*Normals, error) {
	bbox := fmt.Sprintf("%f,%f,%f,%f", lat+0.25, lon-0.25, lat-0.25, lon+0.25)
	params := url.Values{
		"dataset":     {"normals-annual-1991-2020"},
		"dataTypes":   {"ANN-PRCP-NORMAL,ANN-TAVG-NORMAL"},
		"boundingBox": {bbox},
		"format":      {"json"},
		"limit":       {"1"},
	}

	var rows []normalsRow
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "noaa: build request")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return eris.Wrap(err, "noaa: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.MarkTransient(eris.Errorf("noaa: returned status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return eris.Errorf("noaa: returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "noaa: read body")
		}
		if err := json.Unmarshal(body, &rows); err != nil {
			return eris.Wrap(err, "noaa: parse response")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, eris.New("noaa: no station within bounding box")
	}

	row := rows[0]
	precip, err := strconv.ParseFloat(row.AnnPrcpNorm, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "noaa: parse precip %q", row.AnnPrcpNorm)
	}
	temp, err := strconv.ParseFloat(row.AnnTavgNorm, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "noaa: parse temp %q", row.AnnTavgNorm)
	}

	return &Normals{
		AnnualPrecipInches: precip,
		AvgTempF:           temp,
		Station:            row.Station,
	}, nil
}
