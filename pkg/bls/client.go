// Package bls queries the Bureau of Labor Statistics public API for state
// unemployment figures (LAUS series).
package bls

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.bls.gov/publicAPI/v2/timeseries/data/"

// stateFIPS maps two-letter state codes to FIPS codes used in LAUS series IDs.
var stateFIPS = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06", "CO": "08", "CT": "09", "DE": "10",
	"FL": "12", "GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18", "IA": "19", "KS": "20",
	"KY": "21", "LA": "22", "ME": "23", "MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33", "NJ": "34", "NM": "35", "NY": "36",
	"NC": "37", "ND": "38", "OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44", "SC": "45",
	"SD": "46", "TN": "47", "TX": "48", "UT": "49", "VT": "50", "VA": "51", "WA": "53", "WV": "54",
	"WI": "55", "WY": "56", "DC": "11",
}

// Client fetches state-level employment indicators.
type Client interface {
	StateEmployment(ctx context.Context, state string) (*Employment, error)
}

// Employment holds the most recent unemployment reading for a state.
type Employment struct {
	AreaName         string
	UnemploymentRate float64
	Period           string // e.g. "M06 2026"
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the BLS endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithAPIKey sets a BLS registration key for higher rate limits.
func WithAPIKey(key string) Option {
	return func(c *httpClient) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.hc = hc }
}

type httpClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// NewClient creates a BLS client.
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

type blsRequest struct {
	SeriesID  []string `json:"seriesid"`
	StartYear string   `json:"startyear"`
	EndYear   string   `json:"endyear"`
	Key       string   `json:"registrationkey,omitempty"`
}

type blsResponse struct {
	Status  string `json:"status"`
	Results struct {
		Series []struct {
			Data []struct {
				Year   string `json:"year"`
				Period string `json:"period"`
				Value  string `json:"value"`
			} `json:"data"`
		} `json:"series"`
	} `json:"Results"`
}

// StateEmployment implements Client using the LAUS statewide unemployment
// rate series.
func (c *httpClient) StateEmployment(ctx context.Context, state string) (*Employment, error) {
	fips, ok := stateFIPS[state]
	if !ok {
		return nil, eris.Errorf("bls: unknown state %q", state)
	}

	year := time.Now().Year()
	payload := blsRequest{
		SeriesID:  []string{fmt.Sprintf("LASST%s0000000000003", fips)},
		StartYear: strconv.Itoa(year - 1),
		EndYear:   strconv.Itoa(year),
		Key:       c.apiKey,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "bls: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "bls: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "bls: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("bls: returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "bls: read body")
	}

	var blsResp blsResponse
	if err := json.Unmarshal(respBody, &blsResp); err != nil {
		return nil, eris.Wrap(err, "bls: parse response")
	}

	if blsResp.Status != "REQUEST_SUCCEEDED" {
		return nil, eris.Errorf("bls: request status %s", blsResp.Status)
	}
	if len(blsResp.Results.Series) == 0 || len(blsResp.Results.Series[0].Data) == 0 {
		return nil, eris.Errorf("bls: no data for state %s", state)
	}

	// BLS returns newest first.
	latest := blsResp.Results.Series[0].Data[0]
	rate, err := strconv.ParseFloat(latest.Value, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "bls: parse rate %q", latest.Value)
	}

	return &Employment{
		AreaName:         state,
		UnemploymentRate: rate,
		Period:           latest.Period + " " + latest.Year,
	}, nil
}
