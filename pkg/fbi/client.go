// Package fbi queries the FBI Crime Data Explorer for state-level crime
// estimates and derives a 0-10 safety rating against national averages.
package fbi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/taxdeedflow/property-report/internal/resilience"
)

const defaultBaseURL = "https://api.usa.gov/crime/fbi/cde"

// National crime rate averages per 100,000 population (2022 estimates).
const (
	nationalViolentRate  = 380.0
	nationalPropertyRate = 1954.0
)

// Client fetches state-level crime statistics.
type Client interface {
	StateCrime(ctx context.Context, state string) (*StateCrime, error)
}

// StateCrime holds per-100k crime rates and a derived safety rating.
type StateCrime struct {
	StateName           string
	ViolentRatePer100k  float64
	PropertyRatePer100k float64
	SafetyRating        float64 // 0-10, higher is safer
	DataYear            int
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the CDE endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithAPIKey sets the api.usa.gov API key.
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
	retry   resilience.RetryConfig
}

// NewClient creates a Crime Data Explorer client.
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

// cdeEstimate is one yearly row from the CDE estimates endpoint.
type cdeEstimate struct {
	Year          int     `json:"year"`
	StateName     string  `json:"state_name"`
	Population    float64 `json:"population"`
	ViolentCrime  float64 `json:"violent_crime"`
	PropertyCrime float64 `json:"property_crime"`
}

type cdeResponse struct {
	Results []cdeEstimate `json:"results"`
}

// StateCrime implements Client. The state argument is a two-letter
// abbreviation.
func (c *httpClient) StateCrime(ctx context.Context, state string) (*StateCrime, error) {
	if state == "" {
		return nil, eris.New("fbi: state is required")
	}

	to := time.Now().Year()
	from := to - 3
	reqURL := fmt.Sprintf("%s/estimate/state/%s/%d/%d", c.baseURL, url.PathEscape(state), from, to)
	if c.apiKey != "" {
		reqURL += "?API_KEY=" + url.QueryEscape(c.apiKey)
	}

	var cde cdeResponse
	err := resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return eris.Wrap(err, "fbi: build request")
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			return eris.Wrap(err, "fbi: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.MarkTransient(eris.Errorf("fbi: returned status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return eris.Errorf("fbi: returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "fbi: read body")
		}
		if err := json.Unmarshal(body, &cde); err != nil {
			return eris.Wrap(err, "fbi: parse response")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(cde.Results) == 0 {
		return nil, eris.Errorf("fbi: no estimates for state %s", state)
	}

	// Use the most recent year with a usable population figure.
	latest := cde.Results[0]
	for _, r := range cde.Results[1:] {
		if r.Year > latest.Year && r.Population > 0 {
			latest = r
		}
	}
	if latest.Population <= 0 {
		return nil, eris.Errorf("fbi: estimate for state %s has no population", state)
	}

	violentRate := latest.ViolentCrime / latest.Population * 100000
	propertyRate := latest.PropertyCrime / latest.Population * 100000

	return &StateCrime{
		StateName:           latest.StateName,
		ViolentRatePer100k:  round2(violentRate),
		PropertyRatePer100k: round2(propertyRate),
		SafetyRating:        safetyRating(violentRate, propertyRate),
		DataYear:            latest.Year,
	}, nil
}

// safetyRating converts crime rates into a 0-10 score, where 5 matches the
// national average and lower crime scores higher. Violent crime is weighted
// double.
func safetyRating(violentRate, propertyRate float64) float64 {
	violentRatio := violentRate / nationalViolentRate
	propertyRatio := propertyRate / nationalPropertyRate
	combined := (violentRatio*2 + propertyRatio) / 3

	rating := 10 - combined*5
	if rating < 0 {
		rating = 0
	}
	if rating > 10 {
		rating = 10
	}
	return round2(rating)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
