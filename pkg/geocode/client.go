// Package geocode resolves free-text addresses via the Census Geocoder
// (primary) and Google Geocoding API (fallback).
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client resolves a one-line address to coordinates and a state code.
type Client interface {
	// Geocode resolves a single free-text address. An address that no
	// provider can match returns Matched: false, not an error.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	State     string // two-letter state code, if the provider returned one
	Source    string // "census" or "google"
	Quality   string // "rooftop", "range", "approximate"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Census and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for Census API calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(50, 50), // Census default: 50 req/s
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves a single address, trying Census first, then Google if
// configured.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	result, censusErr := g.geocodeCensus(ctx, address)
	if censusErr == nil && result.Matched {
		return result, nil
	}

	if g.googleKey != "" {
		googleResult, googleErr := g.geocodeGoogle(ctx, address)
		if googleErr == nil && googleResult.Matched {
			return googleResult, nil
		}
	}

	if censusErr != nil {
		return nil, censusErr
	}

	// No match from any provider — this is not an error, just unmatched.
	return &Result{Matched: false}, nil
}
