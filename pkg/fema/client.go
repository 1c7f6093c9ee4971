// Package fema queries the FEMA National Flood Hazard Layer for flood zone
// designations at a point.
package fema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer/28/query"

// Client fetches the flood zone designation for a coordinate.
type Client interface {
	FloodZone(ctx context.Context, lat, lon float64) (*FloodZone, error)
}

// FloodZone is the NFHL designation at a point.
type FloodZone struct {
	Zone    string // e.g. "AE", "X", "VE"
	Subtype string // e.g. "0.2 PCT ANNUAL CHANCE FLOOD HAZARD"
	SFHA    bool   // special flood hazard area (zones A*/V*)
	Risk    string // "high", "moderate", "minimal", "undetermined"
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the NFHL query endpoint (used in tests).
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

// NewClient creates an NFHL client.
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

// nfhlResponse is the ArcGIS feature query response.
type nfhlResponse struct {
	Features []struct {
		Attributes struct {
			FldZone   string `json:"FLD_ZONE"`
			ZoneSubty string `json:"ZONE_SUBTY"`
		} `json:"attributes"`
	} `json:"features"`
}

// FloodZone implements Client.
func (c *httpClient) FloodZone(ctx context.Context, lat, lon float64) (*FloodZone, error) {
	params := url.Values{
		"geometry":       {fmt.Sprintf("%f,%f", lon, lat)},
		"geometryType":   {"esriGeometryPoint"},
		"inSR":           {"4326"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"outFields":      {"FLD_ZONE,ZONE_SUBTY"},
		"returnGeometry": {"false"},
		"f":              {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fema: build request")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fema: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fema: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fema: read body")
	}

	var nfhl nfhlResponse
	if err := json.Unmarshal(body, &nfhl); err != nil {
		return nil, eris.Wrap(err, "fema: parse response")
	}

	if len(nfhl.Features) == 0 {
		return &FloodZone{Zone: "X", Risk: "undetermined"}, nil
	}

	attrs := nfhl.Features[0].Attributes
	zone := strings.ToUpper(strings.TrimSpace(attrs.FldZone))
	return &FloodZone{
		Zone:    zone,
		Subtype: attrs.ZoneSubty,
		SFHA:    isSFHA(zone),
		Risk:    riskForZone(zone, attrs.ZoneSubty),
	}, nil
}

// isSFHA reports whether the zone is a special flood hazard area.
func isSFHA(zone string) bool {
	return strings.HasPrefix(zone, "A") || strings.HasPrefix(zone, "V")
}

// riskForZone maps an NFHL zone to a coarse risk label.
func riskForZone(zone, subtype string) string {
	switch {
	case zone == "":
		return "undetermined"
	case isSFHA(zone):
		return "high"
	case zone == "X" && strings.Contains(strings.ToUpper(subtype), "0.2 PCT"):
		return "moderate"
	case zone == "X" || zone == "C" || zone == "B":
		return "minimal"
	default:
		return "undetermined"
	}
}
