// Package attom wraps the ATTOM Data property API for comparable sales and
// AVM valuations.
package attom

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

const defaultBaseURL = "https://api.gateway.attomdata.com/propertyapi/v1.0.0"

// Client exposes the ATTOM operations the report engine uses.
type Client interface {
	// SalesSnapshot returns recent sales within radiusMiles of a point.
	SalesSnapshot(ctx context.Context, lat, lon, radiusMiles float64) ([]Sale, error)

	// Valuation returns an AVM estimate for a one-line address.
	Valuation(ctx context.Context, address string) (*Valuation, error)
}

// Sale is one recorded sale near the subject property.
type Sale struct {
	Address    string
	Latitude   float64
	Longitude  float64
	SalePrice  float64
	SaleDate   time.Time
	Beds       int
	Baths      float64
	SquareFeet int
}

// Valuation is an AVM estimate with a confidence score in 0-1.
type Valuation struct {
	EstimatedValue float64
	RangeLow       float64
	RangeHigh      float64
	Confidence     float64
	AsOf           time.Time
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the ATTOM endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithAPIKey sets the ATTOM gateway API key.
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

// NewClient creates an ATTOM client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "attom: build request")
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			return eris.Wrap(err, "attom: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.RetryableStatus(resp.StatusCode) {
			return resilience.MarkTransient(eris.Errorf("attom: returned status %d", resp.StatusCode), resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return eris.Errorf("attom: returned status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "attom: read body")
		}
		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrap(err, "attom: parse response")
		}
		return nil
	})
}

// saleSnapshotResponse mirrors the /sale/snapshot payload.
type saleSnapshotResponse struct {
	Property []struct {
		Address struct {
			OneLine string `json:"oneLine"`
		} `json:"address"`
		Location struct {
			Latitude  string `json:"latitude"`
			Longitude string `json:"longitude"`
		} `json:"location"`
		Building struct {
			Rooms struct {
				Beds       int     `json:"beds"`
				BathsTotal float64 `json:"bathstotal"`
			} `json:"rooms"`
			Size struct {
				UniversalSize int `json:"universalsize"`
			} `json:"size"`
		} `json:"building"`
		Sale struct {
			Amount struct {
				SaleAmt float64 `json:"saleamt"`
			} `json:"amount"`
			SaleTransDate string `json:"saleTransDate"`
		} `json:"sale"`
	} `json:"property"`
}

// SalesSnapshot implements Client.
func (c *httpClient) SalesSnapshot(ctx context.Context, lat, lon, radiusMiles float64) ([]Sale, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", lat)},
		"longitude": {fmt.Sprintf("%f", lon)},
		"radius":    {fmt.Sprintf("%g", radiusMiles)},
		"orderBy":   {"saleTransDate desc"},
		"pagesize":  {"20"},
	}

	var snap saleSnapshotResponse
	if err := c.get(ctx, "/sale/snapshot", params, &snap); err != nil {
		return nil, err
	}

	sales := make([]Sale, 0, len(snap.Property))
	for _, p := range snap.Property {
		if p.Sale.Amount.SaleAmt <= 0 {
			continue
		}
		s := Sale{
			Address:    p.Address.OneLine,
			SalePrice:  p.Sale.Amount.SaleAmt,
			Beds:       p.Building.Rooms.Beds,
			Baths:      p.Building.Rooms.BathsTotal,
			SquareFeet: p.Building.Size.UniversalSize,
		}
		s.Latitude = parseCoord(p.Location.Latitude)
		s.Longitude = parseCoord(p.Location.Longitude)
		if d, err := time.Parse("2006-01-02", p.Sale.SaleTransDate); err == nil {
			s.SaleDate = d
		}
		sales = append(sales, s)
	}
	return sales, nil
}

// avmResponse mirrors the /attomavm/detail payload.
type avmResponse struct {
	Property []struct {
		Avm struct {
			Amount struct {
				Value float64 `json:"value"`
				High  float64 `json:"high"`
				Low   float64 `json:"low"`
				Scr   float64 `json:"scr"` // confidence score 0-100
			} `json:"amount"`
			EventDate string `json:"eventDate"`
		} `json:"avm"`
	} `json:"property"`
}

// Valuation implements Client.
func (c *httpClient) Valuation(ctx context.Context, address string) (*Valuation, error) {
	params := url.Values{
		"address1": {address},
	}

	var avm avmResponse
	if err := c.get(ctx, "/attomavm/detail", params, &avm); err != nil {
		return nil, err
	}

	if len(avm.Property) == 0 || avm.Property[0].Avm.Amount.Value <= 0 {
		return nil, eris.Errorf("attom: no valuation for %q", address)
	}

	a := avm.Property[0].Avm
	v := &Valuation{
		EstimatedValue: a.Amount.Value,
		RangeLow:       a.Amount.Low,
		RangeHigh:      a.Amount.High,
		Confidence:     a.Amount.Scr / 100,
	}
	if d, err := time.Parse("2006-01-02", a.EventDate); err == nil {
		v.AsOf = d
	}
	return v, nil
}

// parseCoord converts ATTOM's string coordinates; malformed values become 0.
func parseCoord(s string) float64 {
	var v float64
	_, _ = fmt.Sscanf(s, "%f", &v)
	return v
}
