package report

import (
	"context"
	"time"

	"github.com/taxdeedflow/property-report/pkg/anthropic"
	"github.com/taxdeedflow/property-report/pkg/attom"
	"github.com/taxdeedflow/property-report/pkg/bls"
	"github.com/taxdeedflow/property-report/pkg/fbi"
	"github.com/taxdeedflow/property-report/pkg/fcc"
	"github.com/taxdeedflow/property-report/pkg/fema"
	"github.com/taxdeedflow/property-report/pkg/geocode"
	"github.com/taxdeedflow/property-report/pkg/noaa"
)

// Function-typed stubs for the collaborator interfaces.

type stubGeocoder struct {
	res *geocode.Result
	err error
}

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	return s.res, s.err
}

type stubFlood func(ctx context.Context, lat, lon float64) (*fema.FloodZone, error)

func (f stubFlood) FloodZone(ctx context.Context, lat, lon float64) (*fema.FloodZone, error) {
	return f(ctx, lat, lon)
}

type stubElevation func(ctx context.Context, lat, lon float64) (float64, error)

func (f stubElevation) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	return f(ctx, lat, lon)
}

type stubClimate func(ctx context.Context, lat, lon float64) (*noaa.Normals, error)

func (f stubClimate) Normals(ctx context.Context, lat, lon float64) (*noaa.Normals, error) {
	return f(ctx, lat, lon)
}

type stubCrime func(ctx context.Context, state string) (*fbi.StateCrime, error)

func (f stubCrime) StateCrime(ctx context.Context, state string) (*fbi.StateCrime, error) {
	return f(ctx, state)
}

type stubBroadband func(ctx context.Context, lat, lon float64) (*fcc.Coverage, error)

func (f stubBroadband) Coverage(ctx context.Context, lat, lon float64) (*fcc.Coverage, error) {
	return f(ctx, lat, lon)
}

type stubLabor func(ctx context.Context, state string) (*bls.Employment, error)

func (f stubLabor) StateEmployment(ctx context.Context, state string) (*bls.Employment, error) {
	return f(ctx, state)
}

type stubProperty struct {
	sales    []attom.Sale
	salesErr error
	val      *attom.Valuation
	valErr   error
}

func (s *stubProperty) SalesSnapshot(ctx context.Context, lat, lon, radiusMiles float64) ([]attom.Sale, error) {
	return s.sales, s.salesErr
}

func (s *stubProperty) Valuation(ctx context.Context, address string) (*attom.Valuation, error) {
	return s.val, s.valErr
}

type stubNarrative struct {
	prompts []string
	resp    *anthropic.MessageResponse
	err     error
}

func (s *stubNarrative) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	for _, m := range req.Messages {
		s.prompts = append(s.prompts, m.Content)
	}
	return s.resp, s.err
}

// healthyClients returns a full set of stubs that all succeed.
func healthyClients() Clients {
	return Clients{
		Flood: stubFlood(func(ctx context.Context, lat, lon float64) (*fema.FloodZone, error) {
			return &fema.FloodZone{Zone: "X", Risk: "minimal"}, nil
		}),
		Elevation: stubElevation(func(ctx context.Context, lat, lon float64) (float64, error) {
			return 31.5, nil
		}),
		Climate: stubClimate(func(ctx context.Context, lat, lon float64) (*noaa.Normals, error) {
			return &noaa.Normals{AnnualPrecipInches: 51.2, AvgTempF: 71.3, Station: "OCALA"}, nil
		}),
		Crime: stubCrime(func(ctx context.Context, state string) (*fbi.StateCrime, error) {
			return &fbi.StateCrime{StateName: "Florida", ViolentRatePer100k: 258.9, PropertyRatePer100k: 1769.9, SafetyRating: 5.8, DataYear: 2024}, nil
		}),
		Broadband: stubBroadband(func(ctx context.Context, lat, lon float64) (*fcc.Coverage, error) {
			return &fcc.Coverage{MaxDownloadMbps: 1000, MaxUploadMbps: 35, ProviderCount: 4}, nil
		}),
		Labor: stubLabor(func(ctx context.Context, state string) (*bls.Employment, error) {
			return &bls.Employment{AreaName: "FL", UnemploymentRate: 3.4, Period: "M06 2026"}, nil
		}),
		Property: &stubProperty{
			sales: []attom.Sale{
				{Address: "325 Oak St", Latitude: 29.1875, Longitude: -82.1405, SalePrice: 215000, SaleDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
				{Address: "17 Far Ave", Latitude: 29.40, Longitude: -82.40, SalePrice: 410000, SaleDate: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
			},
			val: &attom.Valuation{EstimatedValue: 205000, RangeLow: 185000, RangeHigh: 225000, Confidence: 0.92},
		},
	}
}

func matchedGeocoder() *stubGeocoder {
	return &stubGeocoder{res: &geocode.Result{
		Latitude:  29.1872,
		Longitude: -82.1401,
		State:     "FL",
		Source:    "census",
		Quality:   "rooftop",
		Matched:   true,
	}}
}
