package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/taxdeedflow/property-report/internal/report"
	"github.com/taxdeedflow/property-report/internal/store"
	anthropicpkg "github.com/taxdeedflow/property-report/pkg/anthropic"
	"github.com/taxdeedflow/property-report/pkg/attom"
	"github.com/taxdeedflow/property-report/pkg/bls"
	"github.com/taxdeedflow/property-report/pkg/fbi"
	"github.com/taxdeedflow/property-report/pkg/fcc"
	"github.com/taxdeedflow/property-report/pkg/fema"
	"github.com/taxdeedflow/property-report/pkg/geocode"
	"github.com/taxdeedflow/property-report/pkg/noaa"
	"github.com/taxdeedflow/property-report/pkg/usgs"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "property-report.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildEngine wires the report engine from configuration. Sources without a
// configured API key are left out of the catalog; their data simply appears
// as absent in the generated reports.
func buildEngine() (*report.Engine, error) {
	var geoOpts []geocode.Option
	if cfg.Geocode.GoogleKey != "" {
		geoOpts = append(geoOpts, geocode.WithGoogleAPIKey(cfg.Geocode.GoogleKey))
	}
	geocoder := geocode.NewClient(geoOpts...)

	clients := report.Clients{
		Flood:     fema.NewClient(fema.WithBaseURL(cfg.FEMA.BaseURL)),
		Elevation: usgs.NewClient(usgs.WithBaseURL(cfg.USGS.BaseURL)),
		Climate:   noaa.NewClient(noaa.WithBaseURL(cfg.NOAA.BaseURL)),
		Broadband: fcc.NewClient(fcc.WithBaseURL(cfg.FCC.BaseURL)),
	}
	if cfg.FBI.Key != "" {
		clients.Crime = fbi.NewClient(fbi.WithBaseURL(cfg.FBI.BaseURL), fbi.WithAPIKey(cfg.FBI.Key))
	}
	if cfg.BLS.Key != "" {
		clients.Labor = bls.NewClient(bls.WithBaseURL(cfg.BLS.BaseURL), bls.WithAPIKey(cfg.BLS.Key))
	}
	if cfg.Attom.Key != "" {
		clients.Property = attom.NewClient(attom.WithBaseURL(cfg.Attom.BaseURL), attom.WithAPIKey(cfg.Attom.Key))
	}

	var narrative anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		narrative = anthropicpkg.NewClient(cfg.Anthropic.Key)
	}

	return report.NewEngine(geocoder, narrative, clients,
		report.WithPhaseDeadline(time.Duration(cfg.Report.PhaseDeadlineSecs)*time.Second),
		report.WithNarrativeModel(cfg.Anthropic.Model),
	)
}
