package report

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/taxdeedflow/property-report/internal/model"
	"github.com/taxdeedflow/property-report/pkg/anthropic"
	"github.com/taxdeedflow/property-report/pkg/geocode"
)

// Engine orchestrates one report run: resolve the address, fan out over
// the source catalog, then synthesize the narrative over whatever arrived.
type Engine struct {
	geocoder       geocode.Client
	narrative      anthropic.Client
	catalog        []Source
	narrativeModel string
	phaseDeadline  time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPhaseDeadline bounds how long each phase may wait on its sources.
func WithPhaseDeadline(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.phaseDeadline = d
		}
	}
}

// WithNarrativeModel overrides the model used for narrative synthesis.
func WithNarrativeModel(m string) EngineOption {
	return func(e *Engine) {
		if m != "" {
			e.narrativeModel = m
		}
	}
}

// NewEngine builds an engine over the given collaborators. Nil handles are
// allowed; their sources simply never run.
func NewEngine(geocoder geocode.Client, narrative anthropic.Client, clients Clients, opts ...EngineOption) (*Engine, error) {
	catalog := BuildCatalog(clients)
	if err := ValidateCatalog(catalog); err != nil {
		return nil, err
	}

	e := &Engine{
		geocoder:       geocoder,
		narrative:      narrative,
		catalog:        catalog,
		narrativeModel: defaultNarrativeModel,
		phaseDeadline:  DefaultPhaseDeadline,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// GenerateReport runs the full pipeline for one address. Individual source
// failures degrade the report rather than failing the run; the only error
// returned is a missing address.
func (e *Engine) GenerateReport(ctx context.Context, req model.Request) (*model.EnrichedRecord, error) {
	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, eris.New("report: address is required")
	}

	opts := req.Options
	if opts.RadiusMiles <= 0 {
		opts.RadiusMiles = model.DefaultRadiusMiles
	}

	log := zap.L().With(zap.String("address", address))
	log.Info("report: starting run")

	rec := &model.EnrichedRecord{
		Property: model.Property{
			Address:  address,
			ParcelID: req.ParcelID,
		},
		Metadata: model.Metadata{
			FetchedAt:        time.Now().UTC(),
			SourcesAttempted: []string{},
			SourcesSucceeded: []string{},
			SourcesFailed:    []string{},
			Outcomes:         []model.SourceOutcome{},
		},
	}

	in := Input{
		Address:     address,
		ParcelID:    req.ParcelID,
		RadiusMiles: opts.RadiusMiles,
	}
	e.resolve(ctx, req, rec, &in)

	outcomes := RunSources(ctx, e.catalog, in, opts, e.phaseDeadline)
	MergeOutcomes(rec, outcomes)

	// Narrative runs only once the fan-out has fully settled, and only
	// when there is something to summarize.
	if opts.IncludeNarrative && e.narrative != nil && len(rec.Metadata.SourcesSucceeded) > 0 {
		MergeOutcomes(rec, []Outcome{e.synthesize(ctx, rec)})
	}

	rec.Metadata.DataQuality = Grade(len(rec.Metadata.SourcesAttempted), len(rec.Metadata.SourcesSucceeded))

	log.Info("report: run complete",
		zap.Int("attempted", len(rec.Metadata.SourcesAttempted)),
		zap.Int("succeeded", len(rec.Metadata.SourcesSucceeded)),
		zap.Int("failed", len(rec.Metadata.SourcesFailed)),
		zap.String("quality", string(rec.Metadata.DataQuality)))
	return rec, nil
}

// resolve fills in the coordinates and jurisdiction prerequisites. A
// caller-supplied state wins over anything inferred; geocoding is booked
// as a failed source only when it fails, so coordinate-dependent sources
// downstream are skipped rather than failed.
func (e *Engine) resolve(ctx context.Context, req model.Request, rec *model.EnrichedRecord, in *Input) {
	if s := strings.TrimSpace(req.State); s != "" {
		in.State = strings.ToUpper(s)
	} else {
		in.State = ExtractState(req.Address)
	}

	if e.geocoder != nil {
		start := time.Now()
		res, err := e.geocoder.Geocode(ctx, in.Address)
		switch {
		case err != nil:
			MergeOutcomes(rec, []Outcome{failureOutcome("geocode", err.Error(), start)})
		case !res.Matched:
			MergeOutcomes(rec, []Outcome{failureOutcome("geocode", "no geocoding match", start)})
		default:
			coords := &model.Coordinates{
				Latitude:  res.Latitude,
				Longitude: res.Longitude,
				Source:    res.Source,
				Quality:   res.Quality,
			}
			rec.Property.Coordinates = coords
			in.Coordinates = coords
			if in.State == "" && res.State != "" {
				in.State = strings.ToUpper(res.State)
			}
		}
	}

	rec.Property.State = in.State
}
