package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taxdeedflow/property-report/internal/model"
	"github.com/taxdeedflow/property-report/pkg/anthropic"
	"github.com/taxdeedflow/property-report/pkg/fbi"
	"github.com/taxdeedflow/property-report/pkg/fema"
	"github.com/taxdeedflow/property-report/pkg/geocode"
)

const testAddress = "321 Oak St, Ocala, FL 34471"

func newTestEngine(t *testing.T, geo *stubGeocoder, narrative *stubNarrative, clients Clients) *Engine {
	t.Helper()
	var nc anthropic.Client
	if narrative != nil {
		nc = narrative
	}
	e, err := NewEngine(geo, nc, clients, WithPhaseDeadline(2*time.Second))
	require.NoError(t, err)
	return e
}

func TestGenerateReportHappyPath(t *testing.T) {
	narrative := &stubNarrative{resp: &anthropic.MessageResponse{
		Model: "claude-sonnet-4-5",
		Text:  "A tidy three-bedroom in a quiet Ocala neighborhood.",
		Usage: anthropic.TokenUsage{InputTokens: 900, OutputTokens: 120},
	}}

	e := newTestEngine(t, matchedGeocoder(), narrative, healthyClients())
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress,
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	require.NotNil(t, rec.Property.Coordinates)
	assert.Equal(t, "FL", rec.Property.State)

	require.NotNil(t, rec.Valuation)
	assert.Equal(t, 205000.0, rec.Valuation.EstimatedValue)
	require.NotNil(t, rec.Comparables)
	require.NotNil(t, rec.Location)
	assert.NotNil(t, rec.Location.Crime)
	assert.NotNil(t, rec.Location.Broadband)
	require.NotNil(t, rec.Environmental)
	assert.NotNil(t, rec.Environmental.Flood)
	assert.NotNil(t, rec.Environmental.Elevation)
	assert.NotNil(t, rec.Environmental.Climate)
	require.NotNil(t, rec.Economic)
	require.NotNil(t, rec.AINarrative)
	assert.Contains(t, rec.AINarrative.Text, "Ocala")

	// 8 catalog sources plus the narrative, all successful.
	assert.Len(t, rec.Metadata.SourcesAttempted, 9)
	assert.Len(t, rec.Metadata.SourcesSucceeded, 9)
	assert.Empty(t, rec.Metadata.SourcesFailed)
	assert.Equal(t, model.DataQualityComplete, rec.Metadata.DataQuality)
}

func TestGenerateReportEmptyAddress(t *testing.T) {
	e := newTestEngine(t, matchedGeocoder(), nil, healthyClients())

	_, err := e.GenerateReport(context.Background(), model.Request{Address: "   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestGenerateReportGeocodeFailure(t *testing.T) {
	geo := &stubGeocoder{err: assert.AnError}

	e := newTestEngine(t, geo, nil, healthyClients())
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress,
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.Nil(t, rec.Property.Coordinates)

	// The jurisdiction heuristic still recovers FL from the address, so
	// the state-keyed sources run while the coordinate sources are skipped.
	assert.Equal(t, "FL", rec.Property.State)
	assert.ElementsMatch(t, []string{"geocode", "crime", "economic"}, rec.Metadata.SourcesAttempted)
	assert.ElementsMatch(t, []string{"crime", "economic"}, rec.Metadata.SourcesSucceeded)
	assert.Equal(t, []string{"geocode"}, rec.Metadata.SourcesFailed)
	assert.NotNil(t, rec.Location.Crime)
	assert.NotNil(t, rec.Economic)
	assert.Nil(t, rec.Environmental)
}

func TestGenerateReportNoMatchNoState(t *testing.T) {
	geo := &stubGeocoder{res: &geocode.Result{Matched: false}}

	e := newTestEngine(t, geo, nil, healthyClients())
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: "742 Evergreen Terrace",
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	// Nothing to key any source off: only the failed geocode is booked.
	assert.Equal(t, []string{"geocode"}, rec.Metadata.SourcesAttempted)
	assert.Equal(t, []string{"geocode"}, rec.Metadata.SourcesFailed)
	assert.Empty(t, rec.Metadata.SourcesSucceeded)
	assert.Equal(t, model.DataQualityMinimal, rec.Metadata.DataQuality)
}

func TestGenerateReportAllDisabled(t *testing.T) {
	e := newTestEngine(t, matchedGeocoder(), nil, healthyClients())
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress,
		Options: model.Options{}, // everything off
	})
	require.NoError(t, err)

	assert.Empty(t, rec.Metadata.SourcesAttempted)
	assert.Empty(t, rec.Metadata.SourcesSucceeded)
	assert.Empty(t, rec.Metadata.SourcesFailed)
	assert.Equal(t, model.DataQualityMinimal, rec.Metadata.DataQuality)
	assert.NotNil(t, rec.Property.Coordinates) // geocode still resolves
}

func TestGenerateReportPartialFailure(t *testing.T) {
	clients := healthyClients()
	clients.Flood = stubFlood(func(ctx context.Context, lat, lon float64) (*fema.FloodZone, error) {
		return nil, assert.AnError
	})

	e := newTestEngine(t, matchedGeocoder(), nil, healthyClients())
	e.catalog = BuildCatalog(clients)

	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress,
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.Contains(t, rec.Metadata.SourcesFailed, "flood")
	assert.Nil(t, rec.Environmental.Flood)
	assert.NotNil(t, rec.Environmental.Elevation) // siblings unaffected

	// 7 of 8 succeeded: 87.5% is still complete.
	assert.Equal(t, model.DataQualityComplete, rec.Metadata.DataQuality)
}

func TestGenerateReportCallerStateWins(t *testing.T) {
	var seenState string
	clients := healthyClients()
	clients.Crime = stubCrime(func(ctx context.Context, state string) (*fbi.StateCrime, error) {
		seenState = state
		return &fbi.StateCrime{StateName: "Georgia", DataYear: 2024}, nil
	})

	e := newTestEngine(t, matchedGeocoder(), nil, clients)
	_, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress, // address says FL
		State:   "ga",
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)
	assert.Equal(t, "GA", seenState)
}

func TestGenerateReportNarrativeRunsLast(t *testing.T) {
	narrative := &stubNarrative{resp: &anthropic.MessageResponse{
		Model: "claude-sonnet-4-5",
		Text:  "Summary.",
	}}

	e := newTestEngine(t, matchedGeocoder(), narrative, healthyClients())
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress,
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	// The prompt was built after the fan-out settled, so it carries the
	// fetched sections.
	require.Len(t, narrative.prompts, 1)
	assert.Contains(t, narrative.prompts[0], "205000")
	assert.Contains(t, narrative.prompts[0], "zone X")

	// Narrative is booked last.
	last := rec.Metadata.SourcesAttempted[len(rec.Metadata.SourcesAttempted)-1]
	assert.Equal(t, "narrative", last)
}

func TestGenerateReportNarrativeSkippedWhenNothingSucceeded(t *testing.T) {
	narrative := &stubNarrative{resp: &anthropic.MessageResponse{Text: "should not appear"}}
	geo := &stubGeocoder{err: assert.AnError}

	e := newTestEngine(t, geo, narrative, Clients{})
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: "742 Evergreen Terrace",
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.Empty(t, narrative.prompts)
	assert.Nil(t, rec.AINarrative)
	assert.Equal(t, model.DataQualityMinimal, rec.Metadata.DataQuality)
}

func TestGenerateReportNarrativeFailureBooked(t *testing.T) {
	narrative := &stubNarrative{err: assert.AnError}

	e := newTestEngine(t, matchedGeocoder(), narrative, healthyClients())
	rec, err := e.GenerateReport(context.Background(), model.Request{
		Address: testAddress,
		Options: model.DefaultOptions(),
	})
	require.NoError(t, err)

	assert.Nil(t, rec.AINarrative)
	assert.Contains(t, rec.Metadata.SourcesFailed, "narrative")
	// 8 of 9 succeeded, still complete.
	assert.Equal(t, model.DataQualityComplete, rec.Metadata.DataQuality)
}
