package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/taxdeedflow/property-report/internal/model"
	"github.com/taxdeedflow/property-report/pkg/anthropic"
)

const narrativeSystemPrompt = "You are a real-estate research analyst writing concise due-diligence " +
	"summaries for tax deed investors. Summarize the property data you are given " +
	"in three short paragraphs: the property and its valuation, the neighborhood, " +
	"and any risk factors. Note material data gaps. Do not invent figures."

const defaultNarrativeModel = "claude-sonnet-4-5"

// synthesize generates the narrative summary from the aggregated record.
// It runs strictly after the fan-out has settled, so the prompt reflects
// every section that arrived, and its outcome is booked like any other
// source's.
func (e *Engine) synthesize(ctx context.Context, rec *model.EnrichedRecord) Outcome {
	src := Source{
		Name: "narrative",
		Slot: SlotNarrative,
		Fetch: func(ctx context.Context, _ Input) (Apply, error) {
			resp, err := e.narrative.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     e.narrativeModel,
				MaxTokens: 1024,
				System:    narrativeSystemPrompt,
				Messages: []anthropic.Message{
					{Role: "user", Content: narrativePrompt(rec)},
				},
			})
			if err != nil {
				return nil, err
			}
			return func(rec *model.EnrichedRecord) {
				rec.AINarrative = &model.Narrative{
					Text:         resp.Text,
					Model:        resp.Model,
					InputTokens:  resp.Usage.InputTokens,
					OutputTokens: resp.Usage.OutputTokens,
				}
			}, nil
		},
	}

	ctx, cancel := context.WithTimeout(ctx, e.phaseDeadline)
	defer cancel()
	return awaitOutcome(ctx, src, Input{})
}

// narrativePrompt renders the populated sections of the record as plain
// text. Absent sections are listed as unavailable so the model can flag
// the gaps instead of guessing.
func narrativePrompt(rec *model.EnrichedRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Property: %s\n", rec.Property.Address)
	if rec.Property.ParcelID != "" {
		fmt.Fprintf(&b, "Parcel ID: %s\n", rec.Property.ParcelID)
	}
	if rec.Property.Coordinates != nil {
		fmt.Fprintf(&b, "Coordinates: %.5f, %.5f\n",
			rec.Property.Coordinates.Latitude, rec.Property.Coordinates.Longitude)
	}

	var missing []string

	if v := rec.Valuation; v != nil {
		fmt.Fprintf(&b, "\nValuation: estimated $%.0f (range $%.0f-$%.0f, confidence %.2f)\n",
			v.EstimatedValue, v.RangeLow, v.RangeHigh, v.Confidence)
	} else {
		missing = append(missing, "valuation")
	}

	if c := rec.Comparables; c != nil && len(c.Sales) > 0 {
		fmt.Fprintf(&b, "\nComparable sales within %.1f miles:\n", c.RadiusMiles)
		for _, s := range c.Sales {
			fmt.Fprintf(&b, "- %s: $%.0f on %s (%.2f mi)\n",
				s.Address, s.SalePrice, s.SaleDate.Format("2006-01-02"), s.DistanceMiles)
		}
	} else {
		missing = append(missing, "comparable sales")
	}

	if loc := rec.Location; loc != nil && loc.Crime != nil {
		fmt.Fprintf(&b, "\nCrime (%s, %d): violent %.1f/100k, property %.1f/100k, safety rating %.1f/10\n",
			loc.Crime.StateName, loc.Crime.DataYear,
			loc.Crime.ViolentRatePer100k, loc.Crime.PropertyRatePer100k, loc.Crime.SafetyRating)
	} else {
		missing = append(missing, "crime statistics")
	}

	if loc := rec.Location; loc != nil && loc.Broadband != nil {
		fmt.Fprintf(&b, "\nBroadband: up to %.0f/%.0f Mbps from %d providers\n",
			loc.Broadband.MaxDownloadMbps, loc.Broadband.MaxUploadMbps, loc.Broadband.ProviderCount)
	} else {
		missing = append(missing, "broadband")
	}

	if e := rec.Economic; e != nil {
		fmt.Fprintf(&b, "\nEconomy (%s): unemployment %.1f%% (%s)\n",
			e.AreaName, e.UnemploymentRate, e.Period)
	} else {
		missing = append(missing, "economic indicators")
	}

	if env := rec.Environmental; env != nil && env.Flood != nil {
		fmt.Fprintf(&b, "\nFlood: zone %s, risk %s, SFHA %t\n",
			env.Flood.Zone, env.Flood.Risk, env.Flood.SFHA)
	} else {
		missing = append(missing, "flood zone")
	}

	if env := rec.Environmental; env != nil && env.Elevation != nil {
		fmt.Fprintf(&b, "\nElevation: %.1f m\n", env.Elevation.Meters)
	} else {
		missing = append(missing, "elevation")
	}

	if env := rec.Environmental; env != nil && env.Climate != nil {
		fmt.Fprintf(&b, "\nClimate normals: %.1f in precip/yr, avg %.1f F\n",
			env.Climate.AnnualPrecipInches, env.Climate.AvgTempF)
	} else {
		missing = append(missing, "climate normals")
	}

	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nUnavailable data: %s\n", strings.Join(missing, ", "))
	}
	return b.String()
}
