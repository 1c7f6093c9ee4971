package model

import "time"

// Options toggles individual data sources for one report run. Every source
// defaults to enabled; DefaultOptions is the zero point for callers that want
// to switch a few off.
type Options struct {
	IncludeValuation   bool    `json:"include_valuation"`
	IncludeComparables bool    `json:"include_comparables"`
	IncludeCrime       bool    `json:"include_crime"`
	IncludeBroadband   bool    `json:"include_broadband"`
	IncludeEconomic    bool    `json:"include_economic"`
	IncludeFlood       bool    `json:"include_flood"`
	IncludeElevation   bool    `json:"include_elevation"`
	IncludeClimate     bool    `json:"include_climate"`
	IncludeNarrative   bool    `json:"include_narrative"`
	RadiusMiles        float64 `json:"radius_miles"`
}

// DefaultRadiusMiles is the comparable-sales search radius when unset.
const DefaultRadiusMiles = 1.0

// DefaultOptions returns Options with every source enabled.
func DefaultOptions() Options {
	return Options{
		IncludeValuation:   true,
		IncludeComparables: true,
		IncludeCrime:       true,
		IncludeBroadband:   true,
		IncludeEconomic:    true,
		IncludeFlood:       true,
		IncludeElevation:   true,
		IncludeClimate:     true,
		IncludeNarrative:   true,
		RadiusMiles:        DefaultRadiusMiles,
	}
}

// Request describes one report to generate.
type Request struct {
	Address  string  `json:"address"`
	ParcelID string  `json:"parcel_id,omitempty"`
	State    string  `json:"state,omitempty"` // optional caller-supplied jurisdiction
	Options  Options `json:"options"`
}

// Run is a persisted report run.
type Run struct {
	ID        string          `json:"id"`
	Address   string          `json:"address"`
	Quality   DataQuality     `json:"data_quality"`
	Record    *EnrichedRecord `json:"record,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
