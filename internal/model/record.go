package model

import "time"

// DataQuality classifies how much of the attempted enrichment succeeded.
type DataQuality string

const (
	DataQualityComplete DataQuality = "complete"
	DataQualityPartial  DataQuality = "partial"
	DataQualityMinimal  DataQuality = "minimal"
)

// SourceStatus is the terminal state of one source fetch.
type SourceStatus string

const (
	SourceStatusSuccess SourceStatus = "success"
	SourceStatusFailure SourceStatus = "failure"
)

// SourceOutcome records the terminal state of one attempted source.
type SourceOutcome struct {
	Source   string       `json:"source"`
	Status   SourceStatus `json:"status"`
	Err      string       `json:"error,omitempty"`
	Duration int64        `json:"duration_ms"`
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source,omitempty"`
	Quality   string  `json:"quality,omitempty"`
}

// Property identifies the subject property of a report.
type Property struct {
	Address     string       `json:"address"`
	ParcelID    string       `json:"parcel_id,omitempty"`
	State       string       `json:"state,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Valuation holds an automated valuation model estimate.
type Valuation struct {
	EstimatedValue float64   `json:"estimated_value"`
	RangeLow       float64   `json:"range_low"`
	RangeHigh      float64   `json:"range_high"`
	Confidence     float64   `json:"confidence"`
	Source         string    `json:"source"`
	AsOf           time.Time `json:"as_of"`
}

// ComparableSale is one recent sale near the subject property.
type ComparableSale struct {
	Address       string    `json:"address"`
	SalePrice     float64   `json:"sale_price"`
	SaleDate      time.Time `json:"sale_date"`
	DistanceMiles float64   `json:"distance_miles"`
	Beds          int       `json:"beds,omitempty"`
	Baths         float64   `json:"baths,omitempty"`
	SquareFeet    int       `json:"square_feet,omitempty"`
}

// Comparables holds recent sales within the configured search radius.
type Comparables struct {
	RadiusMiles float64          `json:"radius_miles"`
	Sales       []ComparableSale `json:"sales"`
}

// CrimeStats holds state-level crime rates and a derived safety rating.
type CrimeStats struct {
	StateName           string  `json:"state_name"`
	ViolentRatePer100k  float64 `json:"violent_rate_per_100k"`
	PropertyRatePer100k float64 `json:"property_rate_per_100k"`
	SafetyRating        float64 `json:"safety_rating"` // 0-10, higher is safer
	DataYear            int     `json:"data_year"`
}

// BroadbandAvailability holds fixed-broadband coverage at the property.
type BroadbandAvailability struct {
	MaxDownloadMbps float64 `json:"max_download_mbps"`
	MaxUploadMbps   float64 `json:"max_upload_mbps"`
	ProviderCount   int     `json:"provider_count"`
}

// Location groups neighborhood-level enrichment data.
type Location struct {
	Crime     *CrimeStats            `json:"crime,omitempty"`
	Broadband *BroadbandAvailability `json:"broadband,omitempty"`
}

// Economic holds area employment and income indicators.
type Economic struct {
	AreaName         string  `json:"area_name"`
	UnemploymentRate float64 `json:"unemployment_rate"`
	LaborForce       int     `json:"labor_force,omitempty"`
	Period           string  `json:"period"`
}

// FloodRisk holds FEMA flood zone designation and a coarse risk label.
type FloodRisk struct {
	Zone    string `json:"zone"`
	Subtype string `json:"subtype,omitempty"`
	SFHA    bool   `json:"sfha"` // special flood hazard area
	Risk    string `json:"risk"` // high, moderate, minimal, undetermined
}

// Elevation holds ground elevation at the property coordinates.
type Elevation struct {
	Meters float64 `json:"meters"`
	Source string  `json:"source"`
}

// ClimateSummary holds long-term climate normals near the property.
type ClimateSummary struct {
	AnnualPrecipInches float64 `json:"annual_precip_inches"`
	AvgTempF           float64 `json:"avg_temp_f"`
	Station            string  `json:"station,omitempty"`
}

// Environmental groups physical-hazard enrichment data.
type Environmental struct {
	Flood     *FloodRisk      `json:"flood,omitempty"`
	Elevation *Elevation      `json:"elevation,omitempty"`
	Climate   *ClimateSummary `json:"climate,omitempty"`
}

// Narrative is the AI-generated property summary.
type Narrative struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens,omitempty"`
	OutputTokens int64  `json:"output_tokens,omitempty"`
}

// Metadata describes the bookkeeping of one report run. The three source
// lists satisfy: attempted == succeeded ∪ failed, disjoint. A source absent
// from attempted was either disabled or had an unmet prerequisite.
type Metadata struct {
	FetchedAt        time.Time       `json:"fetched_at"`
	SourcesAttempted []string        `json:"sources_attempted"`
	SourcesSucceeded []string        `json:"sources_succeeded"`
	SourcesFailed    []string        `json:"sources_failed"`
	Outcomes         []SourceOutcome `json:"outcomes,omitempty"`
	DataQuality      DataQuality     `json:"data_quality"`
}

// EnrichedRecord is the aggregate built by one report run. Each optional
// section is written by exactly one source; a nil section means the data was
// not available, never that it is known to be empty.
type EnrichedRecord struct {
	Property      Property       `json:"property"`
	Valuation     *Valuation     `json:"valuation,omitempty"`
	Comparables   *Comparables   `json:"comparables,omitempty"`
	Location      *Location      `json:"location,omitempty"`
	Economic      *Economic      `json:"economic,omitempty"`
	Environmental *Environmental `json:"environmental,omitempty"`
	AINarrative   *Narrative     `json:"ai_narrative,omitempty"`
	Metadata      Metadata       `json:"metadata"`
}

// EnsureLocation returns the Location section, allocating it if absent.
func (r *EnrichedRecord) EnsureLocation() *Location {
	if r.Location == nil {
		r.Location = &Location{}
	}
	return r.Location
}

// EnsureEnvironmental returns the Environmental section, allocating it if absent.
func (r *EnrichedRecord) EnsureEnvironmental() *Environmental {
	if r.Environmental == nil {
		r.Environmental = &Environmental{}
	}
	return r.Environmental
}
