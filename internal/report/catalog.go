package report

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/taxdeedflow/property-report/internal/model"
	"github.com/taxdeedflow/property-report/pkg/attom"
	"github.com/taxdeedflow/property-report/pkg/bls"
	"github.com/taxdeedflow/property-report/pkg/fbi"
	"github.com/taxdeedflow/property-report/pkg/fcc"
	"github.com/taxdeedflow/property-report/pkg/fema"
	"github.com/taxdeedflow/property-report/pkg/noaa"
	"github.com/taxdeedflow/property-report/pkg/usgs"
)

// Slot names the single record field a source is allowed to write. No two
// catalog entries may share a slot; ValidateCatalog enforces this.
type Slot string

const (
	SlotCoordinates Slot = "coordinates"
	SlotValuation   Slot = "valuation"
	SlotComparables Slot = "comparables"
	SlotCrime       Slot = "crime"
	SlotBroadband   Slot = "broadband"
	SlotEconomic    Slot = "economic"
	SlotFlood       Slot = "flood"
	SlotElevation   Slot = "elevation"
	SlotClimate     Slot = "climate"
	SlotNarrative   Slot = "narrative"
)

// Prereq is a scheduling prerequisite a source declares. A source whose
// prerequisites are not all present is skipped, never attempted.
type Prereq string

const (
	PrereqCoordinates  Prereq = "coordinates"
	PrereqJurisdiction Prereq = "jurisdiction"
)

// Input carries the resolved prerequisites into source fetches.
type Input struct {
	Address     string
	ParcelID    string
	Coordinates *model.Coordinates
	State       string
	RadiusMiles float64
}

// Apply writes a fetched payload into its slot on the record. Applies run
// sequentially during aggregation, after the fan-out has settled.
type Apply func(*model.EnrichedRecord)

// Source is one row of the catalog: a named task, the slot it writes, the
// prerequisites it needs, and the fetch that produces its payload. Adding a
// data source means adding one row here.
type Source struct {
	Name    string
	Slot    Slot
	Prereqs []Prereq
	Enabled func(model.Options) bool
	Fetch   func(ctx context.Context, in Input) (Apply, error)
}

// Clients bundles the collaborator handles the catalog binds to. A nil
// handle drops its rows from the catalog, so the source is never attempted.
type Clients struct {
	Flood     fema.Client
	Elevation usgs.Client
	Climate   noaa.Client
	Crime     fbi.Client
	Broadband fcc.Client
	Labor     bls.Client
	Property  attom.Client
}

// BuildCatalog binds the static source table to the supplied collaborators.
func BuildCatalog(c Clients) []Source {
	var catalog []Source

	if c.Flood != nil {
		catalog = append(catalog, Source{
			Name:    "flood",
			Slot:    SlotFlood,
			Prereqs: []Prereq{PrereqCoordinates},
			Enabled: func(o model.Options) bool { return o.IncludeFlood },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				fz, err := c.Flood.FloodZone(ctx, in.Coordinates.Latitude, in.Coordinates.Longitude)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.EnsureEnvironmental().Flood = &model.FloodRisk{
						Zone:    fz.Zone,
						Subtype: fz.Subtype,
						SFHA:    fz.SFHA,
						Risk:    fz.Risk,
					}
				}, nil
			},
		})
	}

	if c.Elevation != nil {
		catalog = append(catalog, Source{
			Name:    "elevation",
			Slot:    SlotElevation,
			Prereqs: []Prereq{PrereqCoordinates},
			Enabled: func(o model.Options) bool { return o.IncludeElevation },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				meters, err := c.Elevation.Elevation(ctx, in.Coordinates.Latitude, in.Coordinates.Longitude)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.EnsureEnvironmental().Elevation = &model.Elevation{
						Meters: meters,
						Source: "usgs_epqs",
					}
				}, nil
			},
		})
	}

	if c.Climate != nil {
		catalog = append(catalog, Source{
			Name:    "climate",
			Slot:    SlotClimate,
			Prereqs: []Prereq{PrereqCoordinates},
			Enabled: func(o model.Options) bool { return o.IncludeClimate },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				n, err := c.Climate.Normals(ctx, in.Coordinates.Latitude, in.Coordinates.Longitude)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.EnsureEnvironmental().Climate = &model.ClimateSummary{
						AnnualPrecipInches: n.AnnualPrecipInches,
						AvgTempF:           n.AvgTempF,
						Station:            n.Station,
					}
				}, nil
			},
		})
	}

	if c.Crime != nil {
		catalog = append(catalog, Source{
			Name:    "crime",
			Slot:    SlotCrime,
			Prereqs: []Prereq{PrereqJurisdiction},
			Enabled: func(o model.Options) bool { return o.IncludeCrime },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				sc, err := c.Crime.StateCrime(ctx, in.State)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.EnsureLocation().Crime = &model.CrimeStats{
						StateName:           sc.StateName,
						ViolentRatePer100k:  sc.ViolentRatePer100k,
						PropertyRatePer100k: sc.PropertyRatePer100k,
						SafetyRating:        sc.SafetyRating,
						DataYear:            sc.DataYear,
					}
				}, nil
			},
		})
	}

	if c.Broadband != nil {
		catalog = append(catalog, Source{
			Name:    "broadband",
			Slot:    SlotBroadband,
			Prereqs: []Prereq{PrereqCoordinates},
			Enabled: func(o model.Options) bool { return o.IncludeBroadband },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				cov, err := c.Broadband.Coverage(ctx, in.Coordinates.Latitude, in.Coordinates.Longitude)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.EnsureLocation().Broadband = &model.BroadbandAvailability{
						MaxDownloadMbps: cov.MaxDownloadMbps,
						MaxUploadMbps:   cov.MaxUploadMbps,
						ProviderCount:   cov.ProviderCount,
					}
				}, nil
			},
		})
	}

	if c.Labor != nil {
		catalog = append(catalog, Source{
			Name:    "economic",
			Slot:    SlotEconomic,
			Prereqs: []Prereq{PrereqJurisdiction},
			Enabled: func(o model.Options) bool { return o.IncludeEconomic },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				emp, err := c.Labor.StateEmployment(ctx, in.State)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.Economic = &model.Economic{
						AreaName:         emp.AreaName,
						UnemploymentRate: emp.UnemploymentRate,
						Period:           emp.Period,
					}
				}, nil
			},
		})
	}

	if c.Property != nil {
		catalog = append(catalog, Source{
			Name:    "comparables",
			Slot:    SlotComparables,
			Prereqs: []Prereq{PrereqCoordinates},
			Enabled: func(o model.Options) bool { return o.IncludeComparables },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				sales, err := c.Property.SalesSnapshot(ctx, in.Coordinates.Latitude, in.Coordinates.Longitude, in.RadiusMiles)
				if err != nil {
					return nil, err
				}
				comps := buildComparables(in, sales)
				return func(rec *model.EnrichedRecord) {
					rec.Comparables = comps
				}, nil
			},
		})

		catalog = append(catalog, Source{
			Name:    "valuation",
			Slot:    SlotValuation,
			Prereqs: []Prereq{PrereqCoordinates},
			Enabled: func(o model.Options) bool { return o.IncludeValuation },
			Fetch: func(ctx context.Context, in Input) (Apply, error) {
				v, err := c.Property.Valuation(ctx, in.Address)
				if err != nil {
					return nil, err
				}
				return func(rec *model.EnrichedRecord) {
					rec.Valuation = &model.Valuation{
						EstimatedValue: v.EstimatedValue,
						RangeLow:       v.RangeLow,
						RangeHigh:      v.RangeHigh,
						Confidence:     v.Confidence,
						Source:         "attom_avm",
						AsOf:           v.AsOf,
					}
				}, nil
			},
		})
	}

	return catalog
}

// buildComparables filters sales to the search radius, computes distances,
// and orders them nearest first.
func buildComparables(in Input, sales []attom.Sale) *model.Comparables {
	comps := &model.Comparables{
		RadiusMiles: in.RadiusMiles,
		Sales:       []model.ComparableSale{},
	}
	for _, s := range sales {
		d := haversineMiles(in.Coordinates.Latitude, in.Coordinates.Longitude, s.Latitude, s.Longitude)
		if d > in.RadiusMiles {
			continue
		}
		comps.Sales = append(comps.Sales, model.ComparableSale{
			Address:       s.Address,
			SalePrice:     s.SalePrice,
			SaleDate:      s.SaleDate,
			DistanceMiles: round2(d),
			Beds:          s.Beds,
			Baths:         s.Baths,
			SquareFeet:    s.SquareFeet,
		})
	}
	sort.Slice(comps.Sales, func(i, j int) bool {
		return comps.Sales[i].DistanceMiles < comps.Sales[j].DistanceMiles
	})
	return comps
}

// ValidateCatalog rejects catalogs with duplicate names or shared slots.
// The disjoint-slot invariant is what makes the fan-out safe without locks.
func ValidateCatalog(catalog []Source) error {
	names := make(map[string]struct{}, len(catalog))
	slots := make(map[Slot]string, len(catalog))

	for _, s := range catalog {
		if s.Name == "" {
			return eris.New("catalog: source with empty name")
		}
		if s.Fetch == nil {
			return eris.Errorf("catalog: source %s has no fetch", s.Name)
		}
		if _, dup := names[s.Name]; dup {
			return eris.Errorf("catalog: duplicate source name %s", s.Name)
		}
		names[s.Name] = struct{}{}

		if other, dup := slots[s.Slot]; dup {
			return eris.Errorf("catalog: sources %s and %s share slot %s", other, s.Name, s.Slot)
		}
		slots[s.Slot] = s.Name
	}
	return nil
}
