package report

import (
	"fmt"
	"strings"

	"github.com/taxdeedflow/property-report/internal/model"
)

// FormatReport renders an enriched record as a markdown report.
func FormatReport(rec *model.EnrichedRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Property Report: %s\n\n", rec.Property.Address)
	if rec.Property.ParcelID != "" {
		fmt.Fprintf(&b, "**Parcel:** %s  \n", rec.Property.ParcelID)
	}
	if rec.Property.State != "" {
		fmt.Fprintf(&b, "**State:** %s  \n", rec.Property.State)
	}
	if c := rec.Property.Coordinates; c != nil {
		fmt.Fprintf(&b, "**Coordinates:** %.5f, %.5f (%s)  \n", c.Latitude, c.Longitude, c.Source)
	}
	fmt.Fprintf(&b, "**Data quality:** %s  \n", rec.Metadata.DataQuality)
	fmt.Fprintf(&b, "**Generated:** %s\n", rec.Metadata.FetchedAt.Format("2006-01-02 15:04 MST"))

	if n := rec.AINarrative; n != nil {
		b.WriteString("\n## Summary\n\n")
		b.WriteString(strings.TrimSpace(n.Text))
		b.WriteString("\n")
	}

	if v := rec.Valuation; v != nil {
		b.WriteString("\n## Valuation\n\n")
		fmt.Fprintf(&b, "- Estimated value: $%s\n", formatMoney(v.EstimatedValue))
		fmt.Fprintf(&b, "- Range: $%s - $%s\n", formatMoney(v.RangeLow), formatMoney(v.RangeHigh))
		fmt.Fprintf(&b, "- Confidence: %.0f%%\n", v.Confidence*100)
	}

	if c := rec.Comparables; c != nil {
		fmt.Fprintf(&b, "\n## Comparable Sales (%.1f mi radius)\n\n", c.RadiusMiles)
		if len(c.Sales) == 0 {
			b.WriteString("No recent sales found.\n")
		} else {
			b.WriteString("| Address | Price | Date | Distance |\n")
			b.WriteString("|---|---|---|---|\n")
			for _, s := range c.Sales {
				fmt.Fprintf(&b, "| %s | $%s | %s | %.2f mi |\n",
					s.Address, formatMoney(s.SalePrice), s.SaleDate.Format("2006-01-02"), s.DistanceMiles)
			}
		}
	}

	if loc := rec.Location; loc != nil {
		b.WriteString("\n## Neighborhood\n\n")
		if cr := loc.Crime; cr != nil {
			fmt.Fprintf(&b, "- Safety rating: %.1f/10 (%s, %d data)\n", cr.SafetyRating, cr.StateName, cr.DataYear)
			fmt.Fprintf(&b, "- Violent crime: %.1f per 100k | Property crime: %.1f per 100k\n",
				cr.ViolentRatePer100k, cr.PropertyRatePer100k)
		}
		if bb := loc.Broadband; bb != nil {
			fmt.Fprintf(&b, "- Broadband: up to %.0f/%.0f Mbps, %d providers\n",
				bb.MaxDownloadMbps, bb.MaxUploadMbps, bb.ProviderCount)
		}
	}

	if e := rec.Economic; e != nil {
		b.WriteString("\n## Economy\n\n")
		fmt.Fprintf(&b, "- Unemployment (%s): %.1f%% as of %s\n", e.AreaName, e.UnemploymentRate, e.Period)
	}

	if env := rec.Environmental; env != nil {
		b.WriteString("\n## Environmental\n\n")
		if f := env.Flood; f != nil {
			fmt.Fprintf(&b, "- Flood zone: %s (%s risk", f.Zone, f.Risk)
			if f.SFHA {
				b.WriteString(", special flood hazard area")
			}
			b.WriteString(")\n")
		}
		if el := env.Elevation; el != nil {
			fmt.Fprintf(&b, "- Elevation: %.1f m (%.0f ft)\n", el.Meters, el.Meters*3.28084)
		}
		if cl := env.Climate; cl != nil {
			fmt.Fprintf(&b, "- Climate normals: %.1f in precipitation/yr, %.1f F average\n",
				cl.AnnualPrecipInches, cl.AvgTempF)
		}
	}

	b.WriteString("\n## Sources\n\n")
	fmt.Fprintf(&b, "Attempted %d, succeeded %d, failed %d.\n",
		len(rec.Metadata.SourcesAttempted),
		len(rec.Metadata.SourcesSucceeded),
		len(rec.Metadata.SourcesFailed))
	for _, o := range rec.Metadata.Outcomes {
		if o.Status == model.SourceStatusSuccess {
			fmt.Fprintf(&b, "- %s: ok (%dms)\n", o.Source, o.Duration)
		} else {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", o.Source, o.Err)
		}
	}

	return b.String()
}

// formatMoney renders a dollar amount with thousands separators.
func formatMoney(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
