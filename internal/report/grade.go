package report

import "github.com/taxdeedflow/property-report/internal/model"

// Grade classifies a run's completeness from its bookkeeping counts:
// at least 80% of attempted sources succeeding is complete, at least 50%
// is partial, anything less is minimal. A run that attempted nothing is
// minimal.
func Grade(attempted, succeeded int) model.DataQuality {
	if attempted <= 0 {
		return model.DataQualityMinimal
	}
	ratio := float64(succeeded) / float64(attempted)
	switch {
	case ratio >= 0.8:
		return model.DataQualityComplete
	case ratio >= 0.5:
		return model.DataQualityPartial
	default:
		return model.DataQualityMinimal
	}
}
