package report

import "github.com/taxdeedflow/property-report/internal/model"

// MergeOutcomes folds settled outcomes into the record. Successful payloads
// are applied to their slots sequentially, and every outcome lands in
// exactly one of the succeeded or failed lists, so the bookkeeping identity
// attempted == succeeded + failed holds by construction.
func MergeOutcomes(rec *model.EnrichedRecord, outcomes []Outcome) {
	for _, o := range outcomes {
		rec.Metadata.SourcesAttempted = append(rec.Metadata.SourcesAttempted, o.Source)
		rec.Metadata.Outcomes = append(rec.Metadata.Outcomes, o.SourceOutcome)

		if o.Status == model.SourceStatusSuccess {
			if o.apply != nil {
				o.apply(rec)
			}
			rec.Metadata.SourcesSucceeded = append(rec.Metadata.SourcesSucceeded, o.Source)
		} else {
			rec.Metadata.SourcesFailed = append(rec.Metadata.SourcesFailed, o.Source)
		}
	}
}
