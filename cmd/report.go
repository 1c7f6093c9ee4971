package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taxdeedflow/property-report/internal/model"
	"github.com/taxdeedflow/property-report/internal/report"
)

var (
	reportAddress string
	reportParcel  string
	reportState   string
	reportRadius  float64
	reportSkip    []string
	reportFormat  string
	reportSave    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a report for a single property address",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		engine, err := buildEngine()
		if err != nil {
			return err
		}

		opts := model.DefaultOptions()
		opts.RadiusMiles = reportRadius
		if err := applySkips(&opts, reportSkip); err != nil {
			return err
		}

		rec, err := engine.GenerateReport(ctx, model.Request{
			Address:  reportAddress,
			ParcelID: reportParcel,
			State:    reportState,
			Options:  opts,
		})
		if err != nil {
			return eris.Wrap(err, "generate report")
		}

		if reportSave {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
			run, err := st.SaveRun(ctx, rec)
			if err != nil {
				return eris.Wrap(err, "save run")
			}
			zap.L().Info("run saved", zap.String("run_id", run.ID))
		}

		switch reportFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		case "markdown", "md":
			fmt.Fprint(os.Stdout, report.FormatReport(rec))
			return nil
		default:
			return eris.Errorf("unknown output format: %s", reportFormat)
		}
	},
}

// applySkips turns --skip source names into option toggles.
func applySkips(opts *model.Options, skips []string) error {
	for _, name := range skips {
		switch name {
		case "valuation":
			opts.IncludeValuation = false
		case "comparables":
			opts.IncludeComparables = false
		case "crime":
			opts.IncludeCrime = false
		case "broadband":
			opts.IncludeBroadband = false
		case "economic":
			opts.IncludeEconomic = false
		case "flood":
			opts.IncludeFlood = false
		case "elevation":
			opts.IncludeElevation = false
		case "climate":
			opts.IncludeClimate = false
		case "narrative":
			opts.IncludeNarrative = false
		default:
			return eris.Errorf("unknown source %q in --skip", name)
		}
	}
	return nil
}

func init() {
	reportCmd.Flags().StringVar(&reportAddress, "address", "", "property street address (required)")
	reportCmd.Flags().StringVar(&reportParcel, "parcel", "", "county parcel ID")
	reportCmd.Flags().StringVar(&reportState, "state", "", "two-letter state code override")
	reportCmd.Flags().Float64Var(&reportRadius, "radius", model.DefaultRadiusMiles, "comparable sales search radius in miles")
	reportCmd.Flags().StringSliceVar(&reportSkip, "skip", nil, "sources to skip (e.g. --skip crime,narrative)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "output format: markdown or json")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "persist the run to the store")
	_ = reportCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(reportCmd)
}
