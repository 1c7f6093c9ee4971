package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taxdeedflow/property-report/internal/model"
)

var (
	batchFile  string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate reports for a CSV of addresses",
	Long:  "Reads a CSV with an address column (plus optional parcel_id and state columns) and generates a report per row, persisting each run to the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(batchFile)
		if err != nil {
			return eris.Wrapf(err, "open batch file %s", batchFile)
		}
		defer f.Close()

		reqs, err := readBatchRequests(f)
		if err != nil {
			return err
		}

		engine, err := buildEngine()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		recs, err := processBatch(ctx, reqs, batchLimit, cfg.Batch.MaxConcurrentReports, engine.GenerateReport)
		if err != nil {
			return err
		}

		n, err := st.SaveRuns(ctx, recs)
		if err != nil {
			return eris.Wrap(err, "save batch runs")
		}
		zap.L().Info("batch runs saved", zap.Int64("count", n))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "CSV file of addresses (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of rows to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// readBatchRequests parses a CSV with a header row. An "address" column is
// required; "parcel_id" and "state" are optional. Blank address rows are
// skipped.
func readBatchRequests(r io.Reader) ([]model.Request, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "batch: read csv header")
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	addrIdx, ok := cols["address"]
	if !ok {
		return nil, eris.New("batch: csv is missing an address column")
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var reqs []model.Request
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "batch: read csv row")
		}

		address := strings.TrimSpace(row[addrIdx])
		if address == "" {
			continue
		}
		reqs = append(reqs, model.Request{
			Address:  address,
			ParcelID: field(row, "parcel_id"),
			State:    field(row, "state"),
			Options:  model.DefaultOptions(),
		})
	}
	return reqs, nil
}

// generateFunc is the callback signature for generating one report.
type generateFunc func(ctx context.Context, req model.Request) (*model.EnrichedRecord, error)

// processBatch runs report generation concurrently over the requests. An
// individual failure is logged and skipped; it never aborts the batch.
func processBatch(ctx context.Context, reqs []model.Request, limit, concurrency int, generate generateFunc) ([]*model.EnrichedRecord, error) {
	if len(reqs) == 0 {
		zap.L().Info("no batch rows to process")
		return nil, nil
	}

	if limit > 0 && len(reqs) > limit {
		reqs = reqs[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("rows", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var recs []*model.EnrichedRecord
	var failed atomic.Int64

	for _, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("address", req.Address))

			rec, err := generate(gctx, req)
			if err != nil {
				failed.Add(1)
				log.Error("report generation failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			mu.Lock()
			recs = append(recs, rec)
			mu.Unlock()

			log.Info("report complete",
				zap.String("quality", string(rec.Metadata.DataQuality)),
				zap.Int("sources_succeeded", len(rec.Metadata.SourcesSucceeded)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int("succeeded", len(recs)),
		zap.Int64("failed", failed.Load()),
	)
	return recs, nil
}
