package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/taxdeedflow/property-report/internal/model"
)

// DefaultPhaseDeadline bounds how long one fan-out phase may run. A fetch
// still pending at the deadline is recorded as failed, and the run moves on
// with whatever settled in time.
const DefaultPhaseDeadline = 60 * time.Second

// Outcome pairs a source's terminal bookkeeping state with, on success, the
// slot write to perform during aggregation.
type Outcome struct {
	model.SourceOutcome
	apply Apply
}

// RunSources launches every enabled source whose prerequisites are met,
// one goroutine per source, and waits for all of them to settle. A failing
// or panicking fetch yields a failure outcome for that source only; it
// never disturbs its siblings. Outcomes come back in catalog order.
func RunSources(ctx context.Context, catalog []Source, in Input, opts model.Options, deadline time.Duration) []Outcome {
	var runnable []Source
	for _, s := range catalog {
		if s.Enabled != nil && !s.Enabled(opts) {
			continue
		}
		if !prereqsMet(s, in) {
			zap.L().Debug("report: skipping source, prerequisite unmet",
				zap.String("source", s.Name))
			continue
		}
		runnable = append(runnable, s)
	}
	if len(runnable) == 0 {
		return nil
	}

	if deadline <= 0 {
		deadline = DefaultPhaseDeadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	outcomes := make([]Outcome, len(runnable))
	var g errgroup.Group
	for i, s := range runnable {
		g.Go(func() error {
			outcomes[i] = awaitOutcome(ctx, s, in)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func prereqsMet(s Source, in Input) bool {
	for _, p := range s.Prereqs {
		switch p {
		case PrereqCoordinates:
			if in.Coordinates == nil {
				return false
			}
		case PrereqJurisdiction:
			if in.State == "" {
				return false
			}
		}
	}
	return true
}

// awaitOutcome runs one fetch and waits for it or the phase deadline,
// whichever comes first. The fetch runs on its own goroutine so a
// collaborator that ignores context cancellation cannot stall the phase;
// its result is simply dropped after the deadline outcome is recorded.
func awaitOutcome(ctx context.Context, s Source, in Input) Outcome {
	done := make(chan Outcome, 1)
	start := time.Now()
	go func() {
		done <- runOne(ctx, s, in)
	}()

	select {
	case o := <-done:
		return o
	case <-ctx.Done():
		zap.L().Warn("report: source deadline exceeded",
			zap.String("source", s.Name),
			zap.Duration("elapsed", time.Since(start)))
		return failureOutcome(s.Name, "deadline exceeded", start)
	}
}

func runOne(ctx context.Context, s Source, in Input) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("report: source panicked",
				zap.String("source", s.Name),
				zap.Any("panic", r))
			out = failureOutcome(s.Name, fmt.Sprintf("panic: %v", r), start)
		}
	}()

	apply, err := s.Fetch(ctx, in)
	if err != nil {
		zap.L().Warn("report: source failed",
			zap.String("source", s.Name),
			zap.Error(err))
		return failureOutcome(s.Name, err.Error(), start)
	}

	return Outcome{
		SourceOutcome: model.SourceOutcome{
			Source:   s.Name,
			Status:   model.SourceStatusSuccess,
			Duration: time.Since(start).Milliseconds(),
		},
		apply: apply,
	}
}

func failureOutcome(name, errMsg string, start time.Time) Outcome {
	return Outcome{
		SourceOutcome: model.SourceOutcome{
			Source:   name,
			Status:   model.SourceStatusFailure,
			Err:      errMsg,
			Duration: time.Since(start).Milliseconds(),
		},
	}
}
