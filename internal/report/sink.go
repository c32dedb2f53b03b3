// Package report renders classified scan results to the configured output
// sinks: console summary, SARIF file, Markdown comment, and S3 artifact.
// Sinks are write-only and independent of each other; a failure in one
// never blocks the rest.
package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
)

// Sink renders a classified report plus its gate result to one output.
type Sink interface {
	// Name returns a short sink label used in error attribution.
	Name() string

	// Render writes the report. It must not mutate the report or the gate
	// result.
	Render(ctx context.Context, report *models.ScanReport, gate policy.GateResult) error
}

// RenderError attributes a sink write failure to the sink that produced it.
type RenderError struct {
	Sink string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render to %s sink: %v", e.Sink, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// RenderAll fans the report out to every sink concurrently. Each sink
// failure is wrapped in a *RenderError; failures are collected and joined
// rather than aborting the remaining sinks. The returned error is nil only
// when every sink succeeded.
func RenderAll(ctx context.Context, sinks []Sink, report *models.ScanReport, gate policy.GateResult) error {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	failures := make([]error, 0, len(sinks))

	for _, sink := range sinks {
		sink := sink
		g.Go(func() error {
			if err := sink.Render(ctx, report, gate); err != nil {
				mu.Lock()
				failures = append(failures, &RenderError{Sink: sink.Name(), Err: err})
				mu.Unlock()
			}
			// Errors are collected, not returned, so sibling sinks keep
			// rendering.
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(failures...)
}
