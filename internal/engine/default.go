package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmckenzie-cs/shiftgate/internal/classify"
	"github.com/jmckenzie-cs/shiftgate/internal/collector"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
	"github.com/jmckenzie-cs/shiftgate/internal/report"
	"github.com/jmckenzie-cs/shiftgate/internal/scanner"
)

// collectFunc lists candidate sources under a root. Injected so engine
// tests need no filesystem fixtures.
type collectFunc func(root string, patterns []string) ([]string, error)

// DefaultEngine is the production implementation of Engine.
// It delegates traversal to the collector, detection to the registered
// scanners, and rendering to the sinks; it owns only the sequencing.
type DefaultEngine struct {
	registry *scanner.Registry
	sinks    []report.Sink
	log      *zap.SugaredLogger

	collect collectFunc
}

// NewDefaultEngine constructs a DefaultEngine wired to the supplied
// scanner registry and sinks.
func NewDefaultEngine(registry *scanner.Registry, sinks []report.Sink, log *zap.SugaredLogger) *DefaultEngine {
	return &DefaultEngine{
		registry: registry,
		sinks:    sinks,
		log:      log,
		collect:  collector.Collect,
	}
}

// Run implements Engine. The sequence collect → scan → classify is
// strictly sequential: classification needs the complete scan result and
// the scanner is a single blocking call. Only sink fan-out runs
// concurrently, inside report.RenderAll.
func (e *DefaultEngine) Run(ctx context.Context, opts Options) (*RunResult, error) {
	sources, err := e.collect(opts.Target, opts.Patterns)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		e.log.Warnw("no IaC sources matched", "target", opts.Target)
	} else {
		e.log.Infow("collected sources", "target", opts.Target, "files", len(sources))
	}

	sc, ok := e.registry.Get(opts.Scanner)
	if !ok {
		return nil, fmt.Errorf("unknown scanner %q; available: %v", opts.Scanner, e.registry.Names())
	}

	raw, err := sc.Scan(ctx, opts.Target, scanner.Options{
		OutputDir:     opts.OutputDir,
		Timeout:       opts.Timeout,
		UploadResults: opts.UploadResults,
	})
	if err != nil {
		return nil, err
	}

	classified := classify.Classify(raw)
	e.log.Infow("scan classified",
		"scanner", sc.Name(),
		"findings", classified.TotalFindings(),
		"critical", classified.CountFor("CRITICAL"),
		"high", classified.CountFor("HIGH"),
	)

	gate := policy.Evaluate(classified, opts.Policy)

	renderErr := report.RenderAll(ctx, e.sinks, classified, gate)
	if renderErr != nil {
		e.log.Warnw("some sinks failed to render", "error", renderErr)
	}

	return &RunResult{Report: classified, Gate: gate, RenderErr: renderErr}, nil
}
