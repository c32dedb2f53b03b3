package engine

import (
	"context"
	"time"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
)

// Options configures a single pipeline run.
// It is the sole input to Engine.Run.
type Options struct {
	// Target is the root directory of IaC sources to scan.
	Target string

	// Scanner selects the registered scanner by name (e.g. "fcs").
	Scanner string

	// Patterns filters the collected source listing. Empty selects the
	// collector defaults.
	Patterns []string

	// Policy is the threshold gate. Nil means no gate (always passes).
	Policy *policy.ThresholdPolicy

	// Timeout bounds the scanner subprocess. Zero means no deadline.
	Timeout time.Duration

	// OutputDir is where scanner raw results are written.
	OutputDir string

	// UploadResults asks the scanner to upload to its remote console.
	UploadResults bool
}

// RunResult is the complete outcome of one pipeline run.
type RunResult struct {
	// Report is the classified finding set.
	Report *models.ScanReport

	// Gate is the threshold evaluation of Report.
	Gate policy.GateResult

	// RenderErr aggregates per-sink render failures. Non-nil RenderErr is
	// a warning, not a run failure: the gate result above is still valid.
	RenderErr error
}

// Engine coordinates one pipeline run: collect sources, invoke the
// scanner, classify findings, evaluate the gate, and fan results out to
// the sinks. Collection and scanner failures are terminal — no gate is
// evaluated and the run errors. Nothing retries automatically; re-running
// is the invoking orchestrator's concern.
type Engine interface {
	Run(ctx context.Context, opts Options) (*RunResult, error)
}
