// Package scanner invokes external IaC security scanners and adapts their
// native output into the canonical finding model. The scanners themselves
// are opaque capabilities: this package constructs their invocation,
// captures and decodes their structured output, and maps their severity
// labels. It never reimplements detection rules.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// Options configures a single scanner invocation.
type Options struct {
	// OutputDir is where the scanner writes its raw result files.
	// Defaults to ".shiftgate" when empty.
	OutputDir string

	// Timeout bounds the scanner subprocess. Zero means no deadline.
	// Expiry surfaces as *UnavailableError; the run is never retried.
	Timeout time.Duration

	// UploadResults asks the scanner to upload results to its own remote
	// console. The upload is the scanner's side effect; failures there are
	// its concern and are never retried here.
	UploadResults bool
}

// Scanner is a single external scanning capability.
// Implementations must be safe for reuse across runs.
type Scanner interface {
	// Name returns the unique, stable scanner name (e.g. "fcs").
	Name() string

	// Scan runs the scanner against the target directory and returns the
	// raw (unclassified) report. A successful scan that found issues is
	// not an error; invocation failures surface as *UnavailableError and
	// undecodable output as *ParseError.
	Scan(ctx context.Context, target string, opts Options) (*models.ScanReport, error)
}

// UnavailableError reports that the external scanner could not be reached:
// binary missing, credentials absent, subprocess failure, or timeout.
// It is distinct from a successful scan reporting zero or many findings.
type UnavailableError struct {
	Scanner string
	Reason  string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scanner %q unavailable: %s: %v", e.Scanner, e.Reason, e.Err)
	}
	return fmt.Sprintf("scanner %q unavailable: %s", e.Scanner, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// ParseError reports that scanner output could not be decoded into the
// expected schema. It is always surfaced, never treated as zero findings.
type ParseError struct {
	Scanner string
	Source  string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output from %s: %v", e.Scanner, e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Registry manages the set of available scanners by name.
// Register panics on duplicate names to catch wiring mistakes at startup.
type Registry struct {
	scanners map[string]Scanner
	order    []string
}

// NewRegistry returns an empty registry ready for scanner registration.
func NewRegistry() *Registry {
	return &Registry{scanners: make(map[string]Scanner)}
}

// Register adds s to the registry. Panics if the same name is registered twice.
func (r *Registry) Register(s Scanner) {
	if _, exists := r.scanners[s.Name()]; exists {
		panic(fmt.Sprintf("duplicate scanner name: %q", s.Name()))
	}
	r.scanners[s.Name()] = s
	r.order = append(r.order, s.Name())
}

// Get returns the scanner registered under name.
func (r *Registry) Get(name string) (Scanner, bool) {
	s, ok := r.scanners[name]
	return s, ok
}

// Names returns all registered scanner names in registration order.
func (r *Registry) Names() []string {
	return r.order
}
