// Package policy holds the threshold policy model, its loaders, and the
// gate that evaluates a classified report against it.
package policy

import "github.com/jmckenzie-cs/shiftgate/internal/models"

// ThresholdPolicy is the configured pass/fail gate: the maximum allowed
// finding count per severity. A severity absent from Limits is unlimited
// and can never cause failure. The policy is loaded once at pipeline
// start, is immutable afterwards, and is safe to share across runs.
type ThresholdPolicy struct {
	Limits map[models.Severity]int
}

// Limit returns the configured maximum for sev. ok is false when the
// severity has no configured limit (unlimited).
func (p *ThresholdPolicy) Limit(sev models.Severity) (limit int, ok bool) {
	if p == nil || p.Limits == nil {
		return 0, false
	}
	limit, ok = p.Limits[sev]
	return limit, ok
}

// policyFile is the on-disk YAML representation.
//
//	version: 1
//	thresholds:
//	  critical: 0
//	  high: 5
type policyFile struct {
	Version    int            `yaml:"version"`
	Thresholds map[string]int `yaml:"thresholds"`
}
