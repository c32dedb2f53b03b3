package policy

import "github.com/jmckenzie-cs/shiftgate/internal/models"

// Violation records one severity whose observed count exceeded its limit.
type Violation struct {
	Severity models.Severity `json:"severity"`
	Observed int             `json:"observed"`
	Limit    int             `json:"limit"`
}

// GateResult is the outcome of evaluating a classified report against a
// threshold policy. It is created once per run and is immutable.
type GateResult struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Evaluate compares the report's per-severity counts against the policy.
// Each severity is evaluated independently; the result passes iff no
// severity with a configured limit exceeds it. Violations are ordered
// critical → high → medium → low → informational for deterministic
// reporting; the pass/fail decision itself is order-independent.
//
// Edge cases: an empty report always passes regardless of policy, and a
// nil policy (no thresholds configured) always passes.
func Evaluate(report *models.ScanReport, policy *ThresholdPolicy) GateResult {
	result := GateResult{Passed: true}
	if report == nil || len(report.Findings) == 0 {
		return result
	}
	if policy == nil {
		return result
	}

	for _, sev := range models.Severities() {
		limit, configured := policy.Limit(sev)
		if !configured {
			continue
		}
		observed := report.CountFor(sev)
		if observed > limit {
			result.Passed = false
			result.Violations = append(result.Violations, Violation{
				Severity: sev,
				Observed: observed,
				Limit:    limit,
			})
		}
	}

	return result
}
