// Package classify normalises raw scanner reports into their canonical
// form: trimmed identifiers, deduplicated findings, and recomputed
// per-severity counts. Classification is a pure function — same input,
// same output, no I/O.
package classify

import (
	"strings"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// dedupKey identifies a rule firing on a specific declaration. Two
// findings with the same key are the same issue regardless of message
// text; the first occurrence wins.
type dedupKey struct {
	ruleID   string
	file     string
	resource string
}

// Classify returns a classified copy of raw: rule IDs and messages are
// trimmed, duplicate (rule, resource) findings are collapsed to the first
// occurrence, and Counts is recomputed from the surviving sequence.
// Emission order is preserved. raw is not modified. Classify is
// idempotent: classifying an already classified report yields an
// identical result.
func Classify(raw *models.ScanReport) *models.ScanReport {
	if raw == nil {
		return nil
	}

	seen := make(map[dedupKey]struct{}, len(raw.Findings))
	findings := make([]models.Finding, 0, len(raw.Findings))

	for _, f := range raw.Findings {
		f.RuleID = strings.TrimSpace(f.RuleID)
		f.RuleName = strings.TrimSpace(f.RuleName)
		f.Message = strings.TrimSpace(f.Message)

		key := dedupKey{ruleID: f.RuleID, file: f.File, resource: f.Resource}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		findings = append(findings, f)
	}

	out := *raw
	out.Findings = findings
	out.Counts = Recount(findings)
	return &out
}

// Recount derives the per-severity counts for findings. Every canonical
// severity is present in the result, zero-valued when absent from the
// sequence, so consumers can iterate models.Severities() directly.
func Recount(findings []models.Finding) map[models.Severity]int {
	counts := make(map[models.Severity]int, 5)
	for _, sev := range models.Severities() {
		counts[sev] = 0
	}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
