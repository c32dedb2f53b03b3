// Package models defines the data structures shared across the scanning
// pipeline: findings, severity levels, and the scan report that carries
// them from the scanner adapters through classification to the sinks.
package models

import "strings"

// Severity is the canonical five-level finding severity.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFORMATIONAL"
)

// Severities returns all canonical severities ordered most to least severe.
// Gate violations and report breakdowns iterate in this order.
func Severities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityInfo,
	}
}

// Rank returns the comparison weight of s: CRITICAL is 5 down to
// INFORMATIONAL at 1. Unrecognised values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// NormalizeSeverity maps a raw scanner severity label onto the canonical
// scale. Matching is case-insensitive and ignores surrounding whitespace.
// Labels from other tools are folded in: ERROR counts as HIGH, WARNING and
// MODERATE as MEDIUM, NOTE and NEGLIGIBLE as INFORMATIONAL.
//
// Unrecognised labels return (SeverityInfo, false) so callers can keep the
// finding rather than drop it; no finding disappears because a scanner
// invented a new label.
func NormalizeSeverity(raw string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL":
		return SeverityCritical, true
	case "HIGH", "ERROR":
		return SeverityHigh, true
	case "MEDIUM", "WARNING", "MODERATE":
		return SeverityMedium, true
	case "LOW":
		return SeverityLow, true
	case "INFORMATIONAL", "INFO", "NOTE", "NEGLIGIBLE":
		return SeverityInfo, true
	}
	return SeverityInfo, false
}
