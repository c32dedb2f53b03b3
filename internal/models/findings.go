package models

import "time"

// Finding is a single detected issue in scanned IaC source.
// It is the atomic output unit of every scanner adapter.
type Finding struct {
	// RuleID is the stable identifier of the rule that produced the finding.
	RuleID string `json:"rule_id"`

	// RuleName is a short human-readable rule name, when the scanner
	// provides one.
	RuleName string `json:"rule_name,omitempty"`

	// Severity is the normalised five-level severity.
	Severity Severity `json:"severity"`

	// File is the path of the offending source file, relative to the scan
	// root where possible.
	File string `json:"file"`

	// Resource identifies the infrastructure declaration inside File
	// (e.g. "aws_s3_bucket.data"). Opaque to the pipeline; empty when the
	// scanner reports file-level issues only.
	Resource string `json:"resource,omitempty"`

	// Line is the 1-based start line, 0 when unknown.
	Line int `json:"line,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Remediation is optional fix guidance from the scanner.
	Remediation string `json:"remediation,omitempty"`

	// Scanner names the tool that emitted the finding (e.g. "fcs", "trivy").
	Scanner string `json:"scanner"`

	// Metadata carries optional scanner-specific key/value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ResourceRef returns the combined file/resource locator used to identify
// the offending declaration (and, with RuleID, to deduplicate findings).
func (f Finding) ResourceRef() string {
	if f.Resource == "" {
		return f.File
	}
	return f.File + ":" + f.Resource
}

// ScanReport is the complete result of one scan run. Finding order is the
// scanner emission order and is preserved through classification so that
// reports are reproducible. Counts is always derived from Findings, never
// hand-maintained; classify.Classify recomputes it.
type ScanReport struct {
	ReportID    string           `json:"report_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	SourceRoot  string           `json:"source_root"`
	Scanner     string           `json:"scanner"`
	Findings    []Finding        `json:"findings"`
	Counts      map[Severity]int `json:"counts_by_severity"`
}

// TotalFindings returns the number of findings in the report.
func (r *ScanReport) TotalFindings() int {
	return len(r.Findings)
}

// CountFor returns the derived count for sev, 0 when absent.
func (r *ScanReport) CountFor(sev Severity) int {
	if r.Counts == nil {
		return 0
	}
	return r.Counts[sev]
}
