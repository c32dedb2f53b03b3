package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
)

// MarkdownSink renders a PR-comment style Markdown summary: gate verdict,
// severity count table, and per-severity finding lists with remediation
// guidance when the scanner supplied it.
type MarkdownSink struct {
	W io.Writer
}

func (s *MarkdownSink) Name() string { return "markdown" }

// Render implements Sink.
func (s *MarkdownSink) Render(_ context.Context, report *models.ScanReport, gate policy.GateResult) error {
	var b strings.Builder

	b.WriteString("## Security Scan Results\n\n")
	if gate.Passed {
		b.WriteString("**Gate: PASSED**\n\n")
	} else {
		b.WriteString("**Gate: FAILED**\n\n")
		for _, v := range gate.Violations {
			fmt.Fprintf(&b, "- `%s`: %d findings, limit %d\n", v.Severity, v.Observed, v.Limit)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Scanner `%s` reported **%d** findings in `%s`.\n\n",
		report.Scanner, report.TotalFindings(), report.SourceRoot)

	b.WriteString("| Severity | Count |\n|---|---|\n")
	for _, sev := range models.Severities() {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, report.CountFor(sev))
	}
	b.WriteString("\n")

	for _, sev := range models.Severities() {
		group := findingsFor(report, sev)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s (%d)\n\n", sev, len(group))
		for i, f := range group {
			fmt.Fprintf(&b, "%d. **%s**: %s (`%s`)\n", i+1, ruleLabel(f), f.Message, f.ResourceRef())
			if f.Remediation != "" {
				fmt.Fprintf(&b, "   - Remediation: %s\n", f.Remediation)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(s.W, b.String())
	return err
}

// findingsFor returns report findings of the given severity in emission order.
func findingsFor(report *models.ScanReport, sev models.Severity) []models.Finding {
	var out []models.Finding
	for _, f := range report.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

func ruleLabel(f models.Finding) string {
	if f.RuleName != "" {
		return f.RuleName
	}
	return f.RuleID
}
