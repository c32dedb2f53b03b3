package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
)

// ANSI color codes for severity output (used when Colored=true).
const (
	ansiReset   = "\033[0m"
	ansiBoldRed = "\033[1;31m"
	ansiRed     = "\033[0;31m"
	ansiYellow  = "\033[0;33m"
	ansiBlue    = "\033[0;34m"
)

// SummarySink writes the human-readable run summary to a log stream:
// run header, severity counts, top-N findings table, and the gate verdict.
type SummarySink struct {
	// W receives the rendered summary.
	W io.Writer

	// TopN caps the findings table. Defaults to 10 when zero; negative
	// hides the table entirely.
	TopN int

	// Colored wraps severity labels with ANSI codes. Default false (CI-safe).
	Colored bool
}

func (s *SummarySink) Name() string { return "summary" }

// Render implements Sink.
func (s *SummarySink) Render(_ context.Context, report *models.ScanReport, gate policy.GateResult) error {
	w := s.W

	if _, err := fmt.Fprintf(w, "Scanner:  %s\nSource:   %s\nFindings: %d\n\n",
		report.Scanner, report.SourceRoot, report.TotalFindings()); err != nil {
		return err
	}

	fmt.Fprintln(w, "Severity Breakdown")
	for _, sev := range models.Severities() {
		fmt.Fprintf(w, "  %s  %d\n", severityCell(sev, 13, s.Colored), report.CountFor(sev))
	}

	top := s.TopN
	if top == 0 {
		top = 10
	}
	if top > 0 && report.TotalFindings() > 0 {
		if top > report.TotalFindings() {
			top = report.TotalFindings()
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Top %d Findings\n", top)
		header := fmt.Sprintf("  %-24s  %-13s  %-40s  %s", "RULE", "SEVERITY", "RESOURCE", "MESSAGE")
		fmt.Fprintln(w, header)
		fmt.Fprintf(w, "  %s\n", strings.Repeat("-", len(header)))
		for _, f := range report.Findings[:top] {
			fmt.Fprintf(w, "  %-24s  %s  %-40s  %s\n",
				truncateField(f.RuleID, 24),
				severityCell(f.Severity, 13, s.Colored),
				truncateField(f.ResourceRef(), 40),
				shortenMessage(f.Message, 55),
			)
		}
	}

	fmt.Fprintln(w)
	if gate.Passed {
		_, err := fmt.Fprintln(w, "Gate: PASSED")
		return err
	}

	fmt.Fprintln(w, "Gate: FAILED")
	for _, v := range gate.Violations {
		fmt.Fprintf(w, "  %-13s  observed %d, limit %d\n", v.Severity, v.Observed, v.Limit)
	}
	return nil
}

// severityCell returns the severity padded to width characters. When
// colored, ANSI codes wrap only the text; trailing padding spaces stay
// plain so subsequent columns align regardless of terminal ANSI support.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	if !colored {
		return fmt.Sprintf("%-*s", width, text)
	}
	var code string
	switch sev {
	case models.SeverityCritical:
		code = ansiBoldRed
	case models.SeverityHigh:
		code = ansiRed
	case models.SeverityMedium:
		code = ansiYellow
	case models.SeverityLow:
		code = ansiBlue
	default:
		return fmt.Sprintf("%-*s", width, text)
	}
	spaces := width - len(text)
	if spaces < 0 {
		spaces = 0
	}
	return code + text + ansiReset + strings.Repeat(" ", spaces)
}

// shortenMessage truncates msg to at most max runes, appending "..." when
// truncated. max is treated as at least 4 to guarantee space for the
// ellipsis.
func shortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// truncateField shortens s to at most max runes for ID/label columns.
func truncateField(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
