package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
	"go.uber.org/zap"
)

// ── helpers ───────────────────────────────────────────────────────────────────

// sampleScanReport returns a raw report with one duplicated critical finding,
// so tests can observe the gate path re-classifying its input.
func sampleScanReport() *models.ScanReport {
	return &models.ScanReport{
		ReportID:    "scan-test",
		GeneratedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		SourceRoot:  "infra",
		Scanner:     "fcs",
		Findings: []models.Finding{
			{
				RuleID:   "CKV_AWS_20",
				RuleName: "S3 bucket allows public READ",
				Severity: models.SeverityCritical,
				File:     "s3.tf",
				Resource: "aws_s3_bucket.logs",
				Message:  "Bucket ACL grants public read access",
			},
			{
				RuleID:   "CKV_AWS_20",
				RuleName: "S3 bucket allows public READ",
				Severity: models.SeverityCritical,
				File:     "s3.tf",
				Resource: "aws_s3_bucket.logs",
				Message:  "Bucket ACL grants public read access",
			},
			{
				RuleID:   "CKV_AWS_79",
				RuleName: "Instance Metadata Service v1 enabled",
				Severity: models.SeverityHigh,
				File:     "ec2.tf",
				Resource: "aws_instance.web",
				Message:  "IMDSv1 is enabled",
			},
		},
	}
}

func writeSampleReport(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "report.json")
	if err := writeReportToFile(path, sampleScanReport()); err != nil {
		t.Fatalf("writeReportToFile: %v", err)
	}
	return path
}

// ── policy resolution ─────────────────────────────────────────────────────────

func TestLoadGatePolicy_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nthresholds:\n  critical: 0\n  high: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pol, err := loadGatePolicy(path, "critical=99")
	if err != nil {
		t.Fatalf("loadGatePolicy: %v", err)
	}
	limit, ok := pol.Limit(models.SeverityCritical)
	if !ok || limit != 0 {
		t.Errorf("critical limit = %d, %v; want 0 from the file, not the fail-on form", limit, ok)
	}
}

func TestLoadGatePolicy_FailOnOnly(t *testing.T) {
	pol, err := loadGatePolicy("", "high=2")
	if err != nil {
		t.Fatalf("loadGatePolicy: %v", err)
	}
	limit, ok := pol.Limit(models.SeverityHigh)
	if !ok || limit != 2 {
		t.Errorf("high limit = %d, %v; want 2", limit, ok)
	}
}

func TestLoadGatePolicy_Empty(t *testing.T) {
	pol, err := loadGatePolicy("", "")
	if err != nil {
		t.Fatalf("loadGatePolicy: %v", err)
	}
	if pol != nil {
		t.Errorf("expected nil policy when nothing is configured, got %+v", pol)
	}
}

// ── gate path ─────────────────────────────────────────────────────────────────

func TestRunGate_Failing(t *testing.T) {
	path := writeSampleReport(t, t.TempDir())

	pol, err := policy.ParseFailOn("critical=0")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	gate, err := runGate(&buf, path, pol, 0, false)
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}

	if gate.Passed {
		t.Error("gate passed with a critical finding over a zero limit")
	}
	if len(gate.Violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(gate.Violations))
	}
	// The duplicate critical finding must collapse before evaluation.
	if v := gate.Violations[0]; v.Severity != models.SeverityCritical || v.Observed != 1 {
		t.Errorf("violation = %+v, want CRITICAL observed 1", v)
	}
	if !strings.Contains(buf.String(), "FAILED") {
		t.Errorf("summary output missing verdict:\n%s", buf.String())
	}
}

func TestRunGate_PassingWithoutPolicy(t *testing.T) {
	path := writeSampleReport(t, t.TempDir())

	var buf bytes.Buffer
	gate, err := runGate(&buf, path, nil, 0, false)
	if err != nil {
		t.Fatalf("runGate: %v", err)
	}
	if !gate.Passed {
		t.Errorf("gate failed without a policy: %+v", gate)
	}
	if !strings.Contains(buf.String(), "PASSED") {
		t.Errorf("summary output missing verdict:\n%s", buf.String())
	}
}

func TestRunGate_MissingInput(t *testing.T) {
	var buf bytes.Buffer
	if _, err := runGate(&buf, filepath.Join(t.TempDir(), "absent.json"), nil, 0, false); err == nil {
		t.Fatal("expected error for missing report file")
	}
}

func TestRunGate_MalformedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := runGate(&buf, path, nil, 0, false); err == nil {
		t.Fatal("expected error for malformed report file")
	}
}

func TestGateCmd_ExitsNonZeroOnViolation(t *testing.T) {
	path := writeSampleReport(t, t.TempDir())

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"gate", "--input", path, "--fail-on", "critical=0"})

	err := root.Execute()
	if !errors.Is(err, errGateFailed) {
		t.Fatalf("Execute() error = %v, want errGateFailed", err)
	}
}

func TestGateCmd_PassesUnderLimits(t *testing.T) {
	path := writeSampleReport(t, t.TempDir())

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs([]string{"gate", "--input", path, "--fail-on", "critical=5,high=5"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if !strings.Contains(buf.String(), "PASSED") {
		t.Errorf("summary output missing verdict:\n%s", buf.String())
	}
}

// ── sinks and serialization ───────────────────────────────────────────────────

func TestBuildSinks_Selection(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	sinks, closeSinks, err := buildSinks(context.Background(), sinkConfig{
		summaryW:     &buf,
		sarifFile:    filepath.Join(dir, "out.sarif"),
		markdownFile: filepath.Join(dir, "out.md"),
	}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("buildSinks: %v", err)
	}
	defer closeSinks()

	var names []string
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	want := []string{"summary", "sarif", "markdown"}
	if len(names) != len(want) {
		t.Fatalf("sinks = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("sinks[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestBuildSinks_JSONOnlySkipsSummary(t *testing.T) {
	sinks, closeSinks, err := buildSinks(context.Background(), sinkConfig{
		summaryW: &bytes.Buffer{},
		jsonOnly: true,
	}, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("buildSinks: %v", err)
	}
	defer closeSinks()

	if len(sinks) != 0 {
		t.Errorf("expected no sinks for a bare --format=json run, got %d", len(sinks))
	}
}

func TestWriteReportToFile_Roundtrip(t *testing.T) {
	path := writeSampleReport(t, t.TempDir())

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded models.ScanReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written report does not decode: %v", err)
	}
	if decoded.ReportID != "scan-test" || len(decoded.Findings) != 3 {
		t.Errorf("decoded report = id %q, %d findings", decoded.ReportID, len(decoded.Findings))
	}
}
