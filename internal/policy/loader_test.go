package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writePolicy(t, `
version: 1
thresholds:
  critical: 0
  high: 5
  informational: 100
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if limit, ok := p.Limit(models.SeverityCritical); !ok || limit != 0 {
		t.Errorf("critical limit = %d/%v, want 0/true", limit, ok)
	}
	if limit, ok := p.Limit(models.SeverityHigh); !ok || limit != 5 {
		t.Errorf("high limit = %d/%v, want 5/true", limit, ok)
	}
	if _, ok := p.Limit(models.SeverityMedium); ok {
		t.Error("medium must be unlimited when absent from the file")
	}
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	path := writePolicy(t, "version: 2\nthresholds:\n  critical: 0\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for version 2")
	}
}

func TestLoad_CollectsAllValidationErrors(t *testing.T) {
	path := writePolicy(t, `
version: 3
thresholds:
  banana: 1
  high: -2
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"version", "banana", "negative"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error must mention %q, got: %v", want, msg)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseFailOn_CompactForm(t *testing.T) {
	p, err := ParseFailOn("critical=5,high=10")
	if err != nil {
		t.Fatalf("ParseFailOn returned error: %v", err)
	}
	if limit, ok := p.Limit(models.SeverityCritical); !ok || limit != 5 {
		t.Errorf("critical limit = %d/%v, want 5/true", limit, ok)
	}
	if limit, ok := p.Limit(models.SeverityHigh); !ok || limit != 10 {
		t.Errorf("high limit = %d/%v, want 10/true", limit, ok)
	}
	if _, ok := p.Limit(models.SeverityLow); ok {
		t.Error("low must be unlimited")
	}
}

func TestParseFailOn_Empty(t *testing.T) {
	p, err := ParseFailOn("")
	if err != nil {
		t.Fatalf("ParseFailOn returned error: %v", err)
	}
	if p != nil {
		t.Error("empty spec must yield nil policy")
	}
}

func TestParseFailOn_Invalid(t *testing.T) {
	for _, spec := range []string{"critical", "critical=x", "banana=1", "high=-1"} {
		if _, err := ParseFailOn(spec); err == nil {
			t.Errorf("ParseFailOn(%q): expected error", spec)
		}
	}
}
