package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmckenzie-cs/shiftgate/internal/config"
	"github.com/jmckenzie-cs/shiftgate/internal/scanner"
)

// ── fake probes ───────────────────────────────────────────────────────────────

// goodDeps returns probes describing a fully healthy environment: scanner
// binary on PATH, Falcon credentials set, AWS identity resolvable.
func goodDeps() doctorDeps {
	return doctorDeps{
		lookPath: func(file string) (string, error) {
			return "/usr/local/bin/" + file, nil
		},
		getenv: func(key string) string {
			switch key {
			case scanner.EnvFalconClientID:
				return "client-id"
			case scanner.EnvFalconClientSecret:
				return "client-secret"
			}
			return ""
		},
		loadIdentity: func(_ context.Context, _, _ string) (string, error) {
			return "123456789012", nil
		},
	}
}

func noBinaryDeps() doctorDeps {
	deps := goodDeps()
	deps.lookPath = func(file string) (string, error) {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", file)
	}
	return deps
}

func noCredsDeps() doctorDeps {
	deps := goodDeps()
	deps.getenv = func(string) string { return "" }
	return deps
}

// ── collectDoctorResult ───────────────────────────────────────────────────────

func TestCollectDoctorResult_Healthy(t *testing.T) {
	result := collectDoctorResult(context.Background(), goodDeps(), "fcs", config.Config{})

	if !result.Scanner.BinaryOK {
		t.Error("Scanner.BinaryOK = false, want true")
	}
	if result.Scanner.Path != "/usr/local/bin/fcs" {
		t.Errorf("Scanner.Path = %q", result.Scanner.Path)
	}
	if !result.Scanner.Credentials {
		t.Error("Scanner.Credentials = false, want true")
	}
	if result.Policy.Present {
		t.Error("Policy.Present = true with no policy configured")
	}
	if result.AWS.Configured {
		t.Error("AWS.Configured = true with no bucket configured")
	}
	if !result.OverallHealthy {
		t.Errorf("OverallHealthy = false for healthy environment: %+v", result)
	}
}

func TestCollectDoctorResult_MissingBinary(t *testing.T) {
	result := collectDoctorResult(context.Background(), noBinaryDeps(), "fcs", config.Config{})

	if result.Scanner.BinaryOK {
		t.Error("Scanner.BinaryOK = true, want false")
	}
	if result.Scanner.Error == "" {
		t.Error("Scanner.Error should name the missing binary")
	}
	if result.OverallHealthy {
		t.Error("OverallHealthy = true with missing scanner binary")
	}
}

func TestCollectDoctorResult_MissingCredentials(t *testing.T) {
	result := collectDoctorResult(context.Background(), noCredsDeps(), "fcs", config.Config{})

	if result.Scanner.Credentials {
		t.Error("Scanner.Credentials = true without Falcon environment variables")
	}
	if !strings.Contains(result.Scanner.Error, scanner.EnvFalconClientID) {
		t.Errorf("Scanner.Error should name the missing variables; got %q", result.Scanner.Error)
	}
	if result.OverallHealthy {
		t.Error("OverallHealthy = true without credentials")
	}
}

func TestCollectDoctorResult_TrivyNeedsNoCredentials(t *testing.T) {
	result := collectDoctorResult(context.Background(), noCredsDeps(), "trivy", config.Config{})

	if !result.Scanner.Credentials {
		t.Error("trivy should not require credentials")
	}
	if !result.OverallHealthy {
		t.Errorf("OverallHealthy = false for trivy without Falcon credentials: %+v", result)
	}
}

func TestCollectDoctorResult_PolicyFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("version: 1\nthresholds:\n  critical: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("version: 2\nthresholds:\n  bogus: -1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name        string
		path        string
		wantPresent bool
		wantValid   bool
		wantHealthy bool
	}{
		{"valid policy", valid, true, true, true},
		{"invalid policy", invalid, true, false, false},
		{"configured but missing", filepath.Join(dir, "absent.yaml"), false, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Config{}
			cfg.Gate.PolicyFile = tc.path

			result := collectDoctorResult(context.Background(), goodDeps(), "fcs", cfg)

			if result.Policy.Present != tc.wantPresent {
				t.Errorf("Policy.Present = %v, want %v", result.Policy.Present, tc.wantPresent)
			}
			if result.Policy.Valid != tc.wantValid {
				t.Errorf("Policy.Valid = %v, want %v", result.Policy.Valid, tc.wantValid)
			}
			if result.OverallHealthy != tc.wantHealthy {
				t.Errorf("OverallHealthy = %v, want %v (%+v)", result.OverallHealthy, tc.wantHealthy, result)
			}
		})
	}
}

func TestCollectDoctorResult_AWSArchive(t *testing.T) {
	cfg := config.Config{}
	cfg.Upload.Bucket = "scan-artifacts"

	result := collectDoctorResult(context.Background(), goodDeps(), "fcs", cfg)

	if !result.AWS.Configured {
		t.Error("AWS.Configured = false with a bucket configured")
	}
	if !result.AWS.Credentials {
		t.Error("AWS.Credentials = false, want true")
	}
	if result.AWS.AccountID != "123456789012" {
		t.Errorf("AWS.AccountID = %q", result.AWS.AccountID)
	}
	if !result.OverallHealthy {
		t.Errorf("OverallHealthy = false: %+v", result)
	}
}

func TestCollectDoctorResult_AWSFailure(t *testing.T) {
	deps := goodDeps()
	deps.loadIdentity = func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("no credential providers in chain")
	}
	cfg := config.Config{}
	cfg.Upload.Bucket = "scan-artifacts"

	result := collectDoctorResult(context.Background(), deps, "fcs", cfg)

	if result.AWS.Credentials {
		t.Error("AWS.Credentials = true, want false")
	}
	if result.OverallHealthy {
		t.Error("OverallHealthy = true with failing AWS identity")
	}
}

// ── rendering ─────────────────────────────────────────────────────────────────

func TestRunDoctor_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	result, err := runDoctor(context.Background(), goodDeps(), &buf, "json", "fcs", config.Config{})
	if err != nil {
		t.Fatalf("runDoctor: %v", err)
	}
	if !result.OverallHealthy {
		t.Fatalf("expected healthy result: %+v", result)
	}

	var decoded DoctorResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("doctor JSON output does not decode: %v\n%s", err, buf.String())
	}
	if !decoded.OverallHealthy {
		t.Error("decoded overall_healthy = false")
	}
	if decoded.Scanner.Name != "fcs" {
		t.Errorf("decoded scanner name = %q", decoded.Scanner.Name)
	}
}

func TestRunDoctor_TableFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := runDoctor(context.Background(), noBinaryDeps(), &buf, "table", "fcs", config.Config{}); err != nil {
		t.Fatalf("runDoctor: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Environment Diagnostics", "Scanner (fcs):", "FAIL", "Not found (optional)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q; got:\n%s", want, out)
		}
	}
}
