package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// Environment variables holding the Falcon API credentials.
const (
	EnvFalconClientID     = "FALCON_CLIENT_ID"
	EnvFalconClientSecret = "FALCON_CLIENT_SECRET"
)

// FCS invokes the CrowdStrike Falcon Cloud Security CLI (`fcs iac scan`)
// and adapts its JSON result files. The CLI performs its own source
// traversal, so FCS receives the scan root rather than a file list. When
// Options.UploadResults is set the CLI also uploads results to the Falcon
// console; that upload is the CLI's own side effect and is never retried
// here.
type FCS struct {
	// Binary is the CLI executable name or path. Defaults to "fcs".
	Binary string

	log *zap.SugaredLogger
	run commandRunner

	// lookupEnv is injectable for credential tests.
	lookupEnv func(string) string
}

// NewFCS returns an FCS adapter using the real CLI and process environment.
func NewFCS(log *zap.SugaredLogger) *FCS {
	return &FCS{
		Binary:    "fcs",
		log:       log,
		run:       runCommand,
		lookupEnv: os.Getenv,
	}
}

func (s *FCS) Name() string { return "fcs" }

// Scan implements Scanner.
func (s *FCS) Scan(ctx context.Context, target string, opts Options) (*models.ScanReport, error) {
	clientID := s.lookupEnv(EnvFalconClientID)
	clientSecret := s.lookupEnv(EnvFalconClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, &UnavailableError{
			Scanner: s.Name(),
			Reason:  fmt.Sprintf("%s and %s must be set", EnvFalconClientID, EnvFalconClientSecret),
		}
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = ".shiftgate"
	}
	resultsDir := filepath.Join(outDir, "fcs-results")
	// The directory persists across runs; leftover result files from an
	// earlier invocation must never be read as this run's output.
	if err := os.RemoveAll(resultsDir); err != nil {
		return nil, &UnavailableError{Scanner: s.Name(), Reason: "clear results directory", Err: err}
	}
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, &UnavailableError{Scanner: s.Name(), Reason: "create results directory", Err: err}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := []string{
		"iac", "scan",
		"-p", target,
		"--format", "json",
		"--output-path", resultsDir,
	}
	if opts.UploadResults {
		args = append(args, "--upload-results")
	}

	s.log.Debugw("invoking scanner", "scanner", s.Name(), "target", target, "args", args)

	_, runErr := s.run(ctx, nil, s.Binary, args...)
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return nil, &UnavailableError{Scanner: s.Name(), Reason: "binary not found on PATH", Err: runErr}
		}
		if ctx.Err() != nil {
			return nil, &UnavailableError{Scanner: s.Name(), Reason: "scan timed out", Err: ctx.Err()}
		}
		// The CLI exits non-zero when findings breach its own severity
		// gate. That is still a completed scan, so only fail here when no
		// result files were produced at all.
	}

	files, err := filepath.Glob(filepath.Join(resultsDir, "*.json"))
	if err != nil {
		return nil, &UnavailableError{Scanner: s.Name(), Reason: "list result files", Err: err}
	}
	if len(files) == 0 {
		reason := "no result files produced"
		return nil, &UnavailableError{Scanner: s.Name(), Reason: reason, Err: runErr}
	}

	var findings []models.Finding
	for _, path := range files {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, &UnavailableError{Scanner: s.Name(), Reason: "read result file", Err: readErr}
		}
		parsed, parseErr := s.parseResults(data)
		if parseErr != nil {
			return nil, &ParseError{Scanner: s.Name(), Source: path, Err: parseErr}
		}
		findings = append(findings, parsed...)
	}

	return &models.ScanReport{
		ReportID:    fmt.Sprintf("scan-%d", time.Now().UnixNano()),
		GeneratedAt: time.Now().UTC(),
		SourceRoot:  target,
		Scanner:     s.Name(),
		Findings:    findings,
	}, nil
}

// fcsResultFile mirrors the relevant slice of the FCS CLI JSON output.
type fcsResultFile struct {
	RuleDetections []fcsDetection `json:"rule_detections"`
}

type fcsDetection struct {
	RuleID      string `json:"rule_id"`
	RuleName    string `json:"rule_name"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Remediation string `json:"remediation"`
	File        string `json:"file"`
	ResourceID  string `json:"resource_id"`
	Line        int    `json:"line"`
}

// parseResults decodes one FCS result file into findings. Severity labels
// outside the canonical taxonomy map to INFORMATIONAL and are logged.
func (s *FCS) parseResults(data []byte) ([]models.Finding, error) {
	var doc fcsResultFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := make([]models.Finding, 0, len(doc.RuleDetections))
	for _, d := range doc.RuleDetections {
		sev, known := models.NormalizeSeverity(d.Severity)
		if !known {
			s.log.Warnw("unrecognised severity label mapped to INFORMATIONAL",
				"scanner", s.Name(), "severity", d.Severity, "rule", d.RuleName)
		}

		msg := strings.TrimSpace(d.Details)
		if msg == "" {
			msg = strings.TrimSpace(d.Description)
		}
		if msg == "" {
			msg = d.RuleName
		}

		ruleID := d.RuleID
		if ruleID == "" {
			ruleID = d.RuleName
		}

		out = append(out, models.Finding{
			RuleID:      ruleID,
			RuleName:    d.RuleName,
			Severity:    sev,
			File:        filepath.ToSlash(d.File),
			Resource:    d.ResourceID,
			Line:        d.Line,
			Message:     msg,
			Remediation: d.Remediation,
			Scanner:     s.Name(),
		})
	}
	return out, nil
}
