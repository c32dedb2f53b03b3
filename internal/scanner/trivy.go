package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// Trivy invokes `trivy config` for IaC misconfiguration scanning and
// adapts its JSON stdout. Trivy has no remote console, so
// Options.UploadResults is ignored.
type Trivy struct {
	// Binary is the CLI executable name or path. Defaults to "trivy".
	Binary string

	log *zap.SugaredLogger
	run commandRunner
}

// NewTrivy returns a Trivy adapter using the real CLI.
func NewTrivy(log *zap.SugaredLogger) *Trivy {
	return &Trivy{Binary: "trivy", log: log, run: runCommand}
}

func (s *Trivy) Name() string { return "trivy" }

// Scan implements Scanner.
func (s *Trivy) Scan(ctx context.Context, target string, opts Options) (*models.ScanReport, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	args := []string{"config", "-f", "json", "-q", target}
	s.log.Debugw("invoking scanner", "scanner", s.Name(), "target", target, "args", args)

	stdout, runErr := s.run(ctx, nil, s.Binary, args...)
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return nil, &UnavailableError{Scanner: s.Name(), Reason: "binary not found on PATH", Err: runErr}
		}
		if ctx.Err() != nil {
			return nil, &UnavailableError{Scanner: s.Name(), Reason: "scan timed out", Err: ctx.Err()}
		}
		return nil, &UnavailableError{Scanner: s.Name(), Reason: "subprocess failed", Err: runErr}
	}

	findings, parseErr := s.parseResults(stdout)
	if parseErr != nil {
		return nil, &ParseError{Scanner: s.Name(), Source: "stdout", Err: parseErr}
	}

	return &models.ScanReport{
		ReportID:    fmt.Sprintf("scan-%d", time.Now().UnixNano()),
		GeneratedAt: time.Now().UTC(),
		SourceRoot:  target,
		Scanner:     s.Name(),
		Findings:    findings,
	}, nil
}

// trivyOutput mirrors the misconfiguration slice of `trivy config -f json`.
type trivyOutput struct {
	Results []struct {
		Target            string `json:"Target"`
		Misconfigurations []struct {
			ID            string `json:"ID"`
			Title         string `json:"Title"`
			Description   string `json:"Description"`
			Severity      string `json:"Severity"`
			Resolution    string `json:"Resolution"`
			CauseMetadata struct {
				Resource  string `json:"Resource"`
				StartLine int    `json:"StartLine"`
			} `json:"CauseMetadata"`
		} `json:"Misconfigurations"`
	} `json:"Results"`
}

func (s *Trivy) parseResults(data []byte) ([]models.Finding, error) {
	var doc trivyOutput
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var out []models.Finding
	for _, r := range doc.Results {
		target := filepath.ToSlash(r.Target)
		for _, m := range r.Misconfigurations {
			sev, known := models.NormalizeSeverity(m.Severity)
			if !known {
				s.log.Warnw("unrecognised severity label mapped to INFORMATIONAL",
					"scanner", s.Name(), "severity", m.Severity, "rule", m.ID)
			}

			msg := strings.TrimSpace(m.Description)
			if msg == "" {
				msg = m.Title
			}

			out = append(out, models.Finding{
				RuleID:      m.ID,
				RuleName:    m.Title,
				Severity:    sev,
				File:        target,
				Resource:    m.CauseMetadata.Resource,
				Line:        m.CauseMetadata.StartLine,
				Message:     msg,
				Remediation: m.Resolution,
				Scanner:     s.Name(),
			})
		}
	}
	return out, nil
}
