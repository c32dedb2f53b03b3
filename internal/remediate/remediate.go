// Package remediate turns scan results into a fix pull request: it loads
// previously written scanner result files, selects the critical and high
// findings, applies a known-good remediation template over the vulnerable
// source, and opens a PR through git and the gh CLI.
package remediate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// DefaultBranchName is the fix branch created for critical/high findings.
const DefaultBranchName = "security-fixes/critical-high-remediation"

// commandRunner executes git/gh commands. Injected for tests.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("%s %v: %w (output: %s)", name, args, err, bytes.TrimSpace(out.Bytes()))
	}
	return out.Bytes(), nil
}

// LoadResults reads every *.json file in dir and returns the findings
// from their rule_detections blocks, in file order. Files without a
// rule_detections block contribute nothing; an undecodable file is an
// error, never silently skipped.
func LoadResults(dir string) ([]models.Finding, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	var findings []models.Finding
	for _, path := range paths {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, readErr
		}

		var doc struct {
			RuleDetections []struct {
				RuleID      string `json:"rule_id"`
				RuleName    string `json:"rule_name"`
				Severity    string `json:"severity"`
				Description string `json:"description"`
				Details     string `json:"details"`
				File        string `json:"file"`
				ResourceID  string `json:"resource_id"`
			} `json:"rule_detections"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse results file %q: %w", path, err)
		}

		for _, d := range doc.RuleDetections {
			sev, _ := models.NormalizeSeverity(d.Severity)
			msg := d.Details
			if msg == "" {
				msg = d.Description
			}
			findings = append(findings, models.Finding{
				RuleID:   d.RuleID,
				RuleName: d.RuleName,
				Severity: sev,
				File:     d.File,
				Resource: d.ResourceID,
				Message:  msg,
				Scanner:  "fcs",
			})
		}
	}
	return findings, nil
}

// Bucket groups findings by severity, preserving order inside each group.
func Bucket(findings []models.Finding) map[models.Severity][]models.Finding {
	out := make(map[models.Severity][]models.Finding)
	for _, f := range findings {
		out[f.Severity] = append(out[f.Severity], f)
	}
	return out
}

// Remediator applies template fixes and opens the pull request.
type Remediator struct {
	// BaseBranch is the branch PRs target. Defaults to "main".
	BaseBranch string

	// BranchName is the fix branch. Defaults to DefaultBranchName.
	BranchName string

	// TemplatePath is the known-good file copied over TargetPath.
	TemplatePath string

	// TargetPath is the vulnerable file being replaced.
	TargetPath string

	log *zap.SugaredLogger
	run commandRunner
}

// NewRemediator returns a remediator using the real git and gh CLIs.
func NewRemediator(templatePath, targetPath string, log *zap.SugaredLogger) *Remediator {
	return &Remediator{
		BaseBranch:   "main",
		BranchName:   DefaultBranchName,
		TemplatePath: templatePath,
		TargetPath:   targetPath,
		log:          log,
		run:          runCommand,
	}
}

// Run loads results from resultsDir and, when critical or high findings
// are present, creates the fix branch, applies the template, and opens a
// PR. It is a no-op (nil error) when there is nothing to remediate.
func (r *Remediator) Run(ctx context.Context, resultsDir string) error {
	findings, err := LoadResults(resultsDir)
	if err != nil {
		return fmt.Errorf("load scan results: %w", err)
	}
	if len(findings) == 0 {
		r.log.Info("no findings to remediate")
		return nil
	}

	buckets := Bucket(findings)
	urgent := append(buckets[models.SeverityCritical], buckets[models.SeverityHigh]...)
	if len(urgent) == 0 {
		r.log.Info("no critical or high findings requiring remediation")
		return nil
	}

	r.log.Infow("creating remediation pull request", "findings", len(urgent))

	if _, err := r.run(ctx, "git", "checkout", r.BaseBranch); err != nil {
		return fmt.Errorf("checkout base branch: %w", err)
	}
	if _, err := r.run(ctx, "git", "checkout", "-b", r.BranchName); err != nil {
		return fmt.Errorf("create fix branch: %w", err)
	}

	if err := r.applyTemplate(); err != nil {
		return err
	}

	if _, err := r.run(ctx, "git", "add", r.TargetPath); err != nil {
		return fmt.Errorf("stage fix: %w", err)
	}
	if _, err := r.run(ctx, "git", "commit", "-m", commitMessage(urgent)); err != nil {
		return fmt.Errorf("commit fix: %w", err)
	}
	if _, err := r.run(ctx, "git", "push", "-u", "origin", r.BranchName); err != nil {
		return fmt.Errorf("push fix branch: %w", err)
	}

	title := fmt.Sprintf("Fix %d critical/high security issues", len(urgent))
	out, err := r.run(ctx, "gh", "pr", "create",
		"--title", title,
		"--body", PRBody(urgent),
		"--head", r.BranchName,
		"--base", r.BaseBranch,
	)
	if err != nil {
		return fmt.Errorf("create pull request: %w", err)
	}

	r.log.Infow("pull request created", "url", string(bytes.TrimSpace(out)))
	return nil
}

// applyTemplate copies the secure template over the vulnerable file.
func (r *Remediator) applyTemplate() error {
	data, err := os.ReadFile(r.TemplatePath)
	if err != nil {
		return fmt.Errorf("read remediation template: %w", err)
	}
	if err := os.WriteFile(r.TargetPath, data, 0o644); err != nil {
		return fmt.Errorf("apply remediation template: %w", err)
	}
	return nil
}

func commitMessage(urgent []models.Finding) string {
	return fmt.Sprintf("Fix %d critical/high security findings\n\nReplaces the vulnerable configuration with the hardened template.", len(urgent))
}
