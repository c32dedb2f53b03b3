package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmckenzie-cs/shiftgate/internal/classify"
	"github.com/jmckenzie-cs/shiftgate/internal/config"
	"github.com/jmckenzie-cs/shiftgate/internal/engine"
	"github.com/jmckenzie-cs/shiftgate/internal/logging"
	"github.com/jmckenzie-cs/shiftgate/internal/models"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
	"github.com/jmckenzie-cs/shiftgate/internal/remediate"
	"github.com/jmckenzie-cs/shiftgate/internal/report"
	"github.com/jmckenzie-cs/shiftgate/internal/scanner"
	"github.com/jmckenzie-cs/shiftgate/internal/upload"
	"github.com/jmckenzie-cs/shiftgate/internal/version"
)

// errGateFailed is returned by scan and gate when the threshold policy is
// violated. The violations themselves are already rendered by the summary
// sink; this error only drives the non-zero exit code.
var errGateFailed = errors.New("threshold policy violated")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shiftgate",
		Short: "Shift-left IaC security scanning gate",
	}
	root.AddCommand(newScanCmd())
	root.AddCommand(newGateCmd())
	root.AddCommand(newRemediateCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

func newScanCmd() *cobra.Command {
	var (
		configPath    string
		scannerName   string
		patterns      []string
		policyFile    string
		failOn        string
		format        string
		output        string
		sarifFile     string
		markdownFile  string
		timeoutSecs   int
		outputDir     string
		uploadResults bool
		bucket        string
		prefix        string
		profile       string
		region        string
		top           int
		color         bool
		debug         bool
	)

	cmd := &cobra.Command{
		Use:           "scan [path]",
		Short:         "Scan IaC sources and gate on finding thresholds",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			log, err := logging.New(debug)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}

			// Flags win over the config file; fall back per field.
			if !cmd.Flags().Changed("scanner") && cfg.Scanner.Name != "" {
				scannerName = cfg.Scanner.Name
			}
			if !cmd.Flags().Changed("timeout") && cfg.Scanner.TimeoutSeconds > 0 {
				timeoutSecs = cfg.Scanner.TimeoutSeconds
			}
			if !cmd.Flags().Changed("output-dir") && cfg.Scanner.OutputDir != "" {
				outputDir = cfg.Scanner.OutputDir
			}
			if !cmd.Flags().Changed("upload-results") {
				uploadResults = cfg.Scanner.UploadResults
			}
			if policyFile == "" {
				policyFile = cfg.Gate.PolicyFile
			}
			if failOn == "" {
				failOn = cfg.Gate.FailOn
			}
			if sarifFile == "" {
				sarifFile = cfg.Report.SARIFFile
			}
			if markdownFile == "" {
				markdownFile = cfg.Report.MarkdownFile
			}
			if !cmd.Flags().Changed("top") && cfg.Report.Top != 0 {
				top = cfg.Report.Top
			}
			if bucket == "" {
				bucket = cfg.Upload.Bucket
			}
			if prefix == "" {
				prefix = cfg.Upload.Prefix
			}
			if profile == "" {
				profile = cfg.Upload.Profile
			}
			if region == "" {
				region = cfg.Upload.Region
			}

			pol, err := loadGatePolicy(policyFile, failOn)
			if err != nil {
				return err
			}

			sinks, closeSinks, err := buildSinks(cmd.Context(), sinkConfig{
				summaryW:     cmd.OutOrStdout(),
				jsonOnly:     format == "json",
				sarifFile:    sarifFile,
				markdownFile: markdownFile,
				bucket:       bucket,
				prefix:       prefix,
				profile:      profile,
				region:       region,
				top:          top,
				color:        color,
			}, log)
			if err != nil {
				return err
			}
			defer closeSinks()

			eng := engine.NewDefaultEngine(newScannerRegistry(log), sinks, log)
			res, err := eng.Run(cmd.Context(), engine.Options{
				Target:        target,
				Scanner:       scannerName,
				Patterns:      patterns,
				Policy:        pol,
				Timeout:       time.Duration(timeoutSecs) * time.Second,
				OutputDir:     outputDir,
				UploadResults: uploadResults,
			})
			if err != nil {
				return err
			}

			if output != "" {
				if err := writeReportToFile(output, res.Report); err != nil {
					return err
				}
			}
			if format == "json" {
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}

			if !res.Gate.Passed {
				return fmt.Errorf("%w: %d severity threshold(s) exceeded",
					errGateFailed, len(res.Gate.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Path to the shiftgate config file")
	cmd.Flags().StringVar(&scannerName, "scanner", "fcs", `Scanner adapter: "fcs" or "trivy"`)
	cmd.Flags().StringSliceVar(&patterns, "filter", nil, "Glob pattern(s) selecting source files (default: built-in IaC patterns)")
	cmd.Flags().StringVar(&policyFile, "policy", "", "Path to a YAML threshold policy file")
	cmd.Flags().StringVar(&failOn, "fail-on", "", `Inline thresholds, e.g. "critical=0,high=5"; severities: `+severityList()+" (ignored when --policy is set)")
	cmd.Flags().StringVar(&format, "format", "table", `Output format: "table" or "json"`)
	cmd.Flags().StringVar(&output, "output", "", "Write the classified JSON report to this file path")
	cmd.Flags().StringVar(&sarifFile, "sarif-file", "", "Write a SARIF 2.1.0 report to this file path")
	cmd.Flags().StringVar(&markdownFile, "markdown-file", "", "Write a PR-comment Markdown report to this file path")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Scanner subprocess timeout in seconds (0 = no deadline)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for raw scanner results (default: .shiftgate)")
	cmd.Flags().BoolVar(&uploadResults, "upload-results", false, "Ask the scanner to upload results to its remote console")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "Archive the JSON report to this S3 bucket")
	cmd.Flags().StringVar(&prefix, "s3-prefix", "", "Key prefix for archived S3 reports")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile for the S3 archive (default: credential chain)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region for the S3 archive")
	cmd.Flags().IntVar(&top, "top", 0, "Findings shown in the summary table (0 = default of 10, negative hides)")
	cmd.Flags().BoolVar(&color, "color", false, "Colorize severity labels in the summary")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func newGateCmd() *cobra.Command {
	var (
		input      string
		policyFile string
		failOn     string
		top        int
		color      bool
	)

	cmd := &cobra.Command{
		Use:           "gate",
		Short:         "Evaluate an existing JSON report against a threshold policy",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pol, err := loadGatePolicy(policyFile, failOn)
			if err != nil {
				return err
			}
			gate, err := runGate(cmd.OutOrStdout(), input, pol, top, color)
			if err != nil {
				return err
			}
			if !gate.Passed {
				return fmt.Errorf("%w: %d severity threshold(s) exceeded",
					errGateFailed, len(gate.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path of the JSON report to evaluate (as written by scan --output)")
	cmd.Flags().StringVar(&policyFile, "policy", "", "Path to a YAML threshold policy file")
	cmd.Flags().StringVar(&failOn, "fail-on", "", `Inline thresholds, e.g. "critical=0,high=5"`)
	cmd.Flags().IntVar(&top, "top", 0, "Findings shown in the summary table")
	cmd.Flags().BoolVar(&color, "color", false, "Colorize severity labels in the summary")
	cmd.MarkFlagRequired("input") //nolint:errcheck

	return cmd
}

func newRemediateCmd() *cobra.Command {
	var (
		resultsDir string
		baseBranch string
		branch     string
		template   string
		targetFile string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:           "remediate",
		Short:         "Open a fix pull request for critical and high findings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(debug)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			r := remediate.NewRemediator(template, targetFile, log)
			r.BaseBranch = baseBranch
			if branch != "" {
				r.BranchName = branch
			}
			return r.Run(cmd.Context(), resultsDir)
		},
	}

	cmd.Flags().StringVar(&resultsDir, "results-dir", ".shiftgate/fcs-results", "Directory holding raw scanner result JSON files")
	cmd.Flags().StringVar(&baseBranch, "base-branch", "main", "Branch the fix branch is created from")
	cmd.Flags().StringVar(&branch, "branch", "", "Fix branch name (default: "+remediate.DefaultBranchName+")")
	cmd.Flags().StringVar(&template, "template", "", "Path of the known-good template file to apply")
	cmd.Flags().StringVar(&targetFile, "target-file", "", "Path the template is copied over")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.MarkFlagRequired("template")    //nolint:errcheck
	cmd.MarkFlagRequired("target-file") //nolint:errcheck

	return cmd
}

// loadGatePolicy resolves the gate policy from a policy file or the compact
// --fail-on form. The file wins when both are given; both empty means no gate.
func loadGatePolicy(policyFile, failOn string) (*policy.ThresholdPolicy, error) {
	if policyFile != "" {
		return policy.Load(policyFile)
	}
	return policy.ParseFailOn(failOn)
}

// newScannerRegistry registers every built-in scanner adapter.
func newScannerRegistry(log *zap.SugaredLogger) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(scanner.NewFCS(log))
	reg.Register(scanner.NewTrivy(log))
	return reg
}

// sinkConfig collects everything buildSinks needs to assemble the sink list.
type sinkConfig struct {
	summaryW     io.Writer
	jsonOnly     bool
	sarifFile    string
	markdownFile string
	bucket       string
	prefix       string
	profile      string
	region       string
	top          int
	color        bool
}

// buildSinks assembles the report sinks for one scan run. The returned
// cleanup closes any files the sinks write to and must run after the
// engine has rendered.
func buildSinks(ctx context.Context, sc sinkConfig, log *zap.SugaredLogger) ([]report.Sink, func(), error) {
	var (
		sinks   []report.Sink
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			c.Close() //nolint:errcheck
		}
	}

	if !sc.jsonOnly {
		sinks = append(sinks, &report.SummarySink{W: sc.summaryW, TopN: sc.top, Colored: sc.color})
	}
	if sc.sarifFile != "" {
		sinks = append(sinks, &report.SARIFSink{
			Path:        sc.sarifFile,
			ToolName:    "shiftgate",
			ToolVersion: version.Version,
		})
	}
	if sc.markdownFile != "" {
		f, err := os.Create(sc.markdownFile)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("create markdown file %q: %w", sc.markdownFile, err)
		}
		closers = append(closers, f)
		sinks = append(sinks, &report.MarkdownSink{W: f})
	}
	if sc.bucket != "" {
		up := upload.NewUploader()
		if err := up.Load(ctx, sc.profile, sc.region); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("load AWS credentials for S3 archive: %w", err)
		}
		sinks = append(sinks, &report.S3Sink{
			Store:  up,
			Bucket: sc.bucket,
			Prefix: sc.prefix,
			Log:    log,
		})
	}

	return sinks, closeAll, nil
}

// runGate loads a JSON report from inputPath, re-classifies it so counts are
// trustworthy regardless of who produced the file, evaluates the gate, and
// renders a summary to w.
func runGate(w io.Writer, inputPath string, pol *policy.ThresholdPolicy, top int, color bool) (policy.GateResult, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return policy.GateResult{}, fmt.Errorf("read report %q: %w", inputPath, err)
	}

	var rep models.ScanReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return policy.GateResult{}, fmt.Errorf("parse report %q: %w", inputPath, err)
	}

	classified := classify.Classify(&rep)
	gate := policy.Evaluate(classified, pol)

	sink := &report.SummarySink{W: w, TopN: top, Colored: color}
	if err := sink.Render(context.Background(), classified, gate); err != nil {
		return gate, err
	}
	return gate, nil
}

// writeReportToFile serialises the classified report as indented JSON and
// writes it to path, creating or overwriting the file.
func writeReportToFile(path string, rep *models.ScanReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report file %q: %w", path, err)
	}
	return nil
}

// printJSON writes the run result (report plus gate) as indented JSON to w.
func printJSON(w io.Writer, res *engine.RunResult) error {
	doc := struct {
		Report *models.ScanReport `json:"report"`
		Gate   policy.GateResult  `json:"gate"`
	}{Report: res.Report, Gate: res.Gate}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// severityList names the accepted severity keys for flag help text.
func severityList() string {
	names := make([]string, 0, len(models.Severities()))
	for _, s := range models.Severities() {
		names = append(names, strings.ToLower(string(s)))
	}
	return strings.Join(names, ", ")
}
