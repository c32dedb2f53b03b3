package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/jmckenzie-cs/shiftgate/internal/config"
	"github.com/jmckenzie-cs/shiftgate/internal/policy"
	"github.com/jmckenzie-cs/shiftgate/internal/scanner"
	"github.com/jmckenzie-cs/shiftgate/internal/upload"
)

// DoctorResult is the structured output of shiftgate doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable
// table (default).
type DoctorResult struct {
	Scanner struct {
		Name        string `json:"name"`
		BinaryOK    bool   `json:"binary_ok"`
		Path        string `json:"path,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		Error       string `json:"error,omitempty"`
	} `json:"scanner"`

	Policy struct {
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"policy"`

	AWS struct {
		Configured  bool   `json:"configured"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	OverallHealthy bool `json:"overall_healthy"`
}

// doctorDeps are the environment probes doctor relies on, injectable so
// tests can run without a real PATH, environment, or AWS account.
type doctorDeps struct {
	lookPath     func(file string) (string, error)
	getenv       func(key string) string
	loadIdentity func(ctx context.Context, profile, region string) (accountID string, err error)
}

func defaultDoctorDeps() doctorDeps {
	return doctorDeps{
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
		loadIdentity: func(ctx context.Context, profile, region string) (string, error) {
			up := upload.NewUploader()
			if err := up.Load(ctx, profile, region); err != nil {
				return "", err
			}
			return up.AccountID(), nil
		},
	}
}

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			scannerName, _ := cmd.Flags().GetString("scanner")
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("scanner") && cfg.Scanner.Name != "" {
				scannerName = cfg.Scanner.Name
			}

			result, err := runDoctor(
				cmd.Context(),
				defaultDoctorDeps(),
				cmd.OutOrStdout(),
				format,
				scannerName,
				*cfg,
			)
			if err != nil {
				// Rendering failure — let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("scanner", "fcs", "Scanner adapter to check")
	cmd.Flags().String("config", config.DefaultPath, "Path to the shiftgate config file")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result.
// The returned error covers only rendering failures (e.g. JSON encode error).
// Callers must inspect result.OverallHealthy; runDoctor never returns an
// error for an unhealthy environment.
func runDoctor(ctx context.Context, deps doctorDeps, w io.Writer, format, scannerName string, cfg config.Config) (DoctorResult, error) {
	result := collectDoctorResult(ctx, deps, scannerName, cfg)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering.
func collectDoctorResult(ctx context.Context, deps doctorDeps, scannerName string, cfg config.Config) DoctorResult {
	var result DoctorResult

	// Scanner: binary on PATH, plus API credentials for adapters that
	// need them. Trivy runs fully offline and has no credential check.
	result.Scanner.Name = scannerName
	path, err := deps.lookPath(scannerName)
	if err != nil {
		result.Scanner.Error = err.Error()
	} else {
		result.Scanner.BinaryOK = true
		result.Scanner.Path = path
	}
	switch scannerName {
	case "fcs":
		id := deps.getenv(scanner.EnvFalconClientID)
		secret := deps.getenv(scanner.EnvFalconClientSecret)
		if id != "" && secret != "" {
			result.Scanner.Credentials = true
		} else if result.Scanner.Error == "" {
			result.Scanner.Error = fmt.Sprintf("%s and %s must be set",
				scanner.EnvFalconClientID, scanner.EnvFalconClientSecret)
		}
	default:
		result.Scanner.Credentials = true
	}

	// Policy: stat → load (load already validates). The file is optional.
	if cfg.Gate.PolicyFile != "" {
		_, statErr := os.Stat(cfg.Gate.PolicyFile)
		switch {
		case statErr == nil:
			result.Policy.Present = true
			if _, loadErr := policy.Load(cfg.Gate.PolicyFile); loadErr != nil {
				result.Policy.Errors = []string{loadErr.Error()}
			} else {
				result.Policy.Valid = true
			}
		case !os.IsNotExist(statErr):
			// Stat error other than "not found" — present but unreadable.
			result.Policy.Present = true
			result.Policy.Errors = []string{statErr.Error()}
		}
	}

	// AWS: only checked when the S3 archive is configured.
	if cfg.Upload.Bucket != "" {
		result.AWS.Configured = true
		accountID, err := deps.loadIdentity(ctx, cfg.Upload.Profile, cfg.Upload.Region)
		if err != nil {
			result.AWS.Error = err.Error()
		} else {
			result.AWS.Credentials = true
			result.AWS.AccountID = accountID
		}
	}

	result.OverallHealthy = result.Scanner.BinaryOK &&
		result.Scanner.Credentials &&
		(!result.Policy.Present || result.Policy.Valid) &&
		(!result.AWS.Configured || result.AWS.Credentials)

	return result
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintf(w, "\nScanner (%s):\n", result.Scanner.Name)
	if result.Scanner.BinaryOK {
		doctorPrint(w, "Binary", "OK", result.Scanner.Path)
	} else {
		doctorPrint(w, "Binary", "FAIL", result.Scanner.Error)
	}
	if result.Scanner.Credentials {
		doctorPrint(w, "Credentials", "OK", "")
	} else {
		doctorPrint(w, "Credentials", "FAIL", result.Scanner.Error)
	}

	fmt.Fprintln(w, "\nPolicy:")
	if !result.Policy.Present {
		doctorPrint(w, "Policy file", "Not found (optional)", "")
	} else {
		doctorPrint(w, "Policy file", "YES", "")
		if result.Policy.Valid {
			doctorPrint(w, "Policy valid", "OK", "")
		} else {
			for _, e := range result.Policy.Errors {
				doctorPrint(w, "Policy valid", "FAIL", e)
			}
		}
	}

	fmt.Fprintln(w, "\nAWS:")
	if !result.AWS.Configured {
		doctorPrint(w, "S3 archive", "Not configured (optional)", "")
	} else if result.AWS.Credentials {
		doctorPrint(w, "Credentials", "OK", "Account: "+result.AWS.AccountID)
	} else {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
