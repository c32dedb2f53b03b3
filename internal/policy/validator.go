package policy

import (
	"fmt"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// validateFile checks the decoded policy file for semantic correctness and
// returns all validation errors found. An empty slice means the file is
// valid.
//
// Checks performed:
//   - version must be 1
//   - threshold keys must be one of the five severity names
//   - threshold limits must not be negative
//
// All errors are collected before returning; validateFile never stops at
// the first error.
func validateFile(file *policyFile) []error {
	if file == nil {
		return []error{fmt.Errorf("policy file is nil")}
	}

	var errs []error

	if file.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", file.Version))
	}

	for name, limit := range file.Thresholds {
		if _, known := models.NormalizeSeverity(name); !known {
			errs = append(errs, fmt.Errorf("thresholds.%s: unknown severity; valid values: critical, high, medium, low, informational", name))
		}
		if limit < 0 {
			errs = append(errs, fmt.Errorf("thresholds.%s: limit must not be negative, got %d", name, limit))
		}
	}

	return errs
}
