package policy

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmckenzie-cs/shiftgate/internal/models"
)

// Load reads a threshold policy from a YAML file. The file must declare
// version 1 and may limit any subset of the five severities; severities
// it omits are unlimited.
func Load(path string) (*ThresholdPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file %q: %w", path, err)
	}

	if errs := validateFile(&file); len(errs) > 0 {
		return nil, fmt.Errorf("invalid policy file %q: %w", path, errors.Join(errs...))
	}

	return buildPolicy(file.Thresholds)
}

// ParseFailOn builds a policy from the compact CLI form
// "critical=5,high=10". An empty string yields a nil policy (no gate).
func ParseFailOn(spec string) (*ThresholdPolicy, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	thresholds := make(map[string]int)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("threshold %q: expected severity=limit", part)
		}
		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("threshold %q: limit must be an integer", part)
		}
		thresholds[strings.TrimSpace(name)] = limit
	}

	return buildPolicy(thresholds)
}

// buildPolicy validates severity names and limits, then freezes the map.
func buildPolicy(thresholds map[string]int) (*ThresholdPolicy, error) {
	limits := make(map[models.Severity]int, len(thresholds))
	var errs []error
	for name, limit := range thresholds {
		sev, known := models.NormalizeSeverity(name)
		if !known {
			errs = append(errs, fmt.Errorf("thresholds.%s: unknown severity; valid values: critical, high, medium, low, informational", name))
			continue
		}
		if limit < 0 {
			errs = append(errs, fmt.Errorf("thresholds.%s: limit must not be negative", name))
			continue
		}
		limits[sev] = limit
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &ThresholdPolicy{Limits: limits}, nil
}
