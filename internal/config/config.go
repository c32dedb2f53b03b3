// Package config holds the application configuration loaded at startup.
package config

// Config is the top-level application configuration, loaded from
// ./shiftgate.yaml (or the --config flag). Every field has a flag
// counterpart; flags win when both are set.
type Config struct {
	Scanner ScannerConfig `yaml:"scanner"`
	Gate    GateConfig    `yaml:"gate"`
	Report  ReportConfig  `yaml:"report"`
	Upload  UploadConfig  `yaml:"upload"`
}

// ScannerConfig selects and tunes the external scanner.
type ScannerConfig struct {
	// Name selects the scanner adapter: "fcs" (default) or "trivy".
	Name string `yaml:"name"`

	// TimeoutSeconds bounds the scanner subprocess. 0 = no deadline.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// OutputDir is where raw scanner results are written.
	// Defaults to ".shiftgate".
	OutputDir string `yaml:"output_dir"`

	// UploadResults asks the scanner to upload to its remote console.
	UploadResults bool `yaml:"upload_results"`
}

// GateConfig configures the threshold gate.
type GateConfig struct {
	// PolicyFile is the path of a YAML threshold policy.
	PolicyFile string `yaml:"policy_file"`

	// FailOn is the compact threshold form, e.g. "critical=0,high=5".
	// Ignored when PolicyFile is set.
	FailOn string `yaml:"fail_on"`
}

// ReportConfig configures the output sinks.
type ReportConfig struct {
	// SARIFFile, when set, enables the SARIF sink.
	SARIFFile string `yaml:"sarif_file"`

	// MarkdownFile, when set, enables the PR-comment Markdown sink.
	MarkdownFile string `yaml:"markdown_file"`

	// Top caps the findings table in the console summary.
	Top int `yaml:"top"`
}

// UploadConfig configures the S3 report artifact sink. The sink is
// enabled only when Bucket is non-empty.
type UploadConfig struct {
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix"`
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}
