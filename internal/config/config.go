// Package config loads and validates csrgen configuration from YAML files
// and CLI flags. There is no process-wide configuration state: the loaded
// Config is passed explicitly into each component at construction.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfiguration is wrapped by every validation failure so callers
// can distinguish input errors from runtime failures.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// GenerationConfig holds text-generation service settings.
type GenerationConfig struct {
	// Model is the model identifier sent to the generation endpoint.
	Model string `yaml:"model"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in config files.
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout bounds each generation request.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry budget for transient transport failures.
	MaxRetries int `yaml:"max_retries"`
}

// HistoryConfig holds run-history persistence settings.
type HistoryConfig struct {
	// Enabled turns on SQLite run history.
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database.
	DBPath string `yaml:"db_path"`
}

// InputsConfig holds the pipeline input document paths.
type InputsConfig struct {
	// ClinicalData is the structured clinical-trial data (JSON).
	ClinicalData string `yaml:"clinical_data"`

	// Template is the CSR template document.
	Template string `yaml:"template"`

	// Reference is an optional high-quality sample CSR the completeness
	// rubric compares against.
	Reference string `yaml:"reference"`

	// Checklist is an optional regulatory section checklist file; when
	// empty the built-in ICH E3-style checklist is used.
	Checklist string `yaml:"checklist"`
}

// Config represents csrgen configuration options.
type Config struct {
	// TargetConfidence is the combined score the loop must reach, in [0, 100].
	TargetConfidence float64 `yaml:"target_confidence"`

	// MaxIterations bounds the number of evaluate/revise cycles. Must be >= 1.
	MaxIterations int `yaml:"max_iterations"`

	// OutputDir is where document versions and reports are written.
	OutputDir string `yaml:"output_dir"`

	// Stem is the base filename for generated document versions.
	Stem string `yaml:"stem"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// SequentialEvaluation disables the concurrent evaluator fan-out.
	SequentialEvaluation bool `yaml:"sequential_evaluation"`

	// Generation configures the text-generation client.
	Generation GenerationConfig `yaml:"generation"`

	// Inputs configures the pipeline input documents.
	Inputs InputsConfig `yaml:"inputs"`

	// History configures run-history persistence.
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		TargetConfidence: 80,
		MaxIterations:    3,
		OutputDir:        "output",
		Stem:             "csr",
		LogLevel:         "info",
		Generation: GenerationConfig{
			Model:      "gpt-4o-mini",
			BaseURL:    "https://api.openai.com/v1",
			APIKeyEnv:  "OPENAI_API_KEY",
			Timeout:    2 * time.Minute,
			MaxRetries: 2,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".csrgen/history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Temporary struct so durations can be written as strings ("90s", "2m").
	type yamlGeneration struct {
		Model      string `yaml:"model"`
		BaseURL    string `yaml:"base_url"`
		APIKeyEnv  string `yaml:"api_key_env"`
		Timeout    string `yaml:"timeout"`
		MaxRetries *int   `yaml:"max_retries"`
	}
	type yamlConfig struct {
		TargetConfidence     *float64       `yaml:"target_confidence"`
		MaxIterations        *int           `yaml:"max_iterations"`
		OutputDir            string         `yaml:"output_dir"`
		Stem                 string         `yaml:"stem"`
		LogLevel             string         `yaml:"log_level"`
		SequentialEvaluation *bool          `yaml:"sequential_evaluation"`
		Generation           yamlGeneration `yaml:"generation"`
		Inputs               InputsConfig   `yaml:"inputs"`
		History              *HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.TargetConfidence != nil {
		cfg.TargetConfidence = *yamlCfg.TargetConfidence
	}
	if yamlCfg.MaxIterations != nil {
		cfg.MaxIterations = *yamlCfg.MaxIterations
	}
	if yamlCfg.OutputDir != "" {
		cfg.OutputDir = yamlCfg.OutputDir
	}
	if yamlCfg.Stem != "" {
		cfg.Stem = yamlCfg.Stem
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.SequentialEvaluation != nil {
		cfg.SequentialEvaluation = *yamlCfg.SequentialEvaluation
	}

	if yamlCfg.Generation.Model != "" {
		cfg.Generation.Model = yamlCfg.Generation.Model
	}
	if yamlCfg.Generation.BaseURL != "" {
		cfg.Generation.BaseURL = yamlCfg.Generation.BaseURL
	}
	if yamlCfg.Generation.APIKeyEnv != "" {
		cfg.Generation.APIKeyEnv = yamlCfg.Generation.APIKeyEnv
	}
	if yamlCfg.Generation.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Generation.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid generation.timeout %q: %w", yamlCfg.Generation.Timeout, err)
		}
		cfg.Generation.Timeout = timeout
	}
	if yamlCfg.Generation.MaxRetries != nil {
		cfg.Generation.MaxRetries = *yamlCfg.Generation.MaxRetries
	}

	if yamlCfg.Inputs.ClinicalData != "" {
		cfg.Inputs.ClinicalData = yamlCfg.Inputs.ClinicalData
	}
	if yamlCfg.Inputs.Template != "" {
		cfg.Inputs.Template = yamlCfg.Inputs.Template
	}
	if yamlCfg.Inputs.Reference != "" {
		cfg.Inputs.Reference = yamlCfg.Inputs.Reference
	}
	if yamlCfg.Inputs.Checklist != "" {
		cfg.Inputs.Checklist = yamlCfg.Inputs.Checklist
	}

	if yamlCfg.History != nil {
		cfg.History = *yamlCfg.History
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .csrgen/config.yaml in the
// specified directory. Missing file returns defaults without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".csrgen", "config.yaml"))
}

// APIKey resolves the generation API key from the configured environment
// variable. Empty when unset, which is valid for local endpoints.
func (c *Config) APIKey() string {
	if c.Generation.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Generation.APIKeyEnv)
}

// Validate validates the configuration values.
// All failures wrap ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c.TargetConfidence < 0 || c.TargetConfidence > 100 {
		return fmt.Errorf("%w: target_confidence must be in [0, 100], got %v", ErrInvalidConfiguration, c.TargetConfidence)
	}

	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1, got %d", ErrInvalidConfiguration, c.MaxIterations)
	}

	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log_level %q, must be one of: trace, debug, info, warn, error", ErrInvalidConfiguration, c.LogLevel)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir cannot be empty", ErrInvalidConfiguration)
	}
	if c.Stem == "" {
		return fmt.Errorf("%w: stem cannot be empty", ErrInvalidConfiguration)
	}

	if c.Generation.Model == "" {
		return fmt.Errorf("%w: generation.model cannot be empty", ErrInvalidConfiguration)
	}
	if c.Generation.BaseURL == "" {
		return fmt.Errorf("%w: generation.base_url cannot be empty", ErrInvalidConfiguration)
	}
	if c.Generation.Timeout < 0 {
		return fmt.Errorf("%w: generation.timeout must be >= 0, got %v", ErrInvalidConfiguration, c.Generation.Timeout)
	}
	if c.Generation.MaxRetries < 0 {
		return fmt.Errorf("%w: generation.max_retries must be >= 0, got %d", ErrInvalidConfiguration, c.Generation.MaxRetries)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("%w: history.db_path cannot be empty when history is enabled", ErrInvalidConfiguration)
	}

	return nil
}

// ValidateInputs checks that the configured input documents are present.
// Called by commands that actually run the pipeline; Validate alone is
// enough for offline commands like compare and history.
func (c *Config) ValidateInputs() error {
	if c.Inputs.ClinicalData == "" {
		return fmt.Errorf("%w: inputs.clinical_data is required", ErrInvalidConfiguration)
	}
	if c.Inputs.Template == "" {
		return fmt.Errorf("%w: inputs.template is required", ErrInvalidConfiguration)
	}

	required := []string{c.Inputs.ClinicalData, c.Inputs.Template}
	optional := []string{c.Inputs.Reference, c.Inputs.Checklist}

	for _, path := range required {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: input file %s: %v", ErrInvalidConfiguration, path, err)
		}
	}
	for _, path := range optional {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: input file %s: %v", ErrInvalidConfiguration, path, err)
		}
	}

	return nil
}
