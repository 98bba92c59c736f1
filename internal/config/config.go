package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zipkero/apply-env/internal/template"
)

// ErrConfig is wrapped by every configuration error.
var ErrConfig = errors.New("invalid configuration")

// Config is the YAML configuration file layout. Command-line flags use the
// same names and take precedence over the file.
type Config struct {
	HelmOnly   bool    `yaml:"helm_only"`
	Escape     bool    `yaml:"escape"`
	IfNotFound *string `yaml:"if_not_found"`
	Debug      bool    `yaml:"debug"`
	Rewrite    bool    `yaml:"rewrite"`
	Strict     bool    `yaml:"strict"`
	Watch      bool    `yaml:"watch"`

	// InheritEnv keeps the process environment as the last variable source
	// even when env or vars files are given.
	InheritEnv bool              `yaml:"inherit_env"`
	EnvFiles   []string          `yaml:"env_files"`
	VarsFiles  []string          `yaml:"vars_files"`
	Script     string            `yaml:"script"`
	Vars       map[string]string `yaml:"vars"`

	Concurrency int    `yaml:"concurrency"`
	ReportFile  string `yaml:"report_file"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Concurrency: 1,
		LogLevel:    "warn",
	}
}

// LoadConfig loads and validates a YAML config file.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrConfig, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yaml: %w", ErrConfig, err)
	}

	if config.Concurrency == 0 {
		config.Concurrency = 1
	}
	if config.LogLevel == "" {
		config.LogLevel = "warn"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks option values and combinations.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be greater than 0", ErrConfig)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.HelmOnly && c.Strict {
		return fmt.Errorf("%w: strict has no effect in helm-only mode", ErrConfig)
	}

	if c.Watch && c.Rewrite {
		return fmt.Errorf("%w: watch cannot be combined with rewrite", ErrConfig)
	}

	return nil
}

// HasFileSources reports whether env, vars files or inline vars are set.
func (c *Config) HasFileSources() bool {
	return len(c.EnvFiles) > 0 || len(c.VarsFiles) > 0 || len(c.Vars) > 0
}

// Policy builds the substitution policy for lookup.
func (c *Config) Policy(lookup template.LookupFunc) template.Policy {
	mode := template.ModeNormal
	if c.HelmOnly {
		mode = template.ModeHelmOnly
	}
	return template.Policy{
		Mode:     mode,
		Escape:   c.Escape,
		Fallback: c.IfNotFound,
		Debug:    c.Debug,
		Lookup:   lookup,
	}
}

// Level returns the slog level; Debug forces slog.LevelDebug.
func (c *Config) Level() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: unknown log level %q", ErrConfig, name)
	}
}
