// Package config - Run configuration for the tag detection evaluator.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TAGEVAL_"

// MaxWorkers is the largest accepted Workers value.
const MaxWorkers = 256

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the configuration of one comparison run.
type Config struct {
	// GroundTruthDir holds one <stem>.json ground truth file per image.
	GroundTruthDir string `json:"ground_truth_dir" yaml:"ground_truth_dir" validate:"required"`

	// DetectorsDir holds one sub-directory of detection files per detector.
	DetectorsDir string `json:"detectors_dir" yaml:"detectors_dir" validate:"required"`

	// Detectors restricts and orders the evaluated detectors (empty = all sub-directories).
	Detectors []string `json:"detectors" yaml:"detectors" validate:"dive,required"`

	// OutputDir receives the report and summary files.
	OutputDir string `json:"output_dir" yaml:"output_dir" validate:"required"`

	// Workers bounds concurrent file loading.
	Workers int `json:"workers" yaml:"workers" validate:"min=1,max=256"`

	// LoadTimeout bounds dataset loading; 0 disables the limit.
	LoadTimeout time.Duration `json:"load_timeout" yaml:"load_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`

	// LogFile optionally mirrors logs to a rotated file.
	LogFile string `json:"log_file" yaml:"log_file"`
}

// DefaultConfig returns a configuration with sensible defaults.
//
// Returns:
//   - *Config: Defaults; GroundTruthDir and DetectorsDir still need to be set.
//
// @example
// cfg := DefaultConfig()
// cfg.GroundTruthDir = "data/ground_truth"
// cfg.DetectorsDir = "data/results"
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "./comparison_results",
		Workers:     clampWorkers(runtime.NumCPU()),
		LoadTimeout: 10 * time.Minute,
		LogLevel:    "info",
	}
}

func clampWorkers(n int) int {
	return max(1, min(n, MaxWorkers))
}

// LoadConfig reads a YAML or JSON configuration file on top of the defaults.
// Files ending in .json are decoded as JSON, anything else as YAML.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		unmarshal = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal
	}

	var raw fileConfig
	if err := unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := raw.applyTo(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileConfig mirrors Config with optional fields so a file only overrides what it sets.
// LoadTimeout is a duration string such as "90s".
type fileConfig struct {
	GroundTruthDir *string  `json:"ground_truth_dir" yaml:"ground_truth_dir"`
	DetectorsDir   *string  `json:"detectors_dir"    yaml:"detectors_dir"`
	Detectors      []string `json:"detectors"        yaml:"detectors"`
	OutputDir      *string  `json:"output_dir"       yaml:"output_dir"`
	Workers        *int     `json:"workers"          yaml:"workers"`
	LoadTimeout    *string  `json:"load_timeout"     yaml:"load_timeout"`
	LogLevel       *string  `json:"log_level"        yaml:"log_level"`
	LogFile        *string  `json:"log_file"         yaml:"log_file"`
}

func (f fileConfig) applyTo(cfg *Config) error {
	setString(&cfg.GroundTruthDir, f.GroundTruthDir)
	setString(&cfg.DetectorsDir, f.DetectorsDir)
	setString(&cfg.OutputDir, f.OutputDir)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFile, f.LogFile)
	if f.Detectors != nil {
		cfg.Detectors = f.Detectors
	}
	if f.Workers != nil {
		cfg.Workers = *f.Workers
	}
	if f.LoadTimeout != nil {
		d, err := time.ParseDuration(*f.LoadTimeout)
		if err != nil {
			return errors.Wrapf(err, "invalid load_timeout %q", *f.LoadTimeout)
		}
		cfg.LoadTimeout = d
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// LoadEnv loads the given .env files (missing files are ignored) and applies
// TAGEVAL_* environment variables to cfg.
//
// Recognised variables: TAGEVAL_GROUND_TRUTH_DIR, TAGEVAL_DETECTORS_DIR,
// TAGEVAL_DETECTORS (comma separated), TAGEVAL_OUTPUT_DIR, TAGEVAL_WORKERS,
// TAGEVAL_LOAD_TIMEOUT, TAGEVAL_LOG_LEVEL, TAGEVAL_LOG_FILE.
func (c *Config) LoadEnv(envFiles ...string) error {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.Wrapf(err, "failed to load %s", file)
		}
	}

	if v, ok := lookupEnv("GROUND_TRUTH_DIR"); ok {
		c.GroundTruthDir = v
	}
	if v, ok := lookupEnv("DETECTORS_DIR"); ok {
		c.DetectorsDir = v
	}
	if v, ok := lookupEnv("DETECTORS"); ok {
		c.Detectors = SplitList(v)
	}
	if v, ok := lookupEnv("OUTPUT_DIR"); ok {
		c.OutputDir = v
	}
	if v, ok := lookupEnv("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sWORKERS", EnvPrefix)
		}
		c.Workers = n
	}
	if v, ok := lookupEnv("LOAD_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sLOAD_TIMEOUT", EnvPrefix)
		}
		c.LoadTimeout = d
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookupEnv("LOG_FILE"); ok {
		c.LogFile = v
	}

	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.LoadTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "load_timeout must not be negative, got %s", c.LoadTimeout)
	}
	return nil
}

// SaveConfig writes the configuration as YAML.
func (c *Config) SaveConfig(filename string) error {
	raw := fileConfig{
		GroundTruthDir: &c.GroundTruthDir,
		DetectorsDir:   &c.DetectorsDir,
		Detectors:      c.Detectors,
		OutputDir:      &c.OutputDir,
		Workers:        &c.Workers,
		LogLevel:       &c.LogLevel,
		LogFile:        &c.LogFile,
	}
	timeout := c.LoadTimeout.String()
	raw.LoadTimeout = &timeout

	data, err := yaml.Marshal(raw)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}
