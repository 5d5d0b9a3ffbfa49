// Package config loads the optional profiler.yaml defaults file:
// CLI flags always override values set here. Generalizes
// quarry/cli/config/config.go's Config/Duration shape from Quarry's
// storage/policy/proxy sections to this domain's storage/strategy/
// tuning/notify sections.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds profiler.yaml defaults. All fields are optional; zero
// values mean "let the CLI flag default apply."
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Strategy StrategyConfig `yaml:"strategy"`
	Tuning   TuningConfig   `yaml:"tuning"`
	Notify   NotifyConfig   `yaml:"notify"`
	Workers  int            `yaml:"workers"`
	MemLimit int            `yaml:"mem_limit"`
	LogLevel string         `yaml:"log_level"`
}

// StorageConfig holds artifact storage defaults.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "fs" or "s3"
	Path    string `yaml:"path"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
}

// StrategyConfig holds the default recovery strategy.
type StrategyConfig struct {
	Default string `yaml:"default"`
}

// TuningConfig holds the Rules Engine's tuning knobs.
type TuningConfig struct {
	TimeoutStep int      `yaml:"timeout_step"`
	TimeoutMax  int      `yaml:"timeout_max"`
	PruneFactor float64  `yaml:"prune_factor"`
	MinRows     int      `yaml:"min_rows"`
	AskTimeout  Duration `yaml:"ask_timeout,omitempty"`
}

// NotifyConfig holds the optional run-completion notification targets.
type NotifyConfig struct {
	WebhookURL   string   `yaml:"webhook_url,omitempty"`
	RedisAddr    string   `yaml:"redis_addr,omitempty"`
	RedisChannel string   `yaml:"redis_channel,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in defaults, matching spec.md §6's CLI flag
// defaults, used when no profiler.yaml is present.
func Default() Config {
	return Config{
		Storage:  StorageConfig{Backend: "fs", Path: "results"},
		Strategy: StrategyConfig{Default: "ask"},
		Tuning: TuningConfig{
			TimeoutStep: 300,
			TimeoutMax:  1800,
			PruneFactor: 0.7,
			MinRows:     1000,
		},
		Workers:  0,
		LogLevel: "info",
	}
}

// Load reads path and merges it onto Default(), leaving any field the
// file omits at its built-in default. A missing file is not an error:
// it returns Default() unchanged, since profiler.yaml is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var overlay Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&overlay); err != nil {
		return cfg, fmt.Errorf("config: invalid YAML in %s: %w", path, err)
	}
	mergeInto(&cfg, overlay)
	return cfg, nil
}

func mergeInto(dst *Config, src Config) {
	if src.Storage.Backend != "" {
		dst.Storage.Backend = src.Storage.Backend
	}
	if src.Storage.Path != "" {
		dst.Storage.Path = src.Storage.Path
	}
	if src.Storage.Bucket != "" {
		dst.Storage.Bucket = src.Storage.Bucket
	}
	if src.Storage.Region != "" {
		dst.Storage.Region = src.Storage.Region
	}
	if src.Strategy.Default != "" {
		dst.Strategy.Default = src.Strategy.Default
	}
	if src.Tuning.TimeoutStep != 0 {
		dst.Tuning.TimeoutStep = src.Tuning.TimeoutStep
	}
	if src.Tuning.TimeoutMax != 0 {
		dst.Tuning.TimeoutMax = src.Tuning.TimeoutMax
	}
	if src.Tuning.PruneFactor != 0 {
		dst.Tuning.PruneFactor = src.Tuning.PruneFactor
	}
	if src.Tuning.MinRows != 0 {
		dst.Tuning.MinRows = src.Tuning.MinRows
	}
	if src.Tuning.AskTimeout.Duration != 0 {
		dst.Tuning.AskTimeout = src.Tuning.AskTimeout
	}
	dst.Notify = src.Notify
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.MemLimit != 0 {
		dst.MemLimit = src.MemLimit
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}
