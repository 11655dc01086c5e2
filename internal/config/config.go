// Package config loads agent configuration from file, flags, and
// environment via viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the full pairchoice configuration.
type Config struct {
	Address    string           `mapstructure:"address"`
	Experiment ExperimentConfig `mapstructure:"experiment"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Timing     TimingConfig     `mapstructure:"timing"`
	Viewport   ViewportConfig   `mapstructure:"viewport"`
	Log        LogConfig        `mapstructure:"log"`
	Seed       int64            `mapstructure:"seed"`
}

// ExperimentConfig points at the study definition.
type ExperimentConfig struct {
	File string `mapstructure:"file"`
}

// SubmissionConfig describes the crowdsourcing endpoint.
type SubmissionConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// TimingConfig holds the sequencer and sampler delays in milliseconds.
type TimingConfig struct {
	SettleMS      int `mapstructure:"settle_ms"`
	BlankMS       int `mapstructure:"blank_ms"`
	SubmitDelayMS int `mapstructure:"submit_delay_ms"`
	SampleMS      int `mapstructure:"sample_ms"`
}

// ViewportConfig describes the presentation area geometry used to
// normalize pointer coordinates.
type ViewportConfig struct {
	OffsetX float64 `mapstructure:"offset_x"`
	OffsetY float64 `mapstructure:"offset_y"`
	Width   float64 `mapstructure:"width"`
	Height  float64 `mapstructure:"height"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load unmarshals the active viper configuration and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:8417"
	}
	if cfg.Experiment.File == "" {
		cfg.Experiment.File = "experiment.yaml"
	}
	if cfg.Submission.TimeoutSec == 0 {
		cfg.Submission.TimeoutSec = 30
	}
	// Timing keys are only defaulted when absent. An explicit zero stays
	// zero so Validate rejects it instead of silently substituting the
	// default delay.
	if cfg.Timing.SettleMS == 0 && !viper.IsSet("timing.settle_ms") {
		cfg.Timing.SettleMS = 500
	}
	if cfg.Timing.BlankMS == 0 && !viper.IsSet("timing.blank_ms") {
		cfg.Timing.BlankMS = 500
	}
	if cfg.Timing.SubmitDelayMS == 0 && !viper.IsSet("timing.submit_delay_ms") {
		cfg.Timing.SubmitDelayMS = 1500
	}
	if cfg.Timing.SampleMS == 0 && !viper.IsSet("timing.sample_ms") {
		cfg.Timing.SampleMS = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	if c.Submission.Endpoint == "" {
		return fmt.Errorf("submission.endpoint is required")
	}
	if c.Timing.SettleMS <= 0 || c.Timing.BlankMS <= 0 || c.Timing.SubmitDelayMS <= 0 {
		return fmt.Errorf("timing delays must be positive")
	}
	if c.Timing.SampleMS <= 0 {
		return fmt.Errorf("timing.sample_ms must be positive")
	}
	return nil
}
