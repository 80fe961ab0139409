package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/pipeline"
	"github.com/MeKo-Tech/qrscan/internal/preprocess"
	"github.com/MeKo-Tech/qrscan/internal/report"
)

// Config represents the complete configuration for qrscan. It is loaded from
// configuration files, QRSCAN_* environment variables and command-line flags.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Scan      ScanConfig      `mapstructure:"scan" yaml:"scan" json:"scan"`
	Threshold ThresholdConfig `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	Enhance   EnhanceConfig   `mapstructure:"enhance" yaml:"enhance" json:"enhance"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// ScanConfig contains input and decoder settings.
type ScanConfig struct {
	DefaultImage string        `mapstructure:"default_image" yaml:"default_image" json:"default_image"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	TryHarder    bool          `mapstructure:"try_harder" yaml:"try_harder" json:"try_harder"`
	Formats      []string      `mapstructure:"formats" yaml:"formats" json:"formats"`
}

// ThresholdConfig contains adaptive threshold settings.
type ThresholdConfig struct {
	BlockSize int     `mapstructure:"block_size" yaml:"block_size" json:"block_size"`
	Offset    float64 `mapstructure:"offset" yaml:"offset" json:"offset"`
}

// EnhanceConfig contains enhancement settings.
type EnhanceConfig struct {
	Contrast float64 `mapstructure:"contrast" yaml:"contrast" json:"contrast"`
}

// OutputConfig contains result rendering settings.
type OutputConfig struct {
	Language string `mapstructure:"language" yaml:"language" json:"language"`
	Format   string `mapstructure:"format" yaml:"format" json:"format"`
}

// MetricsConfig controls the optional Prometheus text file.
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// DefaultImage is used when no path is given on the command line.
const DefaultImage = "image.png"

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	thr := preprocess.DefaultThresholdOptions()
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Scan: ScanConfig{
			DefaultImage: DefaultImage,
			TryHarder:    true,
			Formats:      []string{},
		},
		Threshold: ThresholdConfig{BlockSize: thr.BlockSize, Offset: thr.Offset},
		Enhance:   EnhanceConfig{Contrast: preprocess.DefaultContrast},
		Output:    OutputConfig{Language: "es", Format: string(report.FormatText)},
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level '%s', must be one of: %s",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if !contains([]string{"text", "json"}, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("invalid log format '%s', must be text or json", c.LogFormat)
	}

	if strings.TrimSpace(c.Scan.DefaultImage) == "" {
		return errors.New("scan.default_image must not be empty")
	}
	if c.Scan.Timeout < 0 {
		return fmt.Errorf("scan.timeout must be >= 0, got %s", c.Scan.Timeout)
	}
	if _, err := barcode.ParseFormats(c.Scan.Formats); err != nil {
		return fmt.Errorf("scan.formats: %w", err)
	}

	if c.Threshold.BlockSize < 3 || c.Threshold.BlockSize%2 == 0 {
		return fmt.Errorf("threshold.block_size must be odd and >= 3, got %d", c.Threshold.BlockSize)
	}
	if c.Threshold.Offset < 0 || c.Threshold.Offset > 255 {
		return fmt.Errorf("threshold.offset must be between 0 and 255, got %v", c.Threshold.Offset)
	}
	if c.Enhance.Contrast <= 0 || c.Enhance.Contrast > 20 {
		return fmt.Errorf("enhance.contrast must be in (0, 20], got %v", c.Enhance.Contrast)
	}

	if !report.SupportedLanguage(c.Output.Language) {
		return fmt.Errorf("invalid output language '%s', must be es or en", c.Output.Language)
	}
	if _, err := report.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}

// ToPipelineConfig converts the settings into a pipeline.Config. It assumes
// Validate has passed; unknown formats are dropped.
func (c *Config) ToPipelineConfig() pipeline.Config {
	formats, _ := barcode.ParseFormats(c.Scan.Formats)
	return pipeline.Config{
		Timeout:   c.Scan.Timeout,
		Enhance:   preprocess.EnhanceOptions{Contrast: c.Enhance.Contrast},
		Threshold: preprocess.ThresholdOptions{BlockSize: c.Threshold.BlockSize, Offset: c.Threshold.Offset},
		Barcode:   barcode.Options{Formats: formats, TryHarder: c.Scan.TryHarder},
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
