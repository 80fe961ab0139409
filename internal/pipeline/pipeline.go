// Package pipeline runs the QR extraction strategy: preprocessing candidates
// against the primary decoder in four rotations, then the fallback decoder on
// the original file and on a fresh upscaled copy.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/preprocess"
)

// ErrOpen is returned by Scan when the source image cannot be read.
var ErrOpen = errors.New("cannot open image")

// Config holds the tunables of a scan.
type Config struct {
	// Timeout bounds the primary sweep. Zero means unlimited.
	Timeout   time.Duration
	Enhance   preprocess.EnhanceOptions
	Threshold preprocess.ThresholdOptions
	Barcode   barcode.Options
}

// DefaultConfig returns the stock strategy settings.
func DefaultConfig() Config {
	return Config{
		Enhance:   preprocess.DefaultEnhanceOptions(),
		Threshold: preprocess.DefaultThresholdOptions(),
		Barcode:   barcode.DefaultOptions(),
	}
}

// Validate checks the configuration for values the transformers reject.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must be >= 0")
	}
	if c.Enhance.Contrast <= 0 {
		return fmt.Errorf("contrast must be > 0, got %v", c.Enhance.Contrast)
	}
	if c.Threshold.BlockSize < 3 || c.Threshold.BlockSize%2 == 0 {
		return fmt.Errorf("%w: got %d", preprocess.ErrInvalidBlockSize, c.Threshold.BlockSize)
	}
	return nil
}

// Builder constructs a Scanner with fluent configuration.
type Builder struct {
	cfg  Config
	opts []Option
}

// NewBuilder creates a new scanner builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithTimeout bounds the primary sweep. Non-positive values disable the bound.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	if d < 0 {
		d = 0
	}
	b.cfg.Timeout = d
	return b
}

// WithContrast sets the enhancer's contrast gain.
func (b *Builder) WithContrast(gain float64) *Builder {
	if gain > 0 {
		b.cfg.Enhance.Contrast = gain
	}
	return b
}

// WithThreshold sets the adaptive threshold neighbourhood and offset.
func (b *Builder) WithThreshold(blockSize int, offset float64) *Builder {
	if blockSize > 0 {
		b.cfg.Threshold.BlockSize = blockSize
	}
	b.cfg.Threshold.Offset = offset
	return b
}

// WithFormats restricts the primary decoder to the given symbologies.
func (b *Builder) WithFormats(formats []barcode.Format) *Builder {
	if len(formats) > 0 {
		b.cfg.Barcode.Formats = formats
	}
	return b
}

// WithTryHarder toggles the primary decoder's exhaustive mode.
func (b *Builder) WithTryHarder(enabled bool) *Builder {
	b.cfg.Barcode.TryHarder = enabled
	return b
}

// WithOptions appends scanner options such as injected decoders.
func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Build validates the configuration and returns a Scanner.
func (b *Builder) Build() (*Scanner, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan config: %w", err)
	}
	return NewScanner(b.cfg, b.opts...), nil
}

// Result is the outcome of one scan.
type Result struct {
	// Payloads holds every decoded payload of the winning attempt.
	Payloads []string
	// Strategy is the trail entry that produced Payloads, empty if none did.
	Strategy string
	// Trail lists every attempt in order.
	Trail    []string
	Duration time.Duration
}

// Found reports whether any payload was decoded.
func (r Result) Found() bool { return len(r.Payloads) > 0 }

// Trail records attempt labels in order.
type Trail struct {
	entries []string
}

func (t *Trail) add(entry string) { t.entries = append(t.entries, entry) }

// Entries returns a copy of the recorded labels.
func (t *Trail) Entries() []string {
	if len(t.entries) == 0 {
		return []string{}
	}
	return append([]string(nil), t.entries...)
}

// Last returns the most recent label.
func (t *Trail) Last() string {
	if len(t.entries) == 0 {
		return ""
	}
	return t.entries[len(t.entries)-1]
}

func primaryLabel(candidate string, angle int) string {
	return fmt.Sprintf("pyzbar:%s:rot%d", candidate, angle)
}

const (
	fallbackOriginalLabel = "opencv:original"
	fallbackScaledLabel   = "opencv:escalada_x2"
	fallbackScaledStep    = "escalada"
)
