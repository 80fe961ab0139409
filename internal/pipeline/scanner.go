package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/preprocess"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// Diagnostic codes emitted by the scanner.
const (
	DiagErrorOpen   = "ERROR_OPEN"
	DiagErrPrimary  = "ERR_PYZBAR"
	DiagErrFallback = "ERR_OPENCV"
	DiagTimeout     = "TIMEOUT"
)

// DiagnosticSink receives "CODE" plus colon-separated fields. It must not
// write to the result channel.
type DiagnosticSink interface {
	Diagnostic(code string, fields ...string)
}

type discardSink struct{}

func (discardSink) Diagnostic(string, ...string) {}

// Option customises a Scanner.
type Option func(*Scanner)

// WithPrimaryDecoder replaces the multi-symbol decoder.
func WithPrimaryDecoder(d barcode.Decoder) Option {
	return func(s *Scanner) {
		if d != nil {
			s.primary = d
		}
	}
}

// WithFallbackDecoder replaces the single-symbol fallback decoder.
func WithFallbackDecoder(d barcode.FallbackDecoder) Option {
	return func(s *Scanner) {
		if d != nil {
			s.fallback = d
		}
	}
}

// WithDiagnostics sets where diagnostic lines go. The default discards them.
func WithDiagnostics(sink DiagnosticSink) Option {
	return func(s *Scanner) {
		if sink != nil {
			s.diag = sink
		}
	}
}

// WithMetrics records attempt counters into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// Scanner runs the strategy chain. A Scanner holds no per-scan state and may
// be reused for several files.
type Scanner struct {
	cfg      Config
	primary  barcode.Decoder
	fallback barcode.FallbackDecoder
	diag     DiagnosticSink
	metrics  *Metrics
}

// NewScanner builds a Scanner with the gozxing primary decoder and the
// build-selected fallback unless options override them.
func NewScanner(cfg Config, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:      cfg,
		primary:  barcode.NewPrimary(cfg.Barcode),
		fallback: barcode.NewFallback(),
		diag:     discardSink{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan decodes the QR payloads of the image at path.
//
// An unreadable file emits ERROR_OPEN and returns an error wrapping ErrOpen.
// Finding nothing is not an error: the Result is simply empty and its Trail
// lists every attempt.
func (s *Scanner) Scan(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	trail := &Trail{}

	src, meta, err := utils.LoadImage(path)
	if err != nil {
		s.diag.Diagnostic(DiagErrorOpen, err.Error())
		s.metrics.observeScan(statusOpenError, time.Since(start))
		return Result{Trail: trail.Entries(), Duration: time.Since(start)}, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	slog.Debug("Scanning image", "path", path, "image", meta.String())

	sweepCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	payloads := s.sweep(sweepCtx, src, trail)
	if len(payloads) == 0 {
		switch err := sweepCtx.Err(); {
		case errors.Is(err, context.DeadlineExceeded):
			s.diag.Diagnostic(DiagTimeout, time.Since(start).Round(time.Millisecond).String())
		case err != nil:
			slog.Debug("Rotation sweep cancelled", "error", err)
		}
		payloads = s.fallbacks(ctx, path, src, trail)
	}

	res := Result{Trail: trail.Entries(), Duration: time.Since(start)}
	if len(payloads) > 0 {
		res.Payloads = payloads
		res.Strategy = trail.Last()
		s.metrics.observeScan(statusFound, res.Duration)
		slog.Debug("QR decoded", "strategy", res.Strategy, "payloads", len(payloads))
	} else {
		s.metrics.observeScan(statusNotFound, res.Duration)
		slog.Debug("No QR decoded", "attempts", len(res.Trail))
	}
	return res, nil
}

// sweep tries every candidate in every rotation with the primary decoder and
// returns the first non-empty result.
func (s *Scanner) sweep(ctx context.Context, src image.Image, trail *Trail) []string {
	for _, c := range s.candidates(src) {
		if ctx.Err() != nil {
			return nil
		}
		img, err := buildCandidate(c)
		if err != nil {
			slog.Debug("Skipping candidate", "strategy", c.label, "error", err)
			s.metrics.skipped(c.label)
			continue
		}
		for _, angle := range preprocess.Angles {
			if ctx.Err() != nil {
				return nil
			}
			label := primaryLabel(c.label, angle)
			trail.add(label)
			payloads, err := s.tryPrimary(ctx, img, angle)
			if err != nil {
				slog.Debug("Primary decode failed", "strategy", c.label, "rotation", angle, "error", err)
				s.diag.Diagnostic(DiagErrPrimary, c.label, "rot"+strconv.Itoa(angle), err.Error())
				s.metrics.attempt(backendPrimary, c.label, outcomeError)
				continue
			}
			if len(payloads) > 0 {
				s.metrics.attempt(backendPrimary, c.label, outcomeFound)
				return payloads
			}
			s.metrics.attempt(backendPrimary, c.label, outcomeEmpty)
		}
	}
	return nil
}

func (s *Scanner) tryPrimary(ctx context.Context, img image.Image, angle int) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	rotated, err := preprocess.Rotate(img, angle)
	if err != nil {
		return nil, err
	}
	rs, err := s.primary.Decode(ctx, rotated)
	if err != nil {
		return nil, err
	}
	return barcode.Values(rs), nil
}

// fallbacks runs the two single-symbol attempts. They use the parent context
// so a spent sweep budget does not skip them.
func (s *Scanner) fallbacks(ctx context.Context, path string, src image.Image, trail *Trail) []string {
	trail.add(fallbackOriginalLabel)
	if payloads := s.tryFallbackFile(ctx, path); len(payloads) > 0 {
		s.metrics.attempt(backendFallback, "original", outcomeFound)
		return payloads
	}
	s.metrics.attempt(backendFallback, "original", outcomeEmpty)

	trail.add(fallbackScaledLabel)
	payloads, err := s.tryFallbackScaled(ctx, src)
	switch {
	case err != nil:
		slog.Debug("Fallback decode failed", "strategy", fallbackScaledLabel, "error", err)
		s.diag.Diagnostic(DiagErrFallback, fallbackScaledStep, err.Error())
		s.metrics.attempt(backendFallback, "escalada_x2", outcomeError)
	case len(payloads) > 0:
		s.metrics.attempt(backendFallback, "escalada_x2", outcomeFound)
		return payloads
	default:
		s.metrics.attempt(backendFallback, "escalada_x2", outcomeEmpty)
	}
	return nil
}

func (s *Scanner) tryFallbackFile(ctx context.Context, path string) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Fallback decode panicked", "strategy", fallbackOriginalLabel, "error", r)
			s.diag.Diagnostic(DiagErrFallback, "original", fmt.Sprint(r))
			out = nil
		}
	}()
	return barcode.Values(s.fallback.DecodeFile(ctx, path))
}

// tryFallbackScaled upscales the source again rather than reusing the
// scaled_2x candidate, and hands the decoder an opaque RGB copy.
func (s *Scanner) tryFallbackScaled(ctx context.Context, src image.Image) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	rgb, err := utils.ToOpaqueRGB(preprocess.Scale2x(src))
	if err != nil {
		return nil, err
	}
	rs, err := s.fallback.Decode(ctx, rgb)
	if err != nil {
		return nil, err
	}
	return barcode.Values(rs), nil
}

// buildCandidate runs a candidate's builder, turning panics into errors.
func buildCandidate(c candidateSource) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	img, err = c.build()
	if err == nil && utils.IsEmpty(img) {
		err = errors.New("empty candidate image")
	}
	return img, err
}
