package barcode

import "log/slog"

// NewFallback returns the single-symbol fallback decoder selected at build time.
func NewFallback() FallbackDecoder { return newFallbackBackend() }

// swallow logs a fallback failure at debug level. Fallback decoders report
// failures as empty results.
func swallow(op, target string, cause any) {
	slog.Debug("Fallback decode failed", "op", op, "target", target, "error", cause)
}
