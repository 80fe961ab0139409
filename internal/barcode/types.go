package barcode

import (
	"context"
	"fmt"
	"image"
	"strings"
)

// Format represents a barcode symbology.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatCode128
	FormatCode39
	FormatEAN8
	FormatEAN13
	FormatUPCA
	FormatUPCE
	FormatITF
	FormatCodabar
)

// AllFormats lists every symbology the primary decoder can read.
var AllFormats = []Format{
	FormatQR, FormatDataMatrix, FormatAztec,
	FormatCode128, FormatCode39, FormatEAN8, FormatEAN13,
	FormatUPCA, FormatUPCE, FormatITF, FormatCodabar,
}

// Options controls primary decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []Format

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool
}

// DefaultOptions searches every format with TryHarder enabled.
func DefaultOptions() Options {
	return Options{TryHarder: true}
}

// Result represents a decoded barcode.
type Result struct {
	Type   Format
	Value  string
	Points []image.Point // finder/corner points if the backend provides them
}

// Decoder extracts zero or more payloads from an image. An image without a
// symbol is an empty result, not an error.
type Decoder interface {
	Decode(ctx context.Context, img image.Image) ([]Result, error)
}

// FallbackDecoder is a best-effort single-symbol decoder. DecodeFile reads the
// image itself; neither method ever reports a failure.
type FallbackDecoder interface {
	Decoder
	DecodeFile(ctx context.Context, path string) []Result
}

// Values returns the payload strings of rs in order.
func Values(rs []Result) []string {
	if len(rs) == 0 {
		return nil
	}
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Value)
	}
	return out
}

// ParseFormat maps a user-facing name such as "qr" or "ean-13" to a Format.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qr", "qrcode", "qr_code":
		return FormatQR, true
	case "datamatrix", "data-matrix":
		return FormatDataMatrix, true
	case "aztec":
		return FormatAztec, true
	case "code128", "code-128":
		return FormatCode128, true
	case "code39", "code-39":
		return FormatCode39, true
	case "ean8", "ean-8":
		return FormatEAN8, true
	case "ean13", "ean-13":
		return FormatEAN13, true
	case "upca", "upc-a":
		return FormatUPCA, true
	case "upce", "upc-e":
		return FormatUPCE, true
	case "itf", "interleaved2of5", "i2/5":
		return FormatITF, true
	case "codabar":
		return FormatCodabar, true
	default:
		return FormatUnknown, false
	}
}

// ParseFormats maps a list of names to formats, rejecting unknown ones.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	var bad []string
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		f, ok := ParseFormat(n)
		if !ok {
			bad = append(bad, n)
			continue
		}
		out = append(out, f)
	}
	if len(bad) > 0 {
		return nil, fmt.Errorf("barcode: unknown formats: %s", strings.Join(bad, ", "))
	}
	return out, nil
}

func (f Format) String() string {
	switch f {
	case FormatQR:
		return "qr"
	case FormatDataMatrix:
		return "datamatrix"
	case FormatAztec:
		return "aztec"
	case FormatCode128:
		return "code128"
	case FormatCode39:
		return "code39"
	case FormatEAN8:
		return "ean8"
	case FormatEAN13:
		return "ean13"
	case FormatUPCA:
		return "upca"
	case FormatUPCE:
		return "upce"
	case FormatITF:
		return "itf"
	case FormatCodabar:
		return "codabar"
	default:
		return "unknown"
	}
}
