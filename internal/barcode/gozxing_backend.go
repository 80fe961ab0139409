package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	mqr "github.com/makiuchi-d/gozxing/multi/qrcode"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// NewPrimary returns the multi-symbol gozxing decoder.
func NewPrimary(opts Options) Decoder {
	formats := opts.Formats
	if len(formats) == 0 {
		formats = AllFormats
	}
	return &gozxingBackend{formats: formats, tryHarder: opts.TryHarder}
}

type gozxingBackend struct {
	formats   []Format
	tryHarder bool
}

// Decode returns every QR symbol found, in the multi reader's detection
// order, followed by at most one symbol of the other configured formats.
// Reader failures mean "nothing here" and yield an empty slice; only
// malformed input and panics inside the reader are reported as errors.
func (b *gozxingBackend) Decode(ctx context.Context, img image.Image) (out []Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("barcode: empty image")
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("barcode: decoder panic: %v", r)
		}
	}()

	source := gozxing.NewLuminanceSourceFromImage(img)
	bitmap, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(source))
	if err != nil {
		return nil, fmt.Errorf("barcode: binary bitmap: %w", err)
	}

	hints := make(map[gozxing.DecodeHintType]interface{})
	if b.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	out = make([]Result, 0)
	if containsFormat(b.formats, FormatQR) {
		out = append(out, decodeQRs(bitmap, hints)...)
	}

	others := newFormatReader(withoutFormat(b.formats, FormatQR))
	if len(others.readers) > 0 {
		if res, decErr := others.Decode(bitmap, hints); decErr == nil && res != nil {
			out = append(out, normalizeResult(res))
		}
	}
	return out, nil
}

// decodeQRs runs the multi-symbol QR reader. When its detector finds no
// complete finder-pattern triple, the single-symbol reader gets one try.
func decodeQRs(bitmap *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) []Result {
	if results, err := mqr.NewQRCodeMultiReader().DecodeMultiple(bitmap, hints); err == nil && len(results) > 0 {
		return normalizeResults(results)
	}
	res, err := qrcode.NewQRCodeReader().Decode(bitmap, hints)
	if err != nil || res == nil {
		return nil
	}
	return []Result{normalizeResult(res)}
}

func containsFormat(formats []Format, f Format) bool {
	for _, x := range formats {
		if x == f {
			return true
		}
	}
	return false
}

func withoutFormat(formats []Format, f Format) []Format {
	out := make([]Format, 0, len(formats))
	for _, x := range formats {
		if x != f {
			out = append(out, x)
		}
	}
	return out
}

// formatReader tries one gozxing reader per requested non-QR format and
// returns the first hit.
type formatReader struct {
	readers []gozxing.Reader
}

func newFormatReader(formats []Format) *formatReader {
	r := &formatReader{}
	seen := make(map[Format]bool, len(formats))
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		if rd := readerFor(f); rd != nil {
			r.readers = append(r.readers, rd)
		}
	}
	return r
}

func (r *formatReader) Decode(bmp *gozxing.BinaryBitmap, hints map[gozxing.DecodeHintType]interface{}) (*gozxing.Result, error) {
	lastErr := errors.New("barcode: no reader configured")
	for _, rd := range r.readers {
		res, err := rd.Decode(bmp, hints)
		if err == nil && res != nil {
			return res, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	return nil, lastErr
}

func readerFor(f Format) gozxing.Reader {
	switch f {
	case FormatDataMatrix:
		return datamatrix.NewDataMatrixReader()
	case FormatAztec:
		return aztec.NewAztecReader()
	case FormatCode128:
		return oned.NewCode128Reader()
	case FormatCode39:
		return oned.NewCode39Reader()
	case FormatEAN8:
		return oned.NewEAN8Reader()
	case FormatEAN13:
		return oned.NewEAN13Reader()
	case FormatUPCA:
		return oned.NewUPCAReader()
	case FormatUPCE:
		return oned.NewUPCEReader()
	case FormatITF:
		return oned.NewITFReader()
	case FormatCodabar:
		return oned.NewCodaBarReader()
	default:
		return nil
	}
}

func normalizeResults(results []*gozxing.Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		out = append(out, normalizeResult(r))
	}
	return out
}

func normalizeResult(r *gozxing.Result) Result {
	var points []image.Point
	if pts := r.GetResultPoints(); len(pts) > 0 {
		points = make([]image.Point, 0, len(pts))
		for _, p := range pts {
			if p == nil {
				continue
			}
			points = append(points, image.Pt(int(p.GetX()), int(p.GetY())))
		}
	}
	return Result{
		Type:   mapFormatFromZXing(r.GetBarcodeFormat()),
		Value:  r.GetText(),
		Points: points,
	}
}

func mapFormatFromZXing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_AZTEC:
		return FormatAztec
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}
