//go:build !opencv

package barcode

import (
	"context"
	"image"

	"github.com/MeKo-Tech/qrscan/internal/utils"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

func newFallbackBackend() FallbackDecoder { return &gozxingFallback{} }

// gozxingFallback decodes one QR symbol with gozxing's QR reader, which runs
// its own finder-pattern detector. It tries the image as-is and inverted, so
// light-on-dark symbols are found too.
type gozxingFallback struct{}

func (d *gozxingFallback) DecodeFile(ctx context.Context, path string) []Result {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		swallow("load", path, err)
		return nil
	}
	rs, _ := d.Decode(ctx, img)
	return rs
}

func (d *gozxingFallback) Decode(ctx context.Context, img image.Image) (out []Result, _ error) {
	defer func() {
		if r := recover(); r != nil {
			swallow("decode", "image", r)
			out = nil
		}
	}()
	if ctx.Err() != nil || img == nil || img.Bounds().Empty() {
		return nil, nil
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	source := gozxing.NewLuminanceSourceFromImage(img)
	for _, ls := range []gozxing.LuminanceSource{source, source.Invert()} {
		bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(ls))
		if err != nil {
			swallow("bitmap", "image", err)
			continue
		}
		r, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
		if err != nil || r == nil || r.GetText() == "" {
			continue
		}
		return []Result{normalizeResult(r)}, nil
	}
	return nil, nil
}
