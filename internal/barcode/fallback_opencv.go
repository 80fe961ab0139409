//go:build opencv

package barcode

import (
	"context"
	"image"

	"gocv.io/x/gocv"
)

func newFallbackBackend() FallbackDecoder { return &gocvFallback{} }

// gocvFallback wraps OpenCV's QRCodeDetector, which localises and decodes a
// single QR symbol.
type gocvFallback struct{}

func (d *gocvFallback) DecodeFile(ctx context.Context, path string) (out []Result) {
	defer func() {
		if r := recover(); r != nil {
			swallow("decode_file", path, r)
			out = nil
		}
	}()
	if ctx.Err() != nil {
		return nil
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		swallow("load", path, "empty matrix")
		return nil
	}
	return detectAndDecode(mat)
}

func (d *gocvFallback) Decode(ctx context.Context, img image.Image) (out []Result, _ error) {
	defer func() {
		if r := recover(); r != nil {
			swallow("decode", "image", r)
			out = nil
		}
	}()
	if ctx.Err() != nil || img == nil || img.Bounds().Empty() {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		swallow("convert", "image", err)
		return nil, nil
	}
	defer mat.Close()
	return detectAndDecode(mat), nil
}

func detectAndDecode(mat gocv.Mat) []Result {
	detector := gocv.NewQRCodeDetector()
	defer detector.Close()

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	text := detector.DetectAndDecode(mat, &points, &straight)
	if text == "" {
		return nil
	}
	return []Result{{Type: FormatQR, Value: text, Points: cornerPoints(&points)}}
}

// cornerPoints reads the detector's CV_32FC2 corner matrix.
func cornerPoints(m *gocv.Mat) []image.Point {
	if m.Empty() {
		return nil
	}
	out := make([]image.Point, 0, m.Rows()*m.Cols())
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			v := m.GetVecfAt(r, c)
			if len(v) < 2 {
				continue
			}
			out = append(out, image.Pt(int(v[0]), int(v[1])))
		}
	}
	return out
}
