package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyImage is returned when an operation receives a nil or zero-area image.
var ErrEmptyImage = errors.New("empty image")

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// IsEmpty reports whether img is nil or has no pixels.
func IsEmpty(img image.Image) bool {
	return img == nil || img.Bounds().Empty()
}

// ToGray converts any image to a single-channel *image.Gray anchored at (0,0).
// Luminance follows the ITU-R 601-2 weights used by imaging.Grayscale.
func ToGray(img image.Image) (*image.Gray, error) {
	if IsEmpty(img) {
		return nil, &ImageProcessingError{Operation: "grayscale", Err: ErrEmptyImage}
	}
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g, nil
	}

	src := imaging.Grayscale(img)
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = srcRow[x*4]
		}
	}
	return dst, nil
}

// ToOpaqueRGB returns a copy of img as an opaque 3-channel RGBA buffer.
// Alpha is discarded rather than composited, which keeps the colour values
// a decoder sees identical to the stored ones.
func ToOpaqueRGB(img image.Image) (*image.RGBA, error) {
	if IsEmpty(img) {
		return nil, &ImageProcessingError{Operation: "rgb", Err: ErrEmptyImage}
	}

	n := imaging.Clone(img)
	for i := 3; i < len(n.Pix); i += 4 {
		n.Pix[i] = 0xff
	}
	// With every alpha at 0xff the NRGBA and RGBA layouts are byte-identical.
	return &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}, nil
}
