package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/MeKo-Tech/qrscan/internal/utils"
	"github.com/disintegration/imaging"
)

// DefaultContrast is the gain applied around the mean luminance.
const DefaultContrast = 3.0

var (
	// sharpenKernel matches the classic 3x3 "sharpen" filter (normalised by 16).
	sharpenKernel = [9]float64{
		-2, -2, -2,
		-2, 32, -2,
		-2, -2, -2,
	}
	// edgeEnhanceMoreKernel is the stronger edge-enhancement filter (sum 1).
	edgeEnhanceMoreKernel = [9]float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}
)

// EnhanceOptions controls the enhancement chain.
type EnhanceOptions struct {
	// Contrast is the gain used to push pixel values away from the mean.
	Contrast float64
}

// DefaultEnhanceOptions returns the options used by the scan pipeline.
func DefaultEnhanceOptions() EnhanceOptions {
	return EnhanceOptions{Contrast: DefaultContrast}
}

// Enhance converts img to grayscale, sharpens it, boosts contrast and applies
// a strong edge-enhancement pass. The result is always single channel.
// A nil or empty input yields an empty gray image.
func Enhance(img image.Image, opts EnhanceOptions) *image.Gray {
	if utils.IsEmpty(img) {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}
	if opts.Contrast <= 0 {
		opts.Contrast = DefaultContrast
	}

	gray := imaging.Grayscale(img)
	sharp := imaging.Convolve3x3(gray, sharpenKernel, &imaging.ConvolveOptions{Normalize: true})
	contrasted := adjustContrast(sharp, opts.Contrast)
	edged := imaging.Convolve3x3(contrasted, edgeEnhanceMoreKernel, &imaging.ConvolveOptions{})

	return grayFromNRGBA(edged)
}

// grayFromNRGBA copies the red channel of img, which carries the luminance
// once every channel has been kept equal by the grayscale filters.
func grayFromNRGBA(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcRow := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = srcRow[x*4]
		}
	}
	return dst
}

// adjustContrast blends every pixel with the mean luminance:
// v' = mean + factor*(v-mean), clipped to [0,255].
func adjustContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	mean := meanLuminance(img)
	apply := func(v uint8) uint8 {
		f := mean + factor*(float64(v)-mean)
		return uint8(math.Max(0, math.Min(255, math.Round(f))))
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: apply(c.R), G: apply(c.G), B: apply(c.B), A: c.A}
	})
}

// meanLuminance returns the rounded mean of the red channel, which equals the
// luminance for images produced by imaging.Grayscale.
func meanLuminance(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			sum += uint64(row[x*4])
		}
	}
	return math.Floor(float64(sum)/float64(n) + 0.5)
}
