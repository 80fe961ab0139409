package preprocess

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/qrscan/internal/utils"
	"github.com/anthonynsimon/bild/convolution"
)

// ErrInvalidBlockSize is returned when the neighbourhood size is not an odd number >= 3.
var ErrInvalidBlockSize = errors.New("block size must be odd and >= 3")

// ThresholdOptions configures local adaptive binarisation.
type ThresholdOptions struct {
	// BlockSize is the side of the square neighbourhood used for the local mean.
	BlockSize int
	// Offset is subtracted from the local mean before comparison.
	Offset float64
}

// DefaultThresholdOptions returns a 25x25 Gaussian neighbourhood with offset 10.
func DefaultThresholdOptions() ThresholdOptions {
	return ThresholdOptions{BlockSize: 25, Offset: 10}
}

// AdaptiveThreshold binarises img against a Gaussian-weighted local mean.
// A pixel becomes white when src - mean > -ceil(Offset), black otherwise.
// Failures, including panics from the convolution, are returned as errors.
func AdaptiveThreshold(img image.Image, opts ThresholdOptions) (out *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &utils.ImageProcessingError{Operation: "adaptive_threshold", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if opts.BlockSize < 3 || opts.BlockSize%2 == 0 {
		return nil, &utils.ImageProcessingError{
			Operation: "adaptive_threshold",
			Err:       fmt.Errorf("%w: got %d", ErrInvalidBlockSize, opts.BlockSize),
		}
	}

	gray, err := utils.ToGray(img)
	if err != nil {
		return nil, err
	}

	mean := gaussianMean(gray, opts.BlockSize)
	delta := int(math.Ceil(opts.Offset))

	b := gray.Bounds()
	out = image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			src := int(gray.Pix[y*gray.Stride+x])
			m := int(mean.Pix[y*mean.Stride+x*4])
			if src-m > -delta {
				out.Pix[y*out.Stride+x] = 0xff
			}
		}
	}
	return out, nil
}

// gaussianMean blurs gray with a separable Gaussian of the given size. Edges
// replicate the border pixels. Sigma follows the usual rule of thumb for a
// kernel derived from its size.
func gaussianMean(gray *image.Gray, size int) *image.RGBA {
	k := gaussianKernel(size)
	// Bias 0.5 turns the truncating uint8 conversion into rounding.
	opts := &convolution.Options{Bias: 0.5, Wrap: false, KeepAlpha: true}
	horizontal := convolution.Convolve(gray, k, opts)
	return convolution.Convolve(horizontal, k.Transposed(), opts)
}

func gaussianKernel(size int) *convolution.Kernel {
	sigma := 0.3*((float64(size)-1)*0.5-1) + 0.8
	k := convolution.NewKernel(size, 1)
	half := size / 2
	var sum float64
	for i := 0; i < size; i++ {
		x := float64(i - half)
		v := math.Exp(-(x * x) / (2 * sigma * sigma))
		k.Matrix[i] = v
		sum += v
	}
	for i := range k.Matrix {
		k.Matrix[i] /= sum
	}
	return k
}
