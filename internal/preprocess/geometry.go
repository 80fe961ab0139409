package preprocess

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/qrscan/internal/utils"
	"github.com/disintegration/imaging"
)

var (
	// ErrDegenerateCrop is returned when a crop would produce an empty region.
	ErrDegenerateCrop = errors.New("crop region is empty")
	// ErrUnsupportedAngle is returned by Rotate for angles other than 0/90/180/270.
	ErrUnsupportedAngle = errors.New("unsupported rotation angle")
)

// Angles is the fixed rotation sweep, in the order it is tried.
var Angles = []int{0, 90, 180, 270}

// cropTopFraction is where the bottom crop starts, as a fraction of the height.
const cropTopFraction = 0.6

// Scale2x doubles both dimensions using a Lanczos kernel.
func Scale2x(img image.Image) *image.NRGBA {
	if utils.IsEmpty(img) {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
}

// CropBottom40 keeps the bottom 40% of the image at full width.
// The cut row is rounded up, so images shorter than three rows produce a
// degenerate region and fail with ErrDegenerateCrop.
func CropBottom40(img image.Image) (*image.NRGBA, error) {
	if utils.IsEmpty(img) {
		return nil, &utils.ImageProcessingError{Operation: "crop", Err: utils.ErrEmptyImage}
	}
	b := img.Bounds()
	top := int(math.Ceil(float64(b.Dy()) * cropTopFraction))
	rect := image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Max.Y)
	if rect.Empty() {
		return nil, &utils.ImageProcessingError{
			Operation: "crop",
			Err:       fmt.Errorf("%w: %dx%d source", ErrDegenerateCrop, b.Dx(), b.Dy()),
		}
	}
	return imaging.Crop(img, rect), nil
}

// Rotate turns img counter-clockwise by angle degrees, expanding the canvas
// so no corner is lost. Angle 0 returns img itself.
func Rotate(img image.Image, angle int) (image.Image, error) {
	switch angle {
	case 0:
		return img, nil
	case 90:
		return imaging.Rotate90(img), nil
	case 180:
		return imaging.Rotate180(img), nil
	case 270:
		return imaging.Rotate270(img), nil
	default:
		return nil, &utils.ImageProcessingError{
			Operation: "rotate",
			Err:       fmt.Errorf("%w: %d", ErrUnsupportedAngle, angle),
		}
	}
}
