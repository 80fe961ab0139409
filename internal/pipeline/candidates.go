package pipeline

import (
	"errors"
	"image"

	"github.com/MeKo-Tech/qrscan/internal/preprocess"
)

// Candidate labels, in the order they are tried.
const (
	LabelOriginal          = "original"
	LabelEnhanced          = "enhanced"
	LabelScaled2x          = "scaled_2x"
	LabelCropBottom        = "crop_bottom_40pct"
	LabelCropBottomScaled  = "crop_bottom_40pct_scaled_2x"
	LabelAdaptiveThreshold = "adaptive_threshold"
)

var errNoCrop = errors.New("bottom crop unavailable")

// candidateSource builds one candidate image on demand.
type candidateSource struct {
	label string
	build func() (image.Image, error)
}

// candidates returns the ordered, lazily built candidate list for src. The
// scaled crop depends on the crop having been built first.
func (s *Scanner) candidates(src image.Image) []candidateSource {
	var crop image.Image
	return []candidateSource{
		{LabelOriginal, func() (image.Image, error) { return src, nil }},
		{LabelEnhanced, func() (image.Image, error) {
			return preprocess.Enhance(src, s.cfg.Enhance), nil
		}},
		{LabelScaled2x, func() (image.Image, error) { return preprocess.Scale2x(src), nil }},
		{LabelCropBottom, func() (image.Image, error) {
			c, err := preprocess.CropBottom40(src)
			if err != nil {
				return nil, err
			}
			crop = c
			return c, nil
		}},
		{LabelCropBottomScaled, func() (image.Image, error) {
			if crop == nil {
				return nil, errNoCrop
			}
			return preprocess.Scale2x(crop), nil
		}},
		{LabelAdaptiveThreshold, func() (image.Image, error) {
			return preprocess.AdaptiveThreshold(src, s.cfg.Threshold)
		}},
	}
}
