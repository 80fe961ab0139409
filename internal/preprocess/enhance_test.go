package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkerboard(w, h, cell int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 30, G: 60, B: 90, A: 255}
			if (x/cell+y/cell)%2 == 0 {
				c = color.NRGBA{R: 220, G: 200, B: 180, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestEnhance_SingleChannelSameSize(t *testing.T) {
	src := checkerboard(40, 30, 5)
	out := Enhance(src, DefaultEnhanceOptions())

	require.NotNil(t, out)
	assert.Equal(t, src.Bounds().Dx(), out.Bounds().Dx())
	assert.Equal(t, src.Bounds().Dy(), out.Bounds().Dy())
	assert.Len(t, out.Pix, 40*30)
}

func TestEnhance_DoesNotMutateInput(t *testing.T) {
	src := checkerboard(16, 16, 4)
	before := append([]uint8(nil), src.Pix...)

	_ = Enhance(src, DefaultEnhanceOptions())

	assert.Equal(t, before, src.Pix)
}

func TestEnhance_IncreasesContrast(t *testing.T) {
	// Two flat halves with a modest difference.
	src := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			v := uint8(110)
			if x >= 10 {
				v = 150
			}
			src.SetGray(x, y, color.Gray{Y: v})
		}
	}

	out := Enhance(src, DefaultEnhanceOptions())

	dark := out.GrayAt(2, 10).Y
	light := out.GrayAt(17, 10).Y
	assert.Greater(t, int(light)-int(dark), 40, "flat regions away from the edge should spread apart")
}

func TestEnhance_FlatImageStaysFlat(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range src.Pix {
		src.Pix[i] = 128
	}
	out := Enhance(src, EnhanceOptions{Contrast: 3})
	for _, v := range out.Pix {
		assert.Equal(t, uint8(128), v)
	}
}

func TestEnhance_Empty(t *testing.T) {
	out := Enhance(nil, DefaultEnhanceOptions())
	require.NotNil(t, out)
	assert.True(t, out.Bounds().Empty())
}

func TestAdjustContrast_Clips(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out := adjustContrast(src, 3)
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 0).R)
}

func TestGrayFromNRGBA_OffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			v := uint8(10*y + x)
			src.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	sub := src.SubImage(image.Rect(1, 1, 4, 3)).(*image.NRGBA)

	g := grayFromNRGBA(sub)
	require.Equal(t, image.Rect(0, 0, 3, 2), g.Bounds())
	assert.Equal(t, uint8(11), g.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(23), g.GrayAt(2, 1).Y)
}
