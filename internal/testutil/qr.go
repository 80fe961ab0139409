package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	goqrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"
)

// QRImage renders payload as a QR code of roughly size x size pixels,
// including the quiet zone.
func QRImage(t *testing.T, payload string, size int) image.Image {
	t.Helper()

	img, err := RenderQR(payload, size)
	require.NoError(t, err, "Failed to render QR code")
	return img
}

// RenderQR is the non-test variant of QRImage, used by the data generator.
func RenderQR(payload string, size int) (image.Image, error) {
	q, err := goqrcode.New(payload, goqrcode.Medium)
	if err != nil {
		return nil, err
	}
	return q.Image(size), nil
}

// BlankImage returns a uniformly white RGBA image.
func BlankImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

// StripedImage returns a white image with horizontal grey bands and no symbol in it.
func StripedImage(width, height int) *image.RGBA {
	img := BlankImage(width, height)
	grey := color.RGBA{R: 90, G: 90, B: 90, A: 255}
	for y := 0; y < height; y += 12 {
		for dy := 0; dy < 4 && y+dy < height; dy++ {
			for x := 0; x < width; x++ {
				img.SetRGBA(x, y+dy, grey)
			}
		}
	}
	return img
}

// ComposeReceipt places qr inside a tall white page, centred horizontally
// and starting at yFraction of the page height.
func ComposeReceipt(qr image.Image, width, height int, yFraction float64) *image.RGBA {
	page := BlankImage(width, height)
	qb := qr.Bounds()
	x := (width - qb.Dx()) / 2
	y := int(float64(height) * yFraction)
	draw.Draw(page, image.Rect(x, y, x+qb.Dx(), y+qb.Dy()), qr, qb.Min, draw.Src)
	return page
}

// ComposeRow places imgs left to right on a white page, separated and
// framed by gap pixels of white.
func ComposeRow(gap int, imgs ...image.Image) *image.RGBA {
	width, height := gap, 0
	for _, img := range imgs {
		width += img.Bounds().Dx() + gap
		height = max(height, img.Bounds().Dy())
	}
	page := BlankImage(width, height+2*gap)
	x := gap
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(page, image.Rect(x, gap, x+b.Dx(), gap+b.Dy()), img, b.Min, draw.Src)
		x += b.Dx() + gap
	}
	return page
}

// RotatedQR renders payload and turns it counter-clockwise by 90 degrees.
// Finder patterns make QR symbols readable in any orientation, so the
// result still decodes without rotating it back.
func RotatedQR(t *testing.T, payload string, size int) image.Image {
	t.Helper()
	return imaging.Rotate90(QRImage(t, payload, size))
}

// VerticalBarcode renders payload as a Code 128 symbol of width x height
// and turns it a quarter turn, so its bars run horizontally. Row scanners
// only read it after the image is rotated back.
func VerticalBarcode(t *testing.T, payload string, width, height int) image.Image {
	t.Helper()

	img, err := RenderVerticalBarcode(payload, width, height)
	require.NoError(t, err, "Failed to render barcode")
	return img
}

// RenderVerticalBarcode is the non-test variant of VerticalBarcode.
func RenderVerticalBarcode(payload string, width, height int) (image.Image, error) {
	bm, err := oned.NewCode128Writer().Encode(payload, gozxing.BarcodeFormat_CODE_128, width, height, nil)
	if err != nil {
		return nil, err
	}
	return imaging.Rotate90(bm), nil
}

// SavePNG encodes img as PNG into dir/name and returns the full path.
func SavePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, WritePNGFile(path, img), "Failed to write %s", path)
	return path
}

// WritePNGFile encodes img as PNG at path, creating parent directories.
func WritePNGFile(path string, img image.Image) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path) //nolint:gosec // G304: caller-controlled test path
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
