package support

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// RegisterImageSteps registers fixture-creating steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a QR image "([^"]*)" encoding "([^"]*)"$`, testCtx.aQRImageEncoding)
	sc.Step(`^a QR image "([^"]*)" encoding "([^"]*)" rotated a quarter turn$`, testCtx.aRotatedQRImage)
	sc.Step(`^a vertical barcode "([^"]*)" encoding "([^"]*)"$`, testCtx.aVerticalBarcode)
	sc.Step(`^an image "([^"]*)" with QR codes encoding "([^"]*)" and "([^"]*)"$`, testCtx.anImageWithTwoQRs)
	sc.Step(`^a receipt "([^"]*)" with a small QR encoding "([^"]*)" near the bottom$`, testCtx.aReceipt)
	sc.Step(`^a blank image "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.aBlankImage)
	sc.Step(`^a corrupt image file "([^"]*)"$`, testCtx.aCorruptImageFile)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.SetEnv)
}

func (testCtx *TestContext) writeImage(name string, img image.Image) error {
	return testutil.WritePNGFile(testCtx.Path(name), img)
}

func (testCtx *TestContext) aQRImageEncoding(name, payload string) error {
	img, err := testutil.RenderQR(payload, 300)
	if err != nil {
		return err
	}
	return testCtx.writeImage(name, img)
}

func (testCtx *TestContext) aRotatedQRImage(name, payload string) error {
	img, err := testutil.RenderQR(payload, 300)
	if err != nil {
		return err
	}
	return testCtx.writeImage(name, imaging.Rotate90(img))
}

func (testCtx *TestContext) aVerticalBarcode(name, payload string) error {
	img, err := testutil.RenderVerticalBarcode(payload, 300, 120)
	if err != nil {
		return err
	}
	return testCtx.writeImage(name, img)
}

func (testCtx *TestContext) anImageWithTwoQRs(name, first, second string) error {
	a, err := testutil.RenderQR(first, 200)
	if err != nil {
		return err
	}
	b, err := testutil.RenderQR(second, 200)
	if err != nil {
		return err
	}
	return testCtx.writeImage(name, testutil.ComposeRow(40, a, b))
}

func (testCtx *TestContext) aReceipt(name, payload string) error {
	qr, err := testutil.RenderQR(payload, 120)
	if err != nil {
		return err
	}
	return testCtx.writeImage(name, testutil.ComposeReceipt(qr, 360, 1200, 0.75))
}

func (testCtx *TestContext) aBlankImage(name string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid size %dx%d", width, height)
	}
	return testCtx.writeImage(name, testutil.BlankImage(width, height))
}

func (testCtx *TestContext) aCorruptImageFile(name string) error {
	return os.WriteFile(testCtx.Path(name), []byte("this is not an image"), 0o600)
}

func (testCtx *TestContext) aConfigFileWith(name string, body *godog.DocString) error {
	content := strings.ReplaceAll(body.Content, "{{dir}}", testCtx.TempDir)
	return os.WriteFile(testCtx.Path(name), []byte(content+"\n"), 0o600)
}
