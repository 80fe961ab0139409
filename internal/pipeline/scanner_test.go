package pipeline

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allCandidates = []string{
	LabelOriginal, LabelEnhanced, LabelScaled2x,
	LabelCropBottom, LabelCropBottomScaled, LabelAdaptiveThreshold,
}

func fullPrimaryTrail(labels ...string) []string {
	var out []string
	for _, l := range labels {
		for _, a := range []int{0, 90, 180, 270} {
			out = append(out, primaryLabel(l, a))
		}
	}
	return out
}

func TestScanOriginalAtRotationZero(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "qr.png", testutil.QRImage(t, "PAYLOAD-123", 300))
	sink := &recordingSink{}
	s := NewScanner(DefaultConfig(), WithDiagnostics(sink))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"PAYLOAD-123"}, res.Payloads)
	assert.Equal(t, "pyzbar:original:rot0", res.Strategy)
	assert.Equal(t, []string{"pyzbar:original:rot0"}, res.Trail)
	assert.True(t, res.Found())
	assert.Empty(t, sink.lines)
}

func TestScanRotatedQR(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "rot.png", testutil.RotatedQR(t, "turned", 300))
	res, err := NewScanner(DefaultConfig()).Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"turned"}, res.Payloads)
	assert.Contains(t, res.Trail, res.Strategy)
}

func TestScanSweepRotatesBarcode(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "bars.png", testutil.VerticalBarcode(t, "SWEEP-90", 300, 120))
	cfg := DefaultConfig()
	cfg.Barcode = barcode.Options{Formats: []barcode.Format{barcode.FormatCode128}}

	res, err := NewScanner(cfg).Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"SWEEP-90"}, res.Payloads)
	assert.Equal(t, "pyzbar:original:rot90", res.Strategy)
	assert.Equal(t, []string{"pyzbar:original:rot0", "pyzbar:original:rot90"}, res.Trail)
}

func TestScanSweepStopsAtFirstReadableOrientation(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "wide.png", testutil.BlankImage(80, 40))
	// answers only once the landscape input has been turned upright
	primary := &fakePrimary{fn: func(_ int, img image.Image) ([]barcode.Result, error) {
		if b := img.Bounds(); b.Dy() > b.Dx() {
			return qrResult("upright"), nil
		}
		return nil, nil
	}}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(primary), WithFallbackDecoder(&fakeFallback{}))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"upright"}, res.Payloads)
	assert.Equal(t, "pyzbar:original:rot90", res.Strategy)
	assert.NotEqual(t, "pyzbar:original:rot0", res.Strategy)
	assert.Equal(t, 2, primary.calls)
}

func TestScanReturnsEveryQR(t *testing.T) {
	page := testutil.ComposeRow(40,
		testutil.QRImage(t, "first", 200),
		testutil.QRImage(t, "second", 200),
	)
	path := testutil.SavePNG(t, t.TempDir(), "two.png", page)

	res, err := NewScanner(DefaultConfig()).Scan(context.Background(), path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, res.Payloads)
	assert.Equal(t, "pyzbar:original:rot0", res.Strategy)
}

func TestScanNoQR(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "blank.png", testutil.BlankImage(120, 120))
	sink := &recordingSink{}
	s := NewScanner(DefaultConfig(), WithDiagnostics(sink))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, res.Payloads)
	assert.Empty(t, res.Strategy)
	want := append(fullPrimaryTrail(allCandidates...), "opencv:original", "opencv:escalada_x2")
	assert.Equal(t, want, res.Trail)
	assert.Empty(t, sink.withPrefix("ERROR_OPEN"))
}

func TestScanCorruptFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "broken.png", []byte("definitely not a png"))
	sink := &recordingSink{}
	primary := &fakePrimary{}
	s := NewScanner(DefaultConfig(), WithDiagnostics(sink), WithPrimaryDecoder(primary))

	res, err := s.Scan(context.Background(), path)
	require.ErrorIs(t, err, ErrOpen)
	assert.Empty(t, res.Payloads)
	assert.Empty(t, res.Trail)
	assert.Len(t, sink.withPrefix("ERROR_OPEN:"), 1)
	assert.Zero(t, primary.calls)
}

func TestScanIsIdempotent(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "qr.png", testutil.QRImage(t, "same", 240))
	s := NewScanner(DefaultConfig())

	first, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, first.Payloads, second.Payloads)
	assert.Equal(t, first.Trail, second.Trail)
}

func TestScanOnePixelTallSkipsCrops(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "line.png", testutil.BlankImage(64, 1))
	primary := &fakePrimary{}
	fallback := &fakeFallback{}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(primary), WithFallbackDecoder(fallback))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, res.Payloads)
	want := append(fullPrimaryTrail(LabelOriginal, LabelEnhanced, LabelScaled2x, LabelAdaptiveThreshold),
		"opencv:original", "opencv:escalada_x2")
	assert.Equal(t, want, res.Trail)
	assert.Equal(t, []string{path}, fallback.fileCalls)
}

func TestScanReceiptNeedsScaledCrop(t *testing.T) {
	const w, h = 100, 1000
	path := testutil.SavePNG(t, t.TempDir(), "receipt.png", testutil.BlankImage(w, h))

	// Only the upscaled bottom crop is large and narrow enough to "read".
	target := image.Pt(2*w, 2*(h-600))
	primary := &fakePrimary{fn: func(_ int, img image.Image) ([]barcode.Result, error) {
		if img.Bounds().Size() == target {
			return qrResult("TICKET-42"), nil
		}
		return nil, nil
	}}
	fallback := &fakeFallback{}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(primary), WithFallbackDecoder(fallback))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TICKET-42"}, res.Payloads)
	assert.Equal(t, "pyzbar:crop_bottom_40pct_scaled_2x:rot0", res.Strategy)
	want := append(fullPrimaryTrail(LabelOriginal, LabelEnhanced, LabelScaled2x, LabelCropBottom),
		"pyzbar:crop_bottom_40pct_scaled_2x:rot0")
	assert.Equal(t, want, res.Trail)
	assert.Empty(t, fallback.fileCalls)
	assert.Empty(t, fallback.imageCalls)
}

func TestScanShortCircuits(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(40, 40))
	primary := &fakePrimary{fn: func(call int, _ image.Image) ([]barcode.Result, error) {
		if call == 3 {
			return []barcode.Result{{Value: "a"}, {Value: "b"}}, nil
		}
		return nil, nil
	}}
	fallback := &fakeFallback{}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(primary), WithFallbackDecoder(fallback))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Payloads)
	assert.Equal(t, "pyzbar:original:rot180", res.Strategy)
	assert.Equal(t, 3, primary.calls)
	assert.Len(t, res.Trail, 3)
	assert.Empty(t, fallback.fileCalls)
}

func TestScanIsolatesPrimaryFailures(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(40, 40))
	primary := &fakePrimary{fn: func(call int, _ image.Image) ([]barcode.Result, error) {
		switch call {
		case 1:
			panic("boom")
		case 2:
			return nil, errorf("corrupt buffer")
		case 5:
			return qrResult("survived"), nil
		}
		return nil, nil
	}}
	sink := &recordingSink{}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(primary), WithFallbackDecoder(&fakeFallback{}), WithDiagnostics(sink))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"survived"}, res.Payloads)
	assert.Equal(t, "pyzbar:enhanced:rot0", res.Strategy)
	assert.Equal(t, []string{
		"ERR_PYZBAR:original:rot0:panic: boom",
		"ERR_PYZBAR:original:rot90:corrupt buffer",
	}, sink.withPrefix("ERR_PYZBAR"))
	// failed attempts still appear in the trail
	assert.Equal(t, fullPrimaryTrail(LabelOriginal)[:2], res.Trail[:2])
}

func TestScanFallbackOnOriginalFile(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(40, 40))
	fallback := &fakeFallback{fromFile: qrResult("from-file")}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(&fakePrimary{}), WithFallbackDecoder(fallback))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-file"}, res.Payloads)
	assert.Equal(t, "opencv:original", res.Strategy)
	assert.Equal(t, []string{path}, fallback.fileCalls)
	assert.Empty(t, fallback.imageCalls)
}

func TestScanFallbackOnFreshUpscale(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(30, 20))
	fallback := &fakeFallback{fromImage: func(img image.Image) []barcode.Result {
		return qrResult("scaled")
	}}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(&fakePrimary{}), WithFallbackDecoder(fallback))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"scaled"}, res.Payloads)
	assert.Equal(t, "opencv:escalada_x2", res.Strategy)
	require.Len(t, fallback.imageCalls, 1)
	rgb, ok := fallback.imageCalls[0].(*image.RGBA)
	require.True(t, ok, "fallback input should be an RGBA copy")
	assert.Equal(t, image.Pt(60, 40), rgb.Bounds().Size())
}

func TestScanFallbackPanicIsReported(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(30, 30))
	fallback := &fakeFallback{fromImage: func(image.Image) []barcode.Result { panic("cv exploded") }}
	sink := &recordingSink{}
	s := NewScanner(DefaultConfig(),
		WithPrimaryDecoder(&fakePrimary{}), WithFallbackDecoder(fallback), WithDiagnostics(sink))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, res.Payloads)
	assert.Equal(t, []string{"ERR_OPENCV:escalada:panic: cv exploded"}, sink.withPrefix("ERR_OPENCV"))
	assert.Equal(t, "opencv:escalada_x2", res.Trail[len(res.Trail)-1])
}

func TestScanTimeoutStillRunsFallbacks(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(30, 30))
	primary := &fakePrimary{fn: func(int, image.Image) ([]barcode.Result, error) {
		time.Sleep(20 * time.Millisecond)
		return nil, nil
	}}
	fallback := &fakeFallback{}
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Timeout = 30 * time.Millisecond
	s := NewScanner(cfg, WithPrimaryDecoder(primary), WithFallbackDecoder(fallback), WithDiagnostics(sink))

	res, err := s.Scan(context.Background(), path)
	require.NoError(t, err)
	assert.Less(t, primary.calls, 24)
	assert.Len(t, sink.withPrefix("TIMEOUT:"), 1)
	assert.Equal(t, []string{path}, fallback.fileCalls)
	assert.Equal(t, "opencv:escalada_x2", res.Trail[len(res.Trail)-1])
}

func TestScanCancellationIsNotATimeout(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "img.png", testutil.BlankImage(30, 30))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := &fakePrimary{fn: func(int, image.Image) ([]barcode.Result, error) {
		cancel()
		return nil, nil
	}}
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Timeout = time.Minute
	s := NewScanner(cfg, WithPrimaryDecoder(primary), WithFallbackDecoder(&fakeFallback{}), WithDiagnostics(sink))

	_, err := s.Scan(ctx, path)
	require.NoError(t, err)
	assert.Less(t, primary.calls, 24)
	assert.Empty(t, sink.withPrefix("TIMEOUT:"))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder().
		WithTimeout(time.Second).
		WithContrast(2).
		WithThreshold(31, 5).
		WithFormats([]barcode.Format{barcode.FormatQR}).
		WithTryHarder(false)
	cfg := b.Config()
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.InDelta(t, 2.0, cfg.Enhance.Contrast, 0)
	assert.Equal(t, 31, cfg.Threshold.BlockSize)
	assert.InDelta(t, 5.0, cfg.Threshold.Offset, 0)
	assert.Equal(t, []barcode.Format{barcode.FormatQR}, cfg.Barcode.Formats)
	assert.False(t, cfg.Barcode.TryHarder)

	s, err := b.Build()
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = NewBuilder().WithThreshold(24, 10).Build()
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Timeout = -time.Second
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Enhance.Contrast = 0
	require.Error(t, cfg.Validate())
}
