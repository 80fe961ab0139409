package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
	"github.com/disintegration/imaging"
)

// fixture describes one generated image and the payloads a scan should return.
type fixture struct {
	File     string   `json:"file"`
	Payloads []string `json:"payloads"`
	Note     string   `json:"note,omitempty"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "", "output directory (default: <project root>/testdata)")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate QR fixture images for qrscan testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if dir == "" {
		root, err := testutil.GetProjectRoot()
		if err != nil {
			slog.Error("Failed to find project root", "error", err)
			os.Exit(1)
		}
		dir = filepath.Join(root, "testdata")
	}

	fixtures, err := generate(dir, *verbose)
	if err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "dir", dir, "images", len(fixtures))
}

func generate(dir string, verbose bool) ([]fixture, error) {
	imagesDir := filepath.Join(dir, "images")

	basic, err := testutil.RenderQR("https://example.com/ticket/0001", 320)
	if err != nil {
		return nil, err
	}
	small, err := testutil.RenderQR("RECEIPT|2024-05-01|42.50|EUR", 96)
	if err != nil {
		return nil, err
	}
	second, err := testutil.RenderQR("https://example.com/ticket/0002", 320)
	if err != nil {
		return nil, err
	}
	bars, err := testutil.RenderVerticalBarcode("TICKET-0001", 320, 120)
	if err != nil {
		return nil, err
	}

	images := []struct {
		fixture
		img image.Image
	}{
		{fixture{"qr_basic.png", []string{"https://example.com/ticket/0001"}, "upright, high contrast"}, basic},
		{fixture{"qr_rotated_90.png", []string{"https://example.com/ticket/0001"}, "rotated a quarter turn"}, imaging.Rotate90(basic)},
		{fixture{"two_qr_codes.png", []string{"https://example.com/ticket/0001", "https://example.com/ticket/0002"}, "two symbols side by side"},
			testutil.ComposeRow(40, basic, second)},
		{fixture{"code128_vertical.png", []string{"TICKET-0001"}, "bars run horizontally, read at rot90 without try_harder"}, bars},
		{fixture{"receipt_small_qr.png", []string{"RECEIPT|2024-05-01|42.50|EUR"}, "small code in the bottom third"},
			testutil.ComposeReceipt(small, 360, 1400, 0.72)},
		{fixture{"blank.png", nil, "no symbol"}, testutil.BlankImage(200, 200)},
		{fixture{"striped.png", nil, "texture without a symbol"}, testutil.StripedImage(200, 200)},
		{fixture{"one_pixel_tall.png", nil, "degenerate crop"}, testutil.BlankImage(200, 1)},
	}

	out := make([]fixture, 0, len(images))
	for _, it := range images {
		path := filepath.Join(imagesDir, it.File)
		if err := testutil.WritePNGFile(path, it.img); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		if verbose {
			slog.Info("Wrote image", "path", path, "payloads", len(it.Payloads))
		}
		out = append(out, it.fixture)
	}

	fixturesDir := filepath.Join(dir, "fixtures")
	if err := testutil.EnsureDir(fixturesDir); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	manifest := filepath.Join(fixturesDir, "expected.json")
	if err := os.WriteFile(manifest, data, 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", manifest, err)
	}
	return out, nil
}
