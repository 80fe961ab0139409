package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
)

// recordingSink captures diagnostic lines.
type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingSink) Diagnostic(code string, fields ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, strings.Join(append([]string{code}, fields...), ":"))
}

func (r *recordingSink) withPrefix(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, l := range r.lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

// fakePrimary answers through fn and counts calls.
type fakePrimary struct {
	calls int
	sizes []image.Point
	fn    func(call int, img image.Image) ([]barcode.Result, error)
}

func (f *fakePrimary) Decode(_ context.Context, img image.Image) ([]barcode.Result, error) {
	f.calls++
	f.sizes = append(f.sizes, img.Bounds().Size())
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(f.calls, img)
}

type fakeFallback struct {
	fileCalls  []string
	imageCalls []image.Image
	fromFile   []barcode.Result
	fromImage  func(img image.Image) []barcode.Result
}

func (f *fakeFallback) DecodeFile(_ context.Context, path string) []barcode.Result {
	f.fileCalls = append(f.fileCalls, path)
	return f.fromFile
}

func (f *fakeFallback) Decode(_ context.Context, img image.Image) ([]barcode.Result, error) {
	f.imageCalls = append(f.imageCalls, img)
	if f.fromImage == nil {
		return nil, nil
	}
	return f.fromImage(img), nil
}

func qrResult(v string) []barcode.Result {
	return []barcode.Result{{Type: barcode.FormatQR, Value: v}}
}

func errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }
