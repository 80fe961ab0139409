package pipeline

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/qrscan/internal/barcode"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountAttempts(t *testing.T) {
	path := testutil.SavePNG(t, t.TempDir(), "line.png", testutil.BlankImage(50, 1))
	m := NewMetrics()
	primary := &fakePrimary{fn: func(call int, _ image.Image) ([]barcode.Result, error) {
		if call == 1 {
			return nil, errorf("bad")
		}
		return nil, nil
	}}
	s := NewScanner(DefaultConfig(), WithPrimaryDecoder(primary), WithFallbackDecoder(&fakeFallback{}), WithMetrics(m))

	_, err := s.Scan(context.Background(), path)
	require.NoError(t, err)

	assert.InDelta(t, 1, promtest.ToFloat64(m.attempts.WithLabelValues(backendPrimary, LabelOriginal, outcomeError)), 0)
	assert.InDelta(t, 3, promtest.ToFloat64(m.attempts.WithLabelValues(backendPrimary, LabelOriginal, outcomeEmpty)), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(m.skips.WithLabelValues(LabelCropBottom)), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(m.skips.WithLabelValues(LabelCropBottomScaled)), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(m.scans.WithLabelValues(statusNotFound)), 0)
	assert.InDelta(t, 1, promtest.ToFloat64(m.attempts.WithLabelValues(backendFallback, "escalada_x2", outcomeEmpty)), 0)
}

func TestMetricsWriteFile(t *testing.T) {
	m := NewMetrics()
	m.observeScan(statusFound, 0)
	out := filepath.Join(t.TempDir(), "qrscan.prom")
	require.NoError(t, m.WriteFile(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `qrscan_scans_total{status="found"} 1`)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.attempt(backendPrimary, LabelOriginal, outcomeFound)
		m.skipped(LabelCropBottom)
		m.observeScan(statusFound, 0)
	})
}
