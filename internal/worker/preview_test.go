package worker

import (
	"bytes"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputebot/internal/statestore"
)

func decodePreview(t *testing.T, store *statestore.Store) (w, h int) {
	t.Helper()
	raw, err := os.ReadFile(store.PreviewPath())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestWritePreview_Downscales(t *testing.T) {
	store, err := statestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, writePreview(store, pngBytes(t, 1000, 500), 100))
	w, h := decodePreview(t, store)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h, "aspect ratio preserved")
}

func TestWritePreview_SmallImagePassesThrough(t *testing.T) {
	store, err := statestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, writePreview(store, pngBytes(t, 50, 40), 100))
	w, h := decodePreview(t, store)
	assert.Equal(t, 50, w)
	assert.Equal(t, 40, h)
}

func TestWritePreview_EmptyAndInvalid(t *testing.T) {
	store, err := statestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, writePreview(store, nil, 100), "empty screenshot is a no-op")
	assert.NoFileExists(t, store.PreviewPath())

	assert.Error(t, writePreview(store, []byte("not a png"), 100))
}

func TestMetrics_PhaseGaugeSingleActive(t *testing.T) {
	m := NewMetrics()
	m.SetPhase("running")
	m.SetPhase("paused")

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != "disputebot_phase" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1, "previous phase must be cleared")
		assert.Equal(t, "paused", mf.GetMetric()[0].GetLabel()[0].GetValue())
		assert.Equal(t, float64(1), mf.GetMetric()[0].GetGauge().GetValue())
		return
	}
	t.Fatal("disputebot_phase family not found")
}
