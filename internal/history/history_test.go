package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestInsertAndByInvoice(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.Insert(ctx, Record{
		Invoice:    "1-234-56789",
		TrackingID: "100000000001",
		Amount:     "10.00",
		RunID:      "run-1",
	}))
	require.NoError(t, a.Insert(ctx, Record{
		Invoice:    "1-234-56789",
		TrackingID: "100000000002",
		Amount:     "20.00",
		RunID:      "run-1",
	}))
	require.NoError(t, a.Insert(ctx, Record{
		Invoice:    "1-234-56790",
		TrackingID: "100000000003",
		Amount:     "30.00",
		RunID:      "run-1",
	}))

	recs, err := a.ByInvoice(ctx, "1-234-56789")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "100000000001", recs[0].TrackingID)
	assert.NotEmpty(t, recs[0].ID, "missing id is generated")
	assert.False(t, recs[0].FiledAt.IsZero())

	none, err := a.ByInvoice(ctx, "no-such-invoice")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTotals(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, a.Insert(ctx, Record{
		Invoice: "1-234-56789", TrackingID: "100000000001",
		FiledAt: now.AddDate(0, -2, 0),
	}))
	require.NoError(t, a.Insert(ctx, Record{
		Invoice: "1-234-56789", TrackingID: "100000000002",
		FiledAt: now.Add(-time.Hour),
	}))

	r, err := a.Totals(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, r.Month)
}
