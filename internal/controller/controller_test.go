package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputebot/internal/model"
	"disputebot/internal/statestore"
)

func newTestController(t *testing.T) (*Controller, *statestore.Store) {
	t.Helper()
	store, err := statestore.New(t.TempDir())
	require.NoError(t, err)
	return New(store), store
}

func TestStart(t *testing.T) {
	tests := []struct {
		status  model.RunStatus
		wantErr bool
	}{
		{model.StatusIdle, false},
		{model.StatusReadyToProcess, false},
		{model.StatusCompleted, false},
		{model.StatusStopped, false},
		{model.StatusError, false},
		{model.StatusWaitingForLogin, true},
		{model.StatusAnalyzing, true},
		{model.StatusRunning, true},
		{model.StatusPaused, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			c, store := newTestController(t)
			require.NoError(t, store.SetStatus(tt.status))

			err := c.Start()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAlreadyRunning)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.CommandStart, store.ReadRunState().Command)
		})
	}
}

func TestCommands(t *testing.T) {
	c, store := newTestController(t)

	require.NoError(t, c.Stop())
	assert.Equal(t, model.CommandStop, store.ReadRunState().Command)

	require.NoError(t, c.Analyze())
	assert.Equal(t, model.CommandAnalyze, store.ReadRunState().Command)

	require.NoError(t, c.Pause())
	assert.Equal(t, model.CommandPause, store.ReadRunState().Command)

	require.NoError(t, c.Resume())
	assert.Equal(t, model.CommandResume, store.ReadRunState().Command)
}

func TestClickQueued(t *testing.T) {
	c, store := newTestController(t)

	require.NoError(t, c.Click(model.ClickRequest{X: 3, Y: 4}))
	clicks := store.DrainClicks()
	require.Len(t, clicks, 1)
	assert.Equal(t, 3, clicks[0].X)
	assert.Equal(t, 4, clicks[0].Y)
}

func TestStatusMergedView(t *testing.T) {
	c, store := newTestController(t)

	require.NoError(t, store.SetStatus(model.StatusRunning))
	require.NoError(t, store.SaveInvoices([]model.Invoice{{ID: "1-234-56789", Category: model.CategoryDutyTax}}))
	require.NoError(t, store.AppendEvent(model.LogEvent{Title: "Dispute filed"}))
	require.NoError(t, store.RecordDispute())

	view := c.Status()
	assert.Equal(t, model.StatusRunning, view.Run.Status)
	require.Len(t, view.Invoices, 1)
	require.NotEmpty(t, view.Logs)
	assert.Equal(t, 1, view.Persistent.TotalDisputes)
	assert.Equal(t, 1, view.Stats.TotalAllTime, "persistent counters mirrored into session stats")
}
