// Package controller is the command half of the shared-state protocol: it
// writes commands the worker polls for and assembles the merged status view
// the dashboard and CLI render.
package controller

import (
	"errors"

	"disputebot/internal/model"
	"disputebot/internal/statestore"
)

// ErrAlreadyRunning rejects a start while a run is active; the state
// directory admits one worker at a time.
var ErrAlreadyRunning = errors.New("a run is already active")

type Controller struct {
	store *statestore.Store
}

func New(store *statestore.Store) *Controller {
	return &Controller{store: store}
}

// Start requests processing. Allowed from ready_to_process (the trigger into
// the invoice loop) and from idle or a terminal status; rejected while the
// run is otherwise in flight.
func (c *Controller) Start() error {
	state := c.store.ReadRunState()
	if model.IsActive(state.Status) && state.Status != model.StatusReadyToProcess {
		return ErrAlreadyRunning
	}
	return c.store.SetCommand(model.CommandStart)
}

// Stop requests the worker halt at its next poll point.
func (c *Controller) Stop() error {
	return c.store.SetCommand(model.CommandStop)
}

// Analyze advances a worker waiting on login into the analysis phase.
func (c *Controller) Analyze() error {
	return c.store.SetCommand(model.CommandAnalyze)
}

// Pause holds the invoice loop until Resume.
func (c *Controller) Pause() error {
	return c.store.SetCommand(model.CommandPause)
}

func (c *Controller) Resume() error {
	return c.store.SetCommand(model.CommandResume)
}

// Click queues a coordinate click for the worker's browser session.
func (c *Controller) Click(click model.ClickRequest) error {
	return c.store.AppendClick(click)
}

// StatusView is the merged run/session/persistent snapshot.
type StatusView struct {
	Run        model.RunState        `json:"run"`
	Stats      model.Stats           `json:"stats"`
	Invoices   []model.Invoice       `json:"invoices"`
	Logs       []model.LogEvent      `json:"logs"`
	Persistent model.PersistentStats `json:"persistent"`
}

// Status never fails; missing documents read as their defaults.
func (c *Controller) Status() StatusView {
	session := c.store.ReadSession()
	return StatusView{
		Run:        c.store.ReadRunState(),
		Stats:      session.Stats,
		Invoices:   session.Invoices,
		Logs:       session.Logs,
		Persistent: c.store.ReadPersistentStats(),
	}
}
