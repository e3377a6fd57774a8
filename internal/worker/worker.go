// Package worker runs the processing state machine: one browser session
// driven through login, analysis, and the per-invoice dispute loop, with the
// shared state directory as the only control channel.
package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"disputebot/internal/browser"
	"disputebot/internal/config"
	"disputebot/internal/history"
	"disputebot/internal/lock"
	"disputebot/internal/logging"
	"disputebot/internal/model"
	"disputebot/internal/portal"
	"disputebot/internal/reconcile"
	"disputebot/internal/scanner"
	"disputebot/internal/statestore"
)

// errStop unwinds the phase functions when a stop command or context
// cancellation is observed. It is a control signal, not a failure.
var errStop = errors.New("stop requested")

// Options wires a Worker. Driver and Archive are owned by the caller;
// Archive may be nil.
type Options struct {
	Config  model.Config
	Driver  browser.Driver
	Store   *statestore.Store
	Archive *history.Archive
	Log     *logging.Logger
}

type Worker struct {
	cfg     model.Config
	drv     browser.Driver
	store   *statestore.Store
	adapter *portal.Adapter
	scanner *scanner.Scanner
	engine  *reconcile.Engine
	metrics *Metrics
	archive *history.Archive
	log     *logging.Logger

	fileLock *lock.FileLock
	poll     time.Duration
	poke     chan struct{}
	runID    string
}

func New(opts Options) *Worker {
	cfg := opts.Config
	timeouts := portal.Timeouts{
		Element:    time.Duration(cfg.Worker.ElementWaitSec) * time.Second,
		Short:      1500 * time.Millisecond,
		Table:      time.Duration(cfg.Worker.TableWaitSec) * time.Second,
		Navigation: time.Duration(cfg.Worker.NavigationSec) * time.Second,
	}
	opts.Store.SetMaxLogEntries(cfg.Worker.MaxLogEntries)
	w := &Worker{
		cfg:      cfg,
		drv:      opts.Driver,
		store:    opts.Store,
		adapter:  portal.NewAdapter(opts.Driver, opts.Log.WithComponent("portal"), timeouts),
		metrics:  NewMetrics(),
		archive:  opts.Archive,
		log:      opts.Log,
		fileLock: lock.NewFileLock(filepath.Join(opts.Store.Dir(), "worker.lock")),
		poll:     time.Duration(cfg.Worker.PollIntervalMs) * time.Millisecond,
		poke:     make(chan struct{}, 1),
	}
	w.scanner = scanner.New(w.adapter, w.store, opts.Log.WithComponent("scanner"))
	w.engine = reconcile.NewEngine(w.adapter, w.store, opts.Log.WithComponent("engine"), cfg.Portal.DisputeComment, w)
	return w
}

// Metrics exposes the worker's registry for the dashboard's /metrics.
func (w *Worker) Metrics() *Metrics { return w.metrics }

// DisputeFiled implements reconcile.Recorder: metrics plus the history
// archive, neither of which may fail the filing loop.
func (w *Worker) DisputeFiled(ctx context.Context, invoiceID, trackingID, amount string) {
	w.metrics.IncDisputes()
	if w.archive == nil {
		return
	}
	err := w.archive.Insert(ctx, history.Record{
		Invoice:    invoiceID,
		TrackingID: trackingID,
		Amount:     amount,
		RunID:      w.runID,
	})
	if err != nil {
		w.log.Warnf("archive dispute %s/%s: %v", invoiceID, trackingID, err)
	}
}

// Run drives one full run to a terminal status and returns. The returned
// error is non-nil only for the error status; stop and completion are normal
// returns.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.fileLock.TryLock(); err != nil {
		return fmt.Errorf("another worker owns this state dir: %w", err)
	}
	defer w.fileLock.Unlock()
	defer func() {
		if cerr := w.drv.Close(); cerr != nil {
			w.log.Warnf("browser teardown: %v", cerr)
		}
	}()

	state, err := w.store.ResetRun()
	if err != nil {
		return err
	}
	w.runID = state.RunID
	if err := w.store.ResetSession(); err != nil {
		return err
	}
	w.metrics.SetPhase(model.StatusIdle)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(w.store.Dir()); werr != nil {
			w.log.Warnf("watch state dir: %v", werr)
		}
		g.Go(func() error { return w.watchLoop(gctx, watcher) })
	} else {
		// ticker-only polling still honors commands, just never early
		w.log.Warnf("fsnotify unavailable, falling back to ticker polling: %v", err)
	}

	phaseErr := w.runPhases(gctx)

	cancel()
	if watcher != nil {
		watcher.Close()
	}
	_ = g.Wait()

	switch {
	case phaseErr == nil:
		return nil
	case errors.Is(phaseErr, errStop):
		w.transition(model.StatusStopped)
		w.event("Run stopped", "stop command honored", "warning")
		return nil
	default:
		w.transition(model.StatusError)
		w.event("Run failed", phaseErr.Error(), "error")
		return phaseErr
	}
}

func (w *Worker) runPhases(ctx context.Context) error {
	if err := w.adapter.Navigate(ctx, w.cfg.Portal.URL); err != nil {
		return fmt.Errorf("open portal: %w", err)
	}
	w.transition(model.StatusWaitingForLogin)
	w.event("Waiting for login", "sign in through the browser window", "info")

	if err := w.waitForLogin(ctx); err != nil {
		return err
	}

	w.transition(model.StatusAnalyzing)
	if err := w.adapter.NavigateToInvoices(ctx, w.cfg.Portal.InvoicesURL); err != nil {
		return fmt.Errorf("open invoice list: %w", err)
	}
	invoices, err := w.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	var queue []model.Invoice
	for _, inv := range invoices {
		if inv.Category == model.CategoryDutyTax {
			queue = append(queue, inv)
		}
	}
	w.transition(model.StatusReadyToProcess)

	if !w.cfg.Worker.AutoAdvance {
		if err := w.waitForStart(ctx); err != nil {
			return err
		}
	}

	w.transition(model.StatusRunning)
	if err := w.processInvoices(ctx, queue); err != nil {
		return err
	}

	w.transition(model.StatusCompleted)
	stats := w.store.ReadSession().Stats
	w.event("Job complete",
		fmt.Sprintf("%d invoices processed: %d disputed, %d skipped, %d errors",
			stats.InvoicesProcessed, stats.Disputed, stats.Skipped, stats.Errors),
		"success")
	return nil
}

// waitForLogin holds until the analyze command arrives, or the signed-in
// heuristic fires under auto-advance. Unbounded: human login has no timeout.
func (w *Worker) waitForLogin(ctx context.Context) error {
	for {
		w.capturePreview(ctx)
		w.forwardClicks(ctx)

		switch w.command() {
		case model.CommandStop:
			return errStop
		case model.CommandAnalyze, model.CommandStart:
			return nil
		}
		if w.cfg.Worker.AutoAdvance && w.adapter.SignedIn(ctx) {
			w.log.Infof("signed-in indicator detected, advancing to analysis")
			return nil
		}
		if err := w.pollWait(ctx); err != nil {
			return err
		}
	}
}

// waitForStart holds in ready_to_process until the start command.
func (w *Worker) waitForStart(ctx context.Context) error {
	for {
		w.capturePreview(ctx)
		switch w.command() {
		case model.CommandStop:
			return errStop
		case model.CommandStart:
			return nil
		}
		if err := w.pollWait(ctx); err != nil {
			return err
		}
	}
}

func (w *Worker) processInvoices(ctx context.Context, queue []model.Invoice) error {
	for _, inv := range queue {
		if err := w.gate(ctx); err != nil {
			return err
		}

		url := config.InvoiceDetailURL(w.cfg, inv.ID)
		if err := w.adapter.Navigate(ctx, url); err != nil {
			w.invoiceFailed(inv.ID, fmt.Errorf("open invoice: %w", err))
			continue
		}

		res, err := w.engine.ProcessInvoice(ctx, inv.ID, w.stopRequested)
		if err != nil {
			w.invoiceFailed(inv.ID, err)
			// get back to a known page before the next invoice
			if nerr := w.adapter.Navigate(ctx, w.cfg.Portal.InvoicesURL); nerr != nil {
				return fmt.Errorf("recover to invoice list: %w", nerr)
			}
			continue
		}

		w.metrics.AddSkips(res.Skipped)
		w.metrics.AddErrors(res.Failed)
		w.capturePreview(ctx)
		if res.Stopped {
			return errStop
		}
		w.metrics.IncInvoices()
	}
	return nil
}

// invoiceFailed records a partial-invoice marker and moves on; one broken
// invoice page must not end the run.
func (w *Worker) invoiceFailed(invoiceID string, err error) {
	w.log.Errorf("invoice %s: %v", invoiceID, err)
	w.metrics.AddErrors(1)
	if serr := w.store.UpdateStats(func(st *model.Stats) { st.Errors++ }); serr != nil {
		w.log.Warnf("update stats: %v", serr)
	}
	w.event("Invoice incomplete", fmt.Sprintf("invoice %s: %v", invoiceID, err), "error")
}

// gate applies pause/stop between invoices. Pause holds here, capturing a
// preview each poll, until resume.
func (w *Worker) gate(ctx context.Context) error {
	paused := false
	for {
		switch w.command() {
		case model.CommandStop:
			return errStop
		case model.CommandPause:
			if !paused {
				paused = true
				w.transition(model.StatusPaused)
				w.event("Paused", "processing held until resume", "info")
			}
			w.capturePreview(ctx)
			if err := w.pollWait(ctx); err != nil {
				return err
			}
		default:
			if paused {
				w.transition(model.StatusRunning)
				w.event("Resumed", "processing continues", "info")
			}
			return nil
		}
	}
}

// stopRequested is the engine's row-level stop probe.
func (w *Worker) stopRequested() bool {
	return w.command() == model.CommandStop
}

func (w *Worker) command() model.Command {
	return w.store.ReadRunState().Command
}

// pollWait blocks for one poll interval, a filesystem poke, or cancellation.
func (w *Worker) pollWait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errStop
	case <-w.poke:
		return nil
	case <-time.After(w.poll):
		return nil
	}
}

// watchLoop turns state-dir writes into pokes so commands land within one
// interval even mid-phase.
func (w *Worker) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				select {
				case w.poke <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("fsnotify: %v", err)
		}
	}
}

func (w *Worker) transition(to model.RunStatus) {
	from := w.store.ReadRunState().Status
	if err := model.ValidateRunTransition(from, to); err != nil {
		w.log.Warnf("status transition: %v", err)
	}
	if err := w.store.SetStatus(to); err != nil {
		w.log.Warnf("set status %s: %v", to, err)
	}
	w.metrics.SetPhase(to)
	w.log.Infof("status %s -> %s", from, to)
}

func (w *Worker) event(title, description, status string) {
	if err := w.store.AppendEvent(model.LogEvent{
		Title:       title,
		Description: description,
		Status:      status,
	}); err != nil {
		w.log.Warnf("append event: %v", err)
	}
}

// capturePreview publishes a downscaled screenshot for the dashboard.
// Observability only: every failure is swallowed at debug level.
func (w *Worker) capturePreview(ctx context.Context) {
	png, err := w.drv.Screenshot(ctx)
	if err != nil {
		w.log.Debugf("screenshot: %v", err)
		return
	}
	if err := writePreview(w.store, png, w.cfg.Worker.PreviewWidth); err != nil {
		w.log.Debugf("preview: %v", err)
	}
}

// forwardClicks replays queued dashboard clicks into the live session.
func (w *Worker) forwardClicks(ctx context.Context) {
	for _, click := range w.store.DrainClicks() {
		if err := w.drv.ClickAt(ctx, click.X, click.Y); err != nil {
			w.log.Debugf("forward click (%d,%d): %v", click.X, click.Y, err)
		}
	}
}
