package reconcile

import (
	"context"
	"errors"
	"fmt"

	"disputebot/internal/logging"
	"disputebot/internal/model"
	"disputebot/internal/portal"
	"disputebot/internal/statestore"
)

// Recorder receives every successfully filed dispute, for the history
// archive and metrics. May be nil.
type Recorder interface {
	DisputeFiled(ctx context.Context, invoiceID, trackingID, amount string)
}

// StopFunc reports whether a stop was requested. The engine checks it before
// every shipment row; a stop yields a partial Result, not an error.
type StopFunc func() bool

// Result accounts for one invoice pass.
type Result struct {
	Scanned  int // shipment lines found
	Disputed int // disputes filed this pass
	Skipped  int // excluded by a prior dispute, or reported already pending
	Handled  int // lines with a prior dispute of any reason
	Failed   int // rows where filing failed
	Stopped  bool
}

// Engine reconciles one invoice: parses its shipment table and dispute
// ledger, computes the lines still needing a Duty/Tax dispute, and files
// them one row at a time.
type Engine struct {
	adapter  *portal.Adapter
	store    *statestore.Store
	log      *logging.Logger
	comment  string
	recorder Recorder
}

func NewEngine(adapter *portal.Adapter, store *statestore.Store, log *logging.Logger, comment string, recorder Recorder) *Engine {
	return &Engine{adapter: adapter, store: store, log: log, comment: comment, recorder: recorder}
}

// ProcessInvoice runs the full pass for the invoice currently open in the
// browser. Per-row failures are counted, not raised; an error return means
// the invoice itself could not be read.
func (e *Engine) ProcessInvoice(ctx context.Context, invoiceID string, stop StopFunc) (Result, error) {
	if stop == nil {
		stop = func() bool { return false }
	}
	var r Result

	html, err := e.adapter.ShipmentTableHTML(ctx)
	if err != nil {
		return r, fmt.Errorf("invoice %s: shipment table: %w", invoiceID, err)
	}
	lines, err := ParseShipmentTable(html)
	if err != nil {
		return r, fmt.Errorf("invoice %s: %w", invoiceID, err)
	}
	r.Scanned = len(lines)

	duty, prior, err := e.priorDisputes(ctx, invoiceID)
	if err != nil {
		return r, err
	}

	var work []model.ShipmentLine
	for _, line := range lines {
		if prior[line.TrackingID] {
			r.Handled++
			r.Skipped++
		}
		if !duty[line.TrackingID] {
			work = append(work, line)
		}
	}
	e.log.Infof("invoice %s: %d lines, %d with prior disputes, %d to file",
		invoiceID, len(lines), r.Handled, len(work))

	if len(work) == 0 {
		return r, e.finish(invoiceID, &r)
	}

	for _, line := range work {
		if stop() {
			r.Stopped = true
			break
		}
		switch e.disputeRow(ctx, invoiceID, line) {
		case model.ResultDisputed:
			r.Disputed++
			e.recordDispute(ctx, invoiceID, line)
		case model.ResultSkipped:
			// portal reported the line already pending; count it once
			if !prior[line.TrackingID] {
				r.Skipped++
			}
		case model.ResultFailed:
			r.Failed++
		}
	}

	return r, e.finish(invoiceID, &r)
}

// priorDisputes reads the invoice's dispute-activity ledger. Returns the set
// of tracking IDs already disputed for Duty/Tax and the set disputed for any
// reason. A missing ledger section is normal and yields empty sets.
func (e *Engine) priorDisputes(ctx context.Context, invoiceID string) (duty, all map[string]bool, err error) {
	duty = map[string]bool{}
	all = map[string]bool{}

	html, found, err := e.adapter.ExpandDisputeActivity(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("invoice %s: dispute activity: %w", invoiceID, err)
	}
	if !found {
		return duty, all, nil
	}
	entries, err := ParseDisputeLedger(html)
	if err != nil {
		return nil, nil, fmt.Errorf("invoice %s: %w", invoiceID, err)
	}
	for _, entry := range entries {
		all[entry.TrackingID] = true
		if entry.Reason == model.ReasonDutyTax {
			duty[entry.TrackingID] = true
		}
	}
	return duty, all, nil
}

// disputeRow attempts one line: open the row menu, choose Dispute, then
// either acknowledge the pending-dispute popup or drive the form. Submission
// is never retried.
func (e *Engine) disputeRow(ctx context.Context, invoiceID string, line model.ShipmentLine) model.DisputeResult {
	if err := e.adapter.OpenRowMenu(ctx, line.Row); err != nil {
		e.rowFailed(invoiceID, line, fmt.Errorf("open row menu: %w", err))
		return model.ResultFailed
	}
	if err := e.adapter.ChooseDisputeMenuItem(ctx); err != nil {
		e.adapter.DismissPopup(ctx)
		e.rowFailed(invoiceID, line, fmt.Errorf("choose dispute: %w", err))
		return model.ResultFailed
	}

	if e.adapter.PendingDisputePopupShown(ctx) {
		e.adapter.DismissPopup(ctx)
		e.log.Debugf("invoice %s: %s already pending, skipping", invoiceID, line.TrackingID)
		return model.ResultSkipped
	}

	if err := e.adapter.FileDisputeForm(ctx, e.comment); err != nil {
		if errors.Is(err, portal.ErrSubmittedUnconfirmed) {
			// past the point of no return: count the failure, never resubmit
			e.rowFailed(invoiceID, line, err)
			e.adapter.DismissErrorDialog(ctx)
			return model.ResultFailed
		}
		e.adapter.DismissErrorDialog(ctx)
		e.adapter.DismissPopup(ctx)
		e.rowFailed(invoiceID, line, err)
		return model.ResultFailed
	}
	return model.ResultDisputed
}

func (e *Engine) recordDispute(ctx context.Context, invoiceID string, line model.ShipmentLine) {
	if err := e.store.RecordDispute(); err != nil {
		e.log.Warnf("invoice %s: persist dispute counter: %v", invoiceID, err)
	}
	if e.recorder != nil {
		e.recorder.DisputeFiled(ctx, invoiceID, line.TrackingID, line.Amount)
	}
	if err := e.store.AppendEvent(model.LogEvent{
		Title:       "Dispute filed",
		Description: fmt.Sprintf("invoice %s, shipment %s, $%s", invoiceID, line.TrackingID, line.Amount),
		Status:      "success",
		Tags:        []string{"dispute", invoiceID},
	}); err != nil {
		e.log.Warnf("invoice %s: append event: %v", invoiceID, err)
	}
}

func (e *Engine) rowFailed(invoiceID string, line model.ShipmentLine, err error) {
	e.log.Errorf("invoice %s: shipment %s: %v", invoiceID, line.TrackingID, err)
	if aerr := e.store.AppendEvent(model.LogEvent{
		Title:       "Dispute failed",
		Description: fmt.Sprintf("invoice %s, shipment %s: %v", invoiceID, line.TrackingID, err),
		Status:      "error",
		Tags:        []string{"dispute", invoiceID},
	}); aerr != nil {
		e.log.Warnf("invoice %s: append event: %v", invoiceID, aerr)
	}
}

// finish folds the pass into the session stats and emits the
// invoice-complete event. A stopped pass keeps its partial counts but does
// not count the invoice as processed.
func (e *Engine) finish(invoiceID string, r *Result) error {
	if err := e.store.UpdateStats(func(st *model.Stats) {
		st.Disputed += r.Disputed
		st.Skipped += r.Skipped
		st.Errors += r.Failed
		if !r.Stopped {
			st.InvoicesProcessed++
		}
	}); err != nil {
		return err
	}

	status := "success"
	title := "Invoice complete"
	if r.Stopped {
		status = "warning"
		title = "Invoice interrupted"
	} else if r.Failed > 0 {
		status = "warning"
	}
	return e.store.AppendEvent(model.LogEvent{
		Title:       title,
		Description: fmt.Sprintf("invoice %s: %d disputed, %d skipped, %d failed", invoiceID, r.Disputed, r.Skipped, r.Failed),
		Status:      status,
		Tags:        []string{"invoice", invoiceID},
		Data: map[string]any{
			"scanned":  r.Scanned,
			"disputed": r.Disputed,
			"skipped":  r.Skipped,
			"handled":  r.Handled,
		},
	})
}
