package portal

import (
	"context"
	"errors"
	"fmt"
)

// Dispute form constants. The type is always "Incorrect charge" and the
// reason always "Duty/Tax"; other reasons are out of scope for filing.
const (
	disputeType   = "Incorrect charge"
	disputeReason = "Duty/Tax"
)

// FileDisputeForm drives the open dispute form to completion: type
// selection, reason selection, free-text comment, submit. Each step runs its
// own fallback cascade. ErrSubmittedUnconfirmed passes through unchanged so
// the caller can distinguish "never submitted" from "submitted blind".
func (a *Adapter) FileDisputeForm(ctx context.Context, comment string) error {
	// The dialog render lags the menu click; absence here is not yet fatal,
	// the first dropdown cascade will fail decisively if the form truly
	// never opened.
	formProbe := []string{"text=Dispute type", "text=DISPUTE TYPE", "div[role='dialog']"}
	visible := false
	for _, loc := range formProbe {
		if a.drv.WaitVisible(ctx, loc, a.wait.Short) == nil {
			visible = true
			break
		}
	}
	if !visible {
		a.log.Debugf("dispute form not yet visible, proceeding to dropdown cascade")
	}

	if err := a.SelectDropdownOption(ctx, disputeType); err != nil {
		return fmt.Errorf("select dispute type: %w", err)
	}
	if err := a.SelectDropdownOption(ctx, disputeReason); err != nil {
		return fmt.Errorf("select dispute reason: %w", err)
	}

	if !a.FillComment(ctx, comment) {
		a.log.Warnf("comment field not found, submitting without comment")
	}

	if err := a.SubmitDispute(ctx); err != nil {
		if errors.Is(err, ErrSubmittedUnconfirmed) {
			return err
		}
		return fmt.Errorf("submit dispute: %w", err)
	}
	return nil
}
