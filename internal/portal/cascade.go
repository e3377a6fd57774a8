// Package portal wraps the browser capability with the selector cascades for
// each logical UI action. The portal's markup is not contractually stable, so
// every action is an ordered list of strategies: earlier entries are the most
// specific locators, later ones degrade to generic input scanning and
// keyboard-only navigation. Exhaustion is reported to the caller as a value,
// never raised through the orchestration layer.
package portal

import (
	"context"
	"errors"
	"fmt"

	"disputebot/internal/logging"
)

var (
	// ErrExhausted means every strategy of a cascade failed.
	ErrExhausted = errors.New("all strategies exhausted")

	// ErrSubmittedUnconfirmed means the form submit was clicked (a point of
	// no return) but no confirmation was observed. The action must not be
	// retried; the caller decides how to count it.
	ErrSubmittedUnconfirmed = errors.New("submitted but confirmation not observed")
)

// Strategy is one candidate way to perform an action.
type Strategy struct {
	Name    string
	Attempt func(ctx context.Context) error
}

// Cascade is a fixed, ordered list of strategies for one logical action.
type Cascade struct {
	Action     string
	Strategies []Strategy
}

// Outcome reports which strategy succeeded, or the last failure when none
// did.
type Outcome struct {
	OK       bool
	Strategy string
	Err      error
}

// Run tries each strategy in order and stops at the first success. Every
// attempted step is logged at debug level for diagnosis.
func (c Cascade) Run(ctx context.Context, log *logging.Logger) Outcome {
	var lastErr error
	for _, s := range c.Strategies {
		if err := ctx.Err(); err != nil {
			return Outcome{Err: err}
		}
		err := s.Attempt(ctx)
		if err == nil {
			log.Debugf("action=%s strategy=%s ok", c.Action, s.Name)
			return Outcome{OK: true, Strategy: s.Name}
		}
		log.Debugf("action=%s strategy=%s failed: %v", c.Action, s.Name, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrExhausted
	}
	return Outcome{Err: fmt.Errorf("%s: %w (last: %v)", c.Action, ErrExhausted, lastErr)}
}
