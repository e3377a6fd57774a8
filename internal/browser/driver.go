// Package browser defines the capability interface the worker drives the
// portal through. The real automation backend lives outside this repository;
// everything here is expressed against opaque string locators and bounded
// waits so the rest of the system can be exercised with the scripted Fake.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means no element matched the locator within the wait.
	ErrNotFound = errors.New("element not found")
	// ErrNotVisible means an element matched but never became visible
	// within the wait.
	ErrNotVisible = errors.New("element not visible")
	// ErrNavigation means a page navigation did not complete.
	ErrNavigation = errors.New("navigation failed")
)

// Driver is the browser session capability. Implementations locate candidate
// elements matching a locator description and act on the first visible match,
// with a bounded wait. A timeout surfaces as ErrNotFound/ErrNotVisible and
// must never panic or crash the session.
//
// The driver is not safe for concurrent use; the worker confines it to one
// goroutine.
type Driver interface {
	// Navigate loads url and returns once the document is interactive.
	Navigate(ctx context.Context, url string) error

	// URL reports the current page address.
	URL() string

	// WaitVisible blocks until an element matching locator is visible, or
	// the timeout elapses.
	WaitVisible(ctx context.Context, locator string, timeout time.Duration) error

	// Click waits for visibility and clicks the first match.
	Click(ctx context.Context, locator string, timeout time.Duration) error

	// ClickAt clicks a viewport coordinate. Used only to forward dashboard
	// clicks during the interactive login phase.
	ClickAt(ctx context.Context, x, y int) error

	// Fill waits for visibility and replaces the first match's value.
	Fill(ctx context.Context, locator string, value string, timeout time.Duration) error

	// Press sends a keyboard key (e.g. "Tab", "Enter", "Escape") to the page.
	Press(ctx context.Context, key string) error

	// TypeText types literal text at the current focus.
	TypeText(ctx context.Context, text string) error

	// Text returns the text content of the first match.
	Text(ctx context.Context, locator string, timeout time.Duration) (string, error)

	// HTML returns the outer HTML snapshot of the first match. Table and
	// ledger parsing work on these snapshots.
	HTML(ctx context.Context, locator string, timeout time.Duration) (string, error)

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close tears the session down. Safe to call more than once.
	Close() error
}
