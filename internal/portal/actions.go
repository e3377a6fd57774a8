package portal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"disputebot/internal/browser"
	"disputebot/internal/logging"
)

// Timeouts bound every element wait the adapter performs. A timeout degrades
// to the next strategy or a reported failure; it never crashes the run.
type Timeouts struct {
	Element    time.Duration // standard visibility wait
	Short      time.Duration // popup probes
	Table      time.Duration // list/table population
	Navigation time.Duration // page loads
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Element:    5 * time.Second,
		Short:      1500 * time.Millisecond,
		Table:      30 * time.Second,
		Navigation: 15 * time.Second,
	}
}

// Adapter performs logical portal actions through the browser capability.
// Pure mechanism: it carries no invoice or dispute business logic.
type Adapter struct {
	drv  browser.Driver
	log  *logging.Logger
	wait Timeouts
}

func NewAdapter(drv browser.Driver, log *logging.Logger, wait Timeouts) *Adapter {
	if wait.Element <= 0 {
		wait = DefaultTimeouts()
	}
	if wait.Navigation == 0 {
		wait.Navigation = DefaultTimeouts().Navigation
	}
	return &Adapter{drv: drv, log: log, wait: wait}
}

// Navigate is a page load bounded by the navigation timeout.
func (a *Adapter) Navigate(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, a.wait.Navigation)
	defer cancel()
	return a.drv.Navigate(nctx, url)
}

// SignedIn probes the heuristics that distinguish a signed-in session from
// the login page.
func (a *Adapter) SignedIn(ctx context.Context) bool {
	indicators := []string{
		"text=Sign Out",
		"text=Log Out",
		"text=Account:",
		"[aria-label='My Profile']",
	}
	for _, loc := range indicators {
		if a.drv.WaitVisible(ctx, loc, a.wait.Short) == nil {
			return true
		}
	}
	return false
}

// NavigateToInvoices moves from the landing page to the invoice list. The
// click path is attempted first; direct navigation to the invoices URL is the
// final fallback, and the landing popup is dismissed along the way.
func (a *Adapter) NavigateToInvoices(ctx context.Context, invoicesURL string) error {
	payBill := Cascade{
		Action: "open_billing",
		Strategies: []Strategy{
			{Name: "pay_a_bill_text", Attempt: a.click("text=PAY A BILL")},
			{Name: "billing_href", Attempt: a.click("a[href*='/billing/']")},
			{Name: "pay_a_bill_card", Attempt: a.click("h3:has-text('PAY A BILL')")},
			{Name: "direct_url", Attempt: func(ctx context.Context) error {
				return a.Navigate(ctx, invoicesURL)
			}},
		},
	}
	if out := payBill.Run(ctx, a.log); !out.OK {
		return out.Err
	}

	// Billing landing popup; absence is normal.
	_ = a.drv.Click(ctx, "button:has-text('CONTINUE')", a.wait.Short)

	viewAll := Cascade{
		Action: "open_invoice_list",
		Strategies: []Strategy{
			{Name: "view_all_invoices", Attempt: a.click("text=VIEW ALL INVOICES")},
			{Name: "invoices_tab", Attempt: a.click("text=INVOICES")},
			{Name: "already_there", Attempt: func(ctx context.Context) error {
				if strings.Contains(strings.ToLower(a.drv.URL()), "invoices") {
					return nil
				}
				return browser.ErrNotFound
			}},
			{Name: "direct_url", Attempt: func(ctx context.Context) error {
				return a.Navigate(ctx, invoicesURL)
			}},
		},
	}
	if out := viewAll.Run(ctx, a.log); !out.OK {
		return out.Err
	}

	if !strings.Contains(strings.ToLower(a.drv.URL()), "invoices") {
		return a.Navigate(ctx, invoicesURL)
	}
	return nil
}

// WaitForInvoiceTable blocks until the invoice list table has populated.
func (a *Adapter) WaitForInvoiceTable(ctx context.Context) error {
	return a.drv.WaitVisible(ctx, "table tbody", a.wait.Table)
}

// InvoiceTableHTML snapshots the invoice list table body.
func (a *Adapter) InvoiceTableHTML(ctx context.Context) (string, error) {
	return a.drv.HTML(ctx, "table tbody", a.wait.Table)
}

// ShipmentTableHTML snapshots the invoice detail's shipment table body.
func (a *Adapter) ShipmentTableHTML(ctx context.Context) (string, error) {
	if err := a.drv.WaitVisible(ctx, "tbody tr", a.wait.Table); err != nil {
		return "", err
	}
	return a.drv.HTML(ctx, "tbody", a.wait.Table)
}

// ExpandDisputeActivity opens the invoice's dispute-activity section and
// returns its HTML. found=false with a nil error means the invoice has no
// dispute history, which is normal, not a failure.
func (a *Adapter) ExpandDisputeActivity(ctx context.Context) (html string, found bool, err error) {
	section := Cascade{
		Action: "expand_dispute_activity",
		Strategies: []Strategy{
			{Name: "title_case", Attempt: a.click("text=Dispute activity")},
			{Name: "mixed_case", Attempt: a.click("text=Dispute Activity")},
			{Name: "upper_case", Attempt: a.click("text=DISPUTE ACTIVITY")},
		},
	}
	if out := section.Run(ctx, a.log); !out.OK {
		return "", false, nil
	}

	// Long ledgers lazy-load; scroll to the end and back.
	for i := 0; i < 10; i++ {
		_ = a.drv.Press(ctx, "End")
	}
	_ = a.drv.Press(ctx, "Home")

	html, err = a.drv.HTML(ctx, "table", a.wait.Element)
	if err != nil {
		return "", true, fmt.Errorf("snapshot dispute activity: %w", err)
	}
	return html, true, nil
}

// OpenRowMenu opens the action menu of the 1-based nth shipment row.
func (a *Adapter) OpenRowMenu(ctx context.Context, row int) error {
	menu := Cascade{
		Action: fmt.Sprintf("open_row_menu_%d", row),
		Strategies: []Strategy{
			{Name: "row_button", Attempt: a.click(fmt.Sprintf("tbody tr:nth-child(%d) button", row))},
			{Name: "row_kebab", Attempt: a.click(fmt.Sprintf("tbody tr:nth-child(%d) [aria-haspopup='menu']", row))},
		},
	}
	if out := menu.Run(ctx, a.log); !out.OK {
		return out.Err
	}
	return nil
}

// ChooseDisputeMenuItem selects "Dispute" from an open row menu.
func (a *Adapter) ChooseDisputeMenuItem(ctx context.Context) error {
	return a.drv.Click(ctx, "text=Dispute", a.wait.Element)
}

// PendingDisputePopupShown probes for the portal's "item already in a pending
// dispute" dialog after the menu selection.
func (a *Adapter) PendingDisputePopupShown(ctx context.Context) bool {
	return a.drv.WaitVisible(ctx, "text=already in dispute", a.wait.Short) == nil
}

// DismissPopup closes whatever dialog is open, preferring the close control
// and falling back to Escape.
func (a *Adapter) DismissPopup(ctx context.Context) {
	dismiss := Cascade{
		Action: "dismiss_popup",
		Strategies: []Strategy{
			{Name: "close_button", Attempt: a.clickShort("button:has-text('×'), [aria-label='Close']")},
			{Name: "escape", Attempt: func(ctx context.Context) error {
				return a.drv.Press(ctx, "Escape")
			}},
		},
	}
	dismiss.Run(ctx, a.log)
}

// DismissErrorDialog clears the portal's transient error dialog when shown.
// Absence is the common case and is silent.
func (a *Adapter) DismissErrorDialog(ctx context.Context) {
	if a.drv.WaitVisible(ctx, "text=ERROR CODE", a.wait.Short) != nil {
		return
	}
	a.log.Debugf("error dialog shown, dismissing")
	if err := a.drv.Click(ctx, "button:has-text('CLOSE')", a.wait.Short); err != nil {
		_ = a.drv.Press(ctx, "Escape")
	}
}

// SelectDropdownOption picks option from the next unfilled labeled dropdown.
// Strategy order: the visible "Select" placeholder, the listbox trigger,
// keyboard-only navigation.
func (a *Adapter) SelectDropdownOption(ctx context.Context, option string) error {
	optionLocator := "text=" + option
	cascade := Cascade{
		Action: "select_" + strings.ToLower(strings.ReplaceAll(option, " ", "_")),
		Strategies: []Strategy{
			{Name: "select_placeholder", Attempt: func(ctx context.Context) error {
				if err := a.drv.Click(ctx, "text=Select", a.wait.Element); err != nil {
					return err
				}
				return a.drv.Click(ctx, optionLocator, a.wait.Element)
			}},
			{Name: "listbox_trigger", Attempt: func(ctx context.Context) error {
				if err := a.drv.Click(ctx, "[aria-haspopup='listbox']", a.wait.Element); err != nil {
					return err
				}
				return a.drv.Click(ctx, optionLocator, a.wait.Element)
			}},
			{Name: "keyboard", Attempt: func(ctx context.Context) error {
				if err := a.drv.Press(ctx, "Tab"); err != nil {
					return err
				}
				if err := a.drv.Press(ctx, "Enter"); err != nil {
					return err
				}
				if err := a.drv.TypeText(ctx, firstWord(option)); err != nil {
					return err
				}
				return a.drv.Press(ctx, "Enter")
			}},
		},
	}
	if out := cascade.Run(ctx, a.log); !out.OK {
		return out.Err
	}
	return nil
}

// FillComment writes the free-text dispute comment. Missing comment fields
// are tolerated; the form can be submitted without one.
func (a *Adapter) FillComment(ctx context.Context, comment string) bool {
	fill := Cascade{
		Action: "fill_comment",
		Strategies: []Strategy{
			{Name: "textarea", Attempt: func(ctx context.Context) error {
				return a.drv.Fill(ctx, "textarea", comment, a.wait.Short)
			}},
			{Name: "text_input", Attempt: func(ctx context.Context) error {
				return a.drv.Fill(ctx, "input[type='text']", comment, a.wait.Short)
			}},
		},
	}
	return fill.Run(ctx, a.log).OK
}

// SubmitDispute clicks the form's submit control and checks for a
// confirmation. Clicking is a point of no return: when the click landed but
// no confirmation is observed, the error is ErrSubmittedUnconfirmed and the
// form must not be resubmitted.
func (a *Adapter) SubmitDispute(ctx context.Context) error {
	submit := Cascade{
		Action: "submit_dispute",
		Strategies: []Strategy{
			{Name: "submit_dispute_upper", Attempt: a.clickShort("button:has-text('SUBMIT DISPUTE')")},
			{Name: "submit_dispute_mixed", Attempt: a.clickShort("button:has-text('Submit Dispute')")},
			{Name: "submit_upper", Attempt: a.clickShort("button:has-text('SUBMIT')")},
			{Name: "submit_mixed", Attempt: a.clickShort("button:has-text('Submit')")},
			{Name: "submit_type", Attempt: a.clickShort("button[type='submit']")},
		},
	}
	if out := submit.Run(ctx, a.log); !out.OK {
		return out.Err
	}

	if a.drv.WaitVisible(ctx, "text=successfully", a.wait.Short) == nil {
		return nil
	}
	if a.drv.WaitVisible(ctx, "text=ERROR", a.wait.Short) == nil {
		return ErrSubmittedUnconfirmed
	}
	// No explicit confirmation either way; the portal usually just closes
	// the dialog. Treated as submitted.
	return nil
}

func (a *Adapter) click(locator string) func(context.Context) error {
	return func(ctx context.Context) error {
		return a.drv.Click(ctx, locator, a.wait.Element)
	}
}

func (a *Adapter) clickShort(locator string) func(context.Context) error {
	return func(ctx context.Context) error {
		return a.drv.Click(ctx, locator, a.wait.Short)
	}
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " /"); i > 0 {
		return s[:i]
	}
	return s
}
