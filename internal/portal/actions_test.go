package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disputebot/internal/browser"
	"disputebot/internal/logging"
)

const invoicesURL = "https://portal.example.com/billing/invoices"

func newTestAdapter(fake *browser.Fake) *Adapter {
	return NewAdapter(fake, logging.Discard(), DefaultTimeouts())
}

func TestNavigate_BoundedByTimeout(t *testing.T) {
	fake := browser.NewFake()
	a := NewAdapter(fake, logging.Discard(), Timeouts{
		Element:    time.Second,
		Short:      time.Second,
		Table:      time.Second,
		Navigation: -time.Second, // already expired
	})

	err := a.Navigate(context.Background(), invoicesURL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, fake.Navigated)
}

func TestSignedIn(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	assert.False(t, a.SignedIn(context.Background()))

	fake.Show("text=Sign Out")
	assert.True(t, a.SignedIn(context.Background()))
}

func TestNavigateToInvoices_ClickPath(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("text=PAY A BILL", "button:has-text('CONTINUE')", "text=VIEW ALL INVOICES")
	fake.ClickHook = func(locator string) {
		if locator == "text=VIEW ALL INVOICES" {
			fake.CurrentURL = invoicesURL
		}
	}
	a := newTestAdapter(fake)

	require.NoError(t, a.NavigateToInvoices(context.Background(), invoicesURL))
	assert.Equal(t, 1, fake.ClickCount("text=PAY A BILL"))
	assert.Equal(t, 1, fake.ClickCount("button:has-text('CONTINUE')"))
	assert.Empty(t, fake.Navigated, "click path must not fall back to direct navigation")
}

func TestNavigateToInvoices_DirectURLFallback(t *testing.T) {
	// Nothing clickable anywhere: both cascades end in direct navigation.
	fake := browser.NewFake()
	fake.NavigateHook = func(url string) { fake.CurrentURL = url }
	a := newTestAdapter(fake)

	require.NoError(t, a.NavigateToInvoices(context.Background(), invoicesURL))
	assert.Contains(t, fake.Navigated, invoicesURL)
}

func TestExpandDisputeActivity_AbsentIsNormal(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	html, found, err := a.ExpandDisputeActivity(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, html)
}

func TestExpandDisputeActivity_ExpandsAndSnapshots(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("text=Dispute Activity")
	fake.HTMLs["table"] = "<table><tr><td>100000000001</td><td>Duty/Tax</td></tr></table>"
	a := newTestAdapter(fake)

	html, found, err := a.ExpandDisputeActivity(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, html, "100000000001")
	assert.Equal(t, 1, fake.ClickCount("text=Dispute Activity"))
	// lazy-load scroll
	assert.Contains(t, fake.Pressed, "End")
	assert.Contains(t, fake.Pressed, "Home")
}

func TestSelectDropdownOption_PlaceholderStrategy(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("text=Select", "text=Duty/Tax")
	a := newTestAdapter(fake)

	require.NoError(t, a.SelectDropdownOption(context.Background(), "Duty/Tax"))
	assert.Equal(t, []string{"text=Select", "text=Duty/Tax"}, fake.Clicked)
}

func TestSelectDropdownOption_ListboxFallback(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("[aria-haspopup='listbox']", "text=Incorrect charge")
	a := newTestAdapter(fake)

	require.NoError(t, a.SelectDropdownOption(context.Background(), "Incorrect charge"))
	assert.Equal(t, 1, fake.ClickCount("[aria-haspopup='listbox']"))
}

func TestSelectDropdownOption_KeyboardFallback(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	require.NoError(t, a.SelectDropdownOption(context.Background(), "Incorrect charge"))
	assert.Equal(t, []string{"Tab", "Enter", "Enter"}, fake.Pressed)
	assert.Equal(t, []string{"Incorrect"}, fake.Typed)
}

func TestFillComment_TextareaThenInput(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("textarea")
	a := newTestAdapter(fake)

	assert.True(t, a.FillComment(context.Background(), "CUSMA compliant"))
	assert.Equal(t, "CUSMA compliant", fake.Filled["textarea"])

	fake2 := browser.NewFake()
	fake2.Show("input[type='text']")
	a2 := newTestAdapter(fake2)
	assert.True(t, a2.FillComment(context.Background(), "comment"))
	assert.Equal(t, "comment", fake2.Filled["input[type='text']"])

	fake3 := browser.NewFake()
	a3 := newTestAdapter(fake3)
	assert.False(t, a3.FillComment(context.Background(), "comment"))
}

func TestSubmitDispute_Confirmed(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("button:has-text('SUBMIT DISPUTE')", "text=successfully")
	a := newTestAdapter(fake)

	require.NoError(t, a.SubmitDispute(context.Background()))
	assert.Equal(t, 1, fake.ClickCount("button:has-text('SUBMIT DISPUTE')"))
}

func TestSubmitDispute_NoSubmitButton(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	err := a.SubmitDispute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestSubmitDispute_PointOfNoReturn(t *testing.T) {
	// The click lands but the portal shows an error marker afterwards: the
	// adapter must report the distinct unconfirmed failure, and must not
	// click submit again.
	fake := browser.NewFake()
	fake.Show("button:has-text('Submit')")
	fake.ClickHook = func(locator string) {
		if locator == "button:has-text('Submit')" {
			fake.Show("text=ERROR")
		}
	}
	a := newTestAdapter(fake)

	err := a.SubmitDispute(context.Background())
	assert.ErrorIs(t, err, ErrSubmittedUnconfirmed)
	assert.Equal(t, 1, fake.ClickCount("button:has-text('Submit')"))
}

func TestDismissErrorDialog(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	// no dialog: nothing happens
	a.DismissErrorDialog(context.Background())
	assert.Empty(t, fake.Clicked)

	fake.Show("text=ERROR CODE", "button:has-text('CLOSE')")
	a.DismissErrorDialog(context.Background())
	assert.Equal(t, 1, fake.ClickCount("button:has-text('CLOSE')"))
}

func TestDismissErrorDialog_EscapeFallback(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("text=ERROR CODE")
	a := newTestAdapter(fake)

	a.DismissErrorDialog(context.Background())
	assert.Contains(t, fake.Pressed, "Escape")
}

func TestOpenRowMenu(t *testing.T) {
	fake := browser.NewFake()
	fake.Show("tbody tr:nth-child(3) button")
	a := newTestAdapter(fake)

	require.NoError(t, a.OpenRowMenu(context.Background(), 3))
	assert.Equal(t, 1, fake.ClickCount("tbody tr:nth-child(3) button"))
}

func TestOpenRowMenu_NoButton(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	err := a.OpenRowMenu(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestPendingDisputePopupShown(t *testing.T) {
	fake := browser.NewFake()
	a := newTestAdapter(fake)

	assert.False(t, a.PendingDisputePopupShown(context.Background()))
	fake.Show("text=already in dispute")
	assert.True(t, a.PendingDisputePopupShown(context.Background()))
}
