// Package scanner turns the portal's invoice list into the session's invoice
// snapshot. It runs once per analysis pass; the worker decides when.
package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"disputebot/internal/logging"
	"disputebot/internal/model"
	"disputebot/internal/portal"
	"disputebot/internal/statestore"
)

type Scanner struct {
	adapter *portal.Adapter
	store   *statestore.Store
	log     *logging.Logger
}

func New(adapter *portal.Adapter, store *statestore.Store, log *logging.Logger) *Scanner {
	return &Scanner{adapter: adapter, store: store, log: log}
}

// Scan waits for the invoice list to populate, snapshots it, classifies
// every row, and publishes the result to the session document. The returned
// slice preserves the list's displayed order.
func (s *Scanner) Scan(ctx context.Context) ([]model.Invoice, error) {
	if err := s.adapter.WaitForInvoiceTable(ctx); err != nil {
		return nil, fmt.Errorf("invoice table never populated: %w", err)
	}
	html, err := s.adapter.InvoiceTableHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot invoice table: %w", err)
	}

	invoices, err := ParseInvoiceTable(html)
	if err != nil {
		return nil, err
	}

	dutyTax := 0
	byCategory := map[string]int{}
	for _, inv := range invoices {
		byCategory[string(inv.Category)]++
		if inv.Category == model.CategoryDutyTax {
			dutyTax++
		}
	}
	s.log.Infof("scanned %d invoice rows, %d duty/tax", len(invoices), dutyTax)

	if err := s.store.SaveInvoices(invoices); err != nil {
		return nil, fmt.Errorf("save invoices: %w", err)
	}
	if err := s.store.UpdateStats(func(st *model.Stats) {
		st.TotalInvoices = dutyTax
	}); err != nil {
		return nil, err
	}
	if err := s.store.AppendEvent(model.LogEvent{
		Title:       "Analysis complete",
		Description: fmt.Sprintf("%d invoices scanned, %d Duty/Tax to process", len(invoices), dutyTax),
		Status:      "success",
		Tags:        []string{"analysis"},
		Data:        map[string]any{"categories": byCategory},
	}); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ParseInvoiceTable extracts one Invoice per non-empty row of the invoice
// list's table body HTML. Rows with no recognizable invoice number are kept
// under the Unknown placeholder so the dashboard can show them.
func ParseInvoiceTable(html string) ([]model.Invoice, error) {
	// driver snapshots are bare tbody fragments; the HTML parser drops
	// tr/td tags that have no table ancestor
	if !strings.Contains(strings.ToLower(html), "<table") {
		html = "<table>" + html + "</table>"
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse invoice table: %w", err)
	}

	var invoices []model.Invoice
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		text := rowText(row)
		if text == "" {
			return
		}
		invoices = append(invoices, model.NewInvoiceFromRow(text))
	})
	return invoices, nil
}

// rowText joins the row's cell texts with single spaces so substring
// classification cannot glue adjacent cells together.
func rowText(row *goquery.Selection) string {
	var parts []string
	cells := row.Find("td, th")
	if cells.Length() == 0 {
		return strings.TrimSpace(row.Text())
	}
	cells.Each(func(_ int, cell *goquery.Selection) {
		if t := strings.Join(strings.Fields(cell.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}
