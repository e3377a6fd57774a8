// Package reconcile decides, per invoice, which shipment lines still need a
// Duty/Tax dispute and drives the portal to file them. The decision is pure
// set arithmetic over two parsed tables; the filing loop degrades per row,
// never per invoice.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"disputebot/internal/model"
)

// ParseShipmentTable extracts the invoice detail's shipment lines from a
// table-body HTML snapshot. One line per distinct tracking ID, in displayed
// order; rows carrying no tracking ID are skipped silently.
func ParseShipmentTable(html string) ([]model.ShipmentLine, error) {
	doc, err := tableDocument(html)
	if err != nil {
		return nil, fmt.Errorf("parse shipment table: %w", err)
	}

	seen := make(map[string]bool)
	var lines []model.ShipmentLine
	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		text := strings.Join(strings.Fields(row.Text()), " ")
		for _, id := range model.ExtractTrackingIDs(text) {
			if seen[id] {
				continue
			}
			seen[id] = true
			lines = append(lines, model.ShipmentLine{
				TrackingID: id,
				RawText:    text,
				Amount:     model.ExtractAmount(text),
				Row:        i + 1,
			})
		}
	})
	return lines, nil
}

// ParseDisputeLedger extracts previously filed disputes from the
// dispute-activity table HTML. Header and label rows are recognized by text
// and dropped; every remaining tracking ID becomes one entry. A row is
// DutyTax when it names the Duty/Tax reason in either spelling the portal
// uses, Other for every different reason.
func ParseDisputeLedger(html string) ([]model.DisputeActivityEntry, error) {
	doc, err := tableDocument(html)
	if err != nil {
		return nil, fmt.Errorf("parse dispute ledger: %w", err)
	}

	var entries []model.DisputeActivityEntry
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		text := strings.Join(strings.Fields(row.Text()), " ")
		if isLedgerHeader(text) {
			return
		}
		reason := model.ReasonOther
		if strings.Contains(text, "Duty/Tax") || strings.Contains(text, "Duty / Tax") {
			reason = model.ReasonDutyTax
		}
		for _, id := range model.ExtractTrackingIDs(text) {
			entries = append(entries, model.DisputeActivityEntry{
				TrackingID: id,
				Reason:     reason,
			})
		}
	})
	return entries, nil
}

// tableDocument parses a table snapshot. Driver snapshots are often a bare
// tbody or row fragment; without a table ancestor the HTML parser discards
// tr/td tags entirely, so fragments are wrapped first.
func tableDocument(html string) (*goquery.Document, error) {
	if !strings.Contains(strings.ToLower(html), "<table") {
		html = "<table>" + html + "</table>"
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func isLedgerHeader(text string) bool {
	if text == "" {
		return true
	}
	upper := strings.ToUpper(text)
	if strings.Contains(upper, "DISPUTE ID") && strings.Contains(upper, "AIR WAYBILL") {
		return true
	}
	return strings.Contains(upper, "DISPUTE REASON") && !strings.ContainsAny(text, "0123456789")
}
