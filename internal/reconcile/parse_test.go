package reconcile

import (
	"testing"

	"disputebot/internal/model"
)

func TestParseShipmentTable(t *testing.T) {
	html := `
<tr><th>AIR WAYBILL</th><th>CHARGE</th></tr>
<tr><td>100000000001</td><td>$1,234.56</td></tr>
<tr><td>subtotal row without tracking</td></tr>
<tr><td>100000000002</td><td>$89.00</td></tr>
<tr><td>100000000001</td><td>duplicate row</td></tr>
`
	lines, err := ParseShipmentTable(html)
	if err != nil {
		t.Fatalf("ParseShipmentTable: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].TrackingID != "100000000001" || lines[1].TrackingID != "100000000002" {
		t.Errorf("wrong order: %v", lines)
	}
	if lines[0].Amount != "1234.56" {
		t.Errorf("amount = %q, want 1234.56", lines[0].Amount)
	}
	if lines[0].Row != 2 || lines[1].Row != 4 {
		t.Errorf("row positions = %d, %d; want 2, 4", lines[0].Row, lines[1].Row)
	}
}

func TestParseShipmentTable_NoTrackingIDs(t *testing.T) {
	lines, err := ParseShipmentTable("<tr><td>nothing here</td></tr>")
	if err != nil {
		t.Fatalf("ParseShipmentTable: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("got %d lines, want 0", len(lines))
	}
}

func TestParseDisputeLedger(t *testing.T) {
	html := `
<tr><td>DISPUTE ID</td><td>AIR WAYBILL</td><td>DISPUTE REASON</td></tr>
<tr><td>DISPUTE REASON</td></tr>
<tr><td></td></tr>
<tr><td>D-1</td><td>100000000001</td><td>Duty/Tax</td></tr>
<tr><td>D-2</td><td>100000000002</td><td>Duty / Tax</td></tr>
<tr><td>D-3</td><td>100000000003</td><td>Dimensions</td></tr>
`
	entries, err := ParseDisputeLedger(html)
	if err != nil {
		t.Fatalf("ParseDisputeLedger: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %v", len(entries), entries)
	}
	want := []model.DisputeActivityEntry{
		{TrackingID: "100000000001", Reason: model.ReasonDutyTax},
		{TrackingID: "100000000002", Reason: model.ReasonDutyTax},
		{TrackingID: "100000000003", Reason: model.ReasonOther},
	}
	for i, w := range want {
		if entries[i] != w {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], w)
		}
	}
}

func TestParseDisputeLedger_EmptyAndHeadersOnly(t *testing.T) {
	entries, err := ParseDisputeLedger(`<tr><td>DISPUTE ID</td><td>AIR WAYBILL</td></tr>`)
	if err != nil {
		t.Fatalf("ParseDisputeLedger: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}
