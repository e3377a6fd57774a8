package model

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// InvoiceCategory classifies a row of the invoice list.
type InvoiceCategory string

const (
	CategoryDutyTax        InvoiceCategory = "Duty/Tax"
	CategoryTransportation InvoiceCategory = "Transportation"
	CategoryDisputed       InvoiceCategory = "Disputed"
	CategoryUnknown        InvoiceCategory = "Unknown"
)

// UnknownInvoiceID is substituted when a row carries no recognizable
// invoice number; the row is kept, not dropped.
const UnknownInvoiceID = "Unknown"

var (
	invoiceNumberRe = regexp.MustCompile(`\d-\d{3}-\d{5}`)
	trackingIDRe    = regexp.MustCompile(`\b\d{12}\b`)
	amountRe        = regexp.MustCompile(`\$\s?([\d,]+\.\d{2})`)
)

// Invoice is an immutable snapshot of one invoice-list row taken during the
// analysis pass.
type Invoice struct {
	ID       string          `yaml:"invoice" json:"invoice"`
	Category InvoiceCategory `yaml:"type" json:"type"`
	Text     string          `yaml:"text" json:"text"`
}

// ClassifyInvoiceRow maps row text to exactly one category. Priority order is
// fixed: Transportation wins over the disputed marker, which wins over the
// Duty/Tax marker, regardless of which substrings co-occur.
func ClassifyInvoiceRow(rowText string) InvoiceCategory {
	switch {
	case strings.Contains(rowText, "Transportation"):
		return CategoryTransportation
	case strings.Contains(rowText, "OPEN IN DISPUTE"):
		return CategoryDisputed
	case strings.Contains(rowText, "Duty/Tax"):
		return CategoryDutyTax
	default:
		return CategoryUnknown
	}
}

// ExtractInvoiceNumber returns the first formatted invoice number in text,
// or UnknownInvoiceID when none is present.
func ExtractInvoiceNumber(text string) string {
	if m := invoiceNumberRe.FindString(text); m != "" {
		return m
	}
	return UnknownInvoiceID
}

// ExtractTrackingIDs returns all distinct 12-digit tracking identifiers in
// text, in order of first appearance.
func ExtractTrackingIDs(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range trackingIDRe.FindAllString(text, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		ids = append(ids, m)
	}
	return ids
}

// ExtractAmount returns the first dollar amount in text without the
// thousands separators, or "0.00" when none is present.
func ExtractAmount(text string) string {
	if m := amountRe.FindStringSubmatch(text); m != nil {
		return strings.ReplaceAll(m[1], ",", "")
	}
	return "0.00"
}

// NewInvoiceFromRow builds the snapshot for one list row. Text is truncated
// for dashboard display.
func NewInvoiceFromRow(rowText string) Invoice {
	text := rowText
	if len(text) > 100 {
		cut := 100
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return Invoice{
		ID:       ExtractInvoiceNumber(rowText),
		Category: ClassifyInvoiceRow(rowText),
		Text:     text,
	}
}
