package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Pestokill. Service invoices carry no delivery address; the shop is
// identified by a keyword in the Customer Ref line ("Royal Arcade",
// "Canton", ...) with a postcode scan as fallback.

var (
	pestokillInvoiceNoRE   = regexp.MustCompile(`(?i)Invoice\s+Number\s*[:\-]?\s*(\d+)`)
	pestokillDateRE        = regexp.MustCompile(`(?i)Invoice\s+Date\s*[:\-]?\s*(.+)`)
	pestokillCustomerRefRE = regexp.MustCompile(`(?i)Customer\s+Ref\s*[:\-]?\s*(.+)`)
	pestokillNetRE         = regexp.MustCompile(`(?i)NETT\s+[£$]?([\d,]+\.\d{2})`)
	pestokillVATRE         = regexp.MustCompile(`(?i)VAT\s*\([^)]*\)\s+[£$]?([\d,]+\.\d{2})`)
	pestokillTotalRE       = regexp.MustCompile(`(?i)TOTAL\s+[£$]?([\d,]+\.\d{2})`)
)

// ParsePestokill extracts a Pestokill invoice.
func (s *Set) ParsePestokill(text string) *invoice.Record {
	var warnings []string

	postcode, ok := s.keywords.Postcode(firstGroup(text, pestokillCustomerRefRE))
	if !ok {
		postcode = parse.FindDeliveryPostcode(text, s.accounts)
	}
	account := s.ledgerFor(postcode, "Store not identified from Customer Ref or postcode", "Unknown postcode", &warnings)

	reference := firstGroup(text, pestokillInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, pestokillDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	net := moneyGroup(text, pestokillNetRE)
	vatAmount := moneyGroup(text, pestokillVATRE)
	total := moneyGroup(text, pestokillTotalRE)

	if net == nil {
		net = &decimal.Zero
		warnings = append(warnings, "Net amount not found")
	}
	if vatAmount == nil {
		vatAmount = &decimal.Zero
		warnings = append(warnings, "VAT amount not found")
	}
	if total == nil {
		sum := round2(net.Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Total not found")
	}

	if !parse.ApproxEqual(net.Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Pestokill",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "38ca157c1564493a98726455872be080",
		VATNet:            round2(*net),
		NonVATNet:         decimal.Zero,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
