package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Lewtress. The PDF text layer drops spaces inside labels ("InvoiceNumber",
// "TOTALGBP") and dates ("19Jan2026"), so the patterns tolerate merged text.
// Everything Lewtress ships is zero-rated.

var (
	lewtressInvoiceNoRE = regexp.MustCompile(`(?is)InvoiceNumber.{0,150}?(\d{3,6})`)
	lewtressDateRE      = regexp.MustCompile(`(?is)InvoiceDate.{0,60}?(\d{1,2}\s*[A-Za-z]{3}\s*\d{4})`)
	lewtressNetRE       = regexp.MustCompile(`(?i)Subtotal\s+([\d,]+\.\d{2})`)
	lewtressVATRE       = regexp.MustCompile(`(?i)TOTAL\s*ZERO\s*RATED\s+([\d,]+\.\d{2})`)
	lewtressTotalRE     = regexp.MustCompile(`(?i)TOTAL\s*GBP\s+([\d,]+\.\d{2})`)
)

// ParseLewtress extracts a Lewtress Natural Health invoice.
func (s *Set) ParseLewtress(text string) *invoice.Record {
	var warnings []string

	postcode := parse.FindDeliveryPostcode(text, s.accounts)
	account := s.ledgerFor(postcode, "Delivery postcode not found", "Unknown delivery postcode", &warnings)

	reference := firstGroup(text, lewtressInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, lewtressDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	net := moneyGroup(text, lewtressNetRE)
	vatAmount := moneyGroup(text, lewtressVATRE)
	total := moneyGroup(text, lewtressTotalRE)

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
		Supplier:          "Lewtress Natural Health Ltd",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "b4f47ceba50d4192ab3e4209685e681d",
		VATNet:            decimal.Zero,
		NonVATNet:         round2(*net),
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
