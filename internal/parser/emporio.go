package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Emporio. Everything on the invoice is standard-rated.

var (
	emporioInvoiceNoRE = regexp.MustCompile(`(?i)Invoice\s+No\s+(\d+)`)
	emporioDateRE      = regexp.MustCompile(`(?i)Invoice\s+Date\s+(\d{1,2}/\d{1,2}/\d{4})`)
	emporioNetRE       = regexp.MustCompile(`(?i)Total\s+Net\s+Amount\s*[£$]?\s*([\d,]+\.\d{2})`)
	emporioVATRE       = regexp.MustCompile(`(?i)Total\s+VAT\s+Amount\s*[£$]?\s*([\d,]+\.\d{2})`)
	emporioTotalRE     = regexp.MustCompile(`(?i)Invoice\s+Total\s*[£$]?\s*([\d,]+\.\d{2})`)
)

// ParseEmporio extracts an Emporio invoice.
func (s *Set) ParseEmporio(text string) *invoice.Record {
	var warnings []string

	postcode := parse.FindDeliveryPostcode(text, s.accounts)
	account := s.ledgerFor(postcode, "Postcode not found", "Unknown postcode", &warnings)

	reference := firstGroup(text, emporioInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, emporioDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	vatNet := moneyGroup(text, emporioNetRE)
	vatAmount := moneyGroup(text, emporioVATRE)
	total := moneyGroup(text, emporioTotalRE)

	if vatNet == nil {
		vatNet = &decimal.Zero
		warnings = append(warnings, "Net amount not found")
	}
	if vatAmount == nil {
		vatAmount = &decimal.Zero
		warnings = append(warnings, "VAT amount not found")
	}
	if total == nil {
		sum := round2(vatNet.Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Invoice total not found")
	}

	if !parse.ApproxEqual(vatNet.Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Emporio",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "ba1633b010f64a1cbfb264179760fa12",
		VATNet:            round2(*vatNet),
		NonVATNet:         decimal.Zero,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
