package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Bio-Nature. Straightforward label/value layout with a single VAT summary.

var (
	bionatureInvoiceNoRE = regexp.MustCompile(`(?i)Invoice\s+No\s*([0-9]+)`)
	bionatureDateRE      = regexp.MustCompile(`(?i)Invoice\s+Date\s*([0-9]{2}/[0-9]{2}/[0-9]{4})`)
	bionatureNetRE       = regexp.MustCompile(`(?i)Total\s+Net\s+Amount\s*([\d,]+\.\d{2})`)
	bionatureVATRE       = regexp.MustCompile(`(?i)Total\s+Tax\s+Amount\s*([\d,]+\.\d{2})`)
	bionatureTotalRE     = regexp.MustCompile(`(?i)Invoice\s+Total\s*([\d,]+\.\d{2})`)
)

// ParseBionature extracts a Bio-Nature invoice.
func (s *Set) ParseBionature(text string) *invoice.Record {
	var warnings []string

	postcode := PostcodeIn(text)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, bionatureInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, bionatureDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	vatNet := moneyGroup(text, bionatureNetRE)
	vatAmount := moneyGroup(text, bionatureVATRE)
	total := moneyGroup(text, bionatureTotalRE)

	if vatNet == nil {
		vatNet = &decimal.Zero
		warnings = append(warnings, "VAT net amount not found")
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

	// The net line only covers standard-rated goods; whatever remains of the
	// total is zero-rated.
	nonvatNet := round2(total.Sub(*vatNet).Sub(*vatAmount))
	if nonvatNet.IsNegative() {
		nonvatNet = decimal.Zero
	}

	if !parse.ApproxEqual(vatNet.Add(nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Bio-Nature",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "a86c0c45c364492394f743bc09db5c90",
		VATNet:            round2(*vatNet),
		NonVATNet:         nonvatNet,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
