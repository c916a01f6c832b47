package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Nestle. The per-page carried-forward subtotals repeat the summary labels,
// so each label's candidates are collected across the whole document and the
// last one wins. The boilerplate after "Terms & Conditions" is cut first; it
// contains addresses that would hijack the postcode scan.

var (
	nestleTermsRE     = regexp.MustCompile(`(?i)Terms\s*&?\s*Conditions`)
	nestleInvoiceNoRE = regexp.MustCompile(`(?i)INVOICE NO\s*:?\s*([0-9-]+)`)
	nestleDateRE      = regexp.MustCompile(`(?i)INVOICE DATE:\s*\(TAXPOINT\)\s*([0-9]{1,2}/[0-9]{1,2}/[0-9]{4})`)
	nestleDueRE       = regexp.MustCompile(`(?i)PAYMENT DUE DATE:\s*([0-9]{1,2}/[0-9]{1,2}/[0-9]{4})`)
)

// nestleLastAfterLabel collects every money value within a few lines of each
// occurrence of label and returns the last, which belongs to the final
// summary page.
func nestleLastAfterLabel(lines []string, label string) *decimal.Decimal {
	var last *decimal.Decimal
	for i, line := range lines {
		if !strings.EqualFold(line, label) {
			continue
		}
		for _, nxt := range after(lines, i, 5) {
			if v := parse.Money(nxt); v != nil {
				last = v
			}
		}
	}
	return last
}

// ParseNestle extracts a Nestle invoice.
func (s *Set) ParseNestle(text string) *invoice.Record {
	var warnings []string

	if loc := nestleTermsRE.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	postcode := PostcodeIn(text)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, nestleInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, nestleDateRE), &warnings)
	dueDate := parse.Date(firstGroup(text, nestleDueRE))
	if dueDate == nil {
		dueDate = datePlusDays(invoiceDate, 30)
	}

	lines := textLines(text)
	vatNet := nestleLastAfterLabel(lines, "value excl vat")
	vatAmount := nestleLastAfterLabel(lines, "vat")
	total := nestleLastAfterLabel(lines, "invoice total")

	if vatNet == nil {
		warnings = append(warnings, "VAT net amount not found")
		vatNet = &decimal.Zero
	}
	if vatAmount == nil {
		warnings = append(warnings, "VAT amount not found")
		vatAmount = &decimal.Zero
	}
	if total == nil {
		sum := round2(vatNet.Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Total amount not found")
	}

	// Zero-rated lines are rare on Nestle invoices; whatever the standard
	// net and VAT leave of the total is treated as zero-rated.
	nonvatNet := round2(total.Sub(*vatNet).Sub(*vatAmount))
	if nonvatNet.IsNegative() {
		nonvatNet = decimal.Zero
	}

	if !parse.ApproxEqual(vatNet.Add(nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Nestle",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "5e9d739c44d64621898bd8b526a2d472",
		VATNet:            round2(*vatNet),
		NonVATNet:         nonvatNet,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
