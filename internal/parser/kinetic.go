package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Kinetic Enterprises. The header row and value row extract separately, so
// the invoice number is matched by its SIN prefix rather than by label.

var (
	kineticInvoiceNoRE = regexp.MustCompile(`\b(SIN\d{5,10})\b`)
	kineticDateRE      = regexp.MustCompile(`(?is)Invoice Date\b.{0,80}?(\d{2}/\d{2}/\d{4})`)
	kineticNetRE       = regexp.MustCompile(`(?i)Net Total GBP\s+([\d,]+\.\d{2})`)
	kineticVATRE       = regexp.MustCompile(`(?i)VAT GBP\s+([\d,]+\.\d{2})`)
	kineticTotalRE     = regexp.MustCompile(`(?i)Total GBP\s+([\d,]+\.\d{2})`)
)

// kineticTotal returns the grand total, skipping "Net Total GBP" matches.
// RE2 has no lookbehind, so the prefix is checked on each candidate instead.
func kineticTotal(text string) *decimal.Decimal {
	for _, loc := range kineticTotalRE.FindAllStringSubmatchIndex(text, -1) {
		prefix := text[:loc[0]]
		if strings.HasSuffix(strings.ToLower(prefix), "net ") {
			continue
		}
		return parse.Money(text[loc[2]:loc[3]])
	}
	return nil
}

// ParseKinetic extracts a Kinetic Enterprises invoice.
func (s *Set) ParseKinetic(text string) *invoice.Record {
	var warnings []string

	postcode := parse.FindDeliveryPostcode(text, s.accounts)
	account := s.ledgerFor(postcode, "Delivery postcode not found", "Unknown delivery postcode", &warnings)

	reference := firstGroup(text, kineticInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, kineticDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	vatNet := moneyGroup(text, kineticNetRE)
	vatAmount := moneyGroup(text, kineticVATRE)
	total := kineticTotal(text)

	if vatNet == nil {
		vatNet = &decimal.Zero
		warnings = append(warnings, "Net total not found")
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
		Supplier:          "Kinetic Enterprises Ltd",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "3861e92a06c54fa489b540c6f9673aab",
		VATNet:            round2(*vatNet),
		NonVATNet:         decimal.Zero,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
