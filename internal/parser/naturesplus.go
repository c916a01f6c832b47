package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Natures Plus. The invoice carries both a Bill To and a Ship To address,
// and both postcodes map to shops, so the Ship To block is isolated before
// the postcode scan. Scanning the whole document would land on Bill To.

var (
	naturesplusShipToRE    = regexp.MustCompile(`(?is)Ship To(.+?)(?:Invoice Details|Item\s+Material)`)
	naturesplusInvoiceNoRE = regexp.MustCompile(`(?i)Invoice Number\s*([0-9-]+)`)
	naturesplusDateRE      = regexp.MustCompile(`(?i)Invoice Date\s*([0-9]{1,2}\s+[A-Za-z]+\s+[0-9]{4})`)
	naturesplusNetRE       = regexp.MustCompile(`(?i)Total Net Ext\s*([0-9.,]+)`)
	naturesplusVATRE       = regexp.MustCompile(`(?i)Total Tax/VAT\s*([0-9.,]+)`)
	naturesplusTotalRE     = regexp.MustCompile(`(?i)Grand Total\s*([0-9.,]+)`)
)

func (s *Set) naturesplusPostcode(text string) string {
	if m := naturesplusShipToRE.FindStringSubmatch(text); m != nil {
		if pc := parse.FindDeliveryPostcode(m[1], s.accounts); pc != "" {
			return pc
		}
	}
	return parse.FindDeliveryPostcode(text, s.accounts)
}

// ParseNaturesPlus extracts a Natures Plus invoice.
func (s *Set) ParseNaturesPlus(text string) *invoice.Record {
	var warnings []string

	postcode := s.naturesplusPostcode(text)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, naturesplusInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, naturesplusDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	vatNet := moneyGroup(text, naturesplusNetRE)
	vatAmount := moneyGroup(text, naturesplusVATRE)
	total := moneyGroup(text, naturesplusTotalRE)

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

	nonvatNet := round2(total.Sub(*vatNet).Sub(*vatAmount))
	if nonvatNet.IsNegative() {
		nonvatNet = decimal.Zero
	}

	if !parse.ApproxEqual(vatNet.Add(nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Natures Plus",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "011268104d684327bb5707c8886e7339",
		VATNet:            round2(*vatNet),
		NonVATNet:         nonvatNet,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
