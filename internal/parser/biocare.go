package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// BioCare. Labels run together in the extracted text ("Invoice
// No.BC01459342") and dates come in the "16. January 2026" form.

var (
	biocareDeliveryRE  = regexp.MustCompile(`(?is)Delivery Address\b(.+)`)
	biocareInvoiceNoRE = regexp.MustCompile(`(?i)Invoice No\.?\s*(BC\d{6,12})`)
	biocareDateRE      = regexp.MustCompile(`(?i)Invoice Date\s+(\d{1,2}\.\s+\w+\s+\d{4})`)
	biocareGoodsRE     = regexp.MustCompile(`(?i)GOODS SUBTOTAL\s+([\d,]+\.\d{2})`)
	biocareZeroRE      = regexp.MustCompile(`(?i)TOTAL GOODS\s*\(0%\s*VAT\)\s+([\d,]+\.\d{2})`)
	biocareVATRE       = regexp.MustCompile(`(?i)TOTAL VAT\s+([\d,]+\.\d{2})`)
	biocareTotalRE     = regexp.MustCompile(`(?i)INVOICE TOTAL\s+([\d,]+\.\d{2})`)
)

// biocarePostcode prefers the Delivery Address section; the billing address
// above it carries a different shop's postcode.
func (s *Set) biocarePostcode(text string) string {
	if m := biocareDeliveryRE.FindStringSubmatch(text); m != nil {
		if pc := PostcodeIn(m[1]); pc != "" {
			return pc
		}
	}
	for _, m := range parse.PostcodeRE.FindAllStringSubmatch(text, -1) {
		pc := parse.NormalizePostcode(m[1] + m[2])
		if pc != "" && s.accounts.Knows(pc) {
			return pc
		}
	}
	return ""
}

// ParseBiocare extracts a BioCare invoice.
func (s *Set) ParseBiocare(text string) *invoice.Record {
	var warnings []string

	postcode := s.biocarePostcode(text)
	account := s.ledgerFor(postcode, "Delivery postcode not found", "Unknown delivery postcode", &warnings)

	reference := firstGroup(text, biocareInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, biocareDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	vatNet := moneyGroup(text, biocareGoodsRE)
	nonvatNet := moneyGroup(text, biocareZeroRE)
	vatAmount := moneyGroup(text, biocareVATRE)
	total := moneyGroup(text, biocareTotalRE)

	if vatNet == nil {
		vatNet = &decimal.Zero
		warnings = append(warnings, "VAT net (GOODS SUBTOTAL) not found")
	}
	if nonvatNet == nil {
		nonvatNet = &decimal.Zero
	}
	if vatAmount == nil {
		vatAmount = &decimal.Zero
		warnings = append(warnings, "VAT amount not found")
	}
	if total == nil {
		sum := round2(vatNet.Add(*nonvatNet).Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Invoice total not found")
	}

	if !parse.ApproxEqual(vatNet.Add(*nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "BioCare",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "b2be8e123f9446dab93d719c6a69ec05",
		VATNet:            round2(*vatNet),
		NonVATNet:         round2(*nonvatNet),
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
