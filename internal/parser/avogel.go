package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// A.Vogel. The VAT summary extracts as stacked label/value pairs ("Zero
// Rated" / "20%" / "Sub Total:" / "VAT:" / "Total:" each followed by their
// amount a line or two later).

var (
	avogelInvoiceNoRE = regexp.MustCompile(`(?i)Invoice\s+No:\s*([0-9-]+)`)
	avogelDateRE      = regexp.MustCompile(`(?i)Date:\s*([0-9]{2}/[0-9]{2}/[0-9]{4})`)
)

func avogelRateNets(lines []string) (zeroNet, standardNet *decimal.Decimal) {
	for i, line := range lines {
		switch {
		case strings.EqualFold(line, "zero rated"):
			if v := firstMoneyIn(after(lines, i, 3)); v != nil {
				zeroNet = v
			}
		case line == "20%":
			if v := firstMoneyIn(after(lines, i, 3)); v != nil {
				standardNet = v
			}
		}
	}
	return zeroNet, standardNet
}

func avogelTotals(lines []string) (subTotal, vatAmount, total *decimal.Decimal) {
	for i, line := range lines {
		switch {
		case strings.EqualFold(line, "sub total:"):
			if v := firstMoneyIn(after(lines, i, 3)); v != nil {
				subTotal = v
			}
		case strings.EqualFold(line, "vat:"):
			if v := firstMoneyIn(after(lines, i, 3)); v != nil {
				vatAmount = v
			}
		case strings.EqualFold(line, "total:"):
			if v := firstMoneyIn(after(lines, i, 3)); v != nil {
				total = v
			}
		}
	}
	return subTotal, vatAmount, total
}

// ParseAvogel extracts an A.Vogel invoice.
func (s *Set) ParseAvogel(text string) *invoice.Record {
	var warnings []string

	postcode := parse.FindDeliveryPostcode(text, s.accounts)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, avogelInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, avogelDateRE), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	lines := textLines(text)
	zeroNet, standardNet := avogelRateNets(lines)
	subTotal, vatAmount, total := avogelTotals(lines)

	if zeroNet == nil {
		zeroNet = &decimal.Zero
	}
	if standardNet == nil {
		standardNet = &decimal.Zero
		warnings = append(warnings, "VAT net amount not found")
	}
	if vatAmount == nil {
		vatAmount = &decimal.Zero
		warnings = append(warnings, "VAT amount not found")
	}
	if total == nil && subTotal != nil {
		sum := round2(subTotal.Add(*vatAmount))
		total = &sum
	}
	if total == nil {
		sum := round2(standardNet.Add(*zeroNet).Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Total amount not found")
	}

	vatNet := round2(*standardNet)
	nonvatNet := round2(*zeroNet)

	if !parse.ApproxEqual(vatNet.Add(nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "A.Vogel",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "1cc12fd2293c4eb48365ed85ccb5f2f6",
		VATNet:            vatNet,
		NonVATNet:         nonvatNet,
		VATAmount:         *vatAmount,
		Total:             *total,
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
