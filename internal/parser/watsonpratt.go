package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Watson & Pratt. Mostly zero-rated produce with a standard-rated delivery
// charge, so the standard net is rebuilt by summing the 20% line items. The
// invoice number is matched by its IN- prefix: a generic pattern after
// "Invoice Number" grabs the postcode from the merged two-column layout.

var (
	watsonprattInvoiceNoRE = regexp.MustCompile(`(IN-\d+)`)
	watsonprattDateRE      = regexp.MustCompile(`Invoice Date\s*([0-9]{1,2}\s+[A-Za-z]{3}\s+[0-9]{4})`)
	watsonprattDueRE       = regexp.MustCompile(`Due Date:\s*([0-9]{1,2}\s+[A-Za-z]{3}\s+[0-9]{4})`)
	watsonprattSubtotalRE  = regexp.MustCompile(`(?i)Subtotal\s*([0-9.,]+)`)
	watsonprattVATRE       = regexp.MustCompile(`(?i)Total VAT\s*20%?\s*([0-9.,]+)`)
	watsonprattTotalRE     = regexp.MustCompile(`(?i)Invoice Total GBP\s*([0-9.,]+)`)
	watsonprattSplitRE     = regexp.MustCompile(`(?i)Subtotal`)
	watsonprattRatedRE     = regexp.MustCompile(`20%\s+([\d.,]+)`)
)

// watsonprattVATNet sums the 20%-rated line amounts before the Subtotal
// line; typically just the delivery charge.
func watsonprattVATNet(text string) decimal.Decimal {
	items := text
	if loc := watsonprattSplitRE.FindStringIndex(text); loc != nil {
		items = text[:loc[0]]
	}
	sum := decimal.Zero
	for _, m := range watsonprattRatedRE.FindAllStringSubmatch(items, -1) {
		if v := parse.Money(m[1]); v != nil {
			sum = sum.Add(*v)
		}
	}
	return round2(sum)
}

// ParseWatsonPratt extracts a Watson & Pratt invoice.
func (s *Set) ParseWatsonPratt(text string) *invoice.Record {
	var warnings []string

	postcode := parse.FindDeliveryPostcode(text, s.accounts)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, watsonprattInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, watsonprattDateRE), &warnings)
	dueDate := parse.Date(firstGroup(text, watsonprattDueRE))
	if dueDate == nil {
		dueDate = datePlusDays(invoiceDate, 30)
	}

	subtotal := moneyGroup(text, watsonprattSubtotalRE)
	vatAmount := moneyGroup(text, watsonprattVATRE)
	total := moneyGroup(text, watsonprattTotalRE)

	if subtotal == nil {
		warnings = append(warnings, "Subtotal not found")
		subtotal = &decimal.Zero
	}
	if vatAmount == nil {
		warnings = append(warnings, "VAT amount not found")
		vatAmount = &decimal.Zero
	}
	if total == nil {
		sum := round2(subtotal.Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Total amount not found")
	}

	vatNet := watsonprattVATNet(text)
	nonvatNet := round2(subtotal.Sub(vatNet))
	if nonvatNet.IsNegative() {
		nonvatNet = decimal.Zero
	}

	if !parse.ApproxEqual(vatNet.Add(nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Watson & Pratt",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "de28527c07f842b3a12fd9d4298f7055",
		VATNet:            vatNet,
		NonVATNet:         nonvatNet,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
