package parser

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Tonyrefail Apiary. Small single-page invoice, wholly zero-rated honey.
// The pound sign sometimes extracts as the mojibake "Â£", so the total
// pattern tolerates both forms.

var (
	tonyrefailInvoiceNoRE = regexp.MustCompile(`(?i)Invoice\s+no\s*([A-Z0-9-]+)`)
	tonyrefailDateRE      = regexp.MustCompile(`(?i)Invoice date\s*([0-9]{1,2}/[A-Za-z]{3}/[0-9]{4})`)
	tonyrefailDueRE       = regexp.MustCompile(`(?i)Due date\s*([0-9]{1,2}/[A-Za-z]{3}/[0-9]{4})`)
	tonyrefailTotalRE     = regexp.MustCompile(`(?i)Total\s*(?:Â£|£)?\s*([0-9.,]+)`)
)

// ParseTonyrefail extracts a Tonyrefail Apiary invoice.
func (s *Set) ParseTonyrefail(text string) *invoice.Record {
	var warnings []string

	postcode := PostcodeIn(text)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, tonyrefailInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, tonyrefailDateRE), &warnings)
	dueDate := parse.Date(firstGroup(text, tonyrefailDueRE))
	if dueDate == nil {
		dueDate = datePlusDays(invoiceDate, 30)
	}

	total := moneyGroup(text, tonyrefailTotalRE)
	if total == nil {
		warnings = append(warnings, "Total amount not found")
		total = &decimal.Zero
	}

	rec := &invoice.Record{
		Supplier:          "Tonyrefail Apiary",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "92cbebef85424457befc01b894ea8cf0",
		VATNet:            decimal.Zero,
		NonVATNet:         round2(*total),
		VATAmount:         decimal.Zero,
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
