package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Natures Aid. The line table carries a per-line VAT % column that extracts
// as alternating rate/amount lines; when that split is recoverable it
// overrides the summary's single net figure.

var (
	naturesaidInvoiceNoRE = regexp.MustCompile(`(?i)Invoice No\.\s*([A-Z0-9-]+)`)
	naturesaidDateRE      = regexp.MustCompile(`(?i)Invoice Date\s*([0-9]{2}/[0-9]{2}/[0-9]{4})`)
	naturesaidDueRE       = regexp.MustCompile(`(?i)Payment Due By\s*([0-9]{2}/[0-9]{2}/[0-9]{4})`)
	naturesaidNetRE       = regexp.MustCompile(`(?i)Net Total\s*£?([0-9.,]+)`)
	naturesaidVATRE       = regexp.MustCompile(`(?i)VAT\s*£?([0-9.,]+)`)
	naturesaidTotalRE     = regexp.MustCompile(`(?i)Total\s*£?([0-9.,]+)`)
	naturesaidRateRE      = regexp.MustCompile(`^(0|0\.0|0\.00|20|20\.0|20\.00)$`)
)

// naturesaidVATSplit walks the lines under the "VAT %" heading, pairing each
// rate line with the next money line. Returns found=false when no pair was
// recovered.
func naturesaidVATSplit(text string) (vatNet, nonvatNet decimal.Decimal, found bool) {
	inLines := false
	var lastRate string
	for _, line := range textLines(text) {
		lower := strings.ToLower(line)
		if lower == "vat %" {
			inLines = true
			continue
		}
		if lower == "sub total" || lower == "net total" || lower == "invoice discount" {
			break
		}
		if !inLines {
			continue
		}
		if naturesaidRateRE.MatchString(line) {
			lastRate = line
			continue
		}
		if lastRate == "" {
			continue
		}
		if amount := parse.Money(line); amount != nil {
			if strings.HasPrefix(lastRate, "0") {
				nonvatNet = nonvatNet.Add(*amount)
			} else {
				vatNet = vatNet.Add(*amount)
			}
			lastRate = ""
			found = true
		}
	}
	return round2(vatNet), round2(nonvatNet), found
}

// ParseNaturesAid extracts a Natures Aid invoice.
func (s *Set) ParseNaturesAid(text string) *invoice.Record {
	var warnings []string

	postcode := PostcodeIn(text)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, naturesaidInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, naturesaidDateRE), &warnings)
	dueDate := parse.Date(firstGroup(text, naturesaidDueRE))
	if dueDate == nil {
		dueDate = datePlusDays(invoiceDate, 30)
	}

	vatNet := moneyGroup(text, naturesaidNetRE)
	vatAmount := moneyGroup(text, naturesaidVATRE)
	total := moneyGroup(text, naturesaidTotalRE)
	splitVATNet, splitNonVATNet, splitFound := naturesaidVATSplit(text)

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

	var nonvatNet decimal.Decimal
	if splitFound {
		vatNet = &splitVATNet
		nonvatNet = splitNonVATNet
	} else {
		nonvatNet = round2(total.Sub(*vatNet).Sub(*vatAmount))
		if nonvatNet.IsNegative() {
			nonvatNet = decimal.Zero
		}
	}

	if !parse.ApproxEqual(vatNet.Add(nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Natures Aid",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "4aef1b19bf73426fb4e52a5a803277e9",
		VATNet:            round2(*vatNet),
		NonVATNet:         nonvatNet,
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
