package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Hunt's Food Group. One PDF often bundles several reprinted invoices, with
// continuation pages that belong to the previous invoice, so the document is
// split on the recurring supplier header before each section is parsed
// independently. The VAT Analysis table extracts column-major: all "VAT
// Rate" lines, then all "Value" lines, then all "VAT" lines.

var (
	huntsHeaderRE     = regexp.MustCompile(`Hunt's Food Group Ltd`)
	huntsDeliverRE    = regexp.MustCompile(`(?is)Deliver To\s*(.+?)\s*INVOICE`)
	huntsInvoiceNoRE  = regexp.MustCompile(`(?i)INVOICE\s*([0-9-]+)`)
	huntsTaxPointRE   = regexp.MustCompile(`(?i)Tax Point Date\s*([0-9]{1,2}\s*/\s*[0-9]{1,2}\s*/\s*[0-9]{2,4})`)
	huntsAnalysisRE   = regexp.MustCompile(`(?i)VAT Analysis`)
	huntsAnalysisEnd  = regexp.MustCompile(`(?i)BACS Payment Details|All monetary values`)
	huntsColumnStopRE = regexp.MustCompile(`(?i)^total$|^ex vat$|^amount$`)
)

// huntsVATAnalysis rebuilds the VAT Analysis rows from the column-major
// extraction: a state machine tracks which column heading was seen last and
// collects values under it, then the per-column lists are zipped by index.
func huntsVATAnalysis(text string) (vatNet, nonvatNet, vatAmount, total *decimal.Decimal) {
	start := -1
	for _, m := range huntsAnalysisRE.FindAllStringIndex(text, -1) {
		start = m[0] // last occurrence: earlier pages repeat the heading
	}
	if start < 0 {
		return nil, nil, nil, nil
	}

	section := text[start:]
	if end := huntsAnalysisEnd.FindStringIndex(section); end != nil {
		section = section[:end[0]]
	}

	lines := textLines(section)
	var rates []string
	var values, vats []decimal.Decimal
	state := ""
	for _, line := range lines {
		lower := strings.ToLower(line)
		switch lower {
		case "vat rate":
			state = "rates"
			continue
		case "value":
			state = "values"
			continue
		case "vat":
			state = "vat"
			continue
		}
		if huntsColumnStopRE.MatchString(line) {
			state = ""
			continue
		}
		switch state {
		case "rates":
			if strings.Contains(lower, "zero") || strings.Contains(line, "%") {
				rates = append(rates, line)
			}
		case "values":
			if v := parse.Money(line); v != nil {
				values = append(values, *v)
			}
		case "vat":
			if v := parse.Money(line); v != nil {
				vats = append(vats, *v)
			}
		}
	}

	vn, nn := decimal.Zero, decimal.Zero
	for i, val := range values {
		rate := ""
		if i < len(rates) {
			rate = rates[i]
		}
		if strings.Contains(strings.ToLower(rate), "zero") || strings.Contains(rate, "0.00") {
			nn = nn.Add(val)
		} else {
			vn = vn.Add(val)
		}
	}
	vn, nn = round2(vn), round2(nn)
	vatNet, nonvatNet = &vn, &nn

	if len(vats) > 0 {
		sum := decimal.Zero
		for _, v := range vats {
			sum = sum.Add(v)
		}
		sum = round2(sum)
		vatAmount = &sum
	}

	total = moneyAfterLabel(lines, "Amount", 5)
	if total == nil {
		total = moneyAfterLabel(lines, "Total Amount", 5)
	}
	if total == nil {
		total = moneyAfterLabel(lines, "Total", 5)
	}
	return vatNet, nonvatNet, vatAmount, total
}

func (s *Set) huntsSection(text string) *invoice.Record {
	var warnings []string
	isCredit := creditRE.MatchString(text)

	postcode := ""
	if m := huntsDeliverRE.FindStringSubmatch(text); m != nil {
		postcode = PostcodeIn(m[1])
	}
	if postcode == "" {
		postcode = PostcodeIn(text)
	}
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, huntsInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}

	rawDate := firstGroup(text, huntsTaxPointRE)
	invoiceDate := dateOrEpoch(strings.ReplaceAll(rawDate, " ", ""), &warnings)
	dueDate := datePlusDays(invoiceDate, 30)

	vatNet, nonvatNet, vatAmount, total := huntsVATAnalysis(text)
	if vatNet == nil {
		warnings = append(warnings, "VAT net amount not found")
		vatNet = &decimal.Zero
	}
	if nonvatNet == nil {
		nonvatNet = &decimal.Zero
	}
	if vatAmount == nil {
		warnings = append(warnings, "VAT amount not found")
		vatAmount = &decimal.Zero
	}
	if total == nil {
		sum := round2(vatNet.Add(*nonvatNet).Add(*vatAmount))
		total = &sum
		warnings = append(warnings, "Total amount not found")
	}

	if !parse.ApproxEqual(vatNet.Add(*nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Hunts",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		IsCredit:          isCredit,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "76ef2eec964848e2bae7e9d8fe15a633",
		VATNet:            *vatNet,
		NonVATNet:         *nonvatNet,
		VATAmount:         *vatAmount,
		Total:             *total,
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}

// ParseHunts splits a document on the recurring supplier header and parses
// each logical invoice independently. Continuation pages carry no header of
// their own and stay merged with the invoice they belong to.
func (s *Set) ParseHunts(text string) []*invoice.Record {
	if text == "" {
		return nil
	}
	normalized := strings.ReplaceAll(text, "Hunt’s", "Hunt's")
	starts := huntsHeaderRE.FindAllStringIndex(normalized, -1)
	if len(starts) == 0 {
		return []*invoice.Record{s.huntsSection(normalized)}
	}
	var records []*invoice.Record
	for i, loc := range starts {
		end := len(normalized)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		section := strings.TrimSpace(normalized[loc[0]:end])
		if section != "" {
			records = append(records, s.huntsSection(section))
		}
	}
	return records
}
