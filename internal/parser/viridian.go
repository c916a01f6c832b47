package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Viridian. The VAT Analysis table extracts column-major: every Tax Code,
// then every VAT %, then every Net (£), then every VAT (£). Rows are
// rebuilt by index and classified standard-rated by a positive rate or a T1
// tax code.

var (
	viridianDeliveryRE  = regexp.MustCompile(`(?is)Delivery Address\s*(.+?)\s*Qty\s+Code`)
	viridianInvoiceNoRE = regexp.MustCompile(`(?i)Invoice\s+No:\s*([A-Z0-9-]+)`)
	viridianDateRE      = regexp.MustCompile(`(?i)Invoice\s+Date:\s*([0-9]{2}/[0-9]{2}/[0-9]{4})`)
	viridianTermsRE     = regexp.MustCompile(`(?i)Terms:\s*([0-9]+)\s*days`)
	viridianTotalRE     = regexp.MustCompile(`(?i)Total:\s*([0-9.,]+)`)
	viridianNetListRE   = regexp.MustCompile(`(?i)Net \(£\)\s*([0-9.,]+)`)
	viridianVATListRE   = regexp.MustCompile(`(?i)VAT \(£\)\s*([0-9.,]+)`)
	viridianSectionEnd  = regexp.MustCompile(`(?i)^Terms:|^Goods Net:|^Delivery:|^Order Net:|^Total:`)
	viridianColumnRE    = regexp.MustCompile(`^Tax Code$|^VAT %$|^Net \(£\)$|^VAT \(£\)$`)
)

// viridianColumn returns the lines under the given column heading, stopping
// at the next heading.
func viridianColumn(section []string, label string) []string {
	for i, line := range section {
		if !strings.EqualFold(line, label) {
			continue
		}
		var values []string
		for _, nxt := range section[i+1:] {
			if viridianColumnRE.MatchString(nxt) {
				break
			}
			values = append(values, nxt)
		}
		return values
	}
	return nil
}

func viridianVATAnalysis(text string) (vatNet, nonvatNet, vatAmount *decimal.Decimal) {
	lines := textLines(text)
	start := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), "vat analysis") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil, nil
	}

	var section []string
	for _, line := range lines[start+1:] {
		if viridianSectionEnd.MatchString(line) {
			break
		}
		section = append(section, line)
	}

	taxCodes := viridianColumn(section, "Tax Code")
	vatRates := viridianColumn(section, "VAT %")
	netValues := viridianColumn(section, "Net (£)")
	vatValues := viridianColumn(section, "VAT (£)")

	vn, nn, va := decimal.Zero, decimal.Zero, decimal.Zero
	for i, raw := range netValues {
		net := parse.Money(raw)
		if net == nil {
			continue
		}
		var rate *decimal.Decimal
		if i < len(vatRates) {
			rate = parse.Money(vatRates[i])
		}
		code := ""
		if i < len(taxCodes) {
			code = taxCodes[i]
		}
		if (rate != nil && rate.IsPositive()) || strings.HasPrefix(strings.ToUpper(code), "T1") {
			vn = vn.Add(*net)
		} else {
			nn = nn.Add(*net)
		}
	}
	for _, raw := range vatValues {
		if v := parse.Money(raw); v != nil {
			va = va.Add(*v)
		}
	}

	vn, nn, va = round2(vn), round2(nn), round2(va)
	return &vn, &nn, &va
}

// viridianSum sums all values captured by the label pattern across the text.
func viridianSum(text string, re *regexp.Regexp) *decimal.Decimal {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, m := range matches {
		if v := parse.Money(m[1]); v != nil {
			sum = sum.Add(*v)
		}
	}
	sum = round2(sum)
	return &sum
}

// ParseViridian extracts a Viridian invoice.
func (s *Set) ParseViridian(text string) *invoice.Record {
	var warnings []string

	postcode := ""
	if m := viridianDeliveryRE.FindStringSubmatch(text); m != nil {
		postcode = parse.FindDeliveryPostcode(m[1], s.accounts)
	}
	if postcode == "" {
		postcode = parse.FindDeliveryPostcode(text, s.accounts)
	}
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, viridianInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}
	invoiceDate := dateOrEpoch(firstGroup(text, viridianDateRE), &warnings)
	termsDays := 30
	if raw := firstGroup(text, viridianTermsRE); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			termsDays = n
		}
	}
	dueDate := datePlusDays(invoiceDate, termsDays)

	vatNet, nonvatNet, vatAmount := viridianVATAnalysis(text)
	if vatNet == nil || nonvatNet == nil || vatAmount == nil {
		vatNet = viridianSum(text, viridianNetListRE)
		vatAmount = viridianSum(text, viridianVATListRE)
		nonvatNet = nil
	}

	total := moneyGroup(text, viridianTotalRE)
	if total == nil {
		warnings = append(warnings, "Total amount not found")
		total = &decimal.Zero
	}
	if vatNet == nil {
		warnings = append(warnings, "VAT net amount not found")
		vatNet = &decimal.Zero
	}
	if vatAmount == nil {
		warnings = append(warnings, "VAT amount not found")
		vatAmount = &decimal.Zero
	}
	if nonvatNet == nil {
		nn := round2(total.Sub(*vatNet).Sub(*vatAmount))
		if nn.IsNegative() {
			nn = decimal.Zero
		}
		nonvatNet = &nn
	}

	if !parse.ApproxEqual(vatNet.Add(*nonvatNet).Add(*vatAmount), *total) {
		warnings = append(warnings, "Totals do not reconcile (net + vat != total)")
	}

	rec := &invoice.Record{
		Supplier:          "Viridian",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		ContactID:         "36ee5838c7a54c799c2cf60c667b41b0",
		VATNet:            round2(*vatNet),
		NonVATNet:         round2(*nonvatNet),
		VATAmount:         round2(*vatAmount),
		Total:             round2(*total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}
