package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// CLF invoices and credit memos. The layout stacks a "VAT Identifier"
// summary table (S/Z rate rows) above a totals block whose labels and values
// frequently extract as separate line runs, so the breakdown is recovered
// from several independent sources and cross-checked.

var (
	clfDateRE = regexp.MustCompile(`\b([0-9]{1,2}[-/.][0-9]{1,2}[-/.][0-9]{2,4})\b`)

	clfDeliverBlockRE = regexp.MustCompile(`(?is)Deliver\s*To\s*:?.*?\n(.+?)(?:\n\s*\n|Bill\s*To|Invoice|Purchase|Order|VAT|Total|Amount|$)`)

	clfInvoiceNoRE   = regexp.MustCompile(`(?i)Invoice\s*(?:Number|No\.?|#)\s*:?\s*([A-Z0-9\-/]+)`)
	clfInvNoRE       = regexp.MustCompile(`(?i)Inv\s*No\.?\s*:?\s*([A-Z0-9\-/]+)`)
	clfCreditMemoRE  = regexp.MustCompile(`(?i)Credit\s*Memo\s*(?:Number|No\.?|#)\s*:?\s*([A-Z0-9\-/]+)`)
	clfCreditNoteRE  = regexp.MustCompile(`(?i)Credit\s*Note\s*(?:Number|No\.?|#)\s*:?\s*([A-Z0-9\-/]+)`)
	clfPostingDateRE = regexp.MustCompile(`(?i)(?:Posting\s*Date|Posting/Tax\s*Point\s*Date|Posting\s*Tax\s*Point\s*Dat)\s*:?\s*([0-9]{1,2}[-/.][0-9]{1,2}[-/.][0-9]{2,4})`)
	clfPostingLblRE  = regexp.MustCompile(`(?i)Posting\s*Date|Posting/Tax\s*Point\s*Date|Posting\s*Tax\s*Point\s*Dat`)
	clfInvDateRE     = regexp.MustCompile(`(?i)Invoice\s*Date\s*:?\s*([A-Z0-9\-/ ]+)`)
	clfPostDateRE    = regexp.MustCompile(`(?i)Posting\s*Date\s*:?\s*([A-Z0-9\-/ ]+)`)
	clfPostTaxRE     = regexp.MustCompile(`(?i)Posting/Tax\s*Point\s*Date\s*:?\s*([A-Z0-9\-/ ]+)`)
	clfPostTaxCutRE  = regexp.MustCompile(`(?i)Posting\s*Tax\s*Point\s*Dat\s*:?\s*([A-Z0-9\-/ ]+)`)
	clfBareDateRE    = regexp.MustCompile(`(?i)Date\s*:?\s*([0-9]{1,2}[-/][0-9]{1,2}[-/][0-9]{2,4})`)
	clfDotDateRE     = regexp.MustCompile(`\b\d{1,2}\.\s*[A-Za-z]+\s+\d{4}\b`)
	clfDueDateRE     = regexp.MustCompile(`(?i)Due\s*Date\s*:?\s*([A-Z0-9\-/ ]+)`)
	clfPaymentDueRE  = regexp.MustCompile(`(?i)Payment\s*Due\s*:?\s*([A-Z0-9\-/ ]+)`)
	clfTermsRE       = regexp.MustCompile(`(?i)Net\s*(\d{1,3})`)

	clfVATIdentRE   = regexp.MustCompile(`(?i)VAT\s*Identifier`)
	clfRateRowRE    = regexp.MustCompile(`^[SZ]\b`)
	clfRateCodeRE   = regexp.MustCompile(`\b([SZ])\b`)
	clfTotalInclRE  = regexp.MustCompile(`(?i)Total\s*GBP\s*Incl\.?\s*VAT`)
	clfTotalExclRE  = regexp.MustCompile(`(?i)Total\s*GBP\s*Excl\.?\s*VAT`)
	clfVATAmountRE  = regexp.MustCompile(`(?i)VAT\s*Amount|\d{1,2}%\s*VAT`)
	clfSectTotalRE  = regexp.MustCompile(`(?i)^Total\b`)
	clfTotalGBPRE   = regexp.MustCompile(`(?i)Total\s*GBP\b`)
	clfDeliverLblRE = regexp.MustCompile(`(?i)Deliver\s*To`)
)

func clfAmount(text string, labels ...string) *decimal.Decimal {
	for _, label := range labels {
		re := regexp.MustCompile(`(?i)` + label + `\s*[:£$]?\s*([\d,]+\.\d{2})`)
		if m := re.FindStringSubmatch(text); m != nil {
			return parse.Money(m[1])
		}
	}
	return nil
}

func clfInvoiceDate(text string) string {
	if m := clfPostingDateRE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	// Posting-date label and value merged onto one ragged line.
	for _, line := range textLines(text) {
		if clfPostingLblRE.MatchString(line) {
			if m := clfDateRE.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}
	if v := firstGroup(text, clfInvDateRE, clfPostDateRE, clfPostTaxRE, clfPostTaxCutRE, clfBareDateRE); v != "" {
		if m := clfDateRE.FindStringSubmatch(v); m != nil {
			return m[1]
		}
		return v
	}
	return clfDotDateRE.FindString(text)
}

// clfVATBreakdown walks the VAT Identifier section's S/Z rate rows.
func clfVATBreakdown(text string) (vatNet, nonvatNet, vatAmount *decimal.Decimal) {
	lines := textLines(text)
	start := 0
	for i, line := range lines {
		if clfVATIdentRE.MatchString(line) {
			start = i + 1
			break
		}
	}

	for _, line := range lines[start:] {
		if !clfRateRowRE.MatchString(line) {
			continue
		}
		values := parse.StripVATRate(parse.MoneyValues(line))
		if len(values) < 2 {
			continue
		}
		if strings.HasPrefix(line, "S") {
			vatNet = &values[0]
			vatAmount = &values[len(values)-1]
		} else if strings.HasPrefix(line, "Z") {
			nonvatNet = &values[0]
		}
	}

	if vatNet == nil && nonvatNet == nil {
		// Looser pass: any line carrying a lone S/Z token; take the last
		// value, summing across rows.
		vatTotal, nonvatTotal := decimal.Zero, decimal.Zero
		vatFound, nonvatFound := false, false
		for _, line := range lines {
			code := clfRateCodeRE.FindStringSubmatch(line)
			if code == nil {
				continue
			}
			values := parse.MoneyValues(line)
			if len(values) == 0 {
				continue
			}
			amount := values[len(values)-1]
			if code[1] == "S" {
				vatTotal = vatTotal.Add(amount)
				vatFound = true
			} else {
				nonvatTotal = nonvatTotal.Add(amount)
				nonvatFound = true
			}
		}
		if vatFound {
			vatNet = &vatTotal
		}
		if nonvatFound {
			nonvatNet = &nonvatTotal
		}
	}
	return vatNet, nonvatNet, vatAmount
}

// clfTotalsBlock recovers the Excl/VAT/Incl totals. Labels and values are
// matched per-line first; when the layout extracted all labels followed by
// all values, the trailing money-only lines are mapped to labels in order.
func clfTotalsBlock(text string) (totalExcl, vatAmount, totalIncl *decimal.Decimal) {
	lines := textLines(text)

	nextNumeric := func(idx int) *decimal.Decimal {
		for _, cand := range after(lines, idx, 5) {
			if parse.IsMoneyOnly(cand) {
				values := parse.MoneyValues(cand)
				if len(values) > 0 {
					return &values[0]
				}
			}
		}
		return nil
	}

	exclIdx, vatIdx, inclIdx := -1, -1, -1
	for i, line := range lines {
		switch {
		case totalIncl == nil && clfTotalInclRE.MatchString(line):
			totalIncl = nextNumeric(i)
			inclIdx = i
		case vatAmount == nil && clfVATAmountRE.MatchString(line):
			vatAmount = nextNumeric(i)
			vatIdx = i
		case totalExcl == nil && clfTotalExclRE.MatchString(line):
			totalExcl = nextNumeric(i)
			exclIdx = i
		}
	}

	maxIdx := -1
	for _, idx := range []int{exclIdx, vatIdx, inclIdx} {
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	if maxIdx >= 0 {
		var numeric []decimal.Decimal
		for _, line := range after(lines, maxIdx, 8) {
			if parse.IsMoneyOnly(line) {
				if values := parse.MoneyValues(line); len(values) > 0 {
					numeric = append(numeric, values[0])
				}
			}
		}
		switch {
		case len(numeric) >= 3:
			totalExcl, vatAmount, totalIncl = &numeric[0], &numeric[1], &numeric[2]
		case len(numeric) == 2:
			totalExcl, vatAmount = &numeric[0], &numeric[1]
		case len(numeric) == 1:
			totalExcl = &numeric[0]
		}
	}

	if vatAmount == nil && totalExcl != nil && totalIncl != nil {
		derived := round2(totalIncl.Sub(*totalExcl))
		vatAmount = &derived
	}
	return totalExcl, vatAmount, totalIncl
}

func clfVATSectionTotal(text string) *decimal.Decimal {
	inSection := false
	for _, line := range textLines(text) {
		if clfVATIdentRE.MatchString(line) {
			inSection = true
		}
		if inSection && clfSectTotalRE.MatchString(line) {
			if values := parse.MoneyValues(line); len(values) > 0 {
				return &values[0]
			}
		}
	}
	return nil
}

func clfTotalInclVAT(text string) *decimal.Decimal {
	inSection := false
	for _, line := range textLines(text) {
		if clfVATIdentRE.MatchString(line) {
			inSection = true
		}
		if clfTotalInclRE.MatchString(line) {
			if values := parse.MoneyValues(line); len(values) > 0 {
				return &values[0]
			}
		}
		if inSection && clfSectTotalRE.MatchString(line) {
			if values := parse.MoneyValues(line); len(values) > 0 {
				return &values[0]
			}
		}
	}
	return nil
}

func clfTotalGBP(text string) *decimal.Decimal {
	for _, line := range textLines(text) {
		if clfTotalGBPRE.MatchString(line) {
			if values := parse.MoneyValues(line); len(values) > 0 {
				return &values[0]
			}
		}
	}
	return nil
}

// clfPostcode resolves the delivery postcode: labeled Deliver To block
// first, then any known shop postcode anywhere, then a bounded line window
// under the Deliver To label.
func (s *Set) clfPostcode(text string) string {
	if m := clfDeliverBlockRE.FindStringSubmatch(text); m != nil {
		if pc := PostcodeIn(m[1]); pc != "" {
			return pc
		}
	}
	squashed := strings.ToUpper(regexp.MustCompile(`\s+`).ReplaceAllString(text, ""))
	for known := range s.accounts {
		if strings.Contains(squashed, strings.ReplaceAll(known, " ", "")) {
			return known
		}
	}
	lines := textLines(text)
	for i, line := range lines {
		if !clfDeliverLblRE.MatchString(line) {
			continue
		}
		for _, cand := range lines[i:min(i+8, len(lines))] {
			if pc := PostcodeIn(cand); pc != "" {
				return pc
			}
		}
	}
	return ""
}

// PostcodeIn returns the first normalized postcode-shaped substring, or "".
func PostcodeIn(text string) string {
	if m := parse.PostcodeRE.FindStringSubmatch(text); m != nil {
		return parse.NormalizePostcode(m[1] + m[2])
	}
	return ""
}

// ParseCLF extracts a CLF invoice or credit memo.
func (s *Set) ParseCLF(text string) *invoice.Record {
	var warnings []string
	isCredit := creditRE.MatchString(text)

	postcode := s.clfPostcode(text)
	account := s.ledgerFor(postcode, "Deliver To postcode not found", "Unknown Deliver To postcode", &warnings)

	reference := firstGroup(text, clfCreditMemoRE, clfCreditNoteRE)
	if reference == "" {
		reference = firstGroup(text, clfInvoiceNoRE, clfInvNoRE)
	}
	if reference == "" {
		reference = invoice.UnknownReference
	}

	invoiceDate := dateOrEpoch(clfInvoiceDate(text), &warnings)

	var dueDate *time.Time
	if raw := firstGroup(text, clfDueDateRE, clfPaymentDueRE); raw != "" {
		dueDate = parse.Date(raw)
	}
	if dueDate == nil {
		if m := clfTermsRE.FindStringSubmatch(text); m != nil {
			if days, err := strconv.Atoi(m[1]); err == nil {
				dueDate = datePlusDays(invoiceDate, days)
			}
		}
	}

	vatNet := clfAmount(text, `VAT Net`, `VATable`, `Net Amount`, `Net`)
	nonvatNet := clfAmount(text, `Non-VAT`, `Non VAT`, `Zero Rated`, `Non-Vatable`)
	vatAmount := clfAmount(text, `VAT Amount`, `VAT`)

	totalExcl, blockVAT, totalIncl := clfTotalsBlock(text)
	if totalIncl == nil {
		totalIncl = clfTotalInclVAT(text)
	}
	if totalIncl == nil {
		totalIncl = clfVATSectionTotal(text)
	}
	totalGBP := clfTotalGBP(text)
	if vatAmount == nil && blockVAT != nil {
		vatAmount = blockVAT
	}

	// No per-rate split found: classify the whole excl-VAT total by whether
	// any VAT was actually charged.
	if vatNet == nil && nonvatNet == nil && totalExcl != nil {
		if vatAmount == nil && totalIncl != nil {
			derived := round2(totalIncl.Sub(*totalExcl))
			vatAmount = &derived
		}
		zero := decimal.Zero
		if vatAmount != nil && vatAmount.IsPositive() {
			vatNet, nonvatNet = totalExcl, &zero
		} else {
			vatNet, nonvatNet = &zero, totalExcl
		}
	}

	// Paired totals are self-checking; a lone VAT-amount label match is not.
	if totalExcl != nil && totalIncl != nil && vatAmount != nil &&
		!parse.ApproxEqual(*vatAmount, totalIncl.Sub(*totalExcl)) {
		derived := round2(totalIncl.Sub(*totalExcl))
		vatAmount = &derived
		warnings = append(warnings, "VAT amount overridden from totals")
	}

	if vatNet == nil || nonvatNet == nil || vatAmount == nil {
		bVATNet, bNonvatNet, bVATAmount := clfVATBreakdown(text)
		if vatNet == nil {
			vatNet = bVATNet
		}
		if nonvatNet == nil {
			nonvatNet = bNonvatNet
		}
		if vatAmount == nil {
			vatAmount = bVATAmount
		}
	}

	// Zero-VAT fallback: no S/Z rows anywhere but a bare Total GBP exists.
	if vatNet == nil && nonvatNet == nil && vatAmount == nil && totalGBP != nil {
		zero := decimal.Zero
		vatNet, vatAmount = &zero, &zero
		nonvatNet = totalGBP
		totalIncl = totalGBP
	}

	if vatNet == nil {
		vatNet = &decimal.Zero
		warnings = append(warnings, "VAT net amount not found")
	}
	if nonvatNet == nil {
		nonvatNet = &decimal.Zero
		warnings = append(warnings, "Non-VAT net amount not found")
	}
	if vatAmount == nil {
		vatAmount = &decimal.Zero
		warnings = append(warnings, "VAT amount not found")
	}

	subtotal := vatNet.Add(*nonvatNet).Add(*vatAmount)
	total := subtotal
	if totalIncl != nil {
		total = *totalIncl
	} else if totalGBP != nil {
		total = *totalGBP
	}

	switch {
	case totalIncl == nil && totalGBP == nil:
		warnings = append(warnings, "Total GBP Incl. VAT not found")
	case totalIncl != nil && !parse.ApproxEqual(subtotal, *totalIncl):
		warnings = append(warnings, "Total GBP Incl. VAT does not reconcile")
	}
	if totalExcl != nil && !parse.ApproxEqual(vatNet.Add(*nonvatNet), *totalExcl) {
		warnings = append(warnings, "Total GBP Excl. VAT does not reconcile")
	}
	if blockVAT != nil && !parse.ApproxEqual(*vatAmount, *blockVAT) {
		warnings = append(warnings, "VAT Amount does not reconcile")
	}

	vn, nn, va, tt := *vatNet, *nonvatNet, *vatAmount, total
	if isCredit {
		vn, nn, va, tt = vn.Abs(), nn.Abs(), va.Abs(), tt.Abs()
		// A wholly zero-rated credit legitimately has no VAT fields; the
		// "not found" warnings would be noise.
		if vn.IsZero() && va.IsZero() && nn.IsPositive() {
			warnings = dropWarnings(warnings, "VAT net amount not found", "VAT amount not found")
		}
	}

	rec := &invoice.Record{
		Supplier:          "CLF",
		SupplierReference: reference,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
		Description:       invoice.DefaultDescription,
		IsCredit:          isCredit,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		VATNet:            vn,
		NonVATNet:         nn,
		VATAmount:         va,
		Total:             tt,
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec
}

func dropWarnings(warnings []string, drop ...string) []string {
	kept := warnings[:0]
	for _, w := range warnings {
		skip := false
		for _, d := range drop {
			if w == d {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, w)
		}
	}
	return kept
}
