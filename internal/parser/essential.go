package parser

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Essential Trading. The only extractor with a fatal field: a missing
// invoice date aborts the parse instead of falling back to the epoch
// sentinel, because Essential documents without a date have always turned
// out to be statements rather than invoices.

// ErrEssentialDate is returned when no invoice date can be extracted.
var ErrEssentialDate = errors.New("Essential invoice date not found")

var (
	essentialInvoiceNoRE = regexp.MustCompile(`(?i)Invoice\s*No\.?\s*:?\s*([A-Z0-9\-/]+)`)
	essentialDateRE      = regexp.MustCompile(`(?i)Invoice\s*Date\s*:?\s*([0-9]{1,2}/[0-9]{1,2}/[0-9]{2,4})`)
	essentialOrderNetRE  = regexp.MustCompile(`(?i)Order\s*Net\s*[:£]?\s*([0-9,]+\.\d{2})`)
	essentialOrderVATRE  = regexp.MustCompile(`(?i)VAT\s*[:£]?\s*([0-9,]+\.\d{2})`)
	essentialTotalRE     = regexp.MustCompile(`(?i)Total\s*[:£]?\s*([0-9,]+\.\d{2})`)
)

// essentialVATAnalysis pulls the rate rows out of the "Net (£)" / "VAT (£)"
// column blocks. Row order in the analysis is fixed: zero-rated first, then
// standard-rated, so the values are picked by position.
func essentialVATAnalysis(text string) (vatNet, nonvatNet, vatAmount *decimal.Decimal) {
	start := strings.Index(text, "Net (£)")
	if start < 0 {
		return nil, nil, nil
	}
	end := strings.Index(text[start:], "VAT (£)")
	if end < 0 {
		return nil, nil, nil
	}
	end += start

	netBlock := text[start:end]
	vatBlock := text[end:]
	if cut := strings.Index(vatBlock, "VAT Analysis"); cut >= 0 {
		vatBlock = vatBlock[:cut]
	}

	netValues := parse.MoneyValues(netBlock)
	vatValues := parse.MoneyValues(vatBlock)

	if len(netValues) >= 1 {
		nonvatNet = &netValues[0]
	}
	if len(netValues) >= 2 {
		vatNet = &netValues[1]
	}
	if len(vatValues) >= 2 {
		vatAmount = &vatValues[1]
	}
	return vatNet, nonvatNet, vatAmount
}

// ParseEssential extracts an Essential Trading invoice. A document without
// an invoice date is rejected with ErrEssentialDate.
func (s *Set) ParseEssential(text string) (*invoice.Record, error) {
	invoiceDate := parse.Date(firstGroup(text, essentialDateRE))
	if invoiceDate == nil {
		return nil, ErrEssentialDate
	}

	reference := firstGroup(text, essentialInvoiceNoRE)
	if reference == "" {
		reference = invoice.UnknownReference
	}

	postcode := PostcodeIn(text)
	var account *int
	if postcode != "" {
		if code, ok := s.accounts.Account(postcode); ok {
			account = &code
		}
	}

	vatNet, nonvatNet, vatAmount := essentialVATAnalysis(text)
	orderNet := moneyGroup(text, essentialOrderNetRE)
	orderVAT := moneyGroup(text, essentialOrderVATRE)
	orderTotal := moneyGroup(text, essentialTotalRE)

	var warnings []string
	if vatNet == nil || nonvatNet == nil || vatAmount == nil {
		warnings = append(warnings, "VAT analysis missing; using order totals")
		if vatNet == nil {
			vatNet = &decimal.Zero
		}
		if nonvatNet == nil {
			nonvatNet = &decimal.Zero
		}
		if vatAmount == nil {
			if orderVAT != nil {
				vatAmount = orderVAT
			} else {
				vatAmount = &decimal.Zero
			}
		}
	}

	netTotal := round2(vatNet.Add(*nonvatNet))
	var total decimal.Decimal
	if orderTotal != nil {
		total = *orderTotal
	} else {
		total = round2(netTotal.Add(*vatAmount))
	}

	// Essential rounds line nets before summing, so the order totals can sit
	// a few pence off the VAT analysis. 0.05 absorbs that.
	if orderNet != nil && !parse.ApproxEqualTol(*orderNet, netTotal, decimal.NewFromFloat(0.05)) {
		warnings = append(warnings, "Order net does not match VAT analysis")
	}
	if orderTotal != nil && !parse.ApproxEqualTol(*orderTotal, total, decimal.NewFromFloat(0.05)) {
		warnings = append(warnings, "Order total does not reconcile")
	}

	if postcode == "" {
		warnings = append(warnings, "Deliver to postcode not found")
	}
	if account == nil {
		warnings = append(warnings, "Ledger account not mapped for postcode")
	}

	rec := &invoice.Record{
		Supplier:          "Essential Trading",
		SupplierReference: reference,
		InvoiceDate:       *invoiceDate,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: postcode,
		LedgerAccount:     account,
		VATNet:            round2(*vatNet),
		NonVATNet:         round2(*nonvatNet),
		VATAmount:         round2(*vatAmount),
		Total:             round2(total),
		Warnings:          warnings,
	}
	rec.ClampNonNegative()
	return rec, nil
}
