package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	moneyRE     = regexp.MustCompile(`[-+]?\d{1,3}(?:,\d{3})*(?:\.\d{2})|[-+]?\d+(?:\.\d{2})`)
	moneyOnlyRE = regexp.MustCompile(`^[£$€]?\s*[-+]?(?:\d{1,3}(?:,\d{3})*|\d+)(?:\.\d{2})\s*$`)

	currencyCleaner = strings.NewReplacer("£", "", "$", "", "€", "", "GBP", "")
)

// Money parses a currency-formatted string ("1,234.56", "£118.09") to a
// decimal. Returns nil when no money-shaped token is present; absence means
// "not found", never an error, so callers can fall back or warn.
func Money(s string) *decimal.Decimal {
	s = strings.TrimSpace(currencyCleaner.Replace(s))
	if s == "" {
		return nil
	}
	m := moneyRE.FindString(s)
	if m == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

// MoneyValues returns every money-shaped token on a line, in order.
func MoneyValues(line string) []decimal.Decimal {
	var values []decimal.Decimal
	for _, m := range moneyRE.FindAllString(currencyCleaner.Replace(line), -1) {
		if v := Money(m); v != nil {
			values = append(values, *v)
		}
	}
	return values
}

// IsMoneyOnly reports whether a line holds a single money token and nothing
// else, as in the stacked label/value column layouts some PDFs extract to.
func IsMoneyOnly(line string) bool {
	return moneyOnlyRE.MatchString(strings.TrimSpace(line))
}

// StripVATRate discards a leading VAT-rate percentage that the money scanner
// captured as if it were an amount. A line like "20 161.74 32.30" is
// rate/net/vat: the first value is dropped when it is an integer no greater
// than 100 and at least three numeric tokens are present.
func StripVATRate(values []decimal.Decimal) []decimal.Decimal {
	if len(values) >= 3 && values[0].IsInteger() && values[0].LessThanOrEqual(decimal.NewFromInt(100)) {
		return values[1:]
	}
	return values
}

var defaultTolerance = decimal.RequireFromString("0.02")

// ApproxEqual reports |a-b| <= 0.02, the reconciliation tolerance used for
// all net/VAT/total cross-checks.
func ApproxEqual(a, b decimal.Decimal) bool {
	return ApproxEqualTol(a, b, defaultTolerance)
}

// ApproxEqualTol is ApproxEqual with an explicit absolute tolerance.
func ApproxEqualTol(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
