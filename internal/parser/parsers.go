// Package parser holds the per-supplier invoice extraction engine: one
// standalone extractor per supplier document layout, sharing only the small
// primitives in internal/parse. Tie-breaks and fallback orders differ enough
// between suppliers that a shared base type would accumulate special cases
// faster than it removed duplication, so each extractor stands alone.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/ledger"
	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

// Set bundles the extractors with the injected reference tables. Parsing is
// pure: a Set is safe for concurrent use and an extractor called twice on
// the same text yields identical output.
type Set struct {
	accounts ledger.Table
	keywords ledger.KeywordTable
}

// NewSet builds the extractor set around the given postcode→account and
// customer-ref keyword tables.
func NewSet(accounts ledger.Table, keywords ledger.KeywordTable) *Set {
	return &Set{accounts: accounts, keywords: keywords}
}

var creditRE = regexp.MustCompile(`(?i)Credit\s*(?:Memo|Note)`)

// textLines splits into trimmed, non-empty lines.
func textLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// firstGroup returns capture group 1 of the first pattern that matches,
// trimmed. Ordered "first pattern wins" is the control flow every extractor
// uses for label-anchored fields.
func firstGroup(text string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// moneyAfterLabel finds a line equal (case-insensitively) to label and
// returns the first money value on one of the next few lines. Handles the
// stacked layout where a PDF's label column extracts above its value column.
func moneyAfterLabel(lines []string, label string, window int) *decimal.Decimal {
	for i, line := range lines {
		if !strings.EqualFold(line, label) {
			continue
		}
		for _, nxt := range after(lines, i, window) {
			if v := parse.Money(nxt); v != nil {
				return v
			}
		}
	}
	return nil
}

// moneyGroup parses capture group 1 of the first matching pattern as money.
func moneyGroup(text string, patterns ...*regexp.Regexp) *decimal.Decimal {
	if g := firstGroup(text, patterns...); g != "" {
		return parse.Money(g)
	}
	return nil
}

// firstMoneyIn returns the first money value found across the given lines.
func firstMoneyIn(lines []string) *decimal.Decimal {
	for _, line := range lines {
		if v := parse.Money(line); v != nil {
			return v
		}
	}
	return nil
}

// after returns up to n lines following index i.
func after(lines []string, i, n int) []string {
	lo := i + 1
	if lo > len(lines) {
		return nil
	}
	hi := lo + n
	if hi > len(lines) {
		hi = len(lines)
	}
	return lines[lo:hi]
}

// ledgerFor resolves a postcode to a ledger account, appending the
// supplier's wording for the missing and unknown cases.
func (s *Set) ledgerFor(postcode, missingMsg, unknownPrefix string, warnings *[]string) *int {
	if postcode == "" {
		*warnings = append(*warnings, missingMsg)
		return nil
	}
	code, ok := s.accounts.Account(postcode)
	if !ok {
		*warnings = append(*warnings, fmt.Sprintf("%s: %s", unknownPrefix, postcode))
		return nil
	}
	return &code
}

func datePlusDays(t time.Time, days int) *time.Time {
	d := t.AddDate(0, 0, days)
	return &d
}

// dateOrEpoch parses the date text, substituting the epoch sentinel with a
// warning on failure. Extractors that treat a bad date as fatal do not use
// this.
func dateOrEpoch(raw string, warnings *[]string) time.Time {
	if d := parse.Date(raw); d != nil {
		return *d
	}
	*warnings = append(*warnings, "Invoice date not found")
	return parse.Epoch
}

func orZero(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}

func round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
