package parse

import (
	"regexp"
	"strings"

	"github.com/beanfreaks/invoice-ingest/internal/ledger"
)

// PostcodeRE matches UK-postcode-shaped substrings, tolerant of missing or
// extra whitespace between outward and inward codes. Good-enough by design:
// OCR text is too noisy for a fully validating pattern.
var PostcodeRE = regexp.MustCompile(`(?i)\b([A-Z]{1,2}\d{1,2}[A-Z]?)\s*(\d[A-Z]{2})\b`)

// NormalizePostcode canonicalizes to "CF10 1AE" spacing: upper-case, strip
// whitespace, re-insert one space three characters from the end (the inward
// code is always three characters). Returns "" when the stripped input is
// shorter than five characters.
func NormalizePostcode(raw string) string {
	raw = strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if len(raw) < 5 {
		return ""
	}
	return raw[:len(raw)-3] + " " + raw[len(raw)-3:]
}

// FindDeliveryPostcode scans text for all postcode-shaped substrings and
// returns the first one that is a known shop postcode. Documents carry the
// supplier's own and billing postcodes too, in arbitrary order once columns
// are flattened; preferring a recognized shop postcode is a cheap, robust
// disambiguator given the small fixed set of delivery destinations. If no
// candidate is known the first candidate is returned anyway so the field is
// populated and the ledger lookup can fail with a warning downstream.
// Returns "" only when nothing postcode-shaped exists at all.
func FindDeliveryPostcode(text string, accounts ledger.Table) string {
	first := ""
	for _, m := range PostcodeRE.FindAllStringSubmatch(text, -1) {
		pc := NormalizePostcode(m[1] + m[2])
		if pc == "" {
			continue
		}
		if accounts.Knows(pc) {
			return pc
		}
		if first == "" {
			first = pc
		}
	}
	return first
}
