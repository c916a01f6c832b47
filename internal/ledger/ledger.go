package ledger

import "strings"

// Table maps canonical delivery postcodes ("CF10 1AE" form) to purchase
// ledger account codes, one per shop.
type Table map[string]int

// Account returns the ledger account for a canonical postcode.
func (t Table) Account(postcode string) (int, bool) {
	code, ok := t[postcode]
	return code, ok
}

// Knows reports whether the postcode belongs to one of our shops.
func (t Table) Knows(postcode string) bool {
	_, ok := t[postcode]
	return ok
}

// KeywordEntry pairs a customer-reference keyword with a shop postcode.
// Some suppliers identify the delivery shop in a free-text "Customer Ref"
// field rather than an address block.
type KeywordEntry struct {
	Keyword  string
	Postcode string
}

// KeywordTable is an ordered keyword lookup; first match wins.
type KeywordTable []KeywordEntry

// Postcode resolves a customer-reference string to a shop postcode.
func (k KeywordTable) Postcode(customerRef string) (string, bool) {
	normalized := strings.ToLower(customerRef)
	for _, e := range k {
		if strings.Contains(normalized, e.Keyword) {
			return e.Postcode, true
		}
	}
	return "", false
}

// Default returns the production postcode to ledger account table.
func Default() Table {
	return Table{
		"CF10 1AE": 5001, // Royal Arcade
		"CF24 3LP": 5002, // Roath
		"CF11 9DX": 5004, // Canton
	}
}

// DefaultKeywords returns the production customer-reference keyword table.
func DefaultKeywords() KeywordTable {
	return KeywordTable{
		{Keyword: "royal arcade", Postcode: "CF10 1AE"},
		{Keyword: "canton", Postcode: "CF11 9DX"},
		{Keyword: "roath", Postcode: "CF24 3LP"},
		{Keyword: "albany", Postcode: "CF24 3LP"},
	}
}
