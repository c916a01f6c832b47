package parse

import (
	"strings"
	"time"
)

// Epoch is the sentinel substituted when an extractor cannot parse an
// invoice date but the record is still worth returning.
var Epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// Layout chain ordered day-first (UK convention). Non-padded numeric
// elements accept both "5/2/2026" and "05/02/2026".
var dateLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2/Jan/2006",
	"2 Jan 2006",
	"2Jan2006",
	"2 January 2006",
	"2. January 2006",
	"2. Jan 2006",
	"2 January, 2006",
	"January 2, 2006",
}

// Date parses supplier-formatted date text day-first. Covers every format
// observed across the supplier layouts: DD/MM/YYYY, D Mon YYYY, D. Month
// YYYY, DD/Mon/YYYY and close variants. Returns nil on failure, never an
// error; callers decide between the epoch sentinel and a fatal stop.
func Date(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Collapse runs of whitespace; extracted PDF text is ragged.
	s = strings.Join(strings.Fields(s), " ")
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}
