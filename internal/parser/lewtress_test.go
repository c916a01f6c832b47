package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The Lewtress text layer drops spaces inside labels and dates.
func TestParseLewtressMergedText(t *testing.T) {
	text := `Lewtress Natural Health Ltd
InvoiceNumber
InvoiceDate
1481
19Jan2026
Deliver to: Beanfreaks, 3 Royal Arcade, Cardiff CF10 1AE
Subtotal 86.00
TOTAL ZERO RATED 0.00
TOTAL GBP 86.00
`
	rec := newTestSet().ParseLewtress(text)

	assert.Equal(t, "Lewtress Natural Health Ltd", rec.Supplier)
	assert.Equal(t, "1481", rec.SupplierReference)
	assert.Equal(t, time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC), *rec.DueDate)

	assert.Equal(t, "CF10 1AE", rec.DeliverToPostcode)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5001, *rec.LedgerAccount)

	// Everything Lewtress ships is zero-rated.
	assertAmount(t, "0", rec.VATNet)
	assertAmount(t, "86", rec.NonVATNet)
	assertAmount(t, "0", rec.VATAmount)
	assertAmount(t, "86", rec.Total)
	assert.Empty(t, rec.Warnings)
}

func TestParseLewtressMissingAmounts(t *testing.T) {
	text := `Lewtress Natural Health Ltd
InvoiceNumber 1500
InvoiceDate 2Feb2026
Cardiff CF11 9DX
`
	rec := newTestSet().ParseLewtress(text)

	assert.Contains(t, rec.Warnings, "Net amount not found")
	assert.Contains(t, rec.Warnings, "VAT amount not found")
	assert.Contains(t, rec.Warnings, "Total not found")
	assertAmount(t, "0", rec.Total)
}
