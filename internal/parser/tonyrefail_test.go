package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTonyrefail(t *testing.T) {
	text := `Tonyrefail Apiary
Invoice no IN06254
Invoice date 19/Sep/2025
Due date 12/Oct/2025
Beanfreaks Ltd
71 Cowbridge Road East
Canton, Cardiff CF11 9DX
Welsh Honey 340g x 96
Total £132.00
`
	rec := newTestSet().ParseTonyrefail(text)

	assert.Equal(t, "Tonyrefail Apiary", rec.Supplier)
	assert.Equal(t, "IN06254", rec.SupplierReference)
	assert.Equal(t, time.Date(2025, 9, 19, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC), *rec.DueDate)

	assert.Equal(t, "CF11 9DX", rec.DeliverToPostcode)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5004, *rec.LedgerAccount)

	// Honey is wholly zero-rated.
	assertAmount(t, "0", rec.VATNet)
	assertAmount(t, "132", rec.NonVATNet)
	assertAmount(t, "0", rec.VATAmount)
	assertAmount(t, "132", rec.Total)
	assert.Empty(t, rec.Warnings)
}

// The pound sign often reaches the text layer as the mojibake "Â£".
func TestParseTonyrefailMojibakePound(t *testing.T) {
	text := `Tonyrefail Apiary
Invoice no IN06301
Invoice date 2/Jan/2026
Cardiff CF10 1AE
Total Â£66.00
`
	rec := newTestSet().ParseTonyrefail(text)

	assertAmount(t, "66", rec.Total)
	assertAmount(t, "66", rec.NonVATNet)
	// No due-date label: terms default to 30 days.
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *rec.DueDate)
}
