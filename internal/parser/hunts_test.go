package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const huntsTwoInvoiceText = `Hunt's Food Group Ltd
Deliver To
Beanfreaks Roath
104 Albany Road
Cardiff CF24 3LP
INVOICE 349216
Tax Point Date 10/01/2026
VAT Analysis
VAT Rate
Zero Rate
Std Rate 20%
Value
80.00
40.00
VAT
8.00
Amount
128.00
BACS Payment Details
Sort Code 01-02-03
Hunt’s Food Group Ltd
Deliver To
Beanfreaks Canton
Cardiff CF11 9DX
INVOICE 349217
Tax Point Date 11/01/2026
VAT Analysis
VAT Rate
Zero Rate
Value
50.00
VAT
0.00
Amount
50.00
BACS Payment Details
`

func TestParseHuntsSplitsBundledInvoices(t *testing.T) {
	records := newTestSet().ParseHunts(huntsTwoInvoiceText)
	require.Len(t, records, 2)

	first, second := records[0], records[1]

	assert.Equal(t, "Hunts", first.Supplier)
	assert.Equal(t, "349216", first.SupplierReference)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), first.InvoiceDate)
	assert.Equal(t, "CF24 3LP", first.DeliverToPostcode)
	require.NotNil(t, first.LedgerAccount)
	assert.Equal(t, 5002, *first.LedgerAccount)
	assertAmount(t, "40", first.VATNet)
	assertAmount(t, "80", first.NonVATNet)
	assertAmount(t, "8", first.VATAmount)
	assertAmount(t, "128", first.Total)
	assert.Empty(t, first.Warnings)

	assert.Equal(t, "349217", second.SupplierReference)
	assert.Equal(t, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), second.InvoiceDate)
	assert.Equal(t, "CF11 9DX", second.DeliverToPostcode)
	require.NotNil(t, second.LedgerAccount)
	assert.Equal(t, 5004, *second.LedgerAccount)
	assertAmount(t, "0", second.VATNet)
	assertAmount(t, "50", second.NonVATNet)
	assertAmount(t, "0", second.VATAmount)
	assertAmount(t, "50", second.Total)
	assert.Empty(t, second.Warnings)
}

func TestParseHuntsDedupeKeysDiffer(t *testing.T) {
	records := newTestSet().ParseHunts(huntsTwoInvoiceText)
	require.Len(t, records, 2)
	assert.NotEqual(t, records[0].DedupeKey(), records[1].DedupeKey())
}

func TestParseHuntsSingleSectionWithoutHeader(t *testing.T) {
	text := `Deliver To
Beanfreaks Ltd
3 Royal Arcade, Cardiff CF10 1AE
INVOICE 349300
Tax Point Date 12/01/2026
VAT Analysis
VAT Rate
Zero Rate
Value
25.50
VAT
0.00
Amount
25.50
`
	records := newTestSet().ParseHunts(text)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "349300", rec.SupplierReference)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5001, *rec.LedgerAccount)
	assertAmount(t, "25.5", rec.NonVATNet)
	assertAmount(t, "25.5", rec.Total)
}

func TestParseHuntsEmpty(t *testing.T) {
	assert.Nil(t, newTestSet().ParseHunts(""))
}
