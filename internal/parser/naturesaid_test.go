package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNaturesAid(t *testing.T) {
	text := `Natures Aid Ltd
Invoice No. SI-482913
Invoice Date 03/02/2026
Payment Due By 05/03/2026
Deliver To: Beanfreaks, Canton, Cardiff CF11 9DX
VAT %
0.00
40.00
20.00
60.00
Sub Total
Total £112.00
Net Total £100.00
VAT £12.00
`
	rec := newTestSet().ParseNaturesAid(text)

	assert.Equal(t, "Natures Aid", rec.Supplier)
	assert.Equal(t, "SI-482913", rec.SupplierReference)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), *rec.DueDate)

	assert.Equal(t, "CF11 9DX", rec.DeliverToPostcode)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5004, *rec.LedgerAccount)

	// The per-line rate/amount pairs override the summary's single net.
	assertAmount(t, "60", rec.VATNet)
	assertAmount(t, "40", rec.NonVATNet)
	assertAmount(t, "12", rec.VATAmount)
	assertAmount(t, "112", rec.Total)
	assert.Empty(t, rec.Warnings)
}

// No recoverable rate split: the zero-rated remainder is derived from the
// summary totals instead.
func TestParseNaturesAidSummaryOnly(t *testing.T) {
	text := `Natures Aid Ltd
Invoice No. SI-483000
Invoice Date 05/02/2026
Cardiff CF10 1AE
Total £112.00
Net Total £60.00
VAT £12.00
`
	rec := newTestSet().ParseNaturesAid(text)

	assertAmount(t, "60", rec.VATNet)
	assertAmount(t, "40", rec.NonVATNet)
	assertAmount(t, "12", rec.VATAmount)
	assertAmount(t, "112", rec.Total)
	// No Payment Due By: terms default to 30 days.
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), *rec.DueDate)
}
