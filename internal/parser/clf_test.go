package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCLFInvoice(t *testing.T) {
	text := `CLF Distribution Ltd
210 Mauretania Road
Southampton SO16 0YS
Invoice Number: PSI-1885362
Posting Date: 03/02/2026
Deliver To
Beanfreaks Canton
124 Cowbridge Road East
Cardiff, CF11 9DX
VAT Identifier
S 20 590.49 118.09
Z 0 876.44 0.00
VAT Amount: 118.09
Total GBP Excl. VAT
VAT Amount
Total GBP Incl. VAT
1466.93
118.09
1585.02
`
	rec := newTestSet().ParseCLF(text)

	assert.Equal(t, "CLF", rec.Supplier)
	assert.Equal(t, "PSI-1885362", rec.SupplierReference)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	assert.False(t, rec.IsCredit)

	assert.Equal(t, "CF11 9DX", rec.DeliverToPostcode)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5004, *rec.LedgerAccount)

	// VAT was charged, so the whole excl-VAT total classifies as
	// standard-rated.
	assertAmount(t, "1466.93", rec.VATNet)
	assertAmount(t, "0", rec.NonVATNet)
	assertAmount(t, "118.09", rec.VATAmount)
	assertAmount(t, "1585.02", rec.Total)
	assert.Empty(t, rec.Warnings)
}

// Totals extracted as a block of labels followed by a block of values: the
// numeric run is mapped to Excl/VAT/Incl in order, and the VAT amount the
// loose label scan grabbed is overridden from the paired totals.
func TestParseCLFStackedTotalsBlock(t *testing.T) {
	text := `CLF Distribution Ltd
Invoice Number: PSI-1885361
Posting Date: 03/02/2026
Deliver To
95 Albany Road
Cardiff, CF24 3LP
Total GBP Excl. VAT
VAT Amount
Total GBP Incl. VAT
1285.71
90.38
1376.09
`
	rec := newTestSet().ParseCLF(text)

	assert.Equal(t, "PSI-1885361", rec.SupplierReference)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5002, *rec.LedgerAccount)

	// No S/Z rows: the whole excl-VAT total is standard-rated because VAT
	// was charged.
	assertAmount(t, "1285.71", rec.VATNet)
	assertAmount(t, "0", rec.NonVATNet)
	assertAmount(t, "90.38", rec.VATAmount)
	assertAmount(t, "1376.09", rec.Total)
	assert.Contains(t, rec.Warnings, "VAT amount overridden from totals")
}

func TestParseCLFCreditMemo(t *testing.T) {
	text := `CLF Distribution Ltd
Credit Memo Number: PCM-104523
Posting Date: 03/02/2026
Deliver To
Beanfreaks Ltd
Cardiff, CF10 1AE
Total GBP -24.48
`
	rec := newTestSet().ParseCLF(text)

	assert.True(t, rec.IsCredit)
	assert.Equal(t, "PCM-104523", rec.SupplierReference)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5001, *rec.LedgerAccount)

	// Credit amounts normalize to absolute values; the missing-VAT warnings
	// are suppressed for a wholly zero-rated credit.
	assertAmount(t, "0", rec.VATNet)
	assertAmount(t, "24.48", rec.NonVATNet)
	assertAmount(t, "0", rec.VATAmount)
	assertAmount(t, "24.48", rec.Total)
	assert.Empty(t, rec.Warnings)
}

func TestCLFPostcodePrefersDeliveryOverSupplier(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		postcode string
		account  int
	}{
		{"canton", "Beanfreaks Canton\n124 Cowbridge Road East\nCardiff, CF11 9DX", "CF11 9DX", 5004},
		{"albany road", "95 Albany Road\nCardiff, CF24 3LP", "CF24 3LP", 5002},
		{"royal arcade", "Some Street\nCardiff, CF10 1AE", "CF10 1AE", 5001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "CLF Distribution\n210 Mauretania Road\nSouthampton\nHampshire SO16 0YS\n\nDeliver To\n" + tt.address + "\n"
			rec := newTestSet().ParseCLF(text)
			assert.Equal(t, tt.postcode, rec.DeliverToPostcode)
			require.NotNil(t, rec.LedgerAccount)
			assert.Equal(t, tt.account, *rec.LedgerAccount)
		})
	}
}
