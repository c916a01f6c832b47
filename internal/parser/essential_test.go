package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEssential(t *testing.T) {
	text := `Essential Trading Co-operative Ltd
Invoice No: S734512
Invoice Date: 03/02/2026
Deliver To: Beanfreaks, 104 Albany Road, Cardiff CF24 3LP
VAT Analysis
Net (£)
100.00
50.00
VAT (£)
0.00
10.00
Order Net 150.00
VAT 10.00
Total 160.00
`
	rec, err := newTestSet().ParseEssential(text)
	require.NoError(t, err)

	assert.Equal(t, "Essential Trading", rec.Supplier)
	assert.Equal(t, "S734512", rec.SupplierReference)
	assert.Equal(t, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), rec.InvoiceDate)
	assert.Nil(t, rec.DueDate)

	assert.Equal(t, "CF24 3LP", rec.DeliverToPostcode)
	require.NotNil(t, rec.LedgerAccount)
	assert.Equal(t, 5002, *rec.LedgerAccount)

	// VAT analysis rows are positional: zero-rated first, standard second.
	assertAmount(t, "50", rec.VATNet)
	assertAmount(t, "100", rec.NonVATNet)
	assertAmount(t, "10", rec.VATAmount)
	assertAmount(t, "160", rec.Total)
	assert.Empty(t, rec.Warnings)
}

// A dated Essential document is an invoice; an undated one is a statement
// and must be rejected outright.
func TestParseEssentialMissingDateFatal(t *testing.T) {
	text := `Essential Trading Co-operative Ltd
Statement of Account
Balance brought forward 1024.55
`
	rec, err := newTestSet().ParseEssential(text)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrEssentialDate)
}

func TestParseEssentialWithoutVATAnalysis(t *testing.T) {
	text := `Essential Trading Co-operative Ltd
Invoice No: S734600
Invoice Date: 05/02/2026
Deliver To: Beanfreaks, Cardiff CF24 3LP
Order Net 150.00
VAT 10.00
Total 160.00
`
	rec, err := newTestSet().ParseEssential(text)
	require.NoError(t, err)

	assert.Contains(t, rec.Warnings, "VAT analysis missing; using order totals")
	assertAmount(t, "0", rec.VATNet)
	assertAmount(t, "0", rec.NonVATNet)
	assertAmount(t, "10", rec.VATAmount)
	assertAmount(t, "160", rec.Total)
	// Order net cannot match an empty analysis.
	assert.Contains(t, rec.Warnings, "Order net does not match VAT analysis")
}

func TestParseEssentialUnknownPostcode(t *testing.T) {
	text := `Essential Trading Co-operative Ltd
Invoice No: S734601
Invoice Date: 05/02/2026
Deliver To: Somewhere Else, Bristol BS1 4AA
Order Net 20.00
VAT 0.00
Total 20.00
`
	rec, err := newTestSet().ParseEssential(text)
	require.NoError(t, err)

	assert.Equal(t, "BS1 4AA", rec.DeliverToPostcode)
	assert.Nil(t, rec.LedgerAccount)
	assert.Contains(t, rec.Warnings, "Ledger account not mapped for postcode")
	assert.NotContains(t, rec.Warnings, "Deliver to postcode not found")
}
