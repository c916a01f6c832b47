package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/beanfreaks/invoice-ingest/internal/ledger"
)

func newTestSet() *Set {
	return NewSet(ledger.Default(), ledger.DefaultKeywords())
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}
