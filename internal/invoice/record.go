package invoice

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/beanfreaks/invoice-ingest/internal/parse"
)

const (
	// UnknownReference is the sentinel supplier reference used when no
	// pattern matched; never empty, never null.
	UnknownReference = "UNKNOWN"

	// DefaultDescription is the ledger line description when the document
	// gives nothing better.
	DefaultDescription = "Purchases"
)

// Record is the canonical extraction result every supplier parser produces.
// It is built once, pure, from input text and never mutated afterwards.
type Record struct {
	Supplier          string     `json:"supplier"`
	SupplierReference string     `json:"supplier_reference"`
	InvoiceDate       time.Time  `json:"invoice_date"`
	DueDate           *time.Time `json:"due_date,omitempty"`

	Description string `json:"description"`
	IsCredit    bool   `json:"is_credit"`

	DeliverToPostcode string `json:"deliver_to_postcode,omitempty"`
	LedgerAccount     *int   `json:"ledger_account,omitempty"`

	// ContactID is the supplier's contact GUID in the accounting system,
	// fixed per parser.
	ContactID string `json:"contact_id,omitempty"`

	VATNet    decimal.Decimal `json:"vat_net"`
	NonVATNet decimal.Decimal `json:"nonvat_net"`
	VATAmount decimal.Decimal `json:"vat_amount"`
	Total     decimal.Decimal `json:"total"`

	// Warnings records every recoverable anomaly hit during extraction.
	// A human reviews these before the record is posted, so over-returning
	// with visible caveats beats silently dropping an invoice.
	Warnings []string `json:"warnings"`
}

// ClampNonNegative floors the four monetary fields at zero. Applied at
// record construction regardless of credit-note handling.
func (r *Record) ClampNonNegative() {
	zero := decimal.Zero
	if r.VATNet.IsNegative() {
		r.VATNet = zero
	}
	if r.NonVATNet.IsNegative() {
		r.NonVATNet = zero
	}
	if r.VATAmount.IsNegative() {
		r.VATAmount = zero
	}
	if r.Total.IsNegative() {
		r.Total = zero
	}
}

// Reconciles reports whether vat_net + nonvat_net + vat_amount matches the
// grand total within tolerance.
func (r *Record) Reconciles() bool {
	sum := r.VATNet.Add(r.NonVATNet).Add(r.VATAmount)
	return parse.ApproxEqual(sum, r.Total)
}

// DedupeKey is the duplicate-suppression key for the queue store. Stable
// across re-parses of the same document.
func (r *Record) DedupeKey() string {
	return fmt.Sprintf("%s|%s|%t", r.SupplierReference, r.InvoiceDate.Format("2006-01-02"), r.IsCredit)
}
