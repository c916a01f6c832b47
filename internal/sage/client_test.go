package sage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/config"
	"github.com/beanfreaks/invoice-ingest/internal/invoice"
)

type fakeSage struct {
	srv        *httptest.Server
	tokenCalls int64

	lastPath string
	lastAuth string
	lastBiz  string
	lastBody map[string]any
}

func newFakeSage(t *testing.T) *fakeSage {
	t.Helper()
	f := &fakeSage{}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostFormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.PostFormValue("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.URL.Path
		f.lastAuth = r.Header.Get("Authorization")
		f.lastBiz = r.Header.Get("X-Business")
		f.lastBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"sage-doc-1"}`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSage) config() config.SageConfig {
	return config.SageConfig{
		BaseURL:        f.srv.URL,
		TokenURL:       f.srv.URL + "/oauth/token",
		ClientID:       "client-1",
		ClientSecret:   "secret-1",
		RefreshToken:   "refresh-1",
		BusinessID:     "business-1",
		StandardTaxID:  "GB_STANDARD",
		ZeroRatedTaxID: "GB_ZERO",
		Timeout:        5 * time.Second,
	}
}

func newTestClient(f *fakeSage) *Client {
	return NewClient(f.config(), map[int]string{5001: "ledger-guid-1"}, zap.NewNop())
}

func mixedRecord() *invoice.Record {
	account := 5001
	due := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	return &invoice.Record{
		Supplier:          "CLF",
		SupplierReference: "PSI-1885362",
		InvoiceDate:       time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		DueDate:           &due,
		Description:       invoice.DefaultDescription,
		DeliverToPostcode: "CF10 1AE",
		LedgerAccount:     &account,
		VATNet:            decimal.RequireFromString("100.00"),
		NonVATNet:         decimal.RequireFromString("50.00"),
		VATAmount:         decimal.RequireFromString("20.00"),
		Total:             decimal.RequireFromString("170.00"),
	}
}

func TestPostPurchaseInvoice(t *testing.T) {
	f := newFakeSage(t)
	client := newTestClient(f)

	id, err := client.PostPurchaseInvoice(context.Background(), mixedRecord())
	require.NoError(t, err)
	assert.Equal(t, "sage-doc-1", id)

	assert.Equal(t, "/purchase_invoices", f.lastPath)
	assert.Equal(t, "Bearer tok-1", f.lastAuth)
	assert.Equal(t, "business-1", f.lastBiz)

	inv, ok := f.lastBody["purchase_invoice"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PSI-1885362", inv["reference"])
	assert.Equal(t, "2026-02-03", inv["date"])
	assert.Equal(t, "2026-03-05", inv["due_date"])

	lines, ok := inv["invoice_lines"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 2)

	standard := lines[0].(map[string]any)
	assert.Equal(t, "ledger-guid-1", standard["ledger_account_id"])
	assert.Equal(t, "GB_STANDARD", standard["tax_rate_id"])
	assert.InDelta(t, 100.00, standard["unit_price"], 0.001)
	assert.InDelta(t, 20.00, standard["tax_amount"], 0.001)

	zero := lines[1].(map[string]any)
	assert.Equal(t, "GB_ZERO", zero["tax_rate_id"])
	assert.InDelta(t, 50.00, zero["unit_price"], 0.001)
	assert.InDelta(t, 0.0, zero["tax_amount"], 0.001)
}

func TestPostDefaultsDueDate(t *testing.T) {
	f := newFakeSage(t)
	client := newTestClient(f)

	rec := mixedRecord()
	rec.DueDate = nil
	_, err := client.PostPurchaseInvoice(context.Background(), rec)
	require.NoError(t, err)

	inv := f.lastBody["purchase_invoice"].(map[string]any)
	assert.Equal(t, "2026-03-05", inv["due_date"])
}

func TestPostZeroRatedOnlyRecord(t *testing.T) {
	f := newFakeSage(t)
	client := newTestClient(f)

	rec := mixedRecord()
	rec.VATNet = decimal.Zero
	rec.VATAmount = decimal.Zero
	rec.NonVATNet = decimal.RequireFromString("30.00")
	rec.Total = decimal.RequireFromString("30.00")

	_, err := client.PostPurchaseInvoice(context.Background(), rec)
	require.NoError(t, err)

	inv := f.lastBody["purchase_invoice"].(map[string]any)
	lines := inv["invoice_lines"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "GB_ZERO", lines[0].(map[string]any)["tax_rate_id"])
}

func TestPostRoutesCreditNote(t *testing.T) {
	f := newFakeSage(t)
	client := newTestClient(f)

	rec := mixedRecord()
	rec.IsCredit = true
	id, err := client.Post(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "sage-doc-1", id)
	assert.Equal(t, "/purchase_credit_notes", f.lastPath)

	note, ok := f.lastBody["purchase_credit_note"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PSI-1885362", note["credit_note_number"])
	assert.InDelta(t, 170.00, note["total_amount"], 0.001)
	_, hasLines := note["credit_note_lines"]
	assert.True(t, hasLines)
}

func TestTokenCachedAcrossPosts(t *testing.T) {
	f := newFakeSage(t)
	client := newTestClient(f)

	_, err := client.Post(context.Background(), mixedRecord())
	require.NoError(t, err)
	_, err = client.Post(context.Background(), mixedRecord())
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt64(&f.tokenCalls))
}

func TestPostWithoutLedgerMapping(t *testing.T) {
	f := newFakeSage(t)
	client := newTestClient(f)

	rec := mixedRecord()
	rec.LedgerAccount = nil
	_, err := client.Post(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNoLedgerMapping)

	unmapped := 5009
	rec = mixedRecord()
	rec.LedgerAccount = &unmapped
	_, err = client.Post(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNoLedgerMapping)
}
