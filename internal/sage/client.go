// Package sage posts parsed invoice records to the Sage Accounting API.
package sage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/config"
	"github.com/beanfreaks/invoice-ingest/internal/invoice"
)

// ErrNoLedgerMapping is returned when a record's ledger account has no Sage
// ledger_account_id configured.
var ErrNoLedgerMapping = errors.New("no sage ledger account mapping")

// Client talks to the Sage Accounting API using the OAuth refresh-token
// flow. Access tokens are cached until shortly before expiry.
type Client struct {
	cfg       config.SageConfig
	ledgerIDs map[int]string
	http      *http.Client
	logger    *zap.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClient builds a Sage client. ledgerIDs maps internal ledger account
// codes (5001, 5002, ...) to Sage ledger_account_id values.
func NewClient(cfg config.SageConfig, ledgerIDs map[int]string, logger *zap.Logger) *Client {
	return &Client{
		cfg:       cfg,
		ledgerIDs: ledgerIDs,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid access token, refreshing it when the cached one is
// missing or about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.cfg.RefreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh sage token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("refresh sage token: status %d: %s", resp.StatusCode, body)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

type invoiceLine struct {
	Description     string  `json:"description"`
	LedgerAccountID string  `json:"ledger_account_id"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TaxRateID       string  `json:"tax_rate_id"`
	TaxAmount       float64 `json:"tax_amount"`
}

// lines builds one invoice line per VAT treatment: the standard-rated net
// with its VAT amount, and the zero-rated net on the zero rate.
func (c *Client) lines(rec *invoice.Record) ([]invoiceLine, error) {
	if rec.LedgerAccount == nil {
		return nil, ErrNoLedgerMapping
	}
	ledgerID, ok := c.ledgerIDs[*rec.LedgerAccount]
	if !ok {
		return nil, fmt.Errorf("%w: account %d", ErrNoLedgerMapping, *rec.LedgerAccount)
	}

	description := rec.Description
	if description == "" {
		description = invoice.DefaultDescription
	}

	var out []invoiceLine
	if rec.VATNet.IsPositive() || rec.VATAmount.IsPositive() {
		out = append(out, invoiceLine{
			Description:     description,
			LedgerAccountID: ledgerID,
			Quantity:        1,
			UnitPrice:       rec.VATNet.Round(2).InexactFloat64(),
			TaxRateID:       c.cfg.StandardTaxID,
			TaxAmount:       rec.VATAmount.Round(2).InexactFloat64(),
		})
	}
	if rec.NonVATNet.IsPositive() || len(out) == 0 {
		out = append(out, invoiceLine{
			Description:     description,
			LedgerAccountID: ledgerID,
			Quantity:        1,
			UnitPrice:       rec.NonVATNet.Round(2).InexactFloat64(),
			TaxRateID:       c.cfg.ZeroRatedTaxID,
			TaxAmount:       0,
		})
	}
	return out, nil
}

type postResponse struct {
	ID string `json:"id"`
}

func (c *Client) post(ctx context.Context, path string, payload any) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Business", c.cfg.BusinessID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post to sage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("sage %s: status %d: %s", path, resp.StatusCode, detail)
	}

	var posted postResponse
	if err := json.NewDecoder(resp.Body).Decode(&posted); err != nil {
		return "", fmt.Errorf("decode sage response: %w", err)
	}
	return posted.ID, nil
}

// PostPurchaseInvoice posts the record as a purchase invoice and returns
// the Sage document id.
func (c *Client) PostPurchaseInvoice(ctx context.Context, rec *invoice.Record) (string, error) {
	lines, err := c.lines(rec)
	if err != nil {
		return "", err
	}

	dueDate := rec.InvoiceDate.AddDate(0, 0, 30)
	if rec.DueDate != nil {
		dueDate = *rec.DueDate
	}

	payload := map[string]any{
		"purchase_invoice": map[string]any{
			"contact_id":    rec.ContactID,
			"date":          rec.InvoiceDate.Format("2006-01-02"),
			"due_date":      dueDate.Format("2006-01-02"),
			"reference":     rec.SupplierReference,
			"invoice_lines": lines,
		},
	}

	id, err := c.post(ctx, "/purchase_invoices", payload)
	if err != nil {
		return "", err
	}
	c.logger.Info("Posted purchase invoice to Sage",
		zap.String("sage_id", id),
		zap.String("reference", rec.SupplierReference),
		zap.String("supplier", rec.Supplier))
	return id, nil
}

// PostCreditNote posts the record as a purchase credit note. Record amounts
// are already absolute values.
func (c *Client) PostCreditNote(ctx context.Context, rec *invoice.Record) (string, error) {
	lines, err := c.lines(rec)
	if err != nil {
		return "", err
	}

	dueDate := rec.InvoiceDate.AddDate(0, 0, 30)
	if rec.DueDate != nil {
		dueDate = *rec.DueDate
	}

	payload := map[string]any{
		"purchase_credit_note": map[string]any{
			"contact_id":         rec.ContactID,
			"credit_note_number": rec.SupplierReference,
			"date":               rec.InvoiceDate.Format("2006-01-02"),
			"due_date":           dueDate.Format("2006-01-02"),
			"reference":          rec.SupplierReference,
			"total_amount":       rec.Total.Round(2).InexactFloat64(),
			"credit_note_lines":  lines,
		},
	}

	id, err := c.post(ctx, "/purchase_credit_notes", payload)
	if err != nil {
		return "", err
	}
	c.logger.Info("Posted purchase credit note to Sage",
		zap.String("sage_id", id),
		zap.String("reference", rec.SupplierReference),
		zap.String("supplier", rec.Supplier))
	return id, nil
}

// Post routes the record to the invoice or credit-note endpoint.
func (c *Client) Post(ctx context.Context, rec *invoice.Record) (string, error) {
	if rec.IsCredit {
		return c.PostCreditNote(ctx, rec)
	}
	return c.PostPurchaseInvoice(ctx, rec)
}
