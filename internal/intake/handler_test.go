package intake

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/config"
	"github.com/beanfreaks/invoice-ingest/internal/ledger"
	"github.com/beanfreaks/invoice-ingest/internal/parser"
	"github.com/beanfreaks/invoice-ingest/internal/queue"
	"github.com/beanfreaks/invoice-ingest/pkg/database"
)

const (
	testUser = "postmark"
	testPass = "hook-secret"
)

func newTestRouter(t *testing.T, auth gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "intake.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := queue.NewStore(db, logger)
	require.NoError(t, err)

	dispatcher := parser.NewDispatcher(parser.NewSet(ledger.Default(), ledger.DefaultKeywords()), logger, "")
	handler := NewHandler(dispatcher, store, config.LimitsConfig{
		MaxRequestBytes: 1 << 20,
		MaxPDFBytes:     64,
	}, logger)

	r := gin.New()
	handler.Register(r, auth, RateLimit(100, 100))
	return r
}

func postInbound(t *testing.T, r *gin.Engine, payload any, authorize bool) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/postmark/inbound", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorize {
		req.SetBasicAuth(testUser, testPass)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func inboundMessage(attachments ...map[string]string) map[string]any {
	return map[string]any{
		"MessageID":   "pm-1",
		"From":        "invoices@clfdistribution.com",
		"FromFull":    map[string]string{"Email": "invoices@clfdistribution.com"},
		"Subject":     "Invoice",
		"Attachments": attachments,
	}
}

func TestHealthOpenWithoutAuth(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInboundRequiresAuth(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	w := postInbound(t, r, inboundMessage(), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
}

func TestInboundRejectsWhenAuthUnconfigured(t *testing.T) {
	r := newTestRouter(t, BasicAuth("", "", zap.NewNop()))

	w := postInbound(t, r, inboundMessage(), true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestInboundWithoutPDFAttachment(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	msg := inboundMessage(map[string]string{
		"Name":        "logo.png",
		"ContentType": "image/png",
		"Content":     base64.StdEncoding.EncodeToString([]byte("png")),
	})
	w := postInbound(t, r, msg, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No PDF attachment found")
}

func TestInboundInvalidJSON(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	req := httptest.NewRequest(http.MethodPost, "/postmark/inbound", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(testUser, testPass)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInboundOversizedRequest(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	req := httptest.NewRequest(http.MethodPost, "/postmark/inbound", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", "2097152")
	req.SetBasicAuth(testUser, testPass)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestInboundBadBase64Attachment(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	msg := inboundMessage(map[string]string{
		"Name":        "invoice.pdf",
		"ContentType": "application/pdf",
		"Content":     "%%%not base64%%%",
	})
	w := postInbound(t, r, msg, true)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInboundOversizedPDF(t *testing.T) {
	r := newTestRouter(t, BasicAuth(testUser, testPass, zap.NewNop()))

	msg := inboundMessage(map[string]string{
		"Name":        "invoice.pdf",
		"ContentType": "application/pdf",
		"Content":     base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 128)),
	})
	w := postInbound(t, r, msg, true)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestFirstPDFSelection(t *testing.T) {
	atts := []attachment{
		{Name: "logo.png", ContentType: "image/png", Content: "aGk="},
		{Name: "Invoice.PDF", ContentType: "application/octet-stream", Content: "aGk="},
		{Name: "second.pdf", ContentType: "application/pdf", Content: "aGk="},
	}
	att := firstPDF(atts)
	require.NotNil(t, att)
	assert.Equal(t, "Invoice.PDF", att.Name)

	assert.Nil(t, firstPDF(nil))
	assert.Nil(t, firstPDF([]attachment{{Name: "invoice.pdf", ContentType: "application/pdf", Content: "  "}}))
}

func TestSenderDomain(t *testing.T) {
	msg := &postmarkMessage{}
	msg.FromFull.Email = "Billing@CLFDistribution.com"
	assert.Equal(t, "clfdistribution.com", senderDomain(msg))

	msg = &postmarkMessage{From: "Accounts <accounts@huntsfoodgroup.co.uk>"}
	assert.Equal(t, "huntsfoodgroup.co.uk", senderDomain(msg))

	assert.Equal(t, "", senderDomain(&postmarkMessage{From: "no-address"}))
}
