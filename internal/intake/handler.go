// Package intake receives Postmark inbound-mail webhooks carrying supplier
// invoice PDFs, extracts their text and queues the parsed records.
package intake

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/config"
	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/internal/parser"
	"github.com/beanfreaks/invoice-ingest/internal/pdftext"
	"github.com/beanfreaks/invoice-ingest/internal/queue"
)

// postmarkMessage is the subset of Postmark's inbound webhook payload the
// service reads.
type postmarkMessage struct {
	MessageID string `json:"MessageID"`
	From      string `json:"From"`
	FromFull  struct {
		Email string `json:"Email"`
	} `json:"FromFull"`
	Subject     string       `json:"Subject"`
	Attachments []attachment `json:"Attachments"`
}

type attachment struct {
	Name        string `json:"Name"`
	ContentType string `json:"ContentType"`
	Content     string `json:"Content"`
}

// Handler wires the inbound webhook to the dispatcher and queue.
type Handler struct {
	dispatcher *parser.Dispatcher
	store      *queue.Store
	limits     config.LimitsConfig
	logger     *zap.Logger
}

// NewHandler builds the intake handler.
func NewHandler(dispatcher *parser.Dispatcher, store *queue.Store, limits config.LimitsConfig, logger *zap.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		store:      store,
		limits:     limits,
		logger:     logger,
	}
}

// Register mounts the routes on the engine. auth guards the inbound
// endpoint only; health stays open for the load balancer.
func (h *Handler) Register(r *gin.Engine, auth gin.HandlerFunc, rateLimit gin.HandlerFunc) {
	r.GET("/health", h.Health)
	r.POST("/postmark/inbound", auth, rateLimit, h.PostmarkInbound)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// firstPDF returns the first attachment that looks like a PDF.
func firstPDF(attachments []attachment) *attachment {
	for i := range attachments {
		att := &attachments[i]
		name := strings.ToLower(strings.TrimSpace(att.Name))
		ctype := strings.ToLower(strings.TrimSpace(att.ContentType))
		if (strings.Contains(ctype, "pdf") || strings.HasSuffix(name, ".pdf")) &&
			strings.TrimSpace(att.Content) != "" {
			return att
		}
	}
	return nil
}

func senderDomain(msg *postmarkMessage) string {
	addr := msg.FromFull.Email
	if addr == "" {
		addr = msg.From
	}
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		return strings.ToLower(strings.TrimRight(addr[at+1:], "> "))
	}
	return ""
}

// PostmarkInbound handles one inbound e-mail. Unparseable documents are
// client errors (4xx) so Postmark surfaces them for manual handling instead
// of retrying forever.
func (h *Handler) PostmarkInbound(c *gin.Context) {
	if raw := c.GetHeader("Content-Length"); raw != "" {
		if cl, err := strconv.ParseInt(raw, 10, 64); err == nil && cl > h.limits.MaxRequestBytes {
			h.logger.Info("Rejecting oversized inbound request",
				zap.Int64("content_length", cl),
				zap.Int64("limit", h.limits.MaxRequestBytes))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request too large"})
			return
		}
	}

	var msg postmarkMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	att := firstPDF(msg.Attachments)
	if att == nil {
		h.logger.Info("Inbound message without PDF attachment",
			zap.String("message_id", msg.MessageID),
			zap.Int("attachments", len(msg.Attachments)))
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "No PDF attachment found",
		})
		return
	}

	pdfBytes, err := base64.StdEncoding.DecodeString(att.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Attachment base64 decode failed"})
		return
	}
	if int64(len(pdfBytes)) > h.limits.MaxPDFBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "PDF too large"})
		return
	}

	text, err := pdftext.Extract(pdfBytes)
	if err != nil {
		h.logger.Error("PDF text extraction failed",
			zap.String("pdf", att.Name), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "PDF text extraction failed"})
		return
	}

	if err := h.store.RecordMessage(c.Request.Context(), msg.MessageID); err != nil {
		if errors.Is(err, queue.ErrDuplicate) {
			h.logger.Info("Duplicate inbound message ignored",
				zap.String("message_id", msg.MessageID))
			c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Duplicate message ignored"})
			return
		}
		h.logger.Error("Failed to record inbound message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failure"})
		return
	}

	domain := senderDomain(&msg)
	supplier, records, err := h.dispatcher.Parse(text, domain)
	if err != nil {
		h.logger.Error("Invoice parsing failed",
			zap.String("pdf", att.Name),
			zap.String("sender_domain", domain),
			zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invoice parsing failed: " + err.Error()})
		return
	}

	queued := make([]gin.H, 0, len(records))
	duplicates := 0
	for _, rec := range records {
		item, err := h.store.Enqueue(c.Request.Context(), msg.MessageID, supplier, rec)
		if err != nil {
			if errors.Is(err, queue.ErrDuplicate) {
				duplicates++
				continue
			}
			h.logger.Error("Failed to enqueue record", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage failure"})
			return
		}
		queued = append(queued, summary(item.ID, rec))
	}

	h.logger.Info("Inbound message processed",
		zap.String("message_id", msg.MessageID),
		zap.String("pdf", att.Name),
		zap.Int("records", len(records)),
		zap.Int("duplicates", duplicates))

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"pdf":        gin.H{"name": att.Name, "bytes": len(pdfBytes)},
		"queued":     queued,
		"duplicates": duplicates,
	})
}

func summary(id string, rec *invoice.Record) gin.H {
	return gin.H{
		"id":                 id,
		"supplier":           rec.Supplier,
		"supplier_reference": rec.SupplierReference,
		"invoice_date":       rec.InvoiceDate.Format("2006-01-02"),
		"total":              rec.Total,
		"is_credit":          rec.IsCredit,
		"warnings":           rec.Warnings,
	}
}
