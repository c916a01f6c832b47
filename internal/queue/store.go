// Package queue persists parsed invoice records between intake and posting.
// The store is append-only with duplicate suppression: suppliers re-send
// invoices and bookkeepers forward the same e-mail twice, so both the
// inbound message id and the record identity are unique keys.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/invoice"
	"github.com/beanfreaks/invoice-ingest/pkg/database"
)

// ErrDuplicate is returned when the message or record has been seen before.
var ErrDuplicate = errors.New("duplicate")

// Statuses of a queued record.
const (
	StatusPending = "pending"
	StatusPosted  = "posted"
	StatusFailed  = "failed"
)

var migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_queue_tables",
		SQL: `
			CREATE TABLE IF NOT EXISTS inbound_messages (
				message_id TEXT PRIMARY KEY,
				received_at DATETIME NOT NULL
			);
			CREATE TABLE IF NOT EXISTS queued_invoices (
				id TEXT PRIMARY KEY,
				message_id TEXT NOT NULL,
				supplier TEXT NOT NULL,
				dedupe_key TEXT NOT NULL UNIQUE,
				payload TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				sage_id TEXT,
				last_error TEXT,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_queued_invoices_status ON queued_invoices(status);
		`,
	},
}

// Item is one queued invoice record.
type Item struct {
	ID        string
	MessageID string
	Supplier  string
	Record    *invoice.Record
	Status    string
	SageID    string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the sqlite-backed invoice queue.
type Store struct {
	db     *database.DB
	logger *zap.Logger
}

// NewStore opens the queue over the given database, applying schema
// migrations.
func NewStore(db *database.DB, logger *zap.Logger) (*Store, error) {
	if err := database.NewMigrator(db, logger).Run(migrations); err != nil {
		return nil, fmt.Errorf("migrate queue schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// RecordMessage marks an inbound message id as seen. A second delivery of
// the same message returns ErrDuplicate.
func (s *Store) RecordMessage(ctx context.Context, messageID string) error {
	if messageID == "" {
		messageID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO inbound_messages (message_id, received_at) VALUES (?, ?)",
		messageID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("message %s: %w", messageID, ErrDuplicate)
		}
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// Enqueue stores one parsed record. A record with the same supplier
// reference, invoice date and credit flag as an existing row returns
// ErrDuplicate.
func (s *Store) Enqueue(ctx context.Context, messageID, supplier string, rec *invoice.Record) (*Item, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	now := time.Now().UTC()
	item := &Item{
		ID:        uuid.NewString(),
		MessageID: messageID,
		Supplier:  supplier,
		Record:    rec,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queued_invoices (id, message_id, supplier, dedupe_key, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.MessageID, item.Supplier, rec.DedupeKey(), string(payload), item.Status, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("record %s: %w", rec.DedupeKey(), ErrDuplicate)
		}
		return nil, fmt.Errorf("enqueue record: %w", err)
	}

	s.logger.Info("Invoice queued",
		zap.String("id", item.ID),
		zap.String("supplier", supplier),
		zap.String("reference", rec.SupplierReference))
	return item, nil
}

// MarkPosted records a successful Sage posting.
func (s *Store) MarkPosted(ctx context.Context, id, sageID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE queued_invoices SET status = ?, sage_id = ?, last_error = NULL, updated_at = ? WHERE id = ?",
		StatusPosted, sageID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark posted: %w", err)
	}
	return requireRow(res, id)
}

// MarkFailed records a failed Sage posting; the item stays retryable.
func (s *Store) MarkFailed(ctx context.Context, id, cause string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE queued_invoices SET status = ?, last_error = ?, updated_at = ? WHERE id = ?",
		StatusFailed, cause, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("queue item %s not found", id)
	}
	return nil
}

// ListPending returns the records not yet posted to Sage, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, "WHERE status IN (?, ?) ORDER BY created_at", StatusPending, StatusFailed)
}

// ListAll returns every queued record, oldest first.
func (s *Store) ListAll(ctx context.Context) ([]*Item, error) {
	return s.list(ctx, "ORDER BY created_at")
}

func (s *Store) list(ctx context.Context, clause string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message_id, supplier, payload, status,
		       COALESCE(sage_id, ''), COALESCE(last_error, ''), created_at, updated_at
		FROM queued_invoices `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item := &Item{}
		var payload string
		if err := rows.Scan(&item.ID, &item.MessageID, &item.Supplier, &payload,
			&item.Status, &item.SageID, &item.LastError, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan queue row: %w", err)
		}
		rec := &invoice.Record{}
		if err := json.Unmarshal([]byte(payload), rec); err != nil {
			return nil, fmt.Errorf("unmarshal record %s: %w", item.ID, err)
		}
		item.Record = rec
		items = append(items, item)
	}
	return items, rows.Err()
}
