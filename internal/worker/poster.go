package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/beanfreaks/invoice-ingest/internal/queue"
	"github.com/beanfreaks/invoice-ingest/internal/sage"
)

// Poster drains the invoice queue into Sage on an interval. Failed postings
// stay in the queue and are retried on the next sweep.
type Poster struct {
	store    *queue.Store
	client   *sage.Client
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoster builds the posting worker.
func NewPoster(store *queue.Store, client *sage.Client, interval time.Duration, logger *zap.Logger) *Poster {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poster{
		store:    store,
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Name implements Worker.
func (p *Poster) Name() string { return "sage-poster" }

// Start implements Worker.
func (p *Poster) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sweep(ctx)
			}
		}
	}()
	return nil
}

// Stop implements Worker.
func (p *Poster) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *Poster) sweep(ctx context.Context) {
	items, err := p.store.ListPending(ctx)
	if err != nil {
		p.logger.Error("Failed to list pending invoices", zap.Error(err))
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		sageID, err := p.client.Post(ctx, item.Record)
		if err != nil {
			// Records without a ledger mapping need a human to pick the
			// account; the failed status keeps them visible in the export.
			if errors.Is(err, sage.ErrNoLedgerMapping) {
				p.logger.Warn("Invoice has no ledger mapping, needs manual posting",
					zap.String("id", item.ID),
					zap.String("supplier", item.Supplier),
					zap.String("reference", item.Record.SupplierReference))
			} else {
				p.logger.Error("Failed to post invoice to Sage",
					zap.String("id", item.ID),
					zap.Error(err))
			}
			if err := p.store.MarkFailed(ctx, item.ID, err.Error()); err != nil {
				p.logger.Error("Failed to mark invoice failed", zap.Error(err))
			}
			continue
		}

		if err := p.store.MarkPosted(ctx, item.ID, sageID); err != nil {
			p.logger.Error("Failed to mark invoice posted",
				zap.String("id", item.ID),
				zap.Error(err))
		}
	}
}
