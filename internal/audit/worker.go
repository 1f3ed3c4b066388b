package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Outbox is the read side of OutboxStore used by the Worker.
type Outbox interface {
	Pending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Producer delivers outbox entries to the message broker.
type Producer interface {
	Publish(ctx context.Context, entries []OutboxEntry) error
}

// Worker drains the outbox on a ticker. Entries are marked published only
// after the producer acknowledged the whole batch, so delivery is
// at-least-once.
type Worker struct {
	outbox   Outbox
	producer Producer
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewWorker(outbox Outbox, producer Producer, interval time.Duration, batch int, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &Worker{outbox: outbox, producer: producer, interval: interval, batch: batch, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := w.DrainOnce(ctx)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err)
					}
					break
				}
				if n < w.batch {
					break
				}
			}
		}
	}
}

// DrainOnce publishes one batch and returns how many entries it delivered.
func (w *Worker) DrainOnce(ctx context.Context) (int, error) {
	entries, err := w.outbox.Pending(ctx, w.batch)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := w.producer.Publish(ctx, entries); err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	if err := w.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	w.logger.DebugContext(ctx, "audit outbox drained", "count", len(entries))
	return len(entries), nil
}
