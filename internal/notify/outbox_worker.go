package notify

import (
    "context"
    "encoding/json"
    "log"
    "time"

    q "github.com/iliyamo/facility-reservation/internal/queue"
    "github.com/iliyamo/facility-reservation/internal/repository"
)

// Worker drains the notification outbox on a fixed cadence.  A message is
// marked sent only after the broker accepted it; failed publishes keep
// the row pending with an incremented attempt counter, so delivery is
// at-least-once and a crash between state commit and send can no longer
// drop a notification.
type Worker struct {
    outbox   *repository.OutboxRepo
    interval time.Duration
    batch    int
}

// NewWorker constructs a Worker polling at the given interval.
func NewWorker(outbox *repository.OutboxRepo, interval time.Duration) *Worker {
    if interval <= 0 {
        interval = 5 * time.Second
    }
    return &Worker{outbox: outbox, interval: interval, batch: 50}
}

// Run polls until the context is cancelled.  It is intended to be started
// in its own goroutine from main.
func (w *Worker) Run(ctx context.Context) {
    ticker := time.NewTicker(w.interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            w.drain(ctx)
        }
    }
}

// drain publishes one batch of pending messages.
func (w *Worker) drain(ctx context.Context) {
    msgs, err := w.outbox.FetchPending(ctx, w.batch)
    if err != nil {
        log.Printf("outbox: fetch pending failed: %v", err)
        return
    }
    for _, m := range msgs {
        ev := q.NotificationEvent{
            Kind:           m.Kind,
            RecipientEmail: m.RecipientEmail,
            RecipientName:  m.RecipientName,
            ReservationID:  m.ReservationID,
            Payload:        json.RawMessage(m.Payload),
            EnqueuedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
        }
        if err := PublishNotification(ctx, ev); err != nil {
            if markErr := w.outbox.MarkFailed(ctx, m.ID, err.Error()); markErr != nil {
                log.Printf("outbox: mark failed id=%d: %v", m.ID, markErr)
            }
            continue
        }
        if err := w.outbox.MarkSent(ctx, m.ID); err != nil {
            // The publish went out; worst case the next poll republishes.
            log.Printf("outbox: mark sent id=%d: %v", m.ID, err)
        }
    }
}
