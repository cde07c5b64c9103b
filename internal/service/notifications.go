package service

import (
    "context"
    "database/sql"
    "encoding/json"
    "log"

    "github.com/iliyamo/facility-reservation/internal/repository"
)

// notifier enqueues notification rows into the transactional outbox.
// Enqueue problems are logged and swallowed: a notification must never
// block or fail the lifecycle transition it announces.
type notifier struct {
    users  *repository.UserRepo
    outbox *repository.OutboxRepo
}

// notifyUserTx enqueues a notification of the given kind for a user,
// within the caller's transaction.  The payload is marshalled to JSON for
// the delivery worker.
func (n *notifier) notifyUserTx(ctx context.Context, tx *sql.Tx, userID, reservationID uint64, kind string, payload map[string]interface{}) {
    u, err := n.users.GetByID(ctx, userID)
    if err != nil {
        log.Printf("notify: lookup user %d for %s failed: %v", userID, kind, err)
        return
    }
    body, err := json.Marshal(payload)
    if err != nil {
        log.Printf("notify: marshal payload for %s failed: %v", kind, err)
        return
    }
    msg := &repository.OutboxMessage{
        ReservationID:  reservationID,
        Kind:           kind,
        RecipientEmail: u.Email,
        RecipientName:  u.FullName,
        Payload:        body,
    }
    if err := n.outbox.EnqueueTx(ctx, tx, msg); err != nil {
        log.Printf("notify: enqueue %s for reservation %d failed: %v", kind, reservationID, err)
    }
}
