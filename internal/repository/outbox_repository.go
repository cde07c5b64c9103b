package repository

import (
    "context"
    "database/sql"
    "time"
)

// OutboxMessage is one pending notification row in notification_outbox.
// Messages are enqueued in the same transaction as the state change they
// announce; a background worker publishes them after commit, so delivery
// failures can never roll back or block a lifecycle transition.
type OutboxMessage struct {
    ID             uint64
    ReservationID  uint64
    Kind           string
    RecipientEmail string
    RecipientName  string
    Payload        []byte
    Attempts       int
    CreatedAt      time.Time
}

// OutboxRepo manages the notification_outbox table.
type OutboxRepo struct{ db *sql.DB }

// NewOutboxRepo returns a new OutboxRepo bound to the given database.
func NewOutboxRepo(db *sql.DB) *OutboxRepo { return &OutboxRepo{db: db} }

// EnqueueTx inserts a pending notification within a transaction.
func (r *OutboxRepo) EnqueueTx(ctx context.Context, tx *sql.Tx, msg *OutboxMessage) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO notification_outbox (reservation_id, kind, recipient_email, recipient_name, payload, status)
         VALUES (?,?,?,?,?,'pending')`,
        msg.ReservationID, msg.Kind, msg.RecipientEmail, msg.RecipientName, msg.Payload)
    return err
}

// Enqueue inserts a pending notification outside any transaction.  Used
// for notifications that do not accompany another state change, such as
// welcome and password-reset mails.
func (r *OutboxRepo) Enqueue(ctx context.Context, msg *OutboxMessage) error {
    _, err := r.db.ExecContext(ctx,
        `INSERT INTO notification_outbox (reservation_id, kind, recipient_email, recipient_name, payload, status)
         VALUES (?,?,?,?,?,'pending')`,
        msg.ReservationID, msg.Kind, msg.RecipientEmail, msg.RecipientName, msg.Payload)
    return err
}

// FetchPending returns up to limit pending messages, oldest first.
// Messages that have failed repeatedly are retried too; the worker backs
// off by polling interval, not per message.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT id, reservation_id, kind, recipient_email, recipient_name, payload, attempts, created_at
         FROM notification_outbox WHERE status = 'pending' ORDER BY id ASC LIMIT ?`, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]OutboxMessage, 0)
    for rows.Next() {
        var m OutboxMessage
        if err := rows.Scan(&m.ID, &m.ReservationID, &m.Kind, &m.RecipientEmail,
            &m.RecipientName, &m.Payload, &m.Attempts, &m.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}

// MarkSent stamps a message as delivered.
func (r *OutboxRepo) MarkSent(ctx context.Context, id uint64) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE notification_outbox SET status = 'sent', sent_at = NOW() WHERE id = ?`, id)
    return err
}

// MarkFailed records a delivery failure.  The message stays pending so a
// later poll retries it; only the attempt counter and error text change.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64, cause string) error {
    _, err := r.db.ExecContext(ctx,
        `UPDATE notification_outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
        cause, id)
    return err
}
