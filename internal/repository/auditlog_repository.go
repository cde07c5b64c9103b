package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/facility-reservation/internal/model"
)

// AuditLogRepo appends rows to the append-only payment_logs and
// reservation_logs tables.  Rows are never updated or deleted; one row is
// written per state-changing action.  Reservation ID zero is the sentinel
// for system-wide events such as sweep runs.
type AuditLogRepo struct{ db *sql.DB }

// NewAuditLogRepo returns a new AuditLogRepo bound to the given database.
func NewAuditLogRepo(db *sql.DB) *AuditLogRepo { return &AuditLogRepo{db: db} }

// AppendPaymentTx writes a payment_logs row within a transaction.
func (r *AuditLogRepo) AppendPaymentTx(ctx context.Context, tx *sql.Tx, reservationID uint64, action string, adminID *uint64, notes string) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO payment_logs (reservation_id, action, admin_id, notes) VALUES (?,?,?,?)`,
        reservationID, action, adminID, notes)
    return err
}

// AppendReservationTx writes a reservation_logs row within a transaction.
func (r *AuditLogRepo) AppendReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64, action string, userID *uint64, notes string) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO reservation_logs (reservation_id, action, user_id, notes) VALUES (?,?,?,?)`,
        reservationID, action, userID, notes)
    return err
}

// ListPaymentLogs returns the payment audit trail for a reservation,
// oldest first.
func (r *AuditLogRepo) ListPaymentLogs(ctx context.Context, reservationID uint64) ([]model.AuditLog, error) {
    return r.list(ctx,
        `SELECT id, reservation_id, action, admin_id, notes, created_at
         FROM payment_logs WHERE reservation_id = ? ORDER BY created_at ASC`, reservationID)
}

// ListReservationLogs returns the reservation audit trail for a
// reservation, oldest first.
func (r *AuditLogRepo) ListReservationLogs(ctx context.Context, reservationID uint64) ([]model.AuditLog, error) {
    return r.list(ctx,
        `SELECT id, reservation_id, action, user_id, notes, created_at
         FROM reservation_logs WHERE reservation_id = ? ORDER BY created_at ASC`, reservationID)
}

func (r *AuditLogRepo) list(ctx context.Context, query string, reservationID uint64) ([]model.AuditLog, error) {
    rows, err := r.db.QueryContext(ctx, query, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.AuditLog, 0)
    for rows.Next() {
        var entry model.AuditLog
        var actor sql.NullInt64
        if err := rows.Scan(&entry.ID, &entry.ReservationID, &entry.Action, &actor, &entry.Notes, &entry.CreatedAt); err != nil {
            return nil, err
        }
        if actor.Valid {
            a := uint64(actor.Int64)
            entry.ActorID = &a
        }
        out = append(out, entry)
    }
    return out, rows.Err()
}
