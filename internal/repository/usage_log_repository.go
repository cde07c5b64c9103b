package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
)

// UsageLogRepo manages usage_logs rows.  Unlike payment_logs and
// reservation_logs, a usage log row is a lightweight status row that is
// updated in place across ready → active → completed → verified; notes
// written along the way are appended, never replaced.
type UsageLogRepo struct{ db *sql.DB }

// NewUsageLogRepo returns a new UsageLogRepo bound to the given database.
func NewUsageLogRepo(db *sql.DB) *UsageLogRepo { return &UsageLogRepo{db: db} }

const usageColumns = `id, reservation_id, facility_id, user_id, action, status, started_at,
    completed_at, duration_minutes, notes, verified_at, verified_by, created_at, updated_at`

func scanUsageLog(row rowScanner) (*model.UsageLog, error) {
    var (
        u          model.UsageLog
        action     string
        status     string
        startedAt  sql.NullTime
        doneAt     sql.NullTime
        duration   sql.NullInt64
        verifiedAt sql.NullTime
        verifiedBy sql.NullInt64
    )
    err := row.Scan(&u.ID, &u.ReservationID, &u.FacilityID, &u.UserID, &action, &status,
        &startedAt, &doneAt, &duration, &u.Notes, &verifiedAt, &verifiedBy,
        &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return nil, err
    }
    u.Action = model.UsageAction(action)
    u.Status = model.UsageStatus(status)
    if startedAt.Valid {
        t := startedAt.Time
        u.StartedAt = &t
    }
    if doneAt.Valid {
        t := doneAt.Time
        u.CompletedAt = &t
    }
    if duration.Valid {
        d := int(duration.Int64)
        u.DurationMinutes = &d
    }
    if verifiedAt.Valid {
        t := verifiedAt.Time
        u.VerifiedAt = &t
    }
    if verifiedBy.Valid {
        v := uint64(verifiedBy.Int64)
        u.VerifiedBy = &v
    }
    return &u, nil
}

// InsertReadyTx creates the confirmed/ready row for a reservation.
func (r *UsageLogRepo) InsertReadyTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    _, err := tx.ExecContext(ctx,
        `INSERT INTO usage_logs (reservation_id, facility_id, user_id, action, status, notes)
         VALUES (?,?,?,'confirmed','ready','')`,
        res.ID, res.FacilityID, res.UserID)
    return err
}

// HasReady reports whether a confirmed usage log row already exists for the
// reservation.  Used to keep the backfill idempotent.
func (r *UsageLogRepo) HasReady(ctx context.Context, reservationID uint64) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM usage_logs WHERE reservation_id = ? AND action = 'confirmed'`,
        reservationID).Scan(&n)
    return n > 0, err
}

// CurrentTx returns the reservation's live usage log row (ready or active)
// locked FOR UPDATE, or (nil, nil) when none exists.
func (r *UsageLogRepo) CurrentTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (*model.UsageLog, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+usageColumns+` FROM usage_logs
         WHERE reservation_id = ? AND status IN ('ready','active')
         ORDER BY id DESC LIMIT 1 FOR UPDATE`, reservationID)
    u, err := scanUsageLog(row)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    return u, err
}

// CompletedExistsTx reports whether a completed (or verified) usage log row
// already exists for the reservation — the idempotency guard for
// completeUsage.
func (r *UsageLogRepo) CompletedExistsTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM usage_logs
         WHERE reservation_id = ? AND status IN ('completed','verified')`,
        reservationID).Scan(&n)
    return n > 0, err
}

// appendNotes builds the notes expression: existing notes are kept and new
// notes are appended after a separator.
const appendNotesExpr = `notes = IF(notes = '' OR notes IS NULL, ?, CONCAT(notes, '; ', ?))`

// StartTx flips a ready row to started/active, stamping the start time and
// appending notes.
func (r *UsageLogRepo) StartTx(ctx context.Context, tx *sql.Tx, logID uint64, now time.Time, notes string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE usage_logs SET action = 'started', status = 'active', started_at = ?,
            `+appendNotesExpr+`, updated_at = NOW() WHERE id = ?`,
        now, notes, notes, logID)
    return err
}

// CompleteTx flips a row to completed/completed with the computed duration,
// appending notes.
func (r *UsageLogRepo) CompleteTx(ctx context.Context, tx *sql.Tx, logID uint64, now time.Time, durationMinutes int, notes string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE usage_logs SET action = 'completed', status = 'completed', completed_at = ?,
            duration_minutes = ?, `+appendNotesExpr+`, updated_at = NOW() WHERE id = ?`,
        now, durationMinutes, notes, notes, logID)
    return err
}

// VerifyTx flips a completed row to verified/verified with verifier
// metadata, appending notes.
func (r *UsageLogRepo) VerifyTx(ctx context.Context, tx *sql.Tx, reservationID, adminID uint64, now time.Time, notes string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE usage_logs SET action = 'verified', status = 'verified', verified_at = ?,
            verified_by = ?, `+appendNotesExpr+`, updated_at = NOW()
         WHERE reservation_id = ? AND status = 'completed'`,
        now, adminID, notes, notes, reservationID)
    return err
}

// StaleActiveTx returns active rows running since before the cutoff,
// locked FOR UPDATE, for the 24-hour auto-complete sweep.
func (r *UsageLogRepo) StaleActiveTx(ctx context.Context, tx *sql.Tx, cutoff time.Time) ([]model.UsageLog, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT `+usageColumns+` FROM usage_logs
         WHERE status = 'active' AND action = 'started' AND started_at < ?
         FOR UPDATE`, cutoff)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.UsageLog, 0)
    for rows.Next() {
        u, err := scanUsageLog(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *u)
    }
    return out, rows.Err()
}

// UsageDetail joins a usage log row with reservation, facility and user
// context for the admin read endpoints.
type UsageDetail struct {
    model.UsageLog
    FacilityName string    `json:"facility_name"`
    UserName     string    `json:"user_name"`
    StartTime    time.Time `json:"reservation_start"`
    EndTime      time.Time `json:"reservation_end"`
}

const usageDetailQuery = `SELECT ul.id, ul.reservation_id, ul.facility_id, ul.user_id,
        ul.action, ul.status, ul.started_at, ul.completed_at, ul.duration_minutes,
        ul.notes, ul.verified_at, ul.verified_by, ul.created_at, ul.updated_at,
        f.name, u.full_name, r.start_time, r.end_time
    FROM usage_logs ul
    JOIN reservations r ON r.id = ul.reservation_id
    JOIN facilities f ON f.id = ul.facility_id
    JOIN users u ON u.id = ul.user_id`

// CurrentUsage returns all active usage rows with display context.
func (r *UsageLogRepo) CurrentUsage(ctx context.Context) ([]UsageDetail, error) {
    return r.listDetails(ctx, usageDetailQuery+` WHERE ul.status = 'active' ORDER BY ul.started_at ASC`)
}

// ReadyUsage returns all ready usage rows with display context.
func (r *UsageLogRepo) ReadyUsage(ctx context.Context) ([]UsageDetail, error) {
    return r.listDetails(ctx, usageDetailQuery+` WHERE ul.status = 'ready' ORDER BY r.start_time ASC`)
}

// PendingVerifications returns completed-but-unverified usage rows.
func (r *UsageLogRepo) PendingVerifications(ctx context.Context) ([]UsageDetail, error) {
    return r.listDetails(ctx, usageDetailQuery+` WHERE ul.status = 'completed' ORDER BY ul.completed_at ASC`)
}

// History returns the usage rows for one reservation, oldest first.
func (r *UsageLogRepo) History(ctx context.Context, reservationID uint64) ([]UsageDetail, error) {
    return r.listDetails(ctx, usageDetailQuery+` WHERE ul.reservation_id = ? ORDER BY ul.created_at ASC`, reservationID)
}

// UserHistory returns all usage rows for one user, newest first.
func (r *UsageLogRepo) UserHistory(ctx context.Context, userID uint64) ([]UsageDetail, error) {
    return r.listDetails(ctx, usageDetailQuery+` WHERE ul.user_id = ? ORDER BY ul.created_at DESC`, userID)
}

// AllHistory returns every usage row, newest first.
func (r *UsageLogRepo) AllHistory(ctx context.Context) ([]UsageDetail, error) {
    return r.listDetails(ctx, usageDetailQuery+` ORDER BY ul.created_at DESC`)
}

// listDetails runs a usage detail query.  These are presentation reads:
// when the underlying schema lacks the optional columns or tables the
// query needs, they return an empty result instead of failing the page.
func (r *UsageLogRepo) listDetails(ctx context.Context, query string, args ...interface{}) ([]UsageDetail, error) {
    out := make([]UsageDetail, 0)
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return out, nil
    }
    defer rows.Close()
    for rows.Next() {
        var (
            d          UsageDetail
            action     string
            status     string
            startedAt  sql.NullTime
            doneAt     sql.NullTime
            duration   sql.NullInt64
            verifiedAt sql.NullTime
            verifiedBy sql.NullInt64
        )
        if err := rows.Scan(&d.ID, &d.ReservationID, &d.FacilityID, &d.UserID,
            &action, &status, &startedAt, &doneAt, &duration, &d.Notes,
            &verifiedAt, &verifiedBy, &d.CreatedAt, &d.UpdatedAt,
            &d.FacilityName, &d.UserName, &d.StartTime, &d.EndTime); err != nil {
            return out, nil
        }
        d.Action = model.UsageAction(action)
        d.Status = model.UsageStatus(status)
        if startedAt.Valid {
            t := startedAt.Time
            d.StartedAt = &t
        }
        if doneAt.Valid {
            t := doneAt.Time
            d.CompletedAt = &t
        }
        if duration.Valid {
            n := int(duration.Int64)
            d.DurationMinutes = &n
        }
        if verifiedAt.Valid {
            t := verifiedAt.Time
            d.VerifiedAt = &t
        }
        if verifiedBy.Valid {
            v := uint64(verifiedBy.Int64)
            d.VerifiedBy = &v
        }
        out = append(out, d)
    }
    return out, nil
}
