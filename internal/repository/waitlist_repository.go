package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
)

// WaitlistRepo manages waitlist entries.  The uniqueness invariant — at
// most one waiting entry per (user, facility, desired interval) — is
// enforced with an existence check before insert.
type WaitlistRepo struct{ db *sql.DB }

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistColumns = `id, user_id, facility_id, desired_start_time, desired_end_time, priority_score, status, created_at, updated_at`

func scanWaitlistEntry(row rowScanner) (*model.WaitlistEntry, error) {
    var w model.WaitlistEntry
    var status string
    err := row.Scan(&w.ID, &w.UserID, &w.FacilityID, &w.DesiredStartTime,
        &w.DesiredEndTime, &w.PriorityScore, &status, &w.CreatedAt, &w.UpdatedAt)
    if err != nil {
        return nil, err
    }
    w.Status = model.WaitlistStatus(status)
    return &w, nil
}

// Add inserts a new waiting entry.  ErrConflict is returned when the user
// already has a waiting entry for the same facility and interval.
func (r *WaitlistRepo) Add(ctx context.Context, entry *model.WaitlistEntry) error {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM waitlist
         WHERE user_id = ? AND facility_id = ? AND desired_start_time = ?
           AND desired_end_time = ? AND status = 'waiting'`,
        entry.UserID, entry.FacilityID, entry.DesiredStartTime, entry.DesiredEndTime).Scan(&n)
    if err != nil {
        return err
    }
    if n > 0 {
        return ErrConflict
    }
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO waitlist (user_id, facility_id, desired_start_time, desired_end_time, priority_score, status)
         VALUES (?,?,?,?,?,'waiting')`,
        entry.UserID, entry.FacilityID, entry.DesiredStartTime, entry.DesiredEndTime, entry.PriorityScore)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    entry.ID = uint64(id)
    entry.Status = model.WaitlistWaiting
    return nil
}

// Remove deletes a waiting entry owned by the given user.  ErrNotFound is
// returned when no such entry exists or it is no longer waiting.
func (r *WaitlistRepo) Remove(ctx context.Context, entryID, userID uint64) error {
    res, err := r.db.ExecContext(ctx,
        `DELETE FROM waitlist WHERE id = ? AND user_id = ? AND status = 'waiting'`,
        entryID, userID)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return ErrNotFound
    }
    return nil
}

// ListByUser returns all waitlist entries for a user, newest first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+waitlistColumns+` FROM waitlist WHERE user_id = ? ORDER BY created_at DESC`,
        userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        w, err := scanWaitlistEntry(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *w)
    }
    return out, rows.Err()
}

// PromoteTopTx selects the single highest-priority waiting entry matching
// exactly the vacated (facility, start, end) triple, ties broken by
// earliest creation, marks it notified and returns it.  It returns
// (nil, nil) when no waiting entry matches.  At most one entry is
// promoted per call.
func (r *WaitlistRepo) PromoteTopTx(ctx context.Context, tx *sql.Tx, facilityID uint64, start, end time.Time) (*model.WaitlistEntry, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+waitlistColumns+` FROM waitlist
         WHERE facility_id = ? AND desired_start_time = ? AND desired_end_time = ?
           AND status = 'waiting'
         ORDER BY priority_score DESC, created_at ASC
         LIMIT 1 FOR UPDATE`,
        facilityID, start, end)
    entry, err := scanWaitlistEntry(row)
    if err == sql.ErrNoRows {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE waitlist SET status = 'notified', updated_at = NOW() WHERE id = ?`,
        entry.ID); err != nil {
        return nil, err
    }
    entry.Status = model.WaitlistNotified
    return entry, nil
}
