package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  All state
// transitions happen inside transactions opened by the managers; the
// ...Tx methods here are deliberately thin and unconditional because the
// managers load the row FOR UPDATE and validate preconditions before
// writing.  The bulk sweep statements keep their predicates in SQL so
// repeated runs are idempotent.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `r.id, r.user_id, r.facility_id, r.start_time, r.end_time, r.booking_type, r.duration_hours, r.purpose, r.total_amount_cents, r.contact_phone, r.status, r.payment_status, r.payment_due_at, r.payment_slip, r.verified_by, r.verified_at, r.usage_started_at, r.usage_completed_at, r.cancelled_at, r.cancellation_reason, r.refund_amount_cents, r.refund_percentage, r.original_start_time, r.original_end_time, r.created_at, r.updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
    var (
        res          model.Reservation
        bookingType  string
        status       string
        payStatus    string
        slip         sql.NullString
        verifiedBy   sql.NullInt64
        verifiedAt   sql.NullTime
        usageStarted sql.NullTime
        usageDone    sql.NullTime
        cancelledAt  sql.NullTime
        cancelReason sql.NullString
        origStart    sql.NullTime
        origEnd      sql.NullTime
    )
    err := row.Scan(&res.ID, &res.UserID, &res.FacilityID, &res.StartTime, &res.EndTime,
        &bookingType, &res.DurationHours, &res.Purpose, &res.TotalAmountCents,
        &res.ContactPhone, &status, &payStatus, &res.PaymentDueAt, &slip,
        &verifiedBy, &verifiedAt, &usageStarted, &usageDone, &cancelledAt,
        &cancelReason, &res.RefundCents, &res.RefundPercent, &origStart, &origEnd,
        &res.CreatedAt, &res.UpdatedAt)
    if err != nil {
        return nil, err
    }
    res.BookingType = model.BookingType(bookingType)
    res.Status = model.ReservationStatus(status)
    res.PaymentStatus = model.PaymentStatus(payStatus)
    if slip.Valid {
        s := slip.String
        res.PaymentSlip = &s
    }
    if verifiedBy.Valid {
        v := uint64(verifiedBy.Int64)
        res.VerifiedBy = &v
    }
    if verifiedAt.Valid {
        t := verifiedAt.Time
        res.VerifiedAt = &t
    }
    if usageStarted.Valid {
        t := usageStarted.Time
        res.UsageStartedAt = &t
    }
    if usageDone.Valid {
        t := usageDone.Time
        res.UsageCompletedAt = &t
    }
    if cancelledAt.Valid {
        t := cancelledAt.Time
        res.CancelledAt = &t
    }
    if cancelReason.Valid {
        s := cancelReason.String
        res.CancellationReason = &s
    }
    if origStart.Valid {
        t := origStart.Time
        res.OriginalStartTime = &t
    }
    if origEnd.Valid {
        t := origEnd.Time
        res.OriginalEndTime = &t
    }
    return &res, nil
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID on the provided record.
// The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    const q = `INSERT INTO reservations
        (user_id, facility_id, start_time, end_time, booking_type, duration_hours,
         purpose, total_amount_cents, contact_phone, status, payment_status, payment_due_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
    result, err := tx.ExecContext(ctx, q, res.UserID, res.FacilityID, res.StartTime,
        res.EndTime, string(res.BookingType), res.DurationHours, res.Purpose,
        res.TotalAmountCents, res.ContactPhone, string(res.Status),
        string(res.PaymentStatus), res.PaymentDueAt)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    return nil
}

// Get returns a reservation by ID outside of any transaction.  ErrNotFound
// is returned when the row is absent.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ?`, id)
    res, err := scanReservation(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return res, err
}

// GetForUser returns a reservation scoped to the owning user, outside of
// any transaction.  Rows owned by other users surface as ErrNotFound.
func (r *ReservationRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ? AND r.user_id = ?`, id, userID)
    res, err := scanReservation(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return res, err
}

// GetTx loads a reservation FOR UPDATE so the caller's transaction holds
// the row lock while it validates and applies a transition.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ? FOR UPDATE`, id)
    res, err := scanReservation(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return res, err
}

// GetForUserTx is GetTx scoped to the owning user.  Rows owned by other
// users surface as ErrNotFound so callers cannot probe foreign bookings.
func (r *ReservationRepo) GetForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (*model.Reservation, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = ? AND r.user_id = ? FOR UPDATE`, id, userID)
    res, err := scanReservation(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return res, err
}

// SetPaymentSlipTx records the uploaded payment evidence reference.
func (r *ReservationRepo) SetPaymentSlipTx(ctx context.Context, tx *sql.Tx, id uint64, slipRef string) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET payment_slip = ?, updated_at = NOW() WHERE id = ?`, slipRef, id)
    return err
}

// SetPaymentVerifiedTx marks the payment approved: paid + confirmed with
// verifier metadata.
func (r *ReservationRepo) SetPaymentVerifiedTx(ctx context.Context, tx *sql.Tx, id, adminID uint64, now time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET payment_status = 'paid', status = 'confirmed',
            verified_by = ?, verified_at = ?, updated_at = NOW() WHERE id = ?`,
        adminID, now, id)
    return err
}

// SetPaymentRejectedTx resets a rejected payment back to pending/pending and
// clears any verifier metadata so the user may upload a new slip.
func (r *ReservationRepo) SetPaymentRejectedTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET payment_status = 'pending', status = 'pending',
            verified_by = NULL, verified_at = NULL, updated_at = NOW() WHERE id = ?`, id)
    return err
}

// SetStatusTx updates only the lifecycle status.
func (r *ReservationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.ReservationStatus) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = ?, updated_at = NOW() WHERE id = ?`, string(status), id)
    return err
}

// CancelTx applies a cancellation: terminal status plus the audit fields.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time, reason string, refundCents int64, refundPercent int) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = 'cancelled', cancelled_at = ?,
            cancellation_reason = ?, refund_amount_cents = ?, refund_percentage = ?,
            updated_at = NOW() WHERE id = ?`,
        now, reason, refundCents, refundPercent, id)
    return err
}

// RescheduleTx moves a reservation to a new interval, recording the
// pre-change interval and the recomputed total.
func (r *ReservationRepo) RescheduleTx(ctx context.Context, tx *sql.Tx, id uint64, newStart, newEnd, origStart, origEnd time.Time, newTotalCents int64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET start_time = ?, end_time = ?,
            original_start_time = ?, original_end_time = ?, total_amount_cents = ?,
            updated_at = NOW() WHERE id = ?`,
        newStart, newEnd, origStart, origEnd, newTotalCents, id)
    return err
}

// ExtendTx pushes the end of a reservation out, recording the original end
// and the recomputed total.
func (r *ReservationRepo) ExtendTx(ctx context.Context, tx *sql.Tx, id uint64, newEnd, origEnd time.Time, newTotalCents int64) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET end_time = ?, original_end_time = ?,
            total_amount_cents = ?, updated_at = NOW() WHERE id = ?`,
        newEnd, origEnd, newTotalCents, id)
    return err
}

// StartUsageTx stamps the start of physical usage.
func (r *ReservationRepo) StartUsageTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = 'in_use', usage_started_at = ?, updated_at = NOW()
         WHERE id = ?`, now, id)
    return err
}

// CompleteUsageTx stamps the end of physical usage.
func (r *ReservationRepo) CompleteUsageTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
    _, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = 'completed', usage_completed_at = ?, updated_at = NOW()
         WHERE id = ?`, now, id)
    return err
}

// OverlapExistsTx reports whether any live reservation on the facility
// overlaps [start, end).  Cancelled, expired and no-show rows have vacated
// their slot and do not block.  Back-to-back intervals sharing only a
// boundary instant do not overlap.  excludeID skips the reservation being
// rescheduled or extended.
func (r *ReservationRepo) OverlapExistsTx(ctx context.Context, tx *sql.Tx, facilityID uint64, start, end time.Time, excludeID uint64) (bool, error) {
    const q = `SELECT COUNT(*) FROM reservations
               WHERE facility_id = ? AND id <> ?
                 AND status NOT IN ('cancelled','no_show','expired')
                 AND start_time < ? AND end_time > ?`
    var n int
    if err := tx.QueryRowContext(ctx, q, facilityID, excludeID, end, start).Scan(&n); err != nil {
        return false, err
    }
    return n > 0, nil
}

// ExpirePaymentsTx selects every reservation whose payment deadline has
// passed while still pending, locks the rows, transitions them to
// expired/expired in bulk and returns the rows as they were before the
// update so the caller can evaluate the waitlist for each vacated slot.
// The predicate excludes already-expired rows, so repeated runs are
// idempotent.
func (r *ReservationRepo) ExpirePaymentsTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Reservation, error) {
    const sel = `SELECT ` + reservationColumns + ` FROM reservations r
                 WHERE r.payment_status = 'pending' AND r.payment_due_at < ? AND r.status = 'pending'
                 FOR UPDATE`
    rows, err := tx.QueryContext(ctx, sel, now)
    if err != nil {
        return nil, err
    }
    expired := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            rows.Close()
            return nil, err
        }
        expired = append(expired, *res)
    }
    if err := rows.Err(); err != nil {
        rows.Close()
        return nil, err
    }
    rows.Close()
    if len(expired) == 0 {
        return expired, nil
    }
    ids := make([]interface{}, 0, len(expired))
    placeholders := make([]string, 0, len(expired))
    for _, res := range expired {
        ids = append(ids, res.ID)
        placeholders = append(placeholders, "?")
    }
    upd := `UPDATE reservations SET payment_status = 'expired', status = 'expired', updated_at = NOW()
            WHERE id IN (` + strings.Join(placeholders, ",") + `)`
    if _, err := tx.ExecContext(ctx, upd, ids...); err != nil {
        return nil, err
    }
    return expired, nil
}

// AutoCompleteOverdueTx force-completes reservations that are in use past
// their end time.  Returns the number of rows transitioned.
func (r *ReservationRepo) AutoCompleteOverdueTx(ctx context.Context, tx *sql.Tx, now time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE reservations SET status = 'completed', usage_completed_at = ?, updated_at = NOW()
         WHERE status = 'in_use' AND usage_started_at IS NOT NULL
           AND usage_completed_at IS NULL AND end_time < ?`,
        now, now)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// AutoStartCandidatesTx returns confirmed reservations whose interval
// contains now and which have no active usage log yet, locked FOR UPDATE
// so the sweep can start them within the same transaction.
func (r *ReservationRepo) AutoStartCandidatesTx(ctx context.Context, tx *sql.Tx, now time.Time) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations r
               WHERE r.status = 'confirmed' AND r.start_time <= ? AND r.end_time > ?
                 AND NOT EXISTS (
                     SELECT 1 FROM usage_logs ul
                     WHERE ul.reservation_id = r.id AND ul.status = 'active')
               FOR UPDATE`
    rows, err := tx.QueryContext(ctx, q, now, now)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// ConfirmedWithoutUsageLog returns fully-paid confirmed reservations that
// have no confirmed usage log row yet.  Used by the backfill operation.
func (r *ReservationRepo) ConfirmedWithoutUsageLog(ctx context.Context) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations r
               WHERE r.status = 'confirmed' AND r.payment_status = 'paid'
                 AND NOT EXISTS (
                     SELECT 1 FROM usage_logs ul
                     WHERE ul.reservation_id = r.id AND ul.action = 'confirmed')`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

// ReservationDetail is a reservation joined with its facility name for
// listing endpoints.
type ReservationDetail struct {
    model.Reservation
    FacilityName string `json:"facility_name"`
}

// ListByUser returns all reservations for the given user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
    const q = `SELECT ` + reservationColumns + `, f.name FROM reservations r
               JOIN facilities f ON f.id = r.facility_id
               WHERE r.user_id = ? ORDER BY r.created_at DESC`
    return r.listDetails(ctx, q, userID)
}

// ListPendingPayments returns reservations awaiting payment verification
// (pending status with an uploaded slip), oldest first so admins work the
// queue in order.
func (r *ReservationRepo) ListPendingPayments(ctx context.Context) ([]ReservationDetail, error) {
    const q = `SELECT ` + reservationColumns + `, f.name FROM reservations r
               JOIN facilities f ON f.id = r.facility_id
               WHERE r.status = 'pending' AND r.payment_status = 'pending' AND r.payment_slip IS NOT NULL
               ORDER BY r.created_at ASC`
    return r.listDetails(ctx, q)
}

func (r *ReservationRepo) listDetails(ctx context.Context, query string, args ...interface{}) ([]ReservationDetail, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]ReservationDetail, 0)
    for rows.Next() {
        var (
            res          model.Reservation
            bookingType  string
            status       string
            payStatus    string
            slip         sql.NullString
            verifiedBy   sql.NullInt64
            verifiedAt   sql.NullTime
            usageStarted sql.NullTime
            usageDone    sql.NullTime
            cancelledAt  sql.NullTime
            cancelReason sql.NullString
            origStart    sql.NullTime
            origEnd      sql.NullTime
            facilityName string
        )
        if err := rows.Scan(&res.ID, &res.UserID, &res.FacilityID, &res.StartTime, &res.EndTime,
            &bookingType, &res.DurationHours, &res.Purpose, &res.TotalAmountCents,
            &res.ContactPhone, &status, &payStatus, &res.PaymentDueAt, &slip,
            &verifiedBy, &verifiedAt, &usageStarted, &usageDone, &cancelledAt,
            &cancelReason, &res.RefundCents, &res.RefundPercent, &origStart, &origEnd,
            &res.CreatedAt, &res.UpdatedAt, &facilityName); err != nil {
            return nil, err
        }
        res.BookingType = model.BookingType(bookingType)
        res.Status = model.ReservationStatus(status)
        res.PaymentStatus = model.PaymentStatus(payStatus)
        if slip.Valid {
            s := slip.String
            res.PaymentSlip = &s
        }
        if verifiedBy.Valid {
            v := uint64(verifiedBy.Int64)
            res.VerifiedBy = &v
        }
        if verifiedAt.Valid {
            t := verifiedAt.Time
            res.VerifiedAt = &t
        }
        if usageStarted.Valid {
            t := usageStarted.Time
            res.UsageStartedAt = &t
        }
        if usageDone.Valid {
            t := usageDone.Time
            res.UsageCompletedAt = &t
        }
        if cancelledAt.Valid {
            t := cancelledAt.Time
            res.CancelledAt = &t
        }
        if cancelReason.Valid {
            s := cancelReason.String
            res.CancellationReason = &s
        }
        if origStart.Valid {
            t := origStart.Time
            res.OriginalStartTime = &t
        }
        if origEnd.Valid {
            t := origEnd.Time
            res.OriginalEndTime = &t
        }
        out = append(out, ReservationDetail{Reservation: res, FacilityName: facilityName})
    }
    return out, rows.Err()
}
