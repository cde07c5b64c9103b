package service

import (
    "context"
    "database/sql"
    "fmt"
    "log"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/queue"
    "github.com/iliyamo/facility-reservation/internal/repository"
)

// ReservationManager owns the user-facing modifications of an existing
// booking: cancellation with tiered refunds, reschedule and extension.
// Unlike the payment primitives these operations return structured
// results: a failed eligibility check is an answer for the user, not an
// error for the caller.
type ReservationManager struct {
    db           *sql.DB
    reservations *repository.ReservationRepo
    facilities   *repository.FacilityRepo
    logs         *repository.AuditLogRepo
    notifier
}

// NewReservationManager constructs a ReservationManager.
func NewReservationManager(db *sql.DB, reservations *repository.ReservationRepo, facilities *repository.FacilityRepo, logs *repository.AuditLogRepo, users *repository.UserRepo, outbox *repository.OutboxRepo) *ReservationManager {
    if db == nil || reservations == nil || facilities == nil || logs == nil || users == nil || outbox == nil {
        panic("nil dependency passed to NewReservationManager")
    }
    return &ReservationManager{
        db:           db,
        reservations: reservations,
        facilities:   facilities,
        logs:         logs,
        notifier:     notifier{users: users, outbox: outbox},
    }
}

// audit appends a reservation_logs row, swallowing failures.
func (m *ReservationManager) audit(ctx context.Context, tx *sql.Tx, reservationID uint64, action string, userID *uint64, notes string) {
    if err := m.logs.AppendReservationTx(ctx, tx, reservationID, action, userID, notes); err != nil {
        log.Printf("reservation-manager: audit %s for reservation %d failed: %v", action, reservationID, err)
    }
}

// CancelResult reports the outcome of a cancellation attempt.
type CancelResult struct {
    Success       bool   `json:"success"`
    Message       string `json:"message"`
    RefundCents   int64  `json:"refund_cents"`
    RefundPercent int    `json:"refund_percent"`
}

// CancelReservation cancels a booking and computes the tiered refund from
// the time remaining until the start.  Ordinary users can only cancel
// their own reservations and only outside the 24-hour cutoff;
// adminOverride skips both the ownership scope and the deadline check.
// Eligibility failures come back as an unsuccessful result, never as an
// error.
func (m *ReservationManager) CancelReservation(ctx context.Context, reservationID, userID uint64, reason string, adminOverride bool) (CancelResult, error) {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return CancelResult{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var res *model.Reservation
    if adminOverride {
        res, err = m.reservations.GetTx(ctx, tx, reservationID)
    } else {
        res, err = m.reservations.GetForUserTx(ctx, tx, reservationID, userID)
    }
    if err == repository.ErrNotFound {
        return CancelResult{Message: "reservation not found"}, nil
    }
    if err != nil {
        return CancelResult{}, err
    }

    now := time.Now().UTC()
    if !adminOverride {
        if ok, why := canBeCancelled(res, now); !ok {
            return CancelResult{Message: why}, nil
        }
    } else if res.Status.Terminal() {
        return CancelResult{Message: "reservation is already " + string(res.Status)}, nil
    }

    percent := RefundPercent(res.StartTime.Sub(now))
    refund := RefundCents(res.TotalAmountCents, percent)
    if err := m.reservations.CancelTx(ctx, tx, reservationID, now, reason, refund, percent); err != nil {
        return CancelResult{}, err
    }
    m.audit(ctx, tx, reservationID, "cancelled", &userID, reason)
    m.notifyUserTx(ctx, tx, res.UserID, res.ID, queue.KindCancellationConfirmation, map[string]interface{}{
        "start_time":     res.StartTime.Format(time.RFC3339),
        "end_time":       res.EndTime.Format(time.RFC3339),
        "refund_cents":   refund,
        "refund_percent": percent,
        "reason":         reason,
    })

    if err := tx.Commit(); err != nil {
        return CancelResult{}, err
    }
    committed = true
    return CancelResult{
        Success:       true,
        Message:       fmt.Sprintf("reservation cancelled with %d%% refund", percent),
        RefundCents:   refund,
        RefundPercent: percent,
    }, nil
}

// RescheduleResult reports the outcome of a reschedule attempt.  The
// cost delta is signed: positive means additional payment owed, negative
// means a refund is owed.
type RescheduleResult struct {
    Success        bool   `json:"success"`
    Message        string `json:"message"`
    NewTotalCents  int64  `json:"new_total_cents,omitempty"`
    OldTotalCents  int64  `json:"old_total_cents,omitempty"`
    CostDeltaCents int64  `json:"cost_delta_cents"`
}

// RescheduleReservation moves a booking to a new interval.  The new
// interval must be in the future, free of conflicts with other live
// reservations, and requested more than two hours before the current
// start.  The total is recomputed from the facility's hourly rate; the
// pre-change interval is preserved on the row.
func (m *ReservationManager) RescheduleReservation(ctx context.Context, reservationID, userID uint64, newStart, newEnd time.Time, reason string) (RescheduleResult, error) {
    if !newEnd.After(newStart) {
        return RescheduleResult{Message: "new end time must be after new start time"}, nil
    }
    now := time.Now().UTC()
    if newStart.Before(now) {
        return RescheduleResult{Message: "new start time must be in the future"}, nil
    }

    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return RescheduleResult{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := m.reservations.GetForUserTx(ctx, tx, reservationID, userID)
    if err == repository.ErrNotFound {
        return RescheduleResult{Message: "reservation not found"}, nil
    }
    if err != nil {
        return RescheduleResult{}, err
    }
    if ok, why := canBeRescheduled(res, now); !ok {
        return RescheduleResult{Message: why}, nil
    }
    taken, err := m.reservations.OverlapExistsTx(ctx, tx, res.FacilityID, newStart, newEnd, res.ID)
    if err != nil {
        return RescheduleResult{}, err
    }
    if taken {
        return RescheduleResult{Message: "the requested time slot is already booked"}, nil
    }

    facility, err := m.facilities.GetByIDTx(ctx, tx, res.FacilityID)
    if err != nil {
        return RescheduleResult{}, err
    }
    newTotal := CalculateCostCents(newStart, newEnd, facility.HourlyRateCents)
    delta := newTotal - res.TotalAmountCents
    // Preserve the very first interval across repeated reschedules.
    origStart, origEnd := res.StartTime, res.EndTime
    if res.OriginalStartTime != nil {
        origStart = *res.OriginalStartTime
    }
    if res.OriginalEndTime != nil {
        origEnd = *res.OriginalEndTime
    }
    if err := m.reservations.RescheduleTx(ctx, tx, reservationID, newStart, newEnd, origStart, origEnd, newTotal); err != nil {
        return RescheduleResult{}, err
    }
    notes := fmt.Sprintf("moved from %s to %s", res.StartTime.Format(time.RFC3339), newStart.Format(time.RFC3339))
    if reason != "" {
        notes += ": " + reason
    }
    m.audit(ctx, tx, reservationID, "rescheduled", &userID, notes)
    m.notifyUserTx(ctx, tx, res.UserID, res.ID, queue.KindRescheduleConfirmation, map[string]interface{}{
        "old_start_time":   res.StartTime.Format(time.RFC3339),
        "old_end_time":     res.EndTime.Format(time.RFC3339),
        "new_start_time":   newStart.Format(time.RFC3339),
        "new_end_time":     newEnd.Format(time.RFC3339),
        "new_total_cents":  newTotal,
        "old_total_cents":  res.TotalAmountCents,
        "cost_delta_cents": delta,
        "reason":           reason,
    })

    if err := tx.Commit(); err != nil {
        return RescheduleResult{}, err
    }
    committed = true
    return RescheduleResult{
        Success:        true,
        Message:        "reservation rescheduled",
        NewTotalCents:  newTotal,
        OldTotalCents:  res.TotalAmountCents,
        CostDeltaCents: delta,
    }, nil
}

// ExtendResult reports the outcome of an extension attempt.  The
// additional cost is new total minus old total, signed.
type ExtendResult struct {
    Success         bool   `json:"success"`
    Message         string `json:"message"`
    NewTotalCents   int64  `json:"new_total_cents,omitempty"`
    AdditionalCents int64  `json:"additional_cents"`
}

// ExtendReservation pushes the end of a booking out to newEnd.  Only the
// added tail [current end, newEnd) is checked for conflicts; the new
// total is the price of the full (start, newEnd) interval, so the extra
// charge follows the same half-hour rounding as the original booking.
// Extension stays open for thirty minutes past the booked end.
func (m *ReservationManager) ExtendReservation(ctx context.Context, reservationID, userID uint64, newEnd time.Time, reason string) (ExtendResult, error) {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return ExtendResult{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := m.reservations.GetForUserTx(ctx, tx, reservationID, userID)
    if err == repository.ErrNotFound {
        return ExtendResult{Message: "reservation not found"}, nil
    }
    if err != nil {
        return ExtendResult{}, err
    }
    if !newEnd.After(res.EndTime) {
        return ExtendResult{Message: "new end time must be after the current end time"}, nil
    }
    now := time.Now().UTC()
    if ok, why := canBeExtended(res, now); !ok {
        return ExtendResult{Message: why}, nil
    }
    taken, err := m.reservations.OverlapExistsTx(ctx, tx, res.FacilityID, res.EndTime, newEnd, res.ID)
    if err != nil {
        return ExtendResult{}, err
    }
    if taken {
        return ExtendResult{Message: "the facility is booked right after your reservation"}, nil
    }

    facility, err := m.facilities.GetByIDTx(ctx, tx, res.FacilityID)
    if err != nil {
        return ExtendResult{}, err
    }
    newTotal := CalculateCostCents(res.StartTime, newEnd, facility.HourlyRateCents)
    additional := newTotal - res.TotalAmountCents
    origEnd := res.EndTime
    if res.OriginalEndTime != nil {
        origEnd = *res.OriginalEndTime
    }
    if err := m.reservations.ExtendTx(ctx, tx, reservationID, newEnd, origEnd, newTotal); err != nil {
        return ExtendResult{}, err
    }
    notes := fmt.Sprintf("extended from %s to %s", res.EndTime.Format(time.RFC3339), newEnd.Format(time.RFC3339))
    if reason != "" {
        notes += ": " + reason
    }
    m.audit(ctx, tx, reservationID, "extended", &userID, notes)
    m.notifyUserTx(ctx, tx, res.UserID, res.ID, queue.KindExtensionConfirmation, map[string]interface{}{
        "old_end_time":     res.EndTime.Format(time.RFC3339),
        "new_end_time":     newEnd.Format(time.RFC3339),
        "new_total_cents":  newTotal,
        "additional_cents": additional,
        "reason":           reason,
    })

    if err := tx.Commit(); err != nil {
        return ExtendResult{}, err
    }
    committed = true
    return ExtendResult{
        Success:         true,
        Message:         "reservation extended",
        NewTotalCents:   newTotal,
        AdditionalCents: additional,
    }, nil
}

// ListUserReservations returns the user's bookings with facility names,
// newest first.
func (m *ReservationManager) ListUserReservations(ctx context.Context, userID uint64) ([]repository.ReservationDetail, error) {
    return m.reservations.ListByUser(ctx, userID)
}

// GetReservationLogs returns the reservation audit trail, oldest first.
func (m *ReservationManager) GetReservationLogs(ctx context.Context, reservationID uint64) ([]model.AuditLog, error) {
    return m.logs.ListReservationLogs(ctx, reservationID)
}

// GetPaymentLogs returns the payment audit trail, oldest first.
func (m *ReservationManager) GetPaymentLogs(ctx context.Context, reservationID uint64) ([]model.AuditLog, error) {
    return m.logs.ListPaymentLogs(ctx, reservationID)
}
