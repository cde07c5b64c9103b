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

// PaymentManager owns reservation creation, the payment-slip lifecycle,
// verification decisions, the expiration sweep and waitlist admission on
// vacancy.  Its primitives propagate errors to the caller, which is
// expected to translate them into user-facing messages.
type PaymentManager struct {
    db           *sql.DB
    reservations *repository.ReservationRepo
    facilities   *repository.FacilityRepo
    waitlist     *repository.WaitlistRepo
    logs         *repository.AuditLogRepo
    notifier
}

// NewPaymentManager constructs a PaymentManager with the provided
// repositories.  All dependencies must be non-nil.
func NewPaymentManager(db *sql.DB, reservations *repository.ReservationRepo, facilities *repository.FacilityRepo, waitlist *repository.WaitlistRepo, logs *repository.AuditLogRepo, users *repository.UserRepo, outbox *repository.OutboxRepo) *PaymentManager {
    if db == nil || reservations == nil || facilities == nil || waitlist == nil || logs == nil || users == nil || outbox == nil {
        panic("nil dependency passed to NewPaymentManager")
    }
    return &PaymentManager{
        db:           db,
        reservations: reservations,
        facilities:   facilities,
        waitlist:     waitlist,
        logs:         logs,
        notifier:     notifier{users: users, outbox: outbox},
    }
}

// audit appends a payment_logs row, swallowing failures so the audit
// trail can never abort the primary operation.
func (m *PaymentManager) audit(ctx context.Context, tx *sql.Tx, reservationID uint64, action string, adminID *uint64, notes string) {
    if err := m.logs.AppendPaymentTx(ctx, tx, reservationID, action, adminID, notes); err != nil {
        log.Printf("payment-manager: audit %s for reservation %d failed: %v", action, reservationID, err)
    }
}

// CreateReservationInput carries the booking request.  AmountCents may be
// zero, in which case the total is computed from the facility's hourly
// rate and the half-hour rounding rule.
type CreateReservationInput struct {
    UserID        uint64
    FacilityID    uint64
    Start         time.Time
    End           time.Time
    Purpose       string
    AmountCents   int64
    ContactPhone  string
    BookingType   model.BookingType
    DurationHours int
}

// CreateReservation inserts a reservation with status pending, payment
// pending and a payment deadline 24 hours out, appends a created audit
// row and enqueues the booking confirmation.  Runs inside one
// transaction; any failure rolls back and propagates.
func (m *PaymentManager) CreateReservation(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
    if !in.End.After(in.Start) {
        return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
    }
    now := time.Now().UTC()
    if in.Start.Before(now) {
        return nil, fmt.Errorf("%w: start time must be in the future", ErrValidation)
    }
    if !in.BookingType.Valid() {
        return nil, fmt.Errorf("%w: unknown booking type %q", ErrValidation, in.BookingType)
    }

    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    facility, err := m.facilities.GetByIDTx(ctx, tx, in.FacilityID)
    if err != nil {
        return nil, err
    }
    if !facility.IsActive {
        return nil, fmt.Errorf("%w: facility is not open for booking", ErrValidation)
    }
    taken, err := m.reservations.OverlapExistsTx(ctx, tx, in.FacilityID, in.Start, in.End, 0)
    if err != nil {
        return nil, err
    }
    if taken {
        return nil, repository.ErrConflict
    }

    amount := in.AmountCents
    if amount == 0 {
        amount = CalculateCostCents(in.Start, in.End, facility.HourlyRateCents)
    }
    res := &model.Reservation{
        UserID:           in.UserID,
        FacilityID:       in.FacilityID,
        StartTime:        in.Start,
        EndTime:          in.End,
        BookingType:      in.BookingType,
        DurationHours:    in.DurationHours,
        Purpose:          in.Purpose,
        TotalAmountCents: amount,
        ContactPhone:     in.ContactPhone,
        Status:           model.StatusPending,
        PaymentStatus:    model.PaymentPending,
        PaymentDueAt:     now.Add(paymentDueWindow),
    }
    if err := m.reservations.CreateTx(ctx, tx, res); err != nil {
        return nil, err
    }
    m.audit(ctx, tx, res.ID, "created", nil, in.Purpose)
    m.notifyUserTx(ctx, tx, res.UserID, res.ID, queue.KindReservationConfirmation, map[string]interface{}{
        "facility_name":  facility.Name,
        "start_time":     res.StartTime.Format(time.RFC3339),
        "end_time":       res.EndTime.Format(time.RFC3339),
        "total_cents":    res.TotalAmountCents,
        "payment_due_at": res.PaymentDueAt.Format(time.RFC3339),
    })

    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return res, nil
}

// UploadPaymentSlip records payment evidence on a reservation whose
// payment is still pending.  Returns false (and does nothing) when the
// payment is no longer pending.  Verification is always a separate
// manual admin step; nothing here approves the payment.
func (m *PaymentManager) UploadPaymentSlip(ctx context.Context, reservationID uint64, slipRef string) (bool, error) {
    if slipRef == "" {
        return false, fmt.Errorf("%w: evidence reference required", ErrValidation)
    }
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := m.reservations.GetTx(ctx, tx, reservationID)
    if err != nil {
        return false, err
    }
    if res.PaymentStatus != model.PaymentPending {
        return false, nil
    }
    if err := m.reservations.SetPaymentSlipTx(ctx, tx, reservationID, slipRef); err != nil {
        return false, err
    }
    m.audit(ctx, tx, reservationID, "uploaded", nil, slipRef)

    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return true, nil
}

// VerifyPayment applies an admin's verification decision.  Approval moves
// the reservation to paid/confirmed and stamps the verifier; rejection
// resets it to pending/pending so the user can upload a new slip.
// Returns false when the reservation does not exist or is not in a state
// the decision applies to.
func (m *PaymentManager) VerifyPayment(ctx context.Context, reservationID, adminID uint64, approved bool, notes string) (bool, error) {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := m.reservations.GetTx(ctx, tx, reservationID)
    if err == repository.ErrNotFound {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    if res.PaymentStatus != model.PaymentPending {
        return false, nil
    }

    now := time.Now().UTC()
    if approved {
        if !res.Status.CanTransitionTo(model.StatusConfirmed) {
            return false, nil
        }
        if err := m.reservations.SetPaymentVerifiedTx(ctx, tx, reservationID, adminID, now); err != nil {
            return false, err
        }
        m.audit(ctx, tx, reservationID, "verified", &adminID, notes)
        m.notifyUserTx(ctx, tx, res.UserID, res.ID, queue.KindPaymentConfirmed, map[string]interface{}{
            "start_time":  res.StartTime.Format(time.RFC3339),
            "end_time":    res.EndTime.Format(time.RFC3339),
            "total_cents": res.TotalAmountCents,
        })
    } else {
        if err := m.reservations.SetPaymentRejectedTx(ctx, tx, reservationID); err != nil {
            return false, err
        }
        m.audit(ctx, tx, reservationID, "rejected", &adminID, notes)
    }

    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    return true, nil
}

// CheckExpiredPayments bulk-expires every reservation whose payment
// deadline has passed while still pending, evaluates the waitlist for
// each vacated slot and returns the count transitioned.  The status
// predicate excludes already-expired rows, so repeated invocations are
// idempotent.
func (m *PaymentManager) CheckExpiredPayments(ctx context.Context) (int, error) {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    now := time.Now().UTC()
    expired, err := m.reservations.ExpirePaymentsTx(ctx, tx, now)
    if err != nil {
        return 0, err
    }
    for i := range expired {
        res := &expired[i]
        if err := m.processWaitlistForExpiredSlotTx(ctx, tx, res.FacilityID, res.StartTime, res.EndTime); err != nil {
            return 0, err
        }
        m.audit(ctx, tx, res.ID, "expired", nil, "payment deadline passed")
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return len(expired), nil
}

// MarkAsNoShow transitions a confirmed reservation whose user never
// showed up.  The slot is vacated for the waitlist and the user is told.
func (m *PaymentManager) MarkAsNoShow(ctx context.Context, reservationID, adminID uint64) error {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := m.reservations.GetTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    if !res.Status.CanTransitionTo(model.StatusNoShow) {
        return fmt.Errorf("%w: cannot mark %s reservation as no-show", ErrInvalidTransition, res.Status)
    }
    if err := m.reservations.SetStatusTx(ctx, tx, reservationID, model.StatusNoShow); err != nil {
        return err
    }
    m.notifyUserTx(ctx, tx, res.UserID, res.ID, queue.KindNoShowNotification, map[string]interface{}{
        "start_time": res.StartTime.Format(time.RFC3339),
        "end_time":   res.EndTime.Format(time.RFC3339),
    })
    if err := m.processWaitlistForExpiredSlotTx(ctx, tx, res.FacilityID, res.StartTime, res.EndTime); err != nil {
        return err
    }
    m.audit(ctx, tx, reservationID, "no_show", &adminID, "")

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// processWaitlistForExpiredSlotTx promotes at most one waiting entry for
// the vacated (facility, start, end) triple to notified and tells the
// user the slot opened up.  It never creates a reservation on the user's
// behalf.
func (m *PaymentManager) processWaitlistForExpiredSlotTx(ctx context.Context, tx *sql.Tx, facilityID uint64, start, end time.Time) error {
    entry, err := m.waitlist.PromoteTopTx(ctx, tx, facilityID, start, end)
    if err != nil {
        return err
    }
    if entry == nil {
        return nil
    }
    m.notifyUserTx(ctx, tx, entry.UserID, 0, queue.KindAdminNotification, map[string]interface{}{
        "event":       "waitlist_slot_available",
        "facility_id": facilityID,
        "start_time":  start.Format(time.RFC3339),
        "end_time":    end.Format(time.RFC3339),
    })
    return nil
}

// AddToWaitlist records a user's standing desire for a facility+interval.
// The uniqueness invariant (one waiting entry per user and slot) is
// enforced by the repository; duplicates surface as repository.ErrConflict.
func (m *PaymentManager) AddToWaitlist(ctx context.Context, userID, facilityID uint64, start, end time.Time) (*model.WaitlistEntry, error) {
    if !end.After(start) {
        return nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
    }
    entry := &model.WaitlistEntry{
        UserID:           userID,
        FacilityID:       facilityID,
        DesiredStartTime: start,
        DesiredEndTime:   end,
    }
    if err := m.waitlist.Add(ctx, entry); err != nil {
        return nil, err
    }
    return entry, nil
}

// RemoveFromWaitlist deletes a waiting entry owned by the user.
func (m *PaymentManager) RemoveFromWaitlist(ctx context.Context, entryID, userID uint64) error {
    return m.waitlist.Remove(ctx, entryID, userID)
}

// GetUserWaitlist lists the user's waitlist entries.
func (m *PaymentManager) GetUserWaitlist(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
    return m.waitlist.ListByUser(ctx, userID)
}

// GetGracePeriodStatus returns the read-only expedited-approval signal
// for a reservation owned by the given user.  It never mutates state and
// never approves anything; foreign reservations surface as ErrNotFound.
func (m *PaymentManager) GetGracePeriodStatus(ctx context.Context, reservationID, userID uint64) (GracePeriodStatus, error) {
    res, err := m.reservations.GetForUser(ctx, reservationID, userID)
    if err != nil {
        return GracePeriodStatus{}, err
    }
    now := time.Now().UTC()
    return GracePeriodStatus{
        Eligible:      WithinGracePeriod(res, now),
        Verified:      res.PaymentStatus == model.PaymentPaid,
        HasSlip:       res.PaymentSlip != nil,
        WindowOpensAt: res.StartTime.Add(-gracePeriodWindow),
    }, nil
}

// PendingVerifications lists reservations waiting for a payment decision,
// each flagged with its grace-period eligibility.
func (m *PaymentManager) PendingVerifications(ctx context.Context) ([]PendingVerification, error) {
    details, err := m.reservations.ListPendingPayments(ctx)
    if err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    out := make([]PendingVerification, 0, len(details))
    for i := range details {
        out = append(out, PendingVerification{
            ReservationDetail: details[i],
            GracePeriod:       WithinGracePeriod(&details[i].Reservation, now),
        })
    }
    return out, nil
}

// PendingVerification is a pending payment joined with its advisory
// grace-period flag for the admin queue.
type PendingVerification struct {
    repository.ReservationDetail
    GracePeriod bool `json:"grace_period"`
}
