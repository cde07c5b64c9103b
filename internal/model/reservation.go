package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// Values are stored verbatim in reservations.status; only the transitions
// listed in reservationTransitions are legal.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "pending"   // created, awaiting payment
    StatusConfirmed ReservationStatus = "confirmed" // payment verified
    StatusInUse     ReservationStatus = "in_use"    // usage started
    StatusCompleted ReservationStatus = "completed" // usage finished
    StatusCancelled ReservationStatus = "cancelled" // cancelled by user or admin
    StatusExpired   ReservationStatus = "expired"   // payment deadline passed
    StatusNoShow    ReservationStatus = "no_show"   // confirmed but never used
)

// reservationTransitions maps each status to the statuses it may move to.
// Terminal states have no entries.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
    StatusPending:   {StatusConfirmed, StatusCancelled, StatusExpired},
    StatusConfirmed: {StatusInUse, StatusCancelled, StatusNoShow},
    StatusInUse:     {StatusCompleted},
}

// Valid reports whether s is a known reservation status.
func (s ReservationStatus) Valid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusInUse, StatusCompleted,
        StatusCancelled, StatusExpired, StatusNoShow:
        return true
    }
    return false
}

// Terminal reports whether s admits no further transitions.
func (s ReservationStatus) Terminal() bool {
    switch s {
    case StatusCompleted, StatusCancelled, StatusExpired, StatusNoShow:
        return true
    }
    return false
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
    for _, allowed := range reservationTransitions[s] {
        if allowed == next {
            return true
        }
    }
    return false
}

// PaymentStatus enumerates the payment sub-lifecycle of a reservation.
type PaymentStatus string

const (
    PaymentPending PaymentStatus = "pending" // awaiting slip and verification
    PaymentPaid    PaymentStatus = "paid"    // verified by an admin
    PaymentExpired PaymentStatus = "expired" // due date passed unverified
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
    switch p {
    case PaymentPending, PaymentPaid, PaymentExpired:
        return true
    }
    return false
}

// CanTransitionTo reports whether moving from p to next is legal.  Paid and
// expired are terminal.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
    if p != PaymentPending {
        return false
    }
    return next == PaymentPaid || next == PaymentExpired
}

// BookingType distinguishes hourly bookings from fixed packages.
type BookingType string

const (
    BookingHourly BookingType = "hourly"
    BookingFixed  BookingType = "fixed"
)

// Valid reports whether b is a known booking type.
func (b BookingType) Valid() bool { return b == BookingHourly || b == BookingFixed }

// Reservation mirrors the `reservations` table.  A reservation tracks one
// request to occupy a facility for an interval, together with its payment
// and usage sub-lifecycles and the audit fields written by cancellation,
// reschedule and extension.
//
// Fields:
//  ID                 – primary key identifier.
//  UserID             – owning user.
//  FacilityID         – facility being reserved.
//  StartTime, EndTime – reserved interval (always StartTime < EndTime).
//  BookingType        – hourly or fixed.
//  DurationHours      – requested duration for fixed bookings.
//  Purpose            – free-text purpose supplied at booking time.
//  TotalAmountCents   – total price in cents.
//  ContactPhone       – phone supplied at booking time.
//  Status             – reservation lifecycle status.
//  PaymentStatus      – payment sub-status.
//  PaymentDueAt       – deadline for payment; set at creation, never extended.
//  PaymentSlip        – uploaded payment evidence reference (nullable).
//  VerifiedBy         – admin who verified the payment (nullable).
//  VerifiedAt         – when the payment was verified (nullable).
//  UsageStartedAt     – when physical usage began (nullable).
//  UsageCompletedAt   – when physical usage ended (nullable).
//  CancelledAt        – when the reservation was cancelled (nullable).
//  CancellationReason – free-text reason recorded at cancellation.
//  RefundCents        – refund amount computed at cancellation.
//  RefundPercent      – refund tier applied at cancellation.
//  OriginalStartTime  – pre-reschedule start (nullable).
//  OriginalEndTime    – pre-reschedule or pre-extension end (nullable).
//  CreatedAt, UpdatedAt – row timestamps.
type Reservation struct {
    ID                 uint64            `json:"id"`
    UserID             uint64            `json:"user_id"`
    FacilityID         uint64            `json:"facility_id"`
    StartTime          time.Time         `json:"start_time"`
    EndTime            time.Time         `json:"end_time"`
    BookingType        BookingType       `json:"booking_type"`
    DurationHours      int               `json:"duration_hours"`
    Purpose            string            `json:"purpose"`
    TotalAmountCents   int64             `json:"total_amount_cents"`
    ContactPhone       string            `json:"contact_phone"`
    Status             ReservationStatus `json:"status"`
    PaymentStatus      PaymentStatus     `json:"payment_status"`
    PaymentDueAt       time.Time         `json:"payment_due_at"`
    PaymentSlip        *string           `json:"payment_slip,omitempty"`
    VerifiedBy         *uint64           `json:"verified_by,omitempty"`
    VerifiedAt         *time.Time        `json:"verified_at,omitempty"`
    UsageStartedAt     *time.Time        `json:"usage_started_at,omitempty"`
    UsageCompletedAt   *time.Time        `json:"usage_completed_at,omitempty"`
    CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
    CancellationReason *string           `json:"cancellation_reason,omitempty"`
    RefundCents        int64             `json:"refund_amount_cents"`
    RefundPercent      int               `json:"refund_percentage"`
    OriginalStartTime  *time.Time        `json:"original_start_time,omitempty"`
    OriginalEndTime    *time.Time        `json:"original_end_time,omitempty"`
    CreatedAt          time.Time         `json:"created_at"`
    UpdatedAt          time.Time         `json:"updated_at"`
}
