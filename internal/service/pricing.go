package service

import (
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
)

// CalculateCostCents prices an interval at the facility's hourly rate.
// Billing is in half-hour steps, rounded up and never down: any remainder
// beyond a whole hour is charged as exactly half an hour.  A 1h01m booking
// at 10000 cents/h therefore costs 15000, while exactly 2h costs 20000.
func CalculateCostCents(start, end time.Time, hourlyRateCents int64) int64 {
    if !end.After(start) {
        return 0
    }
    mins := int64(end.Sub(start) / time.Minute)
    halfHours := (mins / 60) * 2
    if mins%60 != 0 {
        halfHours++
    }
    return hourlyRateCents * halfHours / 2
}

// RefundPercent returns the refund tier for a cancellation happening
// untilStart before the reserved start time.  Boundaries are inclusive on
// the higher tier: exactly 24h out refunds 100%.
func RefundPercent(untilStart time.Duration) int {
    switch {
    case untilStart >= 24*time.Hour:
        return 100
    case untilStart >= 12*time.Hour:
        return 75
    case untilStart >= 6*time.Hour:
        return 50
    case untilStart >= 2*time.Hour:
        return 25
    default:
        return 0
    }
}

// RefundCents computes the refund amount for a tier.
func RefundCents(totalCents int64, percent int) int64 {
    return totalCents * int64(percent) / 100
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any
// instant.  Back-to-back intervals touching only at a boundary do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Deadlines and windows of the reservation lifecycle.
const (
    paymentDueWindow    = 24 * time.Hour   // payment due after creation
    cancelCutoff        = 24 * time.Hour   // cancellation closes before start
    rescheduleCutoff    = 2 * time.Hour    // reschedule closes before start
    extensionGrace      = 30 * time.Minute // extension allowed until end + grace
    gracePeriodWindow   = 2 * time.Hour    // expedited approval window before start
    staleUsageThreshold = 24 * time.Hour   // active usage force-completed after this
)

// canBeCancelled reports whether the reservation may still be cancelled at
// now, returning a user-facing reason when it cannot.
func canBeCancelled(res *model.Reservation, now time.Time) (bool, string) {
    if res.Status.Terminal() {
        return false, "reservation is already " + string(res.Status)
    }
    if res.UsageStartedAt != nil {
        return false, "usage has already started"
    }
    deadline := res.StartTime.Add(-cancelCutoff)
    if now.After(deadline) {
        return false, "cancellation deadline passed at " + deadline.UTC().Format(time.RFC3339)
    }
    return true, ""
}

// canBeRescheduled reports whether the reservation may still be moved at
// now, returning a user-facing reason when it cannot.
func canBeRescheduled(res *model.Reservation, now time.Time) (bool, string) {
    if res.Status.Terminal() {
        return false, "reservation is already " + string(res.Status)
    }
    if res.UsageStartedAt != nil {
        return false, "usage has already started"
    }
    deadline := res.StartTime.Add(-rescheduleCutoff)
    if now.After(deadline) {
        return false, "reschedule deadline passed at " + deadline.UTC().Format(time.RFC3339)
    }
    return true, ""
}

// canBeExtended reports whether the reservation may still be extended at
// now, returning a user-facing reason when it cannot.  Extension remains
// open for a short grace window after the booked end.
func canBeExtended(res *model.Reservation, now time.Time) (bool, string) {
    if res.Status.Terminal() {
        return false, "reservation is already " + string(res.Status)
    }
    deadline := res.EndTime.Add(extensionGrace)
    if now.After(deadline) {
        return false, "extension window closed at " + deadline.UTC().Format(time.RFC3339)
    }
    return true, ""
}

// WithinGracePeriod reports whether the reservation qualifies for
// expedited manual payment approval: either the payment is already
// verified, or evidence has been uploaded and now is within two hours of
// the start (including any time after the start).  This is a read-only
// advisory signal for the admin queue; it never approves anything by
// itself.
func WithinGracePeriod(res *model.Reservation, now time.Time) bool {
    if res.PaymentStatus == model.PaymentPaid {
        return true
    }
    if res.PaymentSlip == nil {
        return false
    }
    return !now.Before(res.StartTime.Add(-gracePeriodWindow))
}

// GracePeriodStatus describes the grace-period signal for admin display.
type GracePeriodStatus struct {
    Eligible      bool      `json:"eligible"`
    Verified      bool      `json:"verified"`
    HasSlip       bool      `json:"has_slip"`
    WindowOpensAt time.Time `json:"window_opens_at"`
}
