package service

import (
    "testing"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
)

func reservationAt(start time.Time, status model.ReservationStatus) *model.Reservation {
    return &model.Reservation{
        Status:    status,
        StartTime: start,
        EndTime:   start.Add(2 * time.Hour),
    }
}

func TestCanBeCancelled(t *testing.T) {
    now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

    t.Run("well before cutoff", func(t *testing.T) {
        res := reservationAt(now.Add(48*time.Hour), model.StatusConfirmed)
        if ok, why := canBeCancelled(res, now); !ok {
            t.Errorf("expected cancellable, got %q", why)
        }
    })

    t.Run("exactly at cutoff", func(t *testing.T) {
        res := reservationAt(now.Add(24*time.Hour), model.StatusConfirmed)
        if ok, why := canBeCancelled(res, now); !ok {
            t.Errorf("expected cancellable at the 24h boundary, got %q", why)
        }
    })

    t.Run("inside cutoff", func(t *testing.T) {
        res := reservationAt(now.Add(23*time.Hour), model.StatusConfirmed)
        if ok, _ := canBeCancelled(res, now); ok {
            t.Error("expected not cancellable inside the 24h window")
        }
    })

    t.Run("already cancelled", func(t *testing.T) {
        res := reservationAt(now.Add(48*time.Hour), model.StatusCancelled)
        if ok, _ := canBeCancelled(res, now); ok {
            t.Error("expected not cancellable when already cancelled")
        }
    })

    t.Run("expired", func(t *testing.T) {
        res := reservationAt(now.Add(48*time.Hour), model.StatusExpired)
        if ok, _ := canBeCancelled(res, now); ok {
            t.Error("expected not cancellable when expired")
        }
    })

    t.Run("usage started", func(t *testing.T) {
        res := reservationAt(now.Add(48*time.Hour), model.StatusConfirmed)
        started := now.Add(-time.Hour)
        res.UsageStartedAt = &started
        if ok, _ := canBeCancelled(res, now); ok {
            t.Error("expected not cancellable once usage started")
        }
    })
}

func TestCanBeRescheduled(t *testing.T) {
    now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

    t.Run("outside cutoff", func(t *testing.T) {
        res := reservationAt(now.Add(3*time.Hour), model.StatusConfirmed)
        if ok, why := canBeRescheduled(res, now); !ok {
            t.Errorf("expected reschedulable, got %q", why)
        }
    })

    t.Run("exactly at cutoff", func(t *testing.T) {
        res := reservationAt(now.Add(2*time.Hour), model.StatusPending)
        if ok, why := canBeRescheduled(res, now); !ok {
            t.Errorf("expected reschedulable at the 2h boundary, got %q", why)
        }
    })

    t.Run("inside cutoff", func(t *testing.T) {
        res := reservationAt(now.Add(time.Hour), model.StatusConfirmed)
        if ok, _ := canBeRescheduled(res, now); ok {
            t.Error("expected not reschedulable inside the 2h window")
        }
    })

    t.Run("completed", func(t *testing.T) {
        res := reservationAt(now.Add(48*time.Hour), model.StatusCompleted)
        if ok, _ := canBeRescheduled(res, now); ok {
            t.Error("expected not reschedulable when completed")
        }
    })

    t.Run("expired", func(t *testing.T) {
        res := reservationAt(now.Add(48*time.Hour), model.StatusExpired)
        if ok, _ := canBeRescheduled(res, now); ok {
            t.Error("expected not reschedulable when expired")
        }
    })
}

func TestCanBeExtended(t *testing.T) {
    now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

    t.Run("during the booking", func(t *testing.T) {
        res := reservationAt(now.Add(-time.Hour), model.StatusInUse)
        if ok, why := canBeExtended(res, now); !ok {
            t.Errorf("expected extendable while in use, got %q", why)
        }
    })

    t.Run("within grace after end", func(t *testing.T) {
        res := reservationAt(now.Add(-3*time.Hour), model.StatusInUse)
        res.EndTime = now.Add(-20 * time.Minute)
        if ok, why := canBeExtended(res, now); !ok {
            t.Errorf("expected extendable within 30m of the end, got %q", why)
        }
    })

    t.Run("past grace", func(t *testing.T) {
        res := reservationAt(now.Add(-4*time.Hour), model.StatusInUse)
        res.EndTime = now.Add(-time.Hour)
        if ok, _ := canBeExtended(res, now); ok {
            t.Error("expected not extendable an hour after the end")
        }
    })

    t.Run("no show", func(t *testing.T) {
        res := reservationAt(now.Add(time.Hour), model.StatusNoShow)
        if ok, _ := canBeExtended(res, now); ok {
            t.Error("expected not extendable for a no-show")
        }
    })

    t.Run("expired", func(t *testing.T) {
        res := reservationAt(now.Add(time.Hour), model.StatusExpired)
        if ok, _ := canBeExtended(res, now); ok {
            t.Error("expected not extendable when expired")
        }
    })
}

func TestWithinGracePeriod(t *testing.T) {
    now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
    slip := "slips/abc.png"

    t.Run("paid is always eligible", func(t *testing.T) {
        res := reservationAt(now.Add(72*time.Hour), model.StatusConfirmed)
        res.PaymentStatus = model.PaymentPaid
        if !WithinGracePeriod(res, now) {
            t.Error("paid reservation should be eligible regardless of timing")
        }
    })

    t.Run("no slip never eligible", func(t *testing.T) {
        res := reservationAt(now.Add(time.Hour), model.StatusPending)
        res.PaymentStatus = model.PaymentPending
        if WithinGracePeriod(res, now) {
            t.Error("unpaid reservation without a slip should not be eligible")
        }
    })

    t.Run("slip inside window", func(t *testing.T) {
        res := reservationAt(now.Add(90*time.Minute), model.StatusPending)
        res.PaymentStatus = model.PaymentPending
        res.PaymentSlip = &slip
        if !WithinGracePeriod(res, now) {
            t.Error("slip within 2h of start should be eligible")
        }
    })

    t.Run("slip outside window", func(t *testing.T) {
        res := reservationAt(now.Add(3*time.Hour), model.StatusPending)
        res.PaymentStatus = model.PaymentPending
        res.PaymentSlip = &slip
        if WithinGracePeriod(res, now) {
            t.Error("slip more than 2h before start should not be eligible yet")
        }
    })

    t.Run("slip after start", func(t *testing.T) {
        res := reservationAt(now.Add(-time.Hour), model.StatusPending)
        res.PaymentStatus = model.PaymentPending
        res.PaymentSlip = &slip
        if !WithinGracePeriod(res, now) {
            t.Error("slip after the start time should still be eligible")
        }
    })
}
