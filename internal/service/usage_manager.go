package service

import (
    "context"
    "database/sql"
    "fmt"
    "log"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/repository"
)

// UsageManager tracks physical usage of a facility against its booking:
// start, complete and verify, plus the sweeps that auto-start confirmed
// reservations whose window has opened and auto-complete overdue ones.
// Every transition is mirrored between the reservation row and its
// usage_logs row inside one transaction.
type UsageManager struct {
    db           *sql.DB
    reservations *repository.ReservationRepo
    usageLogs    *repository.UsageLogRepo
    logs         *repository.AuditLogRepo
}

// NewUsageManager constructs a UsageManager.
func NewUsageManager(db *sql.DB, reservations *repository.ReservationRepo, usageLogs *repository.UsageLogRepo, logs *repository.AuditLogRepo) *UsageManager {
    if db == nil || reservations == nil || usageLogs == nil || logs == nil {
        panic("nil dependency passed to NewUsageManager")
    }
    return &UsageManager{db: db, reservations: reservations, usageLogs: usageLogs, logs: logs}
}

func (m *UsageManager) audit(ctx context.Context, tx *sql.Tx, reservationID uint64, action string, adminID *uint64, notes string) {
    if err := m.logs.AppendReservationTx(ctx, tx, reservationID, action, adminID, notes); err != nil {
        log.Printf("usage-manager: audit %s for reservation %d failed: %v", action, reservationID, err)
    }
}

// StartUsage marks the beginning of physical usage for a confirmed
// reservation.  The reservation moves to in_use and its usage log row to
// active.  Starting twice is rejected.
func (m *UsageManager) StartUsage(ctx context.Context, reservationID, adminID uint64, notes string) error {
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
    if res.Status != model.StatusConfirmed {
        return fmt.Errorf("%w: cannot start usage on %s reservation", ErrInvalidTransition, res.Status)
    }
    if res.UsageStartedAt != nil {
        return fmt.Errorf("%w: usage already started", ErrInvalidTransition)
    }

    now := time.Now().UTC()
    if err := m.startTx(ctx, tx, res, now, notes); err != nil {
        return err
    }
    m.audit(ctx, tx, reservationID, "usage_started", &adminID, notes)

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// startTx applies the start transition to both rows.  A missing usage log
// row (pre-backfill bookings) is created on the fly.
func (m *UsageManager) startTx(ctx context.Context, tx *sql.Tx, res *model.Reservation, now time.Time, notes string) error {
    if err := m.reservations.StartUsageTx(ctx, tx, res.ID, now); err != nil {
        return err
    }
    cur, err := m.usageLogs.CurrentTx(ctx, tx, res.ID)
    if err != nil {
        return err
    }
    if cur == nil {
        if err := m.usageLogs.InsertReadyTx(ctx, tx, res); err != nil {
            return err
        }
        if cur, err = m.usageLogs.CurrentTx(ctx, tx, res.ID); err != nil {
            return err
        }
    }
    return m.usageLogs.StartTx(ctx, tx, cur.ID, now, notes)
}

// CompleteUsage marks the end of physical usage.  The duration in minutes
// is computed from the usage log's start stamp.  A usage log row must
// exist; one that is still ready (usage was never explicitly started) is
// started and completed in one step.  Completing twice is rejected by the
// completed-row guard.
func (m *UsageManager) CompleteUsage(ctx context.Context, reservationID, adminID uint64, notes string) error {
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

    done, err := m.usageLogs.CompletedExistsTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    if done {
        return fmt.Errorf("%w: usage already completed", ErrInvalidTransition)
    }

    res, err := m.reservations.GetTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    if res.Status != model.StatusInUse && res.Status != model.StatusConfirmed {
        return fmt.Errorf("%w: cannot complete usage on %s reservation", ErrInvalidTransition, res.Status)
    }

    now := time.Now().UTC()
    cur, err := m.usageLogs.CurrentTx(ctx, tx, reservationID)
    if err != nil {
        return err
    }
    if cur == nil {
        return fmt.Errorf("%w: no usage log exists for this reservation", ErrInvalidTransition)
    }
    if cur.Status == model.UsageReady {
        // Usage was never explicitly started; start it now so the
        // duration has a base.
        if err := m.reservations.StartUsageTx(ctx, tx, reservationID, now); err != nil {
            return err
        }
        if err := m.usageLogs.StartTx(ctx, tx, cur.ID, now, notes); err != nil {
            return err
        }
        started := now
        cur.StartedAt = &started
    }

    startedAt := now
    if cur.StartedAt != nil {
        startedAt = *cur.StartedAt
    } else if res.UsageStartedAt != nil {
        startedAt = *res.UsageStartedAt
    }
    duration := int(now.Sub(startedAt) / time.Minute)
    if duration < 0 {
        duration = 0
    }
    if err := m.reservations.CompleteUsageTx(ctx, tx, reservationID, now); err != nil {
        return err
    }
    if err := m.usageLogs.CompleteTx(ctx, tx, cur.ID, now, duration, notes); err != nil {
        return err
    }
    m.audit(ctx, tx, reservationID, "usage_completed", &adminID, notes)

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// VerifyUsage stamps an admin's confirmation on a completed usage log.
// The reservation must be completed; the verification lives on the usage
// log row only.
func (m *UsageManager) VerifyUsage(ctx context.Context, reservationID, adminID uint64, notes string) error {
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
    if res.Status != model.StatusCompleted {
        return fmt.Errorf("%w: cannot verify usage on %s reservation", ErrInvalidTransition, res.Status)
    }
    now := time.Now().UTC()
    if err := m.usageLogs.VerifyTx(ctx, tx, reservationID, adminID, now, notes); err != nil {
        return err
    }
    m.audit(ctx, tx, reservationID, "usage_verified", &adminID, notes)

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// AutoStartUsage starts every confirmed reservation whose interval
// contains now and which has no active usage yet.  The sweep is
// all-or-nothing: a failure rolls the whole batch back and reports zero.
func (m *UsageManager) AutoStartUsage(ctx context.Context) (int, error) {
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
    candidates, err := m.reservations.AutoStartCandidatesTx(ctx, tx, now)
    if err != nil {
        return 0, err
    }
    started := 0
    for i := range candidates {
        res := &candidates[i]
        if res.UsageStartedAt != nil {
            continue
        }
        if err := m.startTx(ctx, tx, res, now, "auto-started"); err != nil {
            return 0, err
        }
        m.audit(ctx, tx, res.ID, "usage_started", nil, "auto-started")
        started++
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return started, nil
}

// AutoCompleteExpiredUsage runs two completion sweeps and returns the
// combined count: reservations in use past their end time, and active
// usage rows running for more than 24 hours regardless of the booked end
// (a safety net for rows whose reservation fell out of sync).
func (m *UsageManager) AutoCompleteExpiredUsage(ctx context.Context) (int, error) {
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
    overdue, err := m.reservations.AutoCompleteOverdueTx(ctx, tx, now)
    if err != nil {
        return 0, err
    }

    stale, err := m.usageLogs.StaleActiveTx(ctx, tx, now.Add(-staleUsageThreshold))
    if err != nil {
        return 0, err
    }
    for i := range stale {
        u := &stale[i]
        startedAt := now
        if u.StartedAt != nil {
            startedAt = *u.StartedAt
        }
        duration := int(now.Sub(startedAt) / time.Minute)
        if err := m.usageLogs.CompleteTx(ctx, tx, u.ID, now, duration, "auto-completed"); err != nil {
            return 0, err
        }
        if err := m.reservations.CompleteUsageTx(ctx, tx, u.ReservationID, now); err != nil {
            return 0, err
        }
        m.audit(ctx, tx, u.ReservationID, "usage_completed", nil, "auto-completed")
    }

    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return int(overdue) + len(stale), nil
}

// CreateUsageLogsForConfirmedReservations backfills the confirmed/ready
// usage log row for paid, confirmed reservations that predate usage
// tracking.  Safe to run repeatedly.
func (m *UsageManager) CreateUsageLogsForConfirmedReservations(ctx context.Context) (int, error) {
    missing, err := m.reservations.ConfirmedWithoutUsageLog(ctx)
    if err != nil {
        return 0, err
    }
    created := 0
    for i := range missing {
        res := &missing[i]
        exists, err := m.usageLogs.HasReady(ctx, res.ID)
        if err != nil {
            return created, err
        }
        if exists {
            continue
        }
        tx, err := m.db.BeginTx(ctx, nil)
        if err != nil {
            return created, err
        }
        if err := m.usageLogs.InsertReadyTx(ctx, tx, res); err != nil {
            _ = tx.Rollback()
            return created, err
        }
        if err := tx.Commit(); err != nil {
            return created, err
        }
        created++
    }
    return created, nil
}

// CurrentUsage lists active usage rows with display context.
func (m *UsageManager) CurrentUsage(ctx context.Context) ([]repository.UsageDetail, error) {
    return m.usageLogs.CurrentUsage(ctx)
}

// ReadyUsage lists usage rows waiting to be started.
func (m *UsageManager) ReadyUsage(ctx context.Context) ([]repository.UsageDetail, error) {
    return m.usageLogs.ReadyUsage(ctx)
}

// PendingUsageVerifications lists completed-but-unverified usage rows.
func (m *UsageManager) PendingUsageVerifications(ctx context.Context) ([]repository.UsageDetail, error) {
    return m.usageLogs.PendingVerifications(ctx)
}

// UsageHistory lists usage rows for one reservation, oldest first.
func (m *UsageManager) UsageHistory(ctx context.Context, reservationID uint64) ([]repository.UsageDetail, error) {
    return m.usageLogs.History(ctx, reservationID)
}

// UserUsageHistory lists all usage rows for one user, newest first.
func (m *UsageManager) UserUsageHistory(ctx context.Context, userID uint64) ([]repository.UsageDetail, error) {
    return m.usageLogs.UserHistory(ctx, userID)
}

// AllUsageHistory lists every usage row, newest first.
func (m *UsageManager) AllUsageHistory(ctx context.Context) ([]repository.UsageDetail, error) {
    return m.usageLogs.AllHistory(ctx)
}

// CountdownInfo describes where a reservation stands relative to its
// booked interval at the time of the query.
type CountdownInfo struct {
    ReservationID    uint64                  `json:"reservation_id"`
    Status           model.ReservationStatus `json:"status"`
    StartTime        time.Time               `json:"start_time"`
    EndTime          time.Time               `json:"end_time"`
    MinutesToStart   int64                   `json:"minutes_to_start"`
    MinutesRemaining int64                   `json:"minutes_remaining"`
    Phase            string                  `json:"phase"`
}

// GetCountdownInfo computes the live countdown for a reservation.  Phase
// is one of upcoming, in_window or ended.
func (m *UsageManager) GetCountdownInfo(ctx context.Context, reservationID uint64) (*CountdownInfo, error) {
    res, err := m.reservations.Get(ctx, reservationID)
    if err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    info := &CountdownInfo{
        ReservationID: res.ID,
        Status:        res.Status,
        StartTime:     res.StartTime,
        EndTime:       res.EndTime,
    }
    switch {
    case now.Before(res.StartTime):
        info.Phase = "upcoming"
        info.MinutesToStart = int64(res.StartTime.Sub(now) / time.Minute)
        info.MinutesRemaining = int64(res.EndTime.Sub(now) / time.Minute)
    case now.Before(res.EndTime):
        info.Phase = "in_window"
        info.MinutesRemaining = int64(res.EndTime.Sub(now) / time.Minute)
    default:
        info.Phase = "ended"
    }
    return info, nil
}
