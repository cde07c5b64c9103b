package service

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"

    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/repository"
)

var usageTestCols = []string{
    "id", "reservation_id", "facility_id", "user_id", "action", "status",
    "started_at", "completed_at", "duration_minutes", "notes", "verified_at",
    "verified_by", "created_at", "updated_at",
}

func newUsageManagerWithMock(t *testing.T) (*UsageManager, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock.New: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    m := NewUsageManager(db,
        repository.NewReservationRepo(db),
        repository.NewUsageLogRepo(db),
        repository.NewAuditLogRepo(db))
    return m, mock
}

func confirmedReservation(id uint64) *model.Reservation {
    return &model.Reservation{
        ID: id, UserID: 5, FacilityID: 2,
        StartTime:     baseTime,
        EndTime:       baseTime.Add(2 * time.Hour),
        BookingType:   model.BookingHourly,
        Status:        model.StatusConfirmed,
        PaymentStatus: model.PaymentPaid,
        PaymentDueAt:  baseTime,
    }
}

func TestStartUsage(t *testing.T) {
    t.Run("rejects a second start", func(t *testing.T) {
        m, mock := newUsageManagerWithMock(t)

        res := confirmedReservation(7)
        started := baseTime.Add(5 * time.Minute)
        res.UsageStartedAt = &started

        mock.ExpectBegin()
        mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) FOR UPDATE`).
            WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
        mock.ExpectRollback()

        err := m.StartUsage(context.Background(), 7, 1, "")
        if !errors.Is(err, ErrInvalidTransition) {
            t.Fatalf("expected ErrInvalidTransition, got %v", err)
        }
        if err := mock.ExpectationsWereMet(); err != nil {
            t.Error(err)
        }
    })

    t.Run("rejects a pending reservation", func(t *testing.T) {
        m, mock := newUsageManagerWithMock(t)

        res := confirmedReservation(7)
        res.Status = model.StatusPending
        res.PaymentStatus = model.PaymentPending

        mock.ExpectBegin()
        mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) FOR UPDATE`).
            WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
        mock.ExpectRollback()

        err := m.StartUsage(context.Background(), 7, 1, "")
        if !errors.Is(err, ErrInvalidTransition) {
            t.Fatalf("expected ErrInvalidTransition, got %v", err)
        }
        if err := mock.ExpectationsWereMet(); err != nil {
            t.Error(err)
        }
    })
}

func TestCompleteUsage(t *testing.T) {
    t.Run("rejects a second completion", func(t *testing.T) {
        m, mock := newUsageManagerWithMock(t)

        mock.ExpectBegin()
        mock.ExpectQuery(`status IN \('completed','verified'\)`).
            WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
        mock.ExpectRollback()

        err := m.CompleteUsage(context.Background(), 7, 1, "")
        if !errors.Is(err, ErrInvalidTransition) {
            t.Fatalf("expected ErrInvalidTransition, got %v", err)
        }
        if err := mock.ExpectationsWereMet(); err != nil {
            t.Error(err)
        }
    })

    t.Run("rejects completion without a usage log", func(t *testing.T) {
        m, mock := newUsageManagerWithMock(t)

        res := confirmedReservation(7)
        res.Status = model.StatusInUse
        started := baseTime.Add(5 * time.Minute)
        res.UsageStartedAt = &started

        mock.ExpectBegin()
        mock.ExpectQuery(`status IN \('completed','verified'\)`).
            WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
        mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) FOR UPDATE`).
            WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
        mock.ExpectQuery(`status IN \('ready','active'\)`).
            WillReturnRows(sqlmock.NewRows(usageTestCols))
        mock.ExpectRollback()

        err := m.CompleteUsage(context.Background(), 7, 1, "")
        if !errors.Is(err, ErrInvalidTransition) {
            t.Fatalf("expected ErrInvalidTransition, got %v", err)
        }
        if err := mock.ExpectationsWereMet(); err != nil {
            t.Error(err)
        }
    })
}

func TestVerifyUsageRequiresCompleted(t *testing.T) {
    m, mock := newUsageManagerWithMock(t)

    res := confirmedReservation(7)
    res.Status = model.StatusInUse

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) FOR UPDATE`).
        WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
    mock.ExpectRollback()

    err := m.VerifyUsage(context.Background(), 7, 1, "looks fine")
    if !errors.Is(err, ErrInvalidTransition) {
        t.Fatalf("expected ErrInvalidTransition, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Error(err)
    }
}

func TestAutoStartUsageCountsOnlyStarted(t *testing.T) {
    m, mock := newUsageManagerWithMock(t)

    alreadyStarted := confirmedReservation(11)
    started := baseTime.Add(5 * time.Minute)
    alreadyStarted.UsageStartedAt = &started
    fresh := confirmedReservation(12)

    rows := sqlmock.NewRows(reservationTestCols)
    addReservationRow(rows, alreadyStarted)
    addReservationRow(rows, fresh)

    mock.ExpectBegin()
    mock.ExpectQuery(`WHERE r\.status = 'confirmed' AND r\.start_time`).
        WillReturnRows(rows)
    // Only the fresh reservation is started.
    mock.ExpectExec(`UPDATE reservations SET status = 'in_use'`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(`status IN \('ready','active'\)`).
        WillReturnRows(sqlmock.NewRows(usageTestCols).
            AddRow(21, 12, 2, 5, "confirmed", "ready", nil, nil, nil, "", nil, nil, baseTime, baseTime))
    mock.ExpectExec(`UPDATE usage_logs SET action = 'started'`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`INSERT INTO reservation_logs`).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectCommit()

    n, err := m.AutoStartUsage(context.Background())
    if err != nil {
        t.Fatalf("AutoStartUsage: %v", err)
    }
    if n != 1 {
        t.Errorf("expected 1 start, got %d", n)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Error(err)
    }
}
