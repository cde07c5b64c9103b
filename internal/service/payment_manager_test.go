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

var reservationTestCols = []string{
    "id", "user_id", "facility_id", "start_time", "end_time", "booking_type",
    "duration_hours", "purpose", "total_amount_cents", "contact_phone", "status",
    "payment_status", "payment_due_at", "payment_slip", "verified_by", "verified_at",
    "usage_started_at", "usage_completed_at", "cancelled_at", "cancellation_reason",
    "refund_amount_cents", "refund_percentage", "original_start_time",
    "original_end_time", "created_at", "updated_at",
}

func strValue(p *string) interface{} {
    if p == nil {
        return nil
    }
    return *p
}

func timeValue(p *time.Time) interface{} {
    if p == nil {
        return nil
    }
    return *p
}

func uintValue(p *uint64) interface{} {
    if p == nil {
        return nil
    }
    return int64(*p)
}

func addReservationRow(rows *sqlmock.Rows, res *model.Reservation) *sqlmock.Rows {
    return rows.AddRow(
        res.ID, res.UserID, res.FacilityID, res.StartTime, res.EndTime,
        string(res.BookingType), res.DurationHours, res.Purpose, res.TotalAmountCents,
        res.ContactPhone, string(res.Status), string(res.PaymentStatus), res.PaymentDueAt,
        strValue(res.PaymentSlip), uintValue(res.VerifiedBy), timeValue(res.VerifiedAt),
        timeValue(res.UsageStartedAt), timeValue(res.UsageCompletedAt),
        timeValue(res.CancelledAt), strValue(res.CancellationReason),
        res.RefundCents, res.RefundPercent, timeValue(res.OriginalStartTime),
        timeValue(res.OriginalEndTime), res.CreatedAt, res.UpdatedAt)
}

func newPaymentManagerWithMock(t *testing.T) (*PaymentManager, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock.New: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    m := NewPaymentManager(db,
        repository.NewReservationRepo(db),
        repository.NewFacilityRepo(db),
        repository.NewWaitlistRepo(db),
        repository.NewAuditLogRepo(db),
        repository.NewUserRepo(db),
        repository.NewOutboxRepo(db))
    return m, mock
}

func TestCheckExpiredPayments(t *testing.T) {
    t.Run("expires and promotes one waitlist entry", func(t *testing.T) {
        m, mock := newPaymentManagerWithMock(t)

        overdue := &model.Reservation{
            ID: 9, UserID: 5, FacilityID: 2,
            StartTime:        baseTime.Add(48 * time.Hour),
            EndTime:          baseTime.Add(50 * time.Hour),
            BookingType:      model.BookingHourly,
            TotalAmountCents: 20000,
            Status:           model.StatusPending,
            PaymentStatus:    model.PaymentPending,
            PaymentDueAt:     baseTime,
        }

        mock.ExpectBegin()
        mock.ExpectQuery(`r\.payment_status = 'pending' AND r\.payment_due_at`).
            WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), overdue))
        mock.ExpectExec(`UPDATE reservations SET payment_status = 'expired'`).
            WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectQuery(`ORDER BY priority_score DESC, created_at ASC`).
            WillReturnRows(sqlmock.NewRows([]string{
                "id", "user_id", "facility_id", "desired_start_time", "desired_end_time",
                "priority_score", "status", "created_at", "updated_at",
            }).AddRow(4, 6, 2, overdue.StartTime, overdue.EndTime, 0, "waiting", baseTime, baseTime))
        mock.ExpectExec(`UPDATE waitlist SET status = 'notified'`).
            WillReturnResult(sqlmock.NewResult(0, 1))
        mock.ExpectQuery(`FROM users WHERE id=`).
            WillReturnRows(sqlmock.NewRows([]string{
                "id", "username", "email", "password_hash", "full_name", "role",
                "is_active", "created_at", "updated_at",
            }).AddRow(6, "waiter", "waiter@example.com", "x", "Waiting User", "USER", true, baseTime, baseTime))
        mock.ExpectExec(`INSERT INTO notification_outbox`).
            WillReturnResult(sqlmock.NewResult(1, 1))
        mock.ExpectExec(`INSERT INTO payment_logs`).
            WillReturnResult(sqlmock.NewResult(1, 1))
        mock.ExpectCommit()

        n, err := m.CheckExpiredPayments(context.Background())
        if err != nil {
            t.Fatalf("CheckExpiredPayments: %v", err)
        }
        if n != 1 {
            t.Errorf("expected 1 expiration, got %d", n)
        }
        if err := mock.ExpectationsWereMet(); err != nil {
            t.Error(err)
        }
    })

    t.Run("second sweep is a no-op", func(t *testing.T) {
        m, mock := newPaymentManagerWithMock(t)

        mock.ExpectBegin()
        mock.ExpectQuery(`r\.payment_status = 'pending' AND r\.payment_due_at`).
            WillReturnRows(sqlmock.NewRows(reservationTestCols))
        mock.ExpectCommit()

        n, err := m.CheckExpiredPayments(context.Background())
        if err != nil {
            t.Fatalf("CheckExpiredPayments: %v", err)
        }
        if n != 0 {
            t.Errorf("expected no expirations, got %d", n)
        }
        // No UPDATE, promotion or notification may run when nothing is
        // overdue.
        if err := mock.ExpectationsWereMet(); err != nil {
            t.Error(err)
        }
    })
}

func TestGracePeriodStatusScopedToOwner(t *testing.T) {
    m, mock := newPaymentManagerWithMock(t)

    // Another user's reservation reads as not found.
    mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) AND r\.user_id =`).
        WillReturnRows(sqlmock.NewRows(reservationTestCols))

    _, err := m.GetGracePeriodStatus(context.Background(), 9, 42)
    if err != repository.ErrNotFound {
        t.Fatalf("expected ErrNotFound for a foreign reservation, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Error(err)
    }
}

func TestMarkAsNoShowRequiresConfirmed(t *testing.T) {
    m, mock := newPaymentManagerWithMock(t)

    res := &model.Reservation{
        ID: 3, UserID: 5, FacilityID: 2,
        StartTime:     baseTime,
        EndTime:       baseTime.Add(2 * time.Hour),
        BookingType:   model.BookingHourly,
        Status:        model.StatusCompleted,
        PaymentStatus: model.PaymentPaid,
        PaymentDueAt:  baseTime,
    }

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) FOR UPDATE`).
        WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
    mock.ExpectRollback()

    err := m.MarkAsNoShow(context.Background(), 3, 1)
    if !errors.Is(err, ErrInvalidTransition) {
        t.Fatalf("expected ErrInvalidTransition, got %v", err)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Error(err)
    }
}
