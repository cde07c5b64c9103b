package service

import (
    "context"
    "strings"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"

    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/repository"
)

func newReservationManagerWithMock(t *testing.T) (*ReservationManager, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    if err != nil {
        t.Fatalf("sqlmock.New: %v", err)
    }
    t.Cleanup(func() { db.Close() })
    m := NewReservationManager(db,
        repository.NewReservationRepo(db),
        repository.NewFacilityRepo(db),
        repository.NewAuditLogRepo(db),
        repository.NewUserRepo(db),
        repository.NewOutboxRepo(db))
    return m, mock
}

func TestCancelReservationRejectsExpired(t *testing.T) {
    m, mock := newReservationManagerWithMock(t)

    res := &model.Reservation{
        ID: 7, UserID: 5, FacilityID: 2,
        StartTime:        time.Now().UTC().Add(48 * time.Hour),
        EndTime:          time.Now().UTC().Add(50 * time.Hour),
        BookingType:      model.BookingHourly,
        TotalAmountCents: 20000,
        Status:           model.StatusExpired,
        PaymentStatus:    model.PaymentExpired,
        PaymentDueAt:     baseTime,
    }

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) AND r\.user_id = (.+) FOR UPDATE`).
        WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
    mock.ExpectRollback()

    result, err := m.CancelReservation(context.Background(), 7, 5, "changed plans", false)
    if err != nil {
        t.Fatalf("CancelReservation: %v", err)
    }
    if result.Success {
        t.Error("expected cancellation of an expired reservation to be rejected")
    }
    if !strings.Contains(result.Message, "expired") {
        t.Errorf("expected the message to name the expired state, got %q", result.Message)
    }
    // No cancellation write may reach the database.
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Error(err)
    }
}

func TestExtendReservationReportsSignedDelta(t *testing.T) {
    m, mock := newReservationManagerWithMock(t)

    start := time.Now().UTC().Add(-time.Hour)
    res := &model.Reservation{
        ID: 7, UserID: 5, FacilityID: 2,
        StartTime:        start,
        EndTime:          start.Add(2 * time.Hour),
        BookingType:      model.BookingHourly,
        TotalAmountCents: 30000,
        Status:           model.StatusInUse,
        PaymentStatus:    model.PaymentPaid,
        PaymentDueAt:     baseTime,
    }
    newEnd := start.Add(150 * time.Minute) // 2.5h at 10000/h = 25000

    mock.ExpectBegin()
    mock.ExpectQuery(`FROM reservations r WHERE r\.id = (.+) AND r\.user_id = (.+) FOR UPDATE`).
        WillReturnRows(addReservationRow(sqlmock.NewRows(reservationTestCols), res))
    mock.ExpectQuery(`AND start_time < (.+) AND end_time >`).
        WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
    mock.ExpectQuery(`FROM facilities WHERE id =`).
        WillReturnRows(sqlmock.NewRows([]string{
            "id", "name", "description", "hourly_rate_cents", "cancellation_policy",
            "category_id", "is_active", "created_at", "updated_at",
        }).AddRow(2, "Main Hall", "", 10000, "", nil, true, baseTime, baseTime))
    mock.ExpectExec(`UPDATE reservations SET end_time =`).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(`INSERT INTO reservation_logs`).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectQuery(`FROM users WHERE id=`).
        WillReturnRows(sqlmock.NewRows([]string{
            "id", "username", "email", "password_hash", "full_name", "role",
            "is_active", "created_at", "updated_at",
        }).AddRow(5, "booker", "booker@example.com", "x", "Booking User", "USER", true, baseTime, baseTime))
    mock.ExpectExec(`INSERT INTO notification_outbox`).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectCommit()

    result, err := m.ExtendReservation(context.Background(), 7, 5, newEnd, "")
    if err != nil {
        t.Fatalf("ExtendReservation: %v", err)
    }
    if !result.Success {
        t.Fatalf("expected success, got %q", result.Message)
    }
    if result.NewTotalCents != 25000 {
        t.Errorf("new total: expected 25000, got %d", result.NewTotalCents)
    }
    if result.AdditionalCents != -5000 {
        t.Errorf("additional cost: expected -5000, got %d", result.AdditionalCents)
    }
    if err := mock.ExpectationsWereMet(); err != nil {
        t.Error(err)
    }
}
