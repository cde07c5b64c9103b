package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/facility-reservation/internal/model"
)

// FacilityRepo provides read access to the facilities table.  Facility
// administration (creating and editing facilities) happens out of band;
// the API only browses them and reads rates during pricing.
type FacilityRepo struct{ db *sql.DB }

// NewFacilityRepo returns a new FacilityRepo bound to the given database.
func NewFacilityRepo(db *sql.DB) *FacilityRepo { return &FacilityRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *FacilityRepo) DB() *sql.DB { return r.db }

const facilityColumns = `id, name, description, hourly_rate_cents, cancellation_policy, category_id, is_active, created_at, updated_at`

func scanFacility(row *sql.Row) (*model.Facility, error) {
    var f model.Facility
    var categoryID sql.NullInt64
    err := row.Scan(&f.ID, &f.Name, &f.Description, &f.HourlyRateCents,
        &f.CancellationPolicy, &categoryID, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if categoryID.Valid {
        cid := uint64(categoryID.Int64)
        f.CategoryID = &cid
    }
    return &f, nil
}

// GetByID returns a facility by primary key.  ErrNotFound is returned when
// no such facility exists.
func (r *FacilityRepo) GetByID(ctx context.Context, id uint64) (*model.Facility, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+facilityColumns+` FROM facilities WHERE id = ?`, id)
    f, err := scanFacility(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return f, err
}

// GetByIDTx is GetByID within an existing transaction.  It is used during
// reschedule and extension pricing so the rate read participates in the
// same transaction as the write.
func (r *FacilityRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Facility, error) {
    row := tx.QueryRowContext(ctx,
        `SELECT `+facilityColumns+` FROM facilities WHERE id = ?`, id)
    f, err := scanFacility(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    return f, err
}

// ListActive returns all active facilities ordered by name.
func (r *FacilityRepo) ListActive(ctx context.Context) ([]model.Facility, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+facilityColumns+` FROM facilities WHERE is_active = 1 ORDER BY name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Facility, 0)
    for rows.Next() {
        var f model.Facility
        var categoryID sql.NullInt64
        if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.HourlyRateCents,
            &f.CancellationPolicy, &categoryID, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
            return nil, err
        }
        if categoryID.Valid {
            cid := uint64(categoryID.Int64)
            f.CategoryID = &cid
        }
        out = append(out, f)
    }
    return out, rows.Err()
}

// BusyInterval is one occupied slice of a facility's day, used by the
// public availability endpoint.
type BusyInterval struct {
    StartTime time.Time `json:"start_time"`
    EndTime   time.Time `json:"end_time"`
}

// BusyIntervals returns the intervals of non-cancelled, non-no-show
// reservations on a facility between from and to, ordered by start time.
// Guests use this to pick a free slot before booking.
func (r *FacilityRepo) BusyIntervals(ctx context.Context, facilityID uint64, from, to time.Time) ([]BusyInterval, error) {
    const q = `SELECT start_time, end_time FROM reservations
               WHERE facility_id = ?
                 AND status NOT IN ('cancelled','no_show','expired')
                 AND start_time < ? AND end_time > ?
               ORDER BY start_time`
    rows, err := r.db.QueryContext(ctx, q, facilityID, to, from)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]BusyInterval, 0)
    for rows.Next() {
        var b BusyInterval
        if err := rows.Scan(&b.StartTime, &b.EndTime); err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}
