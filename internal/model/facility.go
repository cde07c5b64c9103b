package model

import "time"

// Facility represents a bookable facility as stored in the `facilities`
// table.  Rates are stored in cents per hour; bookings shorter than a full
// hour are charged in half-hour steps (see service.CalculateCostCents).
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – display name of the facility.
//  Description        – free-text description shown on browse pages.
//  HourlyRateCents    – price per hour in cents.
//  CancellationPolicy – free-text policy shown to users before cancelling.
//  CategoryID         – optional reference into facility_categories.
//  IsActive           – inactive facilities are hidden from browsing.
//  CreatedAt          – timestamp of creation.
//  UpdatedAt          – timestamp of last update.
type Facility struct {
    ID                 uint64    // facilities.id
    Name               string    // facilities.name
    Description        string    // facilities.description
    HourlyRateCents    int64     // facilities.hourly_rate_cents
    CancellationPolicy string    // facilities.cancellation_policy
    CategoryID         *uint64   // facilities.category_id (nullable)
    IsActive           bool      // facilities.is_active
    CreatedAt          time.Time // facilities.created_at
    UpdatedAt          time.Time // facilities.updated_at
}
