package model

import "time"

// WaitlistStatus enumerates the states of a waitlist entry.
type WaitlistStatus string

const (
    WaitlistWaiting  WaitlistStatus = "waiting"  // standing desire for the slot
    WaitlistNotified WaitlistStatus = "notified" // slot vacated, user told
)

// Valid reports whether w is a known waitlist status.
func (w WaitlistStatus) Valid() bool {
    return w == WaitlistWaiting || w == WaitlistNotified
}

// WaitlistEntry mirrors the `waitlist` table.  At most one entry with
// status "waiting" may exist per (user, facility, desired interval); the
// repository enforces this before insert.  Promotion to "notified" does
// not create a reservation — it only tells the user the slot opened up.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – user waiting for the slot.
//  FacilityID       – facility the user wants.
//  DesiredStartTime – wanted interval start.
//  DesiredEndTime   – wanted interval end.
//  PriorityScore    – ordering proxy assigned at creation; higher wins.
//  Status           – waiting or notified.
//  CreatedAt        – timestamp of creation (tie breaker, earliest wins).
//  UpdatedAt        – timestamp of last update.
type WaitlistEntry struct {
    ID               uint64         `json:"id"`
    UserID           uint64         `json:"user_id"`
    FacilityID       uint64         `json:"facility_id"`
    DesiredStartTime time.Time      `json:"desired_start_time"`
    DesiredEndTime   time.Time      `json:"desired_end_time"`
    PriorityScore    int            `json:"priority_score"`
    Status           WaitlistStatus `json:"status"`
    CreatedAt        time.Time      `json:"created_at"`
    UpdatedAt        time.Time      `json:"updated_at"`
}
