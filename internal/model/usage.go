package model

import "time"

// UsageStatus enumerates the states of a usage log row.  Unlike the other
// audit tables, usage_logs doubles as a lightweight in-progress status row
// that moves through ready → active → completed → verified.
type UsageStatus string

const (
    UsageReady     UsageStatus = "ready"     // created for a confirmed reservation
    UsageActive    UsageStatus = "active"    // usage in progress
    UsageCompleted UsageStatus = "completed" // usage finished, duration recorded
    UsageVerified  UsageStatus = "verified"  // admin confirmed the completed usage
)

// usageTransitions maps each usage status to its legal successors.
var usageTransitions = map[UsageStatus][]UsageStatus{
    UsageReady:     {UsageActive, UsageCompleted}, // direct completion covers the defensive auto-start
    UsageActive:    {UsageCompleted},
    UsageCompleted: {UsageVerified},
}

// Valid reports whether u is a known usage status.
func (u UsageStatus) Valid() bool {
    switch u {
    case UsageReady, UsageActive, UsageCompleted, UsageVerified:
        return true
    }
    return false
}

// CanTransitionTo reports whether moving from u to next is legal.
func (u UsageStatus) CanTransitionTo(next UsageStatus) bool {
    for _, allowed := range usageTransitions[u] {
        if allowed == next {
            return true
        }
    }
    return false
}

// UsageAction labels the action recorded on a usage log row.  The action
// moves in lockstep with the status: confirmed/ready, started/active,
// completed/completed, verified/verified.
type UsageAction string

const (
    UsageActionConfirmed UsageAction = "confirmed"
    UsageActionStarted   UsageAction = "started"
    UsageActionCompleted UsageAction = "completed"
    UsageActionVerified  UsageAction = "verified"
)

// ActionFor returns the action label paired with a usage status.
func ActionFor(s UsageStatus) UsageAction {
    switch s {
    case UsageReady:
        return UsageActionConfirmed
    case UsageActive:
        return UsageActionStarted
    case UsageCompleted:
        return UsageActionCompleted
    case UsageVerified:
        return UsageActionVerified
    }
    return ""
}

// UsageLog mirrors the `usage_logs` table.
//
// Fields:
//  ID              – primary key identifier.
//  ReservationID   – reservation this row tracks.
//  FacilityID      – facility being used.
//  UserID          – user occupying the facility.
//  Action          – action label kept in lockstep with Status.
//  Status          – current usage state.
//  StartedAt       – when usage began (nullable).
//  CompletedAt     – when usage ended (nullable).
//  DurationMinutes – elapsed minutes computed at completion (nullable).
//  Notes           – accumulated admin notes; appended to, never replaced.
//  VerifiedAt      – when the row was verified (nullable).
//  VerifiedBy      – admin who verified (nullable).
//  CreatedAt, UpdatedAt – row timestamps.
type UsageLog struct {
    ID              uint64      `json:"id"`
    ReservationID   uint64      `json:"reservation_id"`
    FacilityID      uint64      `json:"facility_id"`
    UserID          uint64      `json:"user_id"`
    Action          UsageAction `json:"action"`
    Status          UsageStatus `json:"status"`
    StartedAt       *time.Time  `json:"started_at,omitempty"`
    CompletedAt     *time.Time  `json:"completed_at,omitempty"`
    DurationMinutes *int        `json:"duration_minutes,omitempty"`
    Notes           string      `json:"notes"`
    VerifiedAt      *time.Time  `json:"verified_at,omitempty"`
    VerifiedBy      *uint64     `json:"verified_by,omitempty"`
    CreatedAt       time.Time   `json:"created_at"`
    UpdatedAt       time.Time   `json:"updated_at"`
}

// AuditLog is an append-only record of an action applied to a reservation.
// The same shape backs payment_logs and reservation_logs.  ReservationID
// zero is the sentinel for system-wide events.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation acted on (0 for system-wide events).
//  Action        – short action label, e.g. "created", "verified".
//  ActorID       – acting admin or user (nullable for system actions).
//  Notes         – free-text notes.
//  CreatedAt     – timestamp of the action.
type AuditLog struct {
    ID            uint64    `json:"id"`
    ReservationID uint64    `json:"reservation_id"`
    Action        string    `json:"action"`
    ActorID       *uint64   `json:"actor_id,omitempty"`
    Notes         string    `json:"notes"`
    CreatedAt     time.Time `json:"created_at"`
}
