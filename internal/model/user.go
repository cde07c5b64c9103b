package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// may define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name used in notifications.
//  Role         – name of the role (USER, STAFF or ADMIN).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Username     string    // users.username
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    FullName     string    // users.full_name
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// Roles recognised by the application.  The role claim carried in access
// tokens must be one of these values.
const (
    RoleUser  = "USER"
    RoleStaff = "STAFF"
    RoleAdmin = "ADMIN"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}

// PasswordResetToken models a row in the `password_reset_tokens` table.
// Tokens are single use: UsedAt is stamped the first time the token is
// redeemed and redeemed tokens are rejected afterwards.
//
// Fields:
//  UserID    – user the token was issued for.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp.
//  UsedAt    – when the token was redeemed (null if unused).
type PasswordResetToken struct {
    UserID    uint64     // password_reset_tokens.user_id
    TokenHash string     // password_reset_tokens.token
    ExpiresAt time.Time  // password_reset_tokens.expires_at
    UsedAt    *time.Time // password_reset_tokens.used_at (nullable)
}
