package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists/validates refresh tokens and password reset tokens.
// Only SHA-256 hashes of token values are stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a refresh token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all user's active refresh tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// StorePasswordReset inserts a password reset token for a user.  Any older
// unused tokens for the same user are invalidated first so only the most
// recently requested token can be redeemed.
func (r *TokenRepo) StorePasswordReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at=NOW() WHERE user_id=? AND used_at IS NULL",
		userID); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_reset_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// RedeemPasswordReset marks an unused, unexpired reset token as used and
// returns the owning user ID.  sql.ErrNoRows is returned when the token is
// unknown, already used or expired.
func (r *TokenRepo) RedeemPasswordReset(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, used_at FROM password_reset_tokens WHERE token=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &usedAt)
	if err != nil {
		return 0, err
	}
	if usedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE password_reset_tokens SET used_at=NOW() WHERE token=? AND used_at IS NULL",
		tokenHash)
	if err != nil {
		return 0, err
	}
	// A concurrent redeem may have won the race; treat that as not found.
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}
