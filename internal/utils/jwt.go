// Package utils provides token creation and password hashing helpers.
package utils

import (
    "crypto/rand"
    "crypto/sha256"
    "encoding/hex"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed HS256 JWT together with its expiry.  Access
// tokens are short-lived and carried in the Authorization header.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// RefreshToken is a long-lived opaque token used to obtain new access
// tokens.  Only its SHA-256 hash is stored server-side; Raw goes to the
// client once and is never persisted.
type RefreshToken struct {
    Raw string
    Exp time.Time
}

// NewAccessToken signs an HS256 JWT carrying sub, role, exp and iat
// claims for the given user.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken returns a cryptographically random token and its expiry.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
    raw, err := randomHex(48) // 48 bytes -> 96 hex chars
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
    }, nil
}

// NewResetToken returns a random password-reset token and its expiry.
func NewResetToken(ttlMin int) (RefreshToken, error) {
    raw, err := randomHex(32)
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute),
    }, nil
}

// HashRefreshRaw returns the hex SHA-256 of a raw token.  Storing only
// the hash keeps leaked database rows unusable for session refresh.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
