// Package middleware provides reusable HTTP middleware: JWT auth, role
// gates, Redis-backed rate limiting and response caching.
package middleware

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth validates a Bearer access token and injects the subject and
// role claims into the request context.  Handlers read them back with
// UserID(c) and c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            c.Set("user_id", claims["sub"])
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}

// UserID extracts the authenticated user's ID from the context.  The sub
// claim arrives as a float64 after JSON decoding.
func UserID(c echo.Context) (uint64, bool) {
    switch v := c.Get("user_id").(type) {
    case float64:
        return uint64(v), true
    case uint64:
        return v, true
    case int64:
        return uint64(v), true
    }
    return 0, false
}
