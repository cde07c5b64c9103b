package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID renders the authenticated user's ID for rate-limit and
// cache key construction.  Unauthenticated requests map to "anon".
func currentUserID(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}
