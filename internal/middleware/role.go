package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user carries one of the
// given roles in the JWT "role" claim.  JWTAuth must run earlier in the
// chain; requests without an allowed role get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
