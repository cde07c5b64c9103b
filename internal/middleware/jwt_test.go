package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/utils"
)

const testSecret = "test-secret"

func protectedEcho(t *testing.T, mw ...echo.MiddlewareFunc) (*echo.Echo, *int) {
    t.Helper()
    e := echo.New()
    hits := 0
    handler := func(c echo.Context) error {
        hits++
        id, ok := UserID(c)
        if !ok {
            t.Error("UserID not extractable inside protected handler")
        }
        if id == 0 {
            t.Error("UserID returned zero")
        }
        return c.NoContent(http.StatusOK)
    }
    e.GET("/protected", handler, mw...)
    return e, &hits
}

func TestJWTAuth(t *testing.T) {
    e, hits := protectedEcho(t, JWTAuth(testSecret))

    t.Run("missing token", func(t *testing.T) {
        req := httptest.NewRequest(http.MethodGet, "/protected", nil)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != http.StatusUnauthorized {
            t.Errorf("status = %d, want 401", rec.Code)
        }
    })

    t.Run("garbage token", func(t *testing.T) {
        req := httptest.NewRequest(http.MethodGet, "/protected", nil)
        req.Header.Set("Authorization", "Bearer not-a-jwt")
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != http.StatusUnauthorized {
            t.Errorf("status = %d, want 401", rec.Code)
        }
    })

    t.Run("wrong secret", func(t *testing.T) {
        tok, err := utils.NewAccessToken("other-secret", 7, model.RoleUser, 15)
        if err != nil {
            t.Fatal(err)
        }
        req := httptest.NewRequest(http.MethodGet, "/protected", nil)
        req.Header.Set("Authorization", "Bearer "+tok.Token)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != http.StatusUnauthorized {
            t.Errorf("status = %d, want 401", rec.Code)
        }
    })

    t.Run("valid token", func(t *testing.T) {
        tok, err := utils.NewAccessToken(testSecret, 7, model.RoleUser, 15)
        if err != nil {
            t.Fatal(err)
        }
        before := *hits
        req := httptest.NewRequest(http.MethodGet, "/protected", nil)
        req.Header.Set("Authorization", "Bearer "+tok.Token)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != http.StatusOK {
            t.Errorf("status = %d, want 200", rec.Code)
        }
        if *hits != before+1 {
            t.Error("handler was not reached")
        }
    })
}

func TestRequireRole(t *testing.T) {
    e, _ := protectedEcho(t, JWTAuth(testSecret), RequireRole(model.RoleStaff, model.RoleAdmin))

    request := func(role string) int {
        tok, err := utils.NewAccessToken(testSecret, 7, role, 15)
        if err != nil {
            t.Fatal(err)
        }
        req := httptest.NewRequest(http.MethodGet, "/protected", nil)
        req.Header.Set("Authorization", "Bearer "+tok.Token)
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        return rec.Code
    }

    if code := request(model.RoleAdmin); code != http.StatusOK {
        t.Errorf("admin status = %d, want 200", code)
    }
    if code := request(model.RoleStaff); code != http.StatusOK {
        t.Errorf("staff status = %d, want 200", code)
    }
    if code := request(model.RoleUser); code != http.StatusForbidden {
        t.Errorf("user status = %d, want 403", code)
    }
}
