// Package handler exposes the HTTP surface: authentication, public
// facility browsing, reservation lifecycle endpoints for users and the
// admin operations console.
package handler

import (
    "context"
    "database/sql"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facility-reservation/internal/config"
    "github.com/iliyamo/facility-reservation/internal/middleware"
    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/queue"
    "github.com/iliyamo/facility-reservation/internal/repository"
    "github.com/iliyamo/facility-reservation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  *repository.UserRepo
    Tokens *repository.TokenRepo
    Outbox *repository.OutboxRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, o *repository.OutboxRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Outbox: o}
}

// ----- DTOs -----

type registerReq struct {
    Username string `json:"username"`
    Email    string `json:"email"`
    Password string `json:"password"`
    FullName string `json:"full_name"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}
type forgotReq struct {
    Email string `json:"email"`
}
type resetReq struct {
    Token       string `json:"token"`
    NewPassword string `json:"new_password"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID       uint64 `json:"id"`
    Username string `json:"username"`
    Email    string `json:"email"`
    FullName string `json:"full_name"`
    Role     string `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

// enqueueMail drops a notification row for the outbox worker.  Mail
// problems never fail the auth flow.
func (h *AuthHandler) enqueueMail(ctx context.Context, kind, email, name string, payload map[string]interface{}) {
    body, err := json.Marshal(payload)
    if err != nil {
        return
    }
    _ = h.Outbox.Enqueue(ctx, &repository.OutboxMessage{
        Kind:           kind,
        RecipientEmail: email,
        RecipientName:  name,
        Payload:        body,
    })
}

// Register creates a user and returns a token pair immediately.
// Self-registration is always as USER; staff accounts are provisioned out
// of band.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    req.Username = strings.TrimSpace(req.Username)
    if req.Email == "" || req.Password == "" || req.Username == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, req.FullName, model.RoleUser, h.Cfg.BcryptCost)
    if err != nil {
        if err == repository.ErrEmailExists {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, model.RoleUser, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }

    h.enqueueMail(ctx, queue.KindWelcomeUser, req.Email, req.FullName, map[string]interface{}{
        "username": req.Username,
    })

    return c.JSON(http.StatusCreated, authResp{
        User:    userPart{ID: uid, Username: req.Username, Email: req.Email, FullName: req.FullName, Role: model.RoleUser},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    })
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
    })
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair (rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    _ = h.Tokens.RevokeByHash(ctx, hash)

    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: userID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
    })
}

// RefreshAccess issues a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes a single session by refresh token, or every session for
// the authenticated user when called with a bearer token and no body.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }

    if uid, ok := middleware.UserID(c); ok {
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    return c.JSON(http.StatusOK, userPart{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role})
}

// ForgotPassword issues a password reset token.  The response is the same
// whether or not the email exists so the endpoint cannot be used to probe
// accounts.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
    var req forgotReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    accepted := echo.Map{"message": "if the account exists, a reset mail was sent"}
    u, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
    if err != nil {
        return c.JSON(http.StatusAccepted, accepted)
    }
    reset, err := utils.NewResetToken(h.Cfg.ResetTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue reset failed"})
    }
    if err := h.Tokens.StorePasswordReset(ctx, u.ID, utils.HashRefreshRaw(reset.Raw), reset.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save reset failed"})
    }
    h.enqueueMail(ctx, queue.KindPasswordReset, u.Email, u.FullName, map[string]interface{}{
        "reset_token": reset.Raw,
        "expires_at":  reset.Exp.Format(time.RFC3339),
    })
    return c.JSON(http.StatusAccepted, accepted)
}

// ResetPassword redeems a reset token and replaces the password.  All
// refresh tokens are revoked so stolen sessions die with the old password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
    var req resetReq
    if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/new_password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.RedeemPasswordReset(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.Token)))
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
    }
    if err := h.Users.UpdatePassword(ctx, userID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update password failed"})
    }
    _ = h.Tokens.RevokeAllForUser(ctx, userID)
    return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
