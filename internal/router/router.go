// Package router wires handlers to routes and applies the middleware
// chain for each route group.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/facility-reservation/internal/config"
    "github.com/iliyamo/facility-reservation/internal/handler"
    "github.com/iliyamo/facility-reservation/internal/middleware"
    "github.com/iliyamo/facility-reservation/internal/model"
)

// Handlers aggregates everything the router needs to register.
type Handlers struct {
    Auth        *handler.AuthHandler
    Public      *handler.PublicHandler
    Reservation *handler.ReservationHandler
    Admin       *handler.AdminHandler
}

// Register wires every route group: the health check, unauthenticated
// auth and browse endpoints (rate limited, browse responses cached), the
// authenticated user surface and the staff/admin console.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
    e.GET("/healthz", handler.Health)

    rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    // Unauthenticated: registration, sessions, password recovery.
    auth := e.Group("/v1/auth", rateLimit)
    auth.POST("/register", h.Auth.Register)
    auth.POST("/login", h.Auth.Login)
    auth.POST("/refresh", h.Auth.Refresh)
    auth.POST("/refresh-access", h.Auth.RefreshAccess)
    auth.POST("/logout", h.Auth.Logout)
    auth.POST("/forgot-password", h.Auth.ForgotPassword)
    auth.POST("/reset-password", h.Auth.ResetPassword)

    // Unauthenticated browsing; cached since facility data changes rarely.
    browse := e.Group("/v1/facilities", rateLimit, cache)
    browse.GET("", h.Public.ListFacilities)
    browse.GET("/:id", h.Public.GetFacility)
    browse.GET("/:id/availability", h.Public.GetAvailability)

    // Authenticated user surface.
    user := e.Group("/v1", middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleUser, model.RoleStaff, model.RoleAdmin))
    user.GET("/me", h.Auth.Me)
    user.POST("/reservations", h.Reservation.Create)
    user.GET("/reservations", h.Reservation.List)
    user.POST("/reservations/:id/slip", h.Reservation.UploadSlip)
    user.POST("/reservations/:id/cancel", h.Reservation.Cancel)
    user.POST("/reservations/:id/reschedule", h.Reservation.Reschedule)
    user.POST("/reservations/:id/extend", h.Reservation.Extend)
    user.GET("/reservations/:id/grace-period", h.Reservation.GracePeriod)
    user.POST("/waitlist", h.Reservation.JoinWaitlist)
    user.DELETE("/waitlist/:id", h.Reservation.LeaveWaitlist)
    user.GET("/waitlist", h.Reservation.MyWaitlist)

    // Staff/admin console.
    admin := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret),
        middleware.RequireRole(model.RoleStaff, model.RoleAdmin))
    admin.GET("/payments/pending", h.Admin.PendingPayments)
    admin.POST("/reservations/:id/verify-payment", h.Admin.VerifyPayment)
    admin.POST("/reservations/:id/no-show", h.Admin.MarkNoShow)
    admin.POST("/reservations/:id/cancel", h.Admin.AdminCancel)
    admin.POST("/reservations/:id/usage/start", h.Admin.StartUsage)
    admin.POST("/reservations/:id/usage/complete", h.Admin.CompleteUsage)
    admin.POST("/reservations/:id/usage/verify", h.Admin.VerifyUsage)
    admin.GET("/reservations/:id/usage", h.Admin.UsageHistory)
    admin.GET("/reservations/:id/countdown", h.Admin.Countdown)
    admin.GET("/reservations/:id/logs", h.Admin.ReservationLogs)
    admin.GET("/reservations/:id/payment-logs", h.Admin.PaymentLogs)
    admin.GET("/usage/current", h.Admin.CurrentUsage)
    admin.GET("/usage/ready", h.Admin.ReadyUsage)
    admin.GET("/usage/pending-verification", h.Admin.PendingUsageVerifications)
    admin.GET("/usage/history", h.Admin.AllUsageHistory)
    admin.GET("/users/:id/usage", h.Admin.UserUsageHistory)
    admin.POST("/sweeps/expire-payments", h.Admin.SweepExpiredPayments)
    admin.POST("/sweeps/auto-start", h.Admin.SweepAutoStart)
    admin.POST("/sweeps/auto-complete", h.Admin.SweepAutoComplete)
    admin.POST("/sweeps/backfill-usage-logs", h.Admin.BackfillUsageLogs)
}
