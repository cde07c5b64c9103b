package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facility-reservation/internal/middleware"
    "github.com/iliyamo/facility-reservation/internal/repository"
    "github.com/iliyamo/facility-reservation/internal/service"
)

// AdminHandler serves the staff/admin console: payment verification,
// no-show marking, the usage lifecycle, sweeps and the read queries.
type AdminHandler struct {
    Payments     *service.PaymentManager
    Reservations *service.ReservationManager
    Usage        *service.UsageManager
}

func NewAdminHandler(p *service.PaymentManager, r *service.ReservationManager, u *service.UsageManager) *AdminHandler {
    return &AdminHandler{Payments: p, Reservations: r, Usage: u}
}

func pathID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

type verifyPaymentReq struct {
    Approved bool   `json:"approved"`
    Notes    string `json:"notes"`
}

// VerifyPayment applies an approval or rejection decision to a pending
// payment.
func (h *AdminHandler) VerifyPayment(c echo.Context) error {
    adminID, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req verifyPaymentReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    applied, err := h.Payments.VerifyPayment(c.Request().Context(), id, adminID, req.Approved, req.Notes)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verify failed"})
    }
    if !applied {
        return c.JSON(http.StatusConflict, echo.Map{"error": "reservation not found or payment not pending"})
    }
    if req.Approved {
        return c.JSON(http.StatusOK, echo.Map{"message": "payment verified, reservation confirmed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "payment rejected, reservation reset to pending"})
}

// PendingPayments lists reservations awaiting a verification decision,
// flagged with grace-period eligibility.
func (h *AdminHandler) PendingPayments(c echo.Context) error {
    out, err := h.Payments.PendingVerifications(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// MarkNoShow transitions a confirmed reservation whose user never arrived.
func (h *AdminHandler) MarkNoShow(c echo.Context) error {
    adminID, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    if err := h.Payments.MarkAsNoShow(c.Request().Context(), id, adminID); err != nil {
        switch {
        case err == repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        case errors.Is(err, service.ErrInvalidTransition):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no-show failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "reservation marked as no-show"})
}

// AdminCancel cancels any reservation regardless of ownership or cutoff.
func (h *AdminHandler) AdminCancel(c echo.Context) error {
    adminID, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req cancelReq
    _ = c.Bind(&req)

    result, err := h.Reservations.CancelReservation(c.Request().Context(), id, adminID, req.Reason, true)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    if !result.Success {
        return c.JSON(http.StatusUnprocessableEntity, result)
    }
    return c.JSON(http.StatusOK, result)
}

type usageNotesReq struct {
    Notes string `json:"notes"`
}

func (h *AdminHandler) usageTransition(c echo.Context, apply func(ctx echo.Context, id, adminID uint64, notes string) error, okMsg string) error {
    adminID, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req usageNotesReq
    _ = c.Bind(&req)

    if err := apply(c, id, adminID, req.Notes); err != nil {
        switch {
        case err == repository.ErrNotFound:
            return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
        case errors.Is(err, service.ErrInvalidTransition):
            return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "usage transition failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": okMsg})
}

// StartUsage marks physical usage as begun.
func (h *AdminHandler) StartUsage(c echo.Context) error {
    return h.usageTransition(c, func(c echo.Context, id, adminID uint64, notes string) error {
        return h.Usage.StartUsage(c.Request().Context(), id, adminID, notes)
    }, "usage started")
}

// CompleteUsage marks physical usage as finished.
func (h *AdminHandler) CompleteUsage(c echo.Context) error {
    return h.usageTransition(c, func(c echo.Context, id, adminID uint64, notes string) error {
        return h.Usage.CompleteUsage(c.Request().Context(), id, adminID, notes)
    }, "usage completed")
}

// VerifyUsage stamps an admin confirmation on completed usage.
func (h *AdminHandler) VerifyUsage(c echo.Context) error {
    return h.usageTransition(c, func(c echo.Context, id, adminID uint64, notes string) error {
        return h.Usage.VerifyUsage(c.Request().Context(), id, adminID, notes)
    }, "usage verified")
}

// ----- read queries -----

// CurrentUsage lists facilities in use right now.
func (h *AdminHandler) CurrentUsage(c echo.Context) error {
    out, err := h.Usage.CurrentUsage(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// ReadyUsage lists confirmed reservations waiting to be started.
func (h *AdminHandler) ReadyUsage(c echo.Context) error {
    out, err := h.Usage.ReadyUsage(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// PendingUsageVerifications lists completed-but-unverified usage.
func (h *AdminHandler) PendingUsageVerifications(c echo.Context) error {
    out, err := h.Usage.PendingUsageVerifications(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// UsageHistory returns usage rows for one reservation.
func (h *AdminHandler) UsageHistory(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    out, err := h.Usage.UsageHistory(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// AllUsageHistory returns every usage row, newest first.
func (h *AdminHandler) AllUsageHistory(c echo.Context) error {
    out, err := h.Usage.AllUsageHistory(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// UserUsageHistory returns all usage rows for one user.
func (h *AdminHandler) UserUsageHistory(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    out, err := h.Usage.UserUsageHistory(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// Countdown reports where a reservation stands relative to its interval.
func (h *AdminHandler) Countdown(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    info, err := h.Usage.GetCountdownInfo(c.Request().Context(), id)
    if err == repository.ErrNotFound {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, info)
}

// ReservationLogs returns the reservation audit trail.
func (h *AdminHandler) ReservationLogs(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    out, err := h.Reservations.GetReservationLogs(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// PaymentLogs returns the payment audit trail.
func (h *AdminHandler) PaymentLogs(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    out, err := h.Reservations.GetPaymentLogs(c.Request().Context(), id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

// ----- sweeps -----

// SweepExpiredPayments expires overdue pending payments now.
func (h *AdminHandler) SweepExpiredPayments(c echo.Context) error {
    n, err := h.Payments.CheckExpiredPayments(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// SweepAutoStart starts usage for confirmed reservations in their window.
func (h *AdminHandler) SweepAutoStart(c echo.Context) error {
    n, err := h.Usage.AutoStartUsage(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"started": n})
}

// SweepAutoComplete completes overdue and stale usage.
func (h *AdminHandler) SweepAutoComplete(c echo.Context) error {
    n, err := h.Usage.AutoCompleteExpiredUsage(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"completed": n})
}

// BackfillUsageLogs creates missing ready usage rows for confirmed paid
// reservations.
func (h *AdminHandler) BackfillUsageLogs(c echo.Context) error {
    n, err := h.Usage.CreateUsageLogsForConfirmedReservations(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "backfill failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"created": n})
}
