package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facility-reservation/internal/middleware"
    "github.com/iliyamo/facility-reservation/internal/model"
    "github.com/iliyamo/facility-reservation/internal/repository"
    "github.com/iliyamo/facility-reservation/internal/service"
)

// ReservationHandler serves the authenticated user endpoints: booking,
// payment slip upload, cancel/reschedule/extend and the waitlist.
type ReservationHandler struct {
    Payments     *service.PaymentManager
    Reservations *service.ReservationManager
}

func NewReservationHandler(p *service.PaymentManager, r *service.ReservationManager) *ReservationHandler {
    return &ReservationHandler{Payments: p, Reservations: r}
}

type createReservationReq struct {
    FacilityID   uint64    `json:"facility_id"`
    StartTime    time.Time `json:"start_time"`
    EndTime      time.Time `json:"end_time"`
    Purpose      string    `json:"purpose"`
    ContactPhone string    `json:"contact_phone"`
    BookingType  string    `json:"booking_type"`
}

// Create books a facility for an interval.  The reservation starts
// pending with a 24-hour payment deadline.
func (h *ReservationHandler) Create(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createReservationReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    bookingType := model.BookingType(req.BookingType)
    if req.BookingType == "" {
        bookingType = model.BookingHourly
    }

    res, err := h.Payments.CreateReservation(c.Request().Context(), service.CreateReservationInput{
        UserID:       uid,
        FacilityID:   req.FacilityID,
        Start:        req.StartTime.UTC(),
        End:          req.EndTime.UTC(),
        Purpose:      req.Purpose,
        ContactPhone: req.ContactPhone,
        BookingType:  bookingType,
    })
    switch {
    case err == nil:
    case errors.Is(err, service.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case err == repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "the requested time slot is already booked"})
    case err == repository.ErrNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "facility not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation failed"})
    }
    return c.JSON(http.StatusCreated, res)
}

// List returns the caller's reservations, newest first.
func (h *ReservationHandler) List(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    out, err := h.Reservations.ListUserReservations(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}

type uploadSlipReq struct {
    SlipRef string `json:"slip_ref"`
}

// UploadSlip attaches payment evidence to the caller's reservation.
// Verification remains a manual admin step.
func (h *ReservationHandler) UploadSlip(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req uploadSlipReq
    if err := c.Bind(&req); err != nil || req.SlipRef == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "slip_ref required"})
    }

    // Ownership check before touching payment state.
    details, err := h.Reservations.ListUserReservations(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    owned := false
    for i := range details {
        if details[i].ID == id {
            owned = true
            break
        }
    }
    if !owned {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    }

    applied, err := h.Payments.UploadPaymentSlip(c.Request().Context(), id, req.SlipRef)
    switch {
    case err == nil:
    case errors.Is(err, service.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case err == repository.ErrNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
    }
    if !applied {
        return c.JSON(http.StatusConflict, echo.Map{"error": "payment is no longer pending"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "payment slip recorded, awaiting verification"})
}

type cancelReq struct {
    Reason string `json:"reason"`
}

// Cancel cancels the caller's reservation and reports the refund tier.
func (h *ReservationHandler) Cancel(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req cancelReq
    _ = c.Bind(&req)

    result, err := h.Reservations.CancelReservation(c.Request().Context(), id, uid, req.Reason, false)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
    if !result.Success {
        return c.JSON(http.StatusUnprocessableEntity, result)
    }
    return c.JSON(http.StatusOK, result)
}

type rescheduleReq struct {
    NewStartTime time.Time `json:"new_start_time"`
    NewEndTime   time.Time `json:"new_end_time"`
    Reason       string    `json:"reason"`
}

// Reschedule moves the caller's reservation to a new interval.
func (h *ReservationHandler) Reschedule(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req rescheduleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    result, err := h.Reservations.RescheduleReservation(c.Request().Context(), id, uid,
        req.NewStartTime.UTC(), req.NewEndTime.UTC(), req.Reason)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reschedule failed"})
    }
    if !result.Success {
        return c.JSON(http.StatusUnprocessableEntity, result)
    }
    return c.JSON(http.StatusOK, result)
}

type extendReq struct {
    NewEndTime time.Time `json:"new_end_time"`
    Reason     string    `json:"reason"`
}

// Extend pushes the end of the caller's reservation out.
func (h *ReservationHandler) Extend(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var req extendReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    result, err := h.Reservations.ExtendReservation(c.Request().Context(), id, uid, req.NewEndTime.UTC(), req.Reason)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "extend failed"})
    }
    if !result.Success {
        return c.JSON(http.StatusUnprocessableEntity, result)
    }
    return c.JSON(http.StatusOK, result)
}

// GracePeriod returns the grace-period signal for the caller's pending
// payment.  Scoped to the owner; other users' reservations read as not
// found.
func (h *ReservationHandler) GracePeriod(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    status, err := h.Payments.GetGracePeriodStatus(c.Request().Context(), id, uid)
    if err == repository.ErrNotFound {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, status)
}

type waitlistReq struct {
    FacilityID       uint64    `json:"facility_id"`
    DesiredStartTime time.Time `json:"desired_start_time"`
    DesiredEndTime   time.Time `json:"desired_end_time"`
}

// JoinWaitlist records the caller's interest in an occupied slot.
func (h *ReservationHandler) JoinWaitlist(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req waitlistReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    entry, err := h.Payments.AddToWaitlist(c.Request().Context(), uid, req.FacilityID,
        req.DesiredStartTime.UTC(), req.DesiredEndTime.UTC())
    switch {
    case err == nil:
    case errors.Is(err, service.ErrValidation):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    case err == repository.ErrConflict:
        return c.JSON(http.StatusConflict, echo.Map{"error": "already on the waitlist for this slot"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "join waitlist failed"})
    }
    return c.JSON(http.StatusCreated, entry)
}

// LeaveWaitlist removes the caller's waiting entry.
func (h *ReservationHandler) LeaveWaitlist(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid waitlist id"})
    }
    if err := h.Payments.RemoveFromWaitlist(c.Request().Context(), id, uid); err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "leave waitlist failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// MyWaitlist lists the caller's waitlist entries.
func (h *ReservationHandler) MyWaitlist(c echo.Context) error {
    uid, ok := middleware.UserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    out, err := h.Payments.GetUserWaitlist(c.Request().Context(), uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, out)
}
