package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facility-reservation/internal/repository"
    "github.com/iliyamo/facility-reservation/internal/service"
)

// PublicHandler serves the unauthenticated browsing endpoints: facility
// list, detail and availability.  Responses expose only safe fields.
type PublicHandler struct {
    Facilities *repository.FacilityRepo
}

func NewPublicHandler(f *repository.FacilityRepo) *PublicHandler {
    return &PublicHandler{Facilities: f}
}

// PublicFacility is a facility as exposed to guests.
type PublicFacility struct {
    ID                 uint64 `json:"id"`
    Name               string `json:"name"`
    Description        string `json:"description"`
    HourlyRateCents    int64  `json:"hourly_rate_cents"`
    CancellationPolicy string `json:"cancellation_policy"`
}

// ListFacilities returns all active facilities.
func (h *PublicHandler) ListFacilities(c echo.Context) error {
    facilities, err := h.Facilities.ListActive(c.Request().Context())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]PublicFacility, 0, len(facilities))
    for _, f := range facilities {
        out = append(out, PublicFacility{
            ID:                 f.ID,
            Name:               f.Name,
            Description:        f.Description,
            HourlyRateCents:    f.HourlyRateCents,
            CancellationPolicy: f.CancellationPolicy,
        })
    }
    return c.JSON(http.StatusOK, out)
}

// GetFacility returns one facility by ID.
func (h *PublicHandler) GetFacility(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
    }
    f, err := h.Facilities.GetByID(c.Request().Context(), id)
    if err == repository.ErrNotFound {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "facility not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    return c.JSON(http.StatusOK, PublicFacility{
        ID:                 f.ID,
        Name:               f.Name,
        Description:        f.Description,
        HourlyRateCents:    f.HourlyRateCents,
        CancellationPolicy: f.CancellationPolicy,
    })
}

// availabilityResp reports whether a requested slot is free plus the busy
// intervals around it so clients can offer alternatives.
type availabilityResp struct {
    FacilityID uint64                      `json:"facility_id"`
    From       time.Time                   `json:"from"`
    To         time.Time                   `json:"to"`
    Available  bool                        `json:"available"`
    Busy       []repository.BusyInterval   `json:"busy"`
}

// GetAvailability reports the busy intervals of a facility over a window
// and, when from/to describe a concrete slot, whether that slot is free.
// Query params: from, to (RFC3339).  Defaults to the next 7 days.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid facility id"})
    }

    now := time.Now().UTC()
    from, to := now, now.Add(7*24*time.Hour)
    if s := c.QueryParam("from"); s != "" {
        if from, err = time.Parse(time.RFC3339, s); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
        }
    }
    if s := c.QueryParam("to"); s != "" {
        if to, err = time.Parse(time.RFC3339, s); err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
        }
    }
    if !to.After(from) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must be after from"})
    }

    if _, err := h.Facilities.GetByID(c.Request().Context(), id); err != nil {
        if err == repository.ErrNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "facility not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    busy, err := h.Facilities.BusyIntervals(c.Request().Context(), id, from, to)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    available := true
    for _, b := range busy {
        if service.Overlaps(from, to, b.StartTime, b.EndTime) {
            available = false
            break
        }
    }
    return c.JSON(http.StatusOK, availabilityResp{
        FacilityID: id,
        From:       from,
        To:         to,
        Available:  available,
        Busy:       busy,
    })
}
