// Public browse endpoints: businesses, their services and staff, and a
// staff availability probe.  No authentication required; responses only
// carry fields safe for anonymous consumption.

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-appointment-booking/internal/repository"
	"github.com/iliyamo/salon-appointment-booking/internal/service"
)

// BrowseHandler aggregates what unauthenticated browsing needs.
type BrowseHandler struct {
	Businesses   *repository.BusinessRepo
	Checker      *service.AvailabilityChecker
	ClientOffset time.Duration
}

func NewBrowseHandler(b *repository.BusinessRepo, checker *service.AvailabilityChecker, clientOffset time.Duration) *BrowseHandler {
	return &BrowseHandler{Businesses: b, Checker: checker, ClientOffset: clientOffset}
}

type publicBusiness struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

type publicService struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	DurationMin uint32 `json:"duration_min"`
	PriceCents  uint32 `json:"price_cents"`
}

type publicStaff struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// ListBusinesses handles GET /v1/businesses.
func (h *BrowseHandler) ListBusinesses(c echo.Context) error {
	items, err := h.Businesses.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]publicBusiness, 0, len(items))
	for _, b := range items {
		out = append(out, publicBusiness{ID: b.ID, Name: b.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListServices handles GET /v1/businesses/:id/services.
func (h *BrowseHandler) ListServices(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Businesses.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items, err := h.Businesses.ServicesByBusiness(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]publicService, 0, len(items))
	for _, s := range items {
		out = append(out, publicService{ID: s.ID, Name: s.Name, DurationMin: s.DurationMin, PriceCents: s.PriceCents})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListStaff handles GET /v1/businesses/:id/staff.  Only bookable staff
// are listed.
func (h *BrowseHandler) ListStaff(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Businesses.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "business not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items, err := h.Businesses.StaffByBusiness(ctx, id, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]publicStaff, 0, len(items))
	for _, s := range items {
		out = append(out, publicStaff{ID: s.ID, Name: s.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// slotStepMin is the granularity at which candidate start times are
// probed when listing free slots for a day.
const slotStepMin = 15

// StaffAvailability handles GET /v1/staff/:id/availability.  Two query
// shapes are supported:
//
//	?start=RFC3339&duration_min=N  -> {"available": bool}
//	?date=2006-01-02&duration_min=N -> {"slots": [RFC3339, ...]}
//
// Times are interpreted the same way booking requests are, so a slot
// reported free here is the slot a subsequent create call will check.
func (h *BrowseHandler) StaffAvailability(c echo.Context) error {
	staffID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}
	durMin, err := strconv.Atoi(c.QueryParam("duration_min"))
	if err != nil || durMin <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min must be a positive integer"})
	}
	duration := time.Duration(durMin) * time.Minute
	ctx := c.Request().Context()

	if raw := c.QueryParam("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be RFC3339"})
		}
		ok, err := h.Checker.IsStaffAvailable(ctx, staffID, start.UTC().Add(-h.ClientOffset), duration, 0)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "staff not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
		}
		return c.JSON(http.StatusOK, echo.Map{"available": ok})
	}

	rawDate := c.QueryParam("date")
	if rawDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide start or date"})
	}
	day, err := time.ParseInLocation("2006-01-02", rawDate, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	staff, err := h.Businesses.GetStaff(ctx, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "staff not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	oh, err := h.Businesses.OpeningHourFor(ctx, staff.BusinessID, day.Weekday())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// closed that day
			return c.JSON(http.StatusOK, echo.Map{"slots": []time.Time{}})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	slots := make([]time.Time, 0)
	for m := int(oh.OpenMin); m+durMin <= int(oh.CloseMin); m += slotStepMin {
		start := day.Add(time.Duration(m) * time.Minute)
		ok, err := h.Checker.IsStaffAvailable(ctx, staffID, start, duration, 0)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
		}
		if ok {
			// Report in the client convention so the value can be sent
			// straight back as a booking start time.
			slots = append(slots, start.Add(h.ClientOffset))
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"slots": slots})
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
