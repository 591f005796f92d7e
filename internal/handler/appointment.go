package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-appointment-booking/internal/middleware"
	"github.com/iliyamo/salon-appointment-booking/internal/model"
	"github.com/iliyamo/salon-appointment-booking/internal/repository"
	"github.com/iliyamo/salon-appointment-booking/internal/service"
)

// AppointmentHandler exposes the booking pipeline over HTTP.  All
// routes assume JWT middleware populated the context; ownership checks
// happen here because they need the appointment row.
type AppointmentHandler struct {
	Svc        *service.AppointmentService
	Users      *repository.UserRepo
	Businesses *repository.BusinessRepo
}

func NewAppointmentHandler(svc *service.AppointmentService, users *repository.UserRepo, businesses *repository.BusinessRepo) *AppointmentHandler {
	return &AppointmentHandler{Svc: svc, Users: users, Businesses: businesses}
}

type createAppointmentReq struct {
	BusinessID uint64    `json:"business_id"`
	StaffID    uint64    `json:"staff_id"`
	ServiceIDs []uint64  `json:"service_ids"`
	StartTime  time.Time `json:"start_time"`
	Comment    string    `json:"comment"`
}

type updateAppointmentReq struct {
	StaffID    uint64    `json:"staff_id"`
	ServiceIDs []uint64  `json:"service_ids"`
	StartTime  time.Time `json:"start_time"`
	Comment    string    `json:"comment"`
}

type statusReq struct {
	Status string `json:"status"`
}

// Create handles POST /v1/appointments (CUSTOMER only).
func (h *AppointmentHandler) Create(c echo.Context) error {
	cust, err := h.customer(c)
	if err != nil {
		return writeError(c, err)
	}
	var req createAppointmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StartTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time required"})
	}

	appt, err := h.Svc.Create(c.Request().Context(), service.CreateInput{
		CustomerID: cust.ID,
		BusinessID: req.BusinessID,
		StaffID:    req.StaffID,
		ServiceIDs: req.ServiceIDs,
		StartTime:  req.StartTime,
		Comment:    req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, appt)
}

// GetByID handles GET /v1/appointments/:id.
func (h *AppointmentHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
	}
	appt, err := h.authorized(c, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

// ListMine handles GET /v1/appointments (CUSTOMER only).
func (h *AppointmentHandler) ListMine(c echo.Context) error {
	cust, err := h.customer(c)
	if err != nil {
		return writeError(c, err)
	}
	items, err := h.Svc.ListByCustomer(c.Request().Context(), cust.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Update handles PUT /v1/appointments/:id.  Rebooks time, staff and
// the service set; customer and business stay fixed.
func (h *AppointmentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
	}
	if _, err := h.authorized(c, id); err != nil {
		return writeError(c, err)
	}
	var req updateAppointmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.StartTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time required"})
	}

	appt, err := h.Svc.Update(c.Request().Context(), id, service.UpdateInput{
		StaffID:    req.StaffID,
		ServiceIDs: req.ServiceIDs,
		StartTime:  req.StartTime,
		Comment:    req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

// UpdateStatus handles PATCH /v1/appointments/:id/status.  Owners may
// apply any legal transition on their business; customers may only
// cancel their own appointments.
func (h *AppointmentHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	next, ok := model.ParseStatus(req.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	if _, err := h.authorized(c, id); err != nil {
		return writeError(c, err)
	}
	if middleware.Role(c) == "CUSTOMER" && next != model.StatusCancelled {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "customers may only cancel"})
	}

	appt, err := h.Svc.UpdateStatus(c.Request().Context(), id, next)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

// Delete handles DELETE /v1/appointments/:id.
func (h *AppointmentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment id"})
	}
	if _, err := h.authorized(c, id); err != nil {
		return writeError(c, err)
	}
	if err := h.Svc.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListByBusiness handles GET /v1/businesses/:id/appointments (OWNER only).
func (h *AppointmentHandler) ListByBusiness(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid business id"})
	}
	ctx := c.Request().Context()
	biz, err := h.Businesses.GetByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if biz.OwnerID != middleware.UserID(c) {
		return writeError(c, repository.ErrForbidden)
	}
	items, err := h.Svc.ListByBusiness(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListByStaff handles GET /v1/staff/:id/appointments (OWNER only).
func (h *AppointmentHandler) ListByStaff(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid staff id"})
	}
	ctx := c.Request().Context()
	staff, err := h.Businesses.GetStaff(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	biz, err := h.Businesses.GetByID(ctx, staff.BusinessID)
	if err != nil {
		return writeError(c, err)
	}
	if biz.OwnerID != middleware.UserID(c) {
		return writeError(c, repository.ErrForbidden)
	}
	items, err := h.Svc.ListByStaff(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteExpired handles DELETE /v1/appointments/expired?before=RFC3339
// (OWNER only).  It reports whether anything was removed.
func (h *AppointmentHandler) DeleteExpired(c echo.Context) error {
	raw := c.QueryParam("before")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "before is required"})
	}
	cutoff, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "before must be RFC3339"})
	}
	deleted, err := h.Svc.DeleteBefore(c.Request().Context(), cutoff)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

// customer resolves the authenticated user's booking profile.
func (h *AppointmentHandler) customer(c echo.Context) (model.Customer, error) {
	uid := middleware.UserID(c)
	if uid == 0 {
		return model.Customer{}, repository.ErrForbidden
	}
	return h.Users.CustomerByUserID(c.Request().Context(), uid)
}

// authorized fetches the appointment and checks that the caller either
// booked it or owns the business it belongs to.
func (h *AppointmentHandler) authorized(c echo.Context, id uint64) (model.Appointment, error) {
	ctx := c.Request().Context()
	appt, err := h.Svc.GetByID(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	uid := middleware.UserID(c)
	switch middleware.Role(c) {
	case "CUSTOMER":
		cust, err := h.Users.CustomerByUserID(ctx, uid)
		if err == nil && cust.ID == appt.CustomerID {
			return appt, nil
		}
	case "OWNER":
		biz, err := h.Businesses.GetByID(ctx, appt.BusinessID)
		if err == nil && biz.OwnerID == uid {
			return appt, nil
		}
	}
	return model.Appointment{}, repository.ErrForbidden
}

// writeError maps service and repository errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Printf("appointments: unhandled error on %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
