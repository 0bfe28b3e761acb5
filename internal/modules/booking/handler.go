package booking

import (
	"context"
	"net/http"
	"strconv"

	"groundbooking/internal/domain"
	"groundbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the customer-facing endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/number/:number", h.GetByNumber)
	rg.POST("/reserve", h.Reserve)
	rg.DELETE("/reserve/:token", h.ReleaseHold)
}

// RegisterAdminRoutes mounts the management endpoints on an authenticated group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	{
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PATCH("/:id/approve", h.Approve)
		bookings.PATCH("/:id/reject", h.Reject)
		bookings.PATCH("/:id/complete", h.Complete)
		bookings.POST("/:id/payments", h.RecordPayment)
		bookings.POST("/:id/charges", h.AddExtraCharge)
		bookings.DELETE("/:id", h.DeleteBooking)
	}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	b, created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{"booking": b})
}

func (h *Handler) GetByNumber(c *gin.Context) {
	b, err := h.service.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) Reserve(c *gin.Context) {
	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	res, err := h.service.Reserve(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	// A refused hold is a normal outcome: the body lists the taken hours.
	status := http.StatusCreated
	if !res.Accepted {
		status = http.StatusOK
	}
	response.Success(c, status, res)
}

func (h *Handler) ReleaseHold(c *gin.Context) {
	if err := h.service.ReleaseHold(c.Request.Context(), c.Param("token")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"released": true})
}

func (h *Handler) ListBookings(c *gin.Context) {
	req := ListRequest{
		From: c.Query("from"),
		To:   c.Query("to"),
	}
	if v := c.Query("status"); v != "" {
		st, err := domain.ParseBookingStatus(v)
		if err != nil {
			response.Fail(c, err)
			return
		}
		req.Status = &st
	}
	var ok bool
	if req.Limit, ok = queryInt(c, "limit"); !ok {
		return
	}
	if req.Offset, ok = queryInt(c, "offset"); !ok {
		return
	}

	list, total, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"bookings": list,
		"total":    total,
	})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) Approve(c *gin.Context) {
	h.action(c, h.service.Approve)
}

func (h *Handler) Reject(c *gin.Context) {
	h.action(c, h.service.Reject)
}

func (h *Handler) Complete(c *gin.Context) {
	h.action(c, h.service.Complete)
}

func (h *Handler) action(c *gin.Context, fn func(context.Context, int64, ActionRequest, string) (*domain.Booking, error)) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req ActionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err)
			return
		}
	}

	b, err := fn(c.Request.Context(), id, req, c.GetString("actor"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.RecordPayment(c.Request.Context(), id, req, c.GetString("actor"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) AddExtraCharge(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.AddExtraCharge(c.Request.Context(), id, req, c.GetString("actor"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, c.GetString("actor")); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, domain.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		response.Fail(c, domain.NewValidationError(name, "must be a non-negative integer"))
		return 0, false
	}
	return n, true
}
