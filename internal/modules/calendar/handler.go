package calendar

import (
	"net/http"
	"slices"

	"groundbooking/internal/domain"
	"groundbooking/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	projector *Projector
}

func NewHandler(projector *Projector) *Handler {
	return &Handler{projector: projector}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/calendar", h.GetEvents)
}

func (h *Handler) GetEvents(c *gin.Context) {
	r := DateRange{Start: c.Query("start"), End: c.Query("end")}
	if r.End == "" {
		r.End = r.Start
	}

	var status *domain.BookingStatus
	if v := c.Query("status"); v != "" {
		st, err := domain.ParseBookingStatus(v)
		if err != nil {
			response.Fail(c, err)
			return
		}
		status = &st
	}

	seq, err := h.projector.EventsFor(c.Request.Context(), r, status)
	if err != nil {
		response.Fail(c, err)
		return
	}

	events := slices.Collect(seq)
	if events == nil {
		events = []CalendarEvent{}
	}
	response.Success(c, http.StatusOK, gin.H{"events": events})
}
