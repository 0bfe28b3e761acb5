package availability

import (
	"net/http"

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/slots", h.GetSlots)
}

func (h *Handler) GetSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Fail(c, domain.NewValidationError("date", "is required"))
		return
	}

	slots, err := h.service.SlotsFor(c.Request.Context(), date)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"date":  date,
		"slots": slots,
	})
}
