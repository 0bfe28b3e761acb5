package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"groundbooking/internal/domain"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Fail writes the envelope for a domain error and records err on the
// context so the error logger sees it.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var ve *domain.ValidationError
	var ce *domain.SlotConflictError
	switch {
	case errors.As(err, &ve):
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", ve.Message, gin.H{"field": ve.Field})
	case errors.As(err, &ce):
		ErrorWithDetails(c, http.StatusConflict, "SLOT_CONFLICT", "Some of the requested slots are already taken",
			gin.H{"date": ce.Date, "hours": ce.Hours})
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrStaleState):
		Error(c, http.StatusConflict, "STALE_STATE", "Booking was modified concurrently, reload and retry")
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "Resource not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		Error(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable, try again")
	default:
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// BadRequest reports a malformed request body, naming the field when the
// decoder knows it.
func BadRequest(c *gin.Context, err error) {
	_ = c.Error(err)

	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("must be of type %s", te.Type), gin.H{"field": te.Field})
		return
	}
	ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", gin.H{"field": "body"})
}
