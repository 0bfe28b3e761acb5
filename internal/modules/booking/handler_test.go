package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := setup(t, Config{})
	h := NewHandler(env.svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterRoutes(v1)

	admin := v1.Group("/admin")
	admin.Use(func(c *gin.Context) {
		c.Set("actor", "test-admin")
		c.Set("role", "admin")
		c.Next()
	})
	h.RegisterAdminRoutes(admin)
	return r
}

func doJSON(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Booking struct {
			ID               int64  `json:"id"`
			Status           string `json:"status"`
			TotalAmount      int64  `json:"total_amount"`
			RemainingPayment int64  `json:"remaining_payment"`
			Version          int64  `json:"version"`
		} `json:"booking"`
	} `json:"data"`
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func createBody(hours ...int) map[string]any {
	return map[string]any{
		"customer": map[string]any{"name": "Bilal", "phone": "0333-1112222"},
		"date":     "2026-03-01",
		"hours":    hours,
		"payment":  map[string]any{"advance_payment": 500, "method": "cash"},
	}
}

func TestHandler_CreateAndReplay(t *testing.T) {
	r := setupRouter(t)
	key := map[string]string{"Idempotency-Key": "abc-123"}

	rr := doJSON(r, http.MethodPost, "/api/v1/bookings", createBody(9, 10), key)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode(t, rr)
	assert.True(t, first.Success)
	assert.Equal(t, int64(3000), first.Data.Booking.TotalAmount)
	assert.Equal(t, int64(2500), first.Data.Booking.RemainingPayment)

	rr = doJSON(r, http.MethodPost, "/api/v1/bookings", createBody(9, 10), key)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, first.Data.Booking.ID, decode(t, rr).Data.Booking.ID)
}

func TestHandler_ConflictAndValidation(t *testing.T) {
	r := setupRouter(t)

	rr := doJSON(r, http.MethodPost, "/api/v1/bookings", createBody(14, 15), nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(r, http.MethodPost, "/api/v1/bookings", createBody(13, 14), nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "SLOT_CONFLICT", body.Error.Code)
	assert.Equal(t, []any{float64(14)}, body.Error.Details["hours"])

	rr = doJSON(r, http.MethodPost, "/api/v1/reserve", map[string]any{"date": "2026-03-01", "hours": []int{13, 14}}, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var refused struct {
		Success bool          `json:"success"`
		Data    ReserveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &refused))
	assert.True(t, refused.Success)
	assert.False(t, refused.Data.Accepted)
	assert.Equal(t, []int{14}, refused.Data.Conflicts)
	assert.Empty(t, refused.Data.HoldToken)

	rr = doJSON(r, http.MethodPost, "/api/v1/reserve", map[string]any{"date": "2026-03-01", "hours": []int{16}}, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var held struct {
		Data ReserveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &held))
	assert.True(t, held.Data.Accepted)
	assert.Empty(t, held.Data.Conflicts)
	assert.NotEmpty(t, held.Data.HoldToken)

	bad := createBody(10)
	bad["customer"] = map[string]any{"name": "Bilal"}
	rr = doJSON(r, http.MethodPost, "/api/v1/bookings", bad, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body = decode(t, rr)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "customer.phone", body.Error.Details["field"])

	rr = doJSON(r, http.MethodPost, "/api/v1/bookings", "not an object", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_AdminLifecycle(t *testing.T) {
	r := setupRouter(t)

	rr := doJSON(r, http.MethodPost, "/api/v1/bookings", createBody(18), nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode(t, rr).Data.Booking.ID
	base := fmt.Sprintf("/api/v1/admin/bookings/%d", id)

	rr = doJSON(r, http.MethodPatch, base+"/approve", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "approved", decode(t, rr).Data.Booking.Status)

	rr = doJSON(r, http.MethodPatch, base+"/approve", nil, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode(t, rr).Error.Code)

	rr = doJSON(r, http.MethodPost, base+"/payments", map[string]any{"amount": 5000, "method": "cash"}, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "amount", decode(t, rr).Error.Details["field"])

	rr = doJSON(r, http.MethodPost, base+"/payments", map[string]any{"amount": 1500, "method": "cash"}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int64(0), decode(t, rr).Data.Booking.RemainingPayment)

	rr = doJSON(r, http.MethodPatch, base+"/reject", map[string]any{"reason": "ground flooded", "expected_version": 1}, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "STALE_STATE", decode(t, rr).Error.Code)

	rr = doJSON(r, http.MethodGet, "/api/v1/admin/bookings?status=approved&from=2026-03-01", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)

	rr = doJSON(r, http.MethodGet, "/api/v1/admin/bookings?status=unknown", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(r, http.MethodGet, "/api/v1/admin/bookings/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(r, http.MethodDelete, base, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(r, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
