package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"groundbooking/internal/config"
	"groundbooking/internal/container"
	"groundbooking/internal/database"
	"groundbooking/internal/pkg/clock"
	"groundbooking/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		StoreTimeout:        2 * time.Second,
		Location:            time.UTC,
		PendingTTL:          24 * time.Hour,
		HoldTTL:             10 * time.Minute,
		MaintenanceInterval: time.Minute,
		DefaultDayRate:      1500,
		DefaultNightRate:    2000,
		DefaultNightStart:   17,
		DefaultNightEnd:     7,
		JWTSecret:           "test-secret",
		JWTTTL:              time.Hour,
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
	}
}

func setupApp(t *testing.T) (*gin.Engine, *container.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory("routes_" + t.Name())
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	now := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	c := container.NewContainer(testConfig(), db, clock.Fixed{T: now})
	t.Cleanup(c.Close)

	_, err = c.Settings.Load(context.Background())
	require.NoError(t, err)

	return SetupRoutes(c), c
}

func call(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type slotsResponse struct {
	Data struct {
		Slots []struct {
			Hour   int    `json:"hour"`
			Status string `json:"status"`
			Rate   int64  `json:"rate"`
		} `json:"slots"`
	} `json:"data"`
}

func slotStatus(t *testing.T, r http.Handler, date string, hour int) (string, int64) {
	t.Helper()
	rr := call(r, http.MethodGet, "/api/v1/slots?date="+date, nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body slotsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.Slots, 24)
	s := body.Data.Slots[hour]
	return s.Status, s.Rate
}

func TestHealthz(t *testing.T) {
	r, _ := setupApp(t)

	rr := call(r, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"OK"`)
}

func TestBookingFlowEndToEnd(t *testing.T) {
	r, c := setupApp(t)
	const date = "2026-03-01"

	status, rate := slotStatus(t, r, date, 18)
	assert.Equal(t, "available", status)
	assert.Equal(t, int64(2000), rate)

	rr := call(r, http.MethodPost, "/api/v1/bookings", map[string]any{
		"customer": map[string]any{"name": "Hamza", "phone": "0300-5556677"},
		"date":     date,
		"hours":    []int{18, 19},
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		Data struct {
			Booking struct {
				ID            int64  `json:"id"`
				BookingNumber string `json:"booking_number"`
				TotalAmount   int64  `json:"total_amount"`
			} `json:"booking"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, int64(4000), created.Data.Booking.TotalAmount)

	status, _ = slotStatus(t, r, date, 18)
	assert.Equal(t, "pending", status)

	rr = call(r, http.MethodGet, "/api/v1/bookings/number/"+created.Data.Booking.BookingNumber, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	approvePath := fmt.Sprintf("/api/v1/admin/bookings/%d/approve", created.Data.Booking.ID)

	rr = call(r, http.MethodPatch, approvePath, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	viewer, err := c.JWT.GenerateToken("someone", "viewer")
	require.NoError(t, err)
	rr = call(r, http.MethodPatch, approvePath, nil, viewer)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin, err := c.JWT.GenerateToken("owner", "admin")
	require.NoError(t, err)
	rr = call(r, http.MethodPatch, approvePath, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	status, _ = slotStatus(t, r, date, 19)
	assert.Equal(t, "booked", status)

	rr = call(r, http.MethodGet, "/api/v1/admin/calendar?start="+date, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var cal struct {
		Data struct {
			Events []struct {
				ID     int64  `json:"id"`
				Status string `json:"status"`
			} `json:"events"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cal))
	require.Len(t, cal.Data.Events, 1)
	assert.Equal(t, created.Data.Booking.ID, cal.Data.Events[0].ID)
	assert.Equal(t, "approved", cal.Data.Events[0].Status)
}

func TestSettingsUpdateRequiresAdmin(t *testing.T) {
	r, c := setupApp(t)

	rr := call(r, http.MethodPatch, "/api/v1/admin/settings", map[string]any{"day_rate": 1800}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	admin, err := c.JWT.GenerateToken("owner", "admin")
	require.NoError(t, err)
	rr = call(r, http.MethodPatch, "/api/v1/admin/settings", map[string]any{"day_rate": 1800}, admin)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = call(r, http.MethodGet, "/api/v1/settings", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"day_rate":1800`)
	assert.Contains(t, rr.Body.String(), `"updated_by":"owner"`)

	_, rate := slotStatus(t, r, "2026-03-02", 10)
	assert.Equal(t, int64(1800), rate)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := setupApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfigAllowsAllForWildcard(t *testing.T) {
	cfg := corsConfig([]string{"*"})
	assert.True(t, cfg.AllowAllOrigins)
	assert.Empty(t, cfg.AllowOrigins)
	assert.False(t, cfg.AllowCredentials)

	cfg = corsConfig([]string{"https://ground.example"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.True(t, cfg.AllowCredentials)
}
