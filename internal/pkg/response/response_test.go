package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"groundbooking/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func run(t *testing.T, fn func(c *gin.Context)) (int, errorBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	fn(c)

	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return rr.Code, body
}

func TestBadRequest_NamesMistypedField(t *testing.T) {
	var dst struct {
		Customer struct {
			Phone string `json:"phone"`
		} `json:"customer"`
		Hours []int `json:"hours"`
	}
	decodeErr := json.Unmarshal([]byte(`{"customer":{"phone":"0300"},"hours":"9-11"}`), &dst)
	require.Error(t, decodeErr)

	code, body := run(t, func(c *gin.Context) { BadRequest(c, decodeErr) })
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	assert.Equal(t, "hours", body.Error.Details["field"])
}

func TestBadRequest_MalformedBody(t *testing.T) {
	code, body := run(t, func(c *gin.Context) { BadRequest(c, errors.New("unexpected EOF")) })
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "body", body.Error.Details["field"])
}

func TestFail_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.NewValidationError("date", "is required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{&domain.SlotConflictError{Date: "2026-03-01", Hours: []int{14}}, http.StatusConflict, "SLOT_CONFLICT"},
		{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{domain.ErrStaleState, http.StatusConflict, "STALE_STATE"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status, body := run(t, func(c *gin.Context) { Fail(c, tc.err) })
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
}
