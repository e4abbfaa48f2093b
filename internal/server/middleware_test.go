package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/models"
)

func TestUserContextMiddleware_Headers(t *testing.T) {
	var got *common.UserContext
	handler := userContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = common.UserContextFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set(headerUserID, " tech-7 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.Equal(t, "tech-7", got.UserID)
	assert.False(t, got.AllUsers)

	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set(headerAllUsers, "true")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.True(t, got.AllUsers)
	assert.Equal(t, "", common.ResolveScopeUserID(common.WithUserContext(req.Context(), got)))
}

func TestUserContextMiddleware_NoHeaders(t *testing.T) {
	handler := userContextMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Nil(t, common.UserContextFromContext(r.Context()))
		assert.Equal(t, common.DefaultUserID, common.ResolveUserID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCorrelationIDMiddleware(t *testing.T) {
	var fromCtx string
	handler := correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = common.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", rr.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "req-123", fromCtx)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Len(t, rr.Header().Get("X-Correlation-ID"), 8)
	assert.Equal(t, rr.Header().Get("X-Correlation-ID"), fromCtx)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	limited := rateLimitMiddleware(1)(ok)
	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		limited.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		codes[rr.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK], "burst is twice the rate")
	assert.Equal(t, 8, codes[http.StatusTooManyRequests])

	unlimited := rateLimitMiddleware(0)(ok)
	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		unlimited.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusForError(models.ErrInvalidAmount))
	assert.Equal(t, http.StatusNotFound, StatusForError(models.ErrAccountNotFound))
	assert.Equal(t, http.StatusConflict, StatusForError(models.ErrActiveGroupExists))
	assert.Equal(t, http.StatusConflict, StatusForError(models.ErrAlreadyRealized))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("disk on fire")))
}

func TestWriteServiceError_HidesForeignErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	writeServiceError(rr, common.NewSilentLogger(), errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk on fire")

	rr = httptest.NewRecorder()
	writeServiceError(rr, common.NewSilentLogger(), models.ErrInvalidAmount.WithField("amount"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"amount"`)
}
