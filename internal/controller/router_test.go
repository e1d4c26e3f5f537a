package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Freeeeeet/consult_booking/internal/controller/handlers"
	"github.com/Freeeeeet/consult_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Сервисы без хранилища: до него доходят только запросы, которые здесь не проверяются
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	payments := service.NewPaymentService(service.PaymentDeps{Logger: logger})
	h := handlers.NewHandlers(nil, nil, nil, payments, logger)

	r, err := NewRouter(RouterConfig{WebhookPerMinute: 60, WebhookBurst: 2}, h, logger)
	require.NoError(t, err)
	return r
}

func do(r *gin.Engine, method, path, body string, actor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(handlers.ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := do(newTestRouter(t), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAuthenticatedRoutesNeedActor(t *testing.T) {
	r := newTestRouter(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/availability/rules"},
		{http.MethodGet, "/api/availability/me/slots"},
		{http.MethodGet, "/api/consultants/1/quote"},
		{http.MethodPost, "/api/appointments"},
		{http.MethodGet, "/api/appointments/me"},
		{http.MethodPatch, "/api/appointments/1/reschedule"},
		{http.MethodPost, "/api/payments/checkout"},
		{http.MethodPost, "/api/payments/orders/1/cancel"},
	}
	for _, rt := range routes {
		w := do(r, rt.method, rt.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, rt.method+" "+rt.path)
	}
}

func TestRuleRequestUsesTimeOfDayRule(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/availability/rules",
		`{"weekday":1,"start_time":"25:00","end_time":"12:00","slot_minutes":30}`, "1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "hhmm")
}

func TestBadPathAndQuery(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/appointments/abc", "", "2").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/consultants/1/availability/slots?from=tomorrow", "", "2").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/appointments", `{"consultant_id":1}`, "2").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/payments/confirm", `{"imp_uid":"imp_1"}`, "2").Code)
}

func TestWebhookWithoutIdentifiers(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/payments/portone/webhook", `{"status":"paid"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_WEBHOOK")

	w = do(r, http.MethodPost, "/api/payments/portone/webhook", `not json`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookIsRateLimited(t *testing.T) {
	r := newTestRouter(t)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(r, http.MethodPost, "/api/payments/portone/webhook", `{}`, "").Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
