package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/courseworks/fulfillment-backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
	}
}

func serve(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetricsRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, registry)

	rec := serve(t, router, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "test", rec.Header().Get("X-CourseWorks-Env"))

	rec = serve(t, router, http.MethodGet, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil)

	rec := serve(t, router, http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, router, http.MethodGet, "/api/v1/webhooks/stripe")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterWebhookRouteWired(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil)

	// Service and client are nil, so the controller answers 500 rather
	// than 404: the route itself exists.
	rec := serve(t, router, http.MethodPost, "/api/v1/webhooks/stripe")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterCheckoutRouteWired(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil)

	rec := serve(t, router, http.MethodPost, "/api/v1/checkout")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouterEntitlementsRoutesWired(t *testing.T) {
	router := NewRouter(testConfig(), nil, nil, nil, nil, nil, nil, nil, nil, nil)

	rec := serve(t, router, http.MethodGet, "/api/v1/entitlements")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serve(t, router, http.MethodGet, "/api/v1/entitlements/check")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
