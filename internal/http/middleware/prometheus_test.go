package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(m.Handler())
	app.Get(MetricsPath, MetricsHandler(reg))
	return app, m, reg
}

func TestPrometheusMiddleware_CountsByRoutePattern(t *testing.T) {
	app, m, _ := newMetricsApp(t)
	app.Get("/api/documents/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Delete("/api/documents/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Post("/api/documents/upload", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	})

	for _, r := range []struct{ method, path string }{
		{"GET", "/api/documents/6f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"},
		{"GET", "/api/documents/0a0b0c0d-1e1f-4a4b-8c8d-9e9f0a1b2c3d"},
		{"DELETE", "/api/documents/6f1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"},
		{"POST", "/api/documents/upload"},
	} {
		_, err := app.Test(httptest.NewRequest(r.method, r.path, nil))
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/api/documents/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("DELETE", "/api/documents/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCount.WithLabelValues("POST", "/api/documents/upload", "400")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.requestDuration), "one series per method and route")
}

func TestPrometheusMiddleware_ScrapeNotCounted(t *testing.T) {
	app, m, _ := newMetricsApp(t)
	app.Get("/dashboard", func(c *fiber.Ctx) error { return c.SendString("ok") })

	_, err := app.Test(httptest.NewRequest("GET", "/dashboard", nil))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", MetricsPath, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `http_requests_total{method="GET",path="/dashboard",status="200"} 1`))
	assert.NotContains(t, string(body), `path="/metrics"`)
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestCount))
}

func TestNewPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
