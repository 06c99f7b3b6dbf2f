package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := httpRequestsTotal.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	beforeRoute := counterValue(t, http.MethodGet, "/ping/:id", "200")
	beforeUnmatched := counterValue(t, http.MethodGet, "unmatched", "404")

	for _, path := range []string{"/ping/1", "/ping/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := counterValue(t, http.MethodGet, "/ping/:id", "200") - beforeRoute; got != 2 {
		t.Errorf("route counter delta = %v, want 2", got)
	}
	if got := counterValue(t, http.MethodGet, "unmatched", "404") - beforeUnmatched; got != 1 {
		t.Errorf("unmatched counter delta = %v, want 1", got)
	}
}
