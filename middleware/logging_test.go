package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })
	return &buf
}

func TestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLog(t)

	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/items/:id", func(c *gin.Context) {
		c.Set(UserIDKey, "u1")
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside handler")
		c.Status(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/items/7", nil)
	req.Header.Set(TraceParentHeader, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	if got := w.Header().Get(TraceIDHeader); got != traceID {
		t.Fatalf("%s = %q, want %q", TraceIDHeader, got, traceID)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2: %s", len(lines), buf)
	}

	var handlerLine map[string]any
	if err := json.Unmarshal(lines[0], &handlerLine); err != nil {
		t.Fatalf("decode handler line: %v", err)
	}
	if handlerLine["trace_id"] != traceID {
		t.Errorf("handler log trace_id = %v, want %s", handlerLine["trace_id"], traceID)
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[1], &entry); err != nil {
		t.Fatalf("decode request line: %v", err)
	}
	want := map[string]any{
		"level":    "warn",
		"method":   "GET",
		"path":     "/items/7",
		"route":    "/items/:id",
		"status":   float64(http.StatusTeapot),
		"user_id":  "u1",
		"trace_id": traceID,
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestGetTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"traceparent", map[string]string{TraceParentHeader: "00-abc-def-01"}, "abc"},
		{"x-trace-id", map[string]string{TraceIDHeader: "given"}, "given"},
		{"traceparent wins", map[string]string{TraceParentHeader: "00-abc-def-01", TraceIDHeader: "given"}, "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				c.Request.Header.Set(k, v)
			}
			if got := GetTraceID(c); got != tc.want {
				t.Fatalf("GetTraceID = %q, want %q", got, tc.want)
			}
		})
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetTraceID(c); len(got) != 32 {
		t.Fatalf("generated trace id %q, want 32 hex chars", got)
	}
}
