package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "success"},
		{204, "success"},
		{404, "client_error"},
		{429, "rate_limited"},
		{500, "server_error"},
		{503, "server_error"},
		{0, "error"},
	}
	for _, tt := range tests {
		if got := StatusLabel(tt.code); got != tt.want {
			t.Errorf("StatusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestMetricsHandler_ServesRegisteredMetrics(t *testing.T) {
	STACRequestsTotal.WithLabelValues("items", "success").Inc()
	PipelineRunsTotal.WithLabelValues("success").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"stacRequestsTotal", "pipelineRunsTotal", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}
