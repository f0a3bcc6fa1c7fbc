package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServer_Health(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("localhost:0", reg, func() string { return "sleeping" }, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"state":"sleeping"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := NewRegistry()
	reg.RecordCycle("traded")
	srv := NewServer("localhost:0", reg, nil, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `crossover_loop_cycles_total{outcome="traded"} 1`) {
		t.Errorf("metrics output missing cycle counter")
	}

	if got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/metrics", "2xx")); got != 1 {
		t.Errorf("http_requests_total = %v, want 1", got)
	}
}

func TestServer_NotFoundStatusRecorded(t *testing.T) {
	reg := NewRegistry()
	srv := NewServer("localhost:0", reg, nil, nil)

	req := httptest.NewRequest("GET", "/missing", nil)
	w := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(w, req)

	if got := testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/missing", "4xx")); got != 1 {
		t.Errorf("http_requests_total 4xx = %v, want 1", got)
	}
}
