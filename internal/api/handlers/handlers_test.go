package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oakwoodlegal/intake-agent/internal/relay"
	"github.com/oakwoodlegal/intake-agent/pkg/env"
)

func newTestHandler() *Handler {
	return NewHandler(&env.Config{AppEnv: "development"}, nil, nil, nil, relay.Config{}, relay.Registry{}, nil)
}

func buildTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", h.Root)
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", h.GetMetrics)
	router.GET("/metrics/prometheus", h.GetPrometheusMetrics)
	router.GET("/api/calls", h.ListCalls)
	return router
}

func TestRootRespondsOK(t *testing.T) {
	router := buildTestRouter(newTestHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", w.Body.String())
	}
}

func TestHealthCheckReportsDisabledBackends(t *testing.T) {
	router := buildTestRouter(newTestHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	for _, svc := range []string{"redis", "mongodb", "postgres"} {
		if resp.Services[svc] != "disabled" {
			t.Errorf("service %s = %q, want disabled", svc, resp.Services[svc])
		}
	}
	if resp.Services["relay"] != "healthy" {
		t.Errorf("relay = %q, want healthy", resp.Services["relay"])
	}
}

func TestMetricsEndpoints(t *testing.T) {
	router := buildTestRouter(newTestHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if _, ok := body["sessions"]; !ok {
		t.Error("metrics response missing sessions section")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics/prometheus status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "relay_") {
		t.Error("prometheus output missing relay_ metrics")
	}
}

func TestListCallsWithoutStore(t *testing.T) {
	router := buildTestRouter(newTestHandler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calls", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestDrainSessionsWaitsForActiveCalls(t *testing.T) {
	h := newTestHandler()

	// no active calls: returns immediately
	if !h.DrainSessions(time.Second) {
		t.Fatal("drain with no sessions should complete")
	}

	release := make(chan struct{})
	h.sessions.Add(1)
	go func() {
		<-release
		h.sessions.Done()
	}()

	if h.DrainSessions(20 * time.Millisecond) {
		t.Fatal("drain should time out while a call is active")
	}

	close(release)
	if !h.DrainSessions(2 * time.Second) {
		t.Fatal("drain should complete once the call ends")
	}
}
