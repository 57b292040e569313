package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/theta/internal/app"
	"github.com/newthinker/theta/internal/config"
	"github.com/newthinker/theta/internal/metrics"
	"go.uber.org/zap"
)

const evaluateBody = `{
	"snapshot": {"business_cycle": "peak", "liquidity": "adequate"},
	"market_data": [{"symbol": "GC", "spot": 2400, "implied_vol": 0.18}]
}`

func newTestServer(t *testing.T, cfg Config, reg *metrics.Registry) *Server {
	t.Helper()
	var opts []app.Option
	if reg != nil {
		opts = append(opts, app.WithRecorder(reg))
	}
	a := app.New(config.Defaults(), zap.NewNop(), opts...)
	srv, err := NewServer(cfg, Dependencies{App: a, Metrics: reg}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, Config{Host: "localhost"}, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if w.Header().Get(metrics.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}

func TestServer_RequiresApp(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, zap.NewNop()); err == nil {
		t.Error("expected error without app")
	}
}

func TestServer_Assets(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("GET", "/api/v1/assets", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestServer_EvaluateAndMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv := newTestServer(t, Config{MetricsPath: "/metrics"}, reg)

	req := httptest.NewRequest("POST", "/api/v1/evaluate", bytes.NewBufferString(evaluateBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/metrics", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", w.Code)
	}

	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		`theta_evaluations_total{status="ok"} 1`,
		`theta_signals_total{asset_class="precious_metals"`,
		`theta_strike_solves_total{converged="true",kind=`,
		`http_requests_total{method="POST",path="/api/v1/evaluate",status="2xx"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestServer_MetricsDisabled(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", w.Code)
	}
}

func TestServer_CORS(t *testing.T) {
	srv := newTestServer(t, Config{AllowedOrigins: []string{"http://ui.local"}}, nil)

	req := httptest.NewRequest("OPTIONS", "/api/v1/evaluate", nil)
	req.Header.Set("Origin", "http://ui.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://ui.local" {
		t.Errorf("expected allowed origin, got %q", got)
	}

	req = httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://evil.local")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for unknown origin, got %q", got)
	}
}

func TestServer_NoCORSByDefault(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://ui.local")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header, got %q", got)
	}
}
