package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
}

func TestRegistry_HTTPMetrics(t *testing.T) {
	reg := NewRegistry()

	// Verify HTTP metrics are registered
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	// Should have go runtime metrics at minimum
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func TestRegistry_RecordRequest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRequest("GET", "/api/v1/evaluate", 200, 0.05)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected http_requests_total metric")
	}
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			reg := NewRegistry()
			reg.RecordRequest("GET", "/test", tt.status, 0.01)

			mfs, err := reg.Gather()
			if err != nil {
				t.Fatalf("gather failed: %v", err)
			}

			found := false
			for _, mf := range mfs {
				if mf.GetName() == "http_requests_total" {
					for _, m := range mf.GetMetric() {
						for _, label := range m.GetLabel() {
							if label.GetName() == "status" && label.GetValue() == tt.expected {
								found = true
							}
						}
					}
				}
			}
			if !found {
				t.Errorf("expected status label %s for status code %d", tt.expected, tt.status)
			}
		})
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_requests_in_flight" {
			found = true
			for _, m := range mf.GetMetric() {
				if m.GetGauge().GetValue() != 1 {
					t.Errorf("expected in-flight gauge to be 1, got %v", m.GetGauge().GetValue())
				}
			}
		}
	}
	if !found {
		t.Error("expected http_requests_in_flight metric")
	}
}

func TestRegistry_DurationHistogram(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRequest("POST", "/api/v1/scores", 200, 0.123)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "http_request_duration_seconds" {
			found = true
			for _, m := range mf.GetMetric() {
				hist := m.GetHistogram()
				if hist.GetSampleCount() != 1 {
					t.Errorf("expected sample count 1, got %d", hist.GetSampleCount())
				}
				if hist.GetSampleSum() < 0.12 || hist.GetSampleSum() > 0.13 {
					t.Errorf("expected sample sum ~0.123, got %v", hist.GetSampleSum())
				}
			}
		}
	}
	if !found {
		t.Error("expected http_request_duration_seconds metric")
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}

func findMetric(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestRegistry_RecordEvaluation(t *testing.T) {
	reg := NewRegistry()

	reg.RecordEvaluation("ok", 0.002)
	reg.RecordEvaluation("ok", 0.004)
	reg.RecordEvaluation("error", 0.001)

	mf := findMetric(t, reg, "theta_evaluations_total")
	if mf == nil {
		t.Fatal("expected theta_evaluations_total metric")
	}
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		counts[labelValue(m, "status")] = m.GetCounter().GetValue()
	}
	if counts["ok"] != 2 || counts["error"] != 1 {
		t.Errorf("unexpected evaluation counts %v", counts)
	}

	hist := findMetric(t, reg, "theta_evaluation_duration_seconds")
	if hist == nil {
		t.Fatal("expected theta_evaluation_duration_seconds metric")
	}
	if got := hist.GetMetric()[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Errorf("expected 3 samples, got %d", got)
	}
}

func TestRegistry_RecordSignal(t *testing.T) {
	reg := NewRegistry()

	reg.RecordSignal("energy", "sell")
	reg.RecordSignal("energy", "sell")

	mf := findMetric(t, reg, "theta_signals_total")
	if mf == nil {
		t.Fatal("expected theta_signals_total metric")
	}
	m := mf.GetMetric()[0]
	if labelValue(m, "asset_class") != "energy" || labelValue(m, "signal") != "sell" {
		t.Errorf("unexpected labels %v", m.GetLabel())
	}
	if m.GetCounter().GetValue() != 2 {
		t.Errorf("expected 2, got %v", m.GetCounter().GetValue())
	}
}

func TestRegistry_Observer(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveStrikeSolve("put", true)
	reg.ObserveStrikeSolve("call", false)
	reg.ObserveSkip("no_spec")

	solves := findMetric(t, reg, "theta_strike_solves_total")
	if solves == nil || len(solves.GetMetric()) != 2 {
		t.Fatal("expected two strike solve series")
	}
	for _, m := range solves.GetMetric() {
		kind, converged := labelValue(m, "kind"), labelValue(m, "converged")
		if (kind == "put") != (converged == "true") {
			t.Errorf("unexpected series kind=%s converged=%s", kind, converged)
		}
	}

	skipped := findMetric(t, reg, "theta_assets_skipped_total")
	if skipped == nil || labelValue(skipped.GetMetric()[0], "reason") != "no_spec" {
		t.Error("expected skip recorded with reason no_spec")
	}
}

func TestRegistry_SetPortfolio(t *testing.T) {
	reg := NewRegistry()

	reg.SetPortfolio(12500, 98000, 3)
	reg.SetPortfolio(5000, 40000, 1)

	tests := map[string]float64{
		"theta_portfolio_premium":      5000,
		"theta_portfolio_buying_power": 40000,
		"theta_portfolio_trades":       1,
	}
	for name, want := range tests {
		mf := findMetric(t, reg, name)
		if mf == nil {
			t.Fatalf("expected %s metric", name)
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
}
