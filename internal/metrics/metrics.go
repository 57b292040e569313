package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Engine metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	signalsTotal       *prometheus.CounterVec
	assetsSkipped      *prometheus.CounterVec
	strikeSolves       *prometheus.CounterVec
	portfolioPremium   prometheus.Gauge
	portfolioBuyingPwr prometheus.Gauge
	portfolioTrades    prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theta_evaluations_total",
			Help: "Total number of portfolio evaluations",
		},
		[]string{"status"},
	)
	r.evaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "theta_evaluation_duration_seconds",
			Help:    "Portfolio evaluation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)
	r.signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theta_signals_total",
			Help: "Total number of asset class signals produced",
		},
		[]string{"asset_class", "signal"},
	)
	r.assetsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theta_assets_skipped_total",
			Help: "Total number of assets left out of a portfolio",
		},
		[]string{"reason"},
	)
	r.strikeSolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "theta_strike_solves_total",
			Help: "Total number of strike-for-delta searches",
		},
		[]string{"kind", "converged"},
	)
	r.portfolioPremium = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "theta_portfolio_premium",
			Help: "Total premium of the last evaluated portfolio",
		},
	)
	r.portfolioBuyingPwr = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "theta_portfolio_buying_power",
			Help: "Total buying power of the last evaluated portfolio",
		},
	)
	r.portfolioTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "theta_portfolio_trades",
			Help: "Number of trades in the last evaluated portfolio",
		},
	)

	reg.MustRegister(r.evaluationsTotal)
	reg.MustRegister(r.evaluationDuration)
	reg.MustRegister(r.signalsTotal)
	reg.MustRegister(r.assetsSkipped)
	reg.MustRegister(r.strikeSolves)
	reg.MustRegister(r.portfolioPremium)
	reg.MustRegister(r.portfolioBuyingPwr)
	reg.MustRegister(r.portfolioTrades)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordEvaluation records a finished evaluation.
func (r *Registry) RecordEvaluation(status string, duration float64) {
	r.evaluationsTotal.WithLabelValues(status).Inc()
	r.evaluationDuration.Observe(duration)
}

// RecordSignal records a scored asset class.
func (r *Registry) RecordSignal(assetClass, signal string) {
	r.signalsTotal.WithLabelValues(assetClass, signal).Inc()
}

// SetPortfolio publishes the totals of the last evaluated portfolio.
func (r *Registry) SetPortfolio(premium, buyingPower float64, trades int) {
	r.portfolioPremium.Set(premium)
	r.portfolioBuyingPwr.Set(buyingPower)
	r.portfolioTrades.Set(float64(trades))
}

// ObserveStrikeSolve records a strike search outcome.
func (r *Registry) ObserveStrikeSolve(kind string, converged bool) {
	r.strikeSolves.WithLabelValues(kind, strconv.FormatBool(converged)).Inc()
}

// ObserveSkip records an asset left out of a portfolio.
func (r *Registry) ObserveSkip(reason string) {
	r.assetsSkipped.WithLabelValues(reason).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
