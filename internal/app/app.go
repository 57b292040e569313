// Package app wires scoring, pricing, sizing and portfolio generation into
// one evaluation pass.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/theta/internal/alert"
	"github.com/newthinker/theta/internal/config"
	"github.com/newthinker/theta/internal/core"
	"github.com/newthinker/theta/internal/history"
	"github.com/newthinker/theta/internal/notifier"
	"github.com/newthinker/theta/internal/portfolio"
	"github.com/newthinker/theta/internal/pricing"
	"github.com/newthinker/theta/internal/scoring"
	"github.com/newthinker/theta/internal/sizing"
	"go.uber.org/zap"
)

// Recorder receives evaluation metrics. *metrics.Registry satisfies it.
type Recorder interface {
	portfolio.Observer
	RecordEvaluation(status string, duration float64)
	RecordSignal(assetClass, signal string)
	SetPortfolio(premium, buyingPower float64, trades int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStrikeSolve(string, bool)    {}
func (nopRecorder) ObserveSkip(string)                 {}
func (nopRecorder) RecordEvaluation(string, float64)   {}
func (nopRecorder) RecordSignal(string, string)        {}
func (nopRecorder) SetPortfolio(float64, float64, int) {}

// Option configures an App.
type Option func(*App)

// WithRecorder publishes evaluation metrics to r.
func WithRecorder(r Recorder) Option {
	return func(a *App) {
		if r != nil {
			a.recorder = r
		}
	}
}

// Input is one evaluation request: the macro snapshot and the market data
// for every asset to consider.
type Input struct {
	Snapshot   core.MacroSnapshot     `json:"snapshot" yaml:"snapshot"`
	MarketData []core.AssetMarketData `json:"market_data" yaml:"market_data"`
}

// SkippedAsset is an asset left out of the portfolio, with the reason.
type SkippedAsset struct {
	Symbol string               `json:"symbol"`
	Reason portfolio.SkipReason `json:"reason"`
	Error  string               `json:"error,omitempty"`
}

// Evaluation is the outcome of one Evaluate call.
type Evaluation struct {
	ID        string                      `json:"id"`
	CreatedAt time.Time                   `json:"created_at"`
	Scores    []core.AssetClassScore      `json:"scores"`
	Positions []core.OptionStrategyResult `json:"positions"`
	Skipped   []SkippedAsset              `json:"skipped"`
	Metrics   core.PortfolioMetrics       `json:"metrics"`
	Alerts    []alert.Alert               `json:"alerts"`
}

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	recorder  Recorder
	scorer    *scoring.Engine
	model     *pricing.Model
	generator *portfolio.Generator

	history   *history.Store[*Evaluation]
	notifiers *notifier.Registry

	mu          sync.RWMutex
	evaluations int
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Defaults()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		recorder:  nopRecorder{},
		history:   history.NewStore[*Evaluation](cfg.History.Size, cfg.History.TTL),
		notifiers: notifier.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.scorer = scoring.NewEngine(cfg.ScoringEngineConfig(), logger.Named("scoring"))
	a.model = pricing.New(cfg.PricingConfig())
	a.generator = portfolio.NewGenerator(
		cfg.PortfolioConfig(),
		cfg.Assets,
		a.model,
		sizing.New(cfg.SizingConfig()),
		portfolio.WithLogger(logger.Named("portfolio")),
		portfolio.WithObserver(a.recorder),
	)
	return a
}

// RegisterNotifier adds a receiver for fired alerts.
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// Model returns the option pricing model the app prices with.
func (a *App) Model() *pricing.Model {
	return a.model
}

// Assets returns the configured asset specification table.
func (a *App) Assets() []core.AssetSpecification {
	out := make([]core.AssetSpecification, len(a.cfg.Assets))
	copy(out, a.cfg.Assets)
	return out
}

// ComputeAssetClassScores scores every configured asset class against snap.
func (a *App) ComputeAssetClassScores(snap core.MacroSnapshot) ([]core.AssetClassScore, error) {
	return a.scorer.Score(snap)
}

// GeneratePortfolio builds a position for every asset whose class was scored.
// Assets that cannot be positioned are reported in the Skipped list.
func (a *App) GeneratePortfolio(ctx context.Context, data []core.AssetMarketData, scores []core.AssetClassScore) (portfolio.Report, error) {
	return a.generator.Generate(ctx, data, scores)
}

// AggregatePortfolioMetrics reduces positions into portfolio totals.
func (a *App) AggregatePortfolioMetrics(results []core.OptionStrategyResult) core.PortfolioMetrics {
	return a.generator.Aggregate(results)
}

// Evaluate runs scoring, generation and aggregation for one input.
func (a *App) Evaluate(ctx context.Context, in Input) (*Evaluation, error) {
	start := time.Now()
	eval, err := a.evaluate(ctx, in)

	status := "ok"
	if err != nil {
		status = "error"
	}
	a.recorder.RecordEvaluation(status, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.evaluations++
	a.mu.Unlock()
	a.history.Put(eval.ID, eval)

	a.logger.Info("evaluation complete",
		zap.String("id", eval.ID),
		zap.Int("positions", len(eval.Positions)),
		zap.Int("skipped", len(eval.Skipped)),
		zap.Float64("total_premium", eval.Metrics.TotalPremium),
		zap.Duration("took", time.Since(start)),
	)
	a.notify(ctx, eval)
	return eval, nil
}

func (a *App) evaluate(ctx context.Context, in Input) (*Evaluation, error) {
	scores, err := a.ComputeAssetClassScores(in.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("scoring snapshot: %w", err)
	}
	for _, s := range scores {
		a.recorder.RecordSignal(string(s.AssetClass), string(s.Signal))
	}

	report, err := a.GeneratePortfolio(ctx, in.MarketData, scores)
	if err != nil {
		return nil, fmt.Errorf("generating portfolio: %w", err)
	}

	metrics := a.AggregatePortfolioMetrics(report.Results)
	a.recorder.SetPortfolio(metrics.TotalPremium, metrics.TotalBuyingPower, metrics.TradeCount)

	eval := &Evaluation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Scores:    scores,
		Positions: report.Results,
		Skipped:   make([]SkippedAsset, 0, len(report.Skipped)),
		Metrics:   metrics,
	}
	if eval.Positions == nil {
		eval.Positions = []core.OptionStrategyResult{}
	}
	for _, s := range report.Skipped {
		eval.Skipped = append(eval.Skipped, skipped(s))
	}

	nonConverged := 0
	for _, r := range report.Results {
		if !r.Converged {
			nonConverged++
		}
	}
	eval.Alerts = alert.Check(a.cfg.Alerts, alert.Figures(metrics, len(report.Skipped), nonConverged))
	if eval.Alerts == nil {
		eval.Alerts = []alert.Alert{}
	}
	for _, al := range eval.Alerts {
		fields := []zap.Field{zap.String("rule", al.Rule), zap.Float64("value", al.Value)}
		if al.Severity == alert.SeverityInfo {
			a.logger.Info(al.Message, fields...)
		} else {
			a.logger.Warn(al.Message, fields...)
		}
	}
	return eval, nil
}

func (a *App) notify(ctx context.Context, eval *Evaluation) {
	if len(eval.Alerts) == 0 || a.notifiers.Len() == 0 {
		return
	}
	errs := a.notifiers.NotifyAll(ctx, notifier.Notification{
		EvaluationID: eval.ID,
		CreatedAt:    eval.CreatedAt,
		Alerts:       eval.Alerts,
		Metrics:      eval.Metrics,
	})
	for name, err := range errs {
		a.logger.Warn("alert delivery failed", zap.String("notifier", name), zap.Error(err))
	}
}

func skipped(s portfolio.Skip) SkippedAsset {
	out := SkippedAsset{Symbol: s.Symbol, Reason: s.Reason}
	if s.Err != nil {
		var coreErr *core.Error
		if errors.As(s.Err, &coreErr) && coreErr.Cause != nil {
			out.Error = coreErr.Cause.Error()
		} else {
			out.Error = s.Err.Error()
		}
	}
	return out
}

// Evaluation returns a retained evaluation by ID.
func (a *App) Evaluation(id string) (*Evaluation, error) {
	return a.history.Get(id)
}

// Evaluations returns the retained evaluations, newest first.
func (a *App) Evaluations() []*Evaluation {
	return a.history.List()
}

// Asset returns the specification for symbol.
func (a *App) Asset(symbol string) (core.AssetSpecification, error) {
	spec, ok := a.generator.Spec(symbol)
	if !ok {
		return core.AssetSpecification{}, core.WrapError(core.ErrNotFound, fmt.Errorf("unknown asset %s", symbol))
	}
	return spec, nil
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"evaluations":   a.evaluations,
		"retained":      a.history.Len(),
		"assets":        len(a.cfg.Assets),
		"asset_classes": len(a.scorer.AssetClasses()),
		"notifiers":     a.notifiers.Len(),
	}
}
