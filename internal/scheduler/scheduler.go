// Package scheduler re-evaluates an input document on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/newthinker/theta/internal/app"
	"github.com/newthinker/theta/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Evaluator runs one evaluation. *app.App satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, in app.Input) (*app.Evaluation, error)
}

// Source loads the input for the next run.
type Source func() (app.Input, error)

// Scheduler runs evaluations on a schedule.
type Scheduler struct {
	cron   *cron.Cron
	eval   Evaluator
	source Source
	logger *zap.Logger
	ctx    context.Context

	// serializes runs so a slow evaluation never overlaps the next tick
	mu sync.Mutex
}

// New creates a Scheduler. Runs use ctx and stop scheduling once it is done.
func New(ctx context.Context, eval Evaluator, source Source, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		eval:   eval,
		source: source,
		logger: logger,
		ctx:    ctx,
	}
}

// Register adds the evaluation task at spec.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register evaluation task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for a running evaluation to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow loads the input and evaluates it immediately.
func (s *Scheduler) RunNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	in, err := s.source()
	if err != nil {
		s.logger.Error("loading scheduled input", zap.Error(err))
		return
	}

	eval, err := s.eval.Evaluate(s.ctx, in)
	if err != nil {
		s.logger.Error("scheduled evaluation failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled evaluation",
		zap.String("id", eval.ID),
		zap.Int("positions", len(eval.Positions)),
		zap.Int("alerts", len(eval.Alerts)),
	)
}

// cronLogger routes cron's own logging, including recovered panics, to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
