// Package notifier delivers fired portfolio alerts to external receivers.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/theta/internal/alert"
	"github.com/newthinker/theta/internal/core"
)

// Notification is one evaluation's fired alerts.
type Notification struct {
	EvaluationID string                `json:"evaluation_id"`
	CreatedAt    time.Time             `json:"created_at"`
	Alerts       []alert.Alert         `json:"alerts"`
	Metrics      core.PortfolioMetrics `json:"metrics"`
}

// Notifier delivers notifications.
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Send delivers a single notification
	Send(ctx context.Context, n Notification) error
}
