package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/theta/internal/api/response"
	"github.com/newthinker/theta/internal/app"
)

// EvaluationApp defines the interface needed from app.App.
type EvaluationApp interface {
	Evaluate(ctx context.Context, in app.Input) (*app.Evaluation, error)
	Evaluation(id string) (*app.Evaluation, error)
	Evaluations() []*app.Evaluation
}

// EvaluationHandler handles evaluation API requests.
type EvaluationHandler struct {
	app EvaluationApp
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(app EvaluationApp) *EvaluationHandler {
	return &EvaluationHandler{app: app}
}

// Create runs an evaluation over the posted snapshot and market data.
func (h *EvaluationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in app.Input
	if err := decodeBody(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}

	eval, err := h.app.Evaluate(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, eval)
}

// List returns the retained evaluations, newest first.
func (h *EvaluationHandler) List(w http.ResponseWriter, r *http.Request) {
	evals := h.app.Evaluations()

	summaries := make([]map[string]any, 0, len(evals))
	for _, e := range evals {
		summaries = append(summaries, map[string]any{
			"id":         e.ID,
			"created_at": e.CreatedAt,
			"positions":  len(e.Positions),
			"skipped":    len(e.Skipped),
			"alerts":     len(e.Alerts),
			"metrics":    e.Metrics,
		})
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"evaluations": summaries,
		"count":       len(summaries),
	})
}

// Get returns one retained evaluation.
func (h *EvaluationHandler) Get(w http.ResponseWriter, r *http.Request) {
	eval, err := h.app.Evaluation(chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, eval)
}
