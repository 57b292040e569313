package api

import (
	"net/http"

	"github.com/newthinker/theta/internal/api/response"
	"github.com/newthinker/theta/internal/core"
)

// ScoresApp defines the interface needed from app.App.
type ScoresApp interface {
	ComputeAssetClassScores(snap core.MacroSnapshot) ([]core.AssetClassScore, error)
}

// ScoresHandler handles scoring API requests.
type ScoresHandler struct {
	app ScoresApp
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(app ScoresApp) *ScoresHandler {
	return &ScoresHandler{app: app}
}

// ScoresRequest is the request body for scoring a snapshot.
type ScoresRequest struct {
	Snapshot core.MacroSnapshot `json:"snapshot" yaml:"snapshot"`
}

// Compute scores every configured asset class.
func (h *ScoresHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req ScoresRequest
	if err := decodeBody(w, r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	scores, err := h.app.ComputeAssetClassScores(req.Snapshot)
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"scores": scores,
		"count":  len(scores),
	})
}
