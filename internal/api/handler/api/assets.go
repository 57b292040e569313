package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/newthinker/theta/internal/api/response"
	"github.com/newthinker/theta/internal/core"
)

// AssetsApp defines the interface needed from app.App.
type AssetsApp interface {
	Assets() []core.AssetSpecification
	Asset(symbol string) (core.AssetSpecification, error)
}

// AssetsHandler handles asset reference data requests.
type AssetsHandler struct {
	app AssetsApp
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler(app AssetsApp) *AssetsHandler {
	return &AssetsHandler{app: app}
}

// List returns the asset specification table, optionally filtered by ?class=.
func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	assets := h.app.Assets()

	if class := r.URL.Query().Get("class"); class != "" {
		filtered := assets[:0]
		for _, a := range assets {
			if string(a.AssetClass) == class {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"assets": assets,
		"count":  len(assets),
	})
}

// Get returns one asset specification.
func (h *AssetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	spec, err := h.app.Asset(strings.ToUpper(chi.URLParam(r, "symbol")))
	if err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, spec)
}
