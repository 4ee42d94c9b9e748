package handler

import (
	"context"
	"net/http"

	"github.com/mcoot/wishlist/internal/api/apierr"
	"github.com/mcoot/wishlist/internal/api/response"
	"github.com/mcoot/wishlist/internal/model"
)

// StatsSource reports live counts for the wish-list server
type StatsSource interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// AdminHandler serves the health and stats endpoints
type AdminHandler struct {
	stats StatsSource
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(stats StatsSource) *AdminHandler {
	return &AdminHandler{stats: stats}
}

// Health handles GET /api/v1/health
func (h *AdminHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}

// Stats handles GET /api/v1/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.StatsFromModel(stats))
}
