// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatsProvider exposes the service's operational counters: published
// model version and accuracy, pending feedback, and dedupe occupancy.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the operational counters as a flat JSON object.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a stats handler over the given provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats. The response mirrors the provider's
// map as-is; model keys absent before the first training run stay
// absent rather than reporting zero values.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
