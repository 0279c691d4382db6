package api

import (
	"net/http"

	"github.com/okian/curio/pkg/metrics"
)

// StatsProvider exposes a point-in-time view of the engine.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves engine statistics.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats. The queue gauge is refreshed from the
// same snapshot so /healthz agrees with the response.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.provider.GetStats()
	if n, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(n)
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, stats)
}
