package api

import (
	"net/http"
)

// RankHandler triggers a ranking pass outside the schedule.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleRunRanking handles POST /rank. Per-paper failures are reported in
// the body; the request itself only fails when the batch cannot start.
func (h *RankHandler) HandleRunRanking(w http.ResponseWriter, r *http.Request) {
	results, err := h.deps.RunRanking(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := rankResponse{Results: make([]rankResult, 0, len(results))}
	for _, res := range results {
		item := rankResult{PaperID: res.PaperID}
		if res.Err != nil {
			resp.Failed++
			item.Error = res.Err.Error()
		} else {
			resp.Ranked++
			item.FinalScore = res.Score.FinalScore
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSON(w, http.StatusOK, resp)
}
