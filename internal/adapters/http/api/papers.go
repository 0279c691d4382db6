package api

import (
	"net/http"
)

// PapersHandler receives enriched papers and serves their summaries.
type PapersHandler struct {
	deps Dependencies
}

// NewPapersHandler creates a new papers handler.
func NewPapersHandler(deps Dependencies) *PapersHandler {
	return &PapersHandler{deps: deps}
}

// HandlePostPaper handles POST /papers from the enrichment provider.
func (h *PapersHandler) HandlePostPaper(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_paper"
	var req paperRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.SavePaper(r.Context(), req.paper()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

// HandleGetSummary handles GET /papers/{paper_id}/summary.
func (h *PapersHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	paperID := r.PathValue("paper_id")
	summary, err := h.deps.Summary(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paper_id": paperID, "summary": string(summary)})
}
