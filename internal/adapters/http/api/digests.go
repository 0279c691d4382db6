package api

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// DigestHandler generates and serves daily briefings.
type DigestHandler struct {
	deps Dependencies
	now  func() time.Time
}

// NewDigestHandler creates a new digest handler.
func NewDigestHandler(deps Dependencies) *DigestHandler {
	return &DigestHandler{deps: deps, now: time.Now}
}

// HandleGenerateDigest handles POST /digests/{user_id}. Repeating it on the
// same day replaces that day's briefing.
func (h *DigestHandler) HandleGenerateDigest(w http.ResponseWriter, r *http.Request) {
	const op = "api.generate_digest"
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing user_id")))
		return
	}
	briefing, err := h.deps.GenerateDigest(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBriefingResponse(briefing))
}

// HandleGetBriefing handles GET /briefings/{user_id}?date=YYYY-MM-DD.
// The date defaults to today (UTC).
func (h *DigestHandler) HandleGetBriefing(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_briefing"
	userID := r.PathValue("user_id")

	date := h.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid date; must be YYYY-MM-DD")))
			return
		}
		date = parsed
	}

	briefing, err := h.deps.GetBriefing(r.Context(), userID, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBriefingResponse(briefing))
}
