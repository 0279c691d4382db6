package api

import (
	"net/http"
)

// ProfilesHandler reads and replaces user preferences.
type ProfilesHandler struct {
	deps Dependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps Dependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

// HandleGetProfile handles GET /profiles/{user_id}.
func (h *ProfilesHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.deps.GetProfile(r.Context(), r.PathValue("user_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse(profile))
}

// HandlePutProfile handles PUT /profiles/{user_id}. Omitted numeric
// settings fall back to defaults and the learned vector is preserved.
func (h *ProfilesHandler) HandlePutProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_profile"
	userID := r.PathValue("user_id")

	var req profileJSON
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.SaveProfile(r.Context(), req.profile(userID)); err != nil {
		writeDomainError(w, err)
		return
	}
	profile, err := h.deps.GetProfile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse(profile))
}
