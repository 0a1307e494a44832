package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const defaultK = 10

// GET /recommend/{userID}?k=
//
// Always 200 for a well-formed request: unknown users are the cold-start
// path and get the popularity fallback, not an error.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id parameter")
		return
	}

	k := defaultK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
			return
		}
		k = parsed
	}

	result := h.recommender.Recommend(r.Context(), userID, k)
	writeJSON(w, http.StatusOK, result)
}
