package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopgrid/recommender-service/internal/artifact"
	"github.com/shopgrid/recommender-service/internal/explain"
	"github.com/shopgrid/recommender-service/internal/recommend"
	"github.com/shopgrid/recommender-service/internal/simindex"
)

type Handler struct {
	recommender *recommend.Service
	contexts    *explain.ContextBuilder
	explainer   *explain.Client
	store       *artifact.Store
	index       *simindex.Index
}

func NewHandler(rec *recommend.Service, contexts *explain.ContextBuilder, explainer *explain.Client, store *artifact.Store, index *simindex.Index) *Handler {
	return &Handler{
		recommender: rec,
		contexts:    contexts,
		explainer:   explainer,
		store:       store,
		index:       index,
	}
}

// write JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writes JSON error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}
