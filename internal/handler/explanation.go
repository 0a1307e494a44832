package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shopgrid/recommender-service/internal/domain"
)

// GET /explain/{userID}/{productID}
//
// The only client-visible failure: the product id is unknown to both the
// identity map and the similarity index, so there is nothing to explain.
// Every generation failure past that point is absorbed into the fallback
// explanation text.
func (h *Handler) GetExplanation(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if userID == "" || productID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid user_id or product_id parameter")
		return
	}

	if _, known := h.store.ResolveProduct(productID); !known && !h.index.Contains(productID) {
		writeError(w, http.StatusNotFound, "product_not_found",
			fmt.Sprintf("Product with ID '%s' not found", productID))
		return
	}

	userContext := h.contexts.UserHistorySummary(userID)
	productContext := h.contexts.ProductSummary(productID)
	explanation := h.explainer.Generate(r.Context(), userContext, productContext)

	writeJSON(w, http.StatusOK, domain.ExplanationResult{
		UserID:      userID,
		ProductID:   productID,
		Explanation: explanation,
	})
}

// GET /similar/{productID}?k=
func (h *Handler) GetSimilarProducts(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid product_id parameter")
		return
	}

	k := defaultK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		parsed, err := strconv.Atoi(kStr)
		if err != nil || parsed < 1 || parsed > 50 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid k parameter")
			return
		}
		k = parsed
	}

	neighbors, err := h.index.Nearest(productID, k)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product_not_found",
				fmt.Sprintf("Product with ID '%s' not found", productID))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	similar := make([]domain.SimilarProduct, 0, len(neighbors))
	for _, n := range neighbors {
		similar = append(similar, domain.SimilarProduct{
			ProductID:   n.ProductID,
			ProductName: h.store.ProductName(n.ProductID),
			Similarity:  n.Similarity,
		})
	}

	writeJSON(w, http.StatusOK, domain.SimilarProductsResult{
		ProductID: productID,
		Similar:   similar,
	})
}
