package explain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopgrid/recommender-service/internal/artifact"
)

// ContextBuilder derives the two short summaries fed to the text generator:
// what the user has bought, and what the product is. Pure lookups over the
// loaded artifacts; recomputed per request, never cached.
type ContextBuilder struct {
	store *artifact.Store
}

func NewContextBuilder(store *artifact.Store) *ContextBuilder {
	return &ContextBuilder{store: store}
}

// UserHistorySummary describes the user's top purchase categories. Unknown
// users and users with no recorded interactions get the new-user sentence,
// not an error.
func (b *ContextBuilder) UserHistorySummary(userID string) string {
	userIdx, ok := b.store.ResolveUser(userID)
	if !ok {
		return "This is a new user with no purchase history."
	}
	if b.store.UserRow(userIdx).Len() == 0 {
		return "This is a new user with no purchase history."
	}

	top := topCategories(b.store.CategoryWeights(userIdx), 3)
	if len(top) == 0 {
		return "User has purchased items, but category info is missing."
	}
	return fmt.Sprintf("This user frequently buys products from categories like: %s.",
		strings.Join(top, ", "))
}

// ProductSummary describes the product by its category, or says it was not
// found. The 404 decision is made upstream; "not found" here is just context
// for the generator.
func (b *ContextBuilder) ProductSummary(productID string) string {
	category, ok := b.store.Category(productID)
	if !ok {
		return fmt.Sprintf("Product with ID %s not found.", productID)
	}
	return fmt.Sprintf("This is a product from the '%s' category.", category)
}

// topCategories picks the n heaviest categories, ties broken by name so the
// summary is deterministic.
func topCategories(weights map[string]float64, n int) []string {
	cats := make([]string, 0, len(weights))
	for c := range weights {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if weights[cats[i]] != weights[cats[j]] {
			return weights[cats[i]] > weights[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) > n {
		cats = cats[:n]
	}
	return cats
}
