package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	numUsers    = 30
	numProducts = 50
	numEvents   = 400
	factorDim   = 16
)

var categories = []string{
	"home_decor", "sports_leisure", "electronics", "toys_games",
	"beauty_health", "garden_tools", "pet_supplies", "office_supplies",
}

// Setup populates the artifact tables with a deterministic synthetic dataset:
// interaction rows, trained-looking factor matrices aligned to the sorted id
// order the loader uses, and category-clustered product embeddings.
func Setup(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	rng := rand.New(rand.NewSource(42))

	logger.Info().Msg("seed: truncating existing data")
	if _, err := pool.Exec(ctx, `
		TRUNCATE interactions, user_factors, item_factors, product_embeddings RESTART IDENTITY CASCADE
	`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	userIDs := make([]string, numUsers)
	for i := range userIDs {
		userIDs[i] = fmt.Sprintf("u%04d", i+1)
	}
	productIDs := make([]string, numProducts)
	productCategory := make(map[string]string, numProducts)
	for i := range productIDs {
		productIDs[i] = fmt.Sprintf("p%04d", i+1)
		productCategory[productIDs[i]] = categories[i%len(categories)]
	}

	// Each user leans towards one category so the factors and summaries have
	// something to latch onto.
	preferred := make(map[string]string, numUsers)
	for _, uid := range userIDs {
		preferred[uid] = categories[rng.Intn(len(categories))]
	}

	logger.Info().Msg("seed: inserting interactions")
	if err := seedInteractions(ctx, pool, rng, userIDs, productIDs, productCategory, preferred); err != nil {
		return fmt.Errorf("seed interactions: %w", err)
	}

	logger.Info().Msg("seed: inserting factor matrices")
	if err := seedFactors(ctx, pool, rng, userIDs, productIDs, productCategory, preferred); err != nil {
		return fmt.Errorf("seed factors: %w", err)
	}

	logger.Info().Msg("seed: inserting product embeddings")
	if err := seedEmbeddings(ctx, pool, rng, productIDs, productCategory); err != nil {
		return fmt.Errorf("seed embeddings: %w", err)
	}

	logger.Info().Msg("seed: complete")
	return nil
}

func seedInteractions(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand,
	userIDs, productIDs []string, productCategory, preferred map[string]string) error {

	rows := []string{}
	args := []any{}

	for i := 0; i < numEvents; i++ {
		uid := userIDs[int(math.Pow(rng.Float64(), 1.5)*float64(len(userIDs)))]

		// 70% of events stay inside the user's preferred category.
		var pid string
		if rng.Float64() < 0.7 {
			pid = pickFromCategory(rng, productIDs, productCategory, preferred[uid])
		} else {
			pid = productIDs[int(math.Pow(rng.Float64(), 1.3)*float64(len(productIDs)))]
		}

		base := len(args)
		rows = append(rows, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, uid, pid, productCategory[pid], 1.0)
	}

	if len(rows) == 0 {
		return nil
	}

	query := "INSERT INTO interactions (user_id, product_id, category, weight) VALUES " +
		strings.Join(rows, ", ")
	_, err := pool.Exec(ctx, query, args...)
	return err
}

// seedFactors writes factor rows in the same dense order the loader rebuilds:
// ids sorted ascending. User vectors sit near their preferred category's base
// vector and item vectors near their own category's, so dot products rank
// same-category products high.
func seedFactors(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand,
	userIDs, productIDs []string, productCategory, preferred map[string]string) error {

	bases := categoryBases(rng)

	sortedUsers := append([]string(nil), userIDs...)
	sort.Strings(sortedUsers)
	for idx, uid := range sortedUsers {
		vec := jitter(rng, bases[preferred[uid]], 0.2)
		if _, err := pool.Exec(ctx,
			`INSERT INTO user_factors (user_idx, factors) VALUES ($1, $2)`, idx, vec); err != nil {
			return fmt.Errorf("insert user factor %d: %w", idx, err)
		}
	}

	sortedProducts := append([]string(nil), productIDs...)
	sort.Strings(sortedProducts)
	for idx, pid := range sortedProducts {
		vec := jitter(rng, bases[productCategory[pid]], 0.2)
		if _, err := pool.Exec(ctx,
			`INSERT INTO item_factors (item_idx, factors) VALUES ($1, $2)`, idx, vec); err != nil {
			return fmt.Errorf("insert item factor %d: %w", idx, err)
		}
	}
	return nil
}

func seedEmbeddings(ctx context.Context, pool *pgxpool.Pool, rng *rand.Rand,
	productIDs []string, productCategory map[string]string) error {

	bases := categoryBases(rng)
	for _, pid := range productIDs {
		vec := jitter(rng, bases[productCategory[pid]], 0.1)
		if _, err := pool.Exec(ctx,
			`INSERT INTO product_embeddings (product_id, embedding) VALUES ($1, $2)`, pid, vec); err != nil {
			return fmt.Errorf("insert embedding %s: %w", pid, err)
		}
	}
	return nil
}

func pickFromCategory(rng *rand.Rand, productIDs []string, productCategory map[string]string, category string) string {
	matching := []string{}
	for _, pid := range productIDs {
		if productCategory[pid] == category {
			matching = append(matching, pid)
		}
	}
	if len(matching) == 0 {
		return productIDs[rng.Intn(len(productIDs))]
	}
	return matching[rng.Intn(len(matching))]
}

func categoryBases(rng *rand.Rand) map[string][]float64 {
	bases := make(map[string][]float64, len(categories))
	for _, c := range categories {
		vec := make([]float64, factorDim)
		for i := range vec {
			vec[i] = rng.NormFloat64()
		}
		bases[c] = vec
	}
	return bases
}

func jitter(rng *rand.Rand, base []float64, scale float64) []float64 {
	out := make([]float64, len(base))
	for i, v := range base {
		out[i] = v + rng.NormFloat64()*scale
	}
	return out
}
