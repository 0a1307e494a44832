package artifact

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/shopgrid/recommender-service/internal/domain"
)

// Embedding is one product's content vector, produced offline from its
// category description.
type Embedding struct {
	ProductID string
	Vector    []float64
}

// Loaded bundles every startup artifact read from Postgres. The factor and
// embedding matrices are handed to the model and similarity index
// constructors in main; the Store keeps the rest.
type Loaded struct {
	Store       *Store
	UserFactors [][]float64
	ItemFactors [][]float64
	Embeddings  []Embedding
}

// Load reads all precomputed artifacts exactly once. Serving must not start
// until it returns; any missing or malformed artifact is a startup failure,
// never a per-request one.
func Load(ctx context.Context, pool *pgxpool.Pool, popularitySize int, logger zerolog.Logger) (*Loaded, error) {
	interactions, err := loadInteractions(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	store, err := Build(Artifacts{Interactions: interactions, PopularitySize: popularitySize})
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	userFactors, err := loadFactors(ctx, pool, "user_factors", "user_idx")
	if err != nil {
		return nil, fmt.Errorf("load user factors: %w", err)
	}
	itemFactors, err := loadFactors(ctx, pool, "item_factors", "item_idx")
	if err != nil {
		return nil, fmt.Errorf("load item factors: %w", err)
	}
	if err := validateFactors(userFactors, itemFactors); err != nil {
		return nil, err
	}

	embeddings, err := loadEmbeddings(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	logger.Info().
		Int("users", store.UserCount()).
		Int("products", store.ProductCount()).
		Int("trained_users", len(userFactors)).
		Int("trained_items", len(itemFactors)).
		Int("embeddings", len(embeddings)).
		Int("popularity", len(store.Popularity())).
		Msg("artifacts loaded")

	return &Loaded{
		Store:       store,
		UserFactors: userFactors,
		ItemFactors: itemFactors,
		Embeddings:  embeddings,
	}, nil
}

func loadInteractions(ctx context.Context, pool *pgxpool.Pool) ([]domain.Interaction, error) {
	rows, err := pool.Query(ctx,
		`SELECT user_id, product_id, category, weight FROM interactions`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var it domain.Interaction
		if err := rows.Scan(&it.UserID, &it.ProductID, &it.Category, &it.Weight); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

// loadFactors reads a latent-factor matrix, checking that indices are dense:
// the training pipeline writes rows 0..n-1, so a gap means a broken artifact
// and we refuse to serve on top of it.
func loadFactors(ctx context.Context, pool *pgxpool.Pool, table, idxCol string) ([][]float64, error) {
	rows, err := pool.Query(ctx,
		fmt.Sprintf(`SELECT %s, factors FROM %s ORDER BY %s`, idxCol, table, idxCol))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		var idx int
		var factors []float64
		if err := rows.Scan(&idx, &factors); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		if idx != len(out) {
			return nil, fmt.Errorf("%s has a gap: expected index %d, got %d", table, len(out), idx)
		}
		out = append(out, factors)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func validateFactors(userFactors, itemFactors [][]float64) error {
	if len(userFactors) == 0 || len(itemFactors) == 0 {
		return fmt.Errorf("factor matrices are empty: %d user rows, %d item rows",
			len(userFactors), len(itemFactors))
	}
	dim := len(userFactors[0])
	if dim == 0 {
		return fmt.Errorf("user factors have zero dimension")
	}
	for i, f := range userFactors {
		if len(f) != dim {
			return fmt.Errorf("user factor row %d has dimension %d, expected %d", i, len(f), dim)
		}
	}
	for i, f := range itemFactors {
		if len(f) != dim {
			return fmt.Errorf("item factor row %d has dimension %d, expected %d", i, len(f), dim)
		}
	}
	return nil
}

func loadEmbeddings(ctx context.Context, pool *pgxpool.Pool) ([]Embedding, error) {
	rows, err := pool.Query(ctx,
		`SELECT product_id, embedding FROM product_embeddings ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query product embeddings: %w", err)
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		var e Embedding
		if err := rows.Scan(&e.ProductID, &e.Vector); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return out, nil
}
