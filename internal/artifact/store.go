package artifact

import (
	"fmt"
	"sort"

	"github.com/shopgrid/recommender-service/internal/domain"
)

// Store holds every precomputed artifact the serving path needs: the identity
// maps, the interaction matrix, the category table and the popularity ranking.
// It is populated exactly once during startup and is read-only afterwards, so
// it is shared across request goroutines without locking.
type Store struct {
	userIndex    map[string]int
	productIndex map[string]int
	userIDs      []string
	productIDs   []string

	categories map[string]string
	matrix     *Matrix
	popularity []string
}

// Artifacts is the raw output of the offline pipeline, as read by Load or
// assembled directly in tests.
type Artifacts struct {
	Interactions   []domain.Interaction
	PopularitySize int
}

// Build derives the identity maps, the sparse matrix, the category table and
// the popularity ranking from the raw interaction rows. Identity indices are
// assigned in ascending id order, matching the categorical encoding the
// training pipeline uses, so they line up with the trained factor matrices.
func Build(a Artifacts) (*Store, error) {
	if len(a.Interactions) == 0 {
		return nil, fmt.Errorf("no interaction rows loaded")
	}
	if a.PopularitySize <= 0 {
		return nil, fmt.Errorf("popularity size must be positive, got %d", a.PopularitySize)
	}

	userSet := make(map[string]struct{})
	productSet := make(map[string]struct{})
	for _, it := range a.Interactions {
		if it.UserID == "" || it.ProductID == "" {
			return nil, fmt.Errorf("interaction row with empty user or product id")
		}
		userSet[it.UserID] = struct{}{}
		productSet[it.ProductID] = struct{}{}
	}

	s := &Store{
		userIndex:    make(map[string]int, len(userSet)),
		productIndex: make(map[string]int, len(productSet)),
		userIDs:      sortedKeys(userSet),
		productIDs:   sortedKeys(productSet),
		categories:   make(map[string]string),
	}
	for i, id := range s.userIDs {
		s.userIndex[id] = i
	}
	for i, id := range s.productIDs {
		s.productIndex[id] = i
	}

	entries := make([]entry, 0, len(a.Interactions))
	weights := make(map[string]float64, len(productSet))
	for _, it := range a.Interactions {
		entries = append(entries, entry{
			row: s.userIndex[it.UserID],
			col: s.productIndex[it.ProductID],
			val: it.Weight,
		})
		weights[it.ProductID] += it.Weight
		if it.Category != "" {
			if _, ok := s.categories[it.ProductID]; !ok {
				s.categories[it.ProductID] = it.Category
			}
		}
	}
	s.matrix = newMatrix(len(s.userIDs), entries)
	s.popularity = rankByWeight(weights, a.PopularitySize)

	return s, nil
}

// rankByWeight orders product ids by descending total interaction weight,
// breaking ties by ascending id so the ranking is reproducible.
func rankByWeight(weights map[string]float64, n int) []string {
	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if weights[ids[i]] != weights[ids[j]] {
			return weights[ids[i]] > weights[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveUser maps an external user id to its dense index. Unknown ids are a
// normal outcome, not an error.
func (s *Store) ResolveUser(id string) (int, bool) {
	idx, ok := s.userIndex[id]
	return idx, ok
}

func (s *Store) ResolveProduct(id string) (int, bool) {
	idx, ok := s.productIndex[id]
	return idx, ok
}

// ProductID maps a dense product index back to its external id. Indices the
// model emits that fall outside the map are reported as unknown.
func (s *Store) ProductID(idx int) (string, bool) {
	if idx < 0 || idx >= len(s.productIDs) {
		return "", false
	}
	return s.productIDs[idx], true
}

// ProductName returns the category label used as the display name, or the
// "Name not available" sentinel when none is on record.
func (s *Store) ProductName(id string) string {
	if c, ok := s.categories[id]; ok {
		return c
	}
	return domain.NameNotAvailable
}

func (s *Store) Category(id string) (string, bool) {
	c, ok := s.categories[id]
	return c, ok
}

func (s *Store) UserRow(idx int) Row {
	return s.matrix.Row(idx)
}

// CategoryWeights aggregates a user's interaction weight per category.
// Products with no category on record are skipped.
func (s *Store) CategoryWeights(userIdx int) map[string]float64 {
	row := s.matrix.Row(userIdx)
	out := make(map[string]float64)
	for i := 0; i < row.Len(); i++ {
		col, val := row.At(i)
		cat, ok := s.categories[s.productIDs[col]]
		if !ok {
			continue
		}
		out[cat] += val
	}
	return out
}

func (s *Store) Popularity() []string {
	return s.popularity
}

func (s *Store) UserIDs() []string {
	return s.userIDs
}

func (s *Store) UserCount() int {
	return len(s.userIDs)
}

func (s *Store) ProductCount() int {
	return len(s.productIDs)
}
