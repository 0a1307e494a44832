// Package simindex holds the content-similarity index: a flat, in-memory
// inner-product index over L2-normalized product embeddings. It validates
// product existence for explanation requests and serves nearest-neighbor
// lookups.
package simindex

import (
	"math"
	"sort"

	"github.com/shopgrid/recommender-service/internal/domain"
)

type Index struct {
	ids  []string
	byID map[string]int
	vecs [][]float64
}

type Neighbor struct {
	ProductID  string
	Similarity float64
}

// New builds the index from product embeddings. Vectors are normalized here
// so Nearest can use plain dot products as cosine similarity. Built once at
// startup, read-only afterwards.
func New(ids []string, vecs [][]float64) *Index {
	idx := &Index{
		ids:  ids,
		byID: make(map[string]int, len(ids)),
		vecs: make([][]float64, len(vecs)),
	}
	for i, id := range ids {
		idx.byID[id] = i
	}
	for i, v := range vecs {
		idx.vecs[i] = normalize(v)
	}
	return idx
}

func (idx *Index) Len() int {
	return len(idx.ids)
}

func (idx *Index) Contains(productID string) bool {
	_, ok := idx.byID[productID]
	return ok
}

// Nearest returns up to k products most similar to the given one, excluding
// the product itself. An unknown product is domain.ErrProductNotFound.
func (idx *Index) Nearest(productID string, k int) ([]Neighbor, error) {
	qi, ok := idx.byID[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if k <= 0 {
		return nil, nil
	}

	q := idx.vecs[qi]
	neighbors := make([]Neighbor, 0, len(idx.ids)-1)
	for i, v := range idx.vecs {
		if i == qi {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			ProductID:  idx.ids[i],
			Similarity: dot(q, v),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
