package model

import (
	"errors"
	"fmt"
	"sort"
)

// Model is a trained matrix-factorization model: one latent vector per trained
// user and per trained item. Scoring is the dot product of the two. The
// factors are produced offline; the model never changes while serving.
type Model struct {
	userFactors [][]float64
	itemFactors [][]float64
}

func New(userFactors, itemFactors [][]float64) *Model {
	return &Model{userFactors: userFactors, itemFactors: itemFactors}
}

type InferenceError struct {
	Msg string
}

func (e *InferenceError) Error() string {
	return e.Msg
}

func IsInferenceError(err error) bool {
	var target *InferenceError
	return errors.As(err, &target)
}

// Scored is one candidate item with its native model score. The score is not
// comparable to scores from other ranking sources.
type Scored struct {
	ItemIndex int
	Score     float64
}

// ItemSet reports items the user has already interacted with, so they are
// excluded from the candidates.
type ItemSet interface {
	Has(item int) bool
}

// TrainedUsers is the number of user rows the model was fitted on. Users
// resolved to indices at or beyond this were added after training and the
// model cannot score them.
func (m *Model) TrainedUsers() int {
	return len(m.userFactors)
}

// Recommend scores every trained item for the given user, drops items in
// seen, and returns the top k by descending score. Equal scores keep
// ascending item-index order so output is deterministic. Any failure,
// including a panic inside the scoring loop, comes back as an InferenceError
// for the caller to degrade on.
func (m *Model) Recommend(userIdx int, seen ItemSet, k int) (scored []Scored, err error) {
	defer func() {
		if r := recover(); r != nil {
			scored = nil
			err = &InferenceError{Msg: fmt.Sprintf("model panic for user index %d: %v", userIdx, r)}
		}
	}()

	if userIdx < 0 || userIdx >= len(m.userFactors) {
		return nil, &InferenceError{Msg: fmt.Sprintf("user index %d outside trained range [0, %d)", userIdx, len(m.userFactors))}
	}
	if k <= 0 {
		return nil, nil
	}

	user := m.userFactors[userIdx]
	scored = make([]Scored, 0, len(m.itemFactors))
	for i, item := range m.itemFactors {
		if seen != nil && seen.Has(i) {
			continue
		}
		scored = append(scored, Scored{ItemIndex: i, Score: dot(user, item)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("factor dimension mismatch: %d vs %d", len(a), len(b)))
	}
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
