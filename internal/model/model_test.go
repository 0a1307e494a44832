package model

import (
	"fmt"
	"testing"
)

type seenSet map[int]struct{}

func (s seenSet) Has(i int) bool {
	_, ok := s[i]
	return ok
}

func testModel() *Model {
	// One user leaning towards the first latent dimension. Item scores for
	// user 0 are simply the first component: 0.9, 0.5, 0.7, 0.1.
	return New(
		[][]float64{{1.0, 0.0}},
		[][]float64{{0.9, 0.2}, {0.5, 0.1}, {0.7, 0.3}, {0.1, 0.0}},
	)
}

func TestRecommendOrdering(t *testing.T) {
	m := testModel()

	scored, err := m.Recommend(0, nil, 10)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(scored) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(scored))
	}

	wantOrder := []int{0, 2, 1, 3}
	for i, want := range wantOrder {
		if scored[i].ItemIndex != want {
			t.Errorf("position %d: expected item %d, got %d", i, want, scored[i].ItemIndex)
		}
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Errorf("scores not descending at %d: %f > %f", i, scored[i].Score, scored[i-1].Score)
		}
	}
}

func TestRecommendExcludesSeen(t *testing.T) {
	m := testModel()

	scored, err := m.Recommend(0, seenSet{0: {}, 2: {}}, 10)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(scored))
	}
	for _, s := range scored {
		if s.ItemIndex == 0 || s.ItemIndex == 2 {
			t.Errorf("seen item %d should have been excluded", s.ItemIndex)
		}
	}
}

func TestRecommendTruncatesToK(t *testing.T) {
	m := testModel()

	scored, err := m.Recommend(0, nil, 2)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(scored) != 2 {
		t.Errorf("expected 2 candidates, got %d", len(scored))
	}
	if scored[0].ItemIndex != 0 || scored[1].ItemIndex != 2 {
		t.Errorf("expected top items [0 2], got [%d %d]", scored[0].ItemIndex, scored[1].ItemIndex)
	}
}

func TestRecommendOutOfRangeUser(t *testing.T) {
	m := testModel()

	for _, idx := range []int{-1, 1, 100} {
		_, err := m.Recommend(idx, nil, 5)
		if err == nil {
			t.Errorf("expected error for user index %d", idx)
			continue
		}
		if !IsInferenceError(err) {
			t.Errorf("expected InferenceError for user index %d, got %v", idx, err)
		}
	}
}

func TestRecommendRecoversPanic(t *testing.T) {
	// Mismatched factor dimensions blow up the dot product; the model must
	// turn that into an InferenceError, not a crash.
	m := New(
		[][]float64{{1.0, 0.0}},
		[][]float64{{0.9}},
	)

	_, err := m.Recommend(0, nil, 5)
	if !IsInferenceError(err) {
		t.Errorf("expected InferenceError from dimension mismatch, got %v", err)
	}
}

func TestRecommendZeroK(t *testing.T) {
	m := testModel()

	scored, err := m.Recommend(0, nil, 0)
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(scored) != 0 {
		t.Errorf("expected no candidates for k=0, got %d", len(scored))
	}
}

func TestIsInferenceError(t *testing.T) {
	err := &InferenceError{Msg: "model inference failed"}

	if !IsInferenceError(err) {
		t.Error("should detect InferenceError")
	}

	if IsInferenceError(fmt.Errorf("random error")) {
		t.Error("should not detect regular error as InferenceError")
	}
}
