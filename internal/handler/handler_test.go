package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopgrid/recommender-service/internal/artifact"
	"github.com/shopgrid/recommender-service/internal/domain"
	"github.com/shopgrid/recommender-service/internal/explain"
	"github.com/shopgrid/recommender-service/internal/handler"
	"github.com/shopgrid/recommender-service/internal/model"
	"github.com/shopgrid/recommender-service/internal/recommend"
	"github.com/shopgrid/recommender-service/internal/router"
	"github.com/shopgrid/recommender-service/internal/simindex"
)

// testServer wires the full serving stack over a small fixed artifact set and
// a stub explanation backend.
func testServer(t *testing.T, explainerHandler http.HandlerFunc) *httptest.Server {
	t.Helper()

	store, err := artifact.Build(artifact.Artifacts{
		Interactions: []domain.Interaction{
			{UserID: "u1", ProductID: "p1", Category: "home_decor", Weight: 3},
			{UserID: "u1", ProductID: "p4", Category: "electronics", Weight: 1},
			{UserID: "u2", ProductID: "p2", Category: "toys_games", Weight: 2},
			{UserID: "u2", ProductID: "p3", Category: "garden_tools", Weight: 2},
			{UserID: "u2", ProductID: "p5", Category: "electronics", Weight: 1},
		},
		PopularitySize: 20,
	})
	if err != nil {
		t.Fatalf("build store: %v", err)
	}

	cfModel := model.New(
		[][]float64{{1.0}, {1.0}},
		[][]float64{{0.1}, {0.9}, {0.7}, {0.3}, {0.2}},
	)

	index := simindex.New(
		[]string{"p1", "p2", "p3", "p4", "p5", "p-embedded-only"},
		[][]float64{{1, 0}, {0.9, 0.1}, {0, 1}, {0.5, 0.5}, {-1, 0}, {0.8, 0.2}},
	)

	backend := httptest.NewServer(explainerHandler)
	t.Cleanup(backend.Close)

	logger := zerolog.Nop()
	h := handler.NewHandler(
		recommend.NewService(store, cfModel, logger),
		explain.NewContextBuilder(store),
		explain.NewClient(explain.Options{
			Endpoint:    backend.URL,
			Model:       "test-model",
			Temperature: 0.9,
			MaxTokens:   50,
			Timeout:     2 * time.Second,
		}, logger),
		store,
		index,
	)

	srv := httptest.NewServer(router.Setup(h, logger))
	t.Cleanup(srv.Close)
	return srv
}

func explainerOK(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
		w.Write(body)
	}
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func TestRecommendUnknownUser(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res domain.RecommendationResult
	status := getJSON(t, srv.URL+"/recommend/U1?k=3", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200 for unknown user, got %d", status)
	}
	if res.Source != domain.SourcePopularityFallback {
		t.Errorf("expected popularity_fallback, got %s", res.Source)
	}
	if len(res.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations, got %d", len(res.Recommendations))
	}
	for _, rec := range res.Recommendations {
		if rec.Score != 0.0 {
			t.Errorf("fallback entry %s has nonzero score %f", rec.ProductID, rec.Score)
		}
	}
}

func TestRecommendKnownUserDefaultK(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res domain.RecommendationResult
	status := getJSON(t, srv.URL+"/recommend/u1", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if res.Source != domain.SourceCollaborativeFiltering {
		t.Errorf("expected collaborative_filtering, got %s", res.Source)
	}
	// Default k is 10 but only 5 distinct products exist.
	if len(res.Recommendations) != 5 {
		t.Errorf("expected 5 recommendations, got %d", len(res.Recommendations))
	}
}

func TestRecommendNegativeK(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	for _, k := range []string{"-1", "0"} {
		var res domain.RecommendationResult
		status := getJSON(t, srv.URL+"/recommend/u1?k="+k, &res)

		if status != http.StatusOK {
			t.Errorf("k=%s: expected 200 with empty list, got %d", k, status)
		}
		if len(res.Recommendations) != 0 {
			t.Errorf("k=%s: expected empty list, got %d entries", k, len(res.Recommendations))
		}
	}
}

func TestRecommendInvalidK(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res handler.ErrorResponse
	status := getJSON(t, srv.URL+"/recommend/u1?k=abc", &res)

	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if res.Error != "invalid_parameter" {
		t.Errorf("expected invalid_parameter, got %s", res.Error)
	}
}

func TestExplainKnownProduct(t *testing.T) {
	srv := testServer(t, explainerOK("Because you love home decor, this fits your style."))

	var res domain.ExplanationResult
	status := getJSON(t, srv.URL+"/explain/u1/p2", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if res.UserID != "u1" || res.ProductID != "p2" {
		t.Errorf("echoed ids wrong: %+v", res)
	}
	if res.Explanation != "Because you love home decor, this fits your style." {
		t.Errorf("unexpected explanation: %q", res.Explanation)
	}
}

func TestExplainProductOnlyInIndex(t *testing.T) {
	// Known to the similarity index but not the identity maps: still
	// explainable, the builder just reports it as not found.
	srv := testServer(t, explainerOK("A close match to things you browse."))

	var res domain.ExplanationResult
	status := getJSON(t, srv.URL+"/explain/u1/p-embedded-only", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if res.Explanation == "" {
		t.Error("explanation must never be empty")
	}
}

func TestExplainUnknownProduct(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res handler.ErrorResponse
	status := getJSON(t, srv.URL+"/explain/u1/p999", &res)

	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if res.Error != "product_not_found" {
		t.Errorf("expected product_not_found, got %s", res.Error)
	}
}

func TestExplainBackendDownStillResponds(t *testing.T) {
	srv := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	var res domain.ExplanationResult
	status := getJSON(t, srv.URL+"/explain/u1/p2", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200 despite backend failure, got %d", status)
	}
	if res.Explanation == "" {
		t.Error("explanation must never be empty")
	}
}

func TestSimilarProducts(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res domain.SimilarProductsResult
	status := getJSON(t, srv.URL+"/similar/p1?k=2", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if len(res.Similar) != 2 {
		t.Fatalf("expected 2 similar products, got %d", len(res.Similar))
	}
	if res.Similar[0].ProductID != "p2" {
		t.Errorf("expected p2 as closest to p1, got %s", res.Similar[0].ProductID)
	}
}

func TestSimilarUnknownProduct(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res handler.ErrorResponse
	status := getJSON(t, srv.URL+"/similar/p999", &res)

	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestBatchRecommendations(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	var res domain.BatchResponse
	status := getJSON(t, srv.URL+"/recommendations/batch?page=1&limit=10", &res)

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if res.TotalUsers != 2 || res.Summary.SuccessCount != 2 {
		t.Errorf("unexpected batch response: total=%d summary=%+v", res.TotalUsers, res.Summary)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t, explainerOK("fine"))

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}
