package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shopgrid/recommender-service/internal/artifact"
	"github.com/shopgrid/recommender-service/internal/domain"
	"github.com/shopgrid/recommender-service/internal/model"
)

const (
	maxLimit         = 50
	batchConcurrency = 10
	batchRecLimit    = 10
)

// Service produces the hybrid recommendation list: collaborative-filtering
// candidates for users the model can score, topped up from the fixed
// popularity ranking whenever the model falls short.
type Service struct {
	store  *artifact.Store
	model  *model.Model
	logger zerolog.Logger
}

func NewService(store *artifact.Store, mdl *model.Model, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		model:  mdl,
		logger: logger.With().Str("component", "recommend").Logger(),
	}
}

// Recommend never fails: unknown users, out-of-range indices and model errors
// all degrade to the popularity ranking. The source tag reflects identity
// resolution only; a resolved user keeps collaborative_filtering even when
// fallback entries were needed to reach k.
func (s *Service) Recommend(ctx context.Context, userID string, k int) domain.RecommendationResult {
	if k > maxLimit {
		k = maxLimit
	}

	userIdx, known := s.store.ResolveUser(userID)
	source := domain.SourcePopularityFallback
	if known {
		source = domain.SourceCollaborativeFiltering
	}

	// k <= 0 asks for nothing: an empty list is a valid response, not an
	// error, and the source tag still reflects resolution.
	if k <= 0 {
		return domain.RecommendationResult{
			UserID:          userID,
			Recommendations: []domain.Recommendation{},
			Source:          source,
		}
	}

	recs := []domain.Recommendation{}
	if known {
		recs = s.candidates(userID, userIdx, k)
	}

	if len(recs) < k {
		recs = append(recs, s.fallback(recs, k-len(recs))...)
	}
	if len(recs) > k {
		recs = recs[:k]
	}

	return domain.RecommendationResult{
		UserID:          userID,
		Recommendations: recs,
		Source:          source,
	}
}

// candidates runs the factorization model for a resolved user. A user index
// beyond the trained range, a model failure, or an item index with no reverse
// mapping all shrink the candidate list instead of failing the request.
func (s *Service) candidates(userID string, userIdx, k int) []domain.Recommendation {
	recs := []domain.Recommendation{}
	if userIdx >= s.model.TrainedUsers() {
		s.logger.Debug().Str("user_id", userID).Int("user_idx", userIdx).
			Msg("user added after training, skipping model")
		return recs
	}

	scored, err := s.model.Recommend(userIdx, s.store.UserRow(userIdx), k)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).
			Msg("model recommendation failed, falling back")
		return recs
	}

	for _, sc := range scored {
		productID, ok := s.store.ProductID(sc.ItemIndex)
		if !ok {
			s.logger.Warn().Int("item_idx", sc.ItemIndex).Str("user_id", userID).
				Msg("model item index has no product mapping, dropping")
			continue
		}
		recs = append(recs, domain.Recommendation{
			ProductID:   productID,
			ProductName: s.store.ProductName(productID),
			Score:       sc.Score,
		})
	}
	return recs
}

// fallback emits up to n popularity entries not already chosen, score fixed
// at 0.0. Same inputs give the same output; it reads nothing but the fixed
// ranking.
func (s *Service) fallback(chosen []domain.Recommendation, n int) []domain.Recommendation {
	if n <= 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(chosen))
	for _, r := range chosen {
		seen[r.ProductID] = struct{}{}
	}

	out := make([]domain.Recommendation, 0, n)
	for _, productID := range s.store.Popularity() {
		if len(out) == n {
			break
		}
		if _, dup := seen[productID]; dup {
			continue
		}
		out = append(out, domain.Recommendation{
			ProductID:   productID,
			ProductName: s.store.ProductName(productID),
			Score:       0.0,
		})
	}
	return out
}

// RecommendBatch pages over the known users and generates recommendations
// concurrently with a bounded worker pool. A cancelled context marks the
// remaining users failed rather than aborting the batch.
func (s *Service) RecommendBatch(ctx context.Context, page, limit int) *domain.BatchResponse {
	start := time.Now()

	allIDs := s.store.UserIDs()
	offset := (page - 1) * limit
	var userIDs []string
	if offset < len(allIDs) {
		end := offset + limit
		if end > len(allIDs) {
			end = len(allIDs)
		}
		userIDs = allIDs[offset:end]
	}

	results := make([]domain.BatchUserResult, len(userIDs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, batchConcurrency) // semaphore

	for i, userID := range userIDs {
		wg.Add(1)
		go func(idx int, uid string) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			if err := ctx.Err(); err != nil {
				results[idx] = domain.BatchUserResult{
					UserID: uid,
					Status: domain.StatusFailed,
					Error:  "request_cancelled",
				}
				return
			}
			res := s.Recommend(ctx, uid, batchRecLimit)
			results[idx] = domain.BatchUserResult{
				UserID:          uid,
				Recommendations: res.Recommendations,
				Source:          res.Source,
				Status:          domain.StatusSuccess,
			}
		}(i, userID)
	}
	wg.Wait()

	successCount := 0
	failedCount := 0
	for _, r := range results {
		if r.Status == domain.StatusSuccess {
			successCount++
		} else {
			failedCount++
		}
	}

	return &domain.BatchResponse{
		Page:       page,
		Limit:      limit,
		TotalUsers: len(allIDs),
		Results:    results,
		Summary: domain.BatchSummary{
			SuccessCount:     successCount,
			FailedCount:      failedCount,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		},
	}
}
