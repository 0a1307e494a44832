package domain

// Source values attached to a recommendation response.
const (
	SourceCollaborativeFiltering = "collaborative_filtering"
	SourcePopularityFallback     = "popularity_fallback"
)

// NameNotAvailable is rendered when a product has no category label on record.
const NameNotAvailable = "Name not available"

type Recommendation struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Score       float64 `json:"score"`
}

type RecommendationResult struct {
	UserID          string           `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	Source          string           `json:"source"`
}

type BatchUserResult struct {
	UserID          string           `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Source          string           `json:"source,omitempty"`
	Status          string           `json:"status"`
	Error           string           `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type BatchSummary struct {
	SuccessCount     int   `json:"success_count"`
	FailedCount      int   `json:"failed_count"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

type BatchResponse struct {
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalUsers int               `json:"total_users"`
	Results    []BatchUserResult `json:"results"`
	Summary    BatchSummary      `json:"summary"`
}
