package domain

type ExplanationResult struct {
	UserID      string `json:"user_id"`
	ProductID   string `json:"product_id"`
	Explanation string `json:"explanation"`
}

type SimilarProduct struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Similarity  float64 `json:"similarity"`
}

type SimilarProductsResult struct {
	ProductID string           `json:"product_id"`
	Similar   []SimilarProduct `json:"similar"`
}
