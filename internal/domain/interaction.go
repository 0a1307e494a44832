package domain

// Interaction is one row of the offline-built interaction table: a user bought
// (or otherwise engaged with) a product of some category, with an aggregated
// weight.
type Interaction struct {
	UserID    string
	ProductID string
	Category  string
	Weight    float64
}
