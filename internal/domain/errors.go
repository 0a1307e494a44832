package domain

import "errors"

// ErrProductNotFound is the only condition that surfaces to API clients as a
// failure: the product exists neither in the identity maps nor in the
// similarity index, so there is nothing to explain or compare.
var ErrProductNotFound = errors.New("product not found")
