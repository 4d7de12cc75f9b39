package domain

import "time"

// Rating is a single user's star rating for a recipe.
type Rating struct {
	ID        string
	RecipeID  string
	UserID    string
	Value     int
	Comment   string
	CreatedAt time.Time

	// Username is the author's display name. Only populated by listings.
	Username string
}

// RatingAggregate is the derived summary stored on a recipe.
type RatingAggregate struct {
	Average float64
	Count   int64
}
