package domain

import "time"

// Difficulty levels accepted for a recipe.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// Recipe is the canonical recipe document. AverageRating and RatingCount are
// written only by the aggregation engine.
type Recipe struct {
	ID            string
	UserID        string
	Title         string
	Ingredients   []string
	Steps         string
	PrepTime      int
	CookTime      int
	Difficulty    string
	Categories    []string
	AverageRating float64
	RatingCount   int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
