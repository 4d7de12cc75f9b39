package ratings

import (
	"context"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

// Store persists ledger records.
//
// Insert must be atomic with respect to the (recipe, user) uniqueness rule and
// return domain.ErrDuplicateRating when a rating already exists,
// domain.ErrNotFound when the recipe does not exist, or
// domain.ErrUnauthenticated when the user has no account. Delete returns
// domain.ErrNotFound for an unknown rating and domain.ErrForbidden when the
// requester is not its author.
type Store interface {
	RecipeExists(ctx context.Context, recipeID string) (bool, error)
	Insert(ctx context.Context, rating domain.Rating) (domain.Rating, error)
	ListForRecipe(ctx context.Context, recipeID string) ([]domain.Rating, error)
	Delete(ctx context.Context, ratingID, requesterID string) (domain.Rating, error)
}

// AggregateStore persists the derived aggregate on the recipe.
//
// RecomputeAggregate must, in one transaction, lock the recipe's aggregate,
// read every live rating value for it, store summarize(values) and return the
// stored result. It returns domain.ErrNotFound if the recipe does not exist.
type AggregateStore interface {
	RecomputeAggregate(ctx context.Context, recipeID string, summarize func(values []int) domain.RatingAggregate) (domain.RatingAggregate, error)
	ListDriftedRecipes(ctx context.Context) ([]string, error)
}
