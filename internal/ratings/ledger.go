package ratings

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/metrics"
	"github.com/Clark-Hu/recipe-box/internal/validation"
)

// MaxCommentLength is the longest accepted comment, in characters.
const MaxCommentLength = 500

// SubmitInput is a new rating as supplied by a caller.
type SubmitInput struct {
	RecipeID string `json:"recipeId" validate:"required"`
	Value    int    `json:"rating" validate:"gte=1,lte=5"`
	Comment  string `json:"comment" validate:"max=500"`
}

// Ledger accepts, lists and removes ratings.
type Ledger struct {
	store  Store
	agg    *Aggregator
	logger zerolog.Logger
}

// NewLedger wires a ledger to its store and aggregation engine.
func NewLedger(store Store, agg *Aggregator, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		agg:    agg,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
}

// Submit records a first rating by userID. It never replaces an existing
// rating. The recipe's aggregate reflects the new rating when Submit returns,
// unless the recompute failed and was queued for retry.
func (l *Ledger) Submit(ctx context.Context, userID string, in SubmitInput) (rating domain.Rating, err error) {
	defer func() { metrics.RatingSubmissions.WithLabelValues(metrics.Outcome(err)).Inc() }()

	if userID == "" {
		return domain.Rating{}, domain.E(domain.KindUnauthenticated, "Authentication required")
	}
	in.RecipeID = strings.ToLower(strings.TrimSpace(in.RecipeID))
	in.Comment = strings.TrimSpace(in.Comment)
	if verr := validation.Struct(&in); verr != nil {
		return domain.Rating{}, domain.E(domain.KindInvalidInput, verr.Error())
	}
	if !domain.ValidID(in.RecipeID) {
		return domain.Rating{}, domain.E(domain.KindInvalidInput, "Invalid recipe ID format")
	}

	exists, err := l.store.RecipeExists(ctx, in.RecipeID)
	if err != nil {
		return domain.Rating{}, domain.Storage("look up recipe", err)
	}
	if !exists {
		return domain.Rating{}, domain.E(domain.KindNotFound, "Recipe not found")
	}

	rating, err = l.store.Insert(ctx, domain.Rating{
		RecipeID: in.RecipeID,
		UserID:   userID,
		Value:    in.Value,
		Comment:  in.Comment,
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateRating):
		return domain.Rating{}, domain.E(domain.KindDuplicateRating, "You already rated this recipe")
	case errors.Is(err, domain.ErrNotFound):
		return domain.Rating{}, domain.E(domain.KindNotFound, "Recipe not found")
	case errors.Is(err, domain.ErrUnauthenticated):
		return domain.Rating{}, domain.E(domain.KindUnauthenticated, "User not found")
	default:
		return domain.Rating{}, domain.Storage("insert rating", err)
	}

	l.agg.AfterMutation(ctx, in.RecipeID)
	return rating, nil
}

// ListForRecipe returns a recipe's ratings, newest first.
func (l *Ledger) ListForRecipe(ctx context.Context, recipeID string) ([]domain.Rating, error) {
	if !domain.ValidID(recipeID) {
		return nil, domain.E(domain.KindInvalidInput, "Invalid recipe ID format")
	}
	ratings, err := l.store.ListForRecipe(ctx, strings.ToLower(recipeID))
	if err != nil {
		return nil, domain.Storage("list ratings", err)
	}
	if ratings == nil {
		ratings = []domain.Rating{}
	}
	return ratings, nil
}

// Remove deletes a rating on behalf of its author and re-aggregates.
func (l *Ledger) Remove(ctx context.Context, ratingID, requesterID string) (err error) {
	defer func() { metrics.RatingRemovals.WithLabelValues(metrics.Outcome(err)).Inc() }()

	if requesterID == "" {
		return domain.E(domain.KindUnauthenticated, "Authentication required")
	}
	if !domain.ValidID(ratingID) {
		return domain.E(domain.KindInvalidInput, "Invalid rating ID format")
	}

	deleted, err := l.store.Delete(ctx, ratingID, requesterID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		return domain.E(domain.KindNotFound, "Rating not found")
	case errors.Is(err, domain.ErrForbidden):
		return domain.E(domain.KindForbidden, "Not authorized to remove this rating")
	default:
		return domain.Storage("delete rating", err)
	}

	l.agg.AfterMutation(ctx, deleted.RecipeID)
	return nil
}

// Reconcile re-derives a recipe's aggregate from the ledger on demand.
func (l *Ledger) Reconcile(ctx context.Context, recipeID string) (domain.RatingAggregate, error) {
	return l.agg.Recompute(ctx, recipeID)
}
