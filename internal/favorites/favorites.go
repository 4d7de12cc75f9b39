// Package favorites manages each user's set of favorite recipes.
package favorites

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/metrics"
)

// Store persists favorites membership. Insert and Delete are conditional
// single statements and report whether they changed anything. Insert returns
// domain.ErrUnauthenticated when the user has no account.
type Store interface {
	RecipeExists(ctx context.Context, recipeID string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
	Insert(ctx context.Context, userID, recipeID string) (bool, error)
	Delete(ctx context.Context, userID, recipeID string) (bool, error)
	IsMember(ctx context.Context, userID, recipeID string) (bool, error)
	ListIDs(ctx context.Context, userID string) ([]string, error)
	ListRecipes(ctx context.Context, userID string) ([]domain.Recipe, error)
}

// Set is the favorites service.
type Set struct {
	store  Store
	logger zerolog.Logger
}

func NewSet(store Store, logger zerolog.Logger) *Set {
	return &Set{store: store, logger: logger.With().Str("component", "favorites").Logger()}
}

func checkIDs(userID, recipeID string) error {
	if userID == "" {
		return domain.E(domain.KindUnauthenticated, "Authentication required")
	}
	if !domain.ValidID(recipeID) {
		return domain.E(domain.KindInvalidInput, "Invalid recipe ID format")
	}
	return nil
}

// Add makes recipeID a member and returns the user's ids in insertion order.
func (s *Set) Add(ctx context.Context, userID, recipeID string) (ids []string, err error) {
	defer func() { metrics.FavoritesMutations.WithLabelValues("add", metrics.Outcome(err)).Inc() }()

	if err := checkIDs(userID, recipeID); err != nil {
		return nil, err
	}
	exists, err := s.store.RecipeExists(ctx, recipeID)
	if err != nil {
		return nil, domain.Storage("look up recipe", err)
	}
	if !exists {
		return nil, domain.E(domain.KindNotFound, "Recipe not found")
	}

	inserted, err := s.store.Insert(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.KindNotFound, "Recipe not found")
		}
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, domain.E(domain.KindUnauthenticated, "User not found")
		}
		return nil, domain.Storage("add favorite", err)
	}
	if !inserted {
		return nil, domain.E(domain.KindAlreadyExists, "Recipe already in favorites")
	}
	return s.listIDs(ctx, userID)
}

// Remove drops recipeID from the set and returns the remaining ids.
func (s *Set) Remove(ctx context.Context, userID, recipeID string) (ids []string, err error) {
	defer func() { metrics.FavoritesMutations.WithLabelValues("remove", metrics.Outcome(err)).Inc() }()

	if err := checkIDs(userID, recipeID); err != nil {
		return nil, err
	}
	deleted, err := s.store.Delete(ctx, userID, recipeID)
	if err != nil {
		return nil, domain.Storage("remove favorite", err)
	}
	if !deleted {
		return nil, domain.E(domain.KindNotInSet, "Recipe not in favorites")
	}
	return s.listIDs(ctx, userID)
}

// Toggle flips membership based on a fresh read. When a concurrent caller
// wins the race, the benign AlreadyExists or NotInSet error is returned.
func (s *Set) Toggle(ctx context.Context, userID, recipeID string) (favorited bool, ids []string, err error) {
	member, err := s.IsMember(ctx, userID, recipeID)
	if err != nil {
		return false, nil, err
	}
	if member {
		ids, err = s.Remove(ctx, userID, recipeID)
		return false, ids, err
	}
	ids, err = s.Add(ctx, userID, recipeID)
	return true, ids, err
}

func (s *Set) IsMember(ctx context.Context, userID, recipeID string) (bool, error) {
	if err := checkIDs(userID, recipeID); err != nil {
		return false, err
	}
	member, err := s.store.IsMember(ctx, userID, recipeID)
	if err != nil {
		return false, domain.Storage("check favorite", err)
	}
	return member, nil
}

// ListForUser returns the full recipes a user has favorited, oldest first.
func (s *Set) ListForUser(ctx context.Context, userID string) ([]domain.Recipe, error) {
	if userID == "" {
		return nil, domain.E(domain.KindUnauthenticated, "Authentication required")
	}
	exists, err := s.store.UserExists(ctx, userID)
	if err != nil {
		return nil, domain.Storage("look up user", err)
	}
	if !exists {
		return nil, domain.E(domain.KindNotFound, "User not found")
	}
	recipes, err := s.store.ListRecipes(ctx, userID)
	if err != nil {
		return nil, domain.Storage("list favorites", err)
	}
	if recipes == nil {
		recipes = []domain.Recipe{}
	}
	return recipes, nil
}

func (s *Set) listIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.ListIDs(ctx, userID)
	if err != nil {
		return nil, domain.Storage("list favorites", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
