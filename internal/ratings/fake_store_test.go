package ratings

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

var errInjected = errors.New("injected storage failure")

// memStore is an in-memory Store and AggregateStore. A single mutex plays the
// role of the recipe row lock.
type memStore struct {
	mu         sync.Mutex
	recipes    map[string]domain.RatingAggregate
	ratings    map[string]domain.Rating
	failWrites int // number of upcoming RecomputeAggregate calls to fail
	recomputes int
	users      map[string]bool // nil accepts every user
}

func newMemStore(recipeIDs ...string) *memStore {
	s := &memStore{
		recipes: make(map[string]domain.RatingAggregate),
		ratings: make(map[string]domain.Rating),
	}
	for _, id := range recipeIDs {
		s.recipes[id] = domain.RatingAggregate{}
	}
	return s
}

func (s *memStore) RecipeExists(_ context.Context, recipeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recipes[recipeID]
	return ok, nil
}

func (s *memStore) Insert(_ context.Context, r domain.Rating) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[r.RecipeID]; !ok {
		return domain.Rating{}, domain.ErrNotFound
	}
	if s.users != nil && !s.users[r.UserID] {
		return domain.Rating{}, domain.ErrUnauthenticated
	}
	for _, existing := range s.ratings {
		if existing.RecipeID == r.RecipeID && existing.UserID == r.UserID {
			return domain.Rating{}, domain.ErrDuplicateRating
		}
	}
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now()
	s.ratings[r.ID] = r
	return r, nil
}

func (s *memStore) ListForRecipe(_ context.Context, recipeID string) ([]domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Rating
	for _, r := range s.ratings {
		if r.RecipeID == recipeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) Delete(_ context.Context, ratingID, requesterID string) (domain.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ratings[ratingID]
	if !ok {
		return domain.Rating{}, domain.ErrNotFound
	}
	if r.UserID != requesterID {
		return domain.Rating{}, domain.ErrForbidden
	}
	delete(s.ratings, ratingID)
	return r, nil
}

func (s *memStore) RecomputeAggregate(_ context.Context, recipeID string, summarize func([]int) domain.RatingAggregate) (domain.RatingAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputes++
	if s.failWrites > 0 {
		s.failWrites--
		return domain.RatingAggregate{}, errInjected
	}
	if _, ok := s.recipes[recipeID]; !ok {
		return domain.RatingAggregate{}, domain.ErrNotFound
	}
	agg := summarize(s.valuesLocked(recipeID))
	s.recipes[recipeID] = agg
	return agg, nil
}

func (s *memStore) ListDriftedRecipes(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, stored := range s.recipes {
		if stored != Summarize(s.valuesLocked(id)) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) valuesLocked(recipeID string) []int {
	var values []int
	for _, r := range s.ratings {
		if r.RecipeID == recipeID {
			values = append(values, r.Value)
		}
	}
	return values
}

func (s *memStore) aggregate(recipeID string) domain.RatingAggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipes[recipeID]
}

func (s *memStore) failNext(n int) {
	s.mu.Lock()
	s.failWrites = n
	s.mu.Unlock()
}

func (s *memStore) deleteRecipe(recipeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recipes, recipeID)
	for id, r := range s.ratings {
		if r.RecipeID == recipeID {
			delete(s.ratings, id)
		}
	}
}

func (s *memStore) addRating(r domain.Rating) {
	s.mu.Lock()
	s.ratings[r.ID] = r
	s.mu.Unlock()
}

func (s *memStore) onlyUsers(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.users[id] = true
	}
}
