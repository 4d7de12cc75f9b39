package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/identity"
	"github.com/Clark-Hu/recipe-box/internal/repository"
	"github.com/Clark-Hu/recipe-box/internal/validation"
)

const minSearchLength = 2

type recipeRequest struct {
	Title       string   `json:"title" validate:"notblank,min=3,max=100"`
	Ingredients []string `json:"ingredients" validate:"min=1,dive,notblank,max=200"`
	Steps       string   `json:"steps" validate:"min=10,max=10000"`
	PrepTime    int      `json:"prepTime" validate:"gte=1,lte=10000"`
	CookTime    int      `json:"cookTime" validate:"gte=1,lte=10000"`
	Difficulty  string   `json:"difficulty" validate:"oneof=Easy Medium Hard"`
	Categories  []string `json:"categories" validate:"max=20,dive,notblank,max=50"`
}

type recipeResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Ingredients   []string  `json:"ingredients"`
	Steps         string    `json:"steps"`
	PrepTime      int       `json:"prepTime"`
	CookTime      int       `json:"cookTime"`
	Difficulty    string    `json:"difficulty"`
	Categories    []string  `json:"categories"`
	AverageRating float64   `json:"averageRating"`
	RatingCount   int64     `json:"ratingCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type recipeSearchResponse struct {
	Count   int              `json:"count"`
	Results []recipeResponse `json:"results"`
}

func toRecipeResponse(r domain.Recipe) recipeResponse {
	resp := recipeResponse{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Ingredients:   r.Ingredients,
		Steps:         r.Steps,
		PrepTime:      r.PrepTime,
		CookTime:      r.CookTime,
		Difficulty:    r.Difficulty,
		Categories:    r.Categories,
		AverageRating: r.AverageRating,
		RatingCount:   r.RatingCount,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []string{}
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	return resp
}

func toRecipeResponses(recipes []domain.Recipe) []recipeResponse {
	out := make([]recipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		out = append(out, toRecipeResponse(recipe))
	}
	return out
}

// normalize trims text fields and drops blank list entries before validation.
func (req *recipeRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Steps = strings.TrimSpace(req.Steps)
	req.Difficulty = strings.TrimSpace(req.Difficulty)
	req.Ingredients = compact(req.Ingredients)
	req.Categories = compact(req.Categories)
}

func (req recipeRequest) params() repository.RecipeParams {
	return repository.RecipeParams{
		Title:       req.Title,
		Ingredients: req.Ingredients,
		Steps:       req.Steps,
		PrepTime:    req.PrepTime,
		CookTime:    req.CookTime,
		Difficulty:  req.Difficulty,
		Categories:  req.Categories,
	}
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *Server) decodeRecipe(w http.ResponseWriter, r *http.Request) (recipeRequest, bool) {
	var req recipeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return req, false
	}
	req.normalize()
	if err := validation.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, string(domain.KindInvalidInput), err.Error())
		return req, false
	}
	return req, true
}

func recipeIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if !domain.ValidID(id) {
		return "", domain.E(domain.KindInvalidInput, "Invalid recipe ID")
	}
	return id, nil
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRecipe(w, r)
	if !ok {
		return
	}
	recipe, err := s.deps.Repo.Recipes.Create(r.Context(), identity.UserID(r.Context()), req.params())
	if err != nil {
		s.respondDomainError(w, r, storageError("create recipe", err))
		return
	}
	w.Header().Set("Location", "/recipes/"+url.PathEscape(recipe.ID))
	s.respondJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	sort := repository.RecipeSort(strings.TrimSpace(r.URL.Query().Get("sort")))
	switch sort {
	case "":
		sort = repository.SortNewest
	case repository.SortNewest, repository.SortRating:
	default:
		s.respondError(w, http.StatusBadRequest, string(domain.KindInvalidInput), "sort must be one of: newest, rating")
		return
	}

	recipes, err := s.deps.Repo.Recipes.List(r.Context(), sort)
	if err != nil {
		s.respondDomainError(w, r, storageError("list recipes", err))
		return
	}
	s.respondJSON(w, http.StatusOK, toRecipeResponses(recipes))
}

func buildSearchFilters(query url.Values) (repository.RecipeSearchFilters, error) {
	var filters repository.RecipeSearchFilters

	filters.Query = strings.TrimSpace(query.Get("q"))
	if len([]rune(filters.Query)) < minSearchLength {
		return filters, domain.E(domain.KindInvalidInput, fmt.Sprintf("Search term must be at least %d characters", minSearchLength))
	}
	if val := strings.TrimSpace(query.Get("difficulty")); val != "" {
		switch val {
		case domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard:
			filters.Difficulty = &val
		default:
			return filters, domain.E(domain.KindInvalidInput, "difficulty must be one of: Easy, Medium, Hard")
		}
	}
	if val := strings.TrimSpace(query.Get("maxCookTime")); val != "" {
		maxCook, err := strconv.Atoi(val)
		if err != nil || maxCook < 0 {
			return filters, domain.E(domain.KindInvalidInput, "Invalid maxCookTime value")
		}
		filters.MaxCookTime = &maxCook
	}
	return filters, nil
}

func (s *Server) handleSearchRecipes(w http.ResponseWriter, r *http.Request) {
	filters, err := buildSearchFilters(r.URL.Query())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	recipes, err := s.deps.Repo.Recipes.Search(r.Context(), filters)
	if err != nil {
		s.respondDomainError(w, r, storageError("search recipes", err))
		return
	}
	s.respondJSON(w, http.StatusOK, recipeSearchResponse{Count: len(recipes), Results: toRecipeResponses(recipes)})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeIDParam(r)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	recipe, err := s.deps.Repo.Recipes.GetByID(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, recipeError("get recipe", err))
		return
	}
	s.respondJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) handleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeIDParam(r)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	req, ok := s.decodeRecipe(w, r)
	if !ok {
		return
	}
	recipe, err := s.deps.Repo.Recipes.Update(r.Context(), id, identity.UserID(r.Context()), req.params())
	if err != nil {
		s.respondDomainError(w, r, recipeError("update recipe", err))
		return
	}
	s.respondJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeIDParam(r)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	if err := s.deps.Repo.Recipes.Delete(r.Context(), id, identity.UserID(r.Context())); err != nil {
		s.respondDomainError(w, r, recipeError("delete recipe", err))
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// recipeError gives repository sentinels their user-facing messages.
func recipeError(op string, err error) error {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return domain.E(domain.KindNotFound, "Recipe not found")
	case domain.KindForbidden:
		return domain.E(domain.KindForbidden, "Not authorized")
	}
	return storageError(op, err)
}

// storageError passes classified errors through and wraps everything else.
func storageError(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Storage(op, err)
}
