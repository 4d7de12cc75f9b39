package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/recipe-box/internal/identity"
)

type favoriteIDsResponse struct {
	Success   bool     `json:"success"`
	Favorites []string `json:"favorites"`
}

type favoriteRecipesResponse struct {
	Success   bool             `json:"success"`
	Favorites []recipeResponse `json:"favorites"`
}

type favoriteToggleResponse struct {
	Success   bool     `json:"success"`
	Favorited bool     `json:"favorited"`
	Favorites []string `json:"favorites"`
}

type favoriteStatusResponse struct {
	Success   bool `json:"success"`
	Favorited bool `json:"favorited"`
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Favorites.Add(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, favoriteIDsResponse{Success: true, Favorites: ids})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	ids, err := s.deps.Favorites.Remove(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, favoriteIDsResponse{Success: true, Favorites: ids})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favorited, ids, err := s.deps.Favorites.Toggle(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, favoriteToggleResponse{Success: true, Favorited: favorited, Favorites: ids})
}

func (s *Server) handleFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	member, err := s.deps.Favorites.IsMember(r.Context(), identity.UserID(r.Context()), chi.URLParam(r, "recipeId"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, favoriteStatusResponse{Success: true, Favorited: member})
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.deps.Favorites.ListForUser(r.Context(), identity.UserID(r.Context()))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	resp := favoriteRecipesResponse{Success: true, Favorites: make([]recipeResponse, 0, len(recipes))}
	for _, recipe := range recipes {
		resp.Favorites = append(resp.Favorites, toRecipeResponse(recipe))
	}
	s.respondJSON(w, http.StatusOK, resp)
}
