package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/identity"
	"github.com/Clark-Hu/recipe-box/internal/ratings"
)

type ratingRequest struct {
	RecipeID string `json:"recipeId"`
	Rating   *int   `json:"rating"`
	Comment  string `json:"comment"`
}

type ratingAuthor struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type ratingResponse struct {
	ID        string       `json:"id"`
	RecipeID  string       `json:"recipeId"`
	UserID    string       `json:"userId"`
	User      ratingAuthor `json:"user"`
	Rating    int          `json:"rating"`
	Comment   string       `json:"comment"`
	CreatedAt time.Time    `json:"createdAt"`
}

func toRatingResponse(r domain.Rating) ratingResponse {
	return ratingResponse{
		ID:        r.ID,
		RecipeID:  r.RecipeID,
		UserID:    r.UserID,
		User:      ratingAuthor{ID: r.UserID, Username: r.Username},
		Rating:    r.Value,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.RecipeID == "" || req.Rating == nil {
		s.respondError(w, http.StatusBadRequest, string(domain.KindInvalidInput), "Recipe ID and rating are required")
		return
	}

	rating, err := s.deps.Ledger.Submit(r.Context(), identity.UserID(r.Context()), ratings.SubmitInput{
		RecipeID: req.RecipeID,
		Value:    *req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Ledger.ListForRecipe(r.Context(), chi.URLParam(r, "recipeId"))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	resp := make([]ratingResponse, 0, len(list))
	for _, rating := range list {
		resp = append(resp, toRatingResponse(rating))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.Remove(r.Context(), chi.URLParam(r, "ratingId"), identity.UserID(r.Context())); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
