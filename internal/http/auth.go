package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/recipe-box/internal/domain"
	"github.com/Clark-Hu/recipe-box/internal/identity"
	"github.com/Clark-Hu/recipe-box/internal/validation"
)

type registerRequest struct {
	Username string `json:"username" validate:"min=3,max=30,alphanumunicode"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  authUser `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tokens == nil {
		s.respondError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Registration is handled by the identity provider")
		return
	}

	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, string(domain.KindInvalidInput), err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.respondDomainError(w, r, domain.Storage("hash password", err))
		return
	}
	user, err := s.deps.Repo.Users.Create(r.Context(), req.Username, req.Email, string(hash))
	if err != nil {
		s.respondDomainError(w, r, storageError("create user", err))
		return
	}
	s.respondWithToken(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Tokens == nil {
		s.respondError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Login is handled by the identity provider")
		return
	}

	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, string(domain.KindInvalidInput), err.Error())
		return
	}

	invalid := domain.E(domain.KindUnauthenticated, "Invalid credentials")
	user, err := s.deps.Repo.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondDomainError(w, r, invalid)
			return
		}
		s.respondDomainError(w, r, domain.Storage("look up user", err))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.respondDomainError(w, r, invalid)
		return
	}
	s.respondWithToken(w, r, http.StatusOK, user)
}

// handleMe returns the account behind the verified credential.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	notFound := domain.E(domain.KindNotFound, "User not found")
	userID := identity.UserID(r.Context())
	if !domain.ValidID(userID) {
		s.respondDomainError(w, r, notFound)
		return
	}
	user, err := s.deps.Repo.Users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondDomainError(w, r, notFound)
			return
		}
		s.respondDomainError(w, r, domain.Storage("look up user", err))
		return
	}
	s.respondJSON(w, http.StatusOK, authUser{ID: user.ID, Username: user.Username, Email: user.Email})
}

func (s *Server) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user domain.User) {
	token, err := s.deps.Tokens.Issue(user.ID)
	if err != nil {
		s.respondDomainError(w, r, domain.Storage("issue token", err))
		return
	}
	s.respondJSON(w, status, authResponse{
		Token: token,
		User:  authUser{ID: user.ID, Username: user.Username, Email: user.Email},
	})
}
