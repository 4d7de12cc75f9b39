package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/recipe-box/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var kindStatus = map[domain.Kind]int{
	domain.KindInvalidInput:    http.StatusBadRequest,
	domain.KindNotFound:        http.StatusNotFound,
	domain.KindDuplicateRating: http.StatusBadRequest,
	domain.KindAlreadyExists:   http.StatusBadRequest,
	domain.KindNotInSet:        http.StatusBadRequest,
	domain.KindForbidden:       http.StatusForbidden,
	domain.KindUnauthenticated: http.StatusUnauthorized,
	domain.KindConflict:        http.StatusBadRequest,
	domain.KindStorageFailure:  http.StatusInternalServerError,
}

func statusForKind(kind domain.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Server) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// respondDomainError maps a service error onto its status and a safe message.
// Storage failures are logged with their cause and reported generically.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusForKind(kind)

	message := "Server error"
	var de *domain.Error
	if errors.As(err, &de) && kind != domain.KindStorageFailure && de.Message != "" {
		message = de.Message
	}

	switch {
	case kind == domain.KindStorageFailure:
		s.log(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	case domain.IsBenign(err):
		s.log(r).Debug().Str("kind", string(kind)).Msg(message)
	}
	s.respondError(w, status, string(kind), message)
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	code := string(domain.KindInvalidInput)
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusBadRequest, code, "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusBadRequest, code, fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, code, "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusBadRequest, code, "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, code, "Unable to parse request body")
	}
}
