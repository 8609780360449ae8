// internal/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondErrorDetails(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

// StatusForError maps the application error taxonomy onto HTTP statuses.
func StatusForError(err error) int {
	var (
		conflict *appErrors.SendConflictError
		genErr   *appErrors.GenerationError
	)
	switch {
	case appErrors.IsValidation(err):
		return http.StatusBadRequest
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &conflict), errors.Is(err, appErrors.ErrDomainExists):
		return http.StatusConflict
	case errors.As(err, &genErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err with its mapped status and the {error, details} body.
func WriteError(w http.ResponseWriter, message string, err error) {
	respondErrorDetails(w, StatusForError(err), message, err)
}
