// internal/handler/subscribe_handler.go
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

type Registrar interface {
	Register(ctx context.Context, req service.RegisterRequest, headerUserAgent string) (string, error)
}

type Suggester interface {
	Suggest(ctx context.Context, pageContent string) (*service.Suggestion, error)
}

// IntakeHandler serves the browser-facing subscribe and content endpoints.
type IntakeHandler struct {
	Subscriptions Registrar
	Assist        Suggester
	Logger        *slog.Logger
}

func (h *IntakeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.Subscriptions.Register(r.Context(), req, r.UserAgent())
	if err != nil {
		if appErrors.IsValidation(err) {
			respondErrorDetails(w, http.StatusBadRequest, "token and domainName are required", err)
			return
		}
		h.logger().Error("subscribe failed", "error", err)
		respondErrorDetails(w, http.StatusInternalServerError, "failed to save subscription", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "Subscription saved",
		"id":      id,
	})
}

func (h *IntakeHandler) GenerateContent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PageContent string `json:"pageContent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestion, err := h.Assist.Suggest(r.Context(), req.PageContent)
	if err != nil {
		if StatusForError(err) >= http.StatusInternalServerError {
			h.logger().Warn("content generation failed", "error", err)
		}
		WriteError(w, "failed to generate content", err)
		return
	}
	respondJSON(w, http.StatusOK, suggestion)
}

func (h *IntakeHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
