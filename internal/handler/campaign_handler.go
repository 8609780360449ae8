// internal/handler/campaign_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

// CampaignHandler serves the public send trigger.
type CampaignHandler struct {
	Sender service.CampaignSender
	Logger *slog.Logger
}

func NewCampaignHandler(sender service.CampaignSender, logger *slog.Logger) *CampaignHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CampaignHandler{Sender: sender, Logger: logger}
}

type sendCampaignResponse struct {
	Message          string `json:"message"`
	CampaignID       string `json:"campaignId"`
	TotalSubscribers int    `json:"totalSubscribers"`
	SuccessCount     int    `json:"successCount"`
	FailureCount     int    `json:"failureCount"`
}

// SendCampaign runs a send synchronously and reports the final counters.
func (h *CampaignHandler) SendCampaign(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CampaignID string `json:"campaignId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	campaignID := strings.TrimSpace(payload.CampaignID)
	if campaignID == "" {
		respondError(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	// A client disconnect must not abort a claimed send.
	summary, err := h.Sender.Send(context.WithoutCancel(r.Context()), campaignID)
	if err != nil {
		h.writeSendError(w, campaignID, err)
		return
	}

	respondJSON(w, http.StatusOK, sendCampaignResponse{
		Message:          "Campaign processed",
		CampaignID:       summary.CampaignID,
		TotalSubscribers: summary.TotalSubscribers,
		SuccessCount:     summary.SuccessCount,
		FailureCount:     summary.FailureCount,
	})
}

func (h *CampaignHandler) writeSendError(w http.ResponseWriter, campaignID string, err error) {
	var conflict *appErrors.SendConflictError
	switch {
	case appErrors.IsValidation(err):
		respondErrorDetails(w, http.StatusBadRequest, "invalid request", err)
	case appErrors.IsNotFound(err):
		respondError(w, http.StatusNotFound, "campaign not found")
	case errors.As(err, &conflict):
		respondErrorDetails(w, http.StatusConflict, "campaign cannot be sent", err)
	default:
		h.Logger.Error("send campaign failed", "campaign_id", campaignID, "error", err)
		respondErrorDetails(w, http.StatusInternalServerError, "failed to send campaign", err)
	}
}
