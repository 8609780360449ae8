// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/pushleopard-backend/internal/handler"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Sender          service.CampaignSender
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		handler.WriteError(w, "failed to create campaign", err)
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	domain := r.URL.Query().Get("domain")
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, domain, status)
	if err != nil {
		handler.WriteError(w, "failed to list campaigns", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination, // already contains total_count, total_pages, page, page_size
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.CampaignService.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, "failed to fetch campaign", err)
		return
	}

	writeJSON(w, http.StatusOK, campaign)
}

// SendCampaign runs the send inline, or queues it when async=true.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		campaign, err := c.CampaignService.EnqueueSend(r.Context(), id)
		if err != nil {
			handler.WriteError(w, "failed to queue campaign", err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message":    "Campaign queued for sending",
			"campaignId": campaign.ID,
		})
		return
	}

	summary, err := c.Sender.Send(context.WithoutCancel(r.Context()), id)
	if err != nil {
		handler.WriteError(w, "failed to send campaign", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}
