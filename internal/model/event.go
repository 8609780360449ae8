// internal/model/event.go
package model

import "time"

// Campaign event types published while a send runs.
const (
	EventCampaignSending   = "campaign.sending"
	EventCampaignBatch     = "campaign.batch"
	EventCampaignCompleted = "campaign.completed"
	EventCampaignFailed    = "campaign.failed"
)

// CampaignEvent is a progress update for live dashboards.
type CampaignEvent struct {
	Type         string    `json:"type"`
	CampaignID   string    `json:"campaignId"`
	Status       string    `json:"status,omitempty"`
	Batch        int       `json:"batch,omitempty"`
	BatchCount   int       `json:"batchCount,omitempty"`
	Recipients   int       `json:"recipients,omitempty"`
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
