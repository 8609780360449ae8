// internal/model/campaign.go
package model

import "time"

// Campaign lifecycle statuses.
const (
	StatusDraft                  = "draft"
	StatusSending                = "sending"
	StatusProcessed              = "processed"
	StatusProcessedNoSubscribers = "processed_no_subscribers"
	StatusProcessedNoValidTokens = "processed_no_valid_tokens"
	StatusFailedProcessing       = "failed_processing"
)

// ClaimableStatuses are the statuses from which a send may start.
var ClaimableStatuses = []string{StatusDraft, StatusFailedProcessing}

type Campaign struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	Body         string     `db:"body" json:"body"`
	ImageURL     string     `db:"image_url" json:"imageUrl,omitempty"`
	TargetURL    string     `db:"target_url" json:"targetUrl,omitempty"`
	DomainID     string     `db:"domain_id" json:"domainId"`
	DomainName   string     `db:"domain_name" json:"domainName"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
	ProcessedAt  *time.Time `db:"processed_at" json:"processedAt,omitempty"`
	Recipients   *int       `db:"recipients" json:"recipients,omitempty"`
	SuccessCount *int       `db:"success_count" json:"successCount,omitempty"`
	FailureCount *int       `db:"failure_count" json:"failureCount,omitempty"`
}

// SendOutcome is the complete counter set written when a send completes.
type SendOutcome struct {
	Recipients   int
	SuccessCount int
	FailureCount int
}
