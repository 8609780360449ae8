// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
	"github.com/unclebandit/pushleopard-backend/internal/push"
	"github.com/unclebandit/pushleopard-backend/internal/queue"
	"github.com/unclebandit/pushleopard-backend/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	DomainRepo   repository.DomainRepositoryInterface
	Queue        queue.Queue
}

type CreateCampaignRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	ImageURL  string `json:"imageUrl,omitempty"`
	TargetURL string `json:"targetUrl,omitempty"`
	DomainID  string `json:"domainId"`
}

// CreateCampaign stores a draft campaign for an existing domain.
func (s *CampaignService) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (*model.Campaign, error) {
	title := strings.TrimSpace(req.Title)
	body := strings.TrimSpace(req.Body)
	domainID := strings.TrimSpace(req.DomainID)
	switch {
	case title == "":
		return nil, appErrors.NewValidationError("title", "is required")
	case body == "":
		return nil, appErrors.NewValidationError("body", "is required")
	case domainID == "":
		return nil, appErrors.NewValidationError("domainId", "is required")
	}
	imageURL := strings.TrimSpace(req.ImageURL)
	targetURL := strings.TrimSpace(req.TargetURL)
	if err := validateNotification(title, body, imageURL, targetURL); err != nil {
		return nil, err
	}

	domain, err := s.DomainRepo.GetByID(ctx, domainID)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Title:      title,
		Body:       body,
		ImageURL:   imageURL,
		TargetURL:  targetURL,
		DomainID:   domain.ID,
		DomainName: domain.Name,
		Status:     model.StatusDraft,
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// validateNotification rejects content the push provider would refuse for
// every recipient.
func validateNotification(title, body, imageURL, targetURL string) error {
	switch {
	case utf8.RuneCountInString(title) > push.MaxTitleRunes:
		return appErrors.NewValidationError("title", fmt.Sprintf("must be at most %d characters", push.MaxTitleRunes))
	case utf8.RuneCountInString(body) > push.MaxBodyRunes:
		return appErrors.NewValidationError("body", fmt.Sprintf("must be at most %d characters", push.MaxBodyRunes))
	case imageURL != "" && !push.IsHTTPSURL(imageURL):
		return appErrors.NewValidationError("imageUrl", "must be an absolute https URL")
	case targetURL != "" && !push.IsHTTPSURL(targetURL):
		return appErrors.NewValidationError("targetUrl", "must be an absolute https URL")
	case push.PayloadSize(title, body, imageURL) > push.MaxPayloadBytes:
		return appErrors.NewValidationError("body", fmt.Sprintf("notification exceeds %d bytes", push.MaxPayloadBytes))
	}
	return nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, domainName, status string) ([]model.Campaign, map[string]int, error) {
	page, pageSize, offset := normalizePage(page, pageSize)

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, domainName, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}
	return campaigns, paginationMeta(page, pageSize, total), nil
}

// GetCampaign fetches a campaign by ID
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

// EnqueueSend hands the send to the queue after checking the campaign exists
// and is in a sendable status. The claim itself happens in the worker.
func (s *CampaignService) EnqueueSend(ctx context.Context, id string) (*model.Campaign, error) {
	if s.Queue == nil {
		return nil, appErrors.NewConfigurationError("send queue", nil)
	}
	c, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusDraft && c.Status != model.StatusFailedProcessing {
		return nil, &appErrors.SendConflictError{CampaignID: id, Status: c.Status}
	}
	if err := s.Queue.Publish(queue.CampaignSendsTopic, queue.SendJob{CampaignID: c.ID}); err != nil {
		return nil, err
	}
	return c, nil
}

func normalizePage(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize, (page - 1) * pageSize
}

func paginationMeta(page, pageSize, total int) map[string]int {
	return map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": (total + pageSize - 1) / pageSize,
	}
}
