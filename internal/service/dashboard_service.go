// internal/service/dashboard_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/unclebandit/pushleopard-backend/internal/model"
	"github.com/unclebandit/pushleopard-backend/internal/repository"
)

type DashboardStats struct {
	TotalDomains      int            `json:"totalDomains"`
	VerifiedDomains   int            `json:"verifiedDomains"`
	TotalSubscribers  int            `json:"totalSubscribers"`
	CampaignsByStatus map[string]int `json:"campaignsByStatus"`
	TotalDelivered    int            `json:"totalDelivered"`
	TotalFailed       int            `json:"totalFailed"`
}

type DashboardService struct {
	CampaignRepo   repository.CampaignRepositoryInterface
	DomainRepo     repository.DomainRepositoryInterface
	SubscriberRepo repository.SubscriberRepositoryInterface
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	domains, err := s.DomainRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting domains: %w", err)
	}
	subscribers, err := s.SubscriberRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting subscribers: %w", err)
	}
	campaigns, err := s.CampaignRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting campaigns: %w", err)
	}
	delivered, failed, err := s.CampaignRepo.DeliveryTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing deliveries: %w", err)
	}

	stats := &DashboardStats{
		VerifiedDomains:   domains[model.DomainVerified],
		TotalSubscribers:  subscribers,
		CampaignsByStatus: campaigns,
		TotalDelivered:    delivered,
		TotalFailed:       failed,
	}
	for _, n := range domains {
		stats.TotalDomains += n
	}
	return stats, nil
}

// SubscriberService backs the operator subscriber listing.
type SubscriberService struct {
	SubscriberRepo repository.SubscriberRepositoryInterface
}

func (s *SubscriberService) ListSubscribers(ctx context.Context, domainName, query string, page, pageSize int) ([]model.Subscriber, map[string]int, error) {
	page, pageSize, offset := normalizePage(page, pageSize)
	subs, total, err := s.SubscriberRepo.Search(ctx, strings.TrimSpace(domainName), strings.TrimSpace(query), offset, pageSize)
	if err != nil {
		return nil, nil, err
	}
	return subs, paginationMeta(page, pageSize, total), nil
}
