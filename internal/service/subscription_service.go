// internal/service/subscription_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
)

const unknownUserAgent = "Unknown"

// SubscriberWriter persists new subscriptions.
type SubscriberWriter interface {
	Create(ctx context.Context, s *model.Subscriber) error
}

type RegisterRequest struct {
	Token      string `json:"token"`
	DomainName string `json:"domainName"`
	UserAgent  string `json:"userAgent,omitempty"`
}

type SubscriptionService struct {
	Subscribers SubscriberWriter
	Logger      *slog.Logger
}

// Register stores a new subscriber record and returns its id. The same token
// may be registered more than once.
func (s *SubscriptionService) Register(ctx context.Context, req RegisterRequest, headerUserAgent string) (string, error) {
	token := strings.TrimSpace(req.Token)
	domain := strings.TrimSpace(req.DomainName)
	if token == "" {
		return "", appErrors.NewValidationError("token", "is required")
	}
	if domain == "" {
		return "", appErrors.NewValidationError("domainName", "is required")
	}

	userAgent := strings.TrimSpace(req.UserAgent)
	if userAgent == "" {
		userAgent = strings.TrimSpace(headerUserAgent)
	}
	if userAgent == "" {
		userAgent = unknownUserAgent
	}

	sub := &model.Subscriber{
		Token:      token,
		DomainName: domain,
		UserAgent:  userAgent,
	}
	if err := s.Subscribers.Create(ctx, sub); err != nil {
		return "", fmt.Errorf("registering subscriber: %w", err)
	}

	if s.Logger != nil {
		s.Logger.Info("subscriber registered", "subscriber_id", sub.ID, "domain", domain)
	}
	return sub.ID, nil
}
