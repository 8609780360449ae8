// internal/service/domain_service.go
package service

import (
	"context"
	"encoding/json"
	"strings"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/model"
	"github.com/unclebandit/pushleopard-backend/internal/repository"
)

type DomainService struct {
	DomainRepo repository.DomainRepositoryInterface
}

type CreateDomainRequest struct {
	Name           string          `json:"name"`
	ProviderConfig json.RawMessage `json:"providerConfig,omitempty"`
}

// CreateDomain registers a domain in pending status. Names are stored
// lower-case without scheme or trailing slash.
func (s *DomainService) CreateDomain(ctx context.Context, req CreateDomainRequest) (*model.Domain, error) {
	name := normalizeDomainName(req.Name)
	if name == "" {
		return nil, appErrors.NewValidationError("name", "is required")
	}
	if strings.ContainsAny(name, " /") {
		return nil, appErrors.NewValidationError("name", "must be a bare host name")
	}
	if len(req.ProviderConfig) > 0 && !json.Valid(req.ProviderConfig) {
		return nil, appErrors.NewValidationError("providerConfig", "must be valid JSON")
	}

	d := &model.Domain{
		Name:           name,
		Status:         model.DomainPending,
		ProviderConfig: req.ProviderConfig,
	}
	if err := s.DomainRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DomainService) ListDomains(ctx context.Context) ([]model.Domain, error) {
	return s.DomainRepo.List(ctx)
}

func (s *DomainService) GetDomain(ctx context.Context, id string) (*model.Domain, error) {
	return s.DomainRepo.GetByID(ctx, id)
}

func (s *DomainService) DeleteDomain(ctx context.Context, id string) error {
	return s.DomainRepo.Delete(ctx, id)
}

// VerifyDomain marks the domain verified. No DNS or file check is performed.
func (s *DomainService) VerifyDomain(ctx context.Context, id string) (*model.Domain, error) {
	return s.DomainRepo.UpdateStatus(ctx, id, model.DomainVerified)
}

func normalizeDomainName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "https://")
	name = strings.TrimPrefix(name, "http://")
	return strings.TrimSuffix(name, "/")
}
