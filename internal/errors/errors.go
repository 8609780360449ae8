// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is returned when a campaign id does not resolve.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

// NewCampaignNotFound is a helper constructor.
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrDomainNotFound is returned when a domain id does not resolve.
type ErrDomainNotFound struct {
	DomainID string
}

func (e *ErrDomainNotFound) Error() string {
	return fmt.Sprintf("domain with ID %s not found", e.DomainID)
}

func NewDomainNotFound(id string) error {
	return &ErrDomainNotFound{DomainID: id}
}

// ErrDomainExists is returned when a domain name is already registered.
var ErrDomainExists = errors.New("domain already registered")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ErrConfiguration marks a required collaborator that is unavailable.
var ErrConfiguration = errors.New("configuration error")

// NewConfigurationError wraps cause so that errors.Is(err, ErrConfiguration) holds.
func NewConfigurationError(component string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s is not configured", ErrConfiguration, component)
	}
	return fmt.Errorf("%w: %s: %w", ErrConfiguration, component, cause)
}

// SendConflictError is returned when a campaign cannot be claimed for sending.
type SendConflictError struct {
	CampaignID string
	Status     string
}

func (e *SendConflictError) Error() string {
	return fmt.Sprintf("campaign %s cannot be sent in status: %s", e.CampaignID, e.Status)
}

// SendFailedError wraps an unexpected failure after the campaign was claimed.
// Dispatched is set once any batch reached the push gateway; such a send must
// not be replayed automatically.
type SendFailedError struct {
	CampaignID string
	Cause      error
	Dispatched bool
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("failed to send campaign %s: %v", e.CampaignID, e.Cause)
}

func (e *SendFailedError) Unwrap() error { return e.Cause }

// GenerationError wraps a failed or malformed content generation call.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("content generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is a campaign or domain not-found error.
func IsNotFound(err error) bool {
	var c *ErrCampaignNotFound
	var d *ErrDomainNotFound
	return errors.As(err, &c) || errors.As(err, &d)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
