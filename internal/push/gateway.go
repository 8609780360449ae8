// Package push defines the multicast delivery contract used by the campaign
// send pipeline and its provider adapters.
package push

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"unicode/utf8"
)

// MaxBatchSize is the provider's multicast limit.
const MaxBatchSize = 500

// Payload limits. The provider rejects messages over 4KB.
const (
	MaxTitleRunes   = 150
	MaxBodyRunes    = 1000
	MaxPayloadBytes = 4000
)

// Failure reasons reported per token.
const (
	ReasonNotRegistered = "not_registered"
	ReasonInvalidToken  = "invalid_token"
	ReasonUnavailable   = "unavailable"
	ReasonInternal      = "internal"
	ReasonQuotaExceeded = "quota_exceeded"
	ReasonUnknown       = "unknown"

	// ReasonInvalidPayload means the provider refused the message itself.
	// The token is fine and is kept.
	ReasonInvalidPayload = "invalid_payload"
)

var (
	ErrEmptyBatch     = errors.New("push: batch has no tokens")
	ErrBatchTooLarge  = errors.New("push: batch exceeds multicast limit")
	ErrInvalidMessage = errors.New("push: invalid message")
)

// Notification is the payload shared by every token of a multicast call.
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image,omitempty"`
}

type MulticastMessage struct {
	Tokens       []string
	Notification Notification
	// Link is opened when the notification is clicked.
	Link string
}

// TokenResult is the outcome for one token. Responses are index-aligned with
// MulticastMessage.Tokens.
type TokenResult struct {
	Token     string
	Success   bool
	MessageID string
	Reason    string
	Err       error
}

type BatchResult struct {
	SuccessCount int
	FailureCount int
	Responses    []TokenResult
}

// Gateway delivers one multicast batch. A returned error means the whole
// batch failed; per-token failures are reported inside BatchResult.
type Gateway interface {
	SendMulticast(ctx context.Context, msg *MulticastMessage) (*BatchResult, error)
}

// IsPermanentTokenFailure reports whether reason means the token will never
// be deliverable again.
func IsPermanentTokenFailure(reason string) bool {
	return reason == ReasonNotRegistered || reason == ReasonInvalidToken
}

// Validate checks the batch before it reaches a provider. Errors from a
// rejected payload wrap ErrInvalidMessage.
func (m *MulticastMessage) Validate() error {
	if len(m.Tokens) == 0 {
		return ErrEmptyBatch
	}
	if len(m.Tokens) > MaxBatchSize {
		return ErrBatchTooLarge
	}
	if m.Link != "" && !IsHTTPSURL(m.Link) {
		return fmt.Errorf("%w: link %q is not an absolute https URL", ErrInvalidMessage, m.Link)
	}
	if m.Notification.ImageURL != "" && !IsHTTPSURL(m.Notification.ImageURL) {
		return fmt.Errorf("%w: image %q is not an absolute https URL", ErrInvalidMessage, m.Notification.ImageURL)
	}
	return m.Notification.checkSize()
}

func (n Notification) checkSize() error {
	switch {
	case utf8.RuneCountInString(n.Title) > MaxTitleRunes:
		return fmt.Errorf("%w: title longer than %d characters", ErrInvalidMessage, MaxTitleRunes)
	case utf8.RuneCountInString(n.Body) > MaxBodyRunes:
		return fmt.Errorf("%w: body longer than %d characters", ErrInvalidMessage, MaxBodyRunes)
	case PayloadSize(n.Title, n.Body, n.ImageURL) > MaxPayloadBytes:
		return fmt.Errorf("%w: payload larger than %d bytes", ErrInvalidMessage, MaxPayloadBytes)
	}
	return nil
}

// PayloadSize approximates the encoded notification size in bytes.
func PayloadSize(parts ...string) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n
}

// IsHTTPSURL reports whether raw is an absolute https URL with a host.
func IsHTTPSURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}

// isLocalRejection reports errors raised before the provider was contacted.
func isLocalRejection(err error) bool {
	return errors.Is(err, ErrEmptyBatch) || errors.Is(err, ErrBatchTooLarge) || errors.Is(err, ErrInvalidMessage)
}
