package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Credentials selects how the Firebase app authenticates. Sources are tried
// in order: explicit service-account fields, a credentials file, then
// application-default detection.
type Credentials struct {
	ProjectID       string
	ClientEmail     string
	PrivateKey      string
	CredentialsFile string
}

const (
	SourceExplicit = "explicit"
	SourceFile     = "file"
	SourceDefault  = "application-default"
)

func (c Credentials) hasExplicit() bool {
	return c.ProjectID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

// clientOptions resolves the credential source.
func (c Credentials) clientOptions() ([]option.ClientOption, string, error) {
	switch {
	case c.hasExplicit():
		data, err := json.Marshal(map[string]string{
			"type":         "service_account",
			"project_id":   c.ProjectID,
			"client_email": c.ClientEmail,
			"private_key":  c.PrivateKey,
			"token_uri":    "https://oauth2.googleapis.com/token",
		})
		if err != nil {
			return nil, "", fmt.Errorf("encoding service account: %w", err)
		}
		return []option.ClientOption{option.WithCredentialsJSON(data)}, SourceExplicit, nil
	case c.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(c.CredentialsFile)}, SourceFile, nil
	default:
		return nil, SourceDefault, nil
	}
}

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway delivers batches through Firebase Cloud Messaging.
type FCMGateway struct {
	client multicastSender
	source string
}

// NewFCMGateway initializes the Firebase app once and returns a ready gateway.
func NewFCMGateway(ctx context.Context, creds Credentials) (*FCMGateway, error) {
	opts, source, err := creds.clientOptions()
	if err != nil {
		return nil, err
	}

	var conf *firebase.Config
	if creds.ProjectID != "" {
		conf = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app (%s credentials): %w", source, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase messaging (%s credentials): %w", source, err)
	}
	return &FCMGateway{client: client, source: source}, nil
}

// CredentialSource reports which credential source was used.
func (g *FCMGateway) CredentialSource() string { return g.source }

func (g *FCMGateway) SendMulticast(ctx context.Context, msg *MulticastMessage) (*BatchResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	resp, err := g.client.SendEachForMulticast(ctx, toFCMMessage(msg))
	if err != nil {
		if strings.HasPrefix(err.Error(), "invalid message") {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return nil, fmt.Errorf("fcm multicast: %w", err)
	}
	return fromFCMResponse(msg.Tokens, resp), nil
}

func toFCMMessage(msg *MulticastMessage) *messaging.MulticastMessage {
	out := &messaging.MulticastMessage{
		Tokens: msg.Tokens,
		Notification: &messaging.Notification{
			Title: msg.Notification.Title,
			Body:  msg.Notification.Body,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{},
		},
	}
	if msg.Link != "" {
		out.Webpush.FCMOptions = &messaging.WebpushFCMOptions{Link: msg.Link}
	}
	if msg.Notification.ImageURL != "" {
		out.Webpush.Notification.Image = msg.Notification.ImageURL
	}
	return out
}

func fromFCMResponse(tokens []string, resp *messaging.BatchResponse) *BatchResult {
	result := &BatchResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Responses:    make([]TokenResult, 0, len(resp.Responses)),
	}
	for i, r := range resp.Responses {
		tr := TokenResult{}
		if i < len(tokens) {
			tr.Token = tokens[i]
		}
		if r == nil {
			tr.Reason = ReasonUnknown
			result.Responses = append(result.Responses, tr)
			continue
		}
		tr.Success = r.Success
		tr.MessageID = r.MessageID
		if !r.Success {
			tr.Err = r.Error
			tr.Reason = classifyFCMError(r.Error)
		}
		result.Responses = append(result.Responses, tr)
	}
	return result
}

// classifyFCMError maps provider error codes onto gateway reasons.
// INVALID_ARGUMENT covers both a malformed registration token and a refused
// payload; only the former may prune the subscriber.
func classifyFCMError(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case messaging.IsUnregistered(err):
		return ReasonNotRegistered
	case messaging.IsInvalidArgument(err):
		if mentionsRegistrationToken(err) {
			return ReasonInvalidToken
		}
		return ReasonInvalidPayload
	case messaging.IsQuotaExceeded(err):
		return ReasonQuotaExceeded
	case messaging.IsUnavailable(err):
		return ReasonUnavailable
	case messaging.IsInternal(err):
		return ReasonInternal
	default:
		return ReasonUnknown
	}
}

func mentionsRegistrationToken(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "registration token")
}
