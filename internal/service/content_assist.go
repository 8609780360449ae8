// internal/service/content_assist.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
)

// maxPageContent caps how much page text is sent to the model.
const maxPageContent = 20000

const suggestionPrompt = `You write web push notifications for an online store.
Read the page content below and propose one notification that would bring a visitor back.

Rules:
- "title" is at most 50 characters.
- "body" is at most 120 characters and ends with a call to action.
- "imageUrl" is an absolute image URL taken from the page, or omitted when none fits.

Reply with a single JSON object with the keys "title", "body" and "imageUrl". No other text.

Page content:
{page_content}`

// Generator produces raw model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Suggestion struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ContentAssist struct {
	Generator Generator
}

// Suggest asks the model for notification copy based on pageContent.
func (a *ContentAssist) Suggest(ctx context.Context, pageContent string) (*Suggestion, error) {
	pageContent = strings.TrimSpace(pageContent)
	if pageContent == "" {
		return nil, appErrors.NewValidationError("pageContent", "is required")
	}
	if a.Generator == nil {
		return nil, appErrors.NewConfigurationError("content assist", nil)
	}

	prompt := RenderTemplate(suggestionPrompt, map[string]string{
		"page_content": truncateRunes(pageContent, maxPageContent),
	})

	raw, err := a.Generator.Generate(ctx, prompt)
	if err != nil {
		return nil, &appErrors.GenerationError{Cause: err}
	}

	s, err := parseSuggestion(raw)
	if err != nil {
		return nil, &appErrors.GenerationError{Cause: err}
	}
	return s, nil
}

func parseSuggestion(raw string) (*Suggestion, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("model returned no content")
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("decoding model output: %w", err)
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Body = strings.TrimSpace(s.Body)
	s.ImageURL = strings.TrimSpace(s.ImageURL)
	if s.Title == "" || s.Body == "" {
		return nil, errors.New("model output is missing title or body")
	}
	return &s, nil
}
