package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("assist: empty model response")

// Options configures the Gemini client. BaseURL is only overridden when set.
type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client asks a Gemini model for JSON output through the genai SDK.
type Client struct {
	models *genai.Models
	model  string
	config *genai.GenerateContentConfig
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	httpOpts := genai.HTTPOptions{Timeout: &opts.Timeout}
	if opts.BaseURL != "" {
		httpOpts.BaseURL = strings.TrimRight(opts.BaseURL, "/") + "/"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      opts.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{
		models: client.Models,
		model:  opts.Model,
		config: &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			Temperature:      genai.Ptr[float32](0.7),
		},
	}, nil
}

// Generate sends prompt and returns the model's raw text output.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), c.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
