// Package openai provides a coach.Provider backed by the OpenAI API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/hotelcx/callaudit/internal/coach"
)

// systemPrompt pins the coaching persona; the full rubric-aware prompt is
// carried in the user message.
const systemPrompt = "You are a quality-assurance coach reviewing hotel reservation calls. Answer with concise bullet points only."

// coachTemperature keeps feedback stable across reviews of the same call.
const coachTemperature = 0.2

// Client implements [coach.Provider] using the OpenAI chat completions API.
type Client struct {
	client oai.Client
	model  string
}

// Compile-time interface assertion.
var _ coach.Provider = (*Client)(nil)

// Option is a functional option for [New].
type Option func(*config)

type config struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs an OpenAI-backed coach for the given model.
func New(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Client{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Name implements [coach.Provider].
func (c *Client) Name() string { return "openai" }

// Analyze implements [coach.Provider].
func (c *Client) Analyze(ctx context.Context, masked string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(coach.BuildPrompt(masked)),
		},
		Temperature: param.NewOpt(coachTemperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return coach.NoSuggestionsMessage, nil
	}
	return text, nil
}
