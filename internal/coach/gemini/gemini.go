// Package gemini provides a coach.Provider backed by the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hotelcx/callaudit/internal/coach"
)

// PreferredModels is the ordered list of model names tried during model
// selection. The first listed model that supports content generation wins;
// when the listing call fails entirely, the first entry is assumed.
var PreferredModels = []string{
	"models/gemini-2.5-flash",
	"models/gemini-flash-latest",
	"models/gemini-2.0-flash",
	"models/gemini-2.0-flash-lite",
}

// generateMethod is the generation capability a model must advertise.
const generateMethod = "generateContent"

// Client implements [coach.Provider] using the Gemini API. It is safe for
// concurrent use; the selected model is fixed at construction time.
type Client struct {
	client    *genai.Client
	model     string
	keyPrefix string
}

// Compile-time interface assertion.
var _ coach.Provider = (*Client)(nil)

// Option is a functional option for [New].
type Option func(*options)

type options struct {
	model     string
	preferred []string
}

// WithModel pins a specific model name, skipping auto-selection.
func WithModel(model string) Option {
	return func(o *options) {
		o.model = model
	}
}

// WithPreferredModels overrides [PreferredModels] for auto-selection.
func WithPreferredModels(models []string) Option {
	return func(o *options) {
		o.preferred = models
	}
}

// New constructs a Gemini-backed coach. Unless a model is pinned via
// [WithModel], the available models are listed once and the first preferred
// model supporting content generation is selected.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}

	o := &options{preferred: PreferredModels}
	for _, opt := range opts {
		opt(o)
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	c := &Client{
		client:    cl,
		keyPrefix: keyPrefix(apiKey),
	}
	if o.model != "" {
		c.model = o.model
	} else {
		c.model = pickModel(ctx, cl, o.preferred)
	}
	return c, nil
}

// pickModel lists the available models and returns the first preferred one
// that supports content generation, else the first supporting model of any
// name, else the first preferred entry as a blind default.
func pickModel(ctx context.Context, cl *genai.Client, preferred []string) string {
	supported := map[string]bool{}
	var firstSupported string

	it := cl.ListModels(ctx)
	for {
		mi, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			// Listing failed; fall back to the preferred order blind.
			return preferred[0]
		}
		for _, method := range mi.SupportedGenerationMethods {
			if method == generateMethod {
				supported[mi.Name] = true
				if firstSupported == "" {
					firstSupported = mi.Name
				}
				break
			}
		}
	}

	for _, name := range preferred {
		if supported[name] {
			return name
		}
	}
	if firstSupported != "" {
		return firstSupported
	}
	return preferred[0]
}

// Name implements [coach.Provider].
func (c *Client) Name() string { return "gemini" }

// Model returns the selected model name.
func (c *Client) Model() string { return c.model }

// Analyze implements [coach.Provider].
func (c *Client) Analyze(ctx context.Context, masked string) (string, error) {
	model := c.client.GenerativeModel(strings.TrimPrefix(c.model, "models/"))
	resp, err := model.GenerateContent(ctx, genai.Text(coach.BuildPrompt(masked)))
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return coach.NoSuggestionsMessage, nil
	}
	return text, nil
}

// Health holds diagnostics for the Gemini backend. The API key is never
// exposed beyond a short prefix.
type Health struct {
	OK              bool   `json:"ok"`
	KeyPresent      bool   `json:"key_present"`
	KeyPrefix       string `json:"key_prefix,omitempty"`
	Model           string `json:"selected_model"`
	ResponsePreview string `json:"response_preview,omitempty"`
	Error           string `json:"error,omitempty"`
}

// CheckHealth performs a minimal generation call and reports diagnostics.
func (c *Client) CheckHealth(ctx context.Context) Health {
	h := Health{
		KeyPresent: c.keyPrefix != "",
		KeyPrefix:  c.keyPrefix,
		Model:      c.model,
	}

	model := c.client.GenerativeModel(strings.TrimPrefix(c.model, "models/"))
	resp, err := model.GenerateContent(ctx, genai.Text("ping"))
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.OK = true
	preview := extractText(resp)
	if len(preview) > 60 {
		preview = preview[:60]
	}
	h.ResponsePreview = preview
	return h
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	return c.client.Close()
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return ""
	}
	var parts []string
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	return strings.Join(parts, "")
}

// keyPrefix returns the first few characters of the API key for health
// diagnostics, or the empty string for an empty key.
func keyPrefix(key string) string {
	if len(key) <= 6 {
		return key
	}
	return key[:6] + "…"
}
