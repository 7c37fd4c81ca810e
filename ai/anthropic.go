package ai

import (
	"context"
	"fmt"
	"strings"
)

// Anthropic implements Provider for the Anthropic Messages API.
type Anthropic struct {
	apiKey string
	model  string
	endpoint
}

var _ Provider = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey, model string, opts ...HTTPOption) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Anthropic{
		apiKey:   apiKey,
		model:    model,
		endpoint: newEndpoint("https://api.anthropic.com/v1", opts),
	}
}

func (a *Anthropic) Name() string {
	return fmt.Sprintf("Anthropic (%s)", a.model)
}

func (a *Anthropic) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	// Anthropic doesn't use "system" role in messages; it's a top-level field.
	system, turns := splitSystem(messages)
	if len(turns) == 0 {
		return "", invalidResponse("anthropic", "at least one user message is required")
	}
	if opts.JSON {
		system += "\n\nRespond with a single JSON object and nothing else."
	}

	body := map[string]any{
		"model":       a.model,
		"max_tokens":  maxTokens(opts),
		"temperature": opts.Temperature,
		"system":      system,
		"messages":    turns,
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}
	if err := a.postJSON(ctx, "anthropic", "/messages", headers, body, &result); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", invalidResponse("anthropic", "no text content")
	}
	return strings.TrimSpace(text.String()), nil
}
