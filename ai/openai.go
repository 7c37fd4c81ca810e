package ai

import (
	"context"
	"fmt"
	"strings"
)

// OpenAI implements Provider for the OpenAI Chat Completions API and
// any endpoint speaking the same protocol (Groq, local gateways).
type OpenAI struct {
	id     string
	label  string
	apiKey string
	model  string
	endpoint
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model string, opts ...HTTPOption) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		id:       "openai",
		label:    "OpenAI",
		apiKey:   apiKey,
		model:    model,
		endpoint: newEndpoint("https://api.openai.com/v1", opts),
	}
}

// NewGroq creates a provider for Groq's OpenAI-compatible endpoint.
func NewGroq(apiKey, model string, opts ...HTTPOption) *OpenAI {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &OpenAI{
		id:       "groq",
		label:    "Groq",
		apiKey:   apiKey,
		model:    model,
		endpoint: newEndpoint("https://api.groq.com/openai/v1", opts),
	}
}

func (o *OpenAI) Name() string {
	return fmt.Sprintf("%s (%s)", o.label, o.model)
}

func (o *OpenAI) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	body := map[string]any{
		"model":       o.model,
		"messages":    messages,
		"temperature": opts.Temperature,
		"max_tokens":  maxTokens(opts),
	}
	if opts.JSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	if err := o.postJSON(ctx, o.id, "/chat/completions", headers, body, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", invalidResponse(o.id, "no choices returned")
	}
	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", invalidResponse(o.id, "empty completion")
	}
	return text, nil
}
