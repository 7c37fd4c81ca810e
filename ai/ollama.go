package ai

import (
	"context"
	"fmt"
	"strings"
)

// Ollama implements Provider for a local Ollama server.
type Ollama struct {
	host  string
	model string
	endpoint
}

var _ Provider = (*Ollama)(nil)

// NewOllama creates an Ollama provider.
func NewOllama(host, model string, opts ...HTTPOption) *Ollama {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	host = strings.TrimRight(host, "/")
	return &Ollama{host: host, model: model, endpoint: newEndpoint(host, opts)}
}

func (o *Ollama) Name() string {
	return fmt.Sprintf("Ollama (%s)", o.model)
}

func (o *Ollama) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	body := map[string]any{
		"model":    o.model,
		"messages": messages,
		"stream":   false,
		"options": map[string]any{
			"temperature": opts.Temperature,
			"num_predict": maxTokens(opts),
		},
	}
	if opts.JSON {
		body["format"] = "json"
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := o.postJSON(ctx, "ollama", "/api/chat", nil, body, &result); err != nil {
		return "", err
	}

	text := strings.TrimSpace(result.Message.Content)
	if text == "" {
		return "", invalidResponse("ollama", "empty response")
	}
	return text, nil
}
