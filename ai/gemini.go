package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Gemini implements Provider for the Google Generative Language API.
type Gemini struct {
	apiKey string
	model  string
	endpoint
}

var _ Provider = (*Gemini)(nil)

// NewGemini creates a Gemini provider.
func NewGemini(apiKey, model string, opts ...HTTPOption) *Gemini {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Gemini{
		apiKey:   apiKey,
		model:    model,
		endpoint: newEndpoint("https://generativelanguage.googleapis.com/v1beta", opts),
	}
}

func (g *Gemini) Name() string {
	return fmt.Sprintf("Gemini (%s)", g.model)
}

func (g *Gemini) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}

	system, turns := splitSystem(messages)
	contents := make([]content, 0, len(turns))
	for _, m := range turns {
		role := m.Role
		if role == RoleAssistant {
			role = "model" // Gemini uses "model" instead of "assistant"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}

	genConfig := map[string]any{
		"temperature":     opts.Temperature,
		"maxOutputTokens": maxTokens(opts),
	}
	if opts.JSON {
		genConfig["responseMimeType"] = "application/json"
	}
	body := map[string]any{
		"contents":         contents,
		"generationConfig": genConfig,
	}
	if system != "" {
		body["systemInstruction"] = map[string]any{"parts": []part{{Text: system}}}
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []part `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	path := "/models/" + url.PathEscape(g.model) + ":generateContent?key=" + url.QueryEscape(g.apiKey)
	if err := g.postJSON(ctx, "gemini", path, nil, body, &result); err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", invalidResponse("gemini", "no candidates returned")
	}
	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return strings.TrimSpace(text.String()), nil
}
