// Package ai is the provider gateway: one Provider interface over
// OpenAI, Anthropic, Gemini, Groq, Ollama and an offline placeholder.
//
// Design decisions:
//   - Provider is an interface so backends can be swapped without
//     changing the pipeline or the TUI.
//   - Every failure surfaces as a *ProviderError with a Kind; only
//     RateLimited and Timeout are retried (see WithRetry).
//   - Cross-cutting behaviour (retry, transcript, metrics) is layered
//     as decorators around a concrete provider.
package ai

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object when it supports a
	// response format switch.
	JSON bool
	// Purpose labels the call in transcripts and metrics
	// ("translate", "suggest", "explain").
	Purpose string
}

// Provider is the interface all AI backends must implement.
type Provider interface {
	// Complete sends a conversation and returns the assistant's reply.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)

	// Name returns the provider name for display.
	Name() string
}

func maxTokens(opts Options) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return 2048
}

// splitSystem separates system content from the chat turns, for APIs
// that take the system prompt as a top-level field.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
