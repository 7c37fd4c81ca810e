// AI provider configuration.
//
// API keys come from the config file, the environment (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, GEMINI_API_KEY, GROQ_API_KEY) or the OS keychain.
package config

import "slices"

// Provider names accepted by AIConfig.Provider.
const (
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
	ProviderGroq        = "groq"
	ProviderOllama      = "ollama"
	ProviderPlaceholder = "placeholder"
)

// ProviderNames lists every supported provider in display order.
var ProviderNames = []string{
	ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderGroq, ProviderOllama, ProviderPlaceholder,
}

// AIConfig holds the AI provider selection and credentials.
type AIConfig struct {
	Provider       string          `json:"provider" env:"ASKSQL_PROVIDER"`
	Model          string          `json:"model_name,omitempty" env:"ASKSQL_MODEL"` // overrides the per-provider model
	TimeoutSeconds int             `json:"timeout_seconds" env:"ASKSQL_PROVIDER_TIMEOUT_SECONDS"`
	MaxAttempts    int             `json:"max_attempts" env:"ASKSQL_PROVIDER_MAX_ATTEMPTS"`
	OpenAI         OpenAIConfig    `json:"openai"`
	Anthropic      AnthropicConfig `json:"anthropic"`
	Gemini         GeminiConfig    `json:"gemini"`
	Groq           GroqConfig      `json:"groq"`
	Ollama         OllamaConfig    `json:"ollama"`
}

// OpenAIConfig holds OpenAI settings. BaseURL allows any
// OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty" env:"OPENAI_API_KEY"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty" env:"OPENAI_BASE_URL"`
}

type AnthropicConfig struct {
	APIKey string `json:"api_key,omitempty" env:"ANTHROPIC_API_KEY"`
	Model  string `json:"model"`
}

type GeminiConfig struct {
	APIKey string `json:"api_key,omitempty" env:"GEMINI_API_KEY"`
	Model  string `json:"model"`
}

type GroqConfig struct {
	APIKey string `json:"api_key,omitempty" env:"GROQ_API_KEY"`
	Model  string `json:"model"`
}

type OllamaConfig struct {
	Host  string `json:"host" env:"OLLAMA_HOST"`
	Model string `json:"model"`
}

// DefaultAIConfig returns sensible defaults.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider:       ProviderPlaceholder,
		TimeoutSeconds: 60,
		MaxAttempts:    3,
		OpenAI:         OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic:      AnthropicConfig{Model: "claude-sonnet-4-20250514"},
		Gemini:         GeminiConfig{Model: "gemini-2.0-flash"},
		Groq:           GroqConfig{Model: "llama-3.3-70b-versatile"},
		Ollama:         OllamaConfig{Host: "http://localhost:11434", Model: "llama3.2"},
	}
}

// ModelName is the model used for the selected provider.
func (c AIConfig) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderAnthropic:
		return c.Anthropic.Model
	case ProviderGemini:
		return c.Gemini.Model
	case ProviderGroq:
		return c.Groq.Model
	case ProviderOllama:
		return c.Ollama.Model
	}
	return ""
}

// APIKey returns the credential of the selected provider.
func (c AIConfig) APIKey() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderAnthropic:
		return c.Anthropic.APIKey
	case ProviderGemini:
		return c.Gemini.APIKey
	case ProviderGroq:
		return c.Groq.APIKey
	}
	return ""
}

// NeedsAPIKey reports whether the provider authenticates with a key.
func NeedsAPIKey(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderGroq:
		return true
	}
	return false
}

// SetAPIKey stores key on the named provider's settings.
func (c *AIConfig) SetAPIKey(provider, key string) {
	switch provider {
	case ProviderOpenAI:
		c.OpenAI.APIKey = key
	case ProviderAnthropic:
		c.Anthropic.APIKey = key
	case ProviderGemini:
		c.Gemini.APIKey = key
	case ProviderGroq:
		c.Groq.APIKey = key
	}
}

func (c AIConfig) validate() error {
	if !slices.Contains(ProviderNames, c.Provider) {
		return &ConfigurationError{Field: "provider", Message: "unknown provider " + c.Provider,
			Hint: "choose one of openai, anthropic, gemini, groq, ollama, placeholder"}
	}
	if c.TimeoutSeconds <= 0 {
		return invalid("timeout_seconds", "must be positive")
	}
	if c.MaxAttempts < 1 {
		return invalid("max_attempts", "must be at least 1")
	}
	return nil
}
