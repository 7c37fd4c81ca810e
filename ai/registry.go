package ai

import (
	"io"
	"time"

	"github.com/DachengChen/askSQL/config"
)

// NewProvider creates the configured AI provider. Missing credentials
// yield a *config.ConfigurationError.
func NewProvider(cfg config.AIConfig, opts ...HTTPOption) (Provider, error) {
	if config.NeedsAPIKey(cfg.Provider) && cfg.APIKey() == "" {
		return nil, &config.ConfigurationError{
			Field:   cfg.Provider,
			Message: "API key not set",
			Hint:    "set " + apiKeyEnv(cfg.Provider) + ", add it to ~/.asksql/config.json or run `asksql key set " + cfg.Provider + "`",
		}
	}

	model := cfg.ModelName()
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI.APIKey, model, append([]HTTPOption{WithBaseURL(cfg.OpenAI.BaseURL)}, opts...)...), nil
	case config.ProviderGroq:
		return NewGroq(cfg.Groq.APIKey, model, opts...), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.Anthropic.APIKey, model, opts...), nil
	case config.ProviderGemini:
		return NewGemini(cfg.Gemini.APIKey, model, opts...), nil
	case config.ProviderOllama:
		return NewOllama(cfg.Ollama.Host, model, opts...), nil
	case config.ProviderPlaceholder, "":
		return NewPlaceholder(), nil
	}
	return nil, &config.ConfigurationError{
		Field:   "provider",
		Message: "unknown AI provider " + cfg.Provider,
		Hint:    "supported: openai, anthropic, gemini, groq, ollama, placeholder",
	}
}

// NewGateway builds the provider the pipeline talks to: the configured
// backend with metrics, retries and, when transcript is non-nil, a
// request log.
func NewGateway(cfg config.AIConfig, transcript io.Writer) (Provider, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if transcript != nil {
		p = WithTranscript(p, transcript)
	}
	p = WithMetrics(p)
	policy := DefaultRetryPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	return WithRetry(p, policy), nil
}

// CallTimeout is the per-call deadline from the config.
func CallTimeout(cfg config.AIConfig) time.Duration {
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

func apiKeyEnv(provider string) string {
	switch provider {
	case config.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case config.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case config.ProviderGemini:
		return "GEMINI_API_KEY"
	case config.ProviderGroq:
		return "GROQ_API_KEY"
	}
	return ""
}
