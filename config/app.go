package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the top-level config file structure (~/.asksql/config.json).
type AppConfig struct {
	AI       AIConfig       `json:"ai"`
	Pipeline PipelineConfig `json:"pipeline"`
	Logging  LoggingConfig  `json:"logging"`
	Server   ServerConfig   `json:"server"`
	QueryLog QueryLogConfig `json:"query_log"`
}

// PipelineConfig tunes a conversation turn.
type PipelineConfig struct {
	AllowMutations      bool     `json:"allow_mutations" env:"ASKSQL_ALLOW_MUTATIONS"`
	MaxHistoryTurns     int      `json:"max_history_turns" env:"ASKSQL_MAX_HISTORY_TURNS"`
	RowLimit            int      `json:"row_limit" env:"ASKSQL_ROW_LIMIT"`
	QueryTimeoutSeconds int      `json:"query_timeout_seconds" env:"ASKSQL_QUERY_TIMEOUT_SECONDS"`
	SuggestionCount     int      `json:"suggestion_count" env:"ASKSQL_SUGGESTION_COUNT"`
	IncludeExplanations bool     `json:"include_explanations" env:"ASKSQL_INCLUDE_EXPLANATIONS"`
	BlockedKeywords     []string `json:"blocked_keywords,omitempty" env:"ASKSQL_BLOCKED_KEYWORDS" envSeparator:","`
}

// QueryTimeout is QueryTimeoutSeconds as a duration.
func (p PipelineConfig) QueryTimeout() time.Duration {
	return time.Duration(p.QueryTimeoutSeconds) * time.Second
}

type LoggingConfig struct {
	Level  string `json:"level" env:"ASKSQL_LOG_LEVEL"`
	Format string `json:"format" env:"ASKSQL_LOG_FORMAT"` // text or json
	File   string `json:"file,omitempty" env:"ASKSQL_LOG_FILE"`
}

type ServerConfig struct {
	Addr              string `json:"addr" env:"ASKSQL_ADDR"`
	SessionTTLMinutes int    `json:"session_ttl_minutes" env:"ASKSQL_SESSION_TTL_MINUTES"`
}

type QueryLogConfig struct {
	Enabled bool   `json:"enabled" env:"ASKSQL_QUERY_LOG"`
	Path    string `json:"path,omitempty" env:"ASKSQL_QUERY_LOG_PATH"`
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		AI: DefaultAIConfig(),
		Pipeline: PipelineConfig{
			MaxHistoryTurns:     3,
			RowLimit:            1000,
			QueryTimeoutSeconds: 30,
			SuggestionCount:     3,
			IncludeExplanations: true,
		},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Server:   ServerConfig{Addr: "127.0.0.1:8080", SessionTTLMinutes: 30},
		QueryLog: QueryLogConfig{Enabled: true},
	}
}

// Dir is the configuration directory, ~/.asksql unless ASKSQL_HOME is set.
func Dir() (string, error) {
	if d := os.Getenv("ASKSQL_HOME"); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".asksql"), nil
}

// LoadAppConfig reads ~/.asksql/config.json, applies environment
// overrides and validates the result. A missing file yields defaults.
func LoadAppConfig() (*AppConfig, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return loadFrom(filepath.Join(dir, "config.json"), env.Options{})
}

func loadFrom(path string, opts env.Options) (*AppConfig, error) {
	cfg := DefaultAppConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigurationError{Field: path, Message: "invalid JSON", Err: err}
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	// Fields without an env var set are left untouched, so the file and
	// defaults survive.
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, &ConfigurationError{Message: "environment overrides", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveAppConfig writes the config to ~/.asksql/config.json.
func SaveAppConfig(cfg *AppConfig) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return saveTo(filepath.Join(dir, "config.json"), cfg)
}

func saveTo(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate reports the first invalid option as a *ConfigurationError.
func (c *AppConfig) Validate() error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	p := c.Pipeline
	switch {
	case p.RowLimit <= 0:
		return invalid("row_limit", "must be positive, got %d", p.RowLimit)
	case p.QueryTimeoutSeconds <= 0:
		return invalid("query_timeout_seconds", "must be positive, got %d", p.QueryTimeoutSeconds)
	case p.MaxHistoryTurns < 0:
		return invalid("max_history_turns", "must not be negative, got %d", p.MaxHistoryTurns)
	case p.SuggestionCount < 0 || p.SuggestionCount > 10:
		return invalid("suggestion_count", "must be between 0 and 10, got %d", p.SuggestionCount)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return invalid("logging.format", "must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// QueryLogPath is where the query log database lives.
func (c *AppConfig) QueryLogPath() (string, error) {
	if c.QueryLog.Path != "" {
		return c.QueryLog.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", fmt.Errorf("query log path: %w", err)
	}
	return filepath.Join(dir, "history.duckdb"), nil
}
