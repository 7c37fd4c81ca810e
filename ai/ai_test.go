package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/config"
)

var chat = []Message{
	{Role: RoleSystem, Content: "You translate questions to SQL."},
	{Role: RoleUser, Content: "Show total sales by region"},
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model          string            `json:"model"`
			Messages       []Message         `json:"messages"`
			ResponseFormat map[string]string `json:"response_format"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		assert.Equal(t, chat, body.Messages)
		assert.Equal(t, "json_object", body.ResponseFormat["type"])

		w.Write([]byte(`{"choices":[{"message":{"content":" {\"ok\":true} "}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", "gpt-test", WithBaseURL(srv.URL))
	out, err := p.Complete(context.Background(), chat, Options{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "OpenAI (gpt-test)", p.Name())
}

func TestAnthropicMovesSystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		var body struct {
			System   string    `json:"system"`
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "You translate questions to SQL.", body.System)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, RoleUser, body.Messages[0].Role)

		w.Write([]byte(`{"content":[{"type":"text","text":"SELECT 1"},{"type":"tool_use"}]}`))
	}))
	defer srv.Close()

	out, err := NewAnthropic("key", "claude-test", WithBaseURL(srv.URL)).Complete(context.Background(), chat, Options{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
}

func TestGeminiUsesModelRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		var body struct {
			Contents []struct {
				Role string `json:"role"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 2)
		assert.Equal(t, "model", body.Contents[1].Role)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"SELECT "},{"text":"2"}]}}]}`))
	}))
	defer srv.Close()

	msgs := append([]Message{}, chat...)
	msgs = append(msgs, Message{Role: RoleAssistant, Content: "SELECT 1"})
	out, err := NewGemini("g-key", "gemini-test", WithBaseURL(srv.URL)).Complete(context.Background(), msgs, Options{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 2", out)
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Write([]byte(`{"message":{"content":"SELECT 3"}}`))
	}))
	defer srv.Close()

	out, err := NewOllama(srv.URL+"/", "llama-test").Complete(context.Background(), chat, Options{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 3", out)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		header string
		body   string
		kind   ErrorKind
		msg    string
		wait   time.Duration
	}{
		{status: 401, body: `{"error":{"message":"bad key"}}`, kind: AuthFailure, msg: "bad key"},
		{status: 403, body: `{"error":"forbidden"}`, kind: AuthFailure, msg: "forbidden"},
		{status: 429, header: "7", body: `{}`, kind: RateLimited, wait: 7 * time.Second},
		{status: 408, kind: Timeout},
		{status: 504, kind: Timeout},
		{status: 503, body: "overloaded", kind: Unavailable, msg: "overloaded"},
		{status: 529, kind: Unavailable},
		{status: 400, body: `{"error":{"message":"context too long"}}`, kind: InvalidResponse, msg: "context too long"},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tt.header != "" {
				w.Header().Set("Retry-After", tt.header)
			}
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))

		_, err := NewOpenAI("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), chat, Options{})
		srv.Close()

		var pe *ProviderError
		require.ErrorAs(t, err, &pe, "status %d", tt.status)
		assert.Equal(t, tt.kind, pe.Kind, "status %d", tt.status)
		assert.Equal(t, tt.status, pe.StatusCode)
		assert.Equal(t, "openai", pe.Provider)
		assert.Equal(t, tt.wait, pe.RetryAfter)
		if tt.msg != "" {
			assert.Equal(t, tt.msg, pe.Message)
		}
	}
}

func TestInvalidBodies(t *testing.T) {
	for _, body := range []string{`not json`, `{"choices":[]}`, `{"choices":[{"message":{"content":"  "}}]}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		_, err := NewOpenAI("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), chat, Options{})
		srv.Close()
		assert.Equal(t, InvalidResponse, KindOf(err), body)
	}
}

func TestTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewOpenAI("k", "m", WithBaseURL(srv.URL)).Complete(ctx, chat, Options{})
	assert.Equal(t, Timeout, KindOf(err))

	_, err = NewOpenAI("k", "m", WithBaseURL("http://127.0.0.1:1")).Complete(context.Background(), chat, Options{})
	assert.Equal(t, Unavailable, KindOf(err))

	cancelled, stop := context.WithCancel(context.Background())
	stop()
	_, err = NewOpenAI("k", "m", WithBaseURL(srv.URL)).Complete(cancelled, chat, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, KindOf(err))
}

func TestRequestBuildFailuresAreProviderErrors(t *testing.T) {
	_, err := NewOpenAI("k", "m", WithBaseURL("http://bad host")).Complete(context.Background(), chat, Options{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Unavailable, pe.Kind)

	var out map[string]any
	err = newEndpoint("http://127.0.0.1:1", nil).postJSON(context.Background(), "openai", "/x", nil, make(chan int), &out)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, InvalidResponse, pe.Kind)
}

// scripted returns queued results in order.
type scripted struct {
	results []error
	calls   atomic.Int32
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Complete(ctx context.Context, _ []Message, _ Options) (string, error) {
	i := int(s.calls.Add(1)) - 1
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return "SELECT 1", nil
}

func noSleep(r Provider) *retrying {
	rp := r.(*retrying)
	rp.sleep = func(context.Context, time.Duration) error { return nil }
	return rp
}

func TestRetryRateLimitedThenSuccess(t *testing.T) {
	p := &scripted{results: []error{
		&ProviderError{Provider: "scripted", Kind: RateLimited},
		&ProviderError{Provider: "scripted", Kind: Timeout},
	}}
	out, err := noSleep(WithRetry(p, DefaultRetryPolicy())).Complete(context.Background(), chat, Options{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out)
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestRetryIsBounded(t *testing.T) {
	limited := &ProviderError{Provider: "scripted", Kind: RateLimited}
	p := &scripted{results: []error{limited, limited, limited, limited}}
	_, err := noSleep(WithRetry(p, DefaultRetryPolicy())).Complete(context.Background(), chat, Options{})
	assert.Equal(t, RateLimited, KindOf(err))
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestNonRetryableKindsFailFast(t *testing.T) {
	for _, kind := range []ErrorKind{AuthFailure, Unavailable, InvalidResponse} {
		p := &scripted{results: []error{&ProviderError{Provider: "scripted", Kind: kind}}}
		_, err := noSleep(WithRetry(p, DefaultRetryPolicy())).Complete(context.Background(), chat, Options{})
		assert.Equal(t, kind, KindOf(err))
		assert.EqualValues(t, 1, p.calls.Load(), string(kind))
	}
}

func TestRetryStopsWhenContextEnds(t *testing.T) {
	p := &scripted{results: []error{&ProviderError{Provider: "scripted", Kind: Timeout}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithRetry(p, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}).Complete(ctx, chat, Options{})
	assert.Equal(t, Timeout, KindOf(err))
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1, 0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2, 0))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3, 0))
	assert.Equal(t, time.Second, p.Backoff(6, 0))
	assert.Equal(t, 700*time.Millisecond, p.Backoff(1, 700*time.Millisecond))
	assert.Equal(t, time.Second, p.Backoff(1, time.Minute))
}

func TestTranscriptRecordsCall(t *testing.T) {
	var buf strings.Builder
	p := WithTranscript(&scripted{results: []error{errors.New("api_key=sk-secret rejected")}}, &buf)

	_, err := p.Complete(context.Background(), chat, Options{Purpose: "translate"})
	require.Error(t, err)

	log := buf.String()
	assert.Contains(t, log, "Op: translate")
	assert.Contains(t, log, "Show total sales by region")
	assert.Contains(t, log, "api_key=***")
	assert.NotContains(t, log, "sk-secret")
}

func TestPlaceholderPreviewsFirstTable(t *testing.T) {
	p := &Placeholder{}
	out, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "rules\n<schema>\nTable: orders\n  id integer\nTable: customers\n</schema>"},
		{Role: RoleUser, Content: "anything"},
	}, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT * FROM orders LIMIT 10")

	out, err = p.Complete(context.Background(), chat, Options{JSON: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"suggestions": []}`, out)
}

func TestNewProvider(t *testing.T) {
	cfg := config.DefaultAIConfig()
	cfg.Provider = config.ProviderAnthropic
	_, err := NewProvider(cfg)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Hint, "ANTHROPIC_API_KEY")

	cfg.Anthropic.APIKey = "k"
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, p)

	cfg.Provider = config.ProviderGroq
	cfg.Groq.APIKey = "g"
	p, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Groq (llama-3.3-70b-versatile)", p.Name())

	cfg.Provider = "mystery"
	_, err = NewProvider(cfg)
	require.ErrorAs(t, err, &cfgErr)

	cfg.Provider = config.ProviderOllama
	p, err = NewGateway(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ollama (llama3.2)", p.Name())
}
