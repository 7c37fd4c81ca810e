// logger.go records a transcript of every AI interaction.
//
// Transcripts are written to ~/.asksql/logs/ai.log with timestamps,
// one request/response block per call.
package ai

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/metrics"
)

const (
	ruleHeavy = "════════════════════════════════════════════════════════════════"
	ruleLight = "────────────────────────────────────────"
)

// OpenTranscript opens (or creates) ~/.asksql/logs/ai.log for appending.
func OpenTranscript() (*os.File, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(logDir, "ai.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

type transcript struct {
	Provider
	mu sync.Mutex
	w  io.Writer
	now func() time.Time
}

// WithTranscript wraps p so each call's messages and reply (or error)
// are appended to w. Secrets are masked.
func WithTranscript(p Provider, w io.Writer) Provider {
	return &transcript{Provider: p, w: w, now: time.Now}
}

func (t *transcript) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	start := t.now()
	out, err := t.Provider.Complete(ctx, messages, opts)
	t.write(start, messages, opts, out, err)
	return out, err
}

func (t *transcript) write(start time.Time, messages []Message, opts Options, out string, err error) {
	op := opts.Purpose
	if op == "" {
		op = "complete"
	}
	ts := start.Format("2006-01-02 15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s\n[REQUEST] %s  |  Op: %s  |  Provider: %s\n%s\n", ruleHeavy, ts, op, t.Name(), ruleHeavy)
	for _, m := range messages {
		fmt.Fprintf(&sb, "%s:\n%s\n%s\n", m.Role, m.Content, ruleLight)
	}
	errStr := "(none)"
	if err != nil {
		errStr = err.Error()
	}
	fmt.Fprintf(&sb, "[RESPONSE] %s  |  Op: %s  |  %s\n%s\nError: %s\n%s\nResponse:\n%s\n%s\n\n",
		t.now().Format("2006-01-02 15:04:05"), op, t.now().Sub(start).Round(time.Millisecond),
		ruleLight, errStr, ruleLight, out, ruleHeavy)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, werr := io.WriteString(t.w, applog.Mask(sb.String())); werr != nil {
		applog.Debug("ai transcript write failed", "err", werr)
	}
}

type instrumented struct {
	Provider
}

// WithMetrics wraps p so every call is counted and timed by outcome.
func WithMetrics(p Provider) Provider {
	return &instrumented{Provider: p}
}

func (m *instrumented) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	start := time.Now()
	out, err := m.Provider.Complete(ctx, messages, opts)
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.ObserveProviderRequest(m.Name(), opts.Purpose, outcome, time.Since(start))
	return out, err
}
