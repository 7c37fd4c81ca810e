// Package followup proposes next questions after a turn. Suggestions are
// best effort: a failure never fails the turn.
package followup

import (
	"context"
	"time"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/prompt"
)

// DefaultCount is the number of suggestions when none is configured.
const DefaultCount = 3

// Input describes the turn the suggestions follow.
type Input struct {
	Question string
	SQL      string
	Summary  string
}

// Suggester asks the model for follow-up questions.
type Suggester struct {
	provider ai.Provider
	builder  *prompt.Builder
	count    int
	timeout  time.Duration
}

// New returns a suggester producing count suggestions per turn. A count
// of zero disables suggestions and a negative count uses DefaultCount;
// timeout bounds each call when set.
func New(provider ai.Provider, builder *prompt.Builder, count int, timeout time.Duration) *Suggester {
	if count < 0 {
		count = DefaultCount
	}
	return &Suggester{provider: provider, builder: builder, count: count, timeout: timeout}
}

// Count is the number of suggestions requested per turn.
func (s *Suggester) Count() int { return s.count }

// Suggest returns at most Count suggestions, or nil when the provider
// fails or its reply cannot be parsed.
func (s *Suggester) Suggest(ctx context.Context, in Input) []Suggestion {
	if s.count == 0 || (in.Question == "" && in.SQL == "") {
		return nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	msgs := s.builder.Suggestions(in.Question, in.SQL, in.Summary, s.count)
	reply, err := s.provider.Complete(ctx, msgs, ai.Options{JSON: true, Temperature: 0.4, Purpose: "suggest"})
	if err != nil {
		applog.Debug("follow-up suggestions unavailable", "provider", s.provider.Name(), "err", err)
		return nil
	}
	parsed, err := Parse(reply)
	if err != nil {
		applog.Debug("follow-up suggestions unparsable", "provider", s.provider.Name(), "err", err)
		return nil
	}
	return clean(parsed, s.count)
}
