// Package assistant runs conversation turns: question in, SQL, result,
// chart and follow-up questions out.
package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/conversation"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/followup"
	"github.com/DachengChen/askSQL/metrics"
	"github.com/DachengChen/askSQL/prompt"
	"github.com/DachengChen/askSQL/querylog"
	"github.com/DachengChen/askSQL/sqlguard"
	"github.com/DachengChen/askSQL/viz"
)

// SchemaProvider supplies the shared schema snapshot.
type SchemaProvider interface {
	Schema(ctx context.Context) (*db.Schema, error)
}

// QueryRunner executes validated SQL.
type QueryRunner interface {
	Execute(ctx context.Context, sql string, opts db.ExecOptions) (*db.QueryResult, error)
}

// TurnRecorder persists the outcome of each turn.
type TurnRecorder interface {
	Record(ctx context.Context, e querylog.Entry) error
}

// Response is what every surface shows for one question.
type Response struct {
	Question    string                `json:"question"`
	SQL         string                `json:"sql,omitempty"`
	Explanation string                `json:"explanation,omitempty"`
	Result      *db.QueryResult       `json:"result,omitempty"`
	Chart       *viz.ChartSpec        `json:"chart,omitempty"`
	FollowUps   []followup.Suggestion `json:"follow_ups"`
	Notice      string                `json:"notice,omitempty"`
	Error       *ErrorInfo            `json:"error,omitempty"`
	Duration    time.Duration         `json:"duration_ns"`
}

// PipelineOptions wires a Pipeline.
type PipelineOptions struct {
	Provider ai.Provider
	Schemas  SchemaProvider
	Executor QueryRunner
	Dialect  string
	Config   config.PipelineConfig
	// CallTimeout bounds each provider call, including retries.
	CallTimeout time.Duration
	// Recorder is optional.
	Recorder TurnRecorder
}

// Pipeline turns questions into answers. It holds no per-session state
// and is safe for concurrent use by many sessions.
type Pipeline struct {
	provider    ai.Provider
	schemas     SchemaProvider
	executor    QueryRunner
	recorder    TurnRecorder
	builder     *prompt.Builder
	policy      sqlguard.Policy
	suggester   *followup.Suggester
	explainer   *Explainer
	cfg         config.PipelineConfig
	callTimeout time.Duration
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	builder := prompt.NewBuilder(prompt.Options{
		MaxHistoryTurns:     opts.Config.MaxHistoryTurns,
		IncludeExplanations: opts.Config.IncludeExplanations,
		Dialect:             opts.Dialect,
	})
	return &Pipeline{
		provider:    opts.Provider,
		schemas:     opts.Schemas,
		executor:    opts.Executor,
		recorder:    opts.Recorder,
		builder:     builder,
		policy:      sqlguard.NewPolicy(opts.Config.AllowMutations, opts.Config.BlockedKeywords),
		suggester:   followup.New(opts.Provider, builder, opts.Config.SuggestionCount, opts.CallTimeout),
		explainer:   NewExplainer(opts.Provider, builder, opts.CallTimeout),
		cfg:         opts.Config,
		callTimeout: opts.CallTimeout,
	}
}

// ProviderName names the model backend.
func (p *Pipeline) ProviderName() string { return p.provider.Name() }

// Ask answers question within session s. The response is always
// non-nil; on failure err is the cause and Response.Error describes it.
// A turn is appended to the history only when the statement ran.
func (p *Pipeline) Ask(ctx context.Context, s *Session, question string) (*Response, error) {
	s.turn.Lock()
	defer s.turn.Unlock()
	s.touch()

	start := time.Now()
	question = strings.TrimSpace(question)
	resp := &Response{Question: question, FollowUps: []followup.Suggestion{}}

	if question == "" {
		return p.fail(ctx, s, resp, start, ErrEmptyQuestion)
	}

	if prev := s.previous(); prev != nil && viz.IsChartFollowUp(question) {
		return p.rechart(resp, prev, start), nil
	}

	schema, err := p.schemas.Schema(ctx)
	if err != nil {
		return p.fail(ctx, s, resp, start, err)
	}

	msgs := p.builder.Translation(schema.Format(), s.History.Recent(p.cfg.MaxHistoryTurns), question)
	reply, err := p.complete(ctx, msgs)
	if err != nil {
		return p.fail(ctx, s, resp, start, err)
	}

	sql, err := sqlguard.Extract(reply)
	if err != nil {
		return p.fail(ctx, s, resp, start, err)
	}
	resp.SQL = sql

	if err := p.policy.Validate(sql); err != nil {
		var pv *sqlguard.PolicyViolation
		if errors.As(err, &pv) {
			metrics.ObservePolicyViolation(pv.Keyword)
		}
		return p.fail(ctx, s, resp, start, err)
	}

	result, err := p.executor.Execute(ctx, sql, db.ExecOptions{
		RowLimit:       p.cfg.RowLimit,
		Timeout:        p.cfg.QueryTimeout(),
		AllowMutations: p.cfg.AllowMutations,
	})
	if err != nil {
		var xe *db.ExecutionError
		if !(errors.As(err, &xe) && xe.Kind == db.RowLimitExceeded && xe.Partial && result != nil) {
			return p.fail(ctx, s, resp, start, err)
		}
		resp.Notice = xe.Error()
	}
	resp.Result = result

	chart := viz.SelectFor(question, result)
	resp.Chart = &chart

	if p.cfg.IncludeExplanations {
		resp.Explanation = sqlguard.Commentary(reply)
		if resp.Explanation == "" {
			resp.Explanation = KeywordExplanation(sql)
		}
	}

	turn := conversation.NewTurn(question, sql, result)
	if sugg := p.suggester.Suggest(ctx, followup.Input{Question: question, SQL: sql, Summary: turn.Summary}); sugg != nil {
		resp.FollowUps = sugg
	}

	s.History.Append(turn)
	s.remember(&answer{question: question, sql: sql, result: result})

	resp.Duration = time.Since(start)
	metrics.ObserveTurn("success", resp.Duration)
	applog.Event("turn", "answered", "session", s.ID, "rows", result.RowCount, "chart", chart.Type, "duration", resp.Duration)
	p.record(ctx, s, resp, querylog.StatusSuccess)
	return resp, nil
}

// Explain asks the model for a bullet explanation of sql.
func (p *Pipeline) Explain(ctx context.Context, question, sql string) string {
	return p.explainer.Explain(ctx, question, sql)
}

func (p *Pipeline) complete(ctx context.Context, msgs []ai.Message) (string, error) {
	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}
	return p.provider.Complete(ctx, msgs, ai.Options{Temperature: 0, Purpose: "translate"})
}

// rechart draws the previous result again without calling the provider
// or the database. No turn is recorded.
func (p *Pipeline) rechart(resp *Response, prev *answer, start time.Time) *Response {
	want := viz.DetectRequested(resp.Question)
	chart, ok := viz.Coerce(prev.result, want)
	switch {
	case ok:
		resp.Notice = "Showing the previous result as a " + string(chart.Type) + " chart."
	case want != "":
		chart = viz.Select(prev.result)
		resp.Notice = "The previous result cannot be drawn as a " + string(want) + " chart; showing " + string(chart.Type) + " instead."
	default:
		chart = viz.Select(prev.result)
		resp.Notice = "Showing the previous result as a " + string(chart.Type) + "."
	}
	resp.SQL = prev.sql
	resp.Result = prev.result
	resp.Chart = &chart
	resp.Duration = time.Since(start)
	metrics.ObserveTurn("rechart", resp.Duration)
	return resp
}

func (p *Pipeline) fail(ctx context.Context, s *Session, resp *Response, start time.Time, err error) (*Response, error) {
	resp.Error = newErrorInfo(err, resp.Question)
	resp.Duration = time.Since(start)

	status := querylog.StatusError
	if resp.Error.Kind == KindPolicy {
		status = querylog.StatusBlocked
	}
	metrics.ObserveTurn(resp.Error.Kind, resp.Duration)
	applog.Warn("turn failed", "session", s.ID, "kind", resp.Error.Kind, "err", err)
	p.record(ctx, s, resp, status)
	return resp, err
}

func (p *Pipeline) record(ctx context.Context, s *Session, resp *Response, status string) {
	if p.recorder == nil {
		return
	}
	e := querylog.Entry{
		SessionID:  s.ID,
		Question:   resp.Question,
		SQL:        resp.SQL,
		Status:     status,
		DurationMS: resp.Duration.Milliseconds(),
		Provider:   p.provider.Name(),
	}
	if resp.Result != nil {
		e.RowCount = resp.Result.RowCount
		e.Truncated = resp.Result.Truncated
	}
	if resp.Error != nil {
		e.ErrorKind = resp.Error.Kind
		e.Error = resp.Error.Message
	}
	// Record even when the caller has gone away.
	if err := p.recorder.Record(context.WithoutCancel(ctx), e); err != nil {
		applog.Warn("query log write failed", "err", err)
	}
}
