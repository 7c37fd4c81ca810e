package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/querylog"
)

type scriptedModel struct{}

func (scriptedModel) Name() string { return "scripted" }

func (scriptedModel) Complete(_ context.Context, msgs []ai.Message, opts ai.Options) (string, error) {
	if opts.JSON {
		return `{"suggestions":[{"question":"Sales by month","why":"trend"}]}`, nil
	}
	if opts.Purpose == "explain" {
		return "- sums sales", nil
	}
	if strings.Contains(strings.ToLower(msgs[len(msgs)-1].Content), "delete") {
		return "```sql\nDELETE FROM customers\n```", nil
	}
	return "```sql\nSELECT region, total FROM sales\n```", nil
}

type stubExecutor struct{ calls int }

func (e *stubExecutor) Execute(context.Context, string, db.ExecOptions) (*db.QueryResult, error) {
	e.calls++
	return &db.QueryResult{
		Columns:  []db.Column{{Name: "region", Kind: db.KindText}, {Name: "total", Kind: db.KindNumeric}},
		Rows:     [][]any{{"north", 10.0}, {"south", 5.0}},
		RowCount: 2,
	}, nil
}

type stubSchemas struct {
	refreshes int
	err       error
}

func (s *stubSchemas) Schema(context.Context) (*db.Schema, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &db.Schema{Dialect: "PostgreSQL", SchemaName: "public", Tables: []db.TableSchema{{Name: "sales"}}}, nil
}

func (s *stubSchemas) Refresh(ctx context.Context) (*db.Schema, error) {
	s.refreshes++
	return s.Schema(ctx)
}

type stubLog struct{}

func (stubLog) List(_ context.Context, f querylog.Filter) ([]querylog.Entry, error) {
	return []querylog.Entry{{ID: "e-1", SessionID: f.SessionID, Status: querylog.StatusSuccess, CreatedAt: time.Unix(0, 0).UTC()}}, nil
}

func (stubLog) Stats(context.Context) (querylog.Stats, error) {
	return querylog.Stats{Total: 1, Succeeded: 1}, nil
}

type fixture struct {
	handler  http.Handler
	exec     *stubExecutor
	schemas  *stubSchemas
	sessions *assistant.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	exec := &stubExecutor{}
	schemas := &stubSchemas{}
	sessions := assistant.NewManager(time.Minute)
	t.Cleanup(sessions.Close)
	pipeline := assistant.NewPipeline(assistant.PipelineOptions{
		Provider: scriptedModel{},
		Schemas:  schemas,
		Executor: exec,
		Config:   config.DefaultAppConfig().Pipeline,
	})
	h := NewHandler(Dependencies{Sessions: sessions, Pipeline: pipeline, Schemas: schemas, QueryLog: stubLog{}})
	return &fixture{handler: h, exec: exec, schemas: schemas, sessions: sessions}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var s sessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	require.NotEmpty(t, s.ID)
	return s.ID
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
}

func TestAskQuestion(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	rr := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/questions", `{"question":"Show total sales by region"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "SELECT region, total FROM sales", body["sql"])
	assert.Equal(t, "bar", body["chart"].(map[string]any)["type"])
	assert.Len(t, body["follow_ups"], 1)
	assert.Nil(t, body["error"])
	result := body["result"].(map[string]any)
	assert.Equal(t, false, result["truncated"])
	assert.Len(t, result["rows"], 2)

	rr = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var hist struct {
		Turns []map[string]any `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	require.Len(t, hist.Turns, 1)
	assert.Equal(t, "Show total sales by region", hist.Turns[0]["question"])

	rr = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/history?limit=0", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	assert.Empty(t, hist.Turns)

	rr = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/history?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAskBlockedQuestion(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	rr := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/questions", `{"question":"Delete all customers"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var body struct {
		SQL   string `json:"sql"`
		Error struct {
			Kind    string `json:"kind"`
			Keyword string `json:"keyword"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "policy_violation", body.Error.Kind)
	assert.Equal(t, "DELETE", body.Error.Keyword)
	assert.Zero(t, f.exec.calls)
}

func TestQuestionValidation(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/sessions/"+id+"/questions", `{"question":" "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/sessions/"+id+"/questions", `not json`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/v1/sessions/missing/questions", `{"question":"q"}`).Code)

	big := `{"question":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge, f.do(t, http.MethodPost, "/v1/sessions/"+id+"/questions", big).Code)
}

func TestResetAndDeleteSession(t *testing.T) {
	f := newFixture(t)
	id := f.createSession(t)
	f.do(t, http.MethodPost, "/v1/sessions/"+id+"/questions", `{"question":"Show total sales by region"}`)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/v1/sessions/"+id+"/reset", "").Code)
	s, ok := f.sessions.Get(id)
	require.True(t, ok)
	assert.Zero(t, s.History.Len())

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/sessions/"+id+"/history", "").Code)
}

func TestSchemaEndpoints(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/v1/schema", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"sales"`)

	rr = f.do(t, http.MethodPost, "/v1/schema/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, f.schemas.refreshes)

	f.schemas.err = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/v1/schema", "").Code)
}

func TestExplainEndpoint(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/explain", `{"question":"q","sql":"SELECT 1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "sums sales")

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/v1/explain", `{"question":"q"}`).Code)
}

func TestQueryLogEndpoints(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/v1/querylog?session_id=s-1&limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"session_id":"s-1"`)

	rr = f.do(t, http.MethodGet, "/v1/querylog/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, statusFor("rate_limited"))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor("timeout"))
	assert.Equal(t, http.StatusBadGateway, statusFor("auth_failure"))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor("connection_lost"))
	assert.Equal(t, http.StatusInternalServerError, statusFor("internal"))
}
