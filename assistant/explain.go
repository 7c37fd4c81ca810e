package assistant

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/prompt"
)

const maxExplanationBullets = 8

type explainKey struct {
	provider string
	sql      string
	question string
}

// Explainer describes SQL in plain language. Model answers are cached per
// provider, statement and question; failures fall back to a keyword
// breakdown of the statement.
type Explainer struct {
	provider ai.Provider
	builder  *prompt.Builder
	timeout  time.Duration

	mu    sync.Mutex
	cache map[explainKey]string
}

func NewExplainer(provider ai.Provider, builder *prompt.Builder, timeout time.Duration) *Explainer {
	return &Explainer{provider: provider, builder: builder, timeout: timeout, cache: map[explainKey]string{}}
}

// Explain returns markdown bullets describing sql.
func (e *Explainer) Explain(ctx context.Context, question, sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "Explanation unavailable."
	}
	key := explainKey{provider: e.provider.Name(), sql: sql, question: strings.TrimSpace(question)}
	e.mu.Lock()
	cached, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		return cached
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	reply, err := e.provider.Complete(ctx, e.builder.Explanation(question, sql), ai.Options{Purpose: "explain"})
	if err != nil || strings.TrimSpace(reply) == "" {
		applog.Debug("explanation unavailable, using keyword breakdown", "err", err)
		return KeywordExplanation(sql)
	}

	text := bullets(reply)
	e.mu.Lock()
	e.cache[key] = text
	e.mu.Unlock()
	return text
}

// bullets normalises a reply to at most maxExplanationBullets "- " lines.
func bullets(reply string) string {
	var lines []string
	for _, ln := range strings.Split(reply, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	hasBullets := false
	for _, ln := range lines {
		if strings.HasPrefix(ln, "- ") {
			hasBullets = true
			break
		}
	}
	if !hasBullets {
		for i := range lines {
			lines[i] = "- " + lines[i]
		}
	}
	if len(lines) > maxExplanationBullets {
		lines = lines[:maxExplanationBullets]
	}
	return strings.Join(lines, "\n")
}

var (
	explainClauses = []string{
		"LEFT JOIN", "RIGHT JOIN", "INNER JOIN", "OUTER JOIN", "GROUP BY", "ORDER BY",
		"SELECT", "FROM", "JOIN", "WHERE", "HAVING", "LIMIT",
	}
	reClause = regexp.MustCompile(`(?i)\b(` + strings.Join(explainClauses, "|") + `)\b`)

	clauseLabels = []struct{ clause, label string }{
		{"SELECT", "columns"},
		{"FROM", "tables"},
		{"JOIN", "with"},
		{"LEFT JOIN", "with"},
		{"RIGHT JOIN", "with"},
		{"INNER JOIN", "with"},
		{"OUTER JOIN", "with"},
		{"WHERE", "filter"},
		{"GROUP BY", "keys"},
		{"HAVING", "aggregated filter"},
		{"ORDER BY", "sort"},
		{"LIMIT", "top rows"},
	}
)

// KeywordExplanation breaks sql into its main clauses without a model.
func KeywordExplanation(sql string) string {
	locs := reClause.FindAllStringIndex(sql, -1)
	if len(locs) == 0 {
		return "Explanation unavailable."
	}
	parts := map[string]string{}
	for i, loc := range locs {
		clause := strings.ToUpper(strings.Join(strings.Fields(sql[loc[0]:loc[1]]), " "))
		end := len(sql)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.Join(strings.Fields(sql[loc[1]:end]), " ")
		if body == "" {
			continue
		}
		if prev, ok := parts[clause]; ok {
			body = prev + " " + body
		}
		parts[clause] = body
	}

	var out []string
	for _, cl := range clauseLabels {
		if body, ok := parts[cl.clause]; ok {
			out = append(out, "- **"+cl.clause+"** ("+cl.label+"): `"+body+"`")
		}
	}
	if len(out) == 0 {
		return "Explanation unavailable."
	}
	return strings.Join(out, "\n")
}
