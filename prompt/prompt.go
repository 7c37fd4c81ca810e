// Package prompt assembles the messages sent to the model provider.
// Building a prompt has no side effects.
package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/conversation"
	"github.com/DachengChen/askSQL/sqlguard"
)

// Options controls translation prompts.
type Options struct {
	MaxHistoryTurns     int
	IncludeExplanations bool
	Dialect             string
}

// Builder renders prompts for one dialect.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.Dialect == "" {
		opts.Dialect = "PostgreSQL"
	}
	return &Builder{opts: opts}
}

const translationRules = `You translate questions about a %[1]s database into SQL.

Rules:
- Answer with exactly one %[1]s statement inside a fenced code block tagged sql.
- Use only tables and columns listed in the schema below.
- Alias every aggregate with a readable snake_case name (total_sales, order_count).
- Infer joins from the foreign keys listed in the schema.
- When the question refers to an earlier answer, refine the previous SQL instead of starting over.
- Prefer a small result: add ORDER BY and LIMIT when the question asks for top or bottom items.
- Do not modify data unless the question explicitly asks for it.
- If the schema cannot answer the question, reply with a single line: MISSING: <what is missing>.`

const explainRule = "\n- After the code block, add one sentence explaining what the query returns."
const sqlOnlyRule = "\n- Reply with the code block only, no commentary."

// Translation builds the messages asking for SQL that answers question.
// The most recent MaxHistoryTurns turns are included oldest first.
func (b *Builder) Translation(schema string, history []conversation.Turn, question string) []ai.Message {
	var sys strings.Builder
	fmt.Fprintf(&sys, translationRules, b.opts.Dialect)
	if b.opts.IncludeExplanations {
		sys.WriteString(explainRule)
	} else {
		sys.WriteString(sqlOnlyRule)
	}
	sys.WriteString("\n\n<schema>\n")
	sys.WriteString(strings.TrimSpace(Neutralize(schema)))
	sys.WriteString("\n</schema>")

	msgs := []ai.Message{{Role: ai.RoleSystem, Content: sys.String()}}

	if n := b.opts.MaxHistoryTurns; n > 0 {
		if len(history) > n {
			history = history[len(history)-n:]
		}
		for _, t := range history {
			answer := "```sql\n" + t.SQL + "\n```"
			if t.Summary != "" {
				answer += "\nResult: " + t.Summary
			}
			msgs = append(msgs,
				ai.Message{Role: ai.RoleUser, Content: wrapQuestion(t.Question)},
				ai.Message{Role: ai.RoleAssistant, Content: answer},
			)
		}
	}

	msgs = append(msgs, ai.Message{Role: ai.RoleUser, Content: wrapQuestion(question)})
	return msgs
}

func wrapQuestion(q string) string {
	return "<question>\n" + strings.TrimSpace(Neutralize(q)) + "\n</question>"
}

var delimiterTag = regexp.MustCompile(`(?i)<\s*(/?)\s*(schema|question)\s*>`)

// Neutralize rewrites delimiter tags inside untrusted text so it cannot
// open or close a delimited block.
func Neutralize(s string) string {
	return delimiterTag.ReplaceAllString(s, "[$1$2]")
}

const suggestionsSystem = `You are a data analyst assistant. Generate follow-up analytical questions the user might ask next.
Each suggestion must be concise, answerable on the same database, and reflect the user's intent.
Vary the angle: comparisons, breakdowns, trends, anomalies, filters and drill-downs.
Avoid duplicates and vague suggestions.
Return only JSON of the form {"suggestions":[{"question":"...","why":"..."}]}.`

type suggestionsRequest struct {
	OriginalQuestion string `json:"original_question"`
	LastSQL          string `json:"last_sql_query"`
	ResultSummary    string `json:"result_summary,omitempty"`
	MaxSuggestions   int    `json:"max_suggestions"`
}

// maxPromptSQL bounds how much SQL is echoed back to the model.
const maxPromptSQL = 4000

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Suggestions builds the JSON-mode request for n follow-up questions.
func (b *Builder) Suggestions(question, sql, summary string, n int) []ai.Message {
	payload, _ := json.Marshal(suggestionsRequest{
		OriginalQuestion: question,
		LastSQL:          clip(sql, maxPromptSQL),
		ResultSummary:    summary,
		MaxSuggestions:   n,
	})
	return []ai.Message{
		{Role: ai.RoleSystem, Content: suggestionsSystem},
		{Role: ai.RoleUser, Content: string(payload)},
	}
}

const explanationSystem = `You are a precise SQL expert. Explain the given SQL query to a business stakeholder.
- 5 to 8 markdown bullets starting with "- "
- Bold the SQL keywords you mention (**SELECT**, **JOIN**, **GROUP BY**)
- Tie clauses to the user's question and the tables and columns used
- Do not restate the whole query
Return only the bullets.`

// Explanation builds the request for a bullet-point explanation of sql.
func (b *Builder) Explanation(question, sql string) []ai.Message {
	payload, _ := json.Marshal(map[string]string{
		"user_question": question,
		"sql_query":     sqlguard.Prettify(sql),
	})
	return []ai.Message{
		{Role: ai.RoleSystem, Content: explanationSystem},
		{Role: ai.RoleUser, Content: string(payload)},
	}
}
