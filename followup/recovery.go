package followup

import (
	"errors"
	"strings"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/sqlguard"
)

// Recovery suggests how to continue after a failed turn. It needs no
// model call.
func Recovery(err error, question string) []Suggestion {
	if err == nil {
		return nil
	}

	var pv *sqlguard.PolicyViolation
	if errors.As(err, &pv) {
		return []Suggestion{
			{Question: "Show the rows that would be affected", Why: "Preview the data with a read-only query"},
			{Question: "Count the rows matching the same condition", Why: pv.Keyword + " statements are disabled"},
		}
	}

	var ee *sqlguard.ExtractionError
	if errors.As(err, &ee) {
		return []Suggestion{
			{Question: "Show me all available tables", Why: "See what the database can answer"},
			{Question: "Rephrase: " + shorten(question), Why: "Name the table or column you mean"},
		}
	}

	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case ai.AuthFailure:
			return []Suggestion{{Question: "Check the API key for " + pe.Provider, Why: "The provider rejected the credentials"}}
		case ai.RateLimited, ai.Timeout, ai.Unavailable:
			return []Suggestion{{Question: question, Why: "The model provider was busy; try again shortly"}}
		}
		return []Suggestion{{Question: question, Why: "The provider returned an unusable reply; try again"}}
	}

	var xe *db.ExecutionError
	if errors.As(err, &xe) {
		switch xe.Kind {
		case db.Timeout:
			return []Suggestion{
				{Question: shorten(question) + " for the last 30 days", Why: "Narrow the time range"},
				{Question: "Show the top 10 only", Why: "Smaller results finish faster"},
			}
		case db.ConnectionLost:
			return []Suggestion{{Question: question, Why: "The database connection dropped; retry once it is back"}}
		case db.NotPermitted:
			return []Suggestion{{Question: "Show the rows that would be affected", Why: "Mutations are disabled"}}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "table") && strings.Contains(msg, "not found"),
		strings.Contains(msg, "table with name") && strings.Contains(msg, "does not exist"):
		return []Suggestion{
			{Question: "Show me all available tables", Why: "See what tables exist"},
			{Question: "Describe the database schema", Why: "Understand the structure"},
		}
	case strings.Contains(msg, "no such column"),
		strings.Contains(msg, "column") && (strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found")):
		return []Suggestion{{Question: "Show all columns in the tables", Why: "Check column names"}}
	case strings.Contains(msg, "syntax error"), strings.Contains(msg, "parser error"):
		return []Suggestion{{Question: "Explain this more simply: " + shorten(question), Why: "Rephrase the question"}}
	}
	return []Suggestion{{Question: "Show me all tables", Why: "Start with an overview"}}
}

func shorten(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > 60 {
		return string(r[:60]) + "…"
	}
	return s
}
