// Package conversation keeps the ordered turns of one session.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DachengChen/askSQL/db"
)

// Turn is one answered question. Turns are never modified after Append.
type Turn struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql"`
	Summary   string    `json:"summary,omitempty"`
	RowCount  int       `json:"row_count"`
	Truncated bool      `json:"truncated,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn stamps a turn with an ID and creation time.
func NewTurn(question, sql string, result *db.QueryResult) Turn {
	t := Turn{
		ID:        uuid.NewString(),
		Question:  question,
		SQL:       sql,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		t.Summary = Summarize(result)
		t.RowCount = result.RowCount
		t.Truncated = result.Truncated
	}
	return t
}

// History is the chronological list of turns of one session.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// Append records a turn at the end of the history.
func (h *History) Append(t Turn) {
	h.mu.Lock()
	h.turns = append(h.turns, t)
	h.mu.Unlock()
}

// Recent returns copies of the last limit turns, oldest first. A limit of
// zero or less returns no turns.
func (h *History) Recent(limit int) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if limit <= 0 {
		return []Turn{}
	}
	start := max(len(h.turns)-limit, 0)
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// All returns copies of every turn, oldest first.
func (h *History) All() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Last returns the most recent turn.
func (h *History) Last() (Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Reset drops every turn.
func (h *History) Reset() {
	h.mu.Lock()
	h.turns = nil
	h.mu.Unlock()
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

const summaryRows = 3

// Summarize describes a result compactly for later prompts: shape,
// column names and the first few rows.
func Summarize(r *db.QueryResult) string {
	if r == nil {
		return "no result"
	}
	if len(r.Columns) == 0 {
		if r.Status != "" {
			return r.Status
		}
		return "no rows returned"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d row(s)", r.RowCount)
	if r.Truncated {
		sb.WriteString(" (truncated)")
	}
	fmt.Fprintf(&sb, ", columns: %s", strings.Join(r.ColumnNames(), ", "))
	for i, row := range r.Rows {
		if i == summaryRows {
			fmt.Fprintf(&sb, "\n... %d more", len(r.Rows)-summaryRows)
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = db.FormatValue(v)
		}
		sb.WriteString("\n" + strings.Join(cells, " | "))
	}
	return sb.String()
}
