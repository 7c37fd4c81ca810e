package conversation

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/db"
)

func questions(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Question
	}
	return out
}

func TestRecentKeepsMostRecentInOrder(t *testing.T) {
	var h History
	for i := 1; i <= 5; i++ {
		h.Append(NewTurn(fmt.Sprintf("q%d", i), "SELECT 1", nil))
	}

	assert.Equal(t, []string{"q3", "q4", "q5"}, questions(h.Recent(3)))
	assert.Empty(t, h.Recent(0))
	assert.Empty(t, h.Recent(-1))
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, questions(h.All()))
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, questions(h.Recent(10)))
	assert.Equal(t, 5, h.Len())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "q5", last.Question)
}

func TestRecentReturnsCopies(t *testing.T) {
	var h History
	h.Append(NewTurn("q1", "SELECT 1", nil))

	got := h.Recent(1)
	got[0].Question = "changed"
	assert.Equal(t, "q1", h.Recent(1)[0].Question)
}

func TestReset(t *testing.T) {
	var h History
	h.Append(NewTurn("q1", "SELECT 1", nil))
	h.Reset()

	assert.Zero(t, h.Len())
	assert.Empty(t, h.Recent(3))
	_, ok := h.Last()
	assert.False(t, ok)
}

func TestConcurrentAppend(t *testing.T) {
	var h History
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Append(NewTurn(fmt.Sprint(i), "SELECT 1", nil))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, h.Len())
}

func TestSummarize(t *testing.T) {
	r := &db.QueryResult{
		Columns:   []db.Column{{Name: "region"}, {Name: "total"}},
		Rows:      [][]any{{"north", 10.0}, {"south", 7.5}, {"east", nil}, {"west", 1.0}},
		RowCount:  4,
		Truncated: true,
	}
	assert.Equal(t, "4 row(s) (truncated), columns: region, total\nnorth | 10\nsouth | 7.5\neast | NULL\n... 1 more", Summarize(r))
	assert.Equal(t, "3 row(s) affected", Summarize(&db.QueryResult{Status: "3 row(s) affected"}))
	assert.Equal(t, "no result", Summarize(nil))
}

func TestNewTurnCarriesResultShape(t *testing.T) {
	r := &db.QueryResult{Columns: []db.Column{{Name: "n"}}, Rows: [][]any{{1.0}}, RowCount: 1}
	turn := NewTurn("how many?", "SELECT count(*) AS n FROM t", r)

	assert.NotEmpty(t, turn.ID)
	assert.Equal(t, 1, turn.RowCount)
	assert.Contains(t, turn.Summary, "columns: n")
	assert.False(t, turn.CreatedAt.IsZero())
}
