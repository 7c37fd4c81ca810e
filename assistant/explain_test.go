package assistant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/prompt"
)

type countingExplainer struct {
	calls int
	reply string
	err   error
}

func (c *countingExplainer) Name() string { return "counting" }

func (c *countingExplainer) Complete(context.Context, []ai.Message, ai.Options) (string, error) {
	c.calls++
	return c.reply, c.err
}

func TestExplainerCachesModelAnswers(t *testing.T) {
	model := &countingExplainer{reply: "Selects regions\nSums amounts"}
	e := NewExplainer(model, prompt.NewBuilder(prompt.Options{}), 0)

	first := e.Explain(context.Background(), "sales by region", "SELECT region FROM sales")
	second := e.Explain(context.Background(), "sales by region", " SELECT region FROM sales ")

	assert.Equal(t, "- Selects regions\n- Sums amounts", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls)
}

func TestExplainerFallsBackToKeywords(t *testing.T) {
	model := &countingExplainer{err: &ai.ProviderError{Kind: ai.Unavailable}}
	e := NewExplainer(model, prompt.NewBuilder(prompt.Options{}), 0)

	got := e.Explain(context.Background(), "q", "SELECT region FROM sales WHERE amount > 10")
	assert.Contains(t, got, "**SELECT** (columns): `region`")
	assert.Contains(t, got, "**WHERE** (filter): `amount > 10`")
}

func TestKeywordExplanation(t *testing.T) {
	got := KeywordExplanation("select c.name, sum(o.total) from customers c left join orders o on o.customer_id = c.id group by c.name order by 2 desc limit 5")
	assert.Equal(t,
		"- **SELECT** (columns): `c.name, sum(o.total)`\n"+
			"- **FROM** (tables): `customers c`\n"+
			"- **LEFT JOIN** (with): `orders o on o.customer_id = c.id`\n"+
			"- **GROUP BY** (keys): `c.name`\n"+
			"- **ORDER BY** (sort): `2 desc`\n"+
			"- **LIMIT** (top rows): `5`",
		got)
	assert.Equal(t, "Explanation unavailable.", KeywordExplanation("VACUUM"))
}
