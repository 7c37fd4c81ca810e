package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "sql fence with prose",
			in:   "Here is the query:\n```sql\nSELECT region, SUM(amount) AS total_sales\nFROM sales\nGROUP BY region;\n```\nIt sums sales per region.",
			want: "SELECT region, SUM(amount) AS total_sales\nFROM sales\nGROUP BY region",
		},
		{
			name: "tagged fence wins over earlier untagged one",
			in:   "```\nnot sql at all\n```\n```postgresql\nSELECT 1\n```",
			want: "SELECT 1",
		},
		{
			name: "untagged fence",
			in:   "```\nWITH t AS (SELECT 1 AS x) SELECT x FROM t\n```",
			want: "WITH t AS (SELECT 1 AS x) SELECT x FROM t",
		},
		{
			name: "bare sql",
			in:   "SELECT * FROM customers;;",
			want: "SELECT * FROM customers",
		},
		{
			name: "prose then statement then prose",
			in:   "Sure! The answer is below.\nselect count(*) from orders\n\nThis counts orders.",
			want: "select count(*) from orders",
		},
		{
			name: "only the first statement",
			in:   "```sql\nSELECT 1; DROP TABLE users;\n```",
			want: "SELECT 1",
		},
		{
			name: "semicolon inside a literal",
			in:   "SELECT 'a;b' AS s; SELECT 2",
			want: "SELECT 'a;b' AS s",
		},
		{
			name: "json payload",
			in:   `{"sql": "SELECT name FROM products", "explanation": "lists products"}`,
			want: "SELECT name FROM products",
		},
		{
			name: "fenced json payload",
			in:   "```json\n{\"query\": \"SELECT 3\"}\n```",
			want: "SELECT 3",
		},
		{
			name: "sentence starting with a verb before the statement",
			in:   "With the sales table you can group by region.\n\nSELECT region, SUM(amount) FROM sales GROUP BY region;",
			want: "SELECT region, SUM(amount) FROM sales GROUP BY region",
		},
		{
			name: "lead-in sentence ending in a colon",
			in:   "Show totals per region using this query:\n\nSELECT region, SUM(amount) FROM sales GROUP BY region",
			want: "SELECT region, SUM(amount) FROM sales GROUP BY region",
		},
		{
			name: "common table expression in prose",
			in:   "Use a CTE.\nWITH t AS (SELECT 1 AS x) SELECT x FROM t",
			want: "WITH t AS (SELECT 1 AS x) SELECT x FROM t",
		},
		{
			name: "leading comment kept",
			in:   "```sql\n-- totals\nSELECT 4\n```",
			want: "-- totals\nSELECT 4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFailures(t *testing.T) {
	for _, in := range []string{
		"",
		"   ",
		"I am not able to help with that.",
		"```python\nprint('hi')\n```",
		"```sql\n-- nothing here\n```",
		"Show me what you need and I will help.",
		"Values matter here: create a report first.",
	} {
		_, err := Extract(in)
		var ee *ExtractionError
		require.ErrorAs(t, err, &ee, "input %q", in)
	}
}

func TestExtractMissing(t *testing.T) {
	_, err := Extract("MISSING: there is no table with employee salaries\nSorry.")
	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "model could not answer: there is no table with employee salaries", ee.Reason)
}

func TestDefaultPolicyBlocksMutations(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		sql     string
		keyword string
	}{
		{"DELETE FROM customers", "DELETE"},
		{"delete from customers", "DELETE"},
		{"drop table sales", "DROP"},
		{"WITH x AS (SELECT 1) UPDATE t SET a = 1", "UPDATE"},
		{"Alter Table t add column c int", "ALTER"},
		{"TRUNCATE orders", "TRUNCATE"},
		{"SELECT * FROM t FOR UPDATE", "UPDATE"},
	}
	for _, tt := range tests {
		err := p.Validate(tt.sql)
		var pv *PolicyViolation
		require.ErrorAs(t, err, &pv, tt.sql)
		assert.Equal(t, tt.keyword, pv.Keyword, tt.sql)
		assert.Contains(t, err.Error(), tt.keyword)
	}
}

func TestPolicyMatchesWholeTokensOnly(t *testing.T) {
	p := DefaultPolicy()
	for _, sql := range []string{
		"SELECT updated_at, deleted FROM accounts",
		"SELECT * FROM drop_zones",
		"SELECT 'DELETE FROM users' AS prank",
		`SELECT "update" FROM audit`,
		"SELECT 1 -- drop table users",
		"SELECT /* truncate */ 1",
		"SELECT $$ alter $$",
		"SELECT e'it\\'s delete'",
	} {
		assert.NoError(t, p.Validate(sql), sql)
	}
}

func TestAllowMutations(t *testing.T) {
	p := NewPolicy(true, nil)
	assert.NoError(t, p.Validate("DELETE FROM customers WHERE id = 1"))

	var ee *ExtractionError
	assert.ErrorAs(t, p.Validate("  -- only a comment"), &ee)
}

func TestCustomBlockedList(t *testing.T) {
	p := NewPolicy(false, []string{" grant ", "insert"})
	var pv *PolicyViolation
	require.ErrorAs(t, p.Validate("insert into t values (1)"), &pv)
	assert.Equal(t, "INSERT", pv.Keyword)
	assert.NoError(t, p.Validate("DELETE FROM t"), "custom list replaces the defaults")
}

func TestIsReadOnly(t *testing.T) {
	for _, sql := range []string{"SELECT 1", "  with t as (select 1) select * from t", "EXPLAIN SELECT 1", "(SELECT 1) UNION (SELECT 2)", "SHOW TABLES", "SELECT 'insert'"} {
		assert.True(t, IsReadOnly(sql), sql)
	}
	for _, sql := range []string{"INSERT INTO t VALUES (1)", "WITH d AS (DELETE FROM t RETURNING *) SELECT * FROM d", "CREATE TABLE t (a int)", "EXPLAIN ANALYZE DELETE FROM t", ""} {
		assert.False(t, IsReadOnly(sql), sql)
	}
	assert.True(t, IsRowReturning("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.False(t, IsRowReturning("SHOW TABLES"))
}

func TestCommentary(t *testing.T) {
	assert.Equal(t, "Sums sales per region.", Commentary("```sql\nSELECT 1\n```\nSums sales\nper region."))
	assert.Empty(t, Commentary("SELECT 1"))
}

func TestPrettify(t *testing.T) {
	got := Prettify("select region, sum(amount) as total from sales s left join regions r on r.id = s.region_id where s.amount > 0 group by region order by total desc limit 5")
	want := "SELECT region, SUM(amount) AS total\n" +
		"FROM sales s\n" +
		"LEFT JOIN regions r ON r.id = s.region_id\n" +
		"WHERE s.amount > 0\n" +
		"GROUP BY region\n" +
		"ORDER BY total DESC\n" +
		"LIMIT 5"
	assert.Equal(t, want, got)
}

func TestPrettifyKeepsLiteralsAndIndentsSubqueries(t *testing.T) {
	got := Prettify("select * from (select name from t where note = 'from here') sub")
	assert.Equal(t, "SELECT *\nFROM (\n  SELECT name\n  FROM t\n  WHERE note = 'from here') sub", got)
}

func TestStatements(t *testing.T) {
	assert.Equal(t, []string{"SELECT 1", "SELECT ';'"}, statements("SELECT 1; SELECT ';' ; -- tail"))
}
