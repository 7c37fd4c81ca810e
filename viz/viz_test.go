package viz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/db"
)

func result(cols []db.Column, rows ...[]any) *db.QueryResult {
	return &db.QueryResult{Columns: cols, Rows: rows, RowCount: len(rows)}
}

var (
	region = db.Column{Name: "region", Kind: db.KindText}
	total  = db.Column{Name: "total_sales", Kind: db.KindNumeric}
	month  = db.Column{Name: "month", Kind: db.KindTemporal}
	price  = db.Column{Name: "price", Kind: db.KindNumeric}
	qty    = db.Column{Name: "quantity", Kind: db.KindNumeric}
)

func TestSelect(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		result *db.QueryResult
		want   ChartSpec
	}{
		{"nil", nil, ChartSpec{Type: ChartTable}},
		{"zero rows", result([]db.Column{region, total}), ChartSpec{Type: ChartTable}},
		{"scalar", result([]db.Column{total}, []any{42.0}), ChartSpec{Type: ChartMetric, Y: "total_sales"}},
		{"category and number", result([]db.Column{region, total}, []any{"north", 1.0}, []any{"south", 2.0}),
			ChartSpec{Type: ChartBar, X: "region", Y: "total_sales"}},
		{"number then category", result([]db.Column{total, region}, []any{1.0, "north"}, []any{2.0, "south"}),
			ChartSpec{Type: ChartBar, X: "region", Y: "total_sales"}},
		{"time and number", result([]db.Column{month, total}, []any{jan, 1.0}, []any{jan.AddDate(0, 1, 0), 2.0}),
			ChartSpec{Type: ChartLine, X: "month", Y: "total_sales"}},
		{"increasing numbers", result([]db.Column{qty, price}, []any{1.0, 9.0}, []any{2.0, 3.0}, []any{3.0, 5.0}),
			ChartSpec{Type: ChartLine, X: "quantity", Y: "price"}},
		{"unordered numbers", result([]db.Column{qty, price}, []any{3.0, 9.0}, []any{1.0, 3.0}, []any{2.0, 5.0}),
			ChartSpec{Type: ChartScatter, X: "quantity", Y: "price"}},
		{"three columns", result([]db.Column{region, month, total}, []any{"n", jan, 1.0}), ChartSpec{Type: ChartTable}},
		{"two text columns", result([]db.Column{region, {Name: "name", Kind: db.KindText}}, []any{"n", "a"}), ChartSpec{Type: ChartTable}},
		{"unknown kinds", result([]db.Column{{Name: "a"}, {Name: "b"}}, []any{nil, nil}), ChartSpec{Type: ChartTable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.result)
			assert.Equal(t, tt.want.Type, got.Type)
			assert.Equal(t, tt.want.X, got.X)
			assert.Equal(t, tt.want.Y, got.Y)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestSelectForHonoursRequestedChart(t *testing.T) {
	r := result([]db.Column{region, total}, []any{"north", 1.0}, []any{"south", 2.0})

	assert.Equal(t, ChartPie, SelectFor("total sales by region as a pie chart", r).Type)
	assert.Equal(t, ChartTable, SelectFor("show it as a table", r).Type)
	assert.Equal(t, ChartBar, SelectFor("Show total sales by region", r).Type)
	// A scatter plot needs two numeric columns.
	assert.Equal(t, ChartBar, SelectFor("scatter plot of sales by region", r).Type)
}

func TestCoercePicksColumnsFromWideResults(t *testing.T) {
	r := result([]db.Column{{Name: "id", Kind: db.KindNumeric}, region, total}, []any{1.0, "north", 5.0})
	spec, ok := Coerce(r, ChartBar)
	require.True(t, ok)
	assert.Equal(t, "region", spec.X)
	assert.Equal(t, "id", spec.Y)
}

func TestDetectRequested(t *testing.T) {
	assert.Equal(t, ChartPie, DetectRequested("Show that as a Pie chart"))
	assert.Equal(t, ChartPie, DetectRequested("donut of orders by status"))
	assert.Equal(t, ChartLine, DetectRequested("monthly revenue trend"))
	assert.Equal(t, ChartBar, DetectRequested("bar charts please"))
	assert.Equal(t, ChartScatter, DetectRequested("scatterplot price vs quantity"))
	assert.Equal(t, ChartType(""), DetectRequested("pieces sold per store"))
	assert.Equal(t, ChartType(""), DetectRequested("Show total sales by region"))
}

func TestIsChartFollowUp(t *testing.T) {
	assert.True(t, IsChartFollowUp("show that as a pie chart"))
	assert.True(t, IsChartFollowUp("Plot the previous result"))
	assert.True(t, IsChartFollowUp("display as bar graph"))
	assert.False(t, IsChartFollowUp("Show total sales by region"))
	assert.False(t, IsChartFollowUp("plot revenue by month"))
	assert.False(t, IsChartFollowUp("what is it?"))
	assert.False(t, IsChartFollowUp("Show monthly revenue as a line chart"))
	assert.False(t, IsChartFollowUp("show that as a pie chart by month"))
	assert.False(t, IsChartFollowUp("make a bar chart of orders per customer"))
	assert.True(t, IsChartFollowUp("Can you show the same data as a line chart instead?"))
}

func TestRender(t *testing.T) {
	r := result([]db.Column{region, total}, []any{"north", 120.0}, []any{"south", 80.0})

	bar := Render(Select(r), r, 60)
	assert.Contains(t, bar, "total_sales by region")
	assert.Contains(t, bar, "north")
	assert.Contains(t, bar, "█")
	assert.Contains(t, bar, "120")

	pie, _ := Coerce(r, ChartPie)
	assert.Contains(t, Render(pie, r, 60), "60.0%")

	metric := result([]db.Column{total}, []any{42.0})
	assert.Contains(t, Render(Select(metric), metric, 60), "42")

	table := RenderTable(r, 60)
	assert.Contains(t, table, "region")
	assert.Contains(t, table, "(2 row(s))")

	points := result([]db.Column{qty, price}, []any{1.0, 2.0}, []any{2.0, 4.0})
	assert.Contains(t, Render(Select(points), points, 40), "•")

	assert.Contains(t, Render(Select(nil), nil, 40), "(no rows)")
}
