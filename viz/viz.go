// Package viz picks a chart for a query result and renders it in the
// terminal. Selection is deterministic and never fails: anything that
// does not fit a chart shape is shown as a table.
package viz

import (
	"regexp"
	"strings"

	"github.com/DachengChen/askSQL/db"
)

// ChartType names a visualization.
type ChartType string

const (
	ChartTable   ChartType = "table"
	ChartMetric  ChartType = "metric"
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartScatter ChartType = "scatter"
	ChartPie     ChartType = "pie"
)

// ChartSpec tells the UI how to draw a result.
type ChartSpec struct {
	Type   ChartType `json:"type"`
	X      string    `json:"x,omitempty"`
	Y      string    `json:"y,omitempty"`
	Title  string    `json:"title,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Select chooses a chart from the shape of the result alone.
func Select(r *db.QueryResult) ChartSpec {
	if r.Empty() {
		return tableSpec()
	}
	if len(r.Rows) == 1 && len(r.Columns) == 1 {
		return newSpec(ChartMetric, "", r.Columns[0].Name)
	}
	if len(r.Columns) != 2 {
		return tableSpec()
	}

	a, b := r.Columns[0], r.Columns[1]
	switch {
	case categorical(a.Kind) && b.Kind == db.KindNumeric:
		return newSpec(ChartBar, a.Name, b.Name)
	case a.Kind == db.KindNumeric && categorical(b.Kind):
		return newSpec(ChartBar, b.Name, a.Name)
	case a.Kind == db.KindTemporal && b.Kind == db.KindNumeric:
		return newSpec(ChartLine, a.Name, b.Name)
	case a.Kind == db.KindNumeric && b.Kind == db.KindTemporal:
		return newSpec(ChartLine, b.Name, a.Name)
	case a.Kind == db.KindNumeric && b.Kind == db.KindNumeric:
		if increasing(r.Rows, 0) {
			return newSpec(ChartLine, a.Name, b.Name)
		}
		return newSpec(ChartScatter, a.Name, b.Name)
	}
	return tableSpec()
}

// SelectFor honours a chart type named in the question when the result
// can be drawn that way, and falls back to Select otherwise.
func SelectFor(question string, r *db.QueryResult) ChartSpec {
	want := DetectRequested(question)
	if want == "" || r.Empty() {
		return Select(r)
	}
	if spec, ok := Coerce(r, want); ok {
		return spec
	}
	return Select(r)
}

// Coerce draws r as chart type want if its columns allow it.
func Coerce(r *db.QueryResult, want ChartType) (ChartSpec, bool) {
	if r.Empty() {
		return ChartSpec{}, false
	}
	switch want {
	case ChartTable:
		return tableSpec(), true
	case ChartMetric:
		if len(r.Rows) == 1 && len(r.Columns) == 1 {
			return newSpec(ChartMetric, "", r.Columns[0].Name), true
		}
	case ChartBar, ChartPie:
		if x, y, ok := pickXY(r.Columns, db.KindText, db.KindBool, db.KindTemporal); ok {
			return newSpec(want, x, y), true
		}
	case ChartLine:
		if x, y, ok := pickXY(r.Columns, db.KindTemporal, db.KindNumeric, db.KindText); ok {
			return newSpec(want, x, y), true
		}
	case ChartScatter:
		if x, y, ok := pickXY(r.Columns, db.KindNumeric); ok {
			return newSpec(want, x, y), true
		}
	}
	return ChartSpec{}, false
}

// pickXY returns the first column whose kind is in xKinds, in preference
// order, and the first other numeric column.
func pickXY(cols []db.Column, xKinds ...db.ColumnKind) (string, string, bool) {
	for _, kind := range xKinds {
		for i, c := range cols {
			if c.Kind != kind {
				continue
			}
			for j, d := range cols {
				if j != i && d.Kind == db.KindNumeric {
					return c.Name, d.Name, true
				}
			}
		}
	}
	return "", "", false
}

func categorical(k db.ColumnKind) bool {
	return k == db.KindText || k == db.KindBool
}

// increasing reports whether column col is strictly increasing.
func increasing(rows [][]any, col int) bool {
	if len(rows) < 2 {
		return false
	}
	prev, ok := db.ToFloat(rows[0][col])
	if !ok {
		return false
	}
	for _, row := range rows[1:] {
		v, ok := db.ToFloat(row[col])
		if !ok || v <= prev {
			return false
		}
		prev = v
	}
	return true
}

func tableSpec() ChartSpec {
	return ChartSpec{Type: ChartTable, Reason: reason(ChartTable, "", "")}
}

func newSpec(t ChartType, x, y string) ChartSpec {
	title := y
	if x != "" {
		title = y + " by " + x
	}
	return ChartSpec{Type: t, X: x, Y: y, Title: title, Reason: reason(t, x, y)}
}

func reason(t ChartType, x, y string) string {
	switch t {
	case ChartMetric:
		return "A single value is shown as a metric."
	case ChartBar:
		return "A bar chart compares " + y + " across " + x + "."
	case ChartLine:
		return "A line chart shows " + y + " over an ordered " + x + "."
	case ChartScatter:
		return "A scatter plot shows the relationship between " + x + " and " + y + "."
	case ChartPie:
		return "A pie chart shows the share of " + y + " by " + x + "."
	}
	return "The result does not fit a chart shape, so it is shown as a table."
}

var requestKeywords = []struct {
	chart ChartType
	words []string
}{
	{ChartPie, []string{"pie", "donut", "doughnut"}},
	{ChartLine, []string{"line chart", "line graph", "line plot", "linegraph", "time series", "timeseries", "trend"}},
	{ChartBar, []string{"bar chart", "bar graph", "barplot", "bar plot"}},
	{ChartScatter, []string{"scatter", "scatterplot"}},
	{ChartTable, []string{"as a table", "in a table", "table view", "as table"}},
	{ChartMetric, []string{"as a metric", "single number"}},
}

// DetectRequested returns the chart type a question explicitly asks for,
// or "" when it names none.
func DetectRequested(question string) ChartType {
	q := " " + strings.Join(wordsOf(question), " ") + " "
	for _, rk := range requestKeywords {
		for _, w := range rk.words {
			if strings.Contains(q, " "+w+" ") || strings.Contains(q, " "+w+"s ") {
				return rk.chart
			}
		}
	}
	return ""
}

var (
	chartWords     = []string{"chart", "graph", "plot", "visualize", "visualise", "visualization", "histogram", "pie", "scatter", "donut"}
	referenceWords = []string{"previous", "previously", "that", "those", "it", "them", "this", "these", "above", "same", "last"}
	// Words that may appear in a re-chart request without asking for data.
	chartVocabulary = []string{
		"show", "display", "draw", "render", "make", "turn", "put", "redraw", "replot",
		"as", "into", "in", "a", "an", "the", "of", "to", "with", "instead", "again", "please", "now",
		"can", "could", "would", "you", "me", "i", "like", "let", "s", "see", "use", "using", "try",
		"result", "results", "data", "answer", "output", "query", "one",
		"bar", "line", "doughnut", "scatterplot", "barplot", "linegraph", "table", "view", "metric",
		"single", "number", "time", "series", "timeseries", "type", "kind", "format", "style",
	}
	reWord = regexp.MustCompile(`[a-z0-9]+`)
)

func wordsOf(s string) []string {
	return reWord.FindAllString(strings.ToLower(s), -1)
}

// IsChartFollowUp reports whether the question only asks to re-draw the
// previous result ("show that as a pie chart") instead of asking for new
// data. Any word outside chart vocabulary, such as a metric or a
// dimension, makes it a new question.
func IsChartFollowUp(question string) bool {
	known := func(w string, set []string) bool {
		for _, s := range set {
			if w == s || w == s+"s" {
				return true
			}
		}
		return false
	}
	charted := false
	for _, w := range wordsOf(question) {
		switch {
		case known(w, chartWords):
			charted = true
		case known(w, referenceWords), known(w, chartVocabulary):
		default:
			return false
		}
	}
	return charted
}
