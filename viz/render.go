package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/DachengChen/askSQL/db"
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	styleBar    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	styleMetric = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
	styleMetricValue = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

const (
	maxBars      = 20
	maxTableRows = 50
	plotHeight   = 10
	maxCellWidth = 40
)

// Render draws r in the terminal as described by spec, fitting width
// columns.
func Render(spec ChartSpec, r *db.QueryResult, width int) string {
	if width < 20 {
		width = 20
	}
	if r.Empty() {
		if r != nil && r.Status != "" {
			return styleDim.Render(r.Status)
		}
		return styleDim.Render("(no rows)")
	}

	x, y := columnIndex(r, spec.X), columnIndex(r, spec.Y)
	switch spec.Type {
	case ChartMetric:
		if y < 0 {
			y = 0
		}
		return renderMetric(r.Columns[y].Name, r.Rows[0][y])
	case ChartBar:
		if x >= 0 && y >= 0 {
			return renderBars(spec, r, x, y, width, false)
		}
	case ChartPie:
		if x >= 0 && y >= 0 {
			return renderBars(spec, r, x, y, width, true)
		}
	case ChartLine, ChartScatter:
		if x >= 0 && y >= 0 {
			return renderPlot(spec, r, x, y, width)
		}
	}
	return RenderTable(r, width)
}

func columnIndex(r *db.QueryResult, name string) int {
	if name == "" {
		return -1
	}
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func renderMetric(label string, v any) string {
	body := styleDim.Render(label) + "\n" + styleMetricValue.Render(db.FormatValue(v))
	return styleMetric.Render(body)
}

// renderBars draws horizontal bars. As a pie, each bar shows its share of
// the total instead of the raw value.
func renderBars(spec ChartSpec, r *db.QueryResult, x, y, width int, share bool) string {
	rows := r.Rows
	if len(rows) > maxBars {
		rows = rows[:maxBars]
	}

	labels := make([]string, len(rows))
	values := make([]float64, len(rows))
	labelWidth, maxVal, total := 0, 0.0, 0.0
	for i, row := range rows {
		labels[i] = ansi.Truncate(db.FormatValue(row[x]), 20, "…")
		labelWidth = max(labelWidth, lipgloss.Width(labels[i]))
		values[i], _ = db.ToFloat(row[y])
		maxVal = math.Max(maxVal, math.Abs(values[i]))
		total += math.Abs(values[i])
	}

	barSpace := width - labelWidth - 16
	if barSpace < 5 {
		barSpace = 5
	}

	var sb strings.Builder
	sb.WriteString(styleTitle.Render(spec.Title) + "\n")
	for i := range rows {
		n := 0
		if maxVal > 0 {
			n = int(math.Round(math.Abs(values[i]) / maxVal * float64(barSpace)))
		}
		value := db.FormatValue(values[i])
		if share && total > 0 {
			value = fmt.Sprintf("%.1f%%", math.Abs(values[i])/total*100)
		}
		fmt.Fprintf(&sb, "%s │%s %s\n",
			padRight(labels[i], labelWidth),
			styleBar.Render(strings.Repeat("█", n)),
			value)
	}
	if len(r.Rows) > maxBars {
		sb.WriteString(styleDim.Render(fmt.Sprintf("… %d more", len(r.Rows)-maxBars)) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderPlot draws points on a character grid. Temporal x values are
// spread evenly in row order.
func renderPlot(spec ChartSpec, r *db.QueryResult, x, y, width int) string {
	plotWidth := width - 12
	if plotWidth < 10 {
		plotWidth = 10
	}

	type point struct{ x, y float64 }
	var pts []point
	for i, row := range r.Rows {
		yv, ok := db.ToFloat(row[y])
		if !ok {
			continue
		}
		xv, ok := db.ToFloat(row[x])
		if !ok {
			xv = float64(i)
		}
		pts = append(pts, point{xv, yv})
	}
	if len(pts) == 0 {
		return RenderTable(r, width)
	}

	minX, maxX, minY, maxY := pts[0].x, pts[0].x, pts[0].y, pts[0].y
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}

	grid := make([][]rune, plotHeight)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", plotWidth))
	}
	mark := '•'
	if spec.Type == ChartScatter {
		mark = '·'
	}
	for _, p := range pts {
		col, row := 0, plotHeight-1
		if maxX > minX {
			col = int((p.x - minX) / (maxX - minX) * float64(plotWidth-1))
		}
		if maxY > minY {
			row = plotHeight - 1 - int((p.y-minY)/(maxY-minY)*float64(plotHeight-1))
		}
		grid[row][col] = mark
	}

	var sb strings.Builder
	sb.WriteString(styleTitle.Render(spec.Title) + "\n")
	for i, line := range grid {
		label := ""
		switch i {
		case 0:
			label = db.FormatValue(maxY)
		case plotHeight - 1:
			label = db.FormatValue(minY)
		}
		fmt.Fprintf(&sb, "%10s ┤%s\n", ansi.Truncate(label, 10, ""), styleBar.Render(string(line)))
	}
	sb.WriteString(strings.Repeat(" ", 11) + "└" + strings.Repeat("─", plotWidth) + "\n")
	first := db.FormatValue(r.Rows[0][x])
	last := db.FormatValue(r.Rows[len(r.Rows)-1][x])
	gap := plotWidth - lipgloss.Width(first) - lipgloss.Width(last)
	if gap < 1 {
		gap = 1
	}
	sb.WriteString(strings.Repeat(" ", 12) + styleDim.Render(first+strings.Repeat(" ", gap)+last))
	return sb.String()
}

// RenderTable draws an aligned table of the first rows of r.
func RenderTable(r *db.QueryResult, width int) string {
	if r.Empty() {
		return styleDim.Render("(no rows)")
	}
	rows := r.Rows
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}

	cells := make([][]string, len(rows))
	widths := make([]int, len(r.Columns))
	for i, c := range r.Columns {
		widths[i] = min(lipgloss.Width(c.Name), maxCellWidth)
	}
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			s := strings.ReplaceAll(db.FormatValue(v), "\n", " ")
			s = ansi.Truncate(s, maxCellWidth, "…")
			cells[i][j] = s
			widths[j] = max(widths[j], lipgloss.Width(s))
		}
	}

	var sb strings.Builder
	header := make([]string, len(r.Columns))
	rules := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = styleHeader.Render(padRight(ansi.Truncate(c.Name, widths[i], "…"), widths[i]))
		rules[i] = strings.Repeat("─", widths[i])
	}
	sb.WriteString(ansi.Truncate(strings.Join(header, " │ "), width, "…") + "\n")
	sb.WriteString(styleDim.Render(ansi.Truncate(strings.Join(rules, "─┼─"), width, "")) + "\n")
	for _, row := range cells {
		line := make([]string, len(row))
		for j, s := range row {
			if r.Columns[j].Kind == db.KindNumeric {
				line[j] = padLeft(s, widths[j])
			} else {
				line[j] = padRight(s, widths[j])
			}
		}
		sb.WriteString(ansi.Truncate(strings.Join(line, " │ "), width, "…") + "\n")
	}
	footer := fmt.Sprintf("(%d row(s))", r.RowCount)
	if len(r.Rows) > maxTableRows {
		footer = fmt.Sprintf("(showing %d of %d row(s))", maxTableRows, r.RowCount)
	}
	if r.Truncated {
		footer += " more rows exist beyond the row limit"
	}
	sb.WriteString(styleDim.Render(footer))
	return sb.String()
}

func padRight(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func padLeft(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}
