// view_history.go: conversation history and query log.
//
// The top section lists this session's turns (what the model sees as
// context); below it the persistent query log shows recent questions
// across sessions with their outcome.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/querylog"
)

const historyLogLimit = 50

// queryLog is satisfied by querylog.Store.
type queryLog interface {
	List(ctx context.Context, f querylog.Filter) ([]querylog.Entry, error)
	Stats(ctx context.Context) (querylog.Stats, error)
}

type HistoryView struct {
	session     *assistant.Session
	log         queryLog
	viewport    *Viewport
	entries     []querylog.Entry
	stats       querylog.Stats
	sessionOnly bool
	loading     bool
	err         error
	width       int
	height      int
}

// NewHistoryView shows session's turns; log may be nil when the query
// log is disabled.
func NewHistoryView(session *assistant.Session, log queryLog) *HistoryView {
	return &HistoryView{
		session:  session,
		log:      log,
		viewport: NewViewport(80, 20),
	}
}

func (v *HistoryView) Name() string         { return "History" }
func (v *HistoryView) WantsTextInput() bool { return false }

func (v *HistoryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.SetSize(width-2, height-2)
}

func (v *HistoryView) ShortHelp() []KeyBinding {
	scope := "this session"
	if v.sessionOnly {
		scope = "all sessions"
	}
	return []KeyBinding{
		{Key: "r", Desc: "refresh"},
		{Key: "s", Desc: scope},
		{Key: "↑/↓", Desc: "scroll"},
	}
}

func (v *HistoryView) Init() tea.Cmd {
	v.render()
	return v.fetchLog()
}

func (v *HistoryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)
	case QueryLogMsg:
		v.loading = false
		v.err = msg.Err
		v.entries = msg.Entries
		v.stats = msg.Stats
		v.render()
		return v, nil
	}
	return v, nil
}

func (v *HistoryView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "r":
		v.render()
		return v, v.fetchLog()
	case "s":
		v.sessionOnly = !v.sessionOnly
		return v, v.fetchLog()
	case "up", "k":
		v.viewport.ScrollUp(1)
	case "down", "j":
		v.viewport.ScrollDown(1)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	}
	return v, nil
}

func (v *HistoryView) fetchLog() tea.Cmd {
	if v.log == nil {
		return nil
	}
	v.loading = true
	log := v.log
	f := querylog.Filter{Limit: historyLogLimit}
	if v.sessionOnly {
		f.SessionID = v.session.ID
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		entries, err := log.List(ctx, f)
		if err != nil {
			return QueryLogMsg{Err: err}
		}
		st, err := log.Stats(ctx)
		return QueryLogMsg{Entries: entries, Stats: st, Err: err}
	}
}

func (v *HistoryView) render() {
	var lines []string

	turns := v.session.History.All()
	lines = append(lines, StyleTitle.Render(fmt.Sprintf("💬 This conversation (%d turns)", len(turns))))
	if len(turns) == 0 {
		lines = append(lines, StyleDimmed.Render("  No questions answered yet."))
	}
	for i, t := range turns {
		lines = append(lines, fmt.Sprintf("  %2d  %s  %s", i+1, StyleDimmed.Render(t.CreatedAt.Local().Format("15:04:05")), t.Question))
		lines = append(lines, "      "+StyleSQL.Render(flatten(t.SQL)))
		lines = append(lines, "      "+StyleDimmed.Render(firstLineOf(t.Summary)))
	}
	lines = append(lines, "")

	lines = append(lines, StyleTitle.Render("📜 Query log"))
	switch {
	case v.log == nil:
		lines = append(lines, StyleDimmed.Render("  Disabled (query_log.enabled is false or the log could not be opened)."))
	case v.err != nil:
		lines = append(lines, StyleError.Render("  ERROR: "+v.err.Error()))
	case v.loading:
		lines = append(lines, StyleDimmed.Render("  Loading..."))
	default:
		lines = append(lines, fmt.Sprintf("  %d questions · %s ok · %s failed · %s blocked · avg %.0f ms",
			v.stats.Total,
			StyleSuccess.Render(fmt.Sprint(v.stats.Succeeded)),
			StyleError.Render(fmt.Sprint(v.stats.Failed)),
			StyleWarning.Render(fmt.Sprint(v.stats.Blocked)),
			v.stats.AvgDurationMS), "")
		lines = append(lines, StyleDimmed.Render(fmt.Sprintf("  %-14s │ %-7s │ %6s │ %s", "Time", "Status", "Rows", "Question")))
		lines = append(lines, "  "+strings.Repeat("─", max(v.width-6, 10)))
		for _, e := range v.entries {
			lines = append(lines, fmt.Sprintf("  %-14s │ %s │ %6d │ %s",
				e.CreatedAt.Local().Format("01-02 15:04:05"), statusStyle(e.Status).Render(fmt.Sprintf("%-7s", e.Status)), e.RowCount, e.Question))
			if e.Error != "" {
				lines = append(lines, StyleDimmed.Render("                 └ "+firstLineOf(e.Error)))
			}
		}
	}
	v.viewport.SetContentLines(lines)
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case querylog.StatusSuccess:
		return StyleSuccess
	case querylog.StatusBlocked:
		return StyleWarning
	}
	return StyleError
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstLineOf(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func (v *HistoryView) View() string {
	return v.viewport.Render()
}
