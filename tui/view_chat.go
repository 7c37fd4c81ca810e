// view_chat.go: conversation view.
//
// Questions are answered asynchronously by the pipeline; the transcript
// shows each turn's SQL, result or chart, and suggested follow-ups.
// Lines starting with ':' are app commands.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/followup"
	"github.com/DachengChen/askSQL/sqlguard"
	"github.com/DachengChen/askSQL/viz"
)

type chatEntry struct {
	question string
	resp     *assistant.Response
	notes    []string
}

type ChatView struct {
	pipeline *assistant.Pipeline
	session  *assistant.Session
	viewport *Viewport
	input    string
	entries  []chatEntry
	loading  bool
	cancel   context.CancelFunc
	// followIdx cycles the last answer's follow-ups into the input.
	followIdx int
	width     int
	height    int
}

func NewChatView(pipeline *assistant.Pipeline, session *assistant.Session) *ChatView {
	return &ChatView{
		pipeline: pipeline,
		session:  session,
		viewport: NewViewport(80, 20),
	}
}

func (v *ChatView) Name() string         { return "Chat" }
func (v *ChatView) WantsTextInput() bool { return true }

func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.SetSize(width-2, height-3)
	v.refresh(false)
}

func (v *ChatView) ShortHelp() []KeyBinding {
	if v.loading {
		return []KeyBinding{{Key: "Esc", Desc: "cancel"}}
	}
	return []KeyBinding{
		{Key: "Enter", Desc: "ask"},
		{Key: "Ctrl+F", Desc: "follow-up"},
		{Key: "Ctrl+E", Desc: "explain"},
		{Key: "Ctrl+L", Desc: "new conversation"},
		{Key: "PgUp/PgDn", Desc: "scroll"},
	}
}

func (v *ChatView) Init() tea.Cmd {
	v.refresh(true)
	return nil
}

func (v *ChatView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case AnswerMsg:
		v.loading = false
		v.cancel = nil
		v.followIdx = 0
		if n := len(v.entries); n > 0 && v.entries[n-1].resp == nil {
			v.entries[n-1].resp = msg.Response
		} else {
			v.entries = append(v.entries, chatEntry{question: msg.Response.Question, resp: msg.Response})
		}
		v.refresh(true)
		return v, nil

	case ExplainMsg:
		if n := len(v.entries); n > 0 {
			v.entries[n-1].notes = append(v.entries[n-1].notes, msg.Text)
		}
		v.refresh(true)
		return v, nil
	}
	return v, nil
}

func (v *ChatView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return v, v.submit()
	case "esc":
		if v.cancel != nil {
			v.cancel()
		}
	case "ctrl+f":
		v.cycleFollowUp()
	case "ctrl+e":
		return v, v.explainLast()
	case "ctrl+l":
		if v.loading {
			return v, nil
		}
		v.session.Reset()
		v.entries = nil
		v.refresh(true)
		return v, func() tea.Msg { return StatusMsg("started a new conversation") }
	case "ctrl+w":
		v.viewport.ToggleWrap()
	case "ctrl+k", "up":
		v.viewport.ScrollUp(1)
	case "ctrl+j", "down":
		v.viewport.ScrollDown(1)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	case "backspace":
		if r := []rune(v.input); len(r) > 0 {
			v.input = string(r[:len(r)-1])
		}
	case "ctrl+u":
		v.input = ""
	default:
		if msg.Type == tea.KeyRunes {
			v.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			v.input += " "
		}
	}
	return v, nil
}

func (v *ChatView) submit() tea.Cmd {
	text := strings.TrimSpace(v.input)
	if text == "" || v.loading {
		return nil
	}
	v.input = ""
	if cmd, ok := strings.CutPrefix(text, ":"); ok {
		return func() tea.Msg { return CommandMsg(cmd) }
	}

	v.entries = append(v.entries, chatEntry{question: text})
	v.loading = true
	v.refresh(true)

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	pipeline, session := v.pipeline, v.session
	return func() tea.Msg {
		defer cancel()
		resp, _ := pipeline.Ask(ctx, session, text)
		return AnswerMsg{Response: resp}
	}
}

// explainLast requests an explanation of the most recent SQL.
func (v *ChatView) explainLast() tea.Cmd {
	sql, question := v.lastSQL()
	if sql == "" {
		return func() tea.Msg { return StatusMsg("no query to explain yet") }
	}
	pipeline := v.pipeline
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return ExplainMsg{SQL: sql, Text: pipeline.Explain(ctx, question, sql)}
	}
}

func (v *ChatView) lastSQL() (sql, question string) {
	for i := len(v.entries) - 1; i >= 0; i-- {
		if r := v.entries[i].resp; r != nil && r.SQL != "" {
			return r.SQL, v.entries[i].question
		}
	}
	return "", ""
}

func (v *ChatView) cycleFollowUp() {
	n := len(v.entries)
	if n == 0 || v.entries[n-1].resp == nil {
		return
	}
	r := v.entries[n-1].resp
	options := r.FollowUps
	if r.Error != nil {
		options = r.Error.Recovery
	}
	if len(options) == 0 {
		return
	}
	v.input = options[v.followIdx%len(options)].Question
	v.followIdx++
}

// refresh re-renders the transcript; bottom scrolls to the newest turn.
func (v *ChatView) refresh(bottom bool) {
	v.viewport.SetContentLines(v.renderTranscript())
	if bottom {
		v.viewport.End()
	}
}

func (v *ChatView) renderTranscript() []string {
	if len(v.entries) == 0 {
		return []string{
			StyleTitle.Render("Ask a question about your data") + StyleDimmed.Render(" ("+v.pipeline.ProviderName()+")"),
			"",
			"  Show total sales by region",
			"  Which customers ordered the most last month?",
			"  How many orders are still pending?",
			"",
			StyleDimmed.Render("Follow-ups can refer to earlier answers, e.g. \"as a pie chart\" or \"only for 2024\"."),
			StyleDimmed.Render("Commands: :export <file.csv|file.parquet>  :explain  :reset  :refresh  :disconnect  :quit"),
		}
	}

	width := max(v.width-4, 20)
	var lines []string
	for i, e := range v.entries {
		last := i == len(v.entries)-1
		lines = append(lines, StylePrompt.Render("❯ ")+StyleQuestion.Render(e.question))
		switch {
		case e.resp == nil && last && v.loading:
			lines = append(lines, StyleDimmed.Render("  ⏳ Thinking..."))
		case e.resp != nil:
			lines = append(lines, v.renderResponse(e.resp, width, last)...)
		}
		for _, n := range e.notes {
			lines = append(lines, "", n)
		}
		lines = append(lines, "")
	}
	return lines
}

func (v *ChatView) renderResponse(r *assistant.Response, width int, last bool) []string {
	var lines []string
	if r.SQL != "" {
		lines = append(lines, StyleSQLBlock.Render(StyleSQL.Render(sqlguard.Prettify(r.SQL))))
	}
	if r.Error != nil {
		lines = append(lines, StyleError.Render("✗ "+r.Error.Message))
		if last {
			lines = append(lines, renderSuggestions("Try instead", r.Error.Recovery)...)
		}
		return lines
	}
	if r.Explanation != "" {
		lines = append(lines, StyleDimmed.Render(r.Explanation))
	}
	if r.Result != nil && r.Chart != nil {
		lines = append(lines, "", viz.Render(*r.Chart, r.Result, width))
	}
	if r.Notice != "" {
		lines = append(lines, StyleWarning.Render("⚠ "+r.Notice))
	}
	lines = append(lines, StyleDimmed.Render(fmt.Sprintf("  %s · %s", chartLabel(r), r.Duration.Round(time.Millisecond))))
	if last {
		lines = append(lines, renderSuggestions("You could also ask", r.FollowUps)...)
	}
	return lines
}

func chartLabel(r *assistant.Response) string {
	if r.Chart == nil {
		return "no result"
	}
	if r.Chart.Reason != "" {
		return string(r.Chart.Type) + ": " + r.Chart.Reason
	}
	return string(r.Chart.Type)
}

func renderSuggestions(title string, items []followup.Suggestion) []string {
	if len(items) == 0 {
		return nil
	}
	lines := []string{"", StyleDimmed.Render(title + " (Ctrl+F):")}
	for i, s := range items {
		lines = append(lines, StyleFollowUp.Render(fmt.Sprintf("  %d. %s", i+1, s.Question)))
	}
	return lines
}

func (v *ChatView) View() string {
	prompt := StylePrompt.Render("Ask> ") + v.input + "█"
	if v.loading {
		prompt = StylePrompt.Render("Ask> ") + StyleDimmed.Render("answering... (Esc to cancel)")
	}
	return lipgloss.JoinVertical(lipgloss.Left, prompt, "", v.viewport.Render())
}
