// app.go is the top-level Bubble Tea model that orchestrates all views.
//
// Flow:
//  1. Start with ConnectView (connection form), unless a connection
//     was given on the command line
//  2. On successful connection → Chat, History and Schema tabs
//  3. :disconnect returns to the connection screen
//
// Key bindings:
//   - Tab / Shift+Tab cycle views when the view is not taking text
//   - F1..F3 jump to a view from anywhere
//   - `:` commands are typed into the chat input
//   - `?` toggles the help overlay outside text input
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/export"
)

const appVersion = "0.2.0"

const (
	TabChat = iota
	TabHistory
	TabSchema
)

// AppPhase tracks whether we're connecting or already connected.
type AppPhase int

const (
	PhaseConnect AppPhase = iota
	PhaseMain
)

// App is the root Bubble Tea model.
type App struct {
	phase       AppPhase
	connectView *ConnectView
	store       *config.ConnectionStore
	appConfig   *config.AppConfig
	autoConnect *config.Connection

	rt        *assistant.Runtime
	session   *assistant.Session
	conn      config.Connection
	views     []View
	activeTab int

	width     int
	height    int
	showHelp  bool
	statusMsg string
}

// NewApp creates the application starting with the connection screen.
func NewApp(store *config.ConnectionStore, appCfg *config.AppConfig) *App {
	return &App{
		phase:       PhaseConnect,
		connectView: NewConnectView(store, appCfg),
		store:       store,
		appConfig:   appCfg,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	if a.autoConnect != nil {
		a.connectView.connecting = true
		a.connectView.statusMsg = "Connecting to " + a.autoConnect.Display() + "..."
		return connectCmd(a.appConfig, *a.autoConnect)
	}
	return a.connectView.Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case ConnectedMsg:
		a.rt = msg.Runtime
		a.conn = msg.Conn
		a.session = a.rt.Sessions.Create()
		a.phase = PhaseMain
		a.connectView.connecting = false
		a.initViews()
		a.resize()
		applog.Event("tui", "connected", "target", msg.Conn.Display(), "session", a.session.ID)
		return a, a.views[a.activeTab].Init()

	case ConnectErrorMsg:
		updated, cmd := a.connectView.Update(msg)
		a.connectView = updated.(*ConnectView)
		return a, cmd

	case StatusMsg:
		a.statusMsg = string(msg)
		return a, clearStatusAfter(4 * time.Second)

	case clearStatusMsg:
		a.statusMsg = ""
		return a, nil

	case CommandMsg:
		return a, a.executeCommand(string(msg))

	case ExportedMsg:
		if msg.Err != nil {
			a.statusMsg = StyleError.Render("export failed: " + msg.Err.Error())
		} else {
			a.statusMsg = StyleSuccess.Render(fmt.Sprintf("exported %d rows to %s", msg.Rows, msg.Path))
		}
		return a, clearStatusAfter(6 * time.Second)
	}

	if a.phase == PhaseConnect {
		return a.updateConnect(msg)
	}
	return a.updateMain(msg)
}

func (a *App) resize() {
	// header(1) + border(2) + status(1)
	contentW := a.width - 2
	contentH := a.height - 4
	if a.phase == PhaseConnect {
		a.connectView.SetSize(contentW, contentH)
		return
	}
	for _, v := range a.views {
		v.SetSize(contentW, contentH-1)
	}
}

func (a *App) updateConnect(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+c" {
		return a, tea.Quit
	}
	updated, cmd := a.connectView.Update(msg)
	a.connectView = updated.(*ConnectView)
	return a, cmd
}

func (a *App) updateMain(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		return a.handleKey(k)
	}
	// Async results go to the view that understands them.
	var cmds []tea.Cmd
	for i, v := range a.views {
		if !accepts(v, msg) {
			continue
		}
		updated, cmd := v.Update(msg)
		a.views[i] = updated
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func accepts(v View, msg tea.Msg) bool {
	switch msg.(type) {
	case AnswerMsg, ExplainMsg:
		_, ok := v.(*ChatView)
		return ok
	case SchemaMsg:
		_, ok := v.(*SchemaView)
		return ok
	case QueryLogMsg:
		_, ok := v.(*HistoryView)
		return ok
	}
	return false
}

// initViews creates the main views after connection is established.
func (a *App) initViews() {
	var log queryLog
	if a.rt.Log != nil {
		log = a.rt.Log
	}
	a.views = []View{
		NewChatView(a.rt.Pipeline, a.session),
		NewHistoryView(a.session, log),
		NewSchemaView(a.rt.Schemas),
	}
	a.activeTab = TabChat
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "f1":
		return a.switchTab(TabChat)
	case "f2":
		return a.switchTab(TabHistory)
	case "f3":
		return a.switchTab(TabSchema)
	}

	active := a.views[a.activeTab]
	if !active.WantsTextInput() {
		switch msg.String() {
		case "tab":
			return a.switchTab((a.activeTab + 1) % len(a.views))
		case "shift+tab":
			return a.switchTab((a.activeTab + len(a.views) - 1) % len(a.views))
		case "?":
			a.showHelp = !a.showHelp
			return a, nil
		case "q":
			return a, tea.Quit
		}
	}
	if a.showHelp && msg.String() == "esc" {
		a.showHelp = false
		return a, nil
	}

	updated, cmd := active.Update(msg)
	a.views[a.activeTab] = updated
	return a, cmd
}

func (a *App) switchTab(idx int) (tea.Model, tea.Cmd) {
	if idx < 0 || idx >= len(a.views) {
		return a, nil
	}
	a.activeTab = idx
	a.showHelp = false
	return a, a.views[idx].Init()
}

// executeCommand runs a `:` command.
func (a *App) executeCommand(input string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "q", "quit":
		return tea.Quit
	case "disconnect":
		a.disconnect()
		return nil
	case "help":
		a.showHelp = true
		return nil
	case "export":
		return a.exportLast(arg)
	case "explain":
		if chat, ok := a.views[TabChat].(*ChatView); ok {
			return chat.explainLast()
		}
	case "reset":
		a.session.Reset()
		if chat, ok := a.views[TabChat].(*ChatView); ok {
			chat.entries = nil
			chat.refresh(true)
		}
		return status("started a new conversation")
	case "refresh":
		a.activeTab = TabSchema
		if sv, ok := a.views[TabSchema].(*SchemaView); ok {
			return sv.fetch(true)
		}
	case "history":
		_, cmd := a.switchTab(TabHistory)
		return cmd
	case "schema":
		_, cmd := a.switchTab(TabSchema)
		return cmd
	default:
		return status("unknown command: " + name)
	}
	return nil
}

func (a *App) exportLast(path string) tea.Cmd {
	if path == "" {
		return status("usage: :export <file.csv|file.parquet>")
	}
	result, ok := a.session.LastResult()
	if !ok {
		return status("nothing to export yet")
	}
	return func() tea.Msg {
		err := export.ToFile(path, result)
		return ExportedMsg{Path: path, Rows: result.RowCount, Err: err}
	}
}

func (a *App) disconnect() {
	if a.rt != nil {
		if a.session != nil {
			a.rt.Sessions.Delete(a.session.ID)
		}
		a.rt.Close()
		applog.Event("tui", "disconnected", "target", a.conn.Display())
	}
	a.rt = nil
	a.session = nil
	a.phase = PhaseConnect
	a.views = nil
	a.activeTab = 0
	a.statusMsg = ""
	a.resize()
}

type clearStatusMsg struct{}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}

func status(s string) tea.Cmd {
	return func() tea.Msg { return StatusMsg(s) }
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "loading..."
	}
	header := a.renderHeader()
	frame := StyleBorder.Width(a.width - 2).Height(max(a.height-4, 0))

	if a.phase == PhaseConnect {
		return lipgloss.JoinVertical(lipgloss.Left, header, frame.Render(a.connectView.View()), a.renderHelpBar(a.connectView.ShortHelp()))
	}

	var body string
	if a.showHelp {
		body = a.renderHelp()
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, a.renderTabBar(), a.views[a.activeTab].View())
	}
	return header + "\n" + frame.Render(body) + "\n" + a.renderStatusBar()
}

// renderHeader draws logo, version and the active connection.
func (a *App) renderHeader() string {
	left := StyleBold.Render("🔎 askSQL") + StyleDimmed.Render(" v"+appVersion)
	if a.phase == PhaseMain && a.rt != nil {
		left += StyleSuccess.Render(fmt.Sprintf("  ⚡ %s", a.conn.Display())) +
			StyleDimmed.Render("  · "+a.rt.Pipeline.ProviderName())
	}
	right := StyleDimmed.Render(fmt.Sprintf("%d×%d", a.width, a.height))
	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return lipgloss.NewStyle().Width(a.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (a *App) renderTabBar() string {
	var tabs []string
	for i, v := range a.views {
		label := fmt.Sprintf("F%d %s", i+1, v.Name())
		if i == a.activeTab {
			tabs = append(tabs, StyleTabActive.Render(label))
		} else {
			tabs = append(tabs, StyleTabInactive.Render(label))
		}
	}
	return strings.Join(tabs, StyleDimmed.Render("│"))
}

func (a *App) renderHelpBar(items []KeyBinding) string {
	parts := make([]string, len(items))
	for i, h := range items {
		parts[i] = StyleHelpKey.Render(h.Key) + " " + StyleHelpDesc.Render(h.Desc)
	}
	return lipgloss.NewStyle().Width(a.width).Padding(0, 1).Render(strings.Join(parts, StyleDimmed.Render("  │  ")))
}

func (a *App) renderStatusBar() string {
	if a.statusMsg != "" {
		return StyleStatusBar.Width(a.width).Render(a.statusMsg)
	}
	items := append(a.views[a.activeTab].ShortHelp(),
		KeyBinding{Key: "F1-F3", Desc: "views"},
		KeyBinding{Key: "Ctrl+C", Desc: "quit"})
	return a.renderHelpBar(items)
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("⌨ askSQL Keyboard Shortcuts"),
		"",
		StyleHelpKey.Render("F1 / F2 / F3") + "     Chat, History, Schema",
		StyleHelpKey.Render("Tab / Shift+Tab") + "  Next / previous view (outside chat)",
		StyleHelpKey.Render("?") + "                Toggle this help (outside chat)",
		StyleHelpKey.Render("Ctrl+C") + "           Quit",
		"",
		StyleTitle.Render("Chat"),
		"",
		StyleHelpKey.Render("Enter") + "            Ask the question",
		StyleHelpKey.Render("Esc") + "              Cancel the running question",
		StyleHelpKey.Render("Ctrl+F") + "           Put the next suggested follow-up in the input",
		StyleHelpKey.Render("Ctrl+E") + "           Explain the last query",
		StyleHelpKey.Render("Ctrl+L") + "           Start a new conversation",
		StyleHelpKey.Render("Ctrl+W") + "           Toggle line wrapping",
		"",
		StyleTitle.Render("Commands (type in chat)"),
		"",
		StyleHelpKey.Render(":export <file>") + "   Save the last result as .csv or .parquet",
		StyleHelpKey.Render(":explain") + "         Explain the last query",
		StyleHelpKey.Render(":reset") + "           Start a new conversation",
		StyleHelpKey.Render(":refresh") + "         Reload the schema",
		StyleHelpKey.Render(":disconnect") + "      Return to the connection screen",
		StyleHelpKey.Render(":quit") + "            Quit",
		"",
		StyleDimmed.Render("Press Esc or ? to close"),
	}
	return lipgloss.NewStyle().
		Width(a.width-4).
		Height(a.height-5).
		Padding(1, 2).
		Render(strings.Join(help, "\n"))
}
