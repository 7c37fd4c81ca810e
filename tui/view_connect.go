// view_connect.go: connection setup screen with integrated AI settings.
//
// This is the first screen shown when askSQL starts. It has two blocks:
//
//	Block 0: Connection: driver, PostgreSQL or DuckDB settings, SSH
//	Block 1: AI Settings: provider, API key, model
//
// TAB switches blocks; arrow keys navigate within the active block.
// AI settings are saved to ~/.asksql/config.json when connecting; API
// keys go to the OS keychain when one is available.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/config"
)

const connectTimeout = 30 * time.Second

const (
	fieldSaved = iota
	fieldName
	fieldDriver
	fieldHost
	fieldPort
	fieldUser
	fieldPassword
	fieldDatabase
	fieldSSLMode
	fieldPath
	fieldSchema
	fieldSSHEnabled
	fieldSSHHost
	fieldSSHPort
	fieldSSHUser
	fieldSSHKey
	fieldConnect
	fieldSave
	fieldDelete
	fieldAIProvider
	fieldAIAPIKey
	fieldAIModel
	fieldAIHost
	fieldAISave
	fieldCount
)

const (
	blockConn = 0
	blockAI   = 1
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindSecret
	kindSelect
	kindToggle
	kindButton
)

type fieldDef struct {
	label string
	kind  fieldKind
}

var fields = [fieldCount]fieldDef{
	fieldSaved:      {"Saved", kindSelect},
	fieldName:       {"Name", kindText},
	fieldDriver:     {"Driver", kindSelect},
	fieldHost:       {"Host", kindText},
	fieldPort:       {"Port", kindText},
	fieldUser:       {"User", kindText},
	fieldPassword:   {"Password", kindSecret},
	fieldDatabase:   {"Database", kindText},
	fieldSSLMode:    {"SSL Mode", kindSelect},
	fieldPath:       {"File", kindText},
	fieldSchema:     {"Schema", kindText},
	fieldSSHEnabled: {"SSH Tunnel", kindToggle},
	fieldSSHHost:    {"SSH Host", kindText},
	fieldSSHPort:    {"SSH Port", kindText},
	fieldSSHUser:    {"SSH User", kindText},
	fieldSSHKey:     {"SSH Key", kindSelect},
	fieldConnect:    {"Connect", kindButton},
	fieldSave:       {"Save", kindButton},
	fieldDelete:     {"Delete", kindButton},
	fieldAIProvider: {"Provider", kindSelect},
	fieldAIAPIKey:   {"API Key", kindSecret},
	fieldAIModel:    {"Model", kindText},
	fieldAIHost:     {"Host", kindText},
	fieldAISave:     {"Save AI", kindButton},
}

var (
	drivers  = []string{string(config.DriverPostgres), string(config.DriverDuckDB)}
	sslModes = []string{"disable", "require", "verify-ca", "verify-full", "prefer"}
)

var aiProviderDesc = map[string]string{
	config.ProviderOpenAI:      "OpenAI",
	config.ProviderAnthropic:   "Anthropic (Claude)",
	config.ProviderGemini:      "Google Gemini",
	config.ProviderGroq:        "Groq",
	config.ProviderOllama:      "Ollama (local)",
	config.ProviderPlaceholder: "Offline demo (previews the first table)",
}

// ConnectView is the connection + AI setup form.
type ConnectView struct {
	store      *config.ConnectionStore
	appCfg     *config.AppConfig
	values     [fieldCount]string
	focus      int
	block      int
	savedIdx   int
	editing    bool
	err        error
	statusMsg  string
	connecting bool
	sshKeys    []string
	sshKeyIdx  int
	width      int
	height     int
}

func NewConnectView(store *config.ConnectionStore, appCfg *config.AppConfig) *ConnectView {
	v := &ConnectView{
		store:  store,
		appCfg: appCfg,
		focus:  fieldHost,
		block:  blockConn,
	}
	v.loadConnection(config.DefaultConnection())

	if len(store.Connections) > 0 {
		v.loadSaved(0)
		v.focus = fieldSaved
	}

	v.values[fieldAIProvider] = appCfg.AI.Provider
	v.loadAIFields()

	v.sshKeys = discoverSSHKeys()
	if len(v.sshKeys) > 0 && v.values[fieldSSHKey] == "" {
		v.values[fieldSSHKey] = v.sshKeys[0]
	}
	v.syncSSHKeyIdx()
	return v
}

func (v *ConnectView) Name() string         { return "Connect" }
func (v *ConnectView) WantsTextInput() bool { return v.editing }

func (v *ConnectView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *ConnectView) ShortHelp() []KeyBinding {
	if v.editing {
		return []KeyBinding{
			{Key: "Enter", Desc: "confirm"},
			{Key: "Esc", Desc: "done"},
			{Key: "Ctrl+U", Desc: "clear"},
		}
	}
	other := "AI"
	if v.block == blockAI {
		other = "Connection"
	}
	return []KeyBinding{
		{Key: "↑/↓", Desc: "navigate"},
		{Key: "←/→", Desc: "choose"},
		{Key: "Tab", Desc: other},
		{Key: "Enter", Desc: "edit/action"},
		{Key: "Ctrl+C", Desc: "quit"},
	}
}

func (v *ConnectView) Init() tea.Cmd { return nil }

func (v *ConnectView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.editing {
			return v.handleEditing(msg)
		}
		return v.handleNavigation(msg)

	case ConnectErrorMsg:
		v.connecting = false
		v.err = msg.Err
		v.statusMsg = ""
	}
	return v, nil
}

// ─── Navigation ─────────────────────────────────────────────

func (v *ConnectView) handleNavigation(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		v.switchBlock()
	case "up", "k":
		v.move(-1)
	case "down", "j":
		v.move(1)
	case "left", "h":
		v.choose(-1)
	case "right", "l":
		v.choose(1)
	case "enter":
		return v, v.activate()
	case "q":
		return v, tea.Quit
	}
	return v, nil
}

func (v *ConnectView) switchBlock() {
	if v.block == blockConn {
		v.block = blockAI
		v.focus = fieldAIProvider
		return
	}
	v.block = blockConn
	v.focus = fieldHost
	if len(v.store.Connections) > 0 {
		v.focus = fieldSaved
	}
	v.skipHidden(1)
}

func (v *ConnectView) blockRange() (int, int) {
	if v.block == blockAI {
		return fieldAIProvider, fieldAISave
	}
	return fieldSaved, fieldDelete
}

// move steps focus within the block, wrapping and skipping hidden fields.
func (v *ConnectView) move(dir int) {
	first, last := v.blockRange()
	v.focus = wrapField(v.focus+dir, first, last)
	v.skipHidden(dir)
}

func (v *ConnectView) skipHidden(dir int) {
	first, last := v.blockRange()
	for i := 0; i <= last-first && !v.visible(v.focus); i++ {
		v.focus = wrapField(v.focus+dir, first, last)
	}
}

func wrapField(f, first, last int) int {
	if f < first {
		return last
	}
	if f > last {
		return first
	}
	return f
}

// visible reports whether field f applies to the current selections.
func (v *ConnectView) visible(f int) bool {
	duck := v.values[fieldDriver] == string(config.DriverDuckDB)
	provider := v.values[fieldAIProvider]
	switch f {
	case fieldSaved, fieldDelete:
		return len(v.store.Connections) > 0
	case fieldHost, fieldPort, fieldUser, fieldPassword, fieldDatabase, fieldSSLMode, fieldSSHEnabled:
		return !duck
	case fieldPath:
		return duck
	case fieldSSHHost, fieldSSHPort, fieldSSHUser, fieldSSHKey:
		return !duck && v.sshEnabled()
	case fieldAIAPIKey:
		return config.NeedsAPIKey(provider)
	case fieldAIModel:
		return provider != config.ProviderPlaceholder
	case fieldAIHost:
		return provider == config.ProviderOllama
	}
	return true
}

// choose cycles select fields; elsewhere it moves focus.
func (v *ConnectView) choose(dir int) {
	switch v.focus {
	case fieldSaved:
		if n := len(v.store.Connections); n > 0 {
			v.loadSaved((v.savedIdx + dir + n) % n)
		}
	case fieldDriver:
		v.values[fieldDriver] = cycle(drivers, v.values[fieldDriver], dir)
	case fieldSSLMode:
		v.values[fieldSSLMode] = cycle(sslModes, v.values[fieldSSLMode], dir)
	case fieldSSHKey:
		if n := len(v.sshKeys); n > 0 {
			v.sshKeyIdx = (v.sshKeyIdx + dir + n) % n
			v.values[fieldSSHKey] = v.sshKeys[v.sshKeyIdx]
		}
	case fieldAIProvider:
		v.applyAIFields()
		v.values[fieldAIProvider] = cycle(config.ProviderNames, v.values[fieldAIProvider], dir)
		v.loadAIFields()
		v.err = nil
	case fieldSSHEnabled:
		v.toggleSSH()
	default:
		v.move(dir)
	}
}

func cycle(options []string, current string, dir int) string {
	idx := 0
	for i, o := range options {
		if o == current {
			idx = i
			break
		}
	}
	return options[(idx+dir+len(options))%len(options)]
}

func (v *ConnectView) handleEditing(msg tea.KeyMsg) (View, tea.Cmd) {
	f := v.focus
	switch msg.String() {
	case "enter", "esc":
		v.editing = false
	case "backspace":
		if r := []rune(v.values[f]); len(r) > 0 {
			v.values[f] = string(r[:len(r)-1])
		}
	case "ctrl+u":
		v.values[f] = ""
	default:
		if msg.Type == tea.KeyRunes {
			v.values[f] += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			v.values[f] += " "
		}
	}
	return v, nil
}

func (v *ConnectView) activate() tea.Cmd {
	switch v.focus {
	case fieldSaved, fieldConnect:
		return v.connect()
	case fieldSave:
		v.saveConnection()
	case fieldDelete:
		v.deleteConnection()
	case fieldAISave:
		v.saveAIConfig()
	case fieldSSHEnabled:
		v.toggleSSH()
	case fieldSSHKey:
		if len(v.sshKeys) > 0 {
			v.choose(1)
		} else {
			v.editing = true
		}
	default:
		if fields[v.focus].kind == kindSelect {
			v.choose(1)
		} else {
			v.editing = true
		}
	}
	return nil
}

func (v *ConnectView) toggleSSH() {
	if v.sshEnabled() {
		v.values[fieldSSHEnabled] = "no"
	} else {
		v.values[fieldSSHEnabled] = "yes"
	}
}

func (v *ConnectView) sshEnabled() bool { return v.values[fieldSSHEnabled] == "yes" }

// ─── Connection logic ───────────────────────────────────────

// connect opens the runtime for the form's connection.
func (v *ConnectView) connect() tea.Cmd {
	conn, err := v.buildConnection()
	if err != nil {
		v.err = err
		return nil
	}
	v.applyAIFields()
	if err := config.SaveAppConfig(v.appCfg); err != nil {
		applog.Warn("save config", "err", err)
	}
	v.connecting = true
	v.statusMsg = "Connecting to " + conn.Display() + "..."
	v.err = nil
	return connectCmd(v.appCfg, conn)
}

func connectCmd(cfg *config.AppConfig, conn config.Connection) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		rt, err := assistant.Open(ctx, cfg, conn)
		if err != nil {
			return ConnectErrorMsg{Err: err}
		}
		return ConnectedMsg{Runtime: rt, Conn: conn}
	}
}

func (v *ConnectView) saveConnection() {
	conn, err := v.buildConnection()
	if err != nil {
		v.err = err
		return
	}
	if conn.Name == "" {
		v.err = errors.New("enter a connection name first")
		return
	}
	if err := v.store.Add(conn); err != nil {
		v.err = err
		return
	}
	if err := v.store.Save(); err != nil {
		v.err = err
		return
	}
	for i, c := range v.store.Connections {
		if c.Name == conn.Name {
			v.savedIdx = i
		}
	}
	v.statusMsg = fmt.Sprintf("Connection '%s' saved!", conn.Name)
	v.err = nil
}

func (v *ConnectView) deleteConnection() {
	if len(v.store.Connections) == 0 {
		return
	}
	name := v.store.Connections[v.savedIdx].Name
	v.store.Delete(name)
	if err := v.store.Save(); err != nil {
		v.err = err
		return
	}
	v.statusMsg = fmt.Sprintf("Connection '%s' deleted.", name)
	v.err = nil
	if v.savedIdx >= len(v.store.Connections) {
		v.savedIdx = 0
	}
	if !v.visible(v.focus) {
		v.move(1)
	}
}

func (v *ConnectView) buildConnection() (config.Connection, error) {
	conn := config.Connection{
		Name:   strings.TrimSpace(v.values[fieldName]),
		Driver: config.Driver(v.values[fieldDriver]),
		Schema: strings.TrimSpace(v.values[fieldSchema]),
	}
	if conn.Driver == config.DriverDuckDB {
		conn.Path = strings.TrimSpace(v.values[fieldPath])
		return conn, nil
	}

	port, err := parsePort("port", v.values[fieldPort])
	if err != nil {
		return conn, err
	}
	conn.Host = strings.TrimSpace(v.values[fieldHost])
	conn.Port = port
	conn.User = v.values[fieldUser]
	conn.Password = v.values[fieldPassword]
	conn.Database = v.values[fieldDatabase]
	conn.SSLMode = v.values[fieldSSLMode]
	if v.sshEnabled() {
		sshPort, err := parsePort("ssh port", v.values[fieldSSHPort])
		if err != nil {
			return conn, err
		}
		conn.SSH = config.SSHConfig{
			Enabled: true,
			Host:    strings.TrimSpace(v.values[fieldSSHHost]),
			Port:    sshPort,
			User:    v.values[fieldSSHUser],
			KeyPath: v.values[fieldSSHKey],
		}
	}
	return conn, conn.Validate()
}

func parsePort(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &config.ConfigurationError{Field: field, Message: "not a number: " + strconv.Quote(s)}
	}
	return n, nil
}

func (v *ConnectView) loadConnection(c config.Connection) {
	if c.Driver == "" {
		c.Driver = config.DriverPostgres
	}
	v.values[fieldName] = c.Name
	v.values[fieldDriver] = string(c.Driver)
	v.values[fieldHost] = c.Host
	v.values[fieldPort] = portString(c.Port)
	v.values[fieldUser] = c.User
	v.values[fieldPassword] = c.Password
	v.values[fieldDatabase] = c.Database
	v.values[fieldSSLMode] = c.SSLMode
	v.values[fieldPath] = c.Path
	v.values[fieldSchema] = c.Schema
	v.values[fieldSSHEnabled] = "no"
	if c.SSH.Enabled {
		v.values[fieldSSHEnabled] = "yes"
	}
	v.values[fieldSSHHost] = c.SSH.Host
	v.values[fieldSSHPort] = portString(c.SSH.Port)
	if v.values[fieldSSHPort] == "" {
		v.values[fieldSSHPort] = "22"
	}
	v.values[fieldSSHUser] = c.SSH.User
	v.values[fieldSSHKey] = c.SSH.KeyPath
}

func portString(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}

func (v *ConnectView) loadSaved(idx int) {
	if idx < 0 || idx >= len(v.store.Connections) {
		return
	}
	v.loadConnection(v.store.Connections[idx])
	v.savedIdx = idx
	v.syncSSHKeyIdx()
}

func (v *ConnectView) syncSSHKeyIdx() {
	for i, k := range v.sshKeys {
		if k == v.values[fieldSSHKey] {
			v.sshKeyIdx = i
			return
		}
	}
}

// discoverSSHKeys scans ~/.ssh/ for private key files.
func discoverSSHKeys() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	dir := filepath.Join(home, ".ssh")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".pub") || strings.HasPrefix(name, "known_hosts") ||
			name == "config" || name == "authorized_keys" || name == "environment" {
			continue
		}
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		buf := make([]byte, 40)
		n, _ := f.Read(buf)
		f.Close()
		if head := string(buf[:n]); strings.Contains(head, "PRIVATE KEY") || strings.Contains(head, "OPENSSH") {
			keys = append(keys, path)
		}
	}
	return keys
}

// ─── AI settings ────────────────────────────────────────────

func (v *ConnectView) loadAIFields() {
	probe := v.appCfg.AI
	probe.Provider = v.values[fieldAIProvider]
	probe.Model = ""
	v.values[fieldAIAPIKey] = probe.APIKey()
	v.values[fieldAIModel] = probe.ModelName()
	if v.appCfg.AI.Model != "" && v.appCfg.AI.Provider == probe.Provider {
		v.values[fieldAIModel] = v.appCfg.AI.Model
	}
	v.values[fieldAIHost] = v.appCfg.AI.Ollama.Host
}

// applyAIFields writes the AI form back to the app config.
func (v *ConnectView) applyAIFields() {
	ai := &v.appCfg.AI
	provider := v.values[fieldAIProvider]
	ai.Provider = provider
	ai.Model = ""
	ai.SetAPIKey(provider, strings.TrimSpace(v.values[fieldAIAPIKey]))
	model := strings.TrimSpace(v.values[fieldAIModel])
	switch provider {
	case config.ProviderOpenAI:
		ai.OpenAI.Model = model
	case config.ProviderAnthropic:
		ai.Anthropic.Model = model
	case config.ProviderGemini:
		ai.Gemini.Model = model
	case config.ProviderGroq:
		ai.Groq.Model = model
	case config.ProviderOllama:
		ai.Ollama.Model = model
		ai.Ollama.Host = strings.TrimSpace(v.values[fieldAIHost])
	}
}

// saveAIConfig saves the AI block. The key goes to the keychain when
// possible and is kept out of config.json in that case.
func (v *ConnectView) saveAIConfig() {
	v.applyAIFields()
	provider := v.appCfg.AI.Provider
	key := v.appCfg.AI.APIKey()

	toFile := *v.appCfg
	if key != "" {
		if ring, err := config.OpenKeyring(); err == nil && ring.Set(provider, key) == nil {
			toFile.AI.SetAPIKey(provider, "")
		}
	}
	if err := config.SaveAppConfig(&toFile); err != nil {
		v.err = err
		return
	}
	v.statusMsg = "AI settings saved!"
	v.err = nil
}

// ─── Rendering ──────────────────────────────────────────────

func (v *ConnectView) View() string {
	total := max(v.width, 40)
	leftW := max(total*6/10, 30)
	rightW := max(total-leftW, 25)
	leftInput := max(leftW-24, 10)
	rightInput := max(rightW-24, 10)

	var left []string
	if len(v.store.Connections) > 0 {
		left = append(left, v.blockHeader("Saved", leftW-8, blockConn), v.renderSaved(), "")
	}
	left = append(left, v.blockHeader("Connection", leftW-8, blockConn))
	for f := fieldName; f <= fieldSchema; f++ {
		if v.visible(f) {
			left = append(left, v.renderField(f, leftInput))
		}
	}
	if v.visible(fieldSSHEnabled) {
		left = append(left, "", v.blockHeader("SSH Tunnel", leftW-8, blockConn))
		for f := fieldSSHEnabled; f <= fieldSSHKey; f++ {
			if v.visible(f) {
				left = append(left, v.renderField(f, leftInput))
			}
		}
	}
	buttons := v.renderField(fieldConnect, 0) + "  " + v.renderField(fieldSave, 0)
	if v.visible(fieldDelete) {
		buttons += "  " + v.renderField(fieldDelete, 0)
	}
	left = append(left, "", buttons)

	provider := v.values[fieldAIProvider]
	right := []string{
		v.blockHeader("🤖 AI Settings", rightW-8, blockAI),
		v.renderField(fieldAIProvider, rightInput),
		StyleDimmed.Render("  " + aiProviderDesc[provider]),
		"",
	}
	for f := fieldAIAPIKey; f <= fieldAIHost; f++ {
		if v.visible(f) {
			right = append(right, v.renderField(f, rightInput))
		}
	}
	right = append(right, "", v.renderField(fieldAISave, 0))

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		v.panel(strings.Join(left, "\n"), leftW, blockConn),
		v.panel(strings.Join(right, "\n"), rightW, blockAI))

	var status string
	switch {
	case v.connecting:
		status = StyleDimmed.Render("⏳ " + v.statusMsg)
	case v.err != nil:
		status = StyleError.Render("✗ " + v.err.Error())
	case v.statusMsg != "":
		status = StyleSuccess.Render("✓ " + v.statusMsg)
	}
	content := panels
	if status != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, panels, status)
	}

	return lipgloss.NewStyle().
		Width(v.width).
		Height(v.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (v *ConnectView) panel(content string, width, blk int) string {
	style := StyleBorder.Padding(1, 2).Width(width - 2)
	if v.block == blk {
		style = style.BorderForeground(ColorAccent)
	}
	return style.Render(content)
}

func (v *ConnectView) renderSaved() string {
	var b strings.Builder
	for i, c := range v.store.Connections {
		switch {
		case i == v.savedIdx && v.focus == fieldSaved:
			b.WriteString(StyleListItemActive.Render(" ► " + c.Name + " "))
		case i == v.savedIdx:
			b.WriteString(lipgloss.NewStyle().Foreground(ColorAccent).Render(" ► " + c.Name + " "))
		default:
			b.WriteString(StyleDimmed.Render("   " + c.Name + " "))
		}
	}
	return b.String()
}

// blockHeader renders a section rule, highlighted if the block is active.
func (v *ConnectView) blockHeader(label string, width, blk int) string {
	style := lipgloss.NewStyle().Foreground(ColorDim)
	if v.block == blk {
		style = lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	}
	right := max(width-lipgloss.Width(label)-6, 2)
	return StyleDimmed.Render("──") + " " + style.Render(label) + " " + StyleDimmed.Render(strings.Repeat("─", right))
}

func (v *ConnectView) renderField(id, inputWidth int) string {
	def := fields[id]
	focused := v.focus == id

	if def.kind == kindButton {
		if focused {
			return lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Background(ColorAccent).
				Padding(0, 2).Render("⏎ " + def.label)
		}
		return lipgloss.NewStyle().Foreground(ColorDim).Padding(0, 2).Render("  " + def.label)
	}

	label := lipgloss.NewStyle().Width(16).Foreground(ColorDim).Render(def.label)
	if focused {
		label = lipgloss.NewStyle().Width(16).Foreground(ColorAccent).Bold(true).Render("▸ " + def.label)
	}

	value := v.values[id]
	switch {
	case def.kind == kindSecret:
		value = strings.Repeat("•", len([]rune(value)))
	case id == fieldSSHKey && len(v.sshKeys) > 0:
		value = filepath.Base(value)
	case id == fieldPath && value == "" && !v.editing:
		value = StyleDimmed.Render("(in-memory)")
	case id == fieldSchema && value == "" && !focused:
		value = StyleDimmed.Render("(default)")
	}

	switch def.kind {
	case kindToggle:
		if v.values[id] == "yes" {
			return label + " " + lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true).Render("● Enabled")
		}
		return label + " " + StyleDimmed.Render("○ Disabled")
	case kindSelect:
		if focused && !(id == fieldSSHKey && len(v.sshKeys) == 0) {
			return label + " " + lipgloss.NewStyle().Foreground(ColorAccent).Render(" ◂ "+value+" ▸ ")
		}
	}

	if !focused {
		return label + " " + StyleDimmed.Render(value)
	}
	cursor := ""
	if v.editing {
		cursor = "█"
	}
	return label + " " + lipgloss.NewStyle().Width(inputWidth).Foreground(ColorPrimary).Render(value+cursor)
}
