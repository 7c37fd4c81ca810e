package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/config"
)

func TestViewportScrollAndCut(t *testing.T) {
	v := NewViewport(5, 2)
	v.SetContentLines([]string{"abcdefgh", "12345678", "third"})

	out := v.Render()
	lines := strings.Split(out, "\n")
	assert.Equal(t, "abcde", lines[0])
	assert.Equal(t, "12345", lines[1])

	v.ScrollRight(3)
	assert.True(t, strings.HasPrefix(v.Render(), "defgh"))

	v.End()
	lines = strings.Split(v.Render(), "\n")
	assert.Equal(t, "45678", lines[0])
	assert.Equal(t, "rd", lines[1])

	v.ScrollDown(10)
	v.Home()
	assert.True(t, strings.HasPrefix(v.Render(), "abcde"))
}

func TestViewportWrap(t *testing.T) {
	v := NewViewport(4, 10)
	v.ToggleWrap()
	v.SetContent("abcdefghij")
	assert.Equal(t, 3, len(v.lines()))
	assert.Zero(t, v.maxScrollY())
}

func newTestConnectView(conns ...config.Connection) *ConnectView {
	store := &config.ConnectionStore{Connections: conns}
	return NewConnectView(store, config.DefaultAppConfig())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConnectViewBuildsPostgresConnection(t *testing.T) {
	v := newTestConnectView()
	v.values[fieldHost] = "db.internal"
	v.values[fieldPort] = "6432"
	v.values[fieldDatabase] = "shop"

	conn, err := v.buildConnection()
	require.NoError(t, err)
	assert.Equal(t, config.DriverPostgres, conn.Driver)
	assert.Equal(t, "db.internal", conn.Host)
	assert.Equal(t, 6432, conn.Port)
	assert.False(t, conn.SSH.Enabled)

	v.values[fieldPort] = "abc"
	_, err = v.buildConnection()
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "port", cfgErr.Field)
}

func TestConnectViewDuckDBHidesServerFields(t *testing.T) {
	v := newTestConnectView()
	v.focus = fieldDriver
	v.choose(1)
	require.Equal(t, string(config.DriverDuckDB), v.values[fieldDriver])

	assert.True(t, v.visible(fieldPath))
	assert.False(t, v.visible(fieldHost))
	assert.False(t, v.visible(fieldSSHEnabled))

	v.move(1)
	assert.Equal(t, fieldPath, v.focus)

	v.values[fieldPath] = "/tmp/shop.duckdb"
	conn, err := v.buildConnection()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shop.duckdb", conn.Path)
	assert.Empty(t, conn.Host)
}

func TestConnectViewEditsField(t *testing.T) {
	v := newTestConnectView()
	v.focus = fieldName
	v.Update(key("enter"))
	require.True(t, v.editing)
	require.True(t, v.WantsTextInput())
	v.values[fieldName] = ""
	v.Update(key("prod"))
	v.Update(key("enter"))
	assert.False(t, v.editing)
	assert.Equal(t, "prod", v.values[fieldName])
}

func TestConnectViewLoadsSavedConnection(t *testing.T) {
	saved := config.Connection{Name: "local", Driver: config.DriverDuckDB, Path: "shop.duckdb"}
	v := newTestConnectView(saved)
	assert.Equal(t, fieldSaved, v.focus)
	assert.Equal(t, "local", v.values[fieldName])
	assert.Equal(t, "shop.duckdb", v.values[fieldPath])
	assert.True(t, v.visible(fieldDelete))
}

func TestConnectViewProviderCycleKeepsKeys(t *testing.T) {
	v := newTestConnectView()
	v.Update(key("tab"))
	require.Equal(t, fieldAIProvider, v.focus)

	v.values[fieldAIProvider] = config.ProviderOpenAI
	v.loadAIFields()
	v.values[fieldAIAPIKey] = "sk-test"
	v.choose(1)
	assert.Equal(t, config.ProviderAnthropic, v.values[fieldAIProvider])
	assert.Equal(t, "sk-test", v.appCfg.AI.OpenAI.APIKey)
	assert.True(t, v.visible(fieldAIAPIKey))
	assert.False(t, v.visible(fieldAIHost))
}
