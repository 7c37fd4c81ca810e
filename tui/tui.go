package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/askSQL/config"
)

// Options configures Start. A non-nil Connection skips the connection
// screen.
type Options struct {
	Store      *config.ConnectionStore
	Config     *config.AppConfig
	Connection *config.Connection
}

// Start launches the TUI and blocks until it exits.
func Start(opts Options) error {
	app := NewApp(opts.Store, opts.Config)
	if opts.Connection != nil {
		app.autoConnect = opts.Connection
	}
	p := tea.NewProgram(app, tea.WithAltScreen())

	_, err := p.Run()
	app.disconnect()
	return err
}
