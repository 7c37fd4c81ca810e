package tui

import tea "github.com/charmbracelet/bubbletea"

// View is one tab of the main screen (chat, history, schema). The App owns
// the header, tab bar and help bar; a View draws only its body.
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string

	// Name is the tab label.
	Name() string

	// ShortHelp lists the view's keys for the help bar.
	ShortHelp() []KeyBinding

	// SetSize receives the body area, excluding app chrome.
	SetSize(width, height int)

	// WantsTextInput reports whether plain keystrokes (q, ?, tab) go to
	// the view instead of the App.
	WantsTextInput() bool
}

// KeyBinding is a key and its help-bar label.
type KeyBinding struct {
	Key  string
	Desc string
}
