// view_schema.go: schema browser.
//
// Shows the schema description sent to the model: tables, columns,
// keys and inferred relationships. 'r' re-introspects the database
// for every session.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DachengChen/askSQL/db"
)

// schemaSource is satisfied by db.SchemaCache.
type schemaSource interface {
	Schema(ctx context.Context) (*db.Schema, error)
	Refresh(ctx context.Context) (*db.Schema, error)
}

type SchemaView struct {
	schemas  schemaSource
	viewport *Viewport
	loading  bool
	err      error
	width    int
	height   int
}

func NewSchemaView(schemas schemaSource) *SchemaView {
	return &SchemaView{
		schemas:  schemas,
		viewport: NewViewport(80, 20),
	}
}

func (v *SchemaView) Name() string         { return "Schema" }
func (v *SchemaView) WantsTextInput() bool { return false }

func (v *SchemaView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.SetSize(width-2, height-2)
}

func (v *SchemaView) ShortHelp() []KeyBinding {
	return []KeyBinding{
		{Key: "r", Desc: "refresh"},
		{Key: "w", Desc: "wrap"},
		{Key: "↑/↓", Desc: "scroll"},
	}
}

func (v *SchemaView) Init() tea.Cmd {
	return v.fetch(false)
}

func (v *SchemaView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)
	case SchemaMsg:
		v.loading = false
		v.err = msg.Err
		if msg.Err != nil {
			v.viewport.SetContent(StyleError.Render("ERROR: " + msg.Err.Error()))
			return v, nil
		}
		s := msg.Schema
		lines := []string{
			StyleTitle.Render(fmt.Sprintf("%s schema %q", s.Dialect, s.SchemaName)),
			StyleDimmed.Render(fmt.Sprintf("%d tables · loaded %s", len(s.Tables), s.FetchedAt.Local().Format("15:04:05"))),
			"",
		}
		lines = append(lines, strings.Split(s.Format(), "\n")...)
		v.viewport.SetContentLines(lines)
		return v, nil
	}
	return v, nil
}

func (v *SchemaView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "r":
		return v, v.fetch(true)
	case "w":
		v.viewport.ToggleWrap()
	case "up", "k":
		v.viewport.ScrollUp(1)
	case "down", "j":
		v.viewport.ScrollDown(1)
	case "left", "h":
		v.viewport.ScrollLeft(4)
	case "right", "l":
		v.viewport.ScrollRight(4)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	case "g":
		v.viewport.Home()
	case "G":
		v.viewport.End()
	}
	return v, nil
}

// fetch loads the cached schema, or re-introspects when reload is set.
func (v *SchemaView) fetch(reload bool) tea.Cmd {
	v.loading = true
	schemas := v.schemas
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if reload {
			s, err := schemas.Refresh(ctx)
			return SchemaMsg{Schema: s, Err: err}
		}
		s, err := schemas.Schema(ctx)
		return SchemaMsg{Schema: s, Err: err}
	}
}

func (v *SchemaView) View() string {
	if v.loading {
		return StyleDimmed.Render("  Loading schema...")
	}
	return v.viewport.Render()
}
