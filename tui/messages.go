// messages.go defines Bubble Tea messages used for async communication.
//
// Turns, schema loads and query log reads send their results back to
// the TUI via these message types, so the UI never blocks.
package tui

import (
	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/querylog"
)

// ConnectedMsg is sent when the runtime for a connection is ready.
type ConnectedMsg struct {
	Runtime *assistant.Runtime
	Conn    config.Connection
}

// ConnectErrorMsg is sent when connecting fails.
type ConnectErrorMsg struct {
	Err error
}

// AnswerMsg carries a finished turn.
type AnswerMsg struct {
	Response *assistant.Response
}

// ExplainMsg carries an on-demand explanation of a query.
type ExplainMsg struct {
	SQL  string
	Text string
}

// SchemaMsg carries the schema snapshot.
type SchemaMsg struct {
	Schema *db.Schema
	Err    error
}

// QueryLogMsg carries recent query log entries and totals.
type QueryLogMsg struct {
	Entries []querylog.Entry
	Stats   querylog.Stats
	Err     error
}

// ExportedMsg is sent when a result has been written to disk.
type ExportedMsg struct {
	Path string
	Rows int
	Err  error
}

// CommandMsg asks the App to run a `:` command typed into a view.
type CommandMsg string

// StatusMsg is a transient status message for the status bar.
type StatusMsg string
