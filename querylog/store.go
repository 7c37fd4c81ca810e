// Package querylog keeps a local history of asked questions, the SQL they
// produced and how each turn ended. It is stored in an embedded DuckDB
// file so it can itself be queried.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb/v2"
)

// Status values recorded for a turn.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusBlocked = "blocked"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// qsq builds statements with dollar placeholders, which DuckDB accepts.
var qsq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var entryColumns = []string{
	"id", "session_id", "question", "sql_text", "status", "error_kind",
	"error_message", "row_count", "truncated", "duration_ms", "provider", "created_at",
}

const createTable = `CREATE TABLE IF NOT EXISTS query_log (
	id            VARCHAR PRIMARY KEY,
	session_id    VARCHAR NOT NULL,
	question      VARCHAR NOT NULL,
	sql_text      VARCHAR NOT NULL DEFAULT '',
	status        VARCHAR NOT NULL,
	error_kind    VARCHAR NOT NULL DEFAULT '',
	error_message VARCHAR NOT NULL DEFAULT '',
	row_count     INTEGER NOT NULL DEFAULT 0,
	truncated     BOOLEAN NOT NULL DEFAULT false,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	provider      VARCHAR NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
)`

// Entry is one logged turn.
type Entry struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql,omitempty"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	RowCount   int       `json:"row_count"`
	Truncated  bool      `json:"truncated,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Provider   string    `json:"provider,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows List results.
type Filter struct {
	SessionID string
	Status    string
	Since     *time.Time
	Limit     int
}

// Stats summarises the log.
type Stats struct {
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	Blocked       int     `json:"blocked"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Store persists entries.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the log file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating query log dir: %w", err)
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening query log: %w", err)
	}
	s := New(db)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the log table.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("creating query log table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query, args, err := qsq.Insert("query_log").Columns(entryColumns...).Values(
		e.ID, e.SessionID, e.Question, e.SQL, e.Status, e.ErrorKind,
		e.Error, e.RowCount, e.Truncated, e.DurationMS, e.Provider, e.CreatedAt,
	).ToSql()
	if err != nil {
		return fmt.Errorf("building query log insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting query log entry: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	qb := qsq.Select(entryColumns...).From("query_log")
	if f.SessionID != "" {
		qb = qb.Where(sq.Eq{"session_id": f.SessionID})
	}
	if f.Status != "" {
		qb = qb.Where(sq.Eq{"status": f.Status})
	}
	if f.Since != nil {
		qb = qb.Where(sq.GtOrEq{"created_at": *f.Since})
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	qb = qb.OrderBy("created_at DESC").Limit(uint64(limit))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query log select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying query log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Question, &e.SQL, &e.Status, &e.ErrorKind,
			&e.Error, &e.RowCount, &e.Truncated, &e.DurationMS, &e.Provider, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning query log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query log rows: %w", err)
	}
	return entries, nil
}

// Stats counts entries by outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	query, args, err := qsq.Select(
		"COUNT(*)",
		"COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0)",
		"COALESCE(SUM(CASE WHEN status = 'blocked' THEN 1 ELSE 0 END), 0)",
		"COALESCE(AVG(duration_ms), 0)",
	).From("query_log").ToSql()
	if err != nil {
		return Stats{}, fmt.Errorf("building query log stats: %w", err)
	}
	var st Stats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&st.Total, &st.Succeeded, &st.Failed, &st.Blocked, &st.AvgDurationMS); err != nil {
		return Stats{}, fmt.Errorf("reading query log stats: %w", err)
	}
	return st, nil
}
