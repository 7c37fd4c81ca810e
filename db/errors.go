package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies execution failures.
type ErrorKind string

const (
	SyntaxError      ErrorKind = "syntax_error"
	ConnectionLost   ErrorKind = "connection_lost"
	Timeout          ErrorKind = "timeout"
	RowLimitExceeded ErrorKind = "row_limit_exceeded"
	// NotPermitted: a data-modifying statement while mutations are off.
	NotPermitted ErrorKind = "not_permitted"
	QueryFailed  ErrorKind = "query_failed"
)

// ExecutionError reports why a statement did not produce a full result.
// For RowLimitExceeded, Partial is true and the result holds exactly
// Limit rows.
type ExecutionError struct {
	Kind    ErrorKind
	Partial bool
	Limit   int
	Err     error
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case RowLimitExceeded:
		return fmt.Sprintf("result exceeds the row limit; showing the first %d rows", e.Limit)
	case Timeout:
		return "query timed out: " + errString(e.Err)
	case ConnectionLost:
		return "database connection lost: " + errString(e.Err)
	case SyntaxError:
		return "invalid SQL: " + errString(e.Err)
	case NotPermitted:
		return "statement modifies data and mutations are disabled"
	}
	return "query failed: " + errString(e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// classify maps a driver error. ctx is the deadline-bound context the
// statement ran under.
func classify(ctx context.Context, err error) *ExecutionError {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return &ExecutionError{Kind: Timeout, Err: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "57014": // query_canceled, statement_timeout
			return &ExecutionError{Kind: Timeout, Err: err}
		case strings.HasPrefix(pgErr.Code, "42"): // syntax error or access rule violation
			return &ExecutionError{Kind: SyntaxError, Err: err}
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return &ExecutionError{Kind: ConnectionLost, Err: err}
		}
		return &ExecutionError{Kind: QueryFailed, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) || errors.As(err, &netErr) {
		return &ExecutionError{Kind: ConnectionLost, Err: err}
	}

	// DuckDB reports error classes in the message text.
	msg := err.Error()
	for _, marker := range []string{"Parser Error", "Binder Error", "Catalog Error", "syntax error"} {
		if strings.Contains(msg, marker) {
			return &ExecutionError{Kind: SyntaxError, Err: err}
		}
	}
	if strings.Contains(msg, "Connection Error") {
		return &ExecutionError{Kind: ConnectionLost, Err: err}
	}
	return &ExecutionError{Kind: QueryFailed, Err: err}
}
