package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/metrics"
	"github.com/DachengChen/askSQL/sqlguard"
)

// ExecOptions bounds a single execution.
type ExecOptions struct {
	RowLimit       int
	Timeout        time.Duration
	AllowMutations bool
}

// Executor runs statements against the connection pool. It is safe for
// concurrent use; every call checks out its own connection.
type Executor struct {
	db         *sql.DB
	readOnlyTx bool
}

// NewExecutor returns an executor for d. PostgreSQL read transactions are
// opened READ ONLY; DuckDB relies on the rollback alone.
func NewExecutor(d *DB) *Executor {
	return &Executor{db: d.SQL, readOnlyTx: d.Driver == config.DriverPostgres}
}

// Execute runs one statement. Row-returning statements are capped at
// opts.RowLimit rows; when more rows exist the first RowLimit rows are
// returned along with a RowLimitExceeded error marked Partial.
func (e *Executor) Execute(ctx context.Context, query string, opts ExecOptions) (*QueryResult, error) {
	query = strings.TrimRight(strings.TrimSpace(query), "; \n\t")
	if query == "" {
		return nil, &ExecutionError{Kind: SyntaxError, Err: errors.New("empty statement")}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		result *QueryResult
		err    error
	)
	if sqlguard.IsReadOnly(query) {
		result, err = e.read(ctx, query, opts.RowLimit)
	} else {
		if !opts.AllowMutations {
			return nil, &ExecutionError{Kind: NotPermitted}
		}
		result, err = e.write(ctx, query)
	}

	elapsed := time.Since(start)
	outcome := "ok"
	if err != nil {
		ee := classify(ctx, err)
		outcome = string(ee.Kind)
		metrics.ObserveQuery(outcome, elapsed, false)
		applog.Event("query", "execution failed", "kind", ee.Kind, "duration", elapsed, "err", err)
		return nil, ee
	}
	result.Duration = elapsed
	metrics.ObserveQuery(outcome, elapsed, result.Truncated)
	applog.Event("query", "executed", "rows", result.RowCount, "truncated", result.Truncated, "duration", elapsed)

	if result.Truncated {
		return result, &ExecutionError{Kind: RowLimitExceeded, Partial: true, Limit: opts.RowLimit}
	}
	return result, nil
}

func (e *Executor) read(ctx context.Context, query string, limit int) (*QueryResult, error) {
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: e.readOnlyTx})
	if err != nil {
		return nil, err
	}
	// Read paths never commit.
	defer tx.Rollback()

	stmt := query
	if limit > 0 && sqlguard.IsRowReturning(query) {
		stmt = wrapLimit(query, limit)
	}
	rows, err := tx.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows, limit)
}

func (e *Executor) write(ctx context.Context, query string) (*QueryResult, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &QueryResult{
		RowsAffected: affected,
		Status:       fmt.Sprintf("%d row(s) affected", affected),
	}, nil
}

// wrapLimit asks the database for one row past the limit so truncation is
// detectable without reading the whole result.
func wrapLimit(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS asksql_q LIMIT %d", query, limit+1)
}

func scanRows(rows *sql.Rows, limit int) (*QueryResult, error) {
	cols, err := describeColumns(rows)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if limit > 0 && len(result.Rows) == limit {
			result.Truncated = true
			break
		}
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(cols))
		for i, v := range raw {
			row[i] = normalizeValue(v, cols[i].Kind)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	inferKinds(result.Columns, result.Rows)
	result.RowCount = len(result.Rows)
	result.Status = fmt.Sprintf("%d row(s)", result.RowCount)
	if result.Truncated {
		result.Status = fmt.Sprintf("first %d row(s), more available", result.RowCount)
	}
	return result, nil
}

func describeColumns(rows *sql.Rows) ([]Column, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		names, nerr := rows.Columns()
		if nerr != nil {
			return nil, nerr
		}
		cols := make([]Column, len(names))
		for i, n := range names {
			cols[i] = Column{Name: n, Kind: KindUnknown}
		}
		return cols, nil
	}
	cols := make([]Column, len(types))
	for i, t := range types {
		cols[i] = Column{
			Name:         t.Name(),
			DatabaseType: t.DatabaseTypeName(),
			Kind:         kindOfType(t.DatabaseTypeName()),
		}
	}
	return cols, nil
}
