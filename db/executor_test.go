package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/config"
)

func newMockExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewExecutor(Wrap(sqlDB, config.DriverDuckDB, "main")), mock
}

func salesRows() *sqlmock.Rows {
	return sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("region").OfType("VARCHAR", ""),
		sqlmock.NewColumn("total").OfType("DECIMAL(18,2)", 0.0),
	)
}

func TestExecuteReturnsRowsInsideRolledBackTransaction(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectQuery(wrapLimit("SELECT region, SUM(amount) AS total FROM sales GROUP BY region", 10)).
		WillReturnRows(salesRows().AddRow("north", []byte("120.50")).AddRow("south", []byte("80")))
	mock.ExpectRollback()

	res, err := exec.Execute(context.Background(), "SELECT region, SUM(amount) AS total FROM sales GROUP BY region;", ExecOptions{RowLimit: 10, Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "total"}, res.ColumnNames())
	assert.Equal(t, KindText, res.Columns[0].Kind)
	assert.Equal(t, KindNumeric, res.Columns[1].Kind)
	assert.Equal(t, [][]any{{"north", 120.5}, {"south", 80.0}}, res.Rows)
	assert.Equal(t, 2, res.RowCount)
	assert.False(t, res.Truncated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTruncatesAtRowLimit(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectQuery(wrapLimit("SELECT region, total FROM sales", 2)).
		WillReturnRows(salesRows().AddRow("a", 1.0).AddRow("b", 2.0).AddRow("c", 3.0))
	mock.ExpectRollback()

	res, err := exec.Execute(context.Background(), "SELECT region, total FROM sales", ExecOptions{RowLimit: 2})
	require.Error(t, err)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, RowLimitExceeded, ee.Kind)
	assert.True(t, ee.Partial)
	require.NotNil(t, res)
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Truncated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteExactlyAtLimitIsNotTruncated(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectQuery(wrapLimit("SELECT region, total FROM sales", 2)).
		WillReturnRows(salesRows().AddRow("a", 1.0).AddRow("b", 2.0))
	mock.ExpectRollback()

	res, err := exec.Execute(context.Background(), "SELECT region, total FROM sales", ExecOptions{RowLimit: 2})
	require.NoError(t, err)
	assert.False(t, res.Truncated)
	assert.Len(t, res.Rows, 2)
}

func TestExecuteRefusesMutationsWithoutTouchingDatabase(t *testing.T) {
	exec, mock := newMockExecutor(t)

	_, err := exec.Execute(context.Background(), "INSERT INTO audit VALUES (1)", ExecOptions{RowLimit: 10})

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, NotPermitted, ee.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMutationCommitsWhenAllowed(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO audit VALUES (1)").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := exec.Execute(context.Background(), "INSERT INTO audit VALUES (1)", ExecOptions{AllowMutations: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"postgres syntax", &pgconn.PgError{Code: "42601", Message: "syntax error at or near"}, SyntaxError},
		{"postgres undefined table", &pgconn.PgError{Code: "42P01"}, SyntaxError},
		{"postgres cancel", &pgconn.PgError{Code: "57014"}, Timeout},
		{"postgres connection", &pgconn.PgError{Code: "08006"}, ConnectionLost},
		{"bad conn", driver.ErrBadConn, ConnectionLost},
		{"duckdb binder", errors.New(`Binder Error: Referenced column "x" not found`), SyntaxError},
		{"other", errors.New("division by zero"), QueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, mock := newMockExecutor(t)
			mock.ExpectBegin()
			mock.ExpectQuery(wrapLimit("SELECT x FROM t", 5)).WillReturnError(tt.err)
			mock.ExpectRollback()

			_, err := exec.Execute(context.Background(), "SELECT x FROM t", ExecOptions{RowLimit: 5})
			var ee *ExecutionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tt.want, ee.Kind)
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	exec, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectQuery(wrapLimit("SELECT pg_sleep(10)", 5)).
		WillDelayFor(200 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"pg_sleep"}).AddRow(nil))
	mock.ExpectRollback()

	_, err := exec.Execute(context.Background(), "SELECT pg_sleep(10)", ExecOptions{RowLimit: 5, Timeout: 20 * time.Millisecond})
	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, Timeout, ee.Kind)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "abc", normalizeValue([]byte("abc"), KindText))
	assert.Equal(t, 12.5, normalizeValue("12.5", KindNumeric))
	assert.Equal(t, "12.5", normalizeValue("12.5", KindText))
	assert.Nil(t, normalizeValue(nil, KindNumeric))
}

func TestKindOfType(t *testing.T) {
	assert.Equal(t, KindNumeric, kindOfType("DECIMAL(18,2)"))
	assert.Equal(t, KindNumeric, kindOfType("int8"))
	assert.Equal(t, KindTemporal, kindOfType("TIMESTAMPTZ"))
	assert.Equal(t, KindText, kindOfType("varchar"))
	assert.Equal(t, KindUnknown, kindOfType("JSONB"))
}
