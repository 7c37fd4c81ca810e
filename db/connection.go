// Package db connects to the target database, describes its schema and
// executes generated statements under a timeout and a row cap.
//
// Design decisions:
//   - PostgreSQL goes through pgxpool (safe for concurrent access) and is
//     exposed as *sql.DB via pgx's stdlib adapter, so PostgreSQL and the
//     embedded DuckDB engine share one execution path.
//   - SSH tunnel integration is handled transparently: if SSH is enabled,
//     we first establish the tunnel, then connect pgx to the local endpoint.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/ssh"
)

// DB wraps the connection pool and optional SSH tunnel.
type DB struct {
	SQL    *sql.DB
	Driver config.Driver
	// Schema is the database schema described to the model.
	Schema string
	Target string

	Pool   *pgxpool.Pool
	Tunnel *ssh.Tunnel
}

// Open connects to the database described by conn and verifies the
// connection with a ping.
func Open(ctx context.Context, conn config.Connection) (*DB, error) {
	if err := conn.Validate(); err != nil {
		return nil, err
	}
	if conn.Driver == config.DriverDuckDB {
		return openDuckDB(ctx, conn)
	}
	return openPostgres(ctx, conn)
}

func openPostgres(ctx context.Context, conn config.Connection) (*DB, error) {
	d := &DB{Driver: config.DriverPostgres, Schema: conn.SchemaName(), Target: conn.Display()}

	if conn.SSH.Enabled {
		tunnel, err := ssh.NewTunnel(conn.SSH, conn.Host, conn.Port)
		if err != nil {
			return nil, fmt.Errorf("ssh tunnel: %w", err)
		}
		localAddr, err := tunnel.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("ssh tunnel start: %w", err)
		}
		d.Tunnel = tunnel

		// Override connection target with local tunnel endpoint
		conn.Host = localAddr.Host
		conn.Port = localAddr.Port
	}

	poolCfg, err := pgxpool.ParseConfig(conn.DSN())
	if err != nil {
		d.Close()
		return nil, &config.ConfigurationError{Field: "dsn", Message: "invalid postgres connection settings", Err: err}
	}
	poolCfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("pgx connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		d.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}

	d.Pool = pool
	d.SQL = stdlib.OpenDBFromPool(pool)
	return d, nil
}

func openDuckDB(ctx context.Context, conn config.Connection) (*DB, error) {
	sqlDB, err := sql.Open("duckdb", conn.DSN())
	if err != nil {
		return nil, fmt.Errorf("duckdb open: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("duckdb ping: %w", err)
	}
	return &DB{SQL: sqlDB, Driver: config.DriverDuckDB, Schema: conn.SchemaName(), Target: conn.Display()}, nil
}

// Wrap adopts an already opened *sql.DB.
func Wrap(sqlDB *sql.DB, driver config.Driver, schema string) *DB {
	return &DB{SQL: sqlDB, Driver: driver, Schema: schema, Target: string(driver)}
}

// Close shuts down the pool and SSH tunnel.
func (d *DB) Close() {
	if d.SQL != nil {
		d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.Tunnel != nil {
		d.Tunnel.Stop()
	}
}

// Dialect is the SQL dialect name given to the model.
func (d *DB) Dialect() string {
	if d.Driver == config.DriverDuckDB {
		return "DuckDB"
	}
	return "PostgreSQL"
}
