// schema.go describes the connected database for the model prompt.
//
// The description gathers:
//   - Tables and views of the configured schema (capped at MaxTables)
//   - Column definitions (name, type, nullable, default, PK)
//   - Foreign key relationships, formal and implied by *_id naming
//
// Everything comes from information_schema, which PostgreSQL and DuckDB
// both provide.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/applog"
)

// MaxTables caps how many tables are described to the model.
const MaxTables = 50

// ColumnInfo describes a single column in a table.
type ColumnInfo struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"nullable"`
	Default    string `json:"default,omitempty"`
	IsPK       bool   `json:"primary_key,omitempty"`
}

// ForeignKeyInfo describes a foreign key constraint.
type ForeignKeyInfo struct {
	ConstraintName string `json:"constraint"`
	Column         string `json:"column"`
	ForeignTable   string `json:"foreign_table"`
	ForeignColumn  string `json:"foreign_column"`
}

// TableSchema holds complete schema information for a table.
type TableSchema struct {
	Name        string           `json:"name"`
	IsView      bool             `json:"view,omitempty"`
	Columns     []ColumnInfo     `json:"columns"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys,omitempty"`
}

// Schema is an immutable snapshot of the database structure. It is shared
// read-only between sessions and must not be modified after Introspect
// returns it.
type Schema struct {
	Dialect    string        `json:"dialect"`
	SchemaName string        `json:"schema"`
	Tables     []TableSchema `json:"tables"`
	// Truncated is set when the schema holds more than MaxTables tables.
	Truncated bool      `json:"truncated,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Table looks up a table by name, case-insensitively.
func (s *Schema) Table(name string) (*TableSchema, bool) {
	for i := range s.Tables {
		if strings.EqualFold(s.Tables[i].Name, name) {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// TableNames lists the described tables in order.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

const (
	tablesQuery = `SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`

	columnsQuery = `SELECT table_name, column_name, data_type, is_nullable, COALESCE(column_default, '')
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	primaryKeysQuery = `SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1`

	foreignKeysQuery = `SELECT tc.constraint_name, tc.table_name, kcu.column_name,
		       ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.column_name`
)

// Introspect reads the current schema description.
func (d *DB) Introspect(ctx context.Context) (*Schema, error) {
	return introspect(ctx, d.SQL, d.Schema, d.Dialect())
}

func introspect(ctx context.Context, conn *sql.DB, schemaName, dialect string) (*Schema, error) {
	s := &Schema{Dialect: dialect, SchemaName: schemaName, FetchedAt: time.Now().UTC()}

	rows, err := conn.QueryContext(ctx, tablesQuery, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	index := map[string]int{}
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list tables: %w", err)
		}
		if len(s.Tables) == MaxTables {
			s.Truncated = true
			continue
		}
		index[name] = len(s.Tables)
		s.Tables = append(s.Tables, TableSchema{Name: name, IsView: kind == "VIEW"})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	if err := loadColumns(ctx, conn, schemaName, s, index); err != nil {
		return nil, err
	}

	// Constraint metadata is optional: engines and permissions vary.
	if err := loadPrimaryKeys(ctx, conn, schemaName, s, index); err != nil {
		applog.Warn("primary keys unavailable", "schema", schemaName, "err", err)
	}
	if err := loadForeignKeys(ctx, conn, schemaName, s, index); err != nil {
		applog.Warn("foreign keys unavailable", "schema", schemaName, "err", err)
	}
	detectImplicitFKs(s)

	applog.Event("schema", "introspected", "schema", schemaName, "tables", len(s.Tables), "truncated", s.Truncated)
	return s, nil
}

func loadColumns(ctx context.Context, conn *sql.DB, schemaName string, s *Schema, index map[string]int) error {
	rows, err := conn.QueryContext(ctx, columnsQuery, schemaName)
	if err != nil {
		return fmt.Errorf("describe columns: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var table, name, dataType, nullable, def string
		if err := rows.Scan(&table, &name, &dataType, &nullable, &def); err != nil {
			return fmt.Errorf("describe columns: %w", err)
		}
		i, ok := index[table]
		if !ok {
			continue
		}
		s.Tables[i].Columns = append(s.Tables[i].Columns, ColumnInfo{
			Name:       name,
			DataType:   dataType,
			IsNullable: nullable == "YES",
			Default:    def,
		})
	}
	return rows.Err()
}

func loadPrimaryKeys(ctx context.Context, conn *sql.DB, schemaName string, s *Schema, index map[string]int) error {
	rows, err := conn.QueryContext(ctx, primaryKeysQuery, schemaName)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return err
		}
		i, ok := index[table]
		if !ok {
			continue
		}
		for c := range s.Tables[i].Columns {
			if s.Tables[i].Columns[c].Name == column {
				s.Tables[i].Columns[c].IsPK = true
			}
		}
	}
	return rows.Err()
}

func loadForeignKeys(ctx context.Context, conn *sql.DB, schemaName string, s *Schema, index map[string]int) error {
	rows, err := conn.QueryContext(ctx, foreignKeysQuery, schemaName)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var fk ForeignKeyInfo
		var table string
		if err := rows.Scan(&fk.ConstraintName, &table, &fk.Column, &fk.ForeignTable, &fk.ForeignColumn); err != nil {
			return err
		}
		if i, ok := index[table]; ok {
			s.Tables[i].ForeignKeys = append(s.Tables[i].ForeignKeys, fk)
		}
	}
	return rows.Err()
}

// detectImplicitFKs links columns ending in "_id" to a table of the same
// name ("country_id" → country.id, or countries.id) when no constraint
// covers the column already.
func detectImplicitFKs(s *Schema) {
	for ti := range s.Tables {
		t := &s.Tables[ti]
		covered := map[string]bool{}
		for _, fk := range t.ForeignKeys {
			covered[fk.Column] = true
		}
		for _, col := range t.Columns {
			if col.IsPK || covered[col.Name] || !strings.HasSuffix(strings.ToLower(col.Name), "_id") {
				continue
			}
			base := strings.ToLower(strings.TrimSuffix(strings.ToLower(col.Name), "_id"))
			if base == "" {
				continue
			}
			for _, candidate := range tableCandidates(base) {
				ref, ok := s.Table(candidate)
				if !ok || ref.Name == t.Name {
					continue
				}
				t.ForeignKeys = append(t.ForeignKeys, ForeignKeyInfo{
					ConstraintName: "(implicit)",
					Column:         col.Name,
					ForeignTable:   ref.Name,
					ForeignColumn:  "id",
				})
				break
			}
		}
	}
}

func tableCandidates(base string) []string {
	c := []string{base, base + "s", base + "es"}
	if strings.HasSuffix(base, "y") {
		c = append(c, strings.TrimSuffix(base, "y")+"ies")
	}
	return c
}

// Format renders the schema as prompt text, one "Table:" block per table.
func (s *Schema) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dialect: %s\n", s.Dialect)
	fmt.Fprintf(&sb, "Schema: %s\n", s.SchemaName)
	qualify := s.SchemaName != "" && s.SchemaName != "public" && s.SchemaName != "main"

	for _, t := range s.Tables {
		name := t.Name
		if qualify {
			name = s.SchemaName + "." + t.Name
		}
		sb.WriteString("\nTable: " + name)
		if t.IsView {
			sb.WriteString(" (view)")
		}
		sb.WriteString("\n")
		for _, col := range t.Columns {
			nullable := "NULL"
			if !col.IsNullable {
				nullable = "NOT NULL"
			}
			pk := ""
			if col.IsPK {
				pk = " [PK]"
			}
			fmt.Fprintf(&sb, "  - %s %s %s%s\n", col.Name, col.DataType, nullable, pk)
		}
		if len(t.ForeignKeys) > 0 {
			fks := append([]ForeignKeyInfo(nil), t.ForeignKeys...)
			sort.Slice(fks, func(i, j int) bool { return fks[i].Column < fks[j].Column })
			sb.WriteString("  Foreign keys:\n")
			for _, fk := range fks {
				fmt.Fprintf(&sb, "  - %s.%s → %s.%s\n", t.Name, fk.Column, fk.ForeignTable, fk.ForeignColumn)
			}
		}
	}
	if s.Truncated {
		fmt.Fprintf(&sb, "\n(only the first %d tables are listed)\n", MaxTables)
	}
	return sb.String()
}
