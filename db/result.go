package db

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ColumnKind is the coarse value class used to pick a visualization.
type ColumnKind string

const (
	KindUnknown  ColumnKind = "unknown"
	KindNumeric  ColumnKind = "numeric"
	KindTemporal ColumnKind = "temporal"
	KindText     ColumnKind = "text"
	KindBool     ColumnKind = "bool"
)

// Column describes one result column.
type Column struct {
	Name         string     `json:"name"`
	DatabaseType string     `json:"database_type,omitempty"`
	Kind         ColumnKind `json:"kind"`
}

// QueryResult holds the output of a single statement. At most the
// configured row limit is ever held in Rows.
type QueryResult struct {
	Columns      []Column      `json:"columns"`
	Rows         [][]any       `json:"rows"`
	RowCount     int           `json:"row_count"`
	RowsAffected int64         `json:"rows_affected,omitempty"`
	Truncated    bool          `json:"truncated"`
	Duration     time.Duration `json:"duration_ns"`
	Status       string        `json:"status,omitempty"`
}

// ColumnNames returns the column names in result order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Empty reports whether there is nothing to show.
func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Columns) == 0 || len(r.Rows) == 0
}

var typeKinds = map[string]ColumnKind{
	"INT2": KindNumeric, "INT4": KindNumeric, "INT8": KindNumeric,
	"SMALLINT": KindNumeric, "INTEGER": KindNumeric, "BIGINT": KindNumeric,
	"HUGEINT": KindNumeric, "TINYINT": KindNumeric, "UTINYINT": KindNumeric,
	"USMALLINT": KindNumeric, "UINTEGER": KindNumeric, "UBIGINT": KindNumeric,
	"FLOAT4": KindNumeric, "FLOAT8": KindNumeric, "FLOAT": KindNumeric,
	"DOUBLE": KindNumeric, "REAL": KindNumeric, "NUMERIC": KindNumeric,
	"DECIMAL": KindNumeric, "MONEY": KindNumeric,

	"DATE": KindTemporal, "TIME": KindTemporal, "TIMETZ": KindTemporal,
	"TIMESTAMP": KindTemporal, "TIMESTAMPTZ": KindTemporal,
	"TIMESTAMP WITH TIME ZONE": KindTemporal, "INTERVAL": KindTemporal,

	"TEXT": KindText, "VARCHAR": KindText, "BPCHAR": KindText, "CHAR": KindText,
	"NAME": KindText, "UUID": KindText, "CITEXT": KindText, "ENUM": KindText,

	"BOOL": KindBool, "BOOLEAN": KindBool,
}

// kindOfType maps a driver type name. DuckDB reports DECIMAL(18,2) style
// names, so parameters are dropped before the lookup.
func kindOfType(name string) ColumnKind {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i > 0 {
		name = name[:i]
	}
	if k, ok := typeKinds[name]; ok {
		return k
	}
	return KindUnknown
}

// kindOfValue classifies a single normalised value.
func kindOfValue(v any) ColumnKind {
	switch v.(type) {
	case nil:
		return KindUnknown
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumeric
	case time.Time:
		return KindTemporal
	case bool:
		return KindBool
	case string:
		return KindText
	}
	return KindUnknown
}

// inferKinds fills unknown column kinds from the first non-null value.
func inferKinds(cols []Column, rows [][]any) {
	for i := range cols {
		if cols[i].Kind != KindUnknown {
			continue
		}
		for _, row := range rows {
			if i < len(row) && row[i] != nil {
				cols[i].Kind = kindOfValue(row[i])
				break
			}
		}
	}
}

type float64er interface {
	Float64() (float64, error)
}

// DuckDB decimals convert without an error.
type plainFloat64er interface {
	Float64() float64
}

// normalizeValue converts driver values to plain Go values that render
// and serialise predictably.
func normalizeValue(v any, kind ColumnKind) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return normalizeValue(string(x), kind)
	case string:
		if kind == KindNumeric {
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				return f
			}
		}
		return x
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case big.Int:
		f, _ := new(big.Float).SetInt(&x).Float64()
		return f
	case float64er:
		if f, err := x.Float64(); err == nil {
			return f
		}
	case plainFloat64er:
		return x.Float64()
	case fmt.Stringer:
		if kind == KindNumeric {
			if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
				return f
			}
		}
		return x.String()
	}
	return v
}

// ToFloat converts a normalised value to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// FormatValue renders a value for terminal display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case string:
		return x
	}
	return fmt.Sprint(v)
}
