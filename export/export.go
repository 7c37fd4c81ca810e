// Package export writes query results to files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/DachengChen/askSQL/db"
)

// Format is an export file format.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return CSV, nil
	case ".parquet", ".pq":
		return Parquet, nil
	}
	return "", fmt.Errorf("unsupported export extension %q (use .csv or .parquet)", filepath.Ext(path))
}

// ToFile writes r to path in the format implied by its extension.
func ToFile(path string, r *db.QueryResult) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, format, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes r to w.
func Write(w io.Writer, format Format, r *db.QueryResult) error {
	if r == nil || len(r.Columns) == 0 {
		return fmt.Errorf("nothing to export")
	}
	switch format {
	case CSV:
		return writeCSV(w, r)
	case Parquet:
		return writeParquet(w, r)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func writeCSV(w io.Writer, r *db.QueryResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.ColumnNames()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(r.Columns))
	for _, row := range r.Rows {
		for i, v := range row {
			if v == nil {
				record[i] = ""
				continue
			}
			record[i] = csvValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return db.FormatValue(v)
}

// parquetCell stores one value per record. Result columns are only known
// at runtime, so rows are written in long form: (row, column, value).
type parquetCell struct {
	Row       int64   `parquet:"row"`
	Column    string  `parquet:"column"`
	Kind      string  `parquet:"kind"`
	Null      bool    `parquet:"null"`
	Text      string  `parquet:"text"`
	Number    float64 `parquet:"number"`
	HasNumber bool    `parquet:"has_number"`
}

func writeParquet(w io.Writer, r *db.QueryResult) error {
	cells := make([]parquetCell, 0, len(r.Rows)*len(r.Columns))
	for i, row := range r.Rows {
		for j, v := range row {
			cell := parquetCell{Row: int64(i), Column: r.Columns[j].Name, Kind: string(r.Columns[j].Kind)}
			if v == nil {
				cell.Null = true
			} else {
				cell.Text = csvValue(v)
				if f, ok := db.ToFloat(v); ok && r.Columns[j].Kind == db.KindNumeric {
					cell.Number, cell.HasNumber = f, true
				}
			}
			cells = append(cells, cell)
		}
	}

	writer := parquet.NewGenericWriter[parquetCell](w)
	if _, err := writer.Write(cells); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
