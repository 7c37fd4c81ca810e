package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DachengChen/askSQL/db"
)

func sample() *db.QueryResult {
	return &db.QueryResult{
		Columns: []db.Column{
			{Name: "region", Kind: db.KindText},
			{Name: "total", Kind: db.KindNumeric},
			{Name: "day", Kind: db.KindTemporal},
		},
		Rows: [][]any{
			{"north, east", 120.5, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
			{"south", nil, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)},
		},
		RowCount: 2,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, CSV, sample()))
	assert.Equal(t, "region,total,day\n\"north, east\",120.5,2025-01-02T00:00:00Z\nsouth,,2025-01-03T00:00:00Z\n", buf.String())
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Parquet, sample()))

	cells, err := parquet.Read[parquetCell](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, cells, 6)
	assert.Equal(t, parquetCell{Row: 0, Column: "total", Kind: "numeric", Text: "120.5", Number: 120.5, HasNumber: true}, cells[1])
	assert.True(t, cells[4].Null)
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("out/Result.CSV")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)

	f, err = FormatFromPath("r.parquet")
	require.NoError(t, err)
	assert.Equal(t, Parquet, f)

	_, err = FormatFromPath("r.xlsx")
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, ToFile(path, sample()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "region,total,day")
}

func TestWriteRejectsEmptyResult(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, CSV, &db.QueryResult{}))
	assert.Error(t, Write(&bytes.Buffer{}, Parquet, nil))
}
