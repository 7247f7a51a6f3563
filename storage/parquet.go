package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/parquet-go/parquet-go"

	"foodfacts-pipeline/table"
)

// SaveParquet writes the cleaned table as a Snappy-compressed Parquet file
// and returns the file path. The schema is inferred from the table: numeric
// columns become optional DOUBLE, everything else optional UTF8.
func (s *Store) SaveParquet(t *table.Table, name string) (string, error) {
	if t == nil || t.NumRows() == 0 {
		return "", &EmptyTableError{Name: name}
	}

	numeric := make([]bool, t.NumCols())
	group := parquet.Group{}
	for j, col := range t.Cols {
		if t.ColKind(j) == table.KindNumber {
			numeric[j] = true
			group[col] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		} else {
			group[col] = parquet.Optional(parquet.String())
		}
	}
	schema := parquet.NewSchema(name, group)

	rows := make([]map[string]any, 0, t.NumRows())
	for _, row := range t.Rows {
		rec := make(map[string]any, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			if numeric[j] {
				if f, ok := table.AsNumber(cell); ok {
					rec[t.Cols[j]] = f
				}
				continue
			}
			rec[t.Cols[j]] = table.Stringify(cell)
		}
		rows = append(rows, rec)
	}

	path := filepath.Join(s.processedDir, s.stamp(name, "parquet"))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[map[string]any](f, schema, parquet.Compression(&parquet.Snappy))
	if _, err := w.Write(rows); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	if fi, err := f.Stat(); err == nil {
		s.log.Info().
			Str("path", path).
			Int("rows", t.NumRows()).
			Int("cols", t.NumCols()).
			Int64("bytes", fi.Size()).
			Msg("parquet saved")
	}
	return path, nil
}

// LoadParquet reads a Parquet file back into a Table. Column order follows
// the file schema; missing optional values become nil cells.
func LoadParquet(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	schema := pf.Schema()

	cols := make([]string, 0, len(schema.Fields()))
	for _, field := range schema.Fields() {
		cols = append(cols, field.Name())
	}

	t := &table.Table{Cols: cols, Rows: make([]table.Row, 0, pf.NumRows())}

	// The schema is flat, so leaf column order matches the field order.
	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, prow := range buf[:n] {
				row := make(table.Row, len(cols))
				for _, v := range prow {
					j := v.Column()
					if j < 0 || j >= len(cols) || v.IsNull() {
						continue
					}
					switch v.Kind() {
					case parquet.Double:
						row[j] = v.Double()
					case parquet.Float:
						row[j] = float64(v.Float())
					case parquet.Int32:
						row[j] = float64(v.Int32())
					case parquet.Int64:
						row[j] = float64(v.Int64())
					case parquet.Boolean:
						row[j] = v.Boolean()
					default:
						row[j] = v.String()
					}
				}
				t.Rows = append(t.Rows, row)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read parquet %s: %w", path, err)
			}
		}
		rows.Close()
	}
	return t, nil
}

// ListParquet returns the processed-dir Parquet files whose base name starts
// with prefix (all of them when prefix is empty), sorted by name. The
// timestamp suffix makes that chronological order.
func ListParquet(processedDir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(processedDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.Name(), prefix+"_") {
			continue
		}
		out = append(out, filepath.Join(processedDir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
