package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodfacts-pipeline/table"
)

// Column layout of the warehouse table, matching the cleaned dataset.
var (
	pgTextCols = []string{
		"code", "product_name", "brands", "categories", "nutriscore_grade",
		"ingredients_text", "packaging_tags", "labels_tags", "countries_tags",
	}
	pgNumCols = []string{
		"nova_group", "energy_100g", "fat_100g", "sugars_100g", "salt_100g",
		"proteins_100g",
	}
)

// OpenPool connects a small pgx pool for the load stage.
func OpenPool(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the products table when it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schema string) error {
	cols := make([]string, 0, len(pgTextCols)+len(pgNumCols))
	for _, c := range pgTextCols {
		typ := "text"
		if c == "code" {
			typ = "text PRIMARY KEY"
		}
		cols = append(cols, fmt.Sprintf("%s %s", c, typ))
	}
	for _, c := range pgNumCols {
		cols = append(cols, fmt.Sprintf("%s double precision", c))
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q.products (%s)`, schema, strings.Join(cols, ", "))
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertRows loads the cleaned table into {schema}.products in batches,
// skipping codes already present (ON CONFLICT DO NOTHING). Returns the number
// of rows actually inserted.
func InsertRows(ctx context.Context, pool *pgxpool.Pool, schema string, t *table.Table, batchSize int) (int, error) {
	if t == nil || t.NumRows() == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}

	allCols := append(append([]string{}, pgTextCols...), pgNumCols...)
	idx := make([]int, len(allCols))
	for i, name := range allCols {
		idx[i] = t.ColIndex(name)
	}

	placeholders := make([]string, len(allCols))
	for i := range allCols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt := fmt.Sprintf(
		`INSERT INTO %q.products (%s) VALUES (%s) ON CONFLICT (code) DO NOTHING`,
		schema, strings.Join(allCols, ", "), strings.Join(placeholders, ", "),
	)

	total := 0
	for i := 0; i < len(t.Rows); i += batchSize {
		j := i + batchSize
		if j > len(t.Rows) {
			j = len(t.Rows)
		}
		b := &pgx.Batch{}
		count := 0
		for _, row := range t.Rows[i:j] {
			args := make([]any, len(allCols))
			for k, col := range idx {
				if col < 0 {
					continue
				}
				args[k] = row[col]
			}
			if args[0] == nil || args[0] == "" {
				continue
			}
			b.Queue(stmt, args...)
			count++
		}
		br := pool.SendBatch(ctx, b)
		for k := 0; k < count; k++ {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return total, err
			}
			total += int(tag.RowsAffected())
		}
		if err := br.Close(); err != nil {
			return total, err
		}
	}
	return total, nil
}
