// Package pipeline sequences one ETL run: fetch, raw snapshot, table
// construction, cleaning, Parquet write and the optional Postgres load.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"foodfacts-pipeline/clean"
	"foodfacts-pipeline/config"
	"foodfacts-pipeline/fetch"
	"foodfacts-pipeline/storage"
	"foodfacts-pipeline/table"
)

type Pipeline struct {
	cfg     *config.Config
	fetcher *fetch.Client
	store   *storage.Store
	log     zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetch.NewClient(cfg, log),
		store:   storage.NewStore(cfg.RawDir(), cfg.ProcessedDir(), log),
		log:     log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes the full pipeline for one category and returns the path of
// the processed Parquet file.
func (p *Pipeline) Run(ctx context.Context, category, name string) (string, error) {
	p.log.Info().Str("category", category).Str("dataset", name).Msg("pipeline started")

	records, err := p.fetcher.FetchAll(ctx, category)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}

	rawPath, err := p.store.SaveRawJSON(records, name)
	if err != nil {
		return "", fmt.Errorf("raw snapshot: %w", err)
	}
	p.log.Info().Str("path", rawPath).Msg("raw snapshot written")

	t := table.FromRecords(records, config.Fields)
	p.log.Info().Int("rows", t.NumRows()).Int("cols", t.NumCols()).Msg("table built")

	cleaned := clean.Clean(t, p.log)

	outPath, err := p.store.SaveParquet(cleaned, name)
	if err != nil {
		return "", fmt.Errorf("parquet: %w", err)
	}

	if p.cfg.PgDSN != "" {
		inserted, err := p.loadPostgres(ctx, cleaned)
		if err != nil {
			return "", fmt.Errorf("postgres load: %w", err)
		}
		p.log.Info().Int("inserted", inserted).Str("schema", p.cfg.PgSchema).Msg("postgres load done")
	}

	p.log.Info().Str("path", outPath).Msg("pipeline finished")
	return outPath, nil
}

func (p *Pipeline) loadPostgres(ctx context.Context, t *table.Table) (int, error) {
	pool, err := storage.OpenPool(ctx, p.cfg.PgDSN, 0)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	if err := storage.EnsureSchema(ctx, pool, p.cfg.PgSchema); err != nil {
		return 0, err
	}
	return storage.InsertRows(ctx, pool, p.cfg.PgSchema, t, p.cfg.PgBatch)
}
