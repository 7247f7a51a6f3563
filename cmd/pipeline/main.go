// foodfacts-pipeline
// ------------------
//
// Batch ETL job: pulls paginated product records from an
// OpenFoodFacts-compatible search API, writes a raw JSON snapshot, applies a
// fixed cleaning-rule pipeline and persists the result as Snappy-compressed
// Parquet (optionally loading it into Postgres as well).
//
// Configuration is primarily via environment variables (flags can override):
//
//	API_BASE_URL, API_TIMEOUT_SEC, API_RATE_LIMIT_SEC, PAGE_SIZE, MAX_PAGES,
//	DATA_DIR, LOG_DIR, PG_DSN, PG_SCHEMA, PG_BATCH
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"foodfacts-pipeline/config"
	"foodfacts-pipeline/fetch"
	"foodfacts-pipeline/pipeline"
	"foodfacts-pipeline/storage"
)

func main() {
	cfg := config.Default()

	var (
		category string
		name     string
		verbose  bool
	)
	flag.StringVar(&category, "category", config.EnvString("CATEGORY", "chocolats"),
		"Category tag to fetch, e.g. "+strings.Join(config.Categories[:5], ", ")+", ... Env: CATEGORY")
	flag.StringVar(&name, "name", config.EnvString("DATASET_NAME", "products"),
		"Base name for output files. Env: DATASET_NAME")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "API base URL. Env: API_BASE_URL")
	flag.IntVar(&cfg.PageSize, "page-size", cfg.PageSize, "Products per page. Env: PAGE_SIZE")
	flag.IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "Maximum pages to fetch. Env: MAX_PAGES")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Root for raw/ and processed/ output. Env: DATA_DIR")
	flag.StringVar(&cfg.PgDSN, "pg-dsn", cfg.PgDSN, "Postgres DSN (enables the load stage). Env: PG_DSN")
	flag.StringVar(&cfg.PgSchema, "pg-schema", cfg.PgSchema, "Target Postgres schema. Env: PG_SCHEMA")
	flag.IntVar(&cfg.PgBatch, "pg-batch", cfg.PgBatch, "DB insert batch size. Env: PG_BATCH")
	flag.BoolVar(&verbose, "v", config.EnvBool("VERBOSE", false), "Debug logging. Env: VERBOSE")
	flag.Parse()

	if strings.TrimSpace(category) == "" || strings.TrimSpace(name) == "" {
		fmt.Fprintln(os.Stderr, "both --category and --name are required")
		os.Exit(2)
	}

	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintln(os.Stderr, "directories:", err)
		os.Exit(2)
	}
	log := cfg.NewLogger(verbose)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 2)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		cancel()
	}()

	path, err := pipeline.New(cfg, log).Run(ctx, category, name)
	if err != nil {
		var noData *fetch.NoDataError
		var empty *storage.EmptyTableError
		switch {
		case errors.As(err, &noData), errors.As(err, &empty):
			log.Error().Err(err).Msg("validation failed")
		default:
			log.Error().Err(err).Msg("pipeline failed")
		}
		os.Exit(1)
	}

	fmt.Println(path)
}
