// Package config builds the per-run configuration for the pipeline and the
// verification utility.
//
// Configuration is primarily via environment variables; flags can override:
//
//	API_BASE_URL, API_TIMEOUT_SEC, API_RATE_LIMIT_SEC, PAGE_SIZE, MAX_PAGES,
//	DATA_DIR, LOG_DIR, PG_DSN, PG_SCHEMA, PG_BATCH
//
// A Config is created once per run and is read-only afterwards.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ───────── Defaults ─────────

const (
	DefaultBaseURL   = "https://world.openfoodfacts.org/api/v2"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 * time.Second
	DefaultPageSize  = 100
	DefaultMaxPages  = 10

	DefaultDataDir = "data"
	DefaultLogDir  = "logs"
)

// Fields requested from the API, in table column order.
var Fields = []string{
	"code", "product_name", "brands", "categories", "nutriscore_grade",
	"nova_group", "energy_100g", "fat_100g", "sugars_100g", "salt_100g",
	"proteins_100g", "ingredients_text", "packaging_tags", "labels_tags",
	"countries_tags",
}

// Categories known to exist upstream; used for flag help only, the API
// accepts any tag.
var Categories = []string{
	"chocolats", "biscuits", "boissons", "yaourts", "pates", "pizzas",
	"fromages", "pain", "cereales", "fruits", "legumes", "viandes", "poissons",
}

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit time.Duration
	PageSize  int
	MaxPages  int

	DataDir string
	LogDir  string

	// DB (optional)
	PgDSN    string
	PgSchema string
	PgBatch  int
}

// Default returns a Config populated from environment variables, falling back
// to the built-in defaults.
func Default() *Config {
	return &Config{
		BaseURL:   EnvString("API_BASE_URL", DefaultBaseURL),
		Timeout:   time.Duration(EnvFloat("API_TIMEOUT_SEC", DefaultTimeout.Seconds()) * float64(time.Second)),
		RateLimit: time.Duration(EnvFloat("API_RATE_LIMIT_SEC", DefaultRateLimit.Seconds()) * float64(time.Second)),
		PageSize:  EnvInt("PAGE_SIZE", DefaultPageSize),
		MaxPages:  EnvInt("MAX_PAGES", DefaultMaxPages),
		DataDir:   EnvString("DATA_DIR", DefaultDataDir),
		LogDir:    EnvString("LOG_DIR", DefaultLogDir),
		PgDSN:     EnvString("PG_DSN", ""),
		PgSchema:  EnvString("PG_SCHEMA", "public"),
		PgBatch:   EnvInt("PG_BATCH", 200),
	}
}

// RawDir is where raw JSON snapshots land.
func (c *Config) RawDir() string { return filepath.Join(c.DataDir, "raw") }

// ProcessedDir is where cleaned Parquet files land.
func (c *Config) ProcessedDir() string { return filepath.Join(c.DataDir, "processed") }

// FieldList is the comma-separated field selection sent to the API.
func (c *Config) FieldList() string { return strings.Join(Fields, ",") }

// EnsureDirs creates the raw, processed and log directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.RawDir(), c.ProcessedDir(), c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// NewLogger returns a run-scoped logger writing to stderr (console format)
// and, when the log directory is usable, to {LogDir}/pipeline.log. Every
// entry carries a fresh run_id.
func (c *Config) NewLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writers := []io.Writer{console}
	if c.LogDir != "" {
		f, err := os.OpenFile(filepath.Join(c.LogDir, "pipeline.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			writers = append(writers, f)
		}
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()
}

// ───────── Env helpers ─────────

func EnvString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func EnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func EnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}
