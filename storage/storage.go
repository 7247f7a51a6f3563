// Package storage persists pipeline output: raw JSON snapshots, cleaned
// Parquet files and, optionally, a Postgres table.
//
// Output files are timestamp-suffixed ({name}_{20060102_150405}.{ext}), so
// sequential runs never contend for the same path.
package storage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const timestampLayout = "20060102_150405"

// EmptyTableError is raised when asked to persist an empty table or an empty
// record set; the run cannot produce a useful artifact.
type EmptyTableError struct {
	Name string
}

func (e *EmptyTableError) Error() string {
	return fmt.Sprintf("nothing to persist for dataset %q", e.Name)
}

// Store writes to the raw and processed directories of a run.
type Store struct {
	rawDir       string
	processedDir string
	now          func() time.Time
	log          zerolog.Logger
}

func NewStore(rawDir, processedDir string, log zerolog.Logger) *Store {
	return &Store{
		rawDir:       rawDir,
		processedDir: processedDir,
		now:          time.Now,
		log:          log.With().Str("component", "storage").Logger(),
	}
}

func (s *Store) stamp(name, ext string) string {
	return fmt.Sprintf("%s_%s.%s", name, s.now().Format(timestampLayout), ext)
}
