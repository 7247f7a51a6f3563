package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"foodfacts-pipeline/table"
)

// SaveRawJSON writes the record set verbatim as an indented UTF-8 JSON array
// and returns the file path.
func (s *Store) SaveRawJSON(records table.RecordSet, name string) (string, error) {
	if len(records) == 0 {
		return "", &EmptyTableError{Name: name}
	}

	path := filepath.Join(s.rawDir, s.stamp(name, "json"))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}

	if fi, err := f.Stat(); err == nil {
		s.log.Info().
			Str("path", path).
			Int("records", len(records)).
			Int64("bytes", fi.Size()).
			Msg("raw snapshot saved")
	}
	return path, nil
}
