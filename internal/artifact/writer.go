// Package artifact writes the photo-locations JSON file consumed by the map.
package artifact

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"photomap/internal/models"
)

// Marshal renders records as a two-space indented JSON array without a
// trailing newline. No records render as "[]".
func Marshal(records []models.PhotoLocation) ([]byte, error) {
	if records == nil {
		records = []models.PhotoLocation{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal photo locations: %w", err)
	}
	return data, nil
}

// Write replaces the file at path with the rendered records, creating parent
// directories as needed, and returns the bytes written. The content goes to a
// temporary file in the same directory first and is renamed into place.
func Write(fs afero.Fs, path string, records []models.PhotoLocation) ([]byte, error) {
	data, err := Marshal(records)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return nil, fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return nil, fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil {
		fs.Remove(tmpName)
		return nil, fmt.Errorf("chmod artifact %s: %w", path, err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return nil, fmt.Errorf("write artifact %s: %w", path, err)
	}
	return data, nil
}
