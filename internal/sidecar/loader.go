// Package sidecar reads the manually curated metadata.json that sits next to
// the photos.
package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/apex/log"
	"github.com/spf13/afero"

	"photomap/internal/keys"
	"photomap/internal/models"
)

// Metadata maps normalized relative photo paths to their sidecar entry.
type Metadata map[string]models.MetadataEntry

// Lookup finds the entry for a relative path in any separator style.
func (m Metadata) Lookup(rel string) (models.MetadataEntry, bool) {
	e, ok := m[keys.Normalize(rel)]
	return e, ok
}

// Load reads the sidecar at path. A missing file yields an empty map. A file
// that cannot be read or parsed is reported as a warning and also yields an
// empty map; Load never fails the run.
func Load(afs afero.Fs, path string, logger log.Interface) Metadata {
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.WithError(err).WithField("file", path).Warn("could not read metadata, ignoring it")
		}
		return Metadata{}
	}

	md, err := Parse(data, logger)
	if err != nil {
		logger.WithError(err).WithField("file", path).Warn("could not parse metadata, ignoring it")
		return Metadata{}
	}
	logger.WithField("entries", len(md)).Infof("loaded metadata for %d photo(s)", len(md))
	return md
}

// Parse decodes sidecar JSON. The top level must be an object; entries that
// are not objects are skipped with a warning. Field types are checked one by
// one so a stray string latitude only drops that coordinate.
func Parse(data []byte, logger log.Interface) (Metadata, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if raw == nil {
		return nil, errors.New("decode metadata: top-level value is null")
	}

	md := make(Metadata, len(raw))
	winner := make(map[string]string, len(raw))
	sortedKeys := make([]string, 0, len(raw))
	for k := range raw {
		sortedKeys = append(sortedKeys, k)
	}
	slices.Sort(sortedKeys)
	for _, key := range sortedKeys {
		var fields map[string]any
		if err := json.Unmarshal(raw[key], &fields); err != nil || fields == nil {
			logger.WithField("photo", key).Warn("metadata entry is not an object, skipping")
			continue
		}
		norm := keys.Normalize(key)
		if prev, ok := winner[norm]; ok {
			// A key already in canonical form beats any spelling that
			// normalizes to it; otherwise the first key in sorted order wins.
			keep, drop := prev, key
			if key == norm && prev != norm {
				keep, drop = key, prev
			}
			logger.WithFields(log.Fields{"photo": norm, "kept": keep, "ignored": drop}).
				Warn("duplicate metadata entry, keeping one")
			if keep == prev {
				continue
			}
		}
		winner[norm] = key
		md[norm] = entryFrom(fields)
	}
	return md, nil
}

func entryFrom(fields map[string]any) models.MetadataEntry {
	var e models.MetadataEntry
	if s, ok := fields["name"].(string); ok {
		e.Name = s
	}
	if s, ok := fields["description"].(string); ok {
		e.Description = s
	}
	if f, ok := fields["latitude"].(float64); ok {
		e.Latitude = &f
	}
	if f, ok := fields["longitude"].(float64); ok {
		e.Longitude = &f
	}
	return e
}
