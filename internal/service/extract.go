// Package service runs one extraction: scan the photo tree, resolve a
// position per photo and write the artifact.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/apex/log"
	"github.com/spf13/afero"

	"photomap/internal/artifact"
	"photomap/internal/locate"
	"photomap/internal/models"
	"photomap/internal/scan"
	"photomap/internal/sidecar"
	coords "photomap/models"
	"photomap/pkg/geo"
)

// Settings are the per-run paths and output switches.
type Settings struct {
	PhotosDir     string
	MetadataFile  string
	PublicPrefix  string
	OutputPath    string
	IncludeSource bool
}

// Deps are the collaborators of a run.
type Deps struct {
	Fs        afero.Fs
	Extractor locate.Extractor
	Logger    log.Interface
}

// Summary describes a finished run.
type Summary struct {
	Scanned int
	Located int
	Skipped int
	Failed  int
	// Center is the mean position of the located photos, or geo.World.
	Center coords.Coordinates
	// Records and Artifact are exactly what was written to OutputPath.
	Records  []models.PhotoLocation
	Artifact []byte
	// Results keeps the per-file outcome, in discovery order.
	Results []locate.Result
	// SourceCreated is set when the photo directory did not exist.
	SourceCreated bool
}

// Extract performs one run. Only a failure to write the artifact (or to
// create the missing photo directory) is returned as an error. An unreadable
// photo directory is logged and yields an empty artifact; everything about
// individual photos is logged and reflected in the Summary.
func Extract(ctx context.Context, d Deps, s Settings) (*Summary, error) {
	logger := d.Logger

	created, err := ensureDir(d.Fs, s.PhotosDir)
	if err != nil {
		return nil, err
	}
	if created {
		logger.WithField("dir", s.PhotosDir).Warnf("photos directory %s not found, created it", s.PhotosDir)
		return finish(d, s, &Summary{SourceCreated: true}, nil)
	}

	files, err := scan.New(d.Fs, s.MetadataFile, logger).Scan(s.PhotosDir)
	if err != nil {
		logger.WithError(err).WithField("dir", s.PhotosDir).Error("could not scan photos directory")
		return finish(d, s, &Summary{}, nil)
	}
	if len(files) == 0 {
		logger.WithField("dir", s.PhotosDir).Info("no images found")
		return finish(d, s, &Summary{}, nil)
	}
	logger.WithField("count", len(files)).Infof("found %d image(s) in %s", len(files), s.PhotosDir)

	meta := sidecar.Load(d.Fs, filepath.Join(s.PhotosDir, s.MetadataFile), logger)
	resolver := locate.New(d.Fs, d.Extractor, meta, locate.Options{
		Root:          s.PhotosDir,
		PublicPrefix:  s.PublicPrefix,
		IncludeSource: s.IncludeSource,
	}, logger)
	results := resolver.Resolve(ctx, files)

	sum := &Summary{Scanned: len(files), Results: results}
	for _, res := range results {
		switch res.Outcome {
		case locate.Located:
			sum.Located++
		case locate.Failed:
			sum.Failed++
		case locate.NoLocation:
			sum.Skipped++
		}
	}
	return finish(d, s, sum, locate.Records(results))
}

func finish(d Deps, s Settings, sum *Summary, records []models.PhotoLocation) (*Summary, error) {
	if records == nil {
		records = []models.PhotoLocation{}
	}
	data, err := artifact.Write(d.Fs, s.OutputPath, records)
	if err != nil {
		return nil, err
	}
	sum.Records = records
	sum.Artifact = data

	pts := make([]coords.Coordinates, len(records))
	for i, r := range records {
		pts[i] = r.Coordinates()
	}
	sum.Center = geo.Centroid(pts)

	d.Logger.WithFields(log.Fields{
		"output":  s.OutputPath,
		"located": sum.Located,
		"scanned": sum.Scanned,
		"skipped": sum.Skipped,
		"failed":  sum.Failed,
		"center":  geo.Format(sum.Center),
	}).Infof("Extracted GPS data from %d of %d images", sum.Located, sum.Scanned)
	return sum, nil
}

// ensureDir reports whether dir had to be created.
func ensureDir(afs afero.Fs, dir string) (bool, error) {
	info, err := afs.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("photos path %s is not a directory", dir)
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("stat photos dir %s: %w", dir, err)
	}
	if err := afs.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create photos dir %s: %w", dir, err)
	}
	return true, nil
}
