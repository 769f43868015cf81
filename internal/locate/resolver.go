// Package locate resolves a position for every discovered photo: the GPS tags
// embedded in the image first, the sidecar coordinates second.
package locate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/apex/log"
	"github.com/spf13/afero"

	"photomap/internal/enrich"
	"photomap/internal/keys"
	"photomap/internal/models"
	"photomap/internal/sidecar"
	coords "photomap/models"
	"photomap/pkg/exifgps"
)

// Extractor reads the embedded position of one image. It must return
// exifgps.ErrNoLocation (possibly wrapped) when the image has no GPS tags.
type Extractor interface {
	Extract(name string, rs io.ReadSeeker, size int64) (coords.Coordinates, error)
}

// Outcome classifies a Result.
type Outcome int

const (
	NoLocation Outcome = iota
	Located
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Located:
		return "located"
	case Failed:
		return "failed"
	default:
		return "no location"
	}
}

// Result is the outcome for one file. Record and Source are set only when
// Outcome is Located; Err only when it is Failed.
type Result struct {
	File    string
	Outcome Outcome
	Record  models.PhotoLocation
	Source  models.LocationSource
	Err     error
}

// Options controls record construction.
type Options struct {
	// Root is the photo directory the relative paths are resolved against.
	Root string
	// PublicPrefix is the URL prefix of the record path.
	PublicPrefix string
	// IncludeSource emits the provenance field on every record.
	IncludeSource bool
}

// Resolver runs the embedded and sidecar stages over the discovered files.
type Resolver struct {
	fs       afero.Fs
	x        Extractor
	meta     sidecar.Metadata
	opts     Options
	logger   log.Interface
	pipeline *enrich.Pipeline[photo]
}

type photo struct {
	rel      string
	pos      coords.Coordinates
	source   models.LocationSource
	found    bool
	readErr  error
	entry    models.MetadataEntry
	hasEntry bool
}

// New builds a Resolver. A nil meta behaves like an empty sidecar.
func New(fs afero.Fs, x Extractor, meta sidecar.Metadata, opts Options, logger log.Interface) *Resolver {
	r := &Resolver{fs: fs, x: x, meta: meta, opts: opts, logger: logger}
	r.pipeline = enrich.NewPipeline(
		enrich.NewStage("embedded", r.embedded),
		enrich.NewStage("sidecar", r.sidecar),
	).OnError(func(p *photo, stage string, err error) {
		r.logger.WithError(err).WithFields(log.Fields{
			"photo": p.rel,
			"stage": stage,
		}).Debugf("could not read metadata from %s", p.rel)
	})
	return r
}

// Resolve returns one Result per file, in the order of files.
func (r *Resolver) Resolve(ctx context.Context, files []string) []Result {
	items := make([]*photo, len(files))
	for i, f := range files {
		items[i] = &photo{rel: keys.Normalize(f)}
	}

	results := make([]Result, 0, len(items))
	for _, p := range r.pipeline.Process(ctx, items) {
		res := r.result(p)
		r.report(res)
		results = append(results, res)
	}
	return results
}

// embedded reads the image's own GPS tags. A read failure is recorded and
// returned so the pipeline reports it; the sidecar stage still runs.
func (r *Resolver) embedded(_ context.Context, p *photo) error {
	c, err := r.extract(p.rel)
	switch {
	case err == nil:
		p.pos, p.source, p.found = c, models.SourceEXIF, true
		return nil
	case errors.Is(err, exifgps.ErrNoLocation):
		return nil
	default:
		p.readErr = err
		return err
	}
}

func (r *Resolver) extract(rel string) (coords.Coordinates, error) {
	name := filepath.Join(r.opts.Root, filepath.FromSlash(rel))
	f, err := r.fs.Open(name)
	if err != nil {
		return coords.Coordinates{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return coords.Coordinates{}, fmt.Errorf("stat %s: %w", name, err)
	}
	c, err := r.x.Extract(name, f, info.Size())
	if err != nil {
		return coords.Coordinates{}, err
	}
	if !c.Valid() {
		return coords.Coordinates{}, fmt.Errorf("%w: out of range %v", exifgps.ErrNoLocation, c)
	}
	return c, nil
}

// sidecar attaches the manual entry and falls back to its coordinates.
func (r *Resolver) sidecar(_ context.Context, p *photo) error {
	p.entry, p.hasEntry = r.meta.Lookup(p.rel)
	if p.found || !p.hasEntry {
		return nil
	}
	if c, ok := p.entry.Coordinates(); ok {
		p.pos, p.source, p.found = c, models.SourceManual, true
	}
	return nil
}

func (r *Resolver) result(p *photo) Result {
	if !p.found {
		if p.readErr != nil {
			return Result{File: p.rel, Outcome: Failed, Err: p.readErr}
		}
		return Result{File: p.rel, Outcome: NoLocation}
	}

	rec := models.PhotoLocation{
		Filename:  path.Base(p.rel),
		Path:      keys.PublicPath(r.opts.PublicPrefix, p.rel),
		Latitude:  p.pos.Latitude,
		Longitude: p.pos.Longitude,
	}
	if p.hasEntry {
		rec.Name = p.entry.Name
		rec.Description = p.entry.Description
	}
	if r.opts.IncludeSource {
		rec.Source = p.source
	}
	return Result{File: p.rel, Outcome: Located, Record: rec, Source: p.source}
}

func (r *Resolver) report(res Result) {
	ctx := r.logger.WithFields(log.Fields{"photo": res.File, "outcome": res.Outcome.String()})
	switch res.Outcome {
	case Located:
		ctx = ctx.WithFields(log.Fields{
			"source":    res.Source,
			"latitude":  res.Record.Latitude,
			"longitude": res.Record.Longitude,
		})
		if res.Source == models.SourceManual {
			ctx.Infof("✓ %s: %v, %v (manual)", res.File, res.Record.Latitude, res.Record.Longitude)
		} else {
			ctx.Infof("✓ %s: %v, %v", res.File, res.Record.Latitude, res.Record.Longitude)
		}
	case Failed:
		ctx.WithError(res.Err).Errorf("✗ %s: no usable location", res.File)
	case NoLocation:
		ctx.Infof("⚠ %s: no GPS data found", res.File)
	}
}

// Records keeps the located records of results, in order.
func Records(results []Result) []models.PhotoLocation {
	out := make([]models.PhotoLocation, 0, len(results))
	for _, res := range results {
		if res.Outcome == Located {
			out = append(out, res.Record)
		}
	}
	return out
}
