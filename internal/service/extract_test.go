package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/spf13/afero"

	coords "photomap/models"
	"photomap/pkg/exifgps"
	"photomap/pkg/geo"
)

var quiet = &log.Logger{Handler: discard.New(), Level: log.DebugLevel}

type stubExtractor map[string]coords.Coordinates

func (s stubExtractor) Extract(name string, _ io.ReadSeeker, _ int64) (coords.Coordinates, error) {
	if c, ok := s[filepath.Base(name)]; ok {
		return c, nil
	}
	return coords.Coordinates{}, exifgps.ErrNoLocation
}

func settings() Settings {
	return Settings{
		PhotosDir:    "photos",
		MetadataFile: "metadata.json",
		PublicPrefix: "/travel-photos",
		OutputPath:   filepath.Join("src", "data", "photo-locations.json"),
	}
}

func write(t *testing.T, fs afero.Fs, name, content string) {
	t.Helper()
	if err := fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func readOutput(t *testing.T, fs afero.Fs) string {
	t.Helper()
	data, err := afero.ReadFile(fs, settings().OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(data)
}

func TestExtract_MixedSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "photos/trip/paris.jpg", "jpeg")
	write(t, fs, "photos/trip/unknown.jpg", "jpeg")
	write(t, fs, "photos/nyc.png", "png")
	write(t, fs, "photos/notes.txt", "text")
	write(t, fs, "photos/metadata.json", `{
  "nyc.png": {"name": "Central Park", "latitude": 40.7829, "longitude": -73.9654},
  "trip/paris.jpg": {"description": "Summer evening"}
}`)

	d := Deps{Fs: fs, Extractor: stubExtractor{"paris.jpg": {Latitude: 48.8566, Longitude: 2.3522}}, Logger: quiet}
	sum, err := Extract(context.Background(), d, settings())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := `[
  {
    "filename": "nyc.png",
    "path": "/travel-photos/nyc.png",
    "latitude": 40.7829,
    "longitude": -73.9654,
    "name": "Central Park"
  },
  {
    "filename": "paris.jpg",
    "path": "/travel-photos/trip/paris.jpg",
    "latitude": 48.8566,
    "longitude": 2.3522,
    "description": "Summer evening"
  }
]`
	if got := readOutput(t, fs); got != want {
		t.Errorf("artifact =\n%s\nwant\n%s", got, want)
	}
	if !bytes.Equal(sum.Artifact, []byte(want)) {
		t.Errorf("Summary.Artifact differs from the file")
	}
	if sum.Scanned != 3 || sum.Located != 2 || sum.Skipped != 1 || sum.Failed != 0 {
		t.Errorf("counts scanned=%d located=%d skipped=%d failed=%d; want 3/2/1/0",
			sum.Scanned, sum.Located, sum.Skipped, sum.Failed)
	}
	wantCenter := coords.Coordinates{Latitude: (40.7829 + 48.8566) / 2, Longitude: (-73.9654 + 2.3522) / 2}
	if sum.Center != wantCenter {
		t.Errorf("Center = %v; want %v", sum.Center, wantCenter)
	}
}

func TestExtract_MissingSourceDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	sum, err := Extract(context.Background(), Deps{Fs: fs, Extractor: stubExtractor{}, Logger: quiet}, settings())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !sum.SourceCreated {
		t.Errorf("SourceCreated = false; want true")
	}
	if ok, _ := afero.DirExists(fs, "photos"); !ok {
		t.Errorf("photos directory was not created")
	}
	if got := readOutput(t, fs); got != "[]" {
		t.Errorf("artifact = %q; want []", got)
	}
	if sum.Center != geo.World {
		t.Errorf("Center = %v; want %v", sum.Center, geo.World)
	}
}

func TestExtract_NoImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "photos/metadata.json", `{"a.jpg": {"latitude": 1, "longitude": 2}}`)
	write(t, fs, "photos/readme.md", "# photos")

	sum, err := Extract(context.Background(), Deps{Fs: fs, Extractor: stubExtractor{}, Logger: quiet}, settings())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sum.Scanned != 0 || len(sum.Records) != 0 {
		t.Errorf("Summary = %+v; want nothing scanned", sum)
	}
	if got := readOutput(t, fs); got != "[]" {
		t.Errorf("artifact = %q; want []", got)
	}
}

func TestExtract_MalformedSidecar(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "photos/a.jpg", "jpeg")
	write(t, fs, "photos/metadata.json", `{not json`)

	d := Deps{Fs: fs, Extractor: stubExtractor{"a.jpg": {Latitude: 1, Longitude: 2}}, Logger: quiet}
	sum, err := Extract(context.Background(), d, settings())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sum.Located != 1 {
		t.Errorf("Located = %d; want 1", sum.Located)
	}
}

// deniedFs refuses to open one directory.
type deniedFs struct {
	afero.Fs
	dir string
}

func (d deniedFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == d.dir {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
	}
	return d.Fs.Open(name)
}

func TestExtract_UnreadableSourceDir(t *testing.T) {
	base := afero.NewMemMapFs()
	write(t, base, "photos/a.jpg", "jpeg")
	afs := deniedFs{Fs: base, dir: "photos"}

	sum, err := Extract(context.Background(), Deps{Fs: afs, Extractor: stubExtractor{}, Logger: quiet}, settings())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sum.Scanned != 0 {
		t.Errorf("Scanned = %d; want 0", sum.Scanned)
	}
	if got := readOutput(t, base); got != "[]" {
		t.Errorf("artifact = %q; want []", got)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "photos/b/two.jpg", "jpeg")
	write(t, fs, "photos/a/one.jpg", "jpeg")
	d := Deps{Fs: fs, Extractor: stubExtractor{
		"one.jpg": {Latitude: 10, Longitude: 20},
		"two.jpg": {Latitude: -10, Longitude: -20},
	}, Logger: quiet}

	if _, err := Extract(context.Background(), d, settings()); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	first := readOutput(t, fs)
	if _, err := Extract(context.Background(), d, settings()); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if second := readOutput(t, fs); first != second {
		t.Errorf("second run changed the artifact:\n%s\nvs\n%s", first, second)
	}
}

func TestExtract_WriteFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	write(t, base, "photos/a.jpg", "jpeg")
	fs := afero.NewReadOnlyFs(base)

	_, err := Extract(context.Background(), Deps{Fs: fs, Extractor: stubExtractor{}, Logger: quiet}, settings())
	if err == nil {
		t.Fatal("Extract on a read-only output succeeded; want error")
	}
}

func TestExtract_RealDecoderWithoutGPS(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	fs := afero.NewMemMapFs()
	write(t, fs, "photos/plain.png", buf.String())
	write(t, fs, "photos/metadata.json", `{"plain.png": {"latitude": -22.9519, "longitude": -43.2105}}`)

	x, err := exifgps.New(true)
	if err != nil {
		t.Fatalf("exifgps.New: %v", err)
	}
	sum, err := Extract(context.Background(), Deps{Fs: fs, Extractor: x, Logger: quiet}, Settings{
		PhotosDir: "photos", MetadataFile: "metadata.json", PublicPrefix: "/travel-photos",
		OutputPath: "out.json", IncludeSource: true,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(sum.Records) != 1 || sum.Records[0].Source != "manual" {
		t.Fatalf("Records = %+v; want one manual record", sum.Records)
	}
}
