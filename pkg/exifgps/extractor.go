// Package exifgps reads the GPS position embedded in JPEG, PNG and HEIC/HEIF
// photos.
//
// Each file is first parsed structurally with the dsoprea parser matching its
// extension. When that yields no EXIF block the raw bytes can be searched for
// one (brute force). A JPEG whose structure cannot be parsed at all gets a
// second opinion from goexif, which is more forgiving of damaged segments.
package exifgps

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	heicexif "github.com/dsoprea/go-heic-exif-extractor"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure"
	pngstructure "github.com/dsoprea/go-png-image-structure"
	riimage "github.com/dsoprea/go-utility/image"
	goexif "github.com/rwcarlsen/goexif/exif"

	"photomap/models"
)

// ErrNoLocation means the file was read but carries no usable GPS position.
var ErrNoLocation = errors.New("no GPS location")

type mediaParser interface {
	Parse(rs io.ReadSeeker, size int) (riimage.MediaContext, error)
}

func parserFor(ext string) mediaParser {
	switch ext {
	case ".jpg", ".jpeg":
		return jpegstructure.NewJpegMediaParser()
	case ".png":
		return pngstructure.NewPngMediaParser()
	case ".heic", ".heif":
		return heicexif.NewHeicExifMediaParser()
	default:
		return nil
	}
}

// Extractor turns image bytes into coordinates. It is not safe for concurrent
// use.
type Extractor struct {
	bruteForce bool
	ifdMapping *exifcommon.IfdMapping
	tagIndex   *exif.TagIndex
}

// New builds an Extractor. bruteForce enables the raw byte search for files
// whose container holds no EXIF block.
func New(bruteForce bool) (*Extractor, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("exif ifd mapping: %w", err)
	}
	return &Extractor{
		bruteForce: bruteForce,
		ifdMapping: im,
		tagIndex:   exif.NewTagIndex(),
	}, nil
}

// Extract returns the embedded position of the image called name. It returns
// ErrNoLocation when the image has no (or incomplete) GPS tags and another
// error when the image could not be read. Decoder panics are returned as
// errors.
func (x *Extractor) Extract(name string, rs io.ReadSeeker, size int64) (c models.Coordinates, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = models.Coordinates{}, fmt.Errorf("exif decoder panic: %v", r)
		}
	}()

	ext := strings.ToLower(filepath.Ext(name))
	var parseErr error

	if parser := parserFor(ext); parser != nil {
		mc, err := parser.Parse(rs, int(size))
		if err != nil {
			parseErr = fmt.Errorf("parse %s structure: %w", ext, err)
		} else if _, raw, err := mc.Exif(); err == nil && len(raw) > 0 {
			return x.fromRaw(raw)
		}
	}

	if x.bruteForce {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return models.Coordinates{}, fmt.Errorf("rewind for exif search: %w", err)
		}
		raw, err := exif.SearchAndExtractExifWithReader(rs)
		switch {
		case err == nil && len(raw) > 0:
			return x.fromRaw(raw)
		case err != nil && !errors.Is(err, exif.ErrNoExif) && parseErr == nil:
			parseErr = fmt.Errorf("search exif: %w", err)
		}
	}

	if parseErr != nil && (ext == ".jpg" || ext == ".jpeg") {
		if c, err := x.secondOpinion(rs); err == nil {
			return c, nil
		}
	}

	if parseErr != nil {
		return models.Coordinates{}, parseErr
	}
	return models.Coordinates{}, ErrNoLocation
}

// fromRaw decodes an EXIF block (starting at the TIFF header) and reads the
// GPS IFD.
func (x *Extractor) fromRaw(raw []byte) (models.Coordinates, error) {
	_, index, err := exif.Collect(x.ifdMapping, x.tagIndex, raw)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("collect exif: %w", err)
	}

	gpsPath := exifcommon.IfdGpsInfoStandardIfdIdentity.UnindexedString()
	for _, ifd := range index.Ifds {
		if ifd.IfdIdentity().UnindexedString() != gpsPath {
			continue
		}
		gi, err := ifd.GpsInfo()
		if err != nil {
			// Missing or malformed latitude/longitude tags: the position is incomplete.
			return models.Coordinates{}, fmt.Errorf("%w: %v", ErrNoLocation, err)
		}
		return checked(gi.Latitude.Decimal(), gi.Longitude.Decimal())
	}
	return models.Coordinates{}, ErrNoLocation
}

func (x *Extractor) secondOpinion(rs io.ReadSeeker) (models.Coordinates, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return models.Coordinates{}, err
	}
	ex, err := goexif.Decode(rs)
	if err != nil {
		return models.Coordinates{}, err
	}
	lat, lon, err := ex.LatLong()
	if err != nil {
		return models.Coordinates{}, ErrNoLocation
	}
	return checked(lat, lon)
}

func checked(lat, lon float64) (models.Coordinates, error) {
	c := models.Coordinates{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return models.Coordinates{}, fmt.Errorf("%w: out of range %v, %v", ErrNoLocation, lat, lon)
	}
	return c, nil
}
