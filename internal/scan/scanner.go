// Package scan finds the photos under a source directory.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/spf13/afero"
)

// imageExts is the allow-list of photo extensions, lower case.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
}

// IsImage reports whether name has an allowed image extension, ignoring case.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Scanner walks a photo tree on an afero filesystem.
type Scanner struct {
	fs     afero.Fs
	skip   string
	logger log.Interface
}

// New returns a Scanner that ignores every entry named skip (the sidecar).
func New(fs afero.Fs, skip string, logger log.Interface) *Scanner {
	return &Scanner{fs: fs, skip: skip, logger: logger}
}

// Scan returns the forward-slash relative paths of all images below root in
// lexical walk order. Unreadable subdirectories are logged and skipped; only a
// failure on root itself is returned.
func (s *Scanner) Scan(root string) ([]string, error) {
	files := make([]string, 0)

	err := afero.Walk(s.fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.WithError(err).WithField("path", path).Warn("skipping unreadable entry")
			return nil
		}
		if path != root && fi.Name() == s.skip {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.IsDir() || !fi.Mode().IsRegular() || !IsImage(fi.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}
