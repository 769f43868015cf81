// Package logging builds the apex/log logger used by every photomap component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/multi"
	"github.com/apex/log/handlers/text"

	"photomap/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger writing to console in the configured format. When
// cfg.File is set, entries are also appended to that file as JSON lines; the
// returned Closer releases it.
func New(cfg config.LogConfig, console io.Writer) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	var handler log.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = json.New(console)
	case "text":
		handler = text.New(console)
	default:
		handler = cli.New(console)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handler = multi.New(handler, json.New(f))
		closer = f
	}

	return &log.Logger{Handler: handler, Level: level}, closer, nil
}
