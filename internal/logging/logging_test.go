package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photomap/internal/config"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{name: "json", format: "json", want: `"message":"hello"`},
		{name: "text", format: "text", want: "hello"},
		{name: "cli", format: "cli", want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, closer, err := New(config.LogConfig{Level: "info", Format: tt.format}, &buf)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			defer closer.Close()

			logger.WithField("photo", "trip/paris.jpg").Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(buf.String(), "quiet") {
		t.Errorf("info entry logged at warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn entry missing: %q", buf.String())
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "loud", Format: "text"}, &bytes.Buffer{}); err == nil {
		t.Fatal("New() with bad level returned nil error")
	}
}

func TestNew_FileTee(t *testing.T) {
	file := filepath.Join(t.TempDir(), "photomap.log")
	var buf bytes.Buffer
	logger, closer, err := New(config.LogConfig{Level: "info", Format: "text", File: file}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.Info("both")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"both"`) {
		t.Errorf("log file %q missing entry", data)
	}
	if !strings.Contains(buf.String(), "both") {
		t.Errorf("console %q missing entry", buf.String())
	}
}
