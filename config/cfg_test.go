package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mailcss/config"
)

func TestLoadConfiguration_Defaults(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if len(cfg.Inline.MediaTypes) != 1 || cfg.Inline.MediaTypes[0] != "screen" {
		t.Errorf("unexpected default media types: %v", cfg.Inline.MediaTypes)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("unexpected default console level: %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_Overlay(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "cfg.yaml")
	data := `version: 1
inline:
  media_types: [screen, handheld]
logging:
  console:
    level: none
`
	if err := os.WriteFile(fname, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadConfiguration(fname)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Inline.MediaTypes) != 2 || cfg.Inline.MediaTypes[1] != "handheld" {
		t.Errorf("unexpected media types: %v", cfg.Inline.MediaTypes)
	}
	if cfg.Logging.ConsoleLogger.Level != "none" {
		t.Errorf("expected console level overridden, got %q", cfg.Logging.ConsoleLogger.Level)
	}
	// untouched values keep their defaults
	if cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("expected default file level, got %q", cfg.Logging.FileLogger.Level)
	}
}

func TestLoadConfiguration_Validation(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"bad version", "version: 2\n", "unsupported configuration version"},
		{"bad level", "version: 1\nlogging:\n  console:\n    level: chatty\n", "unknown console log level"},
		{"file log without destination", "version: 1\nlogging:\n  file:\n    level: debug\n", "without destination"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(fname, []byte(tc.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := config.LoadConfiguration(fname)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDump_RoundTrip(t *testing.T) {
	data, err := config.Prepare()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fname := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(fname, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadConfiguration(fname)
	if err != nil {
		t.Fatalf("default configuration does not load back: %v", err)
	}
	again, err := config.Dump(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != string(again) {
		t.Errorf("dump is not stable:\n%s\nvs\n%s", data, again)
	}
}
