package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/simp-lee/logger"
)

func boolPtr(b bool) *bool { return &b }

func TestSetupLogger_NilConfig(t *testing.T) {
	if _, err := SetupLogger(nil); err == nil {
		t.Fatal("expected an error for a nil log config")
	}
}

func TestSetupLogger_LevelMapping(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Info", "Info", slog.LevelInfo},
		{"invalid defaults to info", "invalid", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := SetupLogger(&LogConfig{Level: tt.level, Format: "text"})
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if !log.Enabled(context.TODO(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > slog.LevelDebug {
				below := tt.wantLevel - 1
				if log.Enabled(context.TODO(), below) {
					t.Errorf("expected level %v to be disabled (configured: %v)", below, tt.wantLevel)
				}
			}
		})
	}
}

func TestSetupLogger_ConsoleAndFile(t *testing.T) {
	tests := []struct {
		name string
		cfg  LogConfig
	}{
		{"console only text", LogConfig{Level: "info", Format: "text"}},
		{"console only json", LogConfig{Level: "warn", Format: "json"}},
		{"unknown format falls back to custom", LogConfig{Level: "info", Format: "whatever"}},
		{"color disabled", LogConfig{Level: "info", Format: "text", Color: boolPtr(false)}},
		{
			"console and file with rotation",
			LogConfig{
				Level: "info", Format: "json",
				MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3,
				CompressRotated: boolPtr(true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.MaxSizeMB > 0 {
				cfg.FilePath = filepath.Join(t.TempDir(), "setup.log")
			}

			log, err := SetupLogger(&cfg)
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if log == nil {
				t.Fatal("SetupLogger returned nil")
			}
		})
	}
}

func TestSetupLogger_SetsDefault(t *testing.T) {
	log, err := SetupLogger(&LogConfig{Level: "warn", Format: "text"})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()

	if slog.Default().Handler() != log.Handler() {
		t.Error("SetupLogger did not set slog.Default()")
	}
}

func TestFileOptions_RotationFieldCount(t *testing.T) {
	// FilePath + FileFormat are always present; each non-zero rotation
	// setting adds one option.
	const base = 2

	tests := []struct {
		name      string
		cfg       LogConfig
		wantCount int
	}{
		{
			name:      "no rotation settings",
			cfg:       LogConfig{FilePath: "/tmp/a.log"},
			wantCount: base,
		},
		{
			name:      "max size only",
			cfg:       LogConfig{FilePath: "/tmp/a.log", MaxSizeMB: 10},
			wantCount: base + 1,
		},
		{
			name:      "retention only",
			cfg:       LogConfig{FilePath: "/tmp/a.log", RetentionDays: 7},
			wantCount: base + 1,
		},
		{
			name:      "max backups only",
			cfg:       LogConfig{FilePath: "/tmp/a.log", MaxBackups: 3},
			wantCount: base + 1,
		},
		{
			name:      "compress false still counts",
			cfg:       LogConfig{FilePath: "/tmp/a.log", CompressRotated: boolPtr(false)},
			wantCount: base + 1,
		},
		{
			name: "all rotation settings",
			cfg: LogConfig{
				FilePath: "/tmp/a.log", MaxSizeMB: 50, RetentionDays: 30,
				MaxBackups: 5, CompressRotated: boolPtr(true),
			},
			wantCount: base + 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fileOptions(&tt.cfg, logger.FormatText)
			if len(opts) != tt.wantCount {
				t.Errorf("option count = %d, want %d", len(opts), tt.wantCount)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want logger.OutputFormat
	}{
		{"text", logger.FormatText},
		{"TEXT", logger.FormatText},
		{"json", logger.FormatJSON},
		{"custom", logger.FormatCustom},
		{"", logger.FormatCustom},
		{"yaml", logger.FormatCustom},
	}

	for _, tt := range tests {
		if got := parseFormat(tt.in); got != tt.want {
			t.Errorf("parseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
