package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"violin/internal/models"
	"violin/internal/scoring"
	"violin/internal/util"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("VIOLIN_SCORE_BATCH_SIZE", "")
	t.Setenv("VIOLIN_SCORE_WORKERS", "not-a-number")
	t.Setenv("VIOLIN_TEMPORAL_TASK_QUEUE", "scoring")
	t.Setenv("VIOLIN_LOG_LEVEL", "warning")

	cfg := Load()
	if cfg.ScoreBatchSize != 500 || cfg.ScoreWorkers != 4 {
		t.Fatalf("unexpected numeric defaults %d %d", cfg.ScoreBatchSize, cfg.ScoreWorkers)
	}
	if cfg.TemporalTaskQueue != "scoring" {
		t.Fatalf("task queue override ignored: %q", cfg.TemporalTaskQueue)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("scored", "rows", 3)
	if !strings.Contains(stderr.String(), "rows=3") {
		t.Fatalf("text output missing: %q", stderr.String())
	}
	if !strings.Contains(file.String(), `"rows":3`) || strings.Contains(file.String(), "hidden") {
		t.Fatalf("json output unexpected: %q", file.String())
	}
}

func TestSetupLoggerFallsBackToStderr(t *testing.T) {
	logger, cleanup := SetupLogger(filepath.Join(t.TempDir(), "missing", "violin.log"), slog.LevelInfo)
	if logger == nil {
		t.Fatalf("expected a logger")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestProfileOptions(t *testing.T) {
	p, err := ParseProfile([]byte(`
preset: corroborate
scheme: 3
attributes: [mechanism, "Cell Line"]
connection_default: I
workers: 8
kind_values:
  strong corroboration: 50
  weak corroboration1: 7
match_values:
  neither: 0
`))
	if err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	opts, err := p.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Scheme != scoring.Scheme3 || opts.Workers != 8 || opts.ConnectionDefault != models.ConnectionIndirect {
		t.Fatalf("unexpected options %+v", opts)
	}
	if len(opts.Attributes) != 2 || opts.Attributes[0] != scoring.AttrMechanism || opts.Attributes[1] != scoring.AttrCellLine {
		t.Fatalf("attributes = %v", opts.Attributes)
	}
	if opts.KindValues[scoring.KindStrongCorroboration] != 50 {
		t.Fatalf("kind override ignored")
	}
	if _, ok := opts.KindValues[scoring.KindFlagged5]; !ok {
		t.Fatalf("scheme 3 profile should carry flagged5")
	}
	if opts.MatchValues[scoring.MatchNeither] != 0 || opts.MatchValues[scoring.MatchBoth] != 100 {
		t.Fatalf("unexpected match values %v", opts.MatchValues)
	}
}

func TestProfileOptionsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"bad scheme", "scheme: 4", util.ErrInvalidScheme},
		{"bad preset", "preset: strict", util.ErrUnknownPreset},
		{"bad attribute", "attributes: [color]", util.ErrInvalidAttribute},
		{"bad connection", "connection_default: maybe", util.ErrInvalidConnection},
		{"bad kind", "kind_values: {sideways: 1}", util.ErrUnknownKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseProfile([]byte(tc.yaml))
			if err != nil {
				t.Fatalf("parse profile: %v", err)
			}
			if _, err := p.Options(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadProfileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("preset: extend_subcategories\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	opts, err := p.Options()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Scheme != scoring.Scheme1 || opts.KindValues[scoring.KindHangingExtension] != 40 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for a missing profile")
	}
}
