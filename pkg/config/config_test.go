package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/canopy/pkg/loader"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DirName, FileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: main
    location: records.json
  - location: https://example.com/tree.jsonl
    format: jsonl
  - location: data.db
    query: SELECT id, parent, name, '', '' FROM nodes
    enabled: false
view:
  collapse_all: true
watch:
  enabled: true
  debounce: 500ms
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(cfg.Sources))
	}
	if !cfg.View.CollapseAll {
		t.Error("expected collapse_all")
	}
	if cfg.View.IndentUnit != DefaultIndentUnit {
		t.Errorf("IndentUnit = %d, want default %d", cfg.View.IndentUnit, DefaultIndentUnit)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}
	if cfg.Sources[2].IsEnabled() {
		t.Error("expected third source disabled")
	}
	if cfg.Sources[1].GetName() != "tree.jsonl" {
		t.Errorf("GetName() = %q", cfg.Sources[1].GetName())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"MissingLocation", "sources:\n  - name: x\n", "location is required"},
		{"UnknownFormat", "sources:\n  - location: a.csv\n    format: csv\n", "unknown format"},
		{"Duplicate", "sources:\n  - location: a.json\n  - location: a.json\n", "duplicate location"},
		{"BadYAML", "sources: [\n", "parsing config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.View.IndentUnit != DefaultIndentUnit {
		t.Errorf("IndentUnit = %d", cfg.View.IndentUnit)
	}
	if cfg.Watch.Debounce != loader.DefaultDebounce {
		t.Errorf("Debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.Discovery.MaxDepth != DefaultMaxDepth || len(cfg.Discovery.ScanPaths) != 1 {
		t.Errorf("unexpected discovery defaults %+v", cfg.Discovery)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DirName, FileName)
	cfg := Defaults()
	cfg.Sources = []SourceConfig{{Location: "records.yaml"}}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(loaded.Sources) != 1 || loaded.Sources[0].Location != "records.yaml" {
		t.Errorf("unexpected sources %+v", loaded.Sources)
	}
}

func TestSourceConfig_Source(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name string
		cfg  SourceConfig
		check func(t *testing.T, src loader.Source)
	}{
		{"RelativeFile", SourceConfig{Location: "records.json"}, func(t *testing.T, src loader.Source) {
			fs, ok := src.(*loader.FileSource)
			if !ok {
				t.Fatalf("expected FileSource, got %T", src)
			}
			if fs.Path != filepath.Join(base, "records.json") {
				t.Errorf("Path = %q", fs.Path)
			}
		}},
		{"SQLiteByExtension", SourceConfig{Location: "data.db", Query: "SELECT 1"}, func(t *testing.T, src loader.Source) {
			ss, ok := src.(*loader.SQLiteSource)
			if !ok {
				t.Fatalf("expected SQLiteSource, got %T", src)
			}
			if ss.Query != "SELECT 1" {
				t.Errorf("Query = %q", ss.Query)
			}
		}},
		{"URL", SourceConfig{Location: "https://example.com/x", Format: "yaml"}, func(t *testing.T, src loader.Source) {
			hs, ok := src.(*loader.HTTPSource)
			if !ok {
				t.Fatalf("expected HTTPSource, got %T", src)
			}
			if hs.URL != "https://example.com/x" || hs.Format != loader.FormatYAML {
				t.Errorf("unexpected source %+v", hs)
			}
		}},
		{"ExplicitFormat", SourceConfig{Location: "/abs/records.txt", Format: "jsonl"}, func(t *testing.T, src loader.Source) {
			fs, ok := src.(*loader.FileSource)
			if !ok {
				t.Fatalf("expected FileSource, got %T", src)
			}
			if fs.Path != "/abs/records.txt" || fs.Format != loader.FormatJSONL {
				t.Errorf("unexpected source %+v", fs)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.cfg.Source(base)
			if err != nil {
				t.Fatalf("Source: %v", err)
			}
			tt.check(t, src)
		})
	}
}

func TestOpenSources(t *testing.T) {
	off := false
	cfg := Config{Sources: []SourceConfig{
		{Location: "a.json"},
		{Location: "b.json", Enabled: &off},
	}}
	src, err := cfg.OpenSources("")
	if err != nil {
		t.Fatalf("OpenSources: %v", err)
	}
	if _, ok := src.(*loader.FileSource); !ok {
		t.Errorf("expected single enabled source unwrapped, got %T", src)
	}

	cfg.Sources[0].Enabled = &off
	if _, err := cfg.OpenSources(""); err == nil {
		t.Error("expected error with no enabled sources")
	}
}

func TestFindConfig(t *testing.T) {
	t.Setenv(DirEnv, "")
	path := writeConfig(t, "sources: []\n")
	root := filepath.Dir(filepath.Dir(path))
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfig(sub)
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if found != path {
		t.Errorf("FindConfig = %q, want %q", found, path)
	}
}

func TestFindConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "sources: []\n")
	t.Setenv(DirEnv, filepath.Dir(path))

	found, err := FindConfig(t.TempDir())
	if err != nil {
		t.Fatalf("FindConfig: %v", err)
	}
	if found != path {
		t.Errorf("FindConfig = %q, want %q", found, path)
	}
	if Dir("/somewhere") != filepath.Dir(path) {
		t.Errorf("Dir ignored %s", DirEnv)
	}
}
