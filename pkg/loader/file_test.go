package loader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vanderheijden86/canopy/pkg/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.ID) + "<" + string(r.Parent)
	}
	return out
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"records.json", FormatJSON},
		{"records.JSONL", FormatJSONL},
		{"records.ndjson", FormatJSONL},
		{"records.yaml", FormatYAML},
		{"records.yml", FormatYAML},
		{"records.db", FormatSQLite},
		{"records.sqlite3", FormatSQLite},
		{"records", FormatJSON},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		location string
		want     string
	}{
		{"https://example.com/records.json", "*loader.HTTPSource"},
		{"http://localhost:8080/api", "*loader.HTTPSource"},
		{"data/records.db", "*loader.SQLiteSource"},
		{"data/records.yaml", "*loader.FileSource"},
	}
	for _, tt := range tests {
		src, err := Open(tt.location)
		if err != nil {
			t.Fatalf("Open(%q): %v", tt.location, err)
		}
		var got string
		switch src.(type) {
		case *HTTPSource:
			got = "*loader.HTTPSource"
		case *SQLiteSource:
			got = "*loader.SQLiteSource"
		case *FileSource:
			got = "*loader.FileSource"
		}
		if got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.location, got, tt.want)
		}
		if src.Name() != tt.location {
			t.Errorf("Name() = %q, want %q", src.Name(), tt.location)
		}
	}

	if _, err := Open("   "); err == nil {
		t.Error("expected error for empty location")
	}
}

func TestFileSource_JSONArray(t *testing.T) {
	path := writeFile(t, "records.json", `[
		{"id": 1, "parent": null, "name": "A"},
		{"id": 2, "parent": 1, "name": "B"},
		{"id": 3, "parent": 2, "name": "C", "thumbnail": {"href": "c.png", "description": "see"}}
	]`)

	records, err := LoadRecordsFromFile(path)
	if err != nil {
		t.Fatalf("LoadRecordsFromFile: %v", err)
	}
	if diff := cmp.Diff([]string{"1<", "2<1", "3<2"}, ids(records)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if records[2].Thumbnail.Href != "c.png" {
		t.Errorf("thumbnail not decoded: %+v", records[2].Thumbnail)
	}
	for _, r := range records {
		if r.Source != path {
			t.Errorf("record %s source = %q, want %q", r.ID, r.Source, path)
		}
	}
}

func TestFileSource_JSONLines(t *testing.T) {
	content := "{\"id\":\"a\",\"name\":\"A\"}\n\n{\"id\":\"b\",\"parent\":\"a\",\"name\":\"B\"}\n"
	for _, name := range []string{"records.jsonl", "records.json"} {
		t.Run(name, func(t *testing.T) {
			records, err := LoadRecordsFromFile(writeFile(t, name, content))
			if err != nil {
				t.Fatalf("LoadRecordsFromFile: %v", err)
			}
			if diff := cmp.Diff([]string{"a<", "b<a"}, ids(records)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFileSource_MalformedLine(t *testing.T) {
	path := writeFile(t, "records.jsonl", "{\"id\":\"a\"}\n{not json}\n")
	_, err := LoadRecordsFromFile(path)
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should name the line, got %v", err)
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Source != path {
		t.Errorf("expected LoadError for %s, got %v", path, err)
	}
}

func TestFileSource_YAML(t *testing.T) {
	path := writeFile(t, "records.yaml", `
- id: 1
  name: A
- id: 2
  parent: 1
  name: B
  thumbnail:
    href: b.png
`)
	records, err := LoadRecordsFromFile(path)
	if err != nil {
		t.Fatalf("LoadRecordsFromFile: %v", err)
	}
	if diff := cmp.Diff([]string{"1<", "2<1"}, ids(records)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if records[1].Thumbnail.Href != "b.png" {
		t.Errorf("thumbnail not decoded: %+v", records[1].Thumbnail)
	}
}

func TestFileSource_Empty(t *testing.T) {
	for _, name := range []string{"empty.json", "empty.yaml", "empty.jsonl"} {
		records, err := LoadRecordsFromFile(writeFile(t, name, "  \n"))
		if err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if len(records) != 0 {
			t.Errorf("%s: expected no records, got %d", name, len(records))
		}
	}
}

func TestFileSource_Missing(t *testing.T) {
	_, err := LoadRecordsFromFile(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFileSource(writeFile(t, "r.json", "[]"), FormatAuto).Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	if _, err := Decode(strings.NewReader("[]"), Format("xml")); err == nil {
		t.Error("expected error for unsupported format")
	}
}
