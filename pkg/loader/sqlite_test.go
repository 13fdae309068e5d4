package loader

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createRecordsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE records (
			id TEXT PRIMARY KEY,
			parent TEXT,
			name TEXT,
			thumbnail_href TEXT,
			thumbnail_description TEXT
		)`,
		`INSERT INTO records VALUES ('1', NULL, 'A', 'a.png', 'alpha')`,
		`INSERT INTO records VALUES ('2', '1', 'B', NULL, NULL)`,
		`INSERT INTO records VALUES ('3', '1', NULL, NULL, NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return path
}

func TestSQLiteSource_Load(t *testing.T) {
	path := createRecordsDB(t)

	records, err := NewSQLiteSource(path, "").Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"1<", "2<1", "3<1"}, ids(records)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if records[0].Thumbnail.Href != "a.png" || records[0].Thumbnail.Description != "alpha" {
		t.Errorf("thumbnail = %+v", records[0].Thumbnail)
	}
	if records[2].Name != "" {
		t.Errorf("expected NULL name to decode empty, got %q", records[2].Name)
	}
	if records[0].Source != path {
		t.Errorf("source = %q, want %q", records[0].Source, path)
	}
}

func TestSQLiteSource_CustomQuery(t *testing.T) {
	path := createRecordsDB(t)
	query := `SELECT id, parent, name, thumbnail_href, thumbnail_description
		FROM records WHERE parent IS NOT NULL ORDER BY id DESC`

	records, err := NewSQLiteSource(path, query).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"3<1", "2<1"}, ids(records)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteSource_BadQuery(t *testing.T) {
	path := createRecordsDB(t)
	_, err := NewSQLiteSource(path, "SELECT nope FROM missing").Load(context.Background())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestSQLiteSource_MissingFile(t *testing.T) {
	_, err := NewSQLiteSource(filepath.Join(t.TempDir(), "none.db"), "").Load(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
