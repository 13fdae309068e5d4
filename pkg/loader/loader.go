// Package loader supplies flat record lists to the tree controller from
// files, HTTP endpoints and SQLite databases, and watches file sources for
// changes.
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// Source loads a flat record list.
type Source interface {
	Load(ctx context.Context) ([]model.Record, error)
	// Name identifies the source in logs and errors.
	Name() string
}

// LoadError wraps a failure with the source that produced it.
type LoadError struct {
	Source string
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Format identifies how a file source is decoded.
type Format string

const (
	FormatAuto   Format = ""
	FormatJSON   Format = "json"  // JSON array of records
	FormatJSONL  Format = "jsonl" // One JSON record per line
	FormatYAML   Format = "yaml"  // YAML sequence of records
	FormatSQLite Format = "sqlite"
)

// DetectFormat guesses a format from a path's extension. JSON files holding
// one object per line are handled by the JSON decoder as well.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".yaml", ".yml":
		return FormatYAML
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	default:
		return FormatJSON
	}
}

// Open returns the source for a location string: http(s) URLs load over
// HTTP, SQLite files through the database driver, anything else as a file.
func Open(location string) (Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("empty source location")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, nil), nil
	}
	if DetectFormat(location) == FormatSQLite {
		return NewSQLiteSource(location, ""), nil
	}
	return NewFileSource(location, FormatAuto), nil
}

// tagSource stamps records with the name of the source they came from.
func tagSource(records []model.Record, name string) []model.Record {
	for i := range records {
		if records[i].Source == "" {
			records[i].Source = name
		}
	}
	return records
}
