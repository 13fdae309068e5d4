package loader

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// DefaultQuery reads the records table. Columns must come back in the order
// id, parent, name, thumbnail href, thumbnail description; parent may be NULL.
const DefaultQuery = `SELECT id, parent, name, thumbnail_href, thumbnail_description
FROM records ORDER BY rowid`

// SQLiteSource reads records from a SQLite database.
type SQLiteSource struct {
	Path  string
	Query string
}

// NewSQLiteSource creates a SQLite source. An empty query uses DefaultQuery.
func NewSQLiteSource(path, query string) *SQLiteSource {
	if query == "" {
		query = DefaultQuery
	}
	return &SQLiteSource{Path: path, Query: query}
}

// Name returns the database path.
func (s *SQLiteSource) Name() string {
	return s.Path
}

// Load opens the database and runs the query.
func (s *SQLiteSource) Load(ctx context.Context) ([]model.Record, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return nil, &LoadError{Source: s.Path, Cause: err}
	}
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, &LoadError{Source: s.Path, Cause: fmt.Errorf("opening database: %w", err)}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.Query)
	if err != nil {
		return nil, &LoadError{Source: s.Path, Cause: fmt.Errorf("querying records: %w", err)}
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			id                       string
			parent, name, href, desc sql.NullString
		)
		if err := rows.Scan(&id, &parent, &name, &href, &desc); err != nil {
			return nil, &LoadError{Source: s.Path, Cause: fmt.Errorf("scanning record: %w", err)}
		}
		records = append(records, model.Record{
			ID:     model.ID(id),
			Parent: model.ID(parent.String),
			Name:   name.String,
			Thumbnail: model.Thumbnail{
				Href:        href.String,
				Description: desc.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Source: s.Path, Cause: fmt.Errorf("iterating records: %w", err)}
	}
	return tagSource(records, s.Path), nil
}
