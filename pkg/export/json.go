package export

import (
	"io"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
)

// RobotRow is the machine-readable form of a display row.
type RobotRow struct {
	ID          model.ID         `json:"id"`
	Parent      model.ID         `json:"parent"`
	Name        string           `json:"name"`
	Indent      int              `json:"indent"`
	HasChildren bool             `json:"has_children"`
	Expanded    bool             `json:"expanded"`
	Glyph       string           `json:"glyph,omitempty"`
	Thumbnail   *model.Thumbnail `json:"thumbnail,omitempty"`
}

// RobotRows converts display rows for JSON output.
func RobotRows(rows []tree.DisplayRow) []RobotRow {
	out := make([]RobotRow, len(rows))
	for i, row := range rows {
		out[i] = RobotRow{
			ID:          row.ID,
			Parent:      row.Record.Parent,
			Name:        row.Record.DisplayName(),
			Indent:      row.Indent,
			HasChildren: row.HasChildren,
			Expanded:    row.Expanded,
			Glyph:       row.Glyph(),
		}
		if !row.Record.Thumbnail.IsZero() {
			thumb := row.Record.Thumbnail
			out[i].Thumbnail = &thumb
		}
	}
	return out
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
