package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"

	"github.com/vanderheijden86/canopy/pkg/tree"
)

// DefaultIndentUnit is the pixel width of one indent level.
const DefaultIndentUnit = 20

// HTMLOptions configures RenderHTML.
type HTMLOptions struct {
	Title      string
	IndentUnit int // pixels per indent level (default: DefaultIndentUnit)
	// Interactive makes parent rows POST to /toggle/{id} when clicked. Only
	// meaningful when served by PreviewServer.
	Interactive bool
}

type htmlRow struct {
	ID        string
	Name      string
	Margin    int
	Clickable bool
	Glyph     string
	ImgSrc    string
	ImgAlt    string
}

type htmlPage struct {
	Title       string
	Rows        []htmlRow
	Interactive bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: system-ui, sans-serif; margin: 1rem; }
  .node-div { display: flex; align-items: center; gap: 0.4rem; padding: 2px 0; cursor: default; user-select: none; }
  .node-div.clickable { cursor: pointer; }
  .node-div.clickable:hover { background: #eef; }
  .node-image { width: 20px; height: 20px; object-fit: cover; }
  .caret-symbol { color: #666; }
  .empty { color: #888; font-style: italic; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="tree">
{{- range .Rows}}
<div class="node-div{{if .Clickable}} clickable{{end}}" data-id="{{.ID}}" style="margin-left: {{.Margin}}px">
{{- if .ImgSrc}}<img src="{{.ImgSrc}}" alt="{{.ImgAlt}}" class="node-image">{{end -}}
<span class="node-name">{{.Name}}</span>
{{- if .Glyph}}<span class="caret-symbol">{{.Glyph}}</span>{{end -}}
</div>
{{- else}}
<p class="empty">No records.</p>
{{- end}}
</div>
{{- if .Interactive}}
<script>
document.querySelectorAll('.node-div.clickable').forEach(function (el) {
  el.addEventListener('click', function () {
    fetch('/toggle/' + encodeURIComponent(el.dataset.id), { method: 'POST' });
  });
});
</script>
{{- end}}
</body>
</html>
`))

// RenderHTML writes a standalone page showing rows. Parents are clickable;
// leaves present no affordance.
func RenderHTML(w io.Writer, rows []tree.DisplayRow, opts HTMLOptions) error {
	unit := opts.IndentUnit
	if unit <= 0 {
		unit = DefaultIndentUnit
	}
	title := opts.Title
	if title == "" {
		title = "Tree"
	}

	page := htmlPage{
		Title:       title,
		Rows:        make([]htmlRow, len(rows)),
		Interactive: opts.Interactive,
	}
	for i, row := range rows {
		page.Rows[i] = htmlRow{
			ID:        row.ID.String(),
			Name:      row.Record.DisplayName(),
			Margin:    row.MarginLeft(unit),
			Clickable: row.Clickable(),
			Glyph:     row.Glyph(),
			ImgSrc:    row.Record.Thumbnail.Href,
			ImgAlt:    row.Record.Thumbnail.Description,
		}
	}

	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// SaveHTMLToFile renders rows to filename.
func SaveHTMLToFile(rows []tree.DisplayRow, opts HTMLOptions, filename string) error {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, rows, opts); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}
