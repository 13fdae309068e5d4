// Package export renders the current display rows of a tree as Markdown,
// HTML, SVG, PNG or JSON, and serves a live HTML preview.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/canopy/pkg/tree"
)

// MarkdownOptions configures GenerateMarkdown.
type MarkdownOptions struct {
	Title string
	// Timestamp adds a "Generated:" line when set
	Timestamp time.Time
	// Thumbnails renders each thumbnail as an inline image below its row
	Thumbnails bool
}

// GenerateMarkdown renders rows as a nested bullet list. Each indent level is
// two spaces; parents carry their expand glyph.
func GenerateMarkdown(rows []tree.DisplayRow, opts MarkdownOptions) string {
	var sb strings.Builder

	if opts.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", opts.Title)
	}
	if !opts.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "Generated: %s\n\n", opts.Timestamp.Format(time.RFC1123))
	}

	if len(rows) == 0 {
		sb.WriteString("_No records._\n")
		return sb.String()
	}

	for _, row := range rows {
		pad := strings.Repeat("  ", row.Indent)
		sb.WriteString(pad)
		sb.WriteString("- ")
		if g := row.Glyph(); g != "" {
			sb.WriteString(g)
			sb.WriteString(" ")
		}
		sb.WriteString(escapeMarkdown(row.Record.DisplayName()))
		fmt.Fprintf(&sb, " `%s`\n", row.ID)

		if opts.Thumbnails && row.Record.Thumbnail.Href != "" {
			fmt.Fprintf(&sb, "%s  ![%s](%s)\n", pad,
				escapeMarkdown(row.Record.Thumbnail.Description), row.Record.Thumbnail.Href)
		}
	}
	return sb.String()
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(rows []tree.DisplayRow, opts MarkdownOptions, filename string) error {
	return os.WriteFile(filename, []byte(GenerateMarkdown(rows, opts)), 0644)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
