package export

import (
	"fmt"
	"io"
	"os"

	svg "github.com/ajstarks/svgo"

	"github.com/vanderheijden86/canopy/pkg/tree"
)

// ImageOptions configures the SVG and PNG pictures.
type ImageOptions struct {
	Title      string
	IndentUnit int // pixels per indent level (default: DefaultIndentUnit)
	RowHeight  int // default 24
	Width      int // default: fits the widest row
}

const (
	defaultRowHeight = 24
	imagePadding     = 12
	thumbSize        = 16
	charWidth        = 8 // approximate advance used to size the canvas
)

type imageLayout struct {
	unit, rowHeight, width, height, top int
}

func layoutFor(rows []tree.DisplayRow, opts ImageOptions) imageLayout {
	l := imageLayout{
		unit:      opts.IndentUnit,
		rowHeight: opts.RowHeight,
		width:     opts.Width,
	}
	if l.unit <= 0 {
		l.unit = DefaultIndentUnit
	}
	if l.rowHeight <= 0 {
		l.rowHeight = defaultRowHeight
	}
	if opts.Title != "" {
		l.top = l.rowHeight + imagePadding/2
	}
	if l.width <= 0 {
		l.width = 200
		for _, row := range rows {
			w := l.textX(row) + charWidth*(len([]rune(row.Record.DisplayName()))+2) + imagePadding
			if w > l.width {
				l.width = w
			}
		}
	}
	l.height = l.top + len(rows)*l.rowHeight + 2*imagePadding
	return l
}

// rowY returns the text baseline of row i.
func (l imageLayout) rowY(i int) int {
	return imagePadding + l.top + i*l.rowHeight + l.rowHeight*2/3
}

// textX returns where a row's name starts, after its thumbnail slot.
func (l imageLayout) textX(row tree.DisplayRow) int {
	return imagePadding + row.MarginLeft(l.unit) + thumbSize + 6
}

// WriteSVG draws rows as an SVG document.
func WriteSVG(w io.Writer, rows []tree.DisplayRow, opts ImageOptions) error {
	l := layoutFor(rows, opts)

	canvas := svg.New(w)
	canvas.Start(l.width, l.height)
	canvas.Rect(0, 0, l.width, l.height, "fill:white")
	if opts.Title != "" {
		canvas.Title(opts.Title)
		canvas.Text(imagePadding, imagePadding+l.rowHeight*2/3, opts.Title,
			"font-family:sans-serif;font-size:16px;font-weight:bold;fill:#222")
	}

	canvas.Gstyle("font-family:sans-serif;font-size:13px;fill:#222")
	for i, row := range rows {
		x := imagePadding + row.MarginLeft(l.unit)
		y := l.rowY(i)

		if href := row.Record.Thumbnail.Href; href != "" {
			canvas.Image(x, y-thumbSize+3, thumbSize, thumbSize, href)
		} else {
			canvas.Rect(x, y-thumbSize+3, thumbSize, thumbSize, "fill:#e4e4e4")
		}

		name := row.Record.DisplayName()
		canvas.Text(l.textX(row), y, name)
		if g := row.Glyph(); g != "" {
			gx := l.textX(row) + charWidth*len([]rune(name)) + 6
			canvas.Text(gx, y, g, "fill:#666")
		}
	}
	canvas.Gend()
	canvas.End()
	return nil
}

// SaveSVGToFile writes the SVG picture to filename.
func SaveSVGToFile(rows []tree.DisplayRow, opts ImageOptions, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteSVG(f, rows, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
