package export

import (
	"fmt"
	"io"
	"os"

	"git.sr.ht/~sbinet/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/canopy/pkg/tree"
)

// WritePNG draws rows as a PNG image. The bitmap font has no glyphs for the
// expand indicators, so they are drawn as triangles.
func WritePNG(w io.Writer, rows []tree.DisplayRow, opts ImageOptions) error {
	l := layoutFor(rows, opts)

	dc := gg.NewContext(l.width, l.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	if opts.Title != "" {
		dc.SetRGB(0.13, 0.13, 0.13)
		dc.DrawString(opts.Title, imagePadding, float64(imagePadding+l.rowHeight*2/3))
	}

	for i, row := range rows {
		x := float64(imagePadding + row.MarginLeft(l.unit))
		y := float64(l.rowY(i))

		// thumbnail placeholder
		dc.SetRGB(0.89, 0.89, 0.89)
		dc.DrawRectangle(x, y-thumbSize+3, thumbSize, thumbSize)
		dc.Fill()

		name := row.Record.DisplayName()
		tx := float64(l.textX(row))
		dc.SetRGB(0.13, 0.13, 0.13)
		dc.DrawString(name, tx, y)

		if row.HasChildren {
			nameWidth, _ := dc.MeasureString(name)
			drawCaret(dc, tx+nameWidth+8, y-4, row.Expanded)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// drawCaret draws a small right-pointing (collapsed) or down-pointing
// (expanded) triangle centred on cx, cy.
func drawCaret(dc *gg.Context, cx, cy float64, expanded bool) {
	const r = 4.0
	dc.SetRGB(0.4, 0.4, 0.4)
	if expanded {
		dc.MoveTo(cx-r, cy-r/2)
		dc.LineTo(cx+r, cy-r/2)
		dc.LineTo(cx, cy+r)
	} else {
		dc.MoveTo(cx-r/2, cy-r)
		dc.LineTo(cx+r, cy)
		dc.LineTo(cx-r/2, cy+r)
	}
	dc.ClosePath()
	dc.Fill()
}

// SavePNGToFile writes the PNG picture to filename.
func SavePNGToFile(rows []tree.DisplayRow, opts ImageOptions, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WritePNG(f, rows, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
