package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
)

// indentWidth is the number of terminal columns per indent level.
const indentWidth = 2

// TreeModel is the scrollable row list. It owns the cursor and scroll offset;
// the tree itself lives in the controller, and rows are re-read from it after
// every change.
type TreeModel struct {
	ctrl           *tree.Controller
	rows           []tree.DisplayRow // Snapshot of ctrl.Rows()
	cursor         int               // Index into rows
	viewportOffset int               // Index of the first visible row
	theme          Theme
	width          int
	height         int
}

// NewTreeModel creates a list over ctrl.
func NewTreeModel(ctrl *tree.Controller, theme Theme) TreeModel {
	t := TreeModel{
		ctrl:  ctrl,
		theme: theme,
	}
	t.Refresh()
	return t
}

// SetSize sets the area available to the list.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Refresh re-reads the rows from the controller. The cursor stays on the same
// record when it is still shown, else moves to its nearest shown ancestor.
func (t *TreeModel) Refresh() {
	var selected *tree.DisplayRow
	if row, ok := t.SelectedRow(); ok {
		selected = &row
	}

	t.rows = t.ctrl.Rows()

	if selected != nil && !t.SelectByID(selected.ID) {
		found := false
		for p := selected.Record.Parent; !p.IsRoot(); {
			if t.SelectByID(p) {
				found = true
				break
			}
			row, ok := t.lookupParent(p)
			if !ok {
				break
			}
			p = row
		}
		if !found {
			t.clampCursor()
		}
	} else if selected == nil {
		t.clampCursor()
	}
	t.ensureCursorVisible()
}

// lookupParent returns the parent ID of a record that is in the tree but
// currently hidden.
func (t *TreeModel) lookupParent(id model.ID) (model.ID, bool) {
	if n := tree.Find(t.ctrl.Roots(), id); n != nil {
		return n.Record.Parent, true
	}
	return "", false
}

func (t *TreeModel) clampCursor() {
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

// Rows returns the rows currently displayed.
func (t *TreeModel) Rows() []tree.DisplayRow {
	return t.rows
}

// Cursor returns the selected row index.
func (t *TreeModel) Cursor() int {
	return t.cursor
}

// SelectedRow returns the row under the cursor.
func (t *TreeModel) SelectedRow() (tree.DisplayRow, bool) {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor], true
	}
	return tree.DisplayRow{}, false
}

// SelectByID moves the cursor to the row with the given ID.
func (t *TreeModel) SelectByID(id model.ID) bool {
	for i, row := range t.rows {
		if row.ID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

func (t *TreeModel) PageDown() {
	t.cursor = min(t.cursor+t.pageSize(), len(t.rows)-1)
	t.clampCursor()
	t.ensureCursorVisible()
}

func (t *TreeModel) PageUp() {
	t.cursor = max(t.cursor-t.pageSize(), 0)
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

func (t *TreeModel) JumpToBottom() {
	if len(t.rows) > 0 {
		t.cursor = len(t.rows) - 1
		t.ensureCursorVisible()
	}
}

// JumpToParent moves the cursor to the parent of the selected row.
func (t *TreeModel) JumpToParent() {
	row, ok := t.SelectedRow()
	if !ok || row.Record.IsRoot() {
		return
	}
	t.SelectByID(row.Record.Parent)
}

// ToggleSelected expands or collapses the selected row. Leaves are ignored.
func (t *TreeModel) ToggleSelected() bool {
	row, ok := t.SelectedRow()
	if !ok || !row.Clickable() {
		return false
	}
	if !t.ctrl.Click(row.ID) {
		return false
	}
	t.Refresh()
	return true
}

// ClickLine handles a mouse click on the given line of the list area: the
// row under it is selected and, if it has children, toggled.
func (t *TreeModel) ClickLine(line int) bool {
	idx := t.viewportOffset + line
	if line < 0 || idx >= len(t.rows) || line >= t.visibleHeight() {
		return false
	}
	t.cursor = idx
	return t.ToggleSelected()
}

func (t *TreeModel) ExpandAll() {
	t.ctrl.ExpandAll()
	t.Refresh()
}

func (t *TreeModel) CollapseAll() {
	t.ctrl.CollapseAll()
	t.Refresh()
}

func (t *TreeModel) pageSize() int {
	return max(t.visibleHeight()-1, 1)
}

func (t *TreeModel) visibleHeight() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

func (t *TreeModel) ensureCursorVisible() {
	h := t.visibleHeight()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+h {
		t.viewportOffset = t.cursor - h + 1
	}
	if maxOffset := max(len(t.rows)-h, 0); t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// View renders the visible slice of rows.
func (t *TreeModel) View() string {
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	end := min(t.viewportOffset+t.visibleHeight(), len(t.rows))
	lines := make([]string, 0, end-t.viewportOffset)
	for i := t.viewportOffset; i < end; i++ {
		lines = append(lines, t.renderRow(t.rows[i], i == t.cursor))
	}
	return strings.Join(lines, "\n")
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	muted := r.NewStyle().Foreground(t.theme.Muted)

	var sb strings.Builder
	sb.WriteString(t.theme.Header.Render("Tree"))
	sb.WriteString("\n\n")
	if err := t.ctrl.Err(); err != nil {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Error).Render(err.Error()))
		return sb.String()
	}
	sb.WriteString(muted.Render("No records to display."))
	return sb.String()
}

func (t *TreeModel) renderRow(row tree.DisplayRow, selected bool) string {
	r := t.theme.Renderer
	var sb strings.Builder

	sb.WriteString(strings.Repeat(" ", row.Indent*indentWidth))

	indicator := row.Glyph()
	if indicator == "" {
		indicator = " "
	}
	sb.WriteString(r.NewStyle().Foreground(t.theme.Secondary).Render(indicator))
	sb.WriteString(" ")

	used := row.Indent*indentWidth + 2
	suffix := ""
	if row.Record.Thumbnail.Href != "" {
		suffix = " ◆"
	}
	maxName := t.width - used - runewidth.StringWidth(suffix)
	if t.width <= 0 {
		maxName = 60
	}
	name := truncateName(row.Record.DisplayName(), maxName)

	nameStyle := r.NewStyle().Foreground(t.theme.Base)
	if row.HasChildren {
		nameStyle = nameStyle.Bold(true)
	}
	sb.WriteString(nameStyle.Render(name))
	if suffix != "" {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(suffix))
	}

	line := sb.String()
	if selected {
		style := t.theme.Selected
		if t.width > 0 {
			style = style.Width(t.width)
		}
		line = style.Render(line)
	}
	return line
}

// truncateName shortens s to at most maxWidth terminal columns.
func truncateName(s string, maxWidth int) string {
	if maxWidth <= 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// Summary describes the tree for the header line.
func (t *TreeModel) Summary() string {
	shown := len(t.rows)
	total := t.ctrl.Len()
	s := fmt.Sprintf("%d/%d shown", shown, total)
	if n := len(t.ctrl.Warnings()); n > 0 {
		s += fmt.Sprintf(" · %d skipped", n)
	}
	return s
}
