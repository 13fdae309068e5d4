package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// Context identifies the pane that has focus, for the help overlay.
type Context string

const (
	ContextTree   Context = "tree"
	ContextDetail Context = "detail"
)

// ContextHelpContent holds a short description for each context, shown above
// the key bindings.
var ContextHelpContent = map[Context]string{
	ContextTree:   contextHelpTree,
	ContextDetail: contextHelpDetail,
}

// GetContextHelp returns the description for ctx, or the generic one.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the help modal: a description of the focused
// pane followed by every key binding.
func RenderContextHelp(ctx Context, theme Theme, keys KeyMap, width int) string {
	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().Bold(true).Foreground(theme.Primary)
	contentStyle := r.NewStyle().Foreground(theme.Subtext)
	footerStyle := r.NewStyle().Foreground(theme.Muted).Italic(true)

	// One binding group per block so that no column is cut off.
	h := help.New()
	groups := keys.FullHelp()
	blocks := make([]string, 0, len(groups))
	for _, group := range groups {
		blocks = append(blocks, h.FullHelpView([][]key.Binding{group}))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-6)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(GetContextHelp(ctx)))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return modalStyle.Render(b.String())
}

const contextHelpTree = `Records are nested under their parents.
▾ marks an expanded node, ▸ a collapsed one.
Toggling a node shows or hides its whole subtree.
Click a row with the mouse to toggle it.`

const contextHelpDetail = `The detail pane shows the selected record.
Scroll with j/k; tab returns to the tree.`

const contextHelpGeneric = `Browse the record tree with the keys below.`
