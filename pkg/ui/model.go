// Package ui provides the terminal user interface: a scrollable tree list
// with a Markdown detail pane, driven by a tree.Controller.
package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
)

// SplitViewThreshold is the terminal width from which the detail pane is
// shown next to the tree instead of replacing it.
const SplitViewThreshold = 100

// Header and footer take one line each.
const (
	headerHeight = 1
	footerHeight = 1
)

type focus int

const (
	focusTree focus = iota
	focusDetail
)

// clipboardWriteAll is replaced in tests.
var clipboardWriteAll = clipboard.WriteAll

// TreeChangedMsg is delivered after the controller's rows changed, whoever
// changed them.
type TreeChangedMsg struct{}

type clipboardMsg struct {
	id  model.ID
	err error
}

// ModelOptions configures NewModel.
type ModelOptions struct {
	Title string
	// ShowDetail opens the detail pane on start.
	ShowDetail bool
	// CollapseOnLoad collapses every node after each reload.
	CollapseOnLoad bool
	Theme          *Theme
}

// Model is the bubbletea model of the viewer.
type Model struct {
	ctrl  *tree.Controller
	tree  TreeModel
	keys  KeyMap
	help  help.Model
	theme Theme
	md    *MarkdownRenderer

	detail      viewport.Model
	showDetail  bool
	showHelp    bool
	focused     focus
	isSplitView bool

	title          string
	collapseOnLoad bool
	status         string
	statusIsError  bool

	changes     <-chan struct{}
	unsubscribe func()

	ready  bool
	width  int
	height int
}

// NewModel creates the viewer over ctrl. Call Close when the program exits.
func NewModel(ctrl *tree.Controller, opts ModelOptions) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	title := opts.Title
	if title == "" {
		title = "cv"
	}

	changes, unsubscribe := ctrl.Subscribe()
	h := help.New()
	h.ShortSeparator = " • "

	return Model{
		ctrl:           ctrl,
		tree:           NewTreeModel(ctrl, theme),
		keys:           DefaultKeyMap(),
		help:           h,
		theme:          theme,
		md:             NewMarkdownRendererWithTheme(60, theme),
		detail:         viewport.New(60, 20),
		showDetail:     opts.ShowDetail,
		title:          title,
		collapseOnLoad: opts.CollapseOnLoad,
		changes:        changes,
		unsubscribe:    unsubscribe,
	}
}

// Close stops listening for controller changes.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return TreeChangedMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case TreeChangedMsg:
		m.tree.Refresh()
		m.updateDetail()
		cmds = append(cmds, waitForChange(m.changes))

	case SnapshotReadyMsg:
		if msg.Snapshot != nil {
			if err := m.ctrl.LoadRecords(msg.Snapshot.Records); err != nil {
				m.setError(fmt.Sprintf("reload failed: %v", err))
				break
			}
			if m.collapseOnLoad {
				m.ctrl.CollapseAll()
			}
			m.tree.Refresh()
			m.updateDetail()
			m.setStatus(fmt.Sprintf("reloaded %d records", len(msg.Snapshot.Records)))
		}

	case SnapshotErrorMsg:
		m.setError(fmt.Sprintf("reload failed, keeping previous tree: %v", msg.Err))

	case clipboardMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("copy failed: %v", msg.err))
		} else {
			m.setStatus(fmt.Sprintf("copied %s", msg.id))
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		cmd, quit := m.handleKey(msg)
		if quit {
			return m, tea.Quit
		}
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
			m.showHelp = false
			return nil, false
		}
		return nil, key.Matches(msg, m.keys.Quit)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.treeHidden() {
			m.showDetail = false
			m.focused = focusTree
			return nil, false
		}
		return nil, true
	case msg.String() == "esc":
		if m.focused == focusDetail {
			m.focused = focusTree
			if !m.isSplitView {
				m.showDetail = false
			}
		}
		return nil, false
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return nil, false
	case key.Matches(msg, m.keys.Detail):
		m.cycleDetail()
		return nil, false
	}

	if m.focused == focusDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return cmd, false
	}

	moved := true
	switch {
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.Top):
		m.tree.JumpToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.tree.JumpToBottom()
	case key.Matches(msg, m.keys.Parent):
		m.tree.JumpToParent()
	case key.Matches(msg, m.keys.Toggle):
		m.tree.ToggleSelected()
	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandAll()
		m.setStatus("expanded all")
	case key.Matches(msg, m.keys.CollapseAll):
		m.tree.CollapseAll()
		m.setStatus("collapsed all")
	case key.Matches(msg, m.keys.Copy):
		if row, ok := m.tree.SelectedRow(); ok {
			return copyIDCmd(row.ID), false
		}
		moved = false
	default:
		moved = false
	}
	if moved {
		m.updateDetail()
	}
	return nil, false
}

func copyIDCmd(id model.ID) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{id: id, err: clipboardWriteAll(id.String())}
	}
}

// cycleDetail steps through the detail pane states. In split view: hidden,
// shown beside the tree, focused. In a narrow terminal the detail replaces
// the tree while it has focus.
func (m *Model) cycleDetail() {
	switch {
	case m.isSplitView && !m.showDetail:
		m.showDetail, m.focused = true, focusTree
	case m.focused == focusTree:
		m.showDetail, m.focused = true, focusDetail
	default:
		m.showDetail, m.focused = false, focusTree
	}
	m.layout()
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.showHelp {
		return
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if msg.Action == tea.MouseActionPress {
			m.tree.MoveUp()
			m.updateDetail()
		}
	case tea.MouseButtonWheelDown:
		if msg.Action == tea.MouseActionPress {
			m.tree.MoveDown()
			m.updateDetail()
		}
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress || m.treeHidden() {
			return
		}
		if msg.X >= m.treeWidth() {
			return
		}
		line := msg.Y - headerHeight
		if !m.tree.ClickLine(line) {
			// Clicking a leaf still selects it.
			if idx := m.tree.viewportOffset + line; line >= 0 && idx < len(m.tree.rows) {
				m.tree.cursor = idx
			}
		}
		m.focused = focusTree
		m.updateDetail()
	}
}

func (m *Model) treeHidden() bool {
	return !m.isSplitView && m.focused == focusDetail
}

func (m *Model) treeWidth() int {
	if m.showDetail && m.isSplitView {
		return m.width * 45 / 100
	}
	return m.width
}

func (m *Model) bodyHeight() int {
	return max(m.height-headerHeight-footerHeight, 1)
}

func (m *Model) layout() {
	if !m.ready {
		return
	}
	m.isSplitView = m.width >= SplitViewThreshold
	body := m.bodyHeight()

	m.tree.SetSize(m.treeWidth(), body)

	detailWidth := m.width
	if m.isSplitView {
		detailWidth = m.width - m.treeWidth() - 3 // border and padding
	}
	detailWidth = max(detailWidth, 10)
	m.detail.Width = detailWidth
	m.detail.Height = body
	m.md.SetWidth(detailWidth - 2)
	m.help.Width = m.width
	m.updateDetail()
}

func (m *Model) updateDetail() {
	if !m.showDetail {
		return
	}
	row, ok := m.tree.SelectedRow()
	if !ok {
		m.detail.SetContent("No record selected.")
		return
	}
	rendered, err := m.md.Render(detailMarkdown(row))
	if err != nil {
		m.detail.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	m.detail.SetContent(rendered)
	m.detail.GotoTop()
}

// detailMarkdown describes a row for the detail pane.
func detailMarkdown(row tree.DisplayRow) string {
	var sb strings.Builder
	sb.WriteString(row.Record.Markdown())
	if row.Node != nil {
		sb.WriteString("\n## Tree\n\n")
		fmt.Fprintf(&sb, "- **Depth**: %d\n", row.Node.Depth)
		fmt.Fprintf(&sb, "- **Children**: %d\n", len(row.Node.Children))
		if row.HasChildren {
			state := "collapsed"
			if row.Expanded {
				state = "expanded"
			}
			fmt.Fprintf(&sb, "- **State**: %s\n", state)
		}
	}
	return sb.String()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusIsError = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusIsError = true
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch {
	case m.showHelp:
		ctx := ContextTree
		if m.focused == focusDetail {
			ctx = ContextDetail
		}
		modal := RenderContextHelp(ctx, m.theme, m.keys, m.width)
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, modal)
	case m.showDetail && m.isSplitView:
		treeView := m.theme.Renderer.NewStyle().
			Width(m.treeWidth()).
			Height(m.bodyHeight()).
			Render(m.tree.View())
		borderColor := m.theme.Border
		if m.focused == focusDetail {
			borderColor = m.theme.Primary
		}
		detailView := m.theme.Renderer.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(borderColor).
			PaddingLeft(1).
			Height(m.bodyHeight()).
			Render(m.detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, treeView, detailView)
	case m.treeHidden():
		body = m.detail.View()
	default:
		body = m.theme.Renderer.NewStyle().Height(m.bodyHeight()).Render(m.tree.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := m.theme.Header.Render(m.title)
	summary := m.theme.Footer.Render(" " + m.tree.Summary())
	return title + summary
}

func (m Model) renderFooter() string {
	if m.status != "" {
		style := m.theme.Renderer.NewStyle().Foreground(m.theme.Highlight)
		if m.statusIsError {
			style = style.Foreground(m.theme.Error)
		}
		return style.Render(truncateName(m.status, max(m.width, 10)))
	}
	return m.help.View(m.keys)
}

// Status returns the footer status message.
func (m Model) Status() string {
	return m.status
}
