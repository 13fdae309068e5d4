package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the colors and shared styles of the viewer.
type Theme struct {
	Renderer *lipgloss.Renderer

	Base      lipgloss.AdaptiveColor // Body text
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor

	Selected lipgloss.Style
	Header   lipgloss.Style
	Footer   lipgloss.Style
}

// DefaultTheme returns the Dracula-flavored default palette.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Base:      lipgloss.AdaptiveColor{Light: "#000000", Dark: "#f8f8f2"},
		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#0E7C86", Dark: "#8BE9FD"},
		Muted:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#444444", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#DDDDDD", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#D32F2F", Dark: "#FF5555"},
		Warning:   lipgloss.AdaptiveColor{Light: "#B7791F", Dark: "#F1FA8C"},
	}

	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E8E0FF", Dark: "#44475A"}).
		Bold(true)

	t.Header = r.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	t.Footer = r.NewStyle().
		Foreground(t.Muted)

	return t
}
