package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewMarkdownRenderer(t *testing.T) {
	mr := NewMarkdownRenderer(80)
	if mr == nil {
		t.Fatal("NewMarkdownRenderer returned nil")
	}
	if mr.width != 80 {
		t.Errorf("expected width 80, got %d", mr.width)
	}
	if mr.useTheme || mr.theme != nil {
		t.Error("expected no theme for NewMarkdownRenderer")
	}
}

func TestNewMarkdownRendererWithTheme(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	mr := NewMarkdownRendererWithTheme(80, theme)
	if !mr.useTheme || mr.theme == nil {
		t.Error("expected theme to be stored")
	}
}

func TestMarkdownRenderer_Render(t *testing.T) {
	mr := NewMarkdownRendererWithTheme(80, DefaultTheme(lipgloss.DefaultRenderer()))
	result, err := mr.Render("# Hello\n\nWorld")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(result, "Hello") || !strings.Contains(result, "World") {
		t.Errorf("expected rendered text, got: %s", result)
	}
}

func TestMarkdownRenderer_RenderNilRenderer(t *testing.T) {
	mr := &MarkdownRenderer{width: 80}
	result, err := mr.Render("# Test")
	if err != nil {
		t.Fatalf("Render with nil renderer should not error: %v", err)
	}
	if result != "# Test" {
		t.Errorf("expected raw markdown when renderer is nil, got: %s", result)
	}
}

func TestMarkdownRenderer_SetWidth(t *testing.T) {
	mr := NewMarkdownRendererWithTheme(80, DefaultTheme(lipgloss.DefaultRenderer()))
	original := mr.renderer

	mr.SetWidth(80)
	if mr.renderer != original {
		t.Error("SetWidth with same width should not recreate renderer")
	}

	mr.SetWidth(0)
	mr.SetWidth(-1)
	if mr.width != 80 {
		t.Error("non-positive widths should be ignored")
	}

	mr.SetWidth(100)
	if mr.width != 100 {
		t.Errorf("expected width 100, got %d", mr.width)
	}
	if !mr.useTheme || mr.theme == nil {
		t.Error("SetWidth should preserve the theme")
	}
}

func TestMarkdownRenderer_SetWidthWithTheme(t *testing.T) {
	mr := &MarkdownRenderer{width: 80}
	mr.SetWidthWithTheme(100, DefaultTheme(lipgloss.DefaultRenderer()))

	if mr.width != 100 {
		t.Errorf("expected width 100, got %d", mr.width)
	}
	if !mr.useTheme || mr.theme == nil {
		t.Error("SetWidthWithTheme should store the theme")
	}
}

func TestExtractHex(t *testing.T) {
	ac := lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	if got := extractHex(ac, false); got != "#ffffff" {
		t.Errorf("light: got %s", got)
	}
	if got := extractHex(ac, true); got != "#000000" {
		t.Errorf("dark: got %s", got)
	}
}

func TestBuildStyleFromTheme(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	dark := buildStyleFromTheme(theme, true)
	if dark.Document.Color == nil || *dark.Document.Color != "#f8f8f2" {
		t.Errorf("unexpected dark document color %v", dark.Document.Color)
	}

	light := buildStyleFromTheme(theme, false)
	if *light.Document.Color != "#000000" {
		t.Errorf("unexpected light document color %s", *light.Document.Color)
	}
	if *light.H1.Color != theme.Primary.Light {
		t.Errorf("H1 should use the primary color, got %s", *light.H1.Color)
	}
}
