package ui_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/canopy/pkg/loader"
	"github.com/vanderheijden86/canopy/pkg/tree"
	"github.com/vanderheijden86/canopy/pkg/ui"
)

// inbox stands in for the running program: it queues what the worker sends.
type inbox struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (b *inbox) Send(msg tea.Msg) {
	b.mu.Lock()
	b.msgs = append(b.msgs, msg)
	b.mu.Unlock()
}

func (b *inbox) drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.msgs
	b.msgs = nil
	return msgs
}

func integrationKeyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func apply(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

// TestReloadFlow loads a file, lets the user collapse a node, then rewrites
// the file and checks that the worker's snapshot replaces the tree.
func TestReloadFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.yaml")
	initial := `- {id: "1", parent: null, name: Root}
- {id: "2", parent: "1", name: Child}
- {id: "3", parent: "2", name: Grandchild}
`
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	src := loader.NewFileSource(path, loader.FormatAuto)
	ctrl := tree.NewController()
	if err := ctrl.Load(context.Background(), src); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	theme := ui.DefaultTheme(lipgloss.NewRenderer(nil))
	m := ui.NewModel(ctrl, ui.ModelOptions{Title: "reload", Theme: &theme})
	defer m.Close()

	var model tea.Model = m
	model = apply(model, tea.WindowSizeMsg{Width: 80, Height: 12})

	view := model.View()
	for _, want := range []string{"Root", "Child", "Grandchild", "3/3 shown"} {
		if !strings.Contains(view, want) {
			t.Errorf("initial view missing %q:\n%s", want, view)
		}
	}

	model = apply(model, integrationKeyMsg("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if strings.Contains(model.View(), "Grandchild") {
		t.Errorf("collapsing Child should hide Grandchild:\n%s", model.View())
	}

	box := &inbox{}
	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{
		Source:        src,
		DebounceDelay: 50 * time.Millisecond,
		Program:       box,
	})
	if err != nil {
		t.Fatalf("NewBackgroundWorker failed: %v", err)
	}
	defer worker.Stop()
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	updated := initial + `- {id: "4", parent: "1", name: Sibling}
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	var got []tea.Msg
	deadline := time.Now().Add(3 * time.Second)
	for len(got) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
		got = box.drain()
	}
	if len(got) == 0 {
		t.Fatal("worker sent nothing after the file changed")
	}
	if _, ok := got[len(got)-1].(ui.SnapshotReadyMsg); !ok {
		t.Fatalf("expected SnapshotReadyMsg, got %T", got[len(got)-1])
	}

	model = apply(model, got...)
	view = model.View()
	for _, want := range []string{"Sibling", "Grandchild", "4/4 shown", "reloaded 4 records"} {
		if !strings.Contains(view, want) {
			t.Errorf("view after reload missing %q:\n%s", want, view)
		}
	}
}

// TestBrokenReloadKeepsTree checks that a file that fails to build leaves the
// tree on screen and shows the error.
func TestBrokenReloadKeepsTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(`[{"id":1,"parent":null,"name":"Only"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	src := loader.NewFileSource(path, loader.FormatAuto)
	ctrl := tree.NewController()
	if err := ctrl.Load(context.Background(), src); err != nil {
		t.Fatal(err)
	}

	theme := ui.DefaultTheme(lipgloss.NewRenderer(nil))
	m := ui.NewModel(ctrl, ui.ModelOptions{Theme: &theme})
	defer m.Close()
	var model tea.Model = apply(m, tea.WindowSizeMsg{Width: 80, Height: 12})

	box := &inbox{}
	worker, err := ui.NewBackgroundWorker(ui.WorkerConfig{Source: src, Program: box})
	if err != nil {
		t.Fatal(err)
	}
	defer worker.Stop()

	if err := os.WriteFile(path, []byte(`[{"id":"a"},{"id":"a"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	worker.TriggerRefresh()

	var got []tea.Msg
	deadline := time.Now().Add(3 * time.Second)
	for len(got) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
		got = box.drain()
	}
	if len(got) != 1 {
		t.Fatalf("expected one message, got %d", len(got))
	}
	if _, ok := got[0].(ui.SnapshotErrorMsg); !ok {
		t.Fatalf("expected SnapshotErrorMsg, got %T", got[0])
	}

	model = apply(model, got...)
	view := model.View()
	if !strings.Contains(view, "Only") {
		t.Errorf("previous tree should stay visible:\n%s", view)
	}
	if !strings.Contains(view, "duplicate identifier") {
		t.Errorf("error should be reported:\n%s", view)
	}
}
