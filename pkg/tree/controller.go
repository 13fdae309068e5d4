package tree

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// Source supplies the flat record list a controller builds its tree from.
type Source interface {
	Load(ctx context.Context) ([]model.Record, error)
}

// ErrNotLoaded is returned by operations that need a tree before one exists.
var ErrNotLoaded = errors.New("tree not loaded")

// Controller owns the tree for a session. It builds the tree once per load,
// dispatches clicks to Toggle and keeps the flattened rows current. Every
// method is safe for concurrent use; mutations are serialized.
type Controller struct {
	mu     sync.Mutex
	forest *Forest
	rows   []DisplayRow
	err    error // Last load or build failure
	loaded bool

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{
		subs: make(map[chan struct{}]struct{}),
	}
}

// Load fetches records from src and builds the tree. The fetch is the only
// blocking step; on failure the controller keeps an empty tree and reports
// the error from Err.
func (c *Controller) Load(ctx context.Context, src Source) error {
	records, err := src.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load records: %w", err)
		c.mu.Lock()
		c.forest = nil
		c.rows = nil
		c.err = err
		c.loaded = false
		c.mu.Unlock()
		c.notify()
		return err
	}
	return c.LoadRecords(records)
}

// LoadRecords builds the tree from already decoded records, replacing any
// previous tree and its expand state.
func (c *Controller) LoadRecords(records []model.Record) error {
	forest, err := Build(records)

	c.mu.Lock()
	if err != nil {
		c.forest = nil
		c.rows = nil
		c.err = err
		c.loaded = false
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.forest = forest
	c.rows = Flatten(forest.Roots)
	c.err = nil
	c.loaded = true
	c.mu.Unlock()

	for _, w := range forest.Warnings {
		log.Printf("warning: %s", w)
	}
	c.notify()
	return nil
}

// Click handles activation of the row with the given ID. It toggles the node
// and regenerates the rows; unknown IDs and leaves are ignored. Returns true
// if the rows changed.
func (c *Controller) Click(id model.ID) bool {
	c.mu.Lock()
	if c.forest == nil || !Toggle(c.forest.Roots, id) {
		c.mu.Unlock()
		return false
	}
	c.rows = Flatten(c.forest.Roots)
	c.mu.Unlock()

	c.notify()
	return true
}

// ExpandAll expands every node and refreshes the rows.
func (c *Controller) ExpandAll() {
	c.setAll(true)
}

// CollapseAll collapses every node and refreshes the rows.
func (c *Controller) CollapseAll() {
	c.setAll(false)
}

func (c *Controller) setAll(expanded bool) {
	c.mu.Lock()
	if c.forest == nil {
		c.mu.Unlock()
		return
	}
	if expanded {
		ExpandAll(c.forest.Roots)
	} else {
		CollapseAll(c.forest.Roots)
	}
	c.rows = Flatten(c.forest.Roots)
	c.mu.Unlock()

	c.notify()
}

// Rows returns a copy of the current display rows.
func (c *Controller) Rows() []DisplayRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([]DisplayRow, len(c.rows))
	copy(rows, c.rows)
	return rows
}

// Row returns the display row for id if it is currently shown.
func (c *Controller) Row(id model.ID) (DisplayRow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range c.rows {
		if row.ID == id {
			return row, true
		}
	}
	return DisplayRow{}, false
}

// Roots returns the root nodes. The nodes are owned by the controller and
// must be treated as read-only.
func (c *Controller) Roots() []*Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forest == nil {
		return nil
	}
	return c.forest.Roots
}

// Warnings returns the records dropped by the last build.
func (c *Controller) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forest == nil {
		return nil
	}
	return append([]Warning(nil), c.forest.Warnings...)
}

// Len returns the number of nodes in the tree.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forest.Len()
}

// Err returns the last load failure, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Loaded reports whether a tree has been built.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Subscribe returns a channel that receives a signal after every change to
// the rows. Signals are coalesced: a slow reader sees at most one pending
// signal. Call the returned function to unsubscribe.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, ch)
			c.subMu.Unlock()
		})
	}
}

// notify signals all subscribers without blocking.
func (c *Controller) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
