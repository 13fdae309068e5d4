package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/canopy/pkg/analysis"
	"github.com/vanderheijden86/canopy/pkg/loader"
	"github.com/vanderheijden86/canopy/pkg/model"
	"github.com/vanderheijden86/canopy/pkg/tree"
)

// DefaultLoadTimeout bounds a single reload.
const DefaultLoadTimeout = 30 * time.Second

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is building a new snapshot.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load" or "build"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Sender delivers messages to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// DataSnapshot is a validated record set ready to replace the current tree.
type DataSnapshot struct {
	Records  []model.Record
	Stats    analysis.Stats
	Warnings []tree.Warning
	DataHash string
	LoadedAt time.Time
}

// SnapshotReadyMsg is sent to the UI when a new snapshot is ready.
type SnapshotReadyMsg struct {
	Snapshot *DataSnapshot
}

// SnapshotErrorMsg is sent to the UI when a reload fails. The current tree
// stays in place.
type SnapshotErrorMsg struct {
	Err         error
	Recoverable bool // True if we expect to recover on the next change
}

// BackgroundWorker reloads records when their files change. It owns the file
// watcher, coalesces bursts of changes and builds snapshots off the UI
// thread.
type BackgroundWorker struct {
	source        loader.Source
	debounceDelay time.Duration
	loadTimeout   time.Duration

	mu        sync.RWMutex
	state     WorkerState
	dirty     bool // A change came in while processing
	snapshot  *DataSnapshot
	started   bool
	lastHash  string // Content hash of the last snapshot, for dedup
	lastError *WorkerError
	errCount  int

	watcher *loader.Watcher
	program Sender

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	Source loader.Source
	// WatchPaths defaults to loader.WatchablePaths(Source).
	WatchPaths    []string
	DebounceDelay time.Duration
	LoadTimeout   time.Duration
	Program       Sender
}

// NewBackgroundWorker creates a worker. Without a source or watchable paths
// it never fires on its own, but TriggerRefresh still works when a source is
// set.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = loader.DefaultDebounce
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &BackgroundWorker{
		source:        cfg.Source,
		debounceDelay: cfg.DebounceDelay,
		loadTimeout:   cfg.LoadTimeout,
		program:       cfg.Program,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	paths := cfg.WatchPaths
	if paths == nil && cfg.Source != nil {
		paths = loader.WatchablePaths(cfg.Source)
	}
	if len(paths) > 0 {
		fw, err := loader.NewWatcher(paths, loader.WithDebounceDuration(cfg.DebounceDelay))
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// SetProgram sets the message receiver. The program is usually created after
// the worker, since the model needs the worker first.
func (w *BackgroundWorker) SetProgram(p Sender) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// Start begins watching for changes. Start is idempotent.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil {
		close(w.done)
		return nil
	}
	if err := w.watcher.Start(); err != nil {
		close(w.done)
		return err
	}
	go w.processLoop()
	return nil
}

// Stop halts the worker and waits briefly for an in-flight reload.
// Stop is idempotent.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
	w.wg.Wait()
}

// TriggerRefresh reloads the source now. If a reload is already running,
// another one follows it.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.process()
	}()
}

// GetSnapshot returns the last snapshot built, or nil.
func (w *BackgroundWorker) GetSnapshot() *DataSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error, or nil after a success.
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last snapshot.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// Watching reports whether a file watcher is attached.
func (w *BackgroundWorker) Watching() bool {
	return w.watcher != nil
}

func (w *BackgroundWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.process()
		}
	}
}

// process builds a snapshot and hands it to the UI, repeating while changes
// arrived in the meantime.
func (w *BackgroundWorker) process() {
	for {
		w.mu.Lock()
		if w.state != WorkerIdle {
			if w.state == WorkerProcessing {
				w.dirty = true
			}
			w.mu.Unlock()
			return
		}
		w.state = WorkerProcessing
		w.dirty = false
		w.mu.Unlock()

		snapshot := w.buildSnapshot()

		w.mu.Lock()
		if w.state == WorkerStopped {
			w.mu.Unlock()
			return
		}
		if snapshot != nil {
			w.snapshot = snapshot
		}
		again := w.dirty
		w.state = WorkerIdle
		program := w.program
		w.mu.Unlock()

		if program != nil && snapshot != nil {
			program.Send(SnapshotReadyMsg{Snapshot: snapshot})
		}
		if !again {
			return
		}
	}
}

// safeCompute runs fn, turning an error or a panic into a WorkerError.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) (result *WorkerError) {
	defer func() {
		if r := recover(); r != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:  time.Now(),
			}
		}
	}()
	if err := fn(); err != nil {
		return &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
	}
	return nil
}

func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errCount++
		err.Retries = w.errCount
	} else {
		w.errCount = 0
	}
	w.mu.Unlock()
}

func (w *BackgroundWorker) fail(err *WorkerError) {
	log.Printf("warning: reload %s: %v", w.sourceName(), err)
	w.recordError(err)

	w.mu.RLock()
	program := w.program
	w.mu.RUnlock()
	if program != nil {
		program.Send(SnapshotErrorMsg{
			Err:         err,
			Recoverable: !errors.Is(err, context.Canceled),
		})
	}
}

func (w *BackgroundWorker) sourceName() string {
	if w.source == nil {
		return "<none>"
	}
	return w.source.Name()
}

// buildSnapshot loads and validates the records. It returns nil when there
// is no source, when the load or build fails, or when the content is
// unchanged since the last snapshot.
func (w *BackgroundWorker) buildSnapshot() *DataSnapshot {
	if w.source == nil {
		return nil
	}
	start := time.Now()

	var records []model.Record
	if err := w.safeCompute("load", func() error {
		ctx, cancel := context.WithTimeout(w.ctx, w.loadTimeout)
		defer cancel()
		var err error
		records, err = w.source.Load(ctx)
		return err
	}); err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		w.fail(err)
		return nil
	}

	hash, err := ComputeDataHash(records)
	if err != nil {
		w.fail(&WorkerError{Phase: "load", Cause: err, Time: time.Now()})
		return nil
	}

	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if hash == lastHash {
		w.recordError(nil)
		return nil
	}

	// Build once here so that a broken file is reported without replacing
	// the tree the user is looking at.
	var snapshot *DataSnapshot
	if err := w.safeCompute("build", func() error {
		forest, err := tree.Build(records)
		if err != nil {
			return err
		}
		snapshot = &DataSnapshot{
			Records:  records,
			Stats:    analysis.Analyze(records),
			Warnings: forest.Warnings,
			DataHash: hash,
			LoadedAt: time.Now(),
		}
		return nil
	}); err != nil {
		w.fail(err)
		return nil
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	log.Printf("reload %s: %d records in %v (hash=%s)",
		w.sourceName(), len(records), time.Since(start), hashPrefix(hash))
	return snapshot
}

// ComputeDataHash returns a content hash of records, used to skip reloads
// that did not change anything.
func ComputeDataHash(records []model.Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("hash records: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
