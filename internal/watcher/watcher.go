// Package watcher keeps a persisted repository graph fresh: it watches
// the repository tree and re-runs the analysis after changes settle.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zheng/repograph/internal/analyzer"
	"github.com/zheng/repograph/internal/extract"
	"github.com/zheng/repograph/internal/storage"
)

// Watcher watches a repository for source changes and triggers
// reanalysis.
type Watcher struct {
	repoPath string
	dbPath   string
	analyzer *analyzer.Analyzer

	fsWatcher *fsnotify.Watcher

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Callbacks
	onAnalysisStart func()
	onAnalysisDone  func(stats analyzer.Stats)
	onError         func(error)

	// Control
	done chan struct{}
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounceDelay sets the settle time between the last change and
// the reanalysis.
func WithDebounceDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnAnalysisStart sets the callback for when reanalysis starts.
func WithOnAnalysisStart(fn func()) Option {
	return func(w *Watcher) {
		w.onAnalysisStart = fn
	}
}

// WithOnAnalysisDone sets the callback for when reanalysis completes.
func WithOnAnalysisDone(fn func(stats analyzer.Stats)) Option {
	return func(w *Watcher) {
		w.onAnalysisDone = fn
	}
}

// WithOnError sets the callback for errors.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a watcher over a repository, persisting rebuilt graphs to
// dbPath.
func New(repoPath, dbPath string, a *analyzer.Analyzer, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		repoPath:      repoPath,
		dbPath:        dbPath,
		analyzer:      a,
		fsWatcher:     fsWatcher,
		debounceDelay: 500 * time.Millisecond,
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if err := w.addDirs(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("adding directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds all directories to the watcher
func (w *Watcher) addDirs() error {
	return filepath.Walk(w.repoPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden directories and common non-source directories
		name := info.Name()
		if info.IsDir() {
			if strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "__pycache__" || name == "testdata" {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.fsWatcher.Add(event.Name)
			return
		}
	}

	// Only analyzable source files reset the timer.
	if !extract.Supported(event.Name) {
		return
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerAnalysis)
}

// triggerAnalysis runs the analysis after debounce
func (w *Watcher) triggerAnalysis() {
	w.pendingMu.Lock()
	pending := len(w.pendingFiles)
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if pending == 0 {
		return
	}

	if w.onAnalysisStart != nil {
		w.onAnalysisStart()
	}

	stats, err := w.runAnalysis()
	if err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("reanalysis failed: %w", err))
		}
		return
	}

	if w.onAnalysisDone != nil {
		w.onAnalysisDone(stats)
	}
}

// runAnalysis rebuilds the repository graph and persists it.
func (w *Watcher) runAnalysis() (analyzer.Stats, error) {
	g, stats, err := w.analyzer.Analyze(context.Background(), w.repoPath)
	if err != nil {
		return stats, err
	}

	db, err := storage.Open(w.dbPath)
	if err != nil {
		return stats, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.SaveGraph(g); err != nil {
		return stats, fmt.Errorf("saving graph: %w", err)
	}
	return stats, nil
}
