package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/73ai/parsec/internal/logging"
	"github.com/73ai/parsec/internal/walker"
)

// Watcher monitors a workspace and reindexes files changed on disk
type Watcher struct {
	indexer      *Indexer
	config       WatcherConfig
	logger       *slog.Logger
	fsWatcher    *fsnotify.Watcher
	roots        []*watchRoot
	eventChan    chan WatchEvent
	cancelFunc   context.CancelFunc
	done         chan struct{}
	runningMutex sync.RWMutex
	running      bool
}

// watchRoot holds the ignore rules of one watched directory tree. Rules of
// directories below it are loaded as they are watched.
type watchRoot struct {
	path    string
	ignores *walker.IgnoreManager
}

// WatcherConfig configures the file system watcher behavior
type WatcherConfig struct {
	// Debounce duration to batch rapid file changes
	DebounceDuration time.Duration

	// Maximum number of events to batch together
	BatchSize int

	// Directory trees to watch
	WatchDirs []string

	// File extensions that trigger reindexing
	Extensions []string

	// Ignore file handling when adding directories
	Ignore walker.IgnoreOptions

	// Called after each processed batch, mostly for tests
	BatchCallback func(EventBatch)
}

// DefaultWatcherConfig returns sensible defaults for the watcher
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceDuration: 500 * time.Millisecond,
		BatchSize:        50,
		Extensions:       []string{".jl"},
		Ignore:           walker.DefaultIgnoreOptions(),
	}
}

// Operation is the kind of change a WatchEvent reports
type Operation string

const (
	OpCreate Operation = "create"
	OpWrite  Operation = "write"
	OpRemove Operation = "remove"
	OpRename Operation = "rename"
)

// WatchEvent represents a file system event
type WatchEvent struct {
	Path      string    `json:"path"`
	Operation Operation `json:"operation"`
	Time      time.Time `json:"time"`
}

// EventBatch represents a batch of events to process together
type EventBatch struct {
	Events    []WatchEvent `json:"events"`
	Indexed   []string     `json:"indexed"`
	Removed   []string     `json:"removed"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
}

// NewWatcher creates a watcher feeding indexer
func NewWatcher(indexer *Indexer, config WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config.DebounceDuration <= 0 {
		config.DebounceDuration = DefaultWatcherConfig().DebounceDuration
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultWatcherConfig().BatchSize
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultWatcherConfig().Extensions
	}
	if logger == nil {
		logger = logging.Nop()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		indexer:   indexer,
		config:    config,
		logger:    logger,
		fsWatcher: fsWatcher,
		eventChan: make(chan WatchEvent, config.BatchSize*2),
	}, nil
}

// Start begins watching the configured directories
func (w *Watcher) Start(ctx context.Context) error {
	w.runningMutex.Lock()
	defer w.runningMutex.Unlock()

	if w.running {
		return fmt.Errorf("watcher is already running")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel
	w.running = true
	w.done = make(chan struct{})

	for _, dir := range w.config.WatchDirs {
		if err := w.addRoot(dir); err != nil {
			cancel()
			w.running = false
			w.roots = nil
			w.fsWatcher.Close()
			return fmt.Errorf("failed to add watch directory %s: %w", dir, err)
		}
	}

	go w.watchFileSystem(watchCtx)
	go w.processEvents(watchCtx)

	w.logger.Info("watching workspace", "dirs", len(w.fsWatcher.WatchList()))
	return nil
}

// Stop stops the watcher and waits for the pending batch to be processed
func (w *Watcher) Stop() error {
	w.runningMutex.Lock()
	defer w.runningMutex.Unlock()

	if !w.running {
		return nil
	}

	err := w.fsWatcher.Close()
	<-w.done
	w.cancelFunc()
	w.running = false

	return err
}

// IsRunning returns true if the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.runningMutex.RLock()
	defer w.runningMutex.RUnlock()
	return w.running
}

// WatchedDirectories returns the directories currently watched
func (w *Watcher) WatchedDirectories() []string {
	return w.fsWatcher.WatchList()
}

// addRoot registers dir as a watched root and watches its tree
func (w *Watcher) addRoot(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	root := &watchRoot{path: abs, ignores: walker.NewIgnoreManager(abs, w.config.Ignore)}
	if err := root.ignores.LoadParents(); err != nil {
		w.logger.Debug("failed to load parent ignore files", "dir", abs, "error", err)
	}
	w.roots = append(w.roots, root)
	return w.addTree(abs)
}

// addTree watches dir and every directory below it the walker would visit
func (w *Watcher) addTree(dir string) error {
	wk, err := walker.New(&walker.Config{
		HiddenFiles: true,
		DirsOnly:    true,
		Ignore:      w.config.Ignore,
	})
	if err != nil {
		return err
	}

	results, err := wk.Walk(dir)
	if err != nil {
		return err
	}

	for res := range results {
		if res.Error != nil || res.Info == nil || !res.Info.IsDir() {
			continue
		}
		w.watchDir(res.Path)
	}
	return nil
}

func (w *Watcher) watchDir(dir string) {
	if err := w.fsWatcher.Add(dir); err != nil {
		w.logger.Debug("failed to watch directory", "dir", dir, "error", err)
	}
	w.loadIgnores(dir)
}

// addDir watches a directory that appeared under a watched root and queues
// the files already inside it. A directory moved in or checked out reports
// one event for itself and none for its contents.
func (w *Watcher) addDir(ctx context.Context, dir string) bool {
	if w.ignored(dir, true) {
		return true
	}

	wk, err := walker.New(&walker.Config{
		HiddenFiles: true,
		IncludeDirs: true,
		Filters:     w.indexer.fileFilters(),
		Ignore:      w.config.Ignore,
		Context:     ctx,
	})
	if err != nil {
		w.logger.Debug("failed to walk new directory", "dir", dir, "error", err)
		return true
	}
	results, err := wk.Walk(dir)
	if err != nil {
		w.logger.Debug("failed to walk new directory", "dir", dir, "error", err)
		return true
	}

	for res := range results {
		if res.Error != nil || res.Info == nil {
			continue
		}
		if res.Info.IsDir() {
			w.watchDir(res.Path)
			continue
		}
		if !w.shouldProcessFile(res.Path) {
			continue
		}
		if !w.queue(ctx, WatchEvent{Path: res.Path, Operation: OpCreate, Time: time.Now()}) {
			return false
		}
	}
	return true
}

// removeDir queues the removal of every indexed file below a directory
// that was deleted or moved away.
func (w *Watcher) removeDir(ctx context.Context, event WatchEvent) bool {
	for _, path := range w.indexer.Index().PathsUnder(event.Path) {
		if !w.queue(ctx, WatchEvent{Path: path, Operation: event.Operation, Time: event.Time}) {
			return false
		}
	}
	return true
}

func (w *Watcher) queue(ctx context.Context, event WatchEvent) bool {
	select {
	case w.eventChan <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// rootFor returns the innermost watched root containing path and path
// relative to it.
func (w *Watcher) rootFor(path string) (*watchRoot, string) {
	var best *watchRoot
	var bestRel string
	for _, root := range w.roots {
		rel, err := filepath.Rel(root.path, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if best == nil || len(root.path) > len(best.path) {
			best, bestRel = root, rel
		}
	}
	return best, bestRel
}

// loadIgnores (re)reads the ignore files of a watched directory.
func (w *Watcher) loadIgnores(dir string) {
	root, rel := w.rootFor(dir)
	if root == nil {
		return
	}
	if err := root.ignores.LoadDir(rel); err != nil {
		w.logger.Debug("failed to load ignore files", "dir", dir, "error", err)
	}
}

// ignored applies the ignore rules of the enclosing root to path and to
// each directory between the root and path.
func (w *Watcher) ignored(path string, isDir bool) bool {
	root, rel := w.rootFor(path)
	if root == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' && root.ignores.ShouldIgnore(rel[:i], true) {
			return true
		}
	}
	return root.ignores.ShouldIgnore(rel, isDir)
}

func (w *Watcher) isIgnoreFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range w.config.Ignore.Files {
		if name == base {
			return true
		}
	}
	return false
}

// watchFileSystem converts fsnotify events to WatchEvents
func (w *Watcher) watchFileSystem(ctx context.Context) {
	defer close(w.eventChan)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			watchEvent := convertEvent(event)
			if watchEvent == nil {
				continue
			}

			if w.isIgnoreFile(watchEvent.Path) {
				w.loadIgnores(filepath.Dir(watchEvent.Path))
				continue
			}

			switch watchEvent.Operation {
			case OpCreate:
				// New directories are watched right away so files created
				// in them are not missed.
				if info, err := os.Stat(watchEvent.Path); err == nil && info.IsDir() {
					if !w.addDir(ctx, watchEvent.Path) {
						return
					}
					continue
				}
			case OpRemove, OpRename:
				// Anything else that disappears may be a directory, whose
				// files get no events of their own.
				if !w.shouldProcessFile(watchEvent.Path) {
					if !w.removeDir(ctx, *watchEvent) {
						return
					}
					continue
				}
			}

			if !w.shouldProcessFile(watchEvent.Path) {
				continue
			}
			if !w.queue(ctx, *watchEvent) {
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func convertEvent(event fsnotify.Event) *WatchEvent {
	var op Operation

	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return nil
	}

	return &WatchEvent{
		Path:      event.Name,
		Operation: op,
		Time:      time.Now(),
	}
}

// processEvents batches events until the debounce timer fires or the
// batch is full
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	var events []WatchEvent
	var timer *time.Timer
	var timerChan <-chan time.Time

	for {
		select {
		case event, ok := <-w.eventChan:
			if !ok {
				if len(events) > 0 {
					w.processBatch(ctx, events)
				}
				return
			}

			events = append(events, event)

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.config.DebounceDuration)
			timerChan = timer.C

			if len(events) >= w.config.BatchSize {
				timer.Stop()
				w.processBatch(ctx, events)
				events = nil
				timerChan = nil
			}

		case <-timerChan:
			if len(events) > 0 {
				w.processBatch(ctx, events)
				events = nil
			}
			timerChan = nil

		case <-ctx.Done():
			return
		}
	}
}

// processBatch applies a batch of events. Only the last event per path
// counts: a file written then removed is removed, and a file removed then
// recreated is reindexed.
func (w *Watcher) processBatch(ctx context.Context, events []WatchEvent) {
	batch := EventBatch{
		Events:    events,
		StartTime: events[0].Time,
		EndTime:   events[len(events)-1].Time,
	}

	last := make(map[string]Operation, len(events))
	var order []string
	for _, event := range events {
		if _, seen := last[event.Path]; !seen {
			order = append(order, event.Path)
		}
		last[event.Path] = event.Operation
	}

	for _, path := range order {
		switch last[path] {
		case OpRemove, OpRename:
			// A rename reports the old name; the new one arrives as a create.
			if _, err := os.Stat(path); err == nil {
				if err := w.indexer.IndexFile(ctx, path); err != nil {
					w.logger.Debug("failed to reindex file", "error", err)
				}
				batch.Indexed = append(batch.Indexed, path)
				continue
			}
			w.indexer.Remove(path)
			batch.Removed = append(batch.Removed, path)
		default:
			if err := w.indexer.IndexFile(ctx, path); err != nil {
				w.logger.Debug("failed to reindex file", "error", err)
			}
			batch.Indexed = append(batch.Indexed, path)
		}
	}

	w.logger.Debug("processed watch batch",
		"events", len(events),
		"indexed", len(batch.Indexed),
		"removed", len(batch.Removed))

	if w.config.BatchCallback != nil {
		w.config.BatchCallback(batch)
	}
}

// shouldProcessFile checks the extension and the ignore rules, and skips
// anything inside .git
func (w *Watcher) shouldProcessFile(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return false
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.config.Extensions {
		if strings.ToLower(want) == ext {
			return !w.ignored(path, false)
		}
	}
	return false
}
