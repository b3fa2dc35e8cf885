package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/logging"
	"github.com/73ai/parsec/internal/symbols"
	"github.com/73ai/parsec/internal/walker"
)

// Config configures background indexing
type Config struct {
	// Number of files parsed concurrently per root
	Workers int

	// Maximum file size to index (in bytes, 0 = no limit)
	MaxFileSize int64

	// File extensions to index
	Extensions []string

	// Ignore file handling for the walk
	Ignore walker.IgnoreOptions
}

// DefaultConfig returns sensible defaults for the indexer
func DefaultConfig() Config {
	return Config{
		Workers:     runtime.NumCPU(),
		MaxFileSize: walker.DefaultMaxFileSize,
		Extensions:  []string{".jl"},
		Ignore:      walker.DefaultIgnoreOptions(),
	}
}

// Stats is a point-in-time copy of the indexing progress counters
type Stats struct {
	Roots          int64         `json:"roots"`
	FilesFound     int64         `json:"files_found"`
	FilesIndexed   int64         `json:"files_indexed"`
	FilesSkipped   int64         `json:"files_skipped"`
	FilesFiltered  int64         `json:"files_filtered"`
	SymbolsIndexed int64         `json:"symbols_indexed"`
	Documents      int64         `json:"documents"`
	Duration       time.Duration `json:"duration"`
}

type progress struct {
	roots          atomic.Int64
	filesFound     atomic.Int64
	filesIndexed   atomic.Int64
	filesSkipped   atomic.Int64
	filesFiltered  atomic.Int64
	symbolsIndexed atomic.Int64
	started        atomic.Int64
	finished       atomic.Int64
}

// Indexer feeds workspace and dependency files into the document store and
// the symbol index.
type Indexer struct {
	store     *document.Store
	index     *SymbolIndex
	extractor *symbols.Extractor
	config    Config
	logger    *slog.Logger

	progress progress
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewIndexer creates an indexer writing to store and index.
func NewIndexer(store *document.Store, index *SymbolIndex, extractor *symbols.Extractor, config Config, logger *slog.Logger) *Indexer {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultConfig().Extensions
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if extractor == nil {
		extractor = symbols.NewExtractor(symbols.DefaultHeuristics(), logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		store:     store,
		index:     index,
		extractor: extractor,
		config:    config,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Index returns the symbol index the indexer writes to.
func (ix *Indexer) Index() *SymbolIndex { return ix.index }

// Start discovers the roots of workspace and indexes each of them on its
// own goroutine. It returns immediately with the discovered roots.
func (ix *Indexer) Start(workspace string, env Environment) []Root {
	roots := DiscoverRoots(workspace, env, ix.logger)

	for _, root := range roots {
		ix.wg.Add(1)
		go func(root Root) {
			defer ix.wg.Done()
			if err := ix.IndexRoot(ix.ctx, root); err != nil {
				ix.logger.Warn("indexing root failed", "root", root.Path, "kind", root.Kind, "error", err)
			}
		}(root)
	}

	return roots
}

// Wait blocks until every root started so far is indexed.
func (ix *Indexer) Wait() {
	ix.wg.Wait()
}

// Stop cancels background indexing and waits for it to end.
func (ix *Indexer) Stop() {
	ix.cancel()
	ix.wg.Wait()
}

// IndexRoot walks one root and indexes every accepted file. Per-file
// problems are counted and logged; only a failure to start the walk is
// returned.
func (ix *Indexer) IndexRoot(ctx context.Context, root Root) error {
	ix.progress.roots.Add(1)
	started := time.Now()
	ix.progress.started.CompareAndSwap(0, started.UnixNano())

	w, err := walker.New(&walker.Config{
		HiddenFiles: true,
		Filters:     ix.fileFilters(),
		Ignore:      ix.config.Ignore,
		Context:     ctx,
	})
	if err != nil {
		return fmt.Errorf("failed to create walker: %w", err)
	}

	results, err := w.Walk(root.Path)
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", root.Path, err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.config.Workers)

	for res := range results {
		if res.Error != nil {
			ix.progress.filesSkipped.Add(1)
			ix.logger.Debug("skipping unreadable entry", "path", res.Path, "error", res.Error)
			continue
		}
		if !root.accepts(res.RelPath) {
			ix.progress.filesFiltered.Add(1)
			continue
		}

		ix.progress.filesFound.Add(1)
		path := res.Path
		g.Go(func() error {
			if err := ix.IndexFile(gCtx, path); err != nil {
				ix.logger.Debug("skipping file", "error", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	ix.progress.finished.Store(time.Now().UnixNano())

	stats := w.Stats()
	ix.logger.Info("indexed root",
		"root", root.Path,
		"kind", root.Kind,
		"files", stats.FilesFound,
		"dirs", stats.DirsTraversed,
		"duration", time.Since(started))
	return nil
}

// fileFilters accepts the files the indexer reads.
func (ix *Indexer) fileFilters() *walker.Filters {
	filters := walker.ForExtensions(ix.config.Extensions...)
	filters.SetSizeRange(0, ix.config.MaxFileSize)
	return filters
}

// IndexFile reads path from disk and indexes it. A document the editor has
// open is left alone: its text is newer than the disk and its own updates
// reindex it. Read failures and non-UTF-8 content are KindIoSkip errors.
func (ix *Indexer) IndexFile(ctx context.Context, path string) error {
	text, err := os.ReadFile(path)
	if err != nil {
		ix.progress.filesSkipped.Add(1)
		return newIndexError(KindIoSkip, path, "read file", err)
	}
	if !utf8.Valid(text) {
		ix.progress.filesSkipped.Add(1)
		return newIndexError(KindIoSkip, path, "decode file", ErrInvalidText)
	}

	doc, replaced := ix.store.Put(document.PathToURI(path), path, text)
	if !replaced {
		return nil
	}

	ix.IndexDocument(ctx, doc)
	return nil
}

// IndexDocument extracts the symbols of doc from its current tree and
// replaces its snapshot in the index. It returns the parse error, if any,
// after indexing whatever tree the document has.
func (ix *Indexer) IndexDocument(ctx context.Context, doc *document.Document) error {
	snap, err := doc.Parse(ctx)
	if err != nil {
		ix.logger.Debug("parse failed", "uri", doc.URI(), "error", err)
	}

	syms := ix.extractor.Symbols(snap.Tree, snap.Text)
	ix.index.Upsert(doc.URI(), doc.Path(), syms)

	ix.progress.filesIndexed.Add(1)
	ix.progress.symbolsIndexed.Add(int64(len(syms)))
	return err
}

// Remove empties the snapshot of a file deleted from disk. Documents open
// in the editor keep their symbols, and paths that never contributed any
// stay unknown.
func (ix *Indexer) Remove(path string) {
	uri := document.PathToURI(path)
	if doc, ok := ix.store.Get(uri); ok && doc.IsOpen() {
		return
	}
	if len(ix.index.Entries(uri)) == 0 {
		return
	}
	ix.index.Upsert(uri, path, nil)
}

// Stats returns the progress counters.
func (ix *Indexer) Stats() Stats {
	s := Stats{
		Roots:          ix.progress.roots.Load(),
		FilesFound:     ix.progress.filesFound.Load(),
		FilesIndexed:   ix.progress.filesIndexed.Load(),
		FilesSkipped:   ix.progress.filesSkipped.Load(),
		FilesFiltered:  ix.progress.filesFiltered.Load(),
		SymbolsIndexed: ix.progress.symbolsIndexed.Load(),
		Documents:      int64(ix.index.Documents()),
	}
	if start := ix.progress.started.Load(); start > 0 {
		if end := ix.progress.finished.Load(); end > start {
			s.Duration = time.Duration(end - start)
		}
	}
	return s
}
