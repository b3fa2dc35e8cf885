// Package walker provides ignore-aware file system traversal for indexing
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var errCanceled = errors.New("context canceled")

// Result represents a file discovered during traversal
type Result struct {
	Path    string      // Absolute path to the file
	RelPath string      // Path relative to the walk root
	Info    fs.FileInfo // File information
	Error   error       // Any error encountered processing this entry
}

// Stats contains traversal statistics
type Stats struct {
	FilesFound      int64         // Files that passed every filter
	FilesFiltered   int64         // Files filtered out
	DirsTraversed   int64         // Directories traversed
	DirsIgnored     int64         // Directories skipped by ignore rules
	SymlinksSkipped int64         // Symbolic links, never followed
	Errors          int64         // Errors encountered
	Duration        time.Duration // Total traversal time
	BytesTraversed  int64         // Total bytes of files found
}

// Config holds configuration for the walker
type Config struct {
	// HiddenFiles includes dot files and directories (.git is always skipped)
	HiddenFiles bool

	// IncludeDirs also emits a Result for every traversed directory
	IncludeDirs bool

	// DirsOnly emits traversed directories and no files; implies IncludeDirs
	DirsOnly bool

	// BufferSize is the capacity of the result channel
	BufferSize int

	Filters *Filters
	Ignore  IgnoreOptions
	Context context.Context
}

func DefaultConfig() *Config {
	return &Config{
		HiddenFiles: true,
		BufferSize:  1000,
		Filters:     NewFilters(),
		Ignore:      DefaultIgnoreOptions(),
		Context:     context.Background(),
	}
}

// Walker traverses one directory tree. Symbolic links are never followed.
type Walker struct {
	config *Config
	stats  *Stats
	mu     sync.RWMutex
}

func New(config *Config) (*Walker, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}

	if config.Filters == nil {
		config.Filters = NewFilters()
	}

	if config.Context == nil {
		config.Context = context.Background()
	}

	return &Walker{
		config: config,
		stats:  &Stats{},
	}, nil
}

// Walk starts the traversal of root and streams accepted files. The channel
// is closed when the walk ends or the context is canceled. Unreadable
// entries are reported with Error set and the walk continues.
func (w *Walker) Walk(root string) (<-chan Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	rootInfo, err := os.Lstat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root path: %w", err)
	}

	ignores := NewIgnoreManager(absRoot, w.config.Ignore)
	if rootInfo.IsDir() {
		if err := ignores.LoadParents(); err != nil {
			return nil, fmt.Errorf("failed to load ignore rules: %w", err)
		}
	}

	results := make(chan Result, w.config.BufferSize)
	ctx := w.config.Context
	start := time.Now()

	send := func(r Result) error {
		select {
		case results <- r:
			return nil
		case <-ctx.Done():
			return errCanceled
		}
	}

	go func() {
		defer func() {
			w.mu.Lock()
			w.stats.Duration = time.Since(start)
			w.mu.Unlock()
			close(results)
		}()

		if !rootInfo.IsDir() {
			if rootInfo.Mode().IsRegular() && w.config.Filters.ShouldInclude(absRoot, rootInfo) {
				w.recordFile(rootInfo.Size())
				_ = send(Result{Path: absRoot, RelPath: filepath.Base(absRoot), Info: rootInfo})
			}
			return
		}

		filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return errCanceled
			}

			relPath, _ := filepath.Rel(absRoot, path)
			if err != nil {
				w.recordError()
				if sendErr := send(Result{Path: path, RelPath: relPath, Error: err}); sendErr != nil {
					return sendErr
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil // Continue walking
			}

			if d.Type()&fs.ModeSymlink != 0 {
				w.recordSymlink()
				return nil
			}

			if path == absRoot {
				if err := ignores.LoadDir(""); err != nil {
					w.recordError()
				}
				w.recordDirTraversed()
				if w.config.IncludeDirs || w.config.DirsOnly {
					return w.sendDir(send, path, ".", d)
				}
				return nil
			}

			if d.IsDir() && d.Name() == ".git" {
				w.recordDirIgnored()
				return filepath.SkipDir
			}

			if !w.config.HiddenFiles && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					w.recordDirIgnored()
					return filepath.SkipDir
				}
				w.recordFiltered()
				return nil
			}

			if ignores.ShouldIgnore(relPath, d.IsDir()) {
				if d.IsDir() {
					w.recordDirIgnored()
					return filepath.SkipDir
				}
				w.recordFiltered()
				return nil
			}

			if d.IsDir() {
				if err := ignores.LoadDir(relPath); err != nil {
					w.recordError()
				}
				w.recordDirTraversed()
				if w.config.IncludeDirs || w.config.DirsOnly {
					return w.sendDir(send, path, relPath, d)
				}
				return nil
			}

			if w.config.DirsOnly {
				return nil
			}

			if !d.Type().IsRegular() {
				w.recordFiltered()
				return nil
			}

			info, err := d.Info()
			if err != nil {
				w.recordError()
				return send(Result{Path: path, RelPath: relPath, Error: err})
			}

			if !w.config.Filters.ShouldInclude(path, info) {
				w.recordFiltered()
				return nil
			}

			w.recordFile(info.Size())
			return send(Result{Path: path, RelPath: relPath, Info: info})
		})
	}()

	return results, nil
}

func (w *Walker) sendDir(send func(Result) error, path, relPath string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		w.recordError()
		return send(Result{Path: path, RelPath: relPath, Error: err})
	}
	return send(Result{Path: path, RelPath: relPath, Info: info})
}

func (w *Walker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return *w.stats
}

func (w *Walker) recordFile(size int64) {
	w.mu.Lock()
	w.stats.FilesFound++
	w.stats.BytesTraversed += size
	w.mu.Unlock()
}

func (w *Walker) recordFiltered() {
	w.mu.Lock()
	w.stats.FilesFiltered++
	w.mu.Unlock()
}

func (w *Walker) recordDirTraversed() {
	w.mu.Lock()
	w.stats.DirsTraversed++
	w.mu.Unlock()
}

func (w *Walker) recordDirIgnored() {
	w.mu.Lock()
	w.stats.DirsIgnored++
	w.mu.Unlock()
}

func (w *Walker) recordSymlink() {
	w.mu.Lock()
	w.stats.SymlinksSkipped++
	w.mu.Unlock()
}

func (w *Walker) recordError() {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
}
