// Package document holds open and discovered source documents together with
// their lazily refreshed syntax trees.
package document

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/73ai/parsec/internal/parser"
)

// Config controls when a stale document is reparsed.
type Config struct {
	// Debounce is how long edits must pause before a stale tree is replaced
	Debounce time.Duration

	// MaxStaleness forces a reparse of a stale tree once the last parse is
	// this old, even while edits continue. Zero disables it. Values below
	// Debounce are raised to Debounce.
	MaxStaleness time.Duration

	// Now is the clock; nil means time.Now
	Now func() time.Time
}

// DefaultConfig returns the debounce settings used by the server.
func DefaultConfig() Config {
	return Config{
		Debounce:     120 * time.Millisecond,
		MaxStaleness: time.Second,
	}
}

func (c Config) normalized() Config {
	if c.Debounce < 0 {
		c.Debounce = 0
	}
	if c.MaxStaleness > 0 && c.MaxStaleness < c.Debounce {
		c.MaxStaleness = c.Debounce
	}
	if c.MaxStaleness < 0 {
		c.MaxStaleness = 0
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// State is the parse state of a document.
type State int

const (
	// StateEmpty means no tree has been produced yet.
	StateEmpty State = iota
	// StateFresh means the tree was parsed after the last edit.
	StateFresh
	// StateStale means the text changed since the tree was parsed.
	StateStale
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	}
	return "unknown"
}

// Snapshot is a tree together with the exact text it was parsed from. Tree
// is nil when the document has never parsed successfully; Text is then the
// current text.
type Snapshot struct {
	Tree parser.Tree
	Text []byte
}

// Document is one source file. Text, tree, edit time and parse time are
// guarded independently: readers may observe text newer than the tree, but
// never a tree without the text it came from.
type Document struct {
	uri      string
	path     string
	provider parser.Provider
	config   Config

	textMu sync.RWMutex
	text   []byte

	treeMu     sync.RWMutex
	tree       parser.Tree
	parsedText []byte

	editMu   sync.RWMutex
	lastEdit time.Time

	parseMu   sync.RWMutex
	lastParse time.Time

	open   atomic.Bool
	flight singleflight.Group
}

// New creates a document with its initial text. The document starts with no
// tree; the first Parse call always parses.
func New(uri, path string, text []byte, provider parser.Provider, config Config) *Document {
	config = config.normalized()
	return &Document{
		uri:      uri,
		path:     path,
		provider: provider,
		config:   config,
		text:     text,
		lastEdit: config.Now(),
	}
}

// URI returns the document identity.
func (d *Document) URI() string { return d.uri }

// Path returns the filesystem path, or "" for documents without one.
func (d *Document) Path() string { return d.path }

// IsOpen reports whether the editor owns the document's text.
func (d *Document) IsOpen() bool { return d.open.Load() }

// SetOpen marks the document as owned by the editor.
func (d *Document) SetOpen(open bool) { d.open.Store(open) }

// Text returns the current text. Callers must not modify it.
func (d *Document) Text() []byte {
	d.textMu.RLock()
	defer d.textMu.RUnlock()
	return d.text
}

// Update replaces the whole text and marks the tree stale.
func (d *Document) Update(text []byte) {
	// Text before edit time: a parse that sees the old edit time must also
	// have seen the new text, or it would wrongly count as fresh.
	d.textMu.Lock()
	d.text = text
	d.textMu.Unlock()

	d.editMu.Lock()
	d.lastEdit = d.config.Now()
	d.editMu.Unlock()
}

// LastEdit returns when the text was last replaced.
func (d *Document) LastEdit() time.Time {
	d.editMu.RLock()
	defer d.editMu.RUnlock()
	return d.lastEdit
}

// LastParse returns when the most recent parse attempt started, or the zero
// time if none has run.
func (d *Document) LastParse() time.Time {
	d.parseMu.RLock()
	defer d.parseMu.RUnlock()
	return d.lastParse
}

// Current returns the cached tree without parsing.
func (d *Document) Current() Snapshot {
	d.treeMu.RLock()
	tree, text := d.tree, d.parsedText
	d.treeMu.RUnlock()

	if tree == nil {
		return Snapshot{Text: d.Text()}
	}
	return Snapshot{Tree: tree, Text: text}
}

// State reports whether the cached tree is missing, fresh or stale.
func (d *Document) State() State {
	d.treeMu.RLock()
	hasTree := d.tree != nil
	d.treeMu.RUnlock()

	if !hasTree {
		return StateEmpty
	}
	if d.LastParse().Before(d.LastEdit()) {
		return StateStale
	}
	return StateFresh
}

// Parse returns a tree for the document, reparsing first when the tree is
// missing, or stale with edits paused for at least the debounce interval
// (or older than MaxStaleness). Otherwise the cached tree is returned as is.
//
// A failed parse keeps the previous tree; the error is returned alongside
// the snapshot so callers can report it.
func (d *Document) Parse(ctx context.Context) (Snapshot, error) {
	if !d.shouldParse() {
		return d.Current(), nil
	}

	_, err, _ := d.flight.Do("parse", func() (any, error) {
		// A caller that decided to parse while another parse was finishing
		// must not parse the same text again.
		if !d.shouldParse() {
			return nil, nil
		}
		return nil, d.reparse(ctx)
	})
	return d.Current(), err
}

func (d *Document) shouldParse() bool {
	switch d.State() {
	case StateEmpty:
		return true
	case StateFresh:
		return false
	}

	now := d.config.Now()
	if now.Sub(d.LastEdit()) >= d.config.Debounce {
		return true
	}
	if d.config.MaxStaleness > 0 && now.Sub(d.LastParse()) >= d.config.MaxStaleness {
		return true
	}
	return false
}

func (d *Document) reparse(ctx context.Context) error {
	// Stamped before reading the text: an edit landing mid-parse has a
	// later edit time and keeps the document stale.
	started := d.config.Now()
	text := d.Text()

	d.treeMu.RLock()
	old := d.tree
	d.treeMu.RUnlock()

	tree, err := d.provider.Parse(ctx, text, old)
	if err == nil && tree == nil {
		err = parser.ErrUnavailable
	}
	// An abandoned parse says nothing about the text; the next caller
	// must still see the document as needing one.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if err == nil {
		d.treeMu.Lock()
		d.tree = tree
		d.parsedText = text
		d.treeMu.Unlock()
	}

	d.parseMu.Lock()
	if started.After(d.lastParse) {
		d.lastParse = started
	}
	d.parseMu.Unlock()

	return err
}
