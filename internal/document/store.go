package document

import (
	"github.com/73ai/parsec/internal/parser"
	"github.com/73ai/parsec/internal/shardmap"
)

// Store is the concurrent registry of documents keyed by URI. Documents are
// never evicted.
type Store struct {
	docs     *shardmap.Map[*Document]
	provider parser.Provider
	config   Config
}

// NewStore creates an empty store whose documents parse with provider.
func NewStore(provider parser.Provider, config Config) *Store {
	return &Store{
		docs:     shardmap.New[*Document](0),
		provider: provider,
		config:   config.normalized(),
	}
}

// Config returns the parse settings shared by the store's documents.
func (s *Store) Config() Config { return s.config }

// Open records text received from the editor and marks the document open.
// A document that is already open is updated in place; one only known from
// disk is replaced, so the editor's text is parsed right away.
func (s *Store) Open(uri, path string, text []byte) *Document {
	return s.docs.Update(uri, func(old *Document, ok bool) *Document {
		if ok && old.IsOpen() {
			old.Update(text)
			return old
		}
		doc := New(uri, path, text, s.provider, s.config)
		doc.SetOpen(true)
		return doc
	})
}

// Update replaces the text of a known document. It reports false when the
// URI has never been opened or discovered.
func (s *Store) Update(uri string, text []byte) (*Document, bool) {
	doc, ok := s.docs.Get(uri)
	if !ok {
		return nil, false
	}
	doc.Update(text)
	return doc, true
}

// Get returns the document for uri.
func (s *Store) Get(uri string) (*Document, bool) {
	return s.docs.Get(uri)
}

// Put stores a discovered document unless the editor already has it open,
// in which case the open document is returned unchanged. replaced reports
// whether text was written.
//
// A document that is not open is replaced by a new, unparsed one rather
// than edited, so its next Parse is not held back by the debounce.
func (s *Store) Put(uri, path string, text []byte) (doc *Document, replaced bool) {
	doc = s.docs.Update(uri, func(old *Document, ok bool) *Document {
		if ok && old.IsOpen() {
			return old
		}
		replaced = true
		return New(uri, path, text, s.provider, s.config)
	})
	return doc, replaced
}

// Len returns the number of documents.
func (s *Store) Len() int { return s.docs.Len() }

// Range calls fn for every document until fn returns false.
func (s *Store) Range(fn func(doc *Document) bool) {
	s.docs.Range(func(_ string, doc *Document) bool {
		return fn(doc)
	})
}
