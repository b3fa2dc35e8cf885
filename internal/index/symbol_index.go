package index

import (
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/73ai/parsec/internal/search"
	"github.com/73ai/parsec/internal/shardmap"
	"github.com/73ai/parsec/internal/symbols"
)

// Entry is one searchable symbol.
type Entry struct {
	Name      string         `json:"name"`
	NameLower string         `json:"-"`
	URI       string         `json:"uri"`
	Path      string         `json:"path"`
	Range     symbols.Range  `json:"range"`
	Kind      symbols.Kind   `json:"kind"`
	Origin    symbols.Origin `json:"origin"`
}

// Hit is a search result.
type Hit struct {
	Entry
	Score int `json:"score"`
}

// snapshot is the immutable symbol list of one document. seq is the order in
// which the document was first indexed and never changes on replacement.
type snapshot struct {
	seq     uint64
	path    string
	entries []Entry
}

// SymbolIndex holds one symbol snapshot per document. Each upsert swaps the
// whole snapshot, so readers see either the old or the new list.
type SymbolIndex struct {
	docs *shardmap.Map[*snapshot]
	seq  atomic.Uint64
}

// NewSymbolIndex creates an empty index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{docs: shardmap.New[*snapshot](0)}
}

// Upsert replaces the snapshot of the document at uri. An empty list keeps
// the document known but makes it contribute nothing.
func (ix *SymbolIndex) Upsert(uri, path string, syms []symbols.Symbol) {
	entries := make([]Entry, len(syms))
	for i, s := range syms {
		entries[i] = Entry{
			Name:      s.Name,
			NameLower: search.Lower(s.Name),
			URI:       uri,
			Path:      path,
			Range:     s.Range,
			Kind:      s.Kind,
			Origin:    s.Origin,
		}
	}

	ix.docs.Update(uri, func(old *snapshot, ok bool) *snapshot {
		if ok {
			return &snapshot{seq: old.seq, path: path, entries: entries}
		}
		return &snapshot{seq: ix.seq.Add(1), path: path, entries: entries}
	})
}

// Entries returns the current snapshot of one document.
func (ix *SymbolIndex) Entries(uri string) []Entry {
	snap, ok := ix.docs.Get(uri)
	if !ok {
		return nil
	}
	return snap.entries
}

// Documents returns the number of indexed documents.
func (ix *SymbolIndex) Documents() int { return ix.docs.Len() }

// PathsUnder returns the paths of documents inside dir that still
// contribute symbols, in indexing order.
func (ix *SymbolIndex) PathsUnder(dir string) []string {
	inside := scopeFilter(dir)
	var out []string
	for _, b := range ix.blocks() {
		if len(b.entries) > 0 && b.path != "" && inside(b.path) {
			out = append(out, b.path)
		}
	}
	return out
}

// Len returns the number of indexed symbols.
func (ix *SymbolIndex) Len() int {
	n := 0
	ix.docs.Range(func(_ string, snap *snapshot) bool {
		n += len(snap.entries)
		return true
	})
	return n
}

// blocks returns the current snapshots in indexing order.
func (ix *SymbolIndex) blocks() []*snapshot {
	var out []*snapshot
	ix.docs.Range(func(_ string, snap *snapshot) bool {
		out = append(out, snap)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Search returns up to limit entries matching query. A non-empty prefix
// restricts results to paths inside that directory.
//
// An empty query lists entries in indexing order with score 0. Otherwise an
// entry matches when the query is a case-insensitive subsequence of its name,
// and results are ranked by score, then shorter name, then indexing order.
func (ix *SymbolIndex) Search(query, prefix string, limit int) []Hit {
	if limit <= 0 {
		return nil
	}

	blocks := ix.blocks()
	query = strings.TrimSpace(query)
	inScope := scopeFilter(prefix)

	if query == "" {
		var out []Hit
		for _, b := range blocks {
			for _, e := range b.entries {
				if !inScope(e.Path) {
					continue
				}
				out = append(out, Hit{Entry: e})
				if len(out) >= limit {
					return out
				}
			}
		}
		return out
	}

	ql := search.Lower(query)
	sel := search.NewSelector(limit)
	order := 0
	for bi, b := range blocks {
		for ei := range b.entries {
			e := &b.entries[ei]
			order++
			if !inScope(e.Path) {
				continue
			}
			score, ok := search.Score(ql, e.Name, e.NameLower)
			if !ok {
				continue
			}
			sel.Offer(search.Candidate{
				Score:  score,
				Length: len(e.Name),
				Order:  order,
				Block:  bi,
				Pos:    ei,
			})
		}
	}

	results := sel.Results()
	out := make([]Hit, len(results))
	for i, c := range results {
		out[i] = Hit{Entry: blocks[c.Block].entries[c.Pos], Score: c.Score}
	}
	return out
}

// scopeFilter matches paths equal to or below dir, by whole components.
func scopeFilter(dir string) func(string) bool {
	if dir == "" {
		return func(string) bool { return true }
	}
	dir = filepath.Clean(dir)
	withSep := dir
	if !strings.HasSuffix(withSep, string(filepath.Separator)) {
		withSep += string(filepath.Separator)
	}
	return func(p string) bool {
		return p == dir || strings.HasPrefix(p, withSep)
	}
}
