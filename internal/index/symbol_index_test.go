package index

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/73ai/parsec/internal/symbols"
)

func syms(names ...string) []symbols.Symbol {
	out := make([]symbols.Symbol, len(names))
	for i, name := range names {
		out[i] = symbols.Symbol{
			Name: name,
			Kind: symbols.KindFunction,
			Range: symbols.Range{
				Start: symbols.Position{Line: uint32(i)},
				End:   symbols.Position{Line: uint32(i), Character: uint32(len(name))},
			},
		}
	}
	return out
}

func hitNames(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Name
	}
	return out
}

func TestSymbolIndex_Empty(t *testing.T) {
	ix := NewSymbolIndex()
	assert.Empty(t, ix.Search("foo", "", 10))
	assert.Empty(t, ix.Search("", "", 10))

	ix.Upsert("file:///w/a.jl", "/w/a.jl", syms("foo"))
	assert.Nil(t, ix.Search("foo", "", 0))
	assert.Nil(t, ix.Search("", "", -1))
}

func TestSymbolIndex_EmptyQueryListsInIndexingOrder(t *testing.T) {
	ix := NewSymbolIndex()
	ix.Upsert("file:///w/b.jl", "/w/b.jl", syms("b1", "b2"))
	ix.Upsert("file:///w/a.jl", "/w/a.jl", syms("a1"))
	ix.Upsert("file:///w/c.jl", "/w/c.jl", syms("c1", "c2"))

	// Replacing a document keeps its place.
	ix.Upsert("file:///w/b.jl", "/w/b.jl", syms("b3", "b4", "b5"))

	hits := ix.Search("   ", "", 100)
	assert.Equal(t, []string{"b3", "b4", "b5", "a1", "c1", "c2"}, hitNames(hits))
	for _, h := range hits {
		assert.Zero(t, h.Score)
	}

	assert.Equal(t, []string{"b3", "b4"}, hitNames(ix.Search("", "", 2)))
}

func TestSymbolIndex_UpsertReplacesWholeSnapshot(t *testing.T) {
	ix := NewSymbolIndex()
	uri := "file:///w/a.jl"

	ix.Upsert(uri, "/w/a.jl", syms("old1", "old2"))
	require.Len(t, ix.Entries(uri), 2)

	ix.Upsert(uri, "/w/a.jl", syms("new1"))
	entries := ix.Entries(uri)
	require.Len(t, entries, 1)
	assert.Equal(t, "new1", entries[0].Name)
	assert.Equal(t, "new1", entries[0].NameLower)
	assert.Equal(t, uri, entries[0].URI)

	assert.Empty(t, ix.Search("old", "", 10))

	ix.Upsert(uri, "/w/a.jl", nil)
	assert.Empty(t, ix.Entries(uri))
	assert.Equal(t, 1, ix.Documents())
	assert.Equal(t, 0, ix.Len())
}

func TestSymbolIndex_PathsUnder(t *testing.T) {
	ix := NewSymbolIndex()
	ix.Upsert("file:///w/pkg/a.jl", filepath.FromSlash("/w/pkg/a.jl"), syms("a"))
	ix.Upsert("file:///w/pkg/sub/b.jl", filepath.FromSlash("/w/pkg/sub/b.jl"), syms("b"))
	ix.Upsert("file:///w/pkgx/c.jl", filepath.FromSlash("/w/pkgx/c.jl"), syms("c"))
	ix.Upsert("file:///w/pkg/gone.jl", filepath.FromSlash("/w/pkg/gone.jl"), nil)

	assert.Equal(t, []string{
		filepath.FromSlash("/w/pkg/a.jl"),
		filepath.FromSlash("/w/pkg/sub/b.jl"),
	}, ix.PathsUnder(filepath.FromSlash("/w/pkg")))
	assert.Empty(t, ix.PathsUnder(filepath.FromSlash("/w/other")))
}

func TestSymbolIndex_ExactNameRecall(t *testing.T) {
	ix := NewSymbolIndex()
	// Names that score higher per character than "foo" on the raw
	// subsequence rules, placed before it in indexing order.
	ix.Upsert("file:///w/a.jl", "/w/a.jl", syms("f_o_o", "F_O_O", "fooBar", "foo_o", "f.o.o"))
	for i := 0; i < 50; i++ {
		ix.Upsert(fmt.Sprintf("file:///w/n%d.jl", i), "/w/n.jl", syms(fmt.Sprintf("f_o_o_%d", i)))
	}
	ix.Upsert("file:///w/z.jl", "/w/z.jl", syms("foo"))

	hits := ix.Search("foo", "", 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "foo", hits[0].Name)

	hits = ix.Search("FOO", "", 1)
	require.Len(t, hits, 1)
	assert.Equal(t, "foo", hits[0].Name)
}

func TestSymbolIndex_RankingIsMonotonic(t *testing.T) {
	ix := NewSymbolIndex()
	ix.Upsert("file:///w/a.jl", "/w/a.jl", syms(
		"plot", "plot_recipe", "PlotSeries", "splot", "polt", "p_l_o_t", "replot", "plot!", "unrelated",
	))

	hits := ix.Search("plot", "", 100)
	require.NotEmpty(t, hits)
	assert.NotContains(t, hitNames(hits), "unrelated")
	assert.NotContains(t, hitNames(hits), "polt")
	assert.Equal(t, "plot", hits[0].Name)

	for i := 1; i < len(hits); i++ {
		prev, cur := hits[i-1], hits[i]
		if prev.Score == cur.Score {
			assert.LessOrEqual(t, len(prev.Name), len(cur.Name), "%s before %s", prev.Name, cur.Name)
			continue
		}
		assert.Greater(t, prev.Score, cur.Score)
	}
}

func TestSymbolIndex_TiesBreakByDiscoveryOrder(t *testing.T) {
	ix := NewSymbolIndex()
	ix.Upsert("file:///w/b.jl", "/w/b.jl", syms("abc"))
	ix.Upsert("file:///w/a.jl", "/w/a.jl", syms("abd", "abe"))

	hits := ix.Search("ab", "", 10)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"abc", "abd", "abe"}, hitNames(hits))
	assert.Equal(t, "/w/b.jl", hits[0].Path)
}

func TestSymbolIndex_LimitKeepsBest(t *testing.T) {
	ix := NewSymbolIndex()
	var names []string
	for i := 0; i < 200; i++ {
		names = append(names, fmt.Sprintf("x%03d_value", i))
	}
	names = append(names, "value")
	ix.Upsert("file:///w/a.jl", "/w/a.jl", syms(names...))

	all := ix.Search("value", "", 1000)
	top := ix.Search("value", "", 5)
	require.Len(t, top, 5)
	assert.Equal(t, all[:5], top)
	assert.Equal(t, "value", top[0].Name)
}

func TestSymbolIndex_Scope(t *testing.T) {
	ix := NewSymbolIndex()
	ix.Upsert("file:///w/src/a.jl", "/w/src/a.jl", syms("inside"))
	ix.Upsert("file:///w/src2/b.jl", "/w/src2/b.jl", syms("sibling"))
	ix.Upsert("file:///w/src/deep/c.jl", "/w/src/deep/c.jl", syms("nested"))

	assert.Equal(t, []string{"inside", "nested"}, hitNames(ix.Search("", "/w/src", 10)))
	assert.Equal(t, []string{"inside", "nested"}, hitNames(ix.Search("", "/w/src/", 10)))
	assert.Equal(t, []string{"sibling"}, hitNames(ix.Search("s", "/w/src2", 10)))
	assert.Len(t, ix.Search("", "", 10), 3)
}

func TestSymbolIndex_ConcurrentUpsertAndSearch(t *testing.T) {
	ix := NewSymbolIndex()
	uri := "file:///w/a.jl"
	first := syms("alpha1", "alpha2")
	second := syms("alpha3", "alpha4", "alpha5")
	ix.Upsert(uri, "/w/a.jl", first)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				ix.Upsert(uri, "/w/a.jl", second)
			} else {
				ix.Upsert(uri, "/w/a.jl", first)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		got := hitNames(ix.Search("", "", 10))
		switch len(got) {
		case 2:
			assert.Equal(t, []string{"alpha1", "alpha2"}, got)
		case 3:
			assert.Equal(t, []string{"alpha3", "alpha4", "alpha5"}, got)
		default:
			t.Fatalf("torn snapshot: %v", got)
		}
	}
	wg.Wait()
}
