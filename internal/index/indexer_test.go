package index

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/walker"
)

func testIndexer(t *testing.T) (*Indexer, *document.Store) {
	t.Helper()
	store := document.NewStore(&lineProvider{}, document.DefaultConfig())
	config := DefaultConfig()
	config.Workers = 2
	config.Ignore = walker.DefaultIgnoreOptions()
	config.Ignore.Global = false
	ix := NewIndexer(store, NewSymbolIndex(), nil, config, nil)
	t.Cleanup(ix.Stop)
	return ix, store
}

func indexedNames(ix *SymbolIndex) []string {
	names := hitNames(ix.Search("", "", 1000))
	sort.Strings(names)
	return names
}

func TestIndexer_PackagesAndDevRoots(t *testing.T) {
	base := t.TempDir()
	ws := filepath.Join(base, "ws")
	depot := filepath.Join(base, "depot")

	writeFiles(t, base, map[string]string{
		"ws/Project.toml":     "[deps]\nPlots = \"x\"\nAlpha = \"y\"\n",
		"ws/.gitignore":       "build/\n",
		"ws/src/Demo.jl":      "module Demo\nfunction wsmain\n",
		"ws/test/runtests.jl": "function wstest\n",
		"ws/build/gen.jl":     "function generated\n",
		"ws/notes.txt":        "function notjulia\n",
		"ws/src/bad.jl":       "function \xff\xfe\n",

		"depot/packages/Plots/abc1/src/Plots.jl":       "function plot\nstruct Series\n",
		"depot/packages/Plots/abc1/src/backends/gr.jl": "function gr\n",
		"depot/packages/Plots/abc1/test/runtests.jl":   "function plottest\n",
		"depot/packages/Plots/abc1/docs/make.jl":       "function makedocs\n",
		"depot/dev/Alpha/src/Alpha.jl":                 "function alpha\n",
		"depot/dev/Alpha/test/runtests.jl":             "function alphatest\n",
	})

	ix, _ := testIndexer(t)
	roots := ix.Start(ws, Environment{DepotPath: depot})
	require.Len(t, roots, 3)
	ix.Wait()

	assert.Equal(t, []string{
		"Demo", "Series", "alpha", "alphatest", "gr", "plot", "wsmain", "wstest",
	}, indexedNames(ix.Index()))

	stats := ix.Stats()
	assert.Equal(t, int64(3), stats.Roots)
	assert.Equal(t, int64(2), stats.FilesFiltered)
	assert.Equal(t, int64(1), stats.FilesSkipped)
	assert.Equal(t, int64(6), stats.FilesIndexed)
	assert.Equal(t, int64(8), stats.SymbolsIndexed)
	assert.Equal(t, int64(6), stats.Documents)
}

func TestIndexer_DoesNotClobberOpenDocuments(t *testing.T) {
	ws := t.TempDir()
	writeFiles(t, ws, map[string]string{
		"a.jl": "function fromdisk\n",
		"b.jl": "function other\n",
	})

	ix, store := testIndexer(t)
	path := filepath.Join(ws, "a.jl")
	uri := document.PathToURI(path)
	doc := store.Open(uri, path, []byte("function fromeditor\n"))
	require.NoError(t, ix.IndexDocument(context.Background(), doc))

	ix.Start(ws, Environment{DepotPath: filepath.Join(ws, "nodepot")})
	ix.Wait()

	assert.Equal(t, []string{"fromeditor", "other"}, indexedNames(ix.Index()))
	assert.Equal(t, []byte("function fromeditor\n"), doc.Text())

	// Deleting the file on disk does not drop the editor's symbols.
	ix.Remove(path)
	assert.Equal(t, []string{"fromeditor", "other"}, indexedNames(ix.Index()))

	ix.Remove(filepath.Join(ws, "b.jl"))
	assert.Equal(t, []string{"fromeditor"}, indexedNames(ix.Index()))

	// A path that never contributed symbols is not recorded.
	ix.Remove(filepath.Join(ws, "never.jl"))
	assert.Equal(t, 2, ix.Index().Documents())
}

func TestIndexer_IndexFileReplacesSnapshot(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "a.jl")
	writeFiles(t, ws, map[string]string{"a.jl": "function first\n"})

	ix, _ := testIndexer(t)
	ctx := context.Background()
	require.NoError(t, ix.IndexFile(ctx, path))
	assert.Equal(t, []string{"first"}, indexedNames(ix.Index()))

	writeFiles(t, ws, map[string]string{"a.jl": "function second\nconst LIMIT\n"})
	require.NoError(t, ix.IndexFile(ctx, path))
	assert.Equal(t, []string{"LIMIT", "second"}, indexedNames(ix.Index()))
	assert.Equal(t, 1, ix.Index().Documents())
}

func TestIndexer_IndexFileErrors(t *testing.T) {
	ws := t.TempDir()
	writeFiles(t, ws, map[string]string{"bad.jl": "\xc3\x28"})

	ix, _ := testIndexer(t)
	ctx := context.Background()

	err := ix.IndexFile(ctx, filepath.Join(ws, "missing.jl"))
	assert.True(t, IsKind(err, KindIoSkip), "got %v", err)

	err = ix.IndexFile(ctx, filepath.Join(ws, "bad.jl"))
	assert.True(t, IsKind(err, KindIoSkip), "got %v", err)
	assert.ErrorIs(t, err, ErrInvalidText)

	assert.Equal(t, int64(2), ix.Stats().FilesSkipped)
	assert.Zero(t, ix.Index().Documents())
}

func TestIndexer_HeuristicSymbols(t *testing.T) {
	ws := t.TempDir()
	writeFiles(t, ws, map[string]string{
		"recipes.jl": "@userplot MarginalHist\n@recipe function marginalhist\n",
	})

	ix, _ := testIndexer(t)
	require.NoError(t, ix.IndexFile(context.Background(), filepath.Join(ws, "recipes.jl")))

	hits := ix.Index().Search("marginal", "", 10)
	assert.ElementsMatch(t, []string{"MarginalHist", "marginalhist"}, hitNames(hits))
}
