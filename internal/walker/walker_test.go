package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
)

func TestWalker_New(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "custom config", config: &Config{BufferSize: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			walker, err := New(tt.config)
			if err != nil {
				t.Errorf("New() error = %v", err)
				return
			}
			if walker == nil {
				t.Errorf("New() returned nil walker")
			}
		})
	}
}

func TestWalker_Walk(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/Pkg.jl":         "module Pkg end",
		"src/util.jl":        "f() = 1",
		"README.md":          "# Pkg",
		"test/runtests.jl":   "using Test",
		".hidden/secret.jl":  "x = 1",
		".git/config":        "[core]",
		".git/hooks/hook.jl": "x = 1",
	})

	config := testConfig()
	config.Filters = ForExtensions(".jl")

	equalPaths(t, walkRel(t, tmpDir, config), []string{
		"src/Pkg.jl", "src/util.jl", "test/runtests.jl", ".hidden/secret.jl",
	})
}

func TestWalker_Walk_Context(t *testing.T) {
	tmpDir := t.TempDir()

	for i := 0; i < 100; i++ {
		path := filepath.Join(tmpDir, "file"+strconv.Itoa(i)+".jl")
		if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	config := testConfig()
	config.Context = ctx
	config.BufferSize = 1

	walker, err := New(config)
	if err != nil {
		t.Fatal(err)
	}

	results, err := walker.Walk(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	<-results
	cancel()

	count := 0
	for range results {
		count++
	}
	if count > 2 {
		t.Errorf("Context cancellation not respected: %d results after cancel", count)
	}
}

func TestWalker_Stats(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"a.jl":       "x = 1",
		"b.txt":      "text",
		"dir1/c.jl":  "x = 1",
		"dir2/d.jl":  "x = 1",
		".gitignore": "dir2/\n",
	})

	config := testConfig()
	config.Filters = ForExtensions("jl")

	walker, err := New(config)
	if err != nil {
		t.Fatal(err)
	}

	results, err := walker.Walk(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	for range results {
	}

	stats := walker.Stats()
	if stats.FilesFound != 2 {
		t.Errorf("FilesFound = %d, want 2", stats.FilesFound)
	}
	if stats.DirsTraversed != 2 {
		t.Errorf("DirsTraversed = %d, want 2 (root and dir1)", stats.DirsTraversed)
	}
	if stats.DirsIgnored != 1 {
		t.Errorf("DirsIgnored = %d, want 1", stats.DirsIgnored)
	}
	if stats.FilesFiltered != 2 {
		t.Errorf("FilesFiltered = %d, want 2 (b.txt and .gitignore)", stats.FilesFiltered)
	}
	if stats.Duration == 0 {
		t.Error("Stats should show duration")
	}
}

func TestWalker_HiddenFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"visible.jl":         "x = 1",
		".hidden.jl":         "x = 1",
		".hiddendir/file.jl": "x = 1",
	})

	t.Run("exclude hidden", func(t *testing.T) {
		config := testConfig()
		config.HiddenFiles = false
		equalPaths(t, walkRel(t, tmpDir, config), []string{"visible.jl"})
	})

	t.Run("include hidden", func(t *testing.T) {
		equalPaths(t, walkRel(t, tmpDir, testConfig()), []string{
			"visible.jl", ".hidden.jl", ".hiddendir/file.jl",
		})
	})
}

func TestWalker_SkipsSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"real.jl": "x = 1"})
	writeTree(t, outside, map[string]string{"elsewhere.jl": "x = 1"})

	if err := os.Symlink(outside, filepath.Join(tmpDir, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(tmpDir, "real.jl"), filepath.Join(tmpDir, "alias.jl")); err != nil {
		t.Fatal(err)
	}

	walker, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	results, err := walker.Walk(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for r := range results {
		got = append(got, filepath.ToSlash(r.RelPath))
	}
	equalPaths(t, got, []string{"real.jl"})

	if walker.Stats().SymlinksSkipped != 2 {
		t.Errorf("SymlinksSkipped = %d, want 2", walker.Stats().SymlinksSkipped)
	}
}

func TestWalker_IncludeDirs(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/a.jl":   "x = 1",
		"build/b.jl": "x = 1",
		".gitignore": "build/\n",
	})

	config := testConfig()
	config.IncludeDirs = true

	walker, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	results, err := walker.Walk(tmpDir)
	if err != nil {
		t.Fatal(err)
	}

	dirs := map[string]bool{}
	for r := range results {
		if r.Info != nil && r.Info.IsDir() {
			dirs[filepath.ToSlash(r.RelPath)] = true
		}
	}
	if !dirs["."] || !dirs["src"] {
		t.Errorf("expected root and src directories, got %v", dirs)
	}
	if dirs["build"] {
		t.Error("ignored directory should not be reported")
	}
}

func TestWalker_DirsOnly(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/a.jl":       "x = 1",
		"src/inner/b.jl": "x = 1",
		"docs/":          "",
	})

	config := testConfig()
	config.DirsOnly = true

	if files := walkFiles(t, tmpDir, config); len(files) != 0 {
		t.Errorf("DirsOnly walk yielded %d files", len(files))
	}

	walker, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := walker.Walk(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for r := range ch {
		if r.Info == nil || !r.Info.IsDir() {
			t.Errorf("unexpected file result %s", r.RelPath)
			continue
		}
		got = append(got, filepath.ToSlash(r.RelPath))
	}
	sort.Strings(got)
	equalPaths(t, got, []string{".", "docs", "src", "src/inner"})
}

func TestWalker_SingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "single.jl")
	if err := os.WriteFile(filePath, []byte("x = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	walker, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	results, err := walker.Walk(filePath)
	if err != nil {
		t.Fatal(err)
	}

	count := 0
	var result Result
	for r := range results {
		result = r
		count++
	}

	if count != 1 {
		t.Fatalf("Expected 1 result, got %d", count)
	}
	if result.Path != filePath {
		t.Errorf("Expected path %s, got %s", filePath, result.Path)
	}
}

func TestWalker_NonexistentPath(t *testing.T) {
	walker, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	_, err = walker.Walk("/nonexistent/path")
	if err == nil {
		t.Error("Expected error for nonexistent path")
	}
}
