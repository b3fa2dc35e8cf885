package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// writeTree creates files under root; a trailing slash creates a directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := os.MkdirAll(full, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// testConfig returns a config that ignores the machine's global excludes.
func testConfig() *Config {
	config := DefaultConfig()
	config.Ignore.Global = false
	return config
}

// walkFiles walks root with config and collects the accepted files,
// dropping directories and entries that failed.
func walkFiles(t *testing.T, root string, config *Config) []Result {
	t.Helper()
	walker, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	results, err := walker.Walk(root)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	var files []Result
	for r := range results {
		if r.Error != nil || r.Info == nil || r.Info.IsDir() {
			continue
		}
		files = append(files, r)
	}
	return files
}

// walkRel walks root and returns the sorted, slash-separated relative paths.
func walkRel(t *testing.T, root string, config *Config) []string {
	t.Helper()
	var out []string
	for _, r := range walkFiles(t, root, config) {
		out = append(out, filepath.ToSlash(r.RelPath))
	}
	sort.Strings(out)
	return out
}

func equalPaths(t *testing.T, got, want []string) {
	t.Helper()
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
