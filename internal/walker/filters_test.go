package walker

import (
	"io/fs"
	"testing"
	"time"
)

type fakeInfo struct {
	name string
	size int64
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return 0644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

func TestFilters_ShouldInclude(t *testing.T) {
	julia := ForExtensions("jl")
	julia.SetSizeRange(0, 100)

	tests := []struct {
		name    string
		filters *Filters
		path    string
		size    int64
		want    bool
	}{
		{"matching extension", julia, "/w/a.jl", 10, true},
		{"extension is case insensitive", julia, "/w/A.JL", 10, true},
		{"other extension", julia, "/w/a.py", 10, false},
		{"no extension", julia, "/w/Makefile", 10, false},
		{"too large", julia, "/w/big.jl", 101, false},
		{"default accepts all", NewFilters(), "/w/a.txt", 10, true},
		{"default size bound", NewFilters(), "/w/a.txt", DefaultMaxFileSize + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filters.ShouldInclude(tt.path, fakeInfo{name: tt.path, size: tt.size}); got != tt.want {
				t.Errorf("ShouldInclude(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
