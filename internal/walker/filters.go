package walker

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxFileSize bounds the size of files handed to the parser.
const DefaultMaxFileSize = 10 << 20

// Filters decides which regular files a walk yields
type Filters struct {
	includedExts map[string]bool // Extensions to accept; empty accepts all
	maxSize      int64           // Maximum file size to consider, 0 = no limit
	minSize      int64           // Minimum file size to consider
	mu           sync.RWMutex    // Protects filter configuration
}

// NewFilters creates a filter that accepts every file up to DefaultMaxFileSize
func NewFilters() *Filters {
	return &Filters{
		includedExts: make(map[string]bool),
		maxSize:      DefaultMaxFileSize,
	}
}

// ForExtensions creates a filter accepting only the given extensions
func ForExtensions(exts ...string) *Filters {
	f := NewFilters()
	for _, ext := range exts {
		f.IncludeExtension(ext)
	}
	return f
}

// ShouldInclude determines if a file should be included based on current filters
func (f *Filters) ShouldInclude(path string, info fs.FileInfo) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.maxSize > 0 && info.Size() > f.maxSize {
		return false
	}
	if f.minSize > 0 && info.Size() < f.minSize {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	if len(f.includedExts) > 0 && !f.includedExts[ext] {
		return false
	}

	return true
}

// IncludeExtension restricts the filter to ext and any other included ones
func (f *Filters) IncludeExtension(ext string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.includedExts[normalizeExt(ext)] = true
}

// SetSizeRange sets the accepted file size range; 0 disables a bound
func (f *Filters) SetSizeRange(minSize, maxSize int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minSize = minSize
	f.maxSize = maxSize
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
