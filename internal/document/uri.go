package document

import (
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"
)

// PathToURI converts a filesystem path to a file URI. Relative paths are
// resolved against the working directory.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return string(uri.File(path))
}

// URIToPath returns the filesystem path of a file URI, or "" for any other
// scheme or a malformed URI.
func URIToPath(u string) (path string) {
	if !strings.HasPrefix(u, uri.FileScheme+"://") {
		return ""
	}
	// Filename panics on URIs it cannot parse.
	defer func() {
		if recover() != nil {
			path = ""
		}
	}()
	return filepath.Clean(uri.URI(u).Filename())
}
