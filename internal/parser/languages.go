package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_julia "github.com/tree-sitter/tree-sitter-julia/bindings/go"
)

// LanguageConfig holds configuration for a specific language parser
type LanguageConfig struct {
	Language   *sitter.Language
	Extensions []string
	Name       string
}

// Julia returns the configuration of the only language parsec serves.
func Julia() *LanguageConfig {
	return &LanguageConfig{
		Language:   sitter.NewLanguage(tree_sitter_julia.Language()),
		Extensions: []string{".jl"},
		Name:       "julia",
	}
}

// Supports reports whether path carries one of the language's extensions.
func (c *LanguageConfig) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
