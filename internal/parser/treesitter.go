package parser

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrUnavailable is returned when the parser engine produced no tree.
var ErrUnavailable = errors.New("parser returned no tree")

// Node is the read-only view of a syntax node used by symbol extraction.
// Methods returning a Node return nil when the child does not exist.
type Node interface {
	Kind() string
	IsNamed() bool
	StartByte() uint
	EndByte() uint
	NamedChildCount() uint
	NamedChild(i uint) Node
	ChildByFieldName(name string) Node
}

// Tree is an immutable syntax tree.
type Tree interface {
	Root() Node
}

// Provider turns source text into a syntax tree. old is the previous tree of
// the same document, if any; providers may ignore it.
type Provider interface {
	Parse(ctx context.Context, src []byte, old Tree) (Tree, error)
}

// SyntaxError is an ERROR or MISSING node found in a parsed tree.
type SyntaxError struct {
	Line      int
	Column    int
	StartByte uint
	EndByte   uint
	Message   string
}

// ErrorReporter is implemented by trees that can list their syntax errors.
type ErrorReporter interface {
	SyntaxErrors(limit int) []SyntaxError
}

// TreeSitterParser provides tree-sitter based parsing functionality
type TreeSitterParser struct {
	config *LanguageConfig
}

// NewTreeSitterParser creates a parser for the given language configuration.
func NewTreeSitterParser(config *LanguageConfig) (*TreeSitterParser, error) {
	if config == nil || config.Language == nil {
		return nil, fmt.Errorf("language configuration is missing a grammar")
	}
	return &TreeSitterParser{config: config}, nil
}

// NewJuliaParser creates a parser for Julia source.
func NewJuliaParser() (*TreeSitterParser, error) {
	return NewTreeSitterParser(Julia())
}

// Language returns the parser's language configuration.
func (p *TreeSitterParser) Language() *LanguageConfig {
	return p.config
}

// Parse parses src into a tree. Incremental reuse of old is not attempted:
// the caller hands over whole snapshots without edit ranges, and reusing an
// unedited old tree would produce wrong nodes.
func (p *TreeSitterParser) Parse(ctx context.Context, src []byte, old Tree) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.config.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, ErrUnavailable
	}
	return newTree(tree), nil
}

type tsTree struct {
	tree *sitter.Tree
}

func newTree(tree *sitter.Tree) *tsTree {
	t := &tsTree{tree: tree}
	// Trees are shared between readers and replaced wholesale, so nobody
	// owns the moment it becomes unreachable.
	runtime.SetFinalizer(t, func(t *tsTree) { t.tree.Close() })
	return t
}

func (t *tsTree) Root() Node {
	return wrap(t.tree.RootNode(), t)
}

// SyntaxErrors walks the tree and collects up to limit ERROR or MISSING nodes.
func (t *tsTree) SyntaxErrors(limit int) []SyntaxError {
	root := t.tree.RootNode()
	if root == nil || !root.HasError() {
		return nil
	}

	var out []SyntaxError
	stack := []*sitter.Node{root}
	for len(stack) > 0 && (limit <= 0 || len(out) < limit) {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsError() || n.IsMissing() {
			pos := n.StartPosition()
			msg := "syntax error"
			if n.IsMissing() {
				msg = fmt.Sprintf("missing %s", n.Kind())
			}
			out = append(out, SyntaxError{
				Line:      int(pos.Row),
				Column:    int(pos.Column),
				StartByte: n.StartByte(),
				EndByte:   n.EndByte(),
				Message:   msg,
			})
			continue
		}
		if !n.HasError() {
			continue
		}

		for i := n.ChildCount(); i > 0; i-- {
			if child := n.Child(i - 1); child != nil {
				stack = append(stack, child)
			}
		}
	}
	runtime.KeepAlive(t)
	return out
}

// tsNode points into C memory owned by t, so every node keeps its tree
// reachable until the node itself is dropped.
type tsNode struct {
	n *sitter.Node
	t *tsTree
}

// wrap keeps a nil *sitter.Node from turning into a non-nil Node interface.
func wrap(n *sitter.Node, t *tsTree) Node {
	if n == nil {
		return nil
	}
	return tsNode{n: n, t: t}
}

func (n tsNode) Kind() string {
	kind := n.n.Kind()
	runtime.KeepAlive(n.t)
	return kind
}

func (n tsNode) IsNamed() bool {
	named := n.n.IsNamed()
	runtime.KeepAlive(n.t)
	return named
}

func (n tsNode) StartByte() uint {
	b := n.n.StartByte()
	runtime.KeepAlive(n.t)
	return b
}

func (n tsNode) EndByte() uint {
	b := n.n.EndByte()
	runtime.KeepAlive(n.t)
	return b
}

func (n tsNode) NamedChildCount() uint {
	c := n.n.NamedChildCount()
	runtime.KeepAlive(n.t)
	return c
}

func (n tsNode) NamedChild(i uint) Node {
	return wrap(n.n.NamedChild(i), n.t)
}

func (n tsNode) ChildByFieldName(name string) Node {
	return wrap(n.n.ChildByFieldName(name), n.t)
}
