package symbols

import (
	"log/slog"
	"sort"

	"github.com/73ai/parsec/internal/parser"
)

// OutlineNode is one entry of a document outline.
type OutlineNode struct {
	Name      string         `json:"name"`
	Kind      Kind           `json:"kind"`
	Span      Span           `json:"span"`
	Range     Range          `json:"range"`
	Selection Range          `json:"selection_range"`
	Children  []*OutlineNode `json:"children,omitempty"`
}

// Symbol is one entry of a flat symbol list.
type Symbol struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Span   Span   `json:"span"`
	Range  Range  `json:"range"`
	Origin Origin `json:"origin"`
}

// Extractor maps syntax trees to outlines and symbol lists. The zero value
// extracts structural symbols only and logs nothing.
type Extractor struct {
	Heuristics Heuristics
	Logger     *slog.Logger
}

// NewExtractor creates an extractor with the given heuristic passes.
func NewExtractor(h Heuristics, logger *slog.Logger) *Extractor {
	return &Extractor{Heuristics: h, Logger: logger}
}

// declaration is a classified node with a resolved name.
type declaration struct {
	kind Kind
	node Span
	name Span
}

// Outline builds the nested outline of one document. A nil tree yields an
// empty outline.
func (e *Extractor) Outline(tree parser.Tree, src []byte) []*OutlineNode {
	decls := e.declarations(tree, src)
	if len(decls) == 0 {
		return nil
	}

	li := NewLineIndex(src)
	items := make([]*OutlineNode, 0, len(decls))
	for _, d := range decls {
		items = append(items, &OutlineNode{
			Name:      string(src[d.name.Start:d.name.End]),
			Kind:      d.kind,
			Span:      d.node,
			Range:     li.Range(d.node),
			Selection: li.Range(d.name),
		})
	}

	// Same-start intervals put the longer one first, so an enclosing node
	// is always on the stack before the nodes it contains.
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Span, items[j].Span
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End > b.End
	})

	return nest(items)
}

// nest reconstructs containment from intervals sorted by start in one pass.
// A node that only partly overlaps the open one becomes its sibling.
func nest(items []*OutlineNode) []*OutlineNode {
	var roots []*OutlineNode
	stack := make([]*OutlineNode, 0, 16)

	closeTop := func() {
		done := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, done)
		} else {
			roots = append(roots, done)
		}
	}

	for _, item := range items {
		for len(stack) > 0 && !stack[len(stack)-1].Span.Contains(item.Span) {
			closeTop()
		}
		stack = append(stack, item)
	}
	for len(stack) > 0 {
		closeTop()
	}
	return roots
}

// Collect returns the structural symbols of a document in tree order.
func (e *Extractor) Collect(tree parser.Tree, src []byte) []Symbol {
	decls := e.declarations(tree, src)
	if len(decls) == 0 {
		return nil
	}

	li := NewLineIndex(src)
	out := make([]Symbol, 0, len(decls))
	for _, d := range decls {
		out = append(out, Symbol{
			Name:   string(src[d.name.Start:d.name.End]),
			Kind:   d.kind,
			Span:   d.node,
			Range:  li.Range(d.node),
			Origin: OriginSyntax,
		})
	}
	return out
}

// Symbols returns the structural symbols followed by the heuristic ones.
// This is the list the workspace index stores.
func (e *Extractor) Symbols(tree parser.Tree, src []byte) []Symbol {
	out := e.Collect(tree, src)
	return append(out, e.Heuristics.Synthesize(src)...)
}

func (e *Extractor) declarations(tree parser.Tree, src []byte) []declaration {
	if tree == nil {
		return nil
	}
	root := tree.Root()
	if root == nil {
		return nil
	}

	var out []declaration
	walk(root, func(n parser.Node) {
		kind, ok := Classify(n.Kind())
		if !ok {
			return
		}

		nodeSpan, ok := clampSpan(n, src)
		if !ok {
			return
		}
		name := nameNode(n)
		if name == nil {
			e.debug("declaration without name", n)
			return
		}
		nameSpan, ok := clampSpan(name, src)
		if !ok || nameSpan.Start == nameSpan.End {
			e.debug("declaration with empty name", n)
			return
		}

		out = append(out, declaration{kind: kind, node: nodeSpan, name: nameSpan})
	})
	return out
}

func (e *Extractor) debug(msg string, n parser.Node) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debug(msg, "kind", n.Kind(), "start", n.StartByte(), "end", n.EndByte())
}

// walk visits every named node in pre-order using an explicit stack.
func walk(root parser.Node, visit func(parser.Node)) {
	stack := []parser.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)

		for i := n.NamedChildCount(); i > 0; i-- {
			if child := n.NamedChild(i - 1); child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// nameNode resolves the name token of a declaration, first match wins:
// the name field, a name token under the assignment target, a name token
// under the signature, then any name token under the node.
func nameNode(n parser.Node) parser.Node {
	if name := n.ChildByFieldName("name"); name != nil {
		return name
	}
	for _, field := range []string{"left", "signature"} {
		if sub := n.ChildByFieldName(field); sub != nil {
			if found := findName(sub); found != nil {
				return found
			}
		}
	}
	return findName(n)
}

// findName returns the first name token in depth-first order, start included.
func findName(start parser.Node) parser.Node {
	stack := make([]parser.Node, 0, 16)
	stack = append(stack, start)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.IsNamed() && nameKinds[n.Kind()] {
			return n
		}
		for i := n.NamedChildCount(); i > 0; i-- {
			if child := n.NamedChild(i - 1); child != nil {
				stack = append(stack, child)
			}
		}
	}
	return nil
}

// clampSpan returns the node's byte range if it lies within src.
func clampSpan(n parser.Node, src []byte) (Span, bool) {
	start, end := n.StartByte(), n.EndByte()
	if start > end || end > uint(len(src)) {
		return Span{}, false
	}
	return Span{Start: start, End: end}, true
}
