package symbols

import (
	"strings"

	"github.com/73ai/parsec/internal/parser"
)

// fakeNode is a hand-built syntax node for extractor tests.
type fakeNode struct {
	kind     string
	named    bool
	start    uint
	end      uint
	fields   map[string]*fakeNode
	children []*fakeNode
}

type fakeTree struct {
	root *fakeNode
}

func (t fakeTree) Root() parser.Node {
	if t.root == nil {
		return nil
	}
	return t.root
}

func node(kind string, start, end int, children ...*fakeNode) *fakeNode {
	return &fakeNode{kind: kind, named: true, start: uint(start), end: uint(end), children: children}
}

// token builds a leaf spanning the first occurrence of text at or after from.
func token(src, kind, text string, from int) *fakeNode {
	i := strings.Index(src[from:], text)
	if i < 0 {
		panic("token not found: " + text)
	}
	return node(kind, from+i, from+i+len(text))
}

func (n *fakeNode) field(name string, child *fakeNode) *fakeNode {
	if n.fields == nil {
		n.fields = make(map[string]*fakeNode)
	}
	n.fields[name] = child
	n.children = append(n.children, child)
	return n
}

func (n *fakeNode) anonymous() *fakeNode {
	n.named = false
	return n
}

func (n *fakeNode) Kind() string    { return n.kind }
func (n *fakeNode) IsNamed() bool   { return n.named }
func (n *fakeNode) StartByte() uint { return n.start }
func (n *fakeNode) EndByte() uint   { return n.end }

func (n *fakeNode) namedChildren() []*fakeNode {
	var out []*fakeNode
	for _, c := range n.children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

func (n *fakeNode) NamedChildCount() uint { return uint(len(n.namedChildren())) }

func (n *fakeNode) NamedChild(i uint) parser.Node {
	named := n.namedChildren()
	if int(i) >= len(named) {
		return nil
	}
	return named[i]
}

func (n *fakeNode) ChildByFieldName(name string) parser.Node {
	if c, ok := n.fields[name]; ok {
		return c
	}
	return nil
}

func (n *fakeNode) add(children ...*fakeNode) *fakeNode {
	n.children = append(n.children, children...)
	return n
}
