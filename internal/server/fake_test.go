package server

import (
	"bytes"
	"context"
	"errors"

	"github.com/73ai/parsec/internal/parser"
)

var errBoom = errors.New("parser gave up")

// lineProvider turns lines "function f", "struct S", "module M" into flat
// declarations. Text containing FAIL does not parse.
type lineProvider struct{}

var lineKinds = map[string]string{
	"function": "function_definition",
	"struct":   "struct_definition",
	"module":   "module_definition",
	"macro":    "macro_definition",
	"abstract": "abstract_definition",
}

func (lineProvider) Parse(_ context.Context, src []byte, _ parser.Tree) (parser.Tree, error) {
	if bytes.Contains(src, []byte("FAIL")) {
		return nil, errBoom
	}

	root := &lineNode{kind: "source_file", end: uint(len(src))}
	offset := 0
	for _, line := range bytes.SplitAfter(src, []byte("\n")) {
		fields := bytes.Fields(line)
		if len(fields) == 2 {
			if kind, ok := lineKinds[string(fields[0])]; ok {
				nameStart := offset + bytes.Index(line, fields[1])
				root.children = append(root.children, &lineNode{
					kind:  kind,
					start: uint(offset),
					end:   uint(offset + len(bytes.TrimRight(line, "\n"))),
					name: &lineNode{
						kind:  "identifier",
						start: uint(nameStart),
						end:   uint(nameStart + len(fields[1])),
					},
				})
			}
		}
		offset += len(line)
	}
	return lineTree{root: root}, nil
}

type lineTree struct{ root *lineNode }

func (t lineTree) Root() parser.Node { return t.root }

type lineNode struct {
	kind       string
	start, end uint
	name       *lineNode
	children   []*lineNode
}

func (n *lineNode) Kind() string    { return n.kind }
func (n *lineNode) IsNamed() bool   { return true }
func (n *lineNode) StartByte() uint { return n.start }
func (n *lineNode) EndByte() uint   { return n.end }

func (n *lineNode) NamedChildCount() uint {
	if n.name != nil {
		return uint(len(n.children)) + 1
	}
	return uint(len(n.children))
}

func (n *lineNode) NamedChild(i uint) parser.Node {
	if n.name != nil {
		if i == 0 {
			return n.name
		}
		i--
	}
	if i >= uint(len(n.children)) {
		return nil
	}
	return n.children[i]
}

func (n *lineNode) ChildByFieldName(field string) parser.Node {
	if field == "name" && n.name != nil {
		return n.name
	}
	return nil
}
