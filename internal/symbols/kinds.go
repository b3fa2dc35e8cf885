// Package symbols extracts outlines and flat symbol lists from Julia syntax
// trees.
package symbols

// Kind is the category of an extracted symbol.
type Kind int

const (
	KindModule Kind = iota + 1
	KindFunction
	KindMacro
	KindStruct
	KindAbstract
	KindTypeAlias
	KindConstant
)

var kindNames = map[Kind]string{
	KindModule:    "module",
	KindFunction:  "function",
	KindMacro:     "macro",
	KindStruct:    "struct",
	KindAbstract:  "abstract",
	KindTypeAlias: "type-alias",
	KindConstant:  "constant",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// nodeKinds maps tree-sitter-julia node types to symbol kinds. Node types
// missing from the table are never symbols.
var nodeKinds = map[string]Kind{
	"module_definition":         KindModule,
	"bare_module_definition":    KindModule,
	"function_definition":       KindFunction,
	"short_function_definition": KindFunction,
	"macro_definition":          KindMacro,
	"struct_definition":         KindStruct,
	"primitive_definition":      KindStruct,
	"primitive_type_definition": KindStruct,
	"abstract_definition":       KindAbstract,
	"type_alias":                KindTypeAlias,
	"const_statement":           KindConstant,
}

// Classify returns the symbol kind for a node type.
func Classify(nodeType string) (Kind, bool) {
	k, ok := nodeKinds[nodeType]
	return k, ok
}

// nameKinds are the token types that can carry a declared name.
var nameKinds = map[string]bool{
	"identifier":          true,
	"macro_identifier":    true,
	"type_identifier":     true,
	"scoped_identifier":   true,
	"field_identifier":    true,
	"operator":            true,
	"property_identifier": true,
}

// Origin tells structural symbols apart from text-pattern guesses.
type Origin int

const (
	OriginSyntax Origin = iota
	OriginHeuristic
)

func (o Origin) String() string {
	if o == OriginHeuristic {
		return "heuristic"
	}
	return "syntax"
}

func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}
