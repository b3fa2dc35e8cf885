package server

import (
	"go.lsp.dev/protocol"

	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/symbols"
)

// symbolKind maps extracted kinds onto the protocol's fixed set.
func symbolKind(k symbols.Kind) protocol.SymbolKind {
	switch k {
	case symbols.KindModule:
		return protocol.SymbolKindModule
	case symbols.KindFunction, symbols.KindMacro:
		return protocol.SymbolKindFunction
	case symbols.KindStruct:
		return protocol.SymbolKindStruct
	case symbols.KindAbstract:
		return protocol.SymbolKindClass
	case symbols.KindTypeAlias:
		return protocol.SymbolKindTypeParameter
	case symbols.KindConstant:
		return protocol.SymbolKindConstant
	}
	return protocol.SymbolKindVariable
}

func toRange(r symbols.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   protocol.Position{Line: r.End.Line, Character: r.End.Character},
	}
}

func documentSymbols(nodes []*symbols.OutlineNode) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(nodes))
	for _, n := range nodes {
		ds := protocol.DocumentSymbol{
			Name:           n.Name,
			Kind:           symbolKind(n.Kind),
			Range:          toRange(n.Range),
			SelectionRange: toRange(n.Selection),
		}
		if len(n.Children) > 0 {
			ds.Children = documentSymbols(n.Children)
		}
		out = append(out, ds)
	}
	return out
}

func symbolInformation(hits []index.Hit) []protocol.SymbolInformation {
	out := make([]protocol.SymbolInformation, len(hits))
	for i, h := range hits {
		out[i] = protocol.SymbolInformation{
			Name: h.Name,
			Kind: symbolKind(h.Kind),
			Location: protocol.Location{
				URI:   protocol.DocumentURI(h.URI),
				Range: toRange(h.Range),
			},
		}
	}
	return out
}
