package server

import (
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/parser"
	"github.com/73ai/parsec/internal/symbols"
)

// parseErrorDiagnostic reports a failed parse attempt at the top of the
// document.
func parseErrorDiagnostic(err error) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   protocol.Position{Line: 0, Character: 1},
		},
		Severity: protocol.DiagnosticSeverityError,
		Source:   Name,
		Message:  fmt.Sprintf("parse error: %v", err),
	}
}

func (s *Server) diagnostics(snap document.Snapshot, parseErr error) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	if parseErr != nil {
		out = append(out, parseErrorDiagnostic(parseErr))
	}
	if !s.config.ErrorNodes || snap.Tree == nil {
		return out
	}

	reporter, ok := snap.Tree.(parser.ErrorReporter)
	if !ok {
		return out
	}
	errs := reporter.SyntaxErrors(s.config.MaxErrorNodes)
	if len(errs) == 0 {
		return out
	}

	lines := symbols.NewLineIndex(snap.Text)
	for _, e := range errs {
		span := symbols.Span{Start: e.StartByte, End: e.EndByte}
		if span.End <= span.Start {
			span.End = span.Start + 1
		}
		if span.End > uint(len(snap.Text)) {
			span.End = uint(len(snap.Text))
		}
		if span.Start > span.End {
			span.Start = span.End
		}
		out = append(out, protocol.Diagnostic{
			Range:    toRange(lines.Range(span)),
			Severity: protocol.DiagnosticSeverityError,
			Source:   Name,
			Message:  e.Message,
		})
	}
	return out
}
