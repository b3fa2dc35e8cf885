package symbols

import (
	"regexp"
	"unicode/utf8"
)

// DefaultShorthandWindow is how many bytes after a @shorthands anchor are
// scanned for declared names.
const DefaultShorthandWindow = 600

var (
	userPlotPattern  = regexp.MustCompile(`(?m)^[ \t]*@userplot[ \t]+([A-Za-z][A-Za-z0-9_]*)`)
	recipeFnPattern  = regexp.MustCompile(`(?m)^[ \t]*@recipe[ \t]+function[ \t]+([A-Za-z][A-Za-z0-9_]*)\b`)
	shorthandAnchor  = regexp.MustCompile(`@shorthands`)
	shorthandPattern = regexp.MustCompile(`:?([A-Za-z][A-Za-z0-9_]*!?)[\s,\]\)]`)
)

// Heuristics configures the text-pattern pass that reports names declared
// through plotting-recipe macros, which the grammar sees only as macro calls.
// Results are best effort and tagged OriginHeuristic.
type Heuristics struct {
	// Macros enables @userplot Name and @recipe function name.
	Macros bool
	// Shorthands enables names listed after @shorthands.
	Shorthands bool
	// Window bounds the @shorthands lookahead in bytes.
	Window int
}

// DefaultHeuristics enables both passes.
func DefaultHeuristics() Heuristics {
	return Heuristics{Macros: true, Shorthands: true, Window: DefaultShorthandWindow}
}

// Synthesize runs the enabled passes over src.
func (h Heuristics) Synthesize(src []byte) []Symbol {
	if !h.Macros && !h.Shorthands {
		return nil
	}

	var li *LineIndex
	index := func() *LineIndex {
		if li == nil {
			li = NewLineIndex(src)
		}
		return li
	}

	var out []Symbol
	emit := func(start, end int) {
		span := Span{Start: uint(start), End: uint(end)}
		out = append(out, Symbol{
			Name:   string(src[start:end]),
			Kind:   KindFunction,
			Span:   span,
			Range:  index().Range(span),
			Origin: OriginHeuristic,
		})
	}

	if h.Macros {
		for _, re := range []*regexp.Regexp{userPlotPattern, recipeFnPattern} {
			for _, m := range re.FindAllSubmatchIndex(src, -1) {
				emit(m[2], m[3])
			}
		}
	}

	if h.Shorthands {
		window := h.Window
		if window <= 0 {
			window = DefaultShorthandWindow
		}

		seen := make(map[int]bool)
		for _, a := range shorthandAnchor.FindAllIndex(src, -1) {
			end := runeBoundary(src, a[0]+window)
			if end <= a[1] {
				continue
			}
			for _, m := range shorthandPattern.FindAllSubmatchIndex(src[a[1]:end], -1) {
				start, stop := a[1]+m[2], a[1]+m[3]
				// Macro names, including later anchors inside the window.
				if start > 0 && src[start-1] == '@' {
					continue
				}
				if seen[start] {
					continue
				}
				seen[start] = true
				emit(start, stop)
			}
		}
	}

	return out
}

// runeBoundary clamps end to len(src) and backs it off to a rune start.
func runeBoundary(src []byte, end int) int {
	if end >= len(src) {
		return len(src)
	}
	for end > 0 && !utf8.RuneStart(src[end]) {
		end--
	}
	return end
}
