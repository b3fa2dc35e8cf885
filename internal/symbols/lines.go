package symbols

import (
	"sort"
	"unicode/utf8"
)

// Position is a zero-based line and UTF-16 column, as editors count them.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a half-open span of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Span is a half-open byte range into the source.
type Span struct {
	Start uint `json:"start"`
	End   uint `json:"end"`
}

// Contains reports whether o lies entirely inside s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// LineIndex maps byte offsets of one source text to positions.
type LineIndex struct {
	src    []byte
	starts []int
}

// NewLineIndex records the start offset of every line in src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, starts: starts}
}

// Position converts a byte offset. Offsets past the end clamp to the end.
func (li *LineIndex) Position(offset uint) Position {
	off := int(offset)
	if off > len(li.src) {
		off = len(li.src)
	}

	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
	if line < 0 {
		line = 0
	}

	col := 0
	for rest := li.src[li.starts[line]:off]; len(rest) > 0; {
		r, size := utf8.DecodeRune(rest)
		if r >= 0x10000 {
			col += 2
		} else {
			col++
		}
		rest = rest[size:]
	}

	return Position{Line: uint32(line), Character: uint32(col)}
}

// Range converts a byte span.
func (li *LineIndex) Range(span Span) Range {
	return Range{Start: li.Position(span.Start), End: li.Position(span.End)}
}
