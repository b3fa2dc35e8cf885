package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/symbols"
)

// ANSI color codes for output highlighting
const (
	Reset = "\033[0m"

	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"

	Bold = "\033[1m"
)

var kindColors = map[symbols.Kind]string{
	symbols.KindModule:    Blue,
	symbols.KindFunction:  Yellow,
	symbols.KindMacro:     Yellow,
	symbols.KindStruct:    Cyan,
	symbols.KindAbstract:  Cyan,
	symbols.KindTypeAlias: Cyan,
	symbols.KindConstant:  Green,
}

// TextFormatter prints one line per symbol, grep style. Lines and columns
// are one-based.
type TextFormatter struct {
	writer io.Writer
	config FormatterConfig
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(writer io.Writer, config FormatterConfig) *TextFormatter {
	return &TextFormatter{
		writer: writer,
		config: config,
	}
}

// FormatOutline prints the file path followed by the indented symbol tree.
func (f *TextFormatter) FormatOutline(outline Outline) error {
	var b strings.Builder
	b.WriteString(f.colorize(displayPath(f.config, outline.Path), Magenta))
	b.WriteString("\n")
	for _, node := range outline.Nodes {
		f.writeNode(&b, node, 1)
	}
	_, err := io.WriteString(f.writer, b.String())
	return err
}

func (f *TextFormatter) writeNode(b *strings.Builder, node *symbols.OutlineNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(f.position(node.Selection.Start))
	b.WriteString(" ")
	b.WriteString(f.kind(node.Kind))
	b.WriteString(" ")
	b.WriteString(f.colorize(node.Name, Bold))
	b.WriteString("\n")
	for _, child := range node.Children {
		f.writeNode(b, child, depth+1)
	}
}

// FormatHit prints path:line:col: kind name.
func (f *TextFormatter) FormatHit(hit index.Hit) error {
	var b strings.Builder
	b.WriteString(f.colorize(displayPath(f.config, hit.Path), Magenta))
	b.WriteString(":")
	b.WriteString(f.position(hit.Range.Start))
	b.WriteString(": ")
	b.WriteString(f.kind(hit.Kind))
	b.WriteString(" ")
	b.WriteString(f.colorize(hit.Name, Bold))
	if f.config.ShowOrigins && hit.Origin == symbols.OriginHeuristic {
		b.WriteString(" (heuristic)")
	}
	if f.config.ShowScores {
		b.WriteString(" [")
		b.WriteString(strconv.Itoa(hit.Score))
		b.WriteString("]")
	}
	b.WriteString("\n")
	_, err := io.WriteString(f.writer, b.String())
	return err
}

// FormatRoot prints kind, path and package name separated by tabs.
func (f *TextFormatter) FormatRoot(root index.Root) error {
	line := root.Kind.String() + "\t" + f.colorize(root.Path, Magenta)
	if root.Package != "" {
		line += "\t" + root.Package
	}
	_, err := io.WriteString(f.writer, line+"\n")
	return err
}

// FormatSummary prints a one-line account of the indexing run.
func (f *TextFormatter) FormatSummary(summary Summary) error {
	s := summary.Stats
	_, err := fmt.Fprintf(f.writer, "%d roots, %d files indexed, %d skipped, %d filtered, %d symbols, %d hits in %s\n",
		s.Roots, s.FilesIndexed, s.FilesSkipped, s.FilesFiltered, s.SymbolsIndexed, summary.Hits, summary.Elapsed.Human)
	return err
}

func (f *TextFormatter) position(p symbols.Position) string {
	line := strconv.FormatUint(uint64(p.Line)+1, 10)
	col := strconv.FormatUint(uint64(p.Character)+1, 10)
	return f.colorize(line, Green) + ":" + col
}

func (f *TextFormatter) kind(k symbols.Kind) string {
	return f.colorize(k.String(), kindColors[k])
}

// colorize applies ANSI color codes to text
func (f *TextFormatter) colorize(text, color string) string {
	if !f.config.ShowColors || color == "" {
		return text
	}
	return color + text + Reset
}

// Flush flushes any buffered output
func (f *TextFormatter) Flush() error {
	if flusher, ok := f.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close closes the formatter
func (f *TextFormatter) Close() error {
	return f.Flush()
}
