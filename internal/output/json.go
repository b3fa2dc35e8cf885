package output

import (
	"encoding/json"
	"io"

	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/symbols"
)

// JSONFormatter writes one JSON message per line, each tagged with its type
// so consumers can stream the output.
type JSONFormatter struct {
	writer  io.Writer
	config  FormatterConfig
	encoder *json.Encoder
}

func NewJSONFormatter(writer io.Writer, config FormatterConfig) *JSONFormatter {
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)

	return &JSONFormatter{
		writer:  writer,
		config:  config,
		encoder: encoder,
	}
}

// JSONMessage is the envelope of every line
type JSONMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// FormatOutline outputs an "outline" message
func (f *JSONFormatter) FormatOutline(outline Outline) error {
	if outline.Nodes == nil {
		outline.Nodes = []*symbols.OutlineNode{}
	}
	outline.Path = displayPath(f.config, outline.Path)
	return f.encoder.Encode(JSONMessage{Type: "outline", Data: outline})
}

// FormatHit outputs a "hit" message
func (f *JSONFormatter) FormatHit(hit index.Hit) error {
	hit.Path = displayPath(f.config, hit.Path)
	return f.encoder.Encode(JSONMessage{Type: "hit", Data: hit})
}

// FormatRoot outputs a "root" message
func (f *JSONFormatter) FormatRoot(root index.Root) error {
	return f.encoder.Encode(JSONMessage{Type: "root", Data: root})
}

// FormatSummary outputs a "summary" message with overall statistics
func (f *JSONFormatter) FormatSummary(summary Summary) error {
	return f.encoder.Encode(JSONMessage{Type: "summary", Data: summary})
}

// Flush flushes any buffered output
func (f *JSONFormatter) Flush() error {
	if flusher, ok := f.writer.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// Close closes the formatter
func (f *JSONFormatter) Close() error {
	return f.Flush()
}
