package output

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/symbols"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ParseFormat validates a format name from flags or config.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Outline is the nested symbol tree of one file.
type Outline struct {
	Path  string                 `json:"path"`
	Nodes []*symbols.OutlineNode `json:"nodes"`
}

// Summary contains overall statistics of an indexing run.
type Summary struct {
	Elapsed Duration    `json:"elapsed"`
	Stats   index.Stats `json:"stats"`
	Hits    int         `json:"hits"`
}

// Duration represents a time duration in machine and human form
type Duration struct {
	Secs  int64  `json:"secs"`
	Nanos int64  `json:"nanos"`
	Human string `json:"human"`
}

// NewDuration creates a Duration from time.Duration
func NewDuration(d time.Duration) Duration {
	nanos := d.Nanoseconds()
	return Duration{
		Secs:  nanos / 1e9,
		Nanos: nanos % 1e9,
		Human: d.String(),
	}
}

// FormatterConfig contains configuration for output formatting
type FormatterConfig struct {
	Format      OutputFormat
	ShowColors  bool
	ShowScores  bool
	ShowOrigins bool

	// BaseDir makes printed paths relative when set.
	BaseDir string
}

// Formatter defines the interface for output formatting
type Formatter interface {
	FormatOutline(outline Outline) error
	FormatHit(hit index.Hit) error
	FormatRoot(root index.Root) error
	FormatSummary(summary Summary) error

	// Flush any buffered output
	Flush() error
	Close() error
}

// FormatterFactory creates formatters based on configuration
type FormatterFactory struct {
	writer io.Writer
	config FormatterConfig
}

// NewFormatterFactory creates a new formatter factory
func NewFormatterFactory(writer io.Writer, config FormatterConfig) *FormatterFactory {
	return &FormatterFactory{
		writer: writer,
		config: config,
	}
}

// CreateFormatter creates a formatter based on the configuration
func (f *FormatterFactory) CreateFormatter() Formatter {
	switch f.config.Format {
	case FormatJSON:
		return NewJSONFormatter(f.writer, f.config)
	default:
		return NewTextFormatter(f.writer, f.config)
	}
}

// displayPath shortens path against the configured base directory.
func displayPath(config FormatterConfig, path string) string {
	if config.BaseDir == "" {
		return path
	}
	rel, err := filepath.Rel(config.BaseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// OutputManager manages the overall output process
type OutputManager struct {
	formatter Formatter
	ctx       context.Context
}

// NewOutputManager creates a new output manager
func NewOutputManager(ctx context.Context, formatter Formatter) *OutputManager {
	return &OutputManager{
		formatter: formatter,
		ctx:       ctx,
	}
}

// ProcessHits writes hits in rank order, stopping early on cancellation.
func (om *OutputManager) ProcessHits(hits []index.Hit) error {
	for _, hit := range hits {
		if err := om.ctx.Err(); err != nil {
			return err
		}
		if err := om.formatter.FormatHit(hit); err != nil {
			return err
		}
	}
	return nil
}

// ProcessOutline writes the outline of one file.
func (om *OutputManager) ProcessOutline(outline Outline) error {
	select {
	case <-om.ctx.Done():
		return om.ctx.Err()
	default:
		return om.formatter.FormatOutline(outline)
	}
}

// ProcessRoots writes discovered roots in discovery order.
func (om *OutputManager) ProcessRoots(roots []index.Root) error {
	for _, root := range roots {
		if err := om.ctx.Err(); err != nil {
			return err
		}
		if err := om.formatter.FormatRoot(root); err != nil {
			return err
		}
	}
	return nil
}

// ProcessSummary processes the final summary
func (om *OutputManager) ProcessSummary(summary Summary) error {
	select {
	case <-om.ctx.Done():
		return om.ctx.Err()
	default:
		return om.formatter.FormatSummary(summary)
	}
}

// Close closes the output manager
func (om *OutputManager) Close() error {
	return om.formatter.Close()
}
