package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/logging"
	"github.com/73ai/parsec/internal/output"
	"github.com/73ai/parsec/internal/parser"
	"github.com/73ai/parsec/internal/server"
	"github.com/73ai/parsec/internal/symbols"
	"github.com/73ai/parsec/internal/walker"
)

const (
	defaultDebounce     = 120 * time.Millisecond
	defaultMaxStaleness = time.Second
	defaultMaxFileSize  = walker.DefaultMaxFileSize
)

// settings is the resolved configuration of one run.
type settings struct {
	Document   document.Config
	Heuristics symbols.Heuristics
	Server     server.Config
	Log        logging.Config
	Format     output.OutputFormat
	Color      bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parse.debounce", defaultDebounce)
	v.SetDefault("parse.max_staleness", defaultMaxStaleness)

	v.SetDefault("search.limit", 2000)
	v.SetDefault("search.scope_threshold", 2)

	v.SetDefault("index.workers", 0)
	v.SetDefault("index.watch", true)
	v.SetDefault("index.watch_debounce", 500*time.Millisecond)
	v.SetDefault("index.max_file_size", defaultMaxFileSize)
	v.SetDefault("index.global_ignore", true)

	v.SetDefault("heuristics.macros", true)
	v.SetDefault("heuristics.shorthands", true)
	v.SetDefault("heuristics.window", symbols.DefaultShorthandWindow)

	v.SetDefault("diagnostics.error_nodes", false)
	v.SetDefault("diagnostics.max_error_nodes", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", false)
}

func loadSettings(v *viper.Viper) (settings, error) {
	var s settings

	level, err := logging.ParseLevel(v.GetString("log.level"))
	if err != nil {
		return s, err
	}
	s.Log = logging.DefaultConfig("parsec")
	s.Log.Level = level
	s.Log.Format = v.GetString("log.format")
	if file := v.GetString("log.file"); file != "" {
		s.Log.File = file
	}

	format, err := output.ParseFormat(v.GetString("output.format"))
	if err != nil {
		return s, err
	}
	s.Format = format
	s.Color = v.GetBool("output.color")

	s.Document = document.DefaultConfig()
	s.Document.Debounce = v.GetDuration("parse.debounce")
	s.Document.MaxStaleness = v.GetDuration("parse.max_staleness")
	if s.Document.Debounce < 0 || s.Document.MaxStaleness < 0 {
		return s, fmt.Errorf("parse durations must not be negative")
	}

	s.Heuristics = symbols.Heuristics{
		Macros:     v.GetBool("heuristics.macros"),
		Shorthands: v.GetBool("heuristics.shorthands"),
		Window:     v.GetInt("heuristics.window"),
	}

	s.Server = server.DefaultConfig()
	s.Server.Version = version
	s.Server.SearchLimit = v.GetInt("search.limit")
	s.Server.ScopeThreshold = v.GetInt("search.scope_threshold")
	s.Server.ErrorNodes = v.GetBool("diagnostics.error_nodes")
	s.Server.MaxErrorNodes = v.GetInt("diagnostics.max_error_nodes")
	s.Server.Watch = v.GetBool("index.watch")

	if workers := v.GetInt("index.workers"); workers > 0 {
		s.Server.Index.Workers = workers
	}
	s.Server.Index.MaxFileSize = v.GetInt64("index.max_file_size")
	s.Server.Index.Ignore.Global = v.GetBool("index.global_ignore")

	s.Server.Watcher.DebounceDuration = v.GetDuration("index.watch_debounce")
	s.Server.Watcher.Extensions = s.Server.Index.Extensions
	s.Server.Watcher.Ignore = s.Server.Index.Ignore

	if s.Server.SearchLimit <= 0 {
		return s, fmt.Errorf("search.limit must be positive, got %d", s.Server.SearchLimit)
	}
	return s, nil
}

// engine bundles the parse and extraction components shared by every
// subcommand.
type engine struct {
	settings  settings
	logger    *slog.Logger
	store     *document.Store
	extractor *symbols.Extractor
	language  *parser.LanguageConfig
	closeLog  func() error
}

func newEngine(v *viper.Viper) (*engine, error) {
	s, err := loadSettings(v)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Open(s.Log)
	if err != nil {
		return nil, err
	}

	provider, err := parser.NewJuliaParser()
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize parser: %w", err)
	}

	return &engine{
		settings:  s,
		logger:    logger,
		store:     document.NewStore(provider, s.Document),
		extractor: symbols.NewExtractor(s.Heuristics, logger),
		language:  provider.Language(),
		closeLog:  closer.Close,
	}, nil
}

func (e *engine) Close() error {
	return e.closeLog()
}
