// Package server implements the language server protocol front end.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/index"
	"github.com/73ai/parsec/internal/logging"
	"github.com/73ai/parsec/internal/shardmap"
	"github.com/73ai/parsec/internal/symbols"
)

// Name is reported to clients as the server name and used as the
// diagnostics source.
const Name = "parsec"

// JSON-RPC error codes defined by the language server protocol.
const (
	codeServerNotInitialized = -32002
	codeInvalidRequest       = -32600
)

// ErrExitWithoutShutdown is returned by Serve when the client sent exit
// without a prior shutdown request.
var ErrExitWithoutShutdown = errors.New("exit received before shutdown")

// Config holds the server settings.
type Config struct {
	// Version is reported in the initialize result
	Version string

	// SearchLimit caps workspace symbol results
	SearchLimit int

	// ScopeThreshold is the query length at or below which workspace
	// symbol queries only search the workspace root
	ScopeThreshold int

	// ErrorNodes reports one diagnostic per syntax error in the tree
	ErrorNodes bool

	// MaxErrorNodes caps those diagnostics per document
	MaxErrorNodes int

	// Watch enables the file system watcher on the workspace
	Watch bool

	Index       index.Config
	Watcher     index.WatcherConfig
	Environment index.Environment
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Version:        "dev",
		SearchLimit:    2000,
		ScopeThreshold: 2,
		MaxErrorNodes:  100,
		Watch:          true,
		Index:          index.DefaultConfig(),
		Watcher:        index.DefaultWatcherConfig(),
		Environment:    index.OSEnvironment(),
	}
}

// Server answers one client connection.
type Server struct {
	config    Config
	store     *document.Store
	index     *index.SymbolIndex
	indexer   *index.Indexer
	extractor *symbols.Extractor
	logger    *slog.Logger

	// conn is set by initialize, before any notification can publish
	conn *jsonrpc2.Conn

	// generation counts text updates per document; background refreshes
	// of superseded text do not publish
	generation *shardmap.Map[uint64]

	// rootMu guards root and watcher, which initialize sets on the read
	// loop while close may run on the Serve goroutine
	rootMu  sync.RWMutex
	root    string
	watcher *index.Watcher

	initialized atomic.Bool
	shutdown    atomic.Bool
	exited      chan struct{}
	exitOnce    sync.Once
	refreshes   sync.WaitGroup
}

// New creates a server over store. extractor may be nil for the defaults.
func New(store *document.Store, extractor *symbols.Extractor, config Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if extractor == nil {
		extractor = symbols.NewExtractor(symbols.DefaultHeuristics(), logger)
	}
	if config.SearchLimit <= 0 {
		config.SearchLimit = DefaultConfig().SearchLimit
	}

	ix := index.NewSymbolIndex()
	return &Server{
		config:     config,
		store:      store,
		index:      ix,
		indexer:    index.NewIndexer(store, ix, extractor, config.Index, logger),
		extractor:  extractor,
		logger:     logger,
		generation: shardmap.New[uint64](0),
		exited:     make(chan struct{}),
	}
}

// Index returns the workspace symbol index.
func (s *Server) Index() *index.SymbolIndex { return s.index }

// Indexer returns the background indexer.
func (s *Server) Indexer() *index.Indexer { return s.indexer }

// Root returns the workspace root, empty before initialize or when the
// client sent none.
func (s *Server) Root() string {
	s.rootMu.RLock()
	defer s.rootMu.RUnlock()
	return s.root
}

func (s *Server) currentWatcher() *index.Watcher {
	s.rootMu.RLock()
	defer s.rootMu.RUnlock()
	return s.watcher
}

// Serve speaks the protocol over rwc until the client exits, the
// connection drops or ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, s)

	defer s.close()

	select {
	case <-conn.DisconnectNotify():
		s.logger.Info("client disconnected")
		return nil
	case <-s.exited:
		_ = conn.Close()
		if !s.shutdown.Load() {
			return ErrExitWithoutShutdown
		}
		return nil
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	}
}

func (s *Server) close() {
	s.exitOnce.Do(func() { close(s.exited) })
	if w := s.currentWatcher(); w != nil {
		if err := w.Stop(); err != nil {
			s.logger.Debug("stopping watcher", "error", err)
		}
	}
	s.indexer.Stop()
	s.refreshes.Wait()
}

// Handle implements jsonrpc2.Handler. Notifications run in arrival order
// on the connection's read loop, so text updates are never reordered;
// requests other than the lifecycle ones run concurrently.
func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h := jsonrpc2.HandlerWithError(s.handle)
	if req.Notif || req.Method == "initialize" || req.Method == "shutdown" {
		h.Handle(ctx, conn, req)
		return
	}
	go h.Handle(ctx, conn, req)
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "initialize":
		if s.initialized.Load() {
			return nil, &jsonrpc2.Error{Code: codeInvalidRequest, Message: "server already initialized"}
		}
		s.conn = conn
		return s.initialize(ctx, req)
	case "exit":
		s.exitOnce.Do(func() { close(s.exited) })
		return nil, nil
	}

	if !s.initialized.Load() {
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: codeServerNotInitialized, Message: "server not initialized"}
	}
	if s.shutdown.Load() && !req.Notif {
		return nil, &jsonrpc2.Error{Code: codeInvalidRequest, Message: "server is shutting down"}
	}

	switch req.Method {
	case "initialized", "$/cancelRequest", "$/setTrace", "textDocument/didSave":
		return nil, nil
	case "shutdown":
		s.logger.Info("shutting down")
		s.shutdown.Store(true)
		return nil, nil
	case "textDocument/didOpen":
		return nil, s.didOpen(ctx, req)
	case "textDocument/didChange":
		return nil, s.didChange(ctx, req)
	case "textDocument/didClose":
		return nil, s.didClose(ctx, req)
	case "textDocument/documentSymbol":
		return s.documentSymbol(ctx, req)
	case "workspace/symbol":
		return s.workspaceSymbol(ctx, req)
	}

	if req.Notif {
		s.logger.Debug("ignoring notification", "method", req.Method)
		return nil, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", req.Method)}
}

func decodeParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
