package server

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/73ai/parsec/internal/document"
	"github.com/73ai/parsec/internal/index"
)

func (s *Server) initialize(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	root := workspaceRoot(&params)
	if root == "" {
		s.logger.Warn("no workspace root, background indexing disabled")
	} else {
		s.rootMu.Lock()
		s.root = root
		s.rootMu.Unlock()

		roots := s.indexer.Start(root, s.config.Environment)
		s.logger.Info("indexing started", "workspace", root, "roots", len(roots))

		if s.config.Watch {
			s.startWatcher(root)
		}
	}

	s.initialized.Store(true)
	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    Name,
			Version: s.config.Version,
		},
	}, nil
}

func (s *Server) startWatcher(root string) {
	config := s.config.Watcher
	config.WatchDirs = []string{root}

	w, err := index.NewWatcher(s.indexer, config, s.logger)
	if err != nil {
		s.logger.Warn("file watching disabled", "error", err)
		return
	}
	if err := w.Start(context.Background()); err != nil {
		s.logger.Warn("file watching disabled", "error", err)
		return
	}

	s.rootMu.Lock()
	defer s.rootMu.Unlock()
	select {
	case <-s.exited:
		// close already ran and will not look again.
		if err := w.Stop(); err != nil {
			s.logger.Debug("stopping watcher", "error", err)
		}
		return
	default:
	}
	s.watcher = w
}

// workspaceRoot picks the first workspace folder, then the root URI.
func workspaceRoot(params *protocol.InitializeParams) string {
	for _, folder := range params.WorkspaceFolders {
		if path := document.URIToPath(folder.URI); path != "" {
			return path
		}
	}
	if params.RootURI != "" {
		return document.URIToPath(string(params.RootURI))
	}
	return ""
}

func (s *Server) didOpen(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}

	uri := string(params.TextDocument.URI)
	s.logger.Info("did open", "uri", uri, "bytes", len(params.TextDocument.Text))

	doc := s.store.Open(uri, document.URIToPath(uri), []byte(params.TextDocument.Text))
	s.schedule(doc)
	return nil
}

func (s *Server) didChange(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}

	uri := string(params.TextDocument.URI)
	// Full sync: each change carries the whole text, the last one wins.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text

	doc, ok := s.store.Update(uri, []byte(text))
	if !ok {
		s.logger.Warn("change for unknown document", "uri", uri)
		return nil
	}
	s.schedule(doc)
	return nil
}

func (s *Server) didClose(ctx context.Context, req *jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := decodeParams(req, &params); err != nil {
		return err
	}

	uri := string(params.TextDocument.URI)
	doc, ok := s.store.Get(uri)
	if !ok {
		return nil
	}
	doc.SetOpen(false)
	s.bump(uri)

	// Unsaved edits are gone with the editor buffer; the disk is the truth
	// again.
	path := doc.Path()
	if path == "" {
		return nil
	}
	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		if _, err := os.Stat(path); err != nil {
			s.indexer.Remove(path)
		} else if err := s.indexer.IndexFile(context.Background(), path); err != nil {
			s.logger.Debug("reindex on close failed", "error", err)
		}
	}()
	return s.publish(ctx, uri, nil)
}

// bump starts a new text generation for uri and returns it.
func (s *Server) bump(uri string) uint64 {
	return s.generation.Update(uri, func(old uint64, _ bool) uint64 { return old + 1 })
}

func (s *Server) current(uri string, gen uint64) bool {
	g, _ := s.generation.Get(uri)
	return g == gen
}

// schedule reindexes doc and publishes its diagnostics now, then once more
// after the debounce interval so that the tree of the latest text is used
// once edits pause.
func (s *Server) schedule(doc *document.Document) {
	gen := s.bump(doc.URI())

	s.refreshes.Add(1)
	go func() {
		defer s.refreshes.Done()
		s.refresh(doc, gen)

		timer := time.NewTimer(s.store.Config().Debounce)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.exited:
			return
		}
		if s.current(doc.URI(), gen) && doc.State() != document.StateFresh {
			s.refresh(doc, gen)
		}
	}()
}

func (s *Server) refresh(doc *document.Document, gen uint64) {
	ctx := context.Background()
	err := s.indexer.IndexDocument(ctx, doc)
	if !s.current(doc.URI(), gen) {
		return
	}

	diags := s.diagnostics(doc.Current(), err)
	if perr := s.publish(ctx, doc.URI(), diags); perr != nil {
		s.logger.Debug("publishing diagnostics failed", "uri", doc.URI(), "error", perr)
	}
}

func (s *Server) publish(ctx context.Context, uri string, diags []protocol.Diagnostic) error {
	if s.conn == nil {
		return nil
	}
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	return s.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: diags,
	})
}

func (s *Server) documentSymbol(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.DocumentSymbolParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	uri := string(params.TextDocument.URI)
	doc, ok := s.store.Get(uri)
	if !ok {
		s.logger.Warn("document symbols for unknown document", "uri", uri)
		return []protocol.DocumentSymbol{}, nil
	}

	snap, err := doc.Parse(ctx)
	if err != nil {
		s.logger.Debug("parse failed", "uri", uri, "error", err)
	}
	return documentSymbols(s.extractor.Outline(snap.Tree, snap.Text)), nil
}

func (s *Server) workspaceSymbol(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.WorkspaceSymbolParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}

	started := time.Now()
	scope := ""
	if len(params.Query) <= s.config.ScopeThreshold {
		scope = s.Root()
	}

	hits := s.index.Search(params.Query, scope, s.config.SearchLimit)
	s.logger.Info("workspace symbol",
		"query", params.Query,
		"scope", filepath.ToSlash(scope),
		"count", len(hits),
		"duration", time.Since(started))
	return symbolInformation(hits), nil
}
