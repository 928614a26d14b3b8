// Package backend wires LSP document lifecycle events to the resolution
// pipeline (spec.md §4.5): it holds per-URI text buffers, detects each
// document's RegistryKind, runs the parser/matcher/cache pipeline to
// produce diagnostics, and kicks off on-demand fetches for cache misses.
package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/git-pkgs/version-lsp/internal/cache"
	"github.com/git-pkgs/version-lsp/internal/config"
	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/refresh"
	"github.com/git-pkgs/version-lsp/internal/resolver"
	"github.com/git-pkgs/version-lsp/internal/rpc"
)

// conn is the subset of *rpc.Conn the backend needs, kept as an
// interface so tests can substitute a recording fake.
type conn interface {
	Notify(method string, params any) error
	Reply(id json.RawMessage, result any) error
	ReplyError(id json.RawMessage, code int, message string) error
	Call(method string, params any) (*rpc.Message, error)
}

// Backend is the process-wide LSP handler. The cache handle, HTTP
// client, and configuration store are process-wide singletons it owns,
// per spec.md §9's "global state" design note; the only other shared
// state is the per-URI text buffer map below.
type Backend struct {
	Conn     conn
	Cache    *cache.Cache
	Registry *resolver.Registry
	Config   *config.Store
	Refresh  *refresh.Orchestrator
	Log      *slog.Logger

	mu   sync.Mutex
	docs map[string]string // URI -> full text, per spec.md §4.5 full-document sync
}

// New constructs a Backend with an empty document set.
func New(c conn, ch *cache.Cache, reg *resolver.Registry, cfg *config.Store, ref *refresh.Orchestrator, log *slog.Logger) *Backend {
	return &Backend{
		Conn:     c,
		Cache:    ch,
		Registry: reg,
		Config:   cfg,
		Refresh:  ref,
		Log:      log,
		docs:     make(map[string]string),
	}
}

// Handle dispatches one incoming JSON-RPC message. Per spec.md §5's
// ordering guarantee, it runs synchronously up through the first
// publishDiagnostics call; any fetch-and-republish work it kicks off
// runs in its own goroutine.
func (b *Backend) Handle(ctx context.Context, msg *rpc.Message) {
	switch msg.Method {
	case "initialize":
		b.handleInitialize(msg)
	case "initialized":
		go b.Refresh.RunBackgroundSweep(ctx)
		go b.requestConfiguration()
	case "shutdown":
		_ = b.Conn.Reply(msg.ID, nil)
	case "exit":
		// The caller's read loop exits the process on EOF or an exit
		// notification; nothing to do here beyond acknowledging receipt.
	case "textDocument/didOpen":
		b.handleDidOpen(ctx, msg)
	case "textDocument/didChange":
		b.handleDidChange(ctx, msg)
	case "textDocument/didClose":
		b.handleDidClose(msg)
	case "workspace/didChangeConfiguration":
		b.handleDidChangeConfiguration(msg)
	default:
		if msg.IsRequest() {
			_ = b.Conn.ReplyError(msg.ID, rpc.MethodNotFound, "method not found: "+msg.Method)
		}
	}
}

func (b *Backend) handleInitialize(msg *rpc.Message) {
	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    textDocumentSyncKindFull,
			},
		},
	}
	if err := b.Conn.Reply(msg.ID, result); err != nil {
		b.Log.Error("initialize: reply", "error", err)
	}
}

// requestConfiguration asks the client for its current version-lsp
// settings via workspace/configuration, per spec.md §6. A client that
// doesn't support the request (or answers with nothing useful) leaves
// the server on config.Defaults().
func (b *Backend) requestConfiguration() {
	resp, err := b.Conn.Call("workspace/configuration", configurationParams{
		Items: []configurationItem{{Section: "version-lsp"}},
	})
	if err != nil {
		b.Log.Warn("workspace/configuration: call", "error", err)
		return
	}
	if resp.Error != nil {
		b.Log.Warn("workspace/configuration: client error", "error", resp.Error)
		return
	}

	var results []json.RawMessage
	if err := json.Unmarshal(resp.Result, &results); err != nil || len(results) == 0 {
		return
	}
	settings, err := config.ParseWire(results[0])
	if err != nil {
		b.Log.Warn("workspace/configuration: parse settings", "error", err)
		return
	}
	b.Config.Apply(settings)
}

func (b *Backend) handleDidChangeConfiguration(msg *rpc.Message) {
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		b.Log.Warn("didChangeConfiguration: decode", "error", err)
		return
	}
	settings, err := config.ParseWire(params.Settings)
	if err != nil {
		b.Log.Warn("didChangeConfiguration: parse settings", "error", err)
		return
	}
	b.Config.Apply(settings)
}

func (b *Backend) handleDidOpen(ctx context.Context, msg *rpc.Message) {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		b.Log.Warn("didOpen: decode", "error", err)
		return
	}
	uri := params.TextDocument.URI
	b.setText(uri, params.TextDocument.Text)
	b.processDocument(ctx, uri)
}

func (b *Backend) handleDidChange(ctx context.Context, msg *rpc.Message) {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		b.Log.Warn("didChange: decode", "error", err)
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}
	uri := params.TextDocument.URI
	// Full-document sync (spec.md §4.5): the last change event carries
	// the complete new text.
	b.setText(uri, params.ContentChanges[len(params.ContentChanges)-1].Text)
	b.processDocument(ctx, uri)
}

func (b *Backend) handleDidClose(msg *rpc.Message) {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		b.Log.Warn("didClose: decode", "error", err)
		return
	}
	// Per spec.md §5, didClose discards the buffer without cancelling
	// any fetch already in flight for this document's entries.
	b.mu.Lock()
	delete(b.docs, params.TextDocument.URI)
	b.mu.Unlock()
}

func (b *Backend) setText(uri, text string) {
	b.mu.Lock()
	b.docs[uri] = text
	b.mu.Unlock()
}

func (b *Backend) text(uri string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.docs[uri]
	return t, ok
}

// processDocument runs steps 1-5 of spec.md §4.5 for uri: detect kind,
// parse, build and publish diagnostics from whatever is already cached,
// then asynchronously fetch cache misses and republish.
func (b *Backend) processDocument(ctx context.Context, uri string) {
	kind, ok := resolver.DetectKind(uri)
	if !ok {
		return
	}
	settings := b.Config.Get()
	if !settings.Registries.Enabled(kind) {
		b.publish(uri, nil)
		return
	}

	res, ok := b.Registry.Get(kind)
	if !ok {
		return
	}

	text, ok := b.text(uri)
	if !ok {
		return
	}

	entries, err := res.Parser.Parse(text)
	if err != nil {
		b.Log.Warn("parse failed", "uri", uri, "kind", kind, "error", err)
		// A parse failure must not crash the server or poison the
		// cache (spec.md §4.1); just skip this round of diagnostics.
		return
	}

	b.publish(uri, b.buildDiagnostics(ctx, res, entries, settings))

	go func() {
		if !b.Refresh.FillMissing(context.Background(), entries) {
			return
		}
		// Re-check the document is still open and unchanged enough to
		// be worth republishing for; a closed/changed doc simply won't
		// have this uri's stale text reused.
		currentText, stillOpen := b.text(uri)
		if !stillOpen || currentText != text {
			return
		}
		b.publish(uri, b.buildDiagnostics(context.Background(), res, entries, b.Config.Get()))
	}()
}

func (b *Backend) buildDiagnostics(ctx context.Context, res resolver.Resolver, entries []core.PackageEntry, settings config.Settings) []lspDiagnostic {
	matcher := res.NewMatcher(settings.IgnorePrerelease)

	var diags []lspDiagnostic
	for _, entry := range entries {
		versions, ok, err := b.Cache.GetVersions(ctx, entry.Kind, entry.Name)
		if err != nil {
			b.Log.Warn("cache read failed", "kind", entry.Kind, "name", entry.Name, "error", err)
			continue
		}
		if !ok {
			// Cache miss: no diagnostic yet, filled in asynchronously.
			continue
		}

		result := matcher.CompareToLatest(entry.EffectiveVersionSpec(), versions.Versions, versions.DistTags)
		d := diagnosticFor(entry, result)
		if d == nil {
			continue
		}
		diags = append(diags, *d)
	}
	return diags
}

func (b *Backend) publish(uri string, diagnostics []lspDiagnostic) {
	if err := b.Conn.Notify("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}); err != nil {
		b.Log.Error("publishDiagnostics failed", "uri", uri, "error", err)
	}
}
