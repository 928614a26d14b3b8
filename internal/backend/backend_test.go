package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/git-pkgs/version-lsp/internal/cache"
	"github.com/git-pkgs/version-lsp/internal/config"
	"github.com/git-pkgs/version-lsp/internal/core"
	npmmatch "github.com/git-pkgs/version-lsp/internal/match/npmsemver"
	npmparse "github.com/git-pkgs/version-lsp/internal/parse/npm"
	"github.com/git-pkgs/version-lsp/internal/refresh"
	"github.com/git-pkgs/version-lsp/internal/resolver"
	"github.com/git-pkgs/version-lsp/internal/rpc"
)

type fakeNpmClient struct {
	versions core.PackageVersions
}

func (f *fakeNpmClient) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	return f.versions, nil
}

type fakeConn struct {
	mu        sync.Mutex
	published []publishDiagnosticsParams
}

func (f *fakeConn) Notify(method string, params any) error {
	if method != "textDocument/publishDiagnostics" {
		return nil
	}
	p, ok := params.(publishDiagnosticsParams)
	if !ok {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, p)
	return nil
}

func (f *fakeConn) Reply(id json.RawMessage, result any) error             { return nil }
func (f *fakeConn) ReplyError(id json.RawMessage, code int, msg string) error { return nil }
func (f *fakeConn) Call(method string, params any) (*rpc.Message, error) {
	return &rpc.Message{Result: json.RawMessage(`[]`)}, nil
}

func (f *fakeConn) latest() (publishDiagnosticsParams, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.published) == 0 {
		return publishDiagnosticsParams{}, false
	}
	return f.published[len(f.published)-1], true
}

func newTestBackend(t *testing.T, npmVersions core.PackageVersions) (*Backend, *fakeConn) {
	t.Helper()
	c, err := cache.OpenAt(filepath.Join(t.TempDir(), "versions.db"))
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	reg := resolver.NewRegistry()
	client := &fakeNpmClient{versions: npmVersions}
	reg.Register(resolver.Resolver{
		Kind:   core.Npm,
		Parser: npmparse.Parser{},
		Client: client,
		NewMatcher: func(ignorePrerelease bool) core.Matcher {
			return npmmatch.Matcher{IgnorePrerelease: ignorePrerelease}
		},
	})

	cfg := config.NewStore()
	fc := &fakeConn{}
	orch := &refresh.Orchestrator{
		Cache:    c,
		Registry: reg,
		Breakers: core.NewBreakerRegistry(),
		Config:   cfg,
		Log:      slog.Default(),
	}
	b := New(fc, c, reg, cfg, orch, slog.Default())
	return b, fc
}

func openNotification(t *testing.T, uri, text string) *rpc.Message {
	t.Helper()
	params, err := json.Marshal(didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: "json", Version: 1, Text: text},
	})
	if err != nil {
		t.Fatalf("marshal didOpen params: %v", err)
	}
	return &rpc.Message{Method: "textDocument/didOpen", Params: params}
}

func TestBackend_DidOpen_CacheHit_PublishesWarningForOutdated(t *testing.T) {
	b, fc := newTestBackend(t, core.PackageVersions{Versions: []string{"4.17.0", "4.17.21"}})
	ctx := context.Background()

	// Pre-populate the cache so the first diagnostics round already has
	// data (spec.md scenario 1).
	if err := b.Cache.ReplaceVersions(ctx, core.Npm, "lodash", core.PackageVersions{Versions: []string{"4.17.0", "4.17.21"}}); err != nil {
		t.Fatalf("ReplaceVersions: %v", err)
	}

	text := `{"dependencies": {"lodash": "^4.17.0"}}`
	b.Handle(ctx, openNotification(t, "file:///repo/package.json", text))

	params, ok := fc.latest()
	if !ok {
		t.Fatal("expected a publishDiagnostics notification")
	}
	if len(params.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want exactly one", params.Diagnostics)
	}
	d := params.Diagnostics[0]
	if d.Severity != 2 { // lsp.Warning
		t.Errorf("Severity = %v, want Warning(2)", d.Severity)
	}
	want := "Latest version 4.17.21 available (current: ^4.17.0)"
	if d.Message != want {
		t.Errorf("Message = %q, want %q", d.Message, want)
	}
}

func TestBackend_DidOpen_CacheMiss_FetchesAndRepublishes(t *testing.T) {
	b, fc := newTestBackend(t, core.PackageVersions{Versions: []string{"1.0.0", "1.0.1"}})
	ctx := context.Background()

	text := `{"dependencies": {"@luca/flag": "^1.0.0"}}`
	b.Handle(ctx, openNotification(t, "file:///repo/package.json", text))

	// First round: cache miss, no diagnostics yet.
	params, ok := fc.latest()
	if ok && len(params.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics before the fetch completes, got %v", params.Diagnostics)
	}

	waitForCondition(t, func() bool {
		_, ok, _ := b.Cache.GetVersions(ctx, core.Npm, "@luca/flag")
		return ok
	})
	waitForCondition(t, func() bool {
		_, ok := fc.latest()
		return ok
	})

	params, ok = fc.latest()
	if !ok {
		t.Fatal("expected a publishDiagnostics notification after the fill completed")
	}
	if len(params.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %v, want none: ^1.0.0 is satisfied by the latest (1.0.1)", params.Diagnostics)
	}
}

func TestBackend_DidOpen_UnknownURI_NoPublish(t *testing.T) {
	b, fc := newTestBackend(t, core.PackageVersions{})
	b.Handle(context.Background(), openNotification(t, "file:///repo/README.md", "hello"))

	if _, ok := fc.latest(); ok {
		t.Error("expected no publishDiagnostics notification for an unrecognized document")
	}
}

func TestBackend_DidClose_DiscardsBuffer(t *testing.T) {
	b, _ := newTestBackend(t, core.PackageVersions{})
	ctx := context.Background()
	uri := "file:///repo/package.json"

	b.Handle(ctx, openNotification(t, uri, `{"dependencies":{}}`))
	if _, ok := b.text(uri); !ok {
		t.Fatal("expected text buffer to exist after didOpen")
	}

	closeParams, _ := json.Marshal(didCloseTextDocumentParams{TextDocument: textDocumentIdentifier{URI: uri}})
	b.Handle(ctx, &rpc.Message{Method: "textDocument/didClose", Params: closeParams})

	if _, ok := b.text(uri); ok {
		t.Error("expected text buffer to be discarded after didClose")
	}
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
