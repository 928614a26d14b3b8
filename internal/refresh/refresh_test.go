package refresh

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/git-pkgs/version-lsp/internal/cache"
	"github.com/git-pkgs/version-lsp/internal/config"
	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/resolver"
)

type fakeClient struct {
	calls   int32
	fail    bool
	results core.PackageVersions
}

func (f *fakeClient) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.fail {
		return core.PackageVersions{}, errors.New("boom")
	}
	return f.results, nil
}

func testOrchestrator(t *testing.T, client core.VersionClient) (*Orchestrator, *cache.Cache) {
	t.Helper()
	c, err := cache.OpenAt(filepath.Join(t.TempDir(), "versions.db"))
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	reg := resolver.NewRegistry()
	reg.Register(resolver.Resolver{
		Kind:   core.Npm,
		Client: client,
		NewMatcher: func(bool) core.Matcher {
			return nil
		},
	})

	return &Orchestrator{
		Cache:    c,
		Registry: reg,
		Breakers: core.NewBreakerRegistry(),
		Config:   config.NewStore(),
		Log:      slog.Default(),
	}, c
}

func TestOrchestrator_RunBackgroundSweep_FetchesStalePackages(t *testing.T) {
	client := &fakeClient{results: core.PackageVersions{Versions: []string{"1.0.0", "1.1.0"}}}
	orch, c := testOrchestrator(t, client)
	ctx := context.Background()

	// TryStartFetch+FinishFetch creates a row with updated_at = 0,
	// which GetPackagesNeedingRefresh always treats as stale.
	if _, err := c.TryStartFetch(ctx, core.Npm, "lodash"); err != nil {
		t.Fatalf("TryStartFetch: %v", err)
	}
	if err := c.FinishFetch(ctx, core.Npm, "lodash"); err != nil {
		t.Fatalf("FinishFetch: %v", err)
	}

	orch.RunBackgroundSweep(ctx)

	if atomic.LoadInt32(&client.calls) != 1 {
		t.Fatalf("client.calls = %d, want 1", client.calls)
	}
	versions, ok, err := c.GetVersions(ctx, core.Npm, "lodash")
	if err != nil || !ok {
		t.Fatalf("GetVersions: ok=%v err=%v", ok, err)
	}
	if len(versions.Versions) != 2 {
		t.Errorf("Versions = %v, want 2 entries", versions.Versions)
	}
}

func TestOrchestrator_RunBackgroundSweep_SkipsHeldLock(t *testing.T) {
	client := &fakeClient{results: core.PackageVersions{Versions: []string{"1.0.0"}}}
	orch, c := testOrchestrator(t, client)
	ctx := context.Background()

	if _, err := c.TryStartFetch(ctx, core.Npm, "react"); err != nil {
		t.Fatalf("TryStartFetch: %v", err)
	}
	// Lock left held (no FinishFetch): another in-flight fetch owns it.

	orch.RunBackgroundSweep(ctx)

	if atomic.LoadInt32(&client.calls) != 0 {
		t.Errorf("client.calls = %d, want 0 while lock is held", client.calls)
	}
}

func TestOrchestrator_RunBackgroundSweep_FailureReleasesLock(t *testing.T) {
	client := &fakeClient{fail: true}
	orch, c := testOrchestrator(t, client)
	ctx := context.Background()

	if _, err := c.TryStartFetch(ctx, core.Npm, "flaky"); err != nil {
		t.Fatalf("TryStartFetch: %v", err)
	}
	if err := c.FinishFetch(ctx, core.Npm, "flaky"); err != nil {
		t.Fatalf("FinishFetch: %v", err)
	}

	orch.RunBackgroundSweep(ctx)

	// A failed fetch must still release the lock so the next sweep can
	// retry (spec.md §4.6: "on any error, log it and still finish_fetch").
	started, err := c.TryStartFetch(ctx, core.Npm, "flaky")
	if err != nil {
		t.Fatalf("TryStartFetch (retry): %v", err)
	}
	if !started {
		t.Error("expected lock to be released after a failed fetch")
	}
}

func TestOrchestrator_FillMissing_OnlyFetchesAbsentRows(t *testing.T) {
	client := &fakeClient{results: core.PackageVersions{Versions: []string{"2.0.0"}}}
	orch, c := testOrchestrator(t, client)
	ctx := context.Background()

	if err := c.ReplaceVersions(ctx, core.Npm, "already-cached", core.PackageVersions{Versions: []string{"1.0.0"}}); err != nil {
		t.Fatalf("ReplaceVersions: %v", err)
	}

	entries := []core.PackageEntry{
		{Kind: core.Npm, Name: "already-cached"},
		{Kind: core.Npm, Name: "missing-one"},
		{Kind: core.Npm, Name: "missing-one"}, // duplicate, should fetch once
	}

	fetchedAny := orch.FillMissing(ctx, entries)
	if !fetchedAny {
		t.Fatal("expected FillMissing to report a successful fetch")
	}
	if atomic.LoadInt32(&client.calls) != 1 {
		t.Errorf("client.calls = %d, want 1 (only the missing, deduplicated entry)", client.calls)
	}

	_, ok, _ := c.GetVersions(ctx, core.Npm, "missing-one")
	if !ok {
		t.Error("expected missing-one to now have a cache row")
	}
}

func TestOrchestrator_FillMissing_DisabledRegistrySkipped(t *testing.T) {
	client := &fakeClient{results: core.PackageVersions{Versions: []string{"1.0.0"}}}
	orch, _ := testOrchestrator(t, client)

	settings := orch.Config.Get()
	settings.Registries.Npm = false
	orch.Config.Apply(settings)

	fetchedAny := orch.FillMissing(context.Background(), []core.PackageEntry{{Kind: core.Npm, Name: "ignored"}})
	if fetchedAny {
		t.Error("expected no fetch for a disabled registry kind")
	}
	if atomic.LoadInt32(&client.calls) != 0 {
		t.Errorf("client.calls = %d, want 0", client.calls)
	}
}
