package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/git-pkgs/version-lsp/internal/core"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "versions.db")
	c, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_ReplaceAndGetVersions(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	versions := core.PackageVersions{
		Versions: []string{"1.0.0", "1.1.0"},
		DistTags: map[string]string{"latest": "1.1.0"},
	}
	if err := c.ReplaceVersions(ctx, core.Npm, "lodash", versions); err != nil {
		t.Fatalf("ReplaceVersions: %v", err)
	}

	got, ok, err := c.GetVersions(ctx, core.Npm, "lodash")
	if err != nil {
		t.Fatalf("GetVersions: %v", err)
	}
	if !ok {
		t.Fatal("GetVersions: want row found")
	}
	if len(got.Versions) != 2 || got.Versions[0] != "1.0.0" || got.Versions[1] != "1.1.0" {
		t.Errorf("Versions = %v, want [1.0.0 1.1.0] in insertion order", got.Versions)
	}
	if got.DistTags["latest"] != "1.1.0" {
		t.Errorf("DistTags[latest] = %q, want 1.1.0", got.DistTags["latest"])
	}
}

func TestCache_GetVersions_NoRowIsMiss(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.GetVersions(context.Background(), core.Npm, "never-seen")
	if err != nil {
		t.Fatalf("GetVersions: %v", err)
	}
	if ok {
		t.Error("expected no row for an unfetched package")
	}
}

func TestCache_ReplaceVersions_AppendOnly(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	first := core.PackageVersions{Versions: []string{"1.0.0"}}
	if err := c.ReplaceVersions(ctx, core.CratesIo, "serde", first); err != nil {
		t.Fatalf("ReplaceVersions (first): %v", err)
	}
	second := core.PackageVersions{Versions: []string{"1.0.1"}}
	if err := c.ReplaceVersions(ctx, core.CratesIo, "serde", second); err != nil {
		t.Fatalf("ReplaceVersions (second): %v", err)
	}

	got, _, err := c.GetVersions(ctx, core.CratesIo, "serde")
	if err != nil {
		t.Fatalf("GetVersions: %v", err)
	}
	if len(got.Versions) != 2 {
		t.Fatalf("Versions = %v, want both 1.0.0 and 1.0.1 retained", got.Versions)
	}
}

func TestCache_VersionExists(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	_ = c.ReplaceVersions(ctx, core.GoProxy, "github.com/pkg/errors", core.PackageVersions{
		Versions: []string{"v0.9.0", "v0.9.1"},
	})

	exists, err := c.VersionExists(ctx, core.GoProxy, "github.com/pkg/errors", "v0.9.1")
	if err != nil {
		t.Fatalf("VersionExists: %v", err)
	}
	if !exists {
		t.Error("expected v0.9.1 to exist")
	}

	exists, err = c.VersionExists(ctx, core.GoProxy, "github.com/pkg/errors", "v99.0.0")
	if err != nil {
		t.Fatalf("VersionExists: %v", err)
	}
	if exists {
		t.Error("expected v99.0.0 to not exist")
	}
}

func TestCache_TryStartFetch_ExclusiveUntilFinish(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	first, err := c.TryStartFetch(ctx, core.Npm, "react")
	if err != nil {
		t.Fatalf("TryStartFetch (first): %v", err)
	}
	if !first {
		t.Fatal("expected first TryStartFetch to succeed")
	}

	second, err := c.TryStartFetch(ctx, core.Npm, "react")
	if err != nil {
		t.Fatalf("TryStartFetch (second): %v", err)
	}
	if second {
		t.Error("expected second concurrent TryStartFetch to fail while the lock is held")
	}

	if err := c.FinishFetch(ctx, core.Npm, "react"); err != nil {
		t.Fatalf("FinishFetch: %v", err)
	}

	third, err := c.TryStartFetch(ctx, core.Npm, "react")
	if err != nil {
		t.Fatalf("TryStartFetch (third): %v", err)
	}
	if !third {
		t.Error("expected TryStartFetch to succeed again after FinishFetch released the lock")
	}
}

func TestCache_GetPackagesNeedingRefresh(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	if err := c.ReplaceVersions(ctx, core.Npm, "fresh", core.PackageVersions{Versions: []string{"1.0.0"}}); err != nil {
		t.Fatalf("ReplaceVersions: %v", err)
	}

	// Simulate a package fetched long ago by claiming (creating) its row
	// with TryStartFetch, then backdating it directly isn't available
	// through the public API, so instead assert the freshly-replaced
	// package is NOT reported as needing refresh under a generous window.
	refs, err := c.GetPackagesNeedingRefresh(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("GetPackagesNeedingRefresh: %v", err)
	}
	for _, r := range refs {
		if r.Kind == core.Npm && r.Name == "fresh" {
			t.Error("freshly replaced package should not need refresh under a 24h window")
		}
	}

	// updated_at has millisecond resolution and staleness is a strict
	// comparison, so let the clock move past the write first.
	time.Sleep(2 * time.Millisecond)
	refs, err = c.GetPackagesNeedingRefresh(ctx, 0)
	if err != nil {
		t.Fatalf("GetPackagesNeedingRefresh(0): %v", err)
	}
	found := false
	for _, r := range refs {
		if r.Kind == core.Npm && r.Name == "fresh" {
			found = true
		}
	}
	if !found {
		t.Error("a 0-duration refresh window should treat every package updated before now as stale")
	}
}

func TestCache_RowExists(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	exists, err := c.RowExists(ctx, core.Npm, "ghost")
	if err != nil {
		t.Fatalf("RowExists: %v", err)
	}
	if exists {
		t.Error("expected no row for a never-seen package")
	}

	if _, err := c.TryStartFetch(ctx, core.Npm, "ghost"); err != nil {
		t.Fatalf("TryStartFetch: %v", err)
	}

	exists, err = c.RowExists(ctx, core.Npm, "ghost")
	if err != nil {
		t.Fatalf("RowExists: %v", err)
	}
	if !exists {
		t.Error("expected TryStartFetch to have created a row")
	}
}
