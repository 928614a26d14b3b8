// Package refresh implements the two fetch strategies of spec.md §4.6:
// a background sweep of stale cache rows, and an on-demand fill of rows
// missing entirely for a just-opened document. Both share the cache's
// fetch-lock columns and the same per-kind stagger.
package refresh

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/version-lsp/internal/cache"
	"github.com/git-pkgs/version-lsp/internal/config"
	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/resolver"
)

// staggerUnit is the per-fetch delay multiplier within one kind's batch,
// per spec.md §4.6 ("the Nth fetch waits N × 10ms before starting").
const staggerUnit = 10 * time.Millisecond

// Orchestrator runs the background sweep and on-demand fill.
type Orchestrator struct {
	Cache    *cache.Cache
	Registry *resolver.Registry
	Breakers *core.BreakerRegistry
	Config   *config.Store
	Log      *slog.Logger
}

// RunBackgroundSweep fires once after `initialized`: it finds every
// stale (kind, name) pair, groups by kind, and staggers fetches within
// each kind while letting kinds run in parallel. It never blocks the
// caller's errors back out - failures are logged and swallowed, per
// spec.md §4.6 ("the sweep is fire-and-forget").
func (o *Orchestrator) RunBackgroundSweep(ctx context.Context) {
	settings := o.Config.Get()
	refs, err := o.Cache.GetPackagesNeedingRefresh(ctx, settings.RefreshInterval())
	if err != nil {
		o.Log.Warn("background sweep: list stale packages", "error", err)
		return
	}
	if len(refs) == 0 {
		return
	}

	byKind := make(map[core.RegistryKind][]cache.PackageRef)
	for _, ref := range refs {
		if !settings.Registries.Enabled(ref.Kind) {
			continue
		}
		byKind[ref.Kind] = append(byKind[ref.Kind], ref)
	}

	var g errgroup.Group
	for kind, kindRefs := range byKind {
		kind, kindRefs := kind, kindRefs
		g.Go(func() error {
			o.sweepKind(ctx, kind, kindRefs)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) sweepKind(ctx context.Context, kind core.RegistryKind, refs []cache.PackageRef) {
	res, ok := o.Registry.Get(kind)
	if !ok {
		return
	}

	var g errgroup.Group
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(i) * staggerUnit):
			}
			o.fetchOne(ctx, res, ref.Name)
			return nil
		})
	}
	_ = g.Wait()
}

// FillMissing fetches every (kind, name) among entries that has no
// cache row at all (a fresh discovery, not merely stale), per spec.md
// §4.6's on-demand fill. It returns true if at least one fetch
// succeeded, so the backend knows whether re-publishing diagnostics for
// the document is worthwhile.
func (o *Orchestrator) FillMissing(ctx context.Context, entries []core.PackageEntry) bool {
	type key struct {
		kind core.RegistryKind
		name string
	}
	seen := make(map[key]bool)
	settings := o.Config.Get()

	byKind := make(map[core.RegistryKind][]string)
	for _, e := range entries {
		if !settings.Registries.Enabled(e.Kind) {
			continue
		}
		k := key{e.Kind, e.Name}
		if seen[k] {
			continue
		}
		seen[k] = true

		exists, err := o.Cache.RowExists(ctx, e.Kind, e.Name)
		if err != nil {
			o.Log.Warn("fill: row lookup", "kind", e.Kind, "name", e.Name, "error", err)
			continue
		}
		if exists {
			continue
		}
		byKind[e.Kind] = append(byKind[e.Kind], e.Name)
	}

	var fetchedAny atomic.Bool
	var g errgroup.Group
	for kind, names := range byKind {
		kind, names := kind, names
		res, ok := o.Registry.Get(kind)
		if !ok {
			continue
		}
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Duration(i) * staggerUnit):
				}
				if o.fetchOne(ctx, res, name) {
					fetchedAny.Store(true)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return fetchedAny.Load()
}

// fetchOne claims the fetch lock for (res.Kind, name), fetches via
// res.Client guarded by the kind's circuit breaker, and records the
// result. It returns true on a successful fetch.
func (o *Orchestrator) fetchOne(ctx context.Context, res resolver.Resolver, name string) bool {
	started, err := o.Cache.TryStartFetch(ctx, res.Kind, name)
	if err != nil {
		o.Log.Warn("fetch: try start", "kind", res.Kind, "name", name, "error", err)
		return false
	}
	if !started {
		// Another process or goroutine already holds the lock; its
		// completion will be observed on a later document event.
		return false
	}

	var versions core.PackageVersions
	callErr := o.Breakers.Call(res.Kind, func() error {
		v, err := res.Client.FetchVersions(ctx, name)
		if err != nil {
			return err
		}
		versions = v
		return nil
	})
	if callErr != nil {
		o.Log.Warn("fetch: registry call", "kind", res.Kind, "name", name, "error", callErr)
		if err := o.Cache.FinishFetch(ctx, res.Kind, name); err != nil {
			o.Log.Warn("fetch: finish after failure", "kind", res.Kind, "name", name, "error", err)
		}
		return false
	}

	if err := o.Cache.ReplaceVersions(ctx, res.Kind, name, versions); err != nil {
		o.Log.Warn("fetch: replace versions", "kind", res.Kind, "name", name, "error", err)
		if err := o.Cache.FinishFetch(ctx, res.Kind, name); err != nil {
			o.Log.Warn("fetch: finish after failure", "kind", res.Kind, "name", name, "error", err)
		}
		return false
	}
	return true
}
