// Package resolver wires together the per-RegistryKind (parser, matcher,
// client) triple from spec.md §4.5 and detects which triple a document
// URI should use.
package resolver

import (
	"path"
	"regexp"
	"strings"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Resolver bundles the three collaborators one RegistryKind needs to go
// from document text to diagnostics.
type Resolver struct {
	Kind   core.RegistryKind
	Parser core.Parser
	Client core.VersionClient
	// Matcher is built per-document by the backend (it depends on the
	// live ignorePrerelease setting), so the registry only carries a
	// factory for it.
	NewMatcher func(ignorePrerelease bool) core.Matcher
}

// Registry maps each RegistryKind to its Resolver.
type Registry struct {
	resolvers map[core.RegistryKind]Resolver
}

// NewRegistry builds an empty registry; use Register to populate it.
func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[core.RegistryKind]Resolver)}
}

// Register adds or replaces the resolver for r.Kind.
func (reg *Registry) Register(r Resolver) {
	reg.resolvers[r.Kind] = r
}

// Get returns the resolver for kind, if one is registered.
func (reg *Registry) Get(kind core.RegistryKind) (Resolver, bool) {
	r, ok := reg.resolvers[kind]
	return r, ok
}

var actionsPathRe = regexp.MustCompile(`/\.github/(workflows/[^/]+|actions/[^/]+/[^/]+)\.ya?ml$`)

// DetectKind maps a document URI to a RegistryKind per spec.md §4.5.
// URIs that match no known manifest shape yield ok=false, meaning "no
// diagnostics for this document".
func DetectKind(uri string) (core.RegistryKind, bool) {
	p := uriPath(uri)
	base := path.Base(p)

	switch base {
	case "package.json":
		return core.Npm, true
	case "Cargo.toml":
		return core.CratesIo, true
	case "go.mod":
		return core.GoProxy, true
	case "pnpm-workspace.yaml":
		return core.PnpmCatalog, true
	case "deno.json", "deno.jsonc":
		return core.Jsr, true
	}

	if actionsPathRe.MatchString(p) {
		return core.GitHubActions, true
	}

	return "", false
}

// uriPath strips a "scheme://" or "scheme:" prefix and any query/fragment
// from a document URI, without requiring the URI to be a well-formed
// file:// reference (editors sometimes send untitled: URIs this server
// simply won't match anything for).
func uriPath(uri string) string {
	if idx := strings.Index(uri, "://"); idx >= 0 {
		uri = uri[idx+3:]
	} else if idx := strings.Index(uri, ":"); idx >= 0 && !strings.HasPrefix(uri, "/") {
		uri = uri[idx+1:]
	}
	if idx := strings.IndexAny(uri, "?#"); idx >= 0 {
		uri = uri[:idx]
	}
	return uri
}
