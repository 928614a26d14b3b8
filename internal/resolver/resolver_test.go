package resolver

import (
	"testing"

	"github.com/git-pkgs/version-lsp/internal/core"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		uri  string
		kind core.RegistryKind
		ok   bool
	}{
		{"file:///repo/package.json", core.Npm, true},
		{"file:///repo/Cargo.toml", core.CratesIo, true},
		{"file:///repo/go.mod", core.GoProxy, true},
		{"file:///repo/pnpm-workspace.yaml", core.PnpmCatalog, true},
		{"file:///repo/deno.json", core.Jsr, true},
		{"file:///repo/deno.jsonc", core.Jsr, true},
		{"file:///repo/.github/workflows/ci.yml", core.GitHubActions, true},
		{"file:///repo/.github/workflows/ci.yaml", core.GitHubActions, true},
		{"file:///repo/.github/actions/build/action.yml", core.GitHubActions, true},
		{"file:///repo/.github/workflows/nested/ci.yml", "", false},
		{"file:///repo/README.md", "", false},
		{"file:///repo/package-lock.json", "", false},
		{"untitled:Untitled-1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			kind, ok := DetectKind(tt.uri)
			if ok != tt.ok || kind != tt.kind {
				t.Errorf("DetectKind(%q) = (%q, %v), want (%q, %v)", tt.uri, kind, ok, tt.kind, tt.ok)
			}
		})
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Get(core.Npm); ok {
		t.Error("expected no resolver registered yet")
	}

	reg.Register(Resolver{Kind: core.Npm})
	if _, ok := reg.Get(core.Npm); !ok {
		t.Error("expected resolver to be registered")
	}
}
