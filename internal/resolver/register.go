package resolver

import (
	"net/http"

	cargomatch "github.com/git-pkgs/version-lsp/internal/match/cargo"
	githubmatch "github.com/git-pkgs/version-lsp/internal/match/githubactions"
	golangmatch "github.com/git-pkgs/version-lsp/internal/match/golangproxy"
	npmmatch "github.com/git-pkgs/version-lsp/internal/match/npmsemver"

	"github.com/git-pkgs/version-lsp/internal/core"
	cargoparse "github.com/git-pkgs/version-lsp/internal/parse/cargo"
	githubparse "github.com/git-pkgs/version-lsp/internal/parse/githubactions"
	golangparse "github.com/git-pkgs/version-lsp/internal/parse/golang"
	jsrparse "github.com/git-pkgs/version-lsp/internal/parse/jsr"
	npmparse "github.com/git-pkgs/version-lsp/internal/parse/npm"
	pnpmparse "github.com/git-pkgs/version-lsp/internal/parse/pnpmcatalog"

	cargoclient "github.com/git-pkgs/version-lsp/internal/registryclient/cargo"
	githubclient "github.com/git-pkgs/version-lsp/internal/registryclient/githubactions"
	golangclient "github.com/git-pkgs/version-lsp/internal/registryclient/golang"
	jsrclient "github.com/git-pkgs/version-lsp/internal/registryclient/jsr"
	npmclient "github.com/git-pkgs/version-lsp/internal/registryclient/npm"
	pnpmclient "github.com/git-pkgs/version-lsp/internal/registryclient/pnpmcatalog"
)

// RegisterAll builds every resolver triple spec.md §3 names and adds
// them to reg. Mirrors the teacher's all/all.go "import everything"
// registration, rewritten as explicit construction since this repo
// registers (parser, matcher, client) triples, not bare registry
// clients keyed by ecosystem name.
func RegisterAll(reg *Registry, httpClient *core.Client, rawHTTPClient *http.Client) {
	npm := npmclient.New("", httpClient)

	reg.Register(Resolver{
		Kind:   core.Npm,
		Parser: npmparse.Parser{},
		Client: npm,
		NewMatcher: func(ignorePrerelease bool) core.Matcher {
			return npmmatch.Matcher{IgnorePrerelease: ignorePrerelease}
		},
	})

	reg.Register(Resolver{
		Kind:   core.PnpmCatalog,
		Parser: pnpmparse.Parser{},
		Client: pnpmclient.New(npm),
		NewMatcher: func(ignorePrerelease bool) core.Matcher {
			return npmmatch.Matcher{IgnorePrerelease: ignorePrerelease}
		},
	})

	reg.Register(Resolver{
		Kind:   core.Jsr,
		Parser: jsrparse.Parser{},
		Client: jsrclient.New("", httpClient),
		NewMatcher: func(ignorePrerelease bool) core.Matcher {
			return npmmatch.Matcher{IgnorePrerelease: ignorePrerelease}
		},
	})

	reg.Register(Resolver{
		Kind:   core.CratesIo,
		Parser: cargoparse.Parser{},
		Client: cargoclient.New("", httpClient),
		NewMatcher: func(bool) core.Matcher {
			return cargomatch.Matcher{}
		},
	})

	reg.Register(Resolver{
		Kind:   core.GoProxy,
		Parser: golangparse.Parser{},
		Client: golangclient.New("", httpClient),
		NewMatcher: func(bool) core.Matcher {
			return golangmatch.Matcher{}
		},
	})

	reg.Register(Resolver{
		Kind:   core.GitHubActions,
		Parser: githubparse.Parser{},
		Client: githubclient.New(rawHTTPClient),
		NewMatcher: func(bool) core.Matcher {
			return githubmatch.Matcher{}
		},
	})
}
