// Command version-lsp runs the version-freshness language server over
// stdio, the standard transport for an editor-spawned LSP backend.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/git-pkgs/version-lsp/internal/backend"
	"github.com/git-pkgs/version-lsp/internal/cache"
	"github.com/git-pkgs/version-lsp/internal/config"
	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/refresh"
	"github.com/git-pkgs/version-lsp/internal/resolver"
	"github.com/git-pkgs/version-lsp/internal/rpc"
)

const userAgent = "version-lsp/0.1"

func main() {
	// LSP uses stdout exclusively for protocol frames; all logging goes
	// to stderr, matching the teacher pack's convention of routing
	// diagnostics-about-the-tool away from the tool's primary output
	// stream.
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("version-lsp exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ch, err := cache.Open()
	if err != nil {
		// Per spec.md §7, failing to open the cache on every candidate
		// path is the one condition that fails server initialization.
		return err
	}
	defer func() { _ = ch.Close() }()

	httpClient := core.NewClient(userAgent)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		httpClient.GitHubToken = token
	}

	reg := resolver.NewRegistry()
	resolver.RegisterAll(reg, httpClient, httpClient.HTTPClient)

	cfg := config.NewStore()
	breakers := core.NewBreakerRegistry()

	refreshOrch := &refresh.Orchestrator{
		Cache:    ch,
		Registry: reg,
		Breakers: breakers,
		Config:   cfg,
		Log:      log,
	}

	c := rpc.NewConn(os.Stdin, os.Stdout)
	back := backend.New(c, ch, reg, cfg, refreshOrch, log)

	ctx := context.Background()
	for {
		msg, err := c.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		back.Handle(ctx, msg)
		if msg.Method == "exit" {
			return nil
		}
	}
}
