// Package pnpmcatalog delegates PnpmCatalog entries to the npm client:
// pnpm catalog values are ordinary npm version specs for ordinary npm
// package names.
package pnpmcatalog

import (
	"context"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Client forwards every fetch to an underlying npm-compatible client.
type Client struct {
	npm core.VersionClient
}

// New wraps an npm client for catalog lookups.
func New(npmClient core.VersionClient) *Client {
	return &Client{npm: npmClient}
}

func (c *Client) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	return c.npm.FetchVersions(ctx, name)
}
