// Package jsr fetches version lists from jsr.io for Jsr entries.
package jsr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// DefaultURL is the public JSR registry.
const DefaultURL = "https://jsr.io"

// Client fetches a scoped module's meta.json. Structurally this is the
// closest pack analogue to the teacher's internal/deno/deno.go client
// (a single JSON metadata document keyed by module name), retargeted
// from deno.land/x's apiland API to jsr.io's actual registry surface,
// since this spec's Jsr kind means JSR, not deno.land/x.
type Client struct {
	baseURL string
	http    *core.Client
}

// New constructs a Client. An empty baseURL uses DefaultURL.
func New(baseURL string, httpClient *core.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient}
}

type metaResponse struct {
	Versions map[string]versionMeta `json:"versions"`
}

type versionMeta struct {
	Yanked bool `json:"yanked"`
}

// FetchVersions returns non-yanked versions. jsr.io's meta.json doesn't
// carry a createdAt per version in its versions map (unlike the
// per-version endpoint), so ascending order is recovered by a semver
// sort rather than a timestamp sort; Jsr reuses npm/semver semantics
// for matching, so this ordering never affects which version is
// "latest" (that's always the semver maximum).
func (c *Client) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	fetchURL := fmt.Sprintf("%s/%s/meta.json", c.baseURL, name)

	var resp metaResponse
	if err := c.http.GetJSON(ctx, fetchURL, &resp); err != nil {
		var httpErr *core.HTTPError
		if ok := asHTTPError(err, &httpErr); ok && httpErr.IsNotFound() {
			return core.PackageVersions{}, &core.NotFoundError{Kind: core.Jsr, Name: name}
		}
		return core.PackageVersions{}, err
	}

	parsed := make([]*semver.Version, 0, len(resp.Versions))
	for num, meta := range resp.Versions {
		if meta.Yanked {
			continue
		}
		if v, err := semver.NewVersion(num); err == nil {
			parsed = append(parsed, v)
		}
	}
	sort.Sort(semver.Collection(parsed))

	versions := make([]string, len(parsed))
	for i, v := range parsed {
		versions[i] = v.Original()
	}

	return core.PackageVersions{Versions: versions}, nil
}

func asHTTPError(err error, target **core.HTTPError) bool {
	if httpErr, ok := err.(*core.HTTPError); ok {
		*target = httpErr
		return true
	}
	return false
}
