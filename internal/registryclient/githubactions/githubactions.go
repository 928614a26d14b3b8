// Package githubactions fetches release tags from GitHub for
// GitHubActions entries (uses: owner/repo@ref).
package githubactions

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v74/github"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Client fetches a repository's releases via the GitHub API. The
// teacher has no GitHub Releases client to adapt, so this is built
// directly against github.com/google/go-github/v74 (a pack-indirect
// dependency, per DESIGN.md), wrapped in the rate-limit-aware transport
// the wider example pack standardizes on.
type Client struct {
	gh *github.Client
}

// New constructs a Client. httpClient's transport is wrapped with
// go-github-ratelimit's secondary-rate-limit waiter so a background
// sweep that trips GitHub's abuse detection sleeps and retries instead
// of surfacing a 403 to the caller. If GITHUB_TOKEN is set, requests
// are authenticated, which substantially raises GitHub's unauthenticated
// rate limit for this kind's sweeps.
func New(httpClient *http.Client) *Client {
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	limited, err := github_ratelimit.NewRateLimitWaiterClient(transport)
	if err != nil {
		limited = httpClient
	}

	gh := github.NewClient(limited)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{gh: gh}
}

// FetchVersions returns release tag names, ascending by creation time.
func (c *Client) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	owner, repo, ok := strings.Cut(name, "/")
	if !ok {
		return core.PackageVersions{}, &core.InvalidResponseError{Message: fmt.Sprintf("not an owner/repo pair: %s", name)}
	}

	opt := &github.ListOptions{PerPage: 100}
	type tagged struct {
		tag     string
		created int64
	}
	var all []tagged

	for {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, repo, opt)
		if err != nil {
			if ghErr, ok := err.(*github.ErrorResponse); ok && ghErr.Response != nil && ghErr.Response.StatusCode == 404 {
				return core.PackageVersions{}, &core.NotFoundError{Kind: core.GitHubActions, Name: name}
			}
			if ghErr, ok := err.(*github.RateLimitError); ok {
				retryAfter := int(time.Until(ghErr.Rate.Reset.Time).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				return core.PackageVersions{}, &core.RateLimitError{RetryAfter: retryAfter}
			}
			return core.PackageVersions{}, &core.NetworkError{URL: fmt.Sprintf("repos/%s/%s/releases", owner, repo), Err: err}
		}

		for _, r := range releases {
			if r.TagName == nil {
				continue
			}
			var created int64
			if r.CreatedAt != nil {
				created = r.CreatedAt.Unix()
			}
			all = append(all, tagged{tag: *r.TagName, created: created})
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	sort.Slice(all, func(i, j int) bool { return all[i].created < all[j].created })

	versions := make([]string, len(all))
	for i, t := range all {
		versions[i] = t.tag
	}

	return core.PackageVersions{Versions: versions}, nil
}
