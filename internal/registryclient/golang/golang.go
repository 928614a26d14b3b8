// Package golang fetches version lists from the Go module proxy for
// GoProxy entries.
package golang

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// DefaultURL is the public Go module proxy.
const DefaultURL = "https://proxy.golang.org"

// Client fetches a module's @v/list. Adapted from the teacher's
// internal/golang/golang.go, dropping the per-version .info fetch the
// teacher uses for publish timestamps: the GoProxy matcher only needs
// an ascending-sorted version list, not publish times.
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

// encodeForProxy encodes a module path per the goproxy protocol: capital
// letters become "!" followed by the lowercase letter.
// https://go.dev/ref/mod#goproxy-protocol
func encodeForProxy(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune('!')
			b.WriteRune(r + 32)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FetchVersions returns the module's versions sorted ascending by
// semver, falling back to lexicographic order for entries (pseudo-
// versions, +incompatible) that don't parse as strict semver.
func (c *Client) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	encoded := encodeForProxy(name)
	listURL := fmt.Sprintf("%s/%s/@v/list", c.baseURL, encoded)

	body, err := c.http.GetText(ctx, listURL)
	if err != nil {
		var httpErr *core.HTTPError
		if ok := asHTTPError(err, &httpErr); ok && httpErr.IsNotFound() {
			return core.PackageVersions{}, &core.NotFoundError{Kind: core.GoProxy, Name: name}
		}
		return core.PackageVersions{}, err
	}

	var versions []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			versions = append(versions, line)
		}
	}
	if len(versions) == 0 {
		return core.PackageVersions{}, &core.NotFoundError{Kind: core.GoProxy, Name: name}
	}

	sort.Slice(versions, func(i, j int) bool {
		vi, errI := semver.NewVersion(versions[i])
		vj, errJ := semver.NewVersion(versions[j])
		if errI == nil && errJ == nil {
			return vi.LessThan(vj)
		}
		if errI == nil {
			return true
		}
		if errJ == nil {
			return false
		}
		return versions[i] < versions[j]
	})

	return core.PackageVersions{Versions: versions}, nil
}

func asHTTPError(err error, target **core.HTTPError) bool {
	if httpErr, ok := err.(*core.HTTPError); ok {
		*target = httpErr
		return true
	}
	return false
}
