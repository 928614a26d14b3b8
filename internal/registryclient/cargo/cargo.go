// Package cargo fetches version lists from crates.io for CratesIo
// entries.
package cargo

import (
	"context"
	"fmt"
	"strings"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// DefaultURL is the public crates.io API.
const DefaultURL = "https://crates.io"

// Client fetches crate version lists, filtering yanked releases before
// they ever reach the matcher. Adapted from the teacher's
// internal/cargo/cargo.go FetchVersions.
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

type crateResponse struct {
	Versions []versionInfo `json:"versions"`
}

type versionInfo struct {
	Num    string `json:"num"`
	Yanked bool   `json:"yanked"`
}

// FetchVersions returns versions in the order the API already provides
// (oldest first) with yanked releases filtered out.
func (c *Client) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	fetchURL := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, name)

	var resp crateResponse
	if err := c.http.GetJSON(ctx, fetchURL, &resp); err != nil {
		var httpErr *core.HTTPError
		if ok := asHTTPError(err, &httpErr); ok && httpErr.IsNotFound() {
			return core.PackageVersions{}, &core.NotFoundError{Kind: core.CratesIo, Name: name}
		}
		return core.PackageVersions{}, err
	}

	versions := make([]string, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		if v.Yanked {
			continue
		}
		versions = append(versions, v.Num)
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
