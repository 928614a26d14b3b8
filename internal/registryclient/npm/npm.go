// Package npm fetches version lists and dist-tags from the npm
// registry for Npm and (via the pnpmcatalog wrapper) PnpmCatalog
// entries. Jsr entries use the separate jsr client.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/iancoleman/orderedmap"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// DefaultURL is the public npm registry.
const DefaultURL = "https://registry.npmjs.org"

// Client fetches package metadata from an npm-compatible registry.
// Adapted from the teacher's internal/npm/npm.go FetchVersions, trimmed
// to what the matcher needs (versions + dist-tags) and switched to an
// order-preserving decode of the "versions" map, since npm's documented
// "publish order" guarantee only holds for the order keys appear in the
// JSON text, not for any field inside each version record.
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

type packageResponse struct {
	DistTags map[string]string `json:"dist-tags"`
}

// FetchVersions fetches the full version list (in publish order) and
// dist-tags for name.
func (c *Client) FetchVersions(ctx context.Context, name string) (core.PackageVersions, error) {
	fetchURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))

	body, err := c.http.GetBody(ctx, fetchURL)
	if err != nil {
		var httpErr *core.HTTPError
		if ok := asHTTPError(err, &httpErr); ok && httpErr.IsNotFound() {
			return core.PackageVersions{}, &core.NotFoundError{Kind: core.Npm, Name: name}
		}
		return core.PackageVersions{}, err
	}

	om := orderedmap.New()
	if err := om.UnmarshalJSON(body); err != nil {
		return core.PackageVersions{}, &core.InvalidResponseError{URL: fetchURL, Message: err.Error()}
	}

	versionsRaw, ok := om.Get("versions")
	if !ok {
		return core.PackageVersions{}, &core.InvalidResponseError{URL: fetchURL, Message: "missing versions object"}
	}
	versionsMap, ok := versionsRaw.(orderedmap.OrderedMap)
	if !ok {
		return core.PackageVersions{}, &core.InvalidResponseError{URL: fetchURL, Message: "versions is not an object"}
	}

	versions := make([]string, 0, len(versionsMap.Keys()))
	versions = append(versions, versionsMap.Keys()...)

	var resp packageResponse
	if distTagsRaw, ok := om.Get("dist-tags"); ok {
		if tags, ok := distTagsRaw.(orderedmap.OrderedMap); ok {
			resp.DistTags = make(map[string]string, len(tags.Keys()))
			for _, k := range tags.Keys() {
				v, _ := tags.Get(k)
				if s, ok := v.(string); ok {
					resp.DistTags[k] = s
				}
			}
		}
	}

	return core.PackageVersions{Versions: versions, DistTags: resp.DistTags}, nil
}

func asHTTPError(err error, target **core.HTTPError) bool {
	if httpErr, ok := err.(*core.HTTPError); ok {
		*target = httpErr
		return true
	}
	return false
}
