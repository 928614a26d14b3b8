// Package npm parses package.json dependency fields into PackageEntry
// values. Parsing is pure: package.json is decoded with encoding/json
// for correctness and jsonspan locates each value's byte span for the
// diagnostic range, matching the teacher's internal/npm/npm.go struct-
// tag decode style applied to source text instead of a registry
// response.
package npm

import (
	"encoding/json"
	"strings"

	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/parse/jsonspan"
	"github.com/git-pkgs/version-lsp/internal/parse/span"
)

// Parser implements core.Parser for package.json.
type Parser struct{}

var dependencyFields = []string{
	"dependencies",
	"devDependencies",
	"peerDependencies",
	"optionalDependencies",
}

type packageJSON struct {
	Dependencies         json.RawMessage `json:"dependencies"`
	DevDependencies      json.RawMessage `json:"devDependencies"`
	PeerDependencies     json.RawMessage `json:"peerDependencies"`
	OptionalDependencies json.RawMessage `json:"optionalDependencies"`
}

func (p Parser) Parse(text string) ([]core.PackageEntry, error) {
	var doc packageJSON
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &core.ParseError{Kind: core.InvalidSyntax, Message: err.Error()}
	}

	raw := map[string]json.RawMessage{
		"dependencies":         doc.Dependencies,
		"devDependencies":      doc.DevDependencies,
		"peerDependencies":     doc.PeerDependencies,
		"optionalDependencies": doc.OptionalDependencies,
	}

	var entries []core.PackageEntry
	docBytes := []byte(text)
	for _, fieldName := range dependencyFields {
		nested := raw[fieldName]
		if len(nested) == 0 {
			continue
		}
		base := jsonspan.Locate(docBytes, nested)
		if base < 0 {
			continue
		}
		fields, err := jsonspan.StringFields(nested, base)
		if err != nil {
			continue
		}
		for _, f := range fields {
			entry, ok := toEntry(text, f)
			if !ok {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// toEntry applies the skip rules and npm:<real>@<ver> alias rewriting
// from spec.md §4.1.
func toEntry(text string, f jsonspan.Field) (core.PackageEntry, bool) {
	name := f.Key
	versionSpec := f.Value

	for _, prefix := range []string{"file:", "link:", "portal:", "git+", "http:", "https:", "github:"} {
		if strings.HasPrefix(versionSpec, prefix) {
			return core.PackageEntry{}, false
		}
	}
	if strings.HasPrefix(versionSpec, "workspace:") {
		return core.PackageEntry{}, false
	}
	// <owner>/<repo> shorthand with no version (a single slash, no
	// scheme, no semver-ish leading character).
	if looksLikeBareGitHubShorthand(versionSpec) {
		return core.PackageEntry{}, false
	}

	if strings.HasPrefix(versionSpec, "npm:") {
		aliasTarget := strings.TrimPrefix(versionSpec, "npm:")
		real, ver, ok := splitAlias(aliasTarget)
		if !ok {
			return core.PackageEntry{}, false
		}
		name = real
		versionSpec = ver
	}

	return core.PackageEntry{
		Name:        name,
		VersionSpec: versionSpec,
		Range:       span.Range(text, f.ValueStart, f.ValueEnd),
		Kind:        core.Npm,
	}, true
}

// looksLikeBareGitHubShorthand reports whether spec is an "owner/repo"
// reference with no version, per spec.md §4.1's skip list.
func looksLikeBareGitHubShorthand(spec string) bool {
	if strings.ContainsAny(spec, ":@") {
		return false
	}
	parts := strings.Split(spec, "/")
	if len(parts) != 2 {
		return false
	}
	return parts[0] != "" && parts[1] != ""
}

// splitAlias splits "@scope/name@version" or "name@version" into the
// real package name and version, honoring a leading "@scope/" segment
// that itself contains a slash before the version-delimiting "@".
func splitAlias(target string) (name, version string, ok bool) {
	scoped := strings.HasPrefix(target, "@")
	searchFrom := 0
	if scoped {
		if idx := strings.Index(target, "/"); idx >= 0 {
			searchFrom = idx + 1
		}
	}
	idx := strings.Index(target[searchFrom:], "@")
	if idx < 0 {
		return "", "", false
	}
	idx += searchFrom
	return target[:idx], target[idx+1:], true
}
