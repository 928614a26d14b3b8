// Package jsr parses deno.json/deno.jsonc "imports" entries that name a
// jsr: specifier into PackageEntry values.
package jsr

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/parse/jsonspan"
	"github.com/git-pkgs/version-lsp/internal/parse/span"
)

// Parser implements core.Parser for deno.json and deno.jsonc.
//
// jsonc.ToJSON replaces comments and trailing commas with matching-
// length whitespace rather than deleting them, so byte offsets in the
// stripped text stay aligned with the original document; spans are
// computed against the stripped text, which is byte-identical to the
// original everywhere except inside comments.
type Parser struct{}

type denoJSON struct {
	Imports json.RawMessage `json:"imports"`
}

func (p Parser) Parse(text string) ([]core.PackageEntry, error) {
	stripped := jsonc.ToJSON([]byte(text))

	var doc denoJSON
	if err := json.Unmarshal(stripped, &doc); err != nil {
		return nil, &core.ParseError{Kind: core.InvalidSyntax, Message: err.Error()}
	}
	if len(doc.Imports) == 0 {
		return nil, nil
	}

	base := jsonspan.Locate(stripped, doc.Imports)
	if base < 0 {
		return nil, nil
	}
	fields, err := jsonspan.StringFields(doc.Imports, base)
	if err != nil {
		return nil, &core.ParseError{Kind: core.InvalidSyntax, Message: err.Error()}
	}

	var entries []core.PackageEntry
	for _, f := range fields {
		entry, ok := toEntry(text, f)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toEntry(text string, f jsonspan.Field) (core.PackageEntry, bool) {
	if !strings.HasPrefix(f.Value, "jsr:") {
		return core.PackageEntry{}, false
	}
	spec := strings.TrimPrefix(f.Value, "jsr:")

	name, version, ok := splitScopedSpec(spec)
	if !ok {
		return core.PackageEntry{}, false
	}
	if version == "" {
		version = "latest"
	}

	return core.PackageEntry{
		Name:        name,
		VersionSpec: version,
		Range:       span.Range(text, f.ValueStart, f.ValueEnd),
		Kind:        core.Jsr,
	}, true
}

// splitScopedSpec splits "@scope/name[@spec]" into name and spec,
// tolerating the absence of a version.
func splitScopedSpec(s string) (name, version string, ok bool) {
	if !strings.HasPrefix(s, "@") {
		return "", "", false
	}
	slash := strings.Index(s, "/")
	if slash < 0 {
		return "", "", false
	}
	rest := s[slash+1:]
	if at := strings.Index(rest, "@"); at >= 0 {
		return s[:slash+1+at], rest[at+1:], true
	}
	return s, "", true
}
