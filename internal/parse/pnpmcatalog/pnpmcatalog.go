// Package pnpmcatalog parses pnpm-workspace.yaml's "catalog" and
// "catalogs.<name>" mappings into PackageEntry values. Values are
// ordinary npm version specs, matched by the npmsemver matcher.
package pnpmcatalog

import (
	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Parser implements core.Parser for pnpm-workspace.yaml.
type Parser struct{}

func (p Parser) Parse(text string) ([]core.PackageEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &core.ParseError{Kind: core.InvalidSyntax, Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	var entries []core.PackageEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		value := root.Content[i+1]

		switch key.Value {
		case "catalog":
			entries = append(entries, entriesFromMapping(value)...)
		case "catalogs":
			if value.Kind != yaml.MappingNode {
				continue
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				entries = append(entries, entriesFromMapping(value.Content[j+1])...)
			}
		}
	}

	return entries, nil
}

func entriesFromMapping(mapping *yaml.Node) []core.PackageEntry {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	var entries []core.PackageEntry
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		nameNode := mapping.Content[i]
		versionNode := mapping.Content[i+1]
		if versionNode.Kind != yaml.ScalarNode {
			continue
		}
		entries = append(entries, core.PackageEntry{
			Name:        nameNode.Value,
			VersionSpec: versionNode.Value,
			Range:       valueRange(versionNode),
			Kind:        core.PnpmCatalog,
		})
	}
	return entries
}

// valueRange approximates the span of a scalar node's value text. For
// quoted single-line scalars the opening quote is skipped so the range
// covers the value text itself, matching spec.md §4.1's span-exactness
// contract.
func valueRange(node *yaml.Node) core.Range {
	startCol := node.Column - 1
	if node.Style == yaml.SingleQuotedStyle || node.Style == yaml.DoubleQuotedStyle {
		startCol++
	}
	start := core.Position{Line: node.Line - 1, Character: startCol}
	end := core.Position{Line: node.Line - 1, Character: startCol + utf16Len(node.Value)}
	return core.Range{Start: start, End: end}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
