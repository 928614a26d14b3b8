// Package githubactions parses `uses:` step references out of GitHub
// Actions workflow and composite-action YAML. Traversal walks
// gopkg.in/yaml.v3's yaml.Node tree rather than matching lines with a
// bare regex, so a `uses:` key that is a sibling of (not nested inside)
// a "steps" sequence - i.e. a reusable-workflow job-level `uses:` - is
// never mistaken for a step reference, per spec.md §4.1.
package githubactions

import (
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Parser implements core.Parser for workflow and composite-action YAML.
type Parser struct{}

var (
	usesRe   = regexp.MustCompile(`^([\w.\-]+/[\w.\-]+)(/[\w./\-]+)?@(.+)$`)
	shaRe    = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	versionC = regexp.MustCompile(`^#\s*(\S+)`)
)

func (p Parser) Parse(text string) ([]core.PackageEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &core.ParseError{Kind: core.InvalidSyntax, Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	var entries []core.PackageEntry
	walk(doc.Content[0], &entries)
	return entries, nil
}

// walk recurses through the document looking for "steps" sequences,
// regardless of whether they live under jobs.<id>.steps (a workflow) or
// runs.steps (a composite action).
func walk(n *yaml.Node, entries *[]core.PackageEntry) {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			val := n.Content[i+1]
			if key.Value == "steps" && val.Kind == yaml.SequenceNode {
				for _, step := range val.Content {
					collectStep(step, entries)
				}
				continue
			}
			walk(val, entries)
		}
	case yaml.SequenceNode:
		for _, item := range n.Content {
			walk(item, entries)
		}
	}
}

func collectStep(step *yaml.Node, entries *[]core.PackageEntry) {
	if step.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(step.Content); i += 2 {
		key := step.Content[i]
		val := step.Content[i+1]
		if key.Value != "uses" || val.Kind != yaml.ScalarNode {
			continue
		}
		if entry, ok := buildEntry(val); ok {
			*entries = append(*entries, entry)
		}
	}
}

func buildEntry(val *yaml.Node) (core.PackageEntry, bool) {
	m := usesRe.FindStringSubmatchIndex(val.Value)
	if m == nil {
		return core.PackageEntry{}, false
	}
	name := val.Value[m[2]:m[3]]
	ref := val.Value[m[6]:m[7]]

	refOffset := m[6] // byte offset of ref within val.Value

	entry := core.PackageEntry{
		Name:        name,
		VersionSpec: ref,
		Range:       valueRange(val, refOffset, len(ref)),
		Kind:        core.GitHubActions,
	}

	if shaRe.MatchString(ref) {
		if cm := versionC.FindStringSubmatch(val.LineComment); cm != nil {
			entry.CommentedVersion = cm[1]
		}
	}

	return entry, true
}

// valueRange computes the range of the substring of a scalar node's
// decoded value starting at byteOffset, length byteLen, adjusting the
// node's own start column for an opening quote when the scalar is
// quoted.
func valueRange(node *yaml.Node, byteOffset, byteLen int) core.Range {
	startCol := node.Column - 1
	if node.Style == yaml.SingleQuotedStyle || node.Style == yaml.DoubleQuotedStyle {
		startCol++
	}
	startCol += utf16Len(node.Value[:byteOffset])
	endCol := startCol + utf16Len(node.Value[byteOffset:byteOffset+byteLen])

	return core.Range{
		Start: core.Position{Line: node.Line - 1, Character: startCol},
		End:   core.Position{Line: node.Line - 1, Character: endCol},
	}
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
