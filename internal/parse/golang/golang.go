// Package golang parses go.mod require lines into PackageEntry values.
// Grounded on the teacher's internal/golang/golang.go:parseRequireLine
// regex/line-scanner, per SPEC_FULL.md Open Question #2 ("preserve
// behavior, don't replace regex with a grammar").
package golang

import (
	"regexp"
	"strings"

	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/parse/span"
)

// Parser implements core.Parser for go.mod.
type Parser struct{}

var requireLineRe = regexp.MustCompile(`^\s*(\S+)\s+(v[\w.\-+]+)`)

func (p Parser) Parse(text string) ([]core.PackageEntry, error) {
	var entries []core.PackageEntry

	inRequireBlock := false
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)

		trimmed := strings.TrimRight(line, "\n")
		bare := strings.TrimSpace(trimmed)

		switch {
		case bare == "require (":
			inRequireBlock = true
			continue
		case inRequireBlock && bare == ")":
			inRequireBlock = false
			continue
		}

		var content string
		var contentOffset int
		switch {
		case inRequireBlock:
			content = trimmed
			contentOffset = lineStart
		case strings.HasPrefix(bare, "require "):
			idx := strings.Index(trimmed, "require ")
			content = trimmed[idx+len("require "):]
			contentOffset = lineStart + idx + len("require ")
		default:
			continue
		}

		m := requireLineRe.FindStringSubmatchIndex(content)
		if m == nil {
			continue
		}
		modulePath := content[m[2]:m[3]]
		version := content[m[4]:m[5]]

		start := contentOffset + m[4]
		end := contentOffset + m[5]

		entries = append(entries, core.PackageEntry{
			Name:        modulePath,
			VersionSpec: version,
			Range:       span.Range(text, start, end),
			Kind:        core.GoProxy,
		})
	}

	return entries, nil
}
