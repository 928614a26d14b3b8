// Package cargo parses Cargo.toml dependency tables into PackageEntry
// values. github.com/BurntSushi/toml validates overall document syntax
// (ParseError on failure, mirroring the other parsers' "fail structured,
// never crash" contract); BurntSushi/toml has no span-reporting API, so
// entry spans are recovered with a section-tracking line scanner in the
// same regex/line-scanner style as the go.mod parser.
package cargo

import (
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/git-pkgs/version-lsp/internal/core"
	"github.com/git-pkgs/version-lsp/internal/parse/span"
)

// Parser implements core.Parser for Cargo.toml.
type Parser struct{}

var (
	sectionRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*(#.*)?$`)
	assignRe  = regexp.MustCompile(`^\s*([A-Za-z0-9_\-]+)\s*=\s*(.*?)\s*(#.*)?$`)
	kindNames = []string{"dependencies", "dev-dependencies", "build-dependencies"}
)

func (p Parser) Parse(text string) ([]core.PackageEntry, error) {
	var probe map[string]interface{}
	if _, err := toml.Decode(text, &probe); err != nil {
		return nil, &core.ParseError{Kind: core.InvalidSyntax, Message: err.Error()}
	}

	var entries []core.PackageEntry

	currentSection := ""
	for _, line := range splitLinesKeepOffsets(text) {
		content := text[line.start:line.end]

		if m := sectionRe.FindStringSubmatch(content); m != nil {
			currentSection = strings.TrimSpace(m[1])
			continue
		}

		depName, kind, isSubtable := sectionDependencyTable(currentSection)
		if kind == "" {
			continue
		}

		m := assignRe.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		key := m[1]
		value := m[2]

		if isSubtable {
			if key != "version" {
				continue
			}
			if entry, ok := scalarEntry(text, line.start, content, depName, value); ok {
				entries = append(entries, entry)
			}
		} else {
			name := key
			if strings.HasPrefix(value, "{") {
				if entry, ok := inlineTableEntry(text, line.start, content, name); ok {
					entries = append(entries, entry)
				}
			} else if entry, ok := scalarEntry(text, line.start, content, name, value); ok {
				entries = append(entries, entry)
			}
		}
	}

	return entries, nil
}

// sectionDependencyTable classifies a TOML section header into
// (dependency name for the dotted sub-table form, kind, isSubtable).
// kind is "" when the section doesn't name a dependency table at all.
func sectionDependencyTable(section string) (name, kind string, isSubtable bool) {
	parts := strings.Split(section, ".")
	for i, p := range parts {
		for _, k := range kindNames {
			if p != k {
				continue
			}
			if i == len(parts)-1 {
				return "", k, false
			}
			// [dependencies.serde] / [target.'cfg(unix)'.dependencies.serde]
			return strings.Join(parts[i+1:], "."), k, true
		}
	}
	return "", "", false
}

func scalarEntry(text string, lineStart int, content, name, value string) (core.PackageEntry, bool) {
	if !strings.HasPrefix(value, `"`) {
		return core.PackageEntry{}, false
	}
	idxInLine := strings.Index(content, value)
	if idxInLine < 0 {
		return core.PackageEntry{}, false
	}
	absStart := lineStart + idxInLine
	quoteStart, quoteEnd, ok := findQuoted(text, absStart)
	if !ok {
		return core.PackageEntry{}, false
	}
	return core.PackageEntry{
		Name:        name,
		VersionSpec: text[quoteStart:quoteEnd],
		Range:       span.Range(text, quoteStart, quoteEnd),
		Kind:        core.CratesIo,
	}, true
}

// inlineTableEntry handles `name = { version = "1.0", features = [...] }`
// on a single line, skipping path/git/workspace-inherited dependencies.
func inlineTableEntry(text string, lineStart int, content, name string) (core.PackageEntry, bool) {
	if strings.Contains(content, "path") && regexp.MustCompile(`\bpath\s*=`).MatchString(content) {
		return core.PackageEntry{}, false
	}
	if regexp.MustCompile(`\bgit\s*=`).MatchString(content) {
		return core.PackageEntry{}, false
	}
	if regexp.MustCompile(`\bworkspace\s*=\s*true`).MatchString(content) {
		return core.PackageEntry{}, false
	}

	versionFieldRe := regexp.MustCompile(`\bversion\s*=\s*(".*?")`)
	m := versionFieldRe.FindStringSubmatchIndex(content)
	if m == nil {
		return core.PackageEntry{}, false
	}
	absStart := lineStart + m[2]
	quoteStart, quoteEnd, ok := findQuoted(text, absStart)
	if !ok {
		return core.PackageEntry{}, false
	}
	return core.PackageEntry{
		Name:        name,
		VersionSpec: text[quoteStart:quoteEnd],
		Range:       span.Range(text, quoteStart, quoteEnd),
		Kind:        core.CratesIo,
	}, true
}

// findQuoted finds the first quoted string starting at or after from,
// returning the byte range of its content (excluding the quotes).
func findQuoted(text string, from int) (start, end int, ok bool) {
	i := strings.IndexByte(text[from:], '"')
	if i < 0 {
		return 0, 0, false
	}
	start = from + i + 1
	j := strings.IndexByte(text[start:], '"')
	if j < 0 {
		return 0, 0, false
	}
	end = start + j
	return start, end, true
}

type lineSpan struct{ start, end int }

func splitLinesKeepOffsets(text string) []lineSpan {
	var lines []lineSpan
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, lineSpan{start, i})
			start = i + 1
		}
	}
	lines = append(lines, lineSpan{start, len(text)})
	return lines
}
