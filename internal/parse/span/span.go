// Package span converts byte offsets in document text into the
// zero-based, UTF-16-column Position/Range pairs every parser attaches
// to a PackageEntry.
package span

import (
	"github.com/git-pkgs/version-lsp/internal/core"
)

// OffsetToPosition converts a byte offset within text into a line/column
// pair, columns counted in UTF-16 code units per the LSP wire protocol.
func OffsetToPosition(text string, offset int) core.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}

	line := 0
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}

	return core.Position{Line: line, Character: utf16Len(text[lineStart:offset])}
}

// Range builds a half-open Range covering text[start:end].
func Range(text string, start, end int) core.Range {
	return core.Range{
		Start: OffsetToPosition(text, start),
		End:   OffsetToPosition(text, end),
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
