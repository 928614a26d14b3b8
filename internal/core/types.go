// Package core provides the shared types that flow between parsers,
// matchers, registry clients, and the cache.
package core

// RegistryKind is the closed set of manifest ecosystems this server
// understands. Its string form is stable and persisted in the cache.
type RegistryKind string

const (
	GitHubActions RegistryKind = "github"
	Npm           RegistryKind = "npm"
	CratesIo      RegistryKind = "crates"
	GoProxy       RegistryKind = "go_proxy"
	PnpmCatalog   RegistryKind = "pnpm_catalog"
	Jsr           RegistryKind = "jsr"
)

// Position is a zero-based line/column pair. Columns are counted in
// UTF-16 code units, matching the LSP wire protocol.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open source span covering the text that should carry
// a diagnostic.
type Range struct {
	Start Position
	End   Position
}

// PackageEntry is one dependency occurrence found by a parser.
type PackageEntry struct {
	Name        string
	VersionSpec string
	Range       Range
	Kind        RegistryKind

	// CommentedVersion is set for GitHub Actions entries pinned to a
	// 40-hex commit sha with a trailing "# vX.Y.Z" comment. When set,
	// it replaces VersionSpec for matching purposes while Range still
	// covers the commit sha text.
	CommentedVersion string
}

// EffectiveVersionSpec returns the spec used for matching: the comment-
// derived version for GitHub Actions sha pins, otherwise VersionSpec.
func (e PackageEntry) EffectiveVersionSpec() string {
	if e.CommentedVersion != "" {
		return e.CommentedVersion
	}
	return e.VersionSpec
}

// PackageVersions is the ordered, ascending-publish-order list of
// version strings held for one (kind, name) pair, plus any dist-tags.
type PackageVersions struct {
	Versions []string
	DistTags map[string]string
}

// CompareStatus is the tag of a CompareResult.
type CompareStatus string

const (
	StatusLatest   CompareStatus = "latest"
	StatusOutdated CompareStatus = "outdated"
	StatusNewer    CompareStatus = "newer"
	StatusNotFound CompareStatus = "not_found"
	StatusInvalid  CompareStatus = "invalid"
)

// CompareResult is what a matcher produces for one PackageEntry given
// the cached version list.
type CompareResult struct {
	Status CompareStatus
	Latest string // populated for Outdated and Newer
}

// ParseErrorKind classifies why a parser gave up on (part of) a document.
type ParseErrorKind string

const (
	InvalidSyntax      ParseErrorKind = "invalid_syntax"
	UnsupportedFeature ParseErrorKind = "unsupported_feature"
	InternalError      ParseErrorKind = "internal_error"
)

// ParseError is the only error type parsers are allowed to return. It
// never aborts the whole document: parsers recover at the next
// top-level structure and return whatever entries were extractable
// alongside it.
type ParseError struct {
	Kind    ParseErrorKind
	Message string
}

func (e *ParseError) Error() string {
	return string(e.Kind) + ": " + e.Message
}
