// Package golangproxy implements the GoProxy matcher: go.mod requires an
// exact module version, so "satisfied" means literal membership and
// "latest" is the semver maximum of the stored version list.
package golangproxy

import (
	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Matcher implements core.Matcher for go.mod require lines. Pseudo-
// versions (vX.X.X-YYYYMMDDHHMMSS-hash) and +incompatible suffixes
// don't always parse as strict semver; when semver parsing fails for
// either side of a comparison this falls back to lexicographic
// ordering, per spec.md §4.2 and SPEC_FULL.md Open Question #2 ("do
// not guess — preserve behavior").
type Matcher struct{}

func (m Matcher) VersionExists(spec string, available []string) bool {
	for _, v := range available {
		if v == spec {
			return true
		}
	}
	return false
}

func (m Matcher) CompareToLatest(current string, available []string, _ map[string]string) core.CompareResult {
	if current == "" {
		return core.CompareResult{Status: core.StatusInvalid}
	}

	found := false
	for _, v := range available {
		if v == current {
			found = true
			break
		}
	}
	if !found {
		return core.CompareResult{Status: core.StatusNotFound}
	}

	latest := latestOf(available)
	if latest == "" {
		return core.CompareResult{Status: core.StatusNotFound}
	}

	switch compareVersions(current, latest) {
	case 0:
		return core.CompareResult{Status: core.StatusLatest}
	case 1:
		return core.CompareResult{Status: core.StatusNewer, Latest: latest}
	default:
		return core.CompareResult{Status: core.StatusOutdated, Latest: latest}
	}
}

// latestOf returns the semver-maximum of available, falling back to the
// lexicographic maximum among entries that don't parse (pseudo-versions,
// +incompatible) when no entry parses as strict semver at all.
func latestOf(available []string) string {
	var maxSemver *semver.Version
	maxSemverStr := ""
	var maxLex string

	for _, v := range available {
		if maxLex == "" || v > maxLex {
			maxLex = v
		}
		parsed, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if maxSemver == nil || parsed.GreaterThan(maxSemver) {
			maxSemver = parsed
			maxSemverStr = v
		}
	}

	if maxSemver != nil {
		return maxSemverStr
	}
	return maxLex
}

// compareVersions returns -1/0/1 for a<b, a==b, a>b. It prefers a semver
// comparison and falls back to lexicographic ordering when either side
// fails to parse, matching how the Go toolchain itself orders pseudo-
// versions (their embedded timestamp sorts correctly as a string).
func compareVersions(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		switch {
		case va.GreaterThan(vb):
			return 1
		case va.LessThan(vb):
			return -1
		default:
			return 0
		}
	}
	if a < b {
		return -1
	}
	return 1
}
