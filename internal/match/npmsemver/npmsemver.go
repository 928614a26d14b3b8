// Package npmsemver implements the shared SemVer-range matching rules
// used by Npm, Jsr, and (via delegation) PnpmCatalog entries.
package npmsemver

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Matcher implements core.Matcher for npm-style ranges.
type Matcher struct {
	// IgnorePrerelease excludes pre-release versions from satisfaction
	// and latest-selection, falling back to including them if that
	// would leave no candidates.
	IgnorePrerelease bool
}

func (m Matcher) VersionExists(spec string, available []string) bool {
	if tag, ok := trimDistTagMarker(spec); ok {
		_ = tag
		// Dist-tag resolution needs the tag map; VersionExists alone
		// (given only the stored version list) can't resolve it, so a
		// bare dist-tag spec is treated as unsatisfied here. Callers
		// that have dist-tags available use CompareToLatest instead.
		return false
	}

	constraint, err := semver.NewConstraint(spec)
	if err != nil {
		return false
	}

	for _, v := range candidates(available, m.IgnorePrerelease) {
		if constraint.Check(v) {
			return true
		}
	}
	return false
}

// CompareToLatest implements the shared CompareResult rule from
// spec.md §4.2, including dist-tag resolution (distTags may be nil for
// ecosystems, like Jsr, that don't have them). The current spec is
// represented by the lowest candidate version it admits, so a range
// whose floor is below the latest version reports Outdated.
func (m Matcher) CompareToLatest(current string, available []string, distTags map[string]string) core.CompareResult {
	cands := candidates(available, m.IgnorePrerelease)
	latest := latestOf(cands)

	if dtVersion, isDistTag := resolveDistTag(current, distTags); isDistTag {
		if dtVersion == "" {
			return core.CompareResult{Status: core.StatusNotFound}
		}
		current = dtVersion
	}

	constraint, err := semver.NewConstraint(current)
	if err != nil {
		return core.CompareResult{Status: core.StatusInvalid}
	}

	var effective *semver.Version
	for _, v := range cands {
		if constraint.Check(v) {
			if effective == nil || v.LessThan(effective) {
				effective = v
			}
		}
	}
	if effective == nil {
		return core.CompareResult{Status: core.StatusNotFound}
	}
	if latest == nil {
		return core.CompareResult{Status: core.StatusNotFound}
	}

	switch {
	case effective.Equal(latest):
		return core.CompareResult{Status: core.StatusLatest}
	case effective.GreaterThan(latest):
		return core.CompareResult{Status: core.StatusNewer, Latest: latest.Original()}
	default:
		return core.CompareResult{Status: core.StatusOutdated, Latest: latest.Original()}
	}
}

// resolveDistTag reports whether spec names a dist-tag rather than a
// version range, and if so, the version it currently resolves to
// (empty if unresolved).
func resolveDistTag(spec string, distTags map[string]string) (version string, isDistTag bool) {
	if distTags == nil {
		return "", false
	}
	if v, ok := distTags[spec]; ok {
		return v, true
	}
	// Any bare identifier that isn't a valid semver constraint and isn't
	// a known tag is still treated as an (unresolved) dist-tag
	// reference per spec.md §4.2's "if unresolved, NotFound" rule,
	// except for the handful of wildcard-only specs that already parse.
	if _, err := semver.NewConstraint(spec); err != nil && !strings.ContainsAny(spec, "^~<>=|*xX0123456789") {
		return "", true
	}
	return "", false
}

func trimDistTagMarker(spec string) (string, bool) {
	if _, err := semver.NewConstraint(spec); err == nil {
		return "", false
	}
	if strings.ContainsAny(spec, "^~<>=|*xX0123456789") {
		return "", false
	}
	return spec, true
}

func candidates(available []string, ignorePrerelease bool) []*semver.Version {
	parsed := make([]*semver.Version, 0, len(available))
	for _, s := range available {
		v, err := semver.NewVersion(s)
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}

	if !ignorePrerelease {
		return parsed
	}

	stable := make([]*semver.Version, 0, len(parsed))
	for _, v := range parsed {
		if v.Prerelease() == "" {
			stable = append(stable, v)
		}
	}
	if len(stable) == 0 {
		return parsed
	}
	return stable
}

func latestOf(versions []*semver.Version) *semver.Version {
	var max *semver.Version
	for _, v := range versions {
		if max == nil || v.GreaterThan(max) {
			max = v
		}
	}
	return max
}
