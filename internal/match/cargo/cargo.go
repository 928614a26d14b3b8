// Package cargo implements Cargo's version requirement grammar: caret
// by default for bare numbers, plus ~, =, comparators, *, and
// comma-separated AND composition.
package cargo

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Matcher implements core.Matcher for Cargo requirements.
type Matcher struct{}

// translate rewrites one comma-separated Cargo requirement term into
// Masterminds/semver/v3 constraint syntax. The two grammars agree on
// ~, =, comparators, and *; they diverge only on bare partials, which
// Cargo reads as caret requirements and semver/v3 does not, so a bare
// term gets an explicit "^" prefix.
func translate(term string) string {
	term = strings.TrimSpace(term)
	if term == "" || term == "*" {
		return "*"
	}

	switch term[0] {
	case '^', '~', '=', '<', '>':
		return term
	}

	// Bare number: Cargo treats it as caret, with the "first nonzero
	// digit stays fixed" rule already implied by semver/v3's own ^
	// handling for 0.x.y, so a direct caret prefix is sufficient.
	return "^" + term
}

func toConstraint(spec string) (*semver.Constraints, error) {
	var terms []string
	for _, t := range strings.Split(spec, ",") {
		terms = append(terms, translate(t))
	}
	return semver.NewConstraint(strings.Join(terms, ", "))
}

func (m Matcher) VersionExists(spec string, available []string) bool {
	constraint, err := toConstraint(spec)
	if err != nil {
		return false
	}
	for _, s := range available {
		v, err := semver.NewVersion(s)
		if err != nil {
			continue
		}
		if constraint.Check(v) {
			return true
		}
	}
	return false
}

func (m Matcher) CompareToLatest(current string, available []string, _ map[string]string) core.CompareResult {
	var parsed []*semver.Version
	for _, s := range available {
		if v, err := semver.NewVersion(s); err == nil {
			parsed = append(parsed, v)
		}
	}
	var latest *semver.Version
	for _, v := range parsed {
		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	}
	if latest == nil {
		return core.CompareResult{Status: core.StatusNotFound}
	}

	constraint, err := toConstraint(current)
	if err != nil {
		return core.CompareResult{Status: core.StatusInvalid}
	}

	// The requirement is represented by the lowest stored version it
	// admits, so "1.2" reports Outdated once a newer release exists.
	var effective *semver.Version
	for _, v := range parsed {
		if constraint.Check(v) {
			if effective == nil || v.LessThan(effective) {
				effective = v
			}
		}
	}
	if effective == nil {
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
