// Package githubactions implements the GitHub Actions matcher: refs are
// matched by version-component prefix rather than a semver range, so
// "v4" is satisfied by any "v4.*" release tag.
package githubactions

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Matcher implements core.Matcher for `uses: owner/repo@ref`.
type Matcher struct{}

// components splits a ref like "v4.1" into its leading numeric parts
// ([4, 1]), tolerating a leading "v" and rejecting anything that isn't
// a dotted list of non-negative integers (full shas, branch names).
func components(spec string) ([]int, bool) {
	spec = strings.TrimPrefix(spec, "v")
	if spec == "" {
		return nil, false
	}
	parts := strings.Split(spec, ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, true
}

// matchesPrefix reports whether tag's leading components agree with
// spec's (spec may be a strict prefix of tag, e.g. spec=[4] matching
// tag=[4,1,2]).
func matchesPrefix(spec, tag []int) bool {
	if len(spec) > len(tag) {
		return false
	}
	for i, n := range spec {
		if tag[i] != n {
			return false
		}
	}
	return true
}

func (m Matcher) VersionExists(spec string, available []string) bool {
	specParts, ok := components(spec)
	if !ok {
		return false
	}
	for _, v := range available {
		tagParts, ok := components(v)
		if !ok {
			continue
		}
		if matchesPrefix(specParts, tagParts) {
			return true
		}
	}
	return false
}

func (m Matcher) CompareToLatest(current string, available []string, _ map[string]string) core.CompareResult {
	specParts, ok := components(current)
	if !ok {
		return core.CompareResult{Status: core.StatusInvalid}
	}

	latest := latestOf(available)
	if latest == nil {
		return core.CompareResult{Status: core.StatusNotFound}
	}

	var effective *semver.Version
	effectiveTag := ""
	for _, v := range available {
		tagParts, ok := components(v)
		if !ok || !matchesPrefix(specParts, tagParts) {
			continue
		}
		parsed := toSemver(v)
		if parsed == nil {
			continue
		}
		if effective == nil || parsed.GreaterThan(effective) {
			effective = parsed
			effectiveTag = v
		}
	}
	if effective == nil {
		return core.CompareResult{Status: core.StatusNotFound}
	}

	switch {
	case effectiveTag == latest.original:
		return core.CompareResult{Status: core.StatusLatest}
	case effective.GreaterThan(latest.version):
		return core.CompareResult{Status: core.StatusNewer, Latest: latest.original}
	default:
		return core.CompareResult{Status: core.StatusOutdated, Latest: latest.original}
	}
}

type tagged struct {
	version  *semver.Version
	original string
}

func latestOf(available []string) *tagged {
	var max *tagged
	for _, v := range available {
		parsed := toSemver(v)
		if parsed == nil {
			continue
		}
		if max == nil || parsed.GreaterThan(max.version) {
			max = &tagged{version: parsed, original: v}
		}
	}
	return max
}

// toSemver pads bare component prefixes ("v4", "v4.1") out to a full
// semver string so Masterminds/semver can order them against full tags
// like "v4.1.2".
func toSemver(tag string) *semver.Version {
	parts, ok := components(tag)
	if !ok {
		return nil
	}
	for len(parts) < 3 {
		parts = append(parts, 0)
	}
	padded := make([]string, len(parts))
	for i, n := range parts {
		padded[i] = strconv.Itoa(n)
	}
	v, err := semver.NewVersion(strings.Join(padded, "."))
	if err != nil {
		return nil
	}
	return v
}
