package npmsemver

import (
	"testing"

	"github.com/git-pkgs/version-lsp/internal/core"
)

func TestMatcher_VersionExists_Caret(t *testing.T) {
	m := Matcher{}
	available := []string{"4.17.0", "4.17.21", "5.0.0"}
	if !m.VersionExists("^4.17.0", available) {
		t.Error("^4.17.0 should be satisfied by 4.17.21")
	}
	if m.VersionExists("^6.0.0", available) {
		t.Error("^6.0.0 should not be satisfied")
	}
}

func TestMatcher_VersionExists_DistTagUnsatisfiedWithoutTagMap(t *testing.T) {
	m := Matcher{}
	if m.VersionExists("latest", []string{"1.0.0"}) {
		t.Error("bare dist-tag specs can't be resolved by VersionExists alone")
	}
}

func TestMatcher_CompareToLatest_Outdated(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("^4.17.0", []string{"4.17.0", "4.17.21"}, nil)
	if result.Status != core.StatusOutdated || result.Latest != "4.17.21" {
		t.Errorf("result = %+v", result)
	}
}

func TestMatcher_CompareToLatest_Latest(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("^4.17.21", []string{"4.17.0", "4.17.21"}, nil)
	if result.Status != core.StatusLatest {
		t.Errorf("result = %+v, want StatusLatest", result)
	}
}

func TestMatcher_CompareToLatest_DistTagResolved(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("latest", []string{"1.0.0", "2.0.0"}, map[string]string{"latest": "1.0.0"})
	if result.Status != core.StatusOutdated || result.Latest != "2.0.0" {
		t.Errorf("result = %+v", result)
	}
}

func TestMatcher_CompareToLatest_UnresolvedDistTag(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("nightly", []string{"1.0.0"}, map[string]string{"latest": "1.0.0"})
	if result.Status != core.StatusNotFound {
		t.Errorf("result = %+v, want StatusNotFound", result)
	}
}

func TestMatcher_CompareToLatest_IgnorePrereleaseFallsBackWhenNoStable(t *testing.T) {
	m := Matcher{IgnorePrerelease: true}
	result := m.CompareToLatest("^1.0.0-beta.1", []string{"1.0.0-beta.1", "1.0.0-beta.2"}, nil)
	if result.Status != core.StatusOutdated || result.Latest != "1.0.0-beta.2" {
		t.Errorf("result = %+v, want fallback to prerelease latest", result)
	}
}

func TestMatcher_CompareToLatest_InvalidSpec(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("not-a-range!!", []string{"1.0.0"}, nil)
	if result.Status != core.StatusInvalid {
		t.Errorf("result = %+v, want StatusInvalid", result)
	}
}
