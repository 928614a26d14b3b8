package golangproxy

import (
	"testing"

	"github.com/git-pkgs/version-lsp/internal/core"
)

func TestMatcher_VersionExists_ExactMembership(t *testing.T) {
	m := Matcher{}
	if !m.VersionExists("v1.2.3", []string{"v1.0.0", "v1.2.3"}) {
		t.Error("exact member should exist")
	}
	if m.VersionExists("v1.2.4", []string{"v1.0.0", "v1.2.3"}) {
		t.Error("non-member should not exist")
	}
}

func TestMatcher_CompareToLatest_Outdated(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("v1.0.0", []string{"v1.0.0", "v1.2.3"}, nil)
	if result.Status != core.StatusOutdated || result.Latest != "v1.2.3" {
		t.Errorf("result = %+v", result)
	}
}

func TestMatcher_CompareToLatest_NotFoundWhenCurrentMissing(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("v9.9.9", []string{"v1.0.0"}, nil)
	if result.Status != core.StatusNotFound {
		t.Errorf("result = %+v, want StatusNotFound", result)
	}
}

func TestMatcher_CompareToLatest_IncompatibleSuffix(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("v2.0.0+incompatible", []string{"v2.0.0+incompatible", "v2.1.0+incompatible"}, nil)
	if result.Status != core.StatusOutdated || result.Latest != "v2.1.0+incompatible" {
		t.Errorf("result = %+v", result)
	}
}

func TestMatcher_CompareToLatest_PseudoVersionLexicographicFallback(t *testing.T) {
	m := Matcher{}
	older := "v0.0.0-20200101000000-abcdef123456"
	newer := "v0.0.0-20210101000000-fedcba654321"
	result := m.CompareToLatest(older, []string{older, newer}, nil)
	if result.Status != core.StatusOutdated || result.Latest != newer {
		t.Errorf("result = %+v, want Outdated with Latest=%q", result, newer)
	}
}

func TestMatcher_CompareToLatest_EmptySpecInvalid(t *testing.T) {
	m := Matcher{}
	result := m.CompareToLatest("", []string{"v1.0.0"}, nil)
	if result.Status != core.StatusInvalid {
		t.Errorf("result = %+v, want StatusInvalid", result)
	}
}
