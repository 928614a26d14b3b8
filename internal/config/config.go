// Package config holds the client-adjustable settings from spec.md §6,
// guarded by a reader-writer lock since writes only ever originate from
// workspace/didChangeConfiguration while every document-event handler
// reads it concurrently.
package config

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/git-pkgs/version-lsp/internal/core"
)

// Registries toggles diagnostic generation per RegistryKind.
type Registries struct {
	Npm         bool `json:"npm"`
	Crates      bool `json:"crates"`
	GoProxy     bool `json:"goProxy"`
	GitHub      bool `json:"github"`
	PnpmCatalog bool `json:"pnpmCatalog"`
	Jsr         bool `json:"jsr"`
}

// Enabled reports whether kind is currently enabled.
func (r Registries) Enabled(kind core.RegistryKind) bool {
	switch kind {
	case core.Npm:
		return r.Npm
	case core.CratesIo:
		return r.Crates
	case core.GoProxy:
		return r.GoProxy
	case core.GitHubActions:
		return r.GitHub
	case core.PnpmCatalog:
		return r.PnpmCatalog
	case core.Jsr:
		return r.Jsr
	default:
		return false
	}
}

// Settings is the value type exchanged over the wire, mirroring the
// "version-lsp:" configuration block in spec.md §6.
type Settings struct {
	CacheRefreshIntervalMS int        `json:"cache.refreshInterval"`
	Registries             Registries `json:"registries"`
	IgnorePrerelease       bool       `json:"ignorePrerelease"`
}

// Defaults returns the settings a fresh server starts with, before any
// workspace/configuration reply or didChangeConfiguration notification
// arrives.
func Defaults() Settings {
	return Settings{
		CacheRefreshIntervalMS: 86_400_000,
		Registries: Registries{
			Npm:         true,
			Crates:      true,
			GoProxy:     true,
			GitHub:      true,
			PnpmCatalog: true,
			Jsr:         true,
		},
		IgnorePrerelease: true,
	}
}

// wireSettings mirrors the dotted-key shape the client actually sends
// ("registries.npm.enabled", etc.) inside workspace/configuration.
type wireSettings struct {
	CacheRefreshInterval int  `json:"cache.refreshInterval"`
	NpmEnabled           bool `json:"registries.npm.enabled"`
	CratesEnabled        bool `json:"registries.crates.enabled"`
	GoProxyEnabled       bool `json:"registries.goProxy.enabled"`
	GitHubEnabled        bool `json:"registries.github.enabled"`
	PnpmCatalogEnabled   bool `json:"registries.pnpmCatalog.enabled"`
	JsrEnabled           bool `json:"registries.jsr.enabled"`
	IgnorePrerelease     bool `json:"ignorePrerelease"`
}

// ParseWire decodes the flat dotted-key document the client sends over
// workspace/configuration or workspace/didChangeConfiguration, applying
// it on top of Defaults() so any key the client omits keeps its default.
func ParseWire(raw json.RawMessage) (Settings, error) {
	w := wireSettingsFromDefaults()
	if err := json.Unmarshal(raw, &w); err != nil {
		return Settings{}, err
	}
	return Settings{
		CacheRefreshIntervalMS: w.CacheRefreshInterval,
		Registries: Registries{
			Npm:         w.NpmEnabled,
			Crates:      w.CratesEnabled,
			GoProxy:     w.GoProxyEnabled,
			GitHub:      w.GitHubEnabled,
			PnpmCatalog: w.PnpmCatalogEnabled,
			Jsr:         w.JsrEnabled,
		},
		IgnorePrerelease: w.IgnorePrerelease,
	}, nil
}

func wireSettingsFromDefaults() wireSettings {
	d := Defaults()
	return wireSettings{
		CacheRefreshInterval: d.CacheRefreshIntervalMS,
		NpmEnabled:           d.Registries.Npm,
		CratesEnabled:        d.Registries.Crates,
		GoProxyEnabled:       d.Registries.GoProxy,
		GitHubEnabled:        d.Registries.GitHub,
		PnpmCatalogEnabled:   d.Registries.PnpmCatalog,
		JsrEnabled:           d.Registries.Jsr,
		IgnorePrerelease:     d.IgnorePrerelease,
	}
}

// RefreshInterval is CacheRefreshIntervalMS as a time.Duration, for
// passing straight into cache.GetPackagesNeedingRefresh.
func (s Settings) RefreshInterval() time.Duration {
	return time.Duration(s.CacheRefreshIntervalMS) * time.Millisecond
}

// Store is the process-wide configuration singleton, read on every
// document event and written only from didChangeConfiguration
// (spec.md §5, "Configuration: read/written under a reader-writer lock").
type Store struct {
	mu       sync.RWMutex
	settings Settings
}

// NewStore returns a Store seeded with Defaults().
func NewStore() *Store {
	return &Store{settings: Defaults()}
}

// Get returns the current settings snapshot.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Apply replaces the current settings wholesale.
func (s *Store) Apply(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}
