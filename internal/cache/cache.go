// Package cache implements the persistent version cache described in
// spec.md §4.4: one SQLite database recording, per (registry kind,
// package name), the known versions and dist-tags, when they were last
// refreshed, and whether a fetch is currently in flight for them.
//
// modernc.org/sqlite is a pure-Go driver, so the binary this package
// ships in needs no cgo toolchain - grounded on chrisae9-docksmith's use
// of the same driver for its own local cache.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/git-pkgs/version-lsp/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	registry_type  TEXT NOT NULL,
	package_name   TEXT NOT NULL,
	updated_at     INTEGER NOT NULL,
	fetching_since INTEGER,
	UNIQUE(registry_type, package_name)
);
CREATE INDEX IF NOT EXISTS idx_packages_updated_at ON packages(updated_at);
CREATE INDEX IF NOT EXISTS idx_packages_lookup ON packages(registry_type, package_name);

CREATE TABLE IF NOT EXISTS versions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
	version    TEXT NOT NULL,
	UNIQUE(package_id, version)
);

CREATE TABLE IF NOT EXISTS dist_tags (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
	tag_name   TEXT NOT NULL,
	version    TEXT NOT NULL,
	UNIQUE(package_id, tag_name)
);
`

// StorageError wraps a failure talking to the underlying database.
// Cache callers treat it the same as a cache miss: log and move on,
// never surface it as an LSP-visible error (spec.md §7).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("cache: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// PackageRef names one (kind, name) pair in the cache.
type PackageRef struct {
	Kind core.RegistryKind
	Name string
}

// Cache is a single SQLite-backed store shared by every RegistryKind.
// Reads run concurrently; writes are serialized through writeMu, since
// the teacher has no precedent for a multi-writer SQLite setup and
// WAL mode's single-writer model is the simplest correct one here.
type Cache struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open tries each candidate path in turn (see CandidatePaths) and
// returns the first one it can create and migrate. Per spec.md §7,
// failing to open any candidate is the one condition that should fail
// server initialization outright.
func Open() (*Cache, error) {
	var lastErr error
	for _, path := range CandidatePaths() {
		c, err := openAt(path)
		if err == nil {
			return c, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("cache: no writable path among candidates: %w", lastErr)
}

// CandidatePaths returns the cache file locations to try, in order:
// $XDG_DATA_HOME/version-lsp/versions.db, then
// ~/.local/share/version-lsp/versions.db, then ./version-lsp/versions.db.
func CandidatePaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "version-lsp", "versions.db"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".local", "share", "version-lsp", "versions.db"))
	}
	paths = append(paths, filepath.Join("version-lsp", "versions.db"))
	return paths
}

// OpenAt opens (creating and migrating if necessary) the cache at an
// exact path, bypassing CandidatePaths. Tests use this to get an
// isolated, tempdir-backed database per the teacher's test-tooling
// convention of never sharing state across subtests.
func OpenAt(path string) (*Cache, error) {
	return openAt(path)
}

func openAt(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Op: "mkdir", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "pragma", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, &StorageError{Op: "migrate", Err: err}
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) packageID(ctx context.Context, kind core.RegistryKind, name string) (int64, bool, error) {
	var id int64
	err := c.db.QueryRowContext(ctx,
		`SELECT id FROM packages WHERE registry_type = ? AND package_name = ?`,
		string(kind), name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, &StorageError{Op: "packageID", Err: err}
	}
	return id, true, nil
}

// RowExists reports whether a package row exists at all, the same test
// as GetVersions' found flag without loading the version list: a
// package that was just discovered by a parser and never fetched has no
// row, whereas one mid-fetch has a row with fetching_since set but
// still zero versions.
func (c *Cache) RowExists(ctx context.Context, kind core.RegistryKind, name string) (bool, error) {
	_, ok, err := c.packageID(ctx, kind, name)
	return ok, err
}

// GetVersions returns the cached version list for (kind, name), in
// insertion order (oldest fetch-observed first), and whether a row was
// found at all. No row means "never fetched" - callers treat that as a
// cache miss and suppress diagnostics for the entry (spec.md §4.5).
func (c *Cache) GetVersions(ctx context.Context, kind core.RegistryKind, name string) (core.PackageVersions, bool, error) {
	id, ok, err := c.packageID(ctx, kind, name)
	if err != nil || !ok {
		return core.PackageVersions{}, ok, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT version FROM versions WHERE package_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return core.PackageVersions{}, false, &StorageError{Op: "getVersions", Err: err}
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return core.PackageVersions{}, false, &StorageError{Op: "getVersions", Err: err}
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return core.PackageVersions{}, false, &StorageError{Op: "getVersions", Err: err}
	}

	tags, err := c.distTags(ctx, id)
	if err != nil {
		return core.PackageVersions{}, false, err
	}

	return core.PackageVersions{Versions: versions, DistTags: tags}, true, nil
}

func (c *Cache) distTags(ctx context.Context, packageID int64) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT tag_name, version FROM dist_tags WHERE package_id = ?`, packageID)
	if err != nil {
		return nil, &StorageError{Op: "distTags", Err: err}
	}
	defer rows.Close()

	tags := make(map[string]string)
	for rows.Next() {
		var tag, version string
		if err := rows.Scan(&tag, &version); err != nil {
			return nil, &StorageError{Op: "distTags", Err: err}
		}
		tags[tag] = version
	}
	return tags, rows.Err()
}

// VersionExists reports whether a literal version string has been
// observed for (kind, name), a literal membership test that does not
// load the full version list. The matchers do not call it; they work
// from the list GetVersions returns.
func (c *Cache) VersionExists(ctx context.Context, kind core.RegistryKind, name, version string) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM versions v
		JOIN packages p ON p.id = v.package_id
		WHERE p.registry_type = ? AND p.package_name = ? AND v.version = ?`,
		string(kind), name, version,
	).Scan(&n)
	if err != nil {
		return false, &StorageError{Op: "versionExists", Err: err}
	}
	return n > 0, nil
}

// ReplaceVersions records a freshly fetched version set. New versions
// are appended (INSERT OR IGNORE keeps the ascending-publish-order
// history append-only, per spec.md §4.4); dist-tags are upserted since
// "latest" and friends are expected to move. updated_at is stamped and
// fetching_since cleared in the same write.
func (c *Cache) ReplaceVersions(ctx context.Context, kind core.RegistryKind, name string, versions core.PackageVersions) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "replaceVersions", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO packages (registry_type, package_name, updated_at, fetching_since)
		VALUES (?, ?, ?, NULL)
		ON CONFLICT(registry_type, package_name)
		DO UPDATE SET updated_at = excluded.updated_at, fetching_since = NULL`,
		string(kind), name, now,
	)
	if err != nil {
		return &StorageError{Op: "replaceVersions", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		id, _, err = c.txPackageID(ctx, tx, kind, name)
		if err != nil {
			return &StorageError{Op: "replaceVersions", Err: err}
		}
	}

	for _, v := range versions.Versions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO versions (package_id, version) VALUES (?, ?)`, id, v,
		); err != nil {
			return &StorageError{Op: "replaceVersions", Err: err}
		}
	}
	for tag, v := range versions.DistTags {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dist_tags (package_id, tag_name, version) VALUES (?, ?, ?)
			ON CONFLICT(package_id, tag_name) DO UPDATE SET version = excluded.version`,
			id, tag, v,
		); err != nil {
			return &StorageError{Op: "replaceVersions", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "replaceVersions", Err: err}
	}
	return nil
}

func (c *Cache) txPackageID(ctx context.Context, tx *sql.Tx, kind core.RegistryKind, name string) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM packages WHERE registry_type = ? AND package_name = ?`,
		string(kind), name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// GetPackagesNeedingRefresh lists every package whose last update is
// older than refreshInterval, for the background sweep to re-fetch.
func (c *Cache) GetPackagesNeedingRefresh(ctx context.Context, refreshInterval time.Duration) ([]PackageRef, error) {
	cutoff := time.Now().Add(-refreshInterval).UnixMilli()
	rows, err := c.db.QueryContext(ctx,
		`SELECT registry_type, package_name FROM packages WHERE updated_at < ?`, cutoff,
	)
	if err != nil {
		return nil, &StorageError{Op: "getPackagesNeedingRefresh", Err: err}
	}
	defer rows.Close()

	var refs []PackageRef
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return nil, &StorageError{Op: "getPackagesNeedingRefresh", Err: err}
		}
		refs = append(refs, PackageRef{Kind: core.RegistryKind(kind), Name: name})
	}
	return refs, rows.Err()
}

// fetchLockTimeout bounds how long a fetching_since lock is honored
// before a later caller is allowed to retry it, self-healing after a
// crash mid-fetch left a lock stuck (spec.md §4.4).
const fetchLockTimeout = 30 * time.Second

// TryStartFetch atomically claims the right to fetch (kind, name),
// creating the package row if this is its first-ever sighting. It
// returns false if another in-flight fetch already holds a fresh lock.
func (c *Cache) TryStartFetch(ctx context.Context, kind core.RegistryKind, name string) (bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO packages (registry_type, package_name, updated_at, fetching_since)
		VALUES (?, ?, 0, NULL)`,
		string(kind), name,
	); err != nil {
		return false, &StorageError{Op: "tryStartFetch", Err: err}
	}

	now := time.Now().UnixMilli()
	staleBefore := now - fetchLockTimeout.Milliseconds()
	res, err := c.db.ExecContext(ctx, `
		UPDATE packages SET fetching_since = ?
		WHERE registry_type = ? AND package_name = ?
		  AND (fetching_since IS NULL OR fetching_since < ?)`,
		now, string(kind), name, staleBefore,
	)
	if err != nil {
		return false, &StorageError{Op: "tryStartFetch", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &StorageError{Op: "tryStartFetch", Err: err}
	}
	return n > 0, nil
}

// FinishFetch releases the fetch lock without touching updated_at or
// the version tables. Callers that fetched successfully use
// ReplaceVersions instead, which clears the lock as part of its own
// write; FinishFetch is for the failure path.
func (c *Cache) FinishFetch(ctx context.Context, kind core.RegistryKind, name string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.db.ExecContext(ctx,
		`UPDATE packages SET fetching_since = NULL WHERE registry_type = ? AND package_name = ?`,
		string(kind), name,
	); err != nil {
		return &StorageError{Op: "finishFetch", Err: err}
	}
	return nil
}
