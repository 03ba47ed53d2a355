// Package cachestore reads and writes the on-disk cache manifest, per
// spec.md §4.2. Each fingerprint owns a directory under the cache root
// holding manifest.json plus whatever the PTY runner and archiver add
// alongside it (log files, output.tar).
package cachestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"forge/internal/config"
	"forge/internal/fingerprint"
)

// CacheRoot is the cache directory name, a spec invariant independent of
// the product name (original_source/src/cache.rs::CACHE_DIR). Defined in
// internal/config so internal/fingerprint can exclude it from input walks
// without importing internal/cachestore (which itself imports fingerprint).
const CacheRoot = config.CacheDirName

const manifestFile = "manifest.json"

// ErrCacheIO reports a failure reading or writing cache state that is not
// a plain cache miss (spec.md §7 CacheIOError).
var ErrCacheIO = errors.New("cache I/O error")

// Manifest records the provenance of a cached task result. Config holds the
// parsed TaskConfig record itself (spec.md §3/§6: `config: <the original
// TaskConfig>`), matching original_source/src/cache.rs::Manifest's
// `config: Config` field, not just its source bytes.
type Manifest struct {
	Created time.Time               `json:"created"`
	Hash    fingerprint.Fingerprint `json:"hash"`
	Config  *config.TaskConfig      `json:"config"`
}

// NewManifest builds a Manifest for a task about to be cached under hash.
func NewManifest(hash fingerprint.Fingerprint, cfg *config.TaskConfig) *Manifest {
	return &Manifest{
		Created: time.Now(),
		Hash:    hash,
		Config:  cfg,
	}
}

// Dir returns the cache directory for a fingerprint, <root>/<fingerprint>/.
func Dir(root string, hash fingerprint.Fingerprint) string {
	return filepath.Join(root, string(hash))
}

// EnsureDir creates the cache directory for hash, returning its path.
func EnsureDir(root string, hash fingerprint.Fingerprint) (string, error) {
	dir := Dir(root, hash)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrCacheIO, dir, err)
	}
	return dir, nil
}

// Write materializes manifest.json in the cache directory for m.Hash,
// creating the directory if necessary, and returns the directory path.
func Write(root string, m *Manifest) (string, error) {
	dir, err := EnsureDir(root, m.Hash)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshaling manifest: %v", ErrCacheIO, err)
	}

	path := filepath.Join(dir, manifestFile)
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: writing %s: %v", ErrCacheIO, path, err)
	}
	return dir, nil
}

// Read looks up the manifest for hash. found is false on a plain cache
// miss (no manifest.json yet); a malformed manifest is an error, not a
// miss, per spec.md §4.2.
func Read(root string, hash fingerprint.Fingerprint) (dir string, m *Manifest, found bool, err error) {
	dir = Dir(root, hash)
	path := filepath.Join(dir, manifestFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dir, nil, false, nil
		}
		return "", nil, false, fmt.Errorf("%w: reading %s: %v", ErrCacheIO, path, err)
	}

	var parsed Manifest
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", nil, false, fmt.Errorf("%w: parsing %s: %v", ErrCacheIO, path, err)
	}
	return dir, &parsed, true, nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// partial manifest at the canonical path (grounded on the teacher's
// internal/core/cache.go::writeFileAtomic).
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
