// Package fingerprint computes the deterministic cache key for a task,
// per spec.md §4.1: a hex-encoded 16-byte BLAKE2b digest of a fixed-order
// concatenation of matched input file digests, invariant-command stdout,
// named environment variable values, and the verbatim config bytes.
package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/crypto/blake2b"

	"forge/internal/config"
)

// Fingerprint is the hex-encoded cache key for a task's inputs.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// ErrInputAccess reports a failure reading an input file or running an
// invariant command (spec.md §7 InputAccessError).
var ErrInputAccess = errors.New("input access error")

// Compute derives the Fingerprint for cfg, per spec.md §4.1.
func Compute(cfg *config.TaskConfig) (Fingerprint, error) {
	buf := make([]byte, 0, 4096)

	selectors := cfg.EffectiveFiles()
	for _, sel := range selectors {
		digests, err := hashSelector(sel)
		if err != nil {
			return "", err
		}
		for _, d := range digests {
			buf = append(buf, d...)
		}
	}

	for _, cmd := range cfg.Input.Invariants {
		out, err := runInvariant(cmd)
		if err != nil {
			return "", err
		}
		buf = append(buf, out...)
	}

	for _, name := range cfg.Input.EnvVars {
		if val, ok := os.LookupEnv(name); ok {
			buf = append(buf, []byte(val)...)
		}
	}

	buf = append(buf, cfg.Bytes...)

	sum := blake2b16(buf)
	return Fingerprint(fmt.Sprintf("%x", sum)), nil
}

// hashSelector walks sel.Root in deterministic (lexicographic) order and
// returns the hex-encoded BLAKE2b digest of each matching regular file's
// content, one entry per file, sorted by full path.
func hashSelector(sel config.Selector) ([][]byte, error) {
	matcher, err := compileFilters(sel.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling filters for %q: %v", ErrInputAccess, sel.Root, err)
	}

	var paths []string
	err = filepath.WalkDir(sel.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			// The cache root is never an input: on a second run it holds the
			// prior run's manifest/logs/archive, which would otherwise get
			// hashed into the very fingerprint that names it, breaking cache
			// idempotence (spec.md §3 CacheDir vs. Selector).
			if d.Name() == config.CacheDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.Match(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: walking %q: %v", ErrInputAccess, sel.Root, err)
	}

	// filepath.WalkDir already visits directory entries in lexicographic
	// order per directory, but an explicit sort of the full path list makes
	// the ordering guarantee (spec.md §4.1 step 2b) independent of that
	// implementation detail.
	sort.Strings(paths)

	digests := make([][]byte, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %q: %v", ErrInputAccess, path, err)
		}
		sum := blake2b16(content)
		digests = append(digests, []byte(fmt.Sprintf("%x", sum)))
	}
	return digests, nil
}

// compileFilters builds a single glob matcher covering any of the filters,
// matching the turborepo filter package's pattern of joining multiple globs
// with gobwas/glob's brace-alternation syntax (cli/internal/util/filter).
func compileFilters(filters []string) (glob.Glob, error) {
	if len(filters) == 0 {
		return noMatch{}, nil
	}
	// No separator argument: like the original tool's globset-based matcher
	// (which defaults to literal_separator=false), "*" is allowed to cross
	// directory boundaries so a selector's filters match recursively under
	// its root, not just files directly inside it.
	if len(filters) == 1 {
		return glob.Compile(filters[0])
	}
	return glob.Compile("{" + strings.Join(filters, ",") + "}")
}

type noMatch struct{}

func (noMatch) Match(string) bool { return false }

func runInvariant(cmd string) ([]byte, error) {
	c := exec.Command("/bin/sh", "-c", cmd)
	out, err := c.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: running invariant %q: %v", ErrInputAccess, cmd, err)
	}
	return out, nil
}

func blake2b16(data []byte) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// Only returns an error for an out-of-range size or bad key; 16 bytes
		// and no key are always valid, so this is unreachable in practice.
		panic(fmt.Sprintf("fingerprint: blake2b.New(16, nil): %v", err))
	}
	h.Write(data)
	return h.Sum(nil)
}
