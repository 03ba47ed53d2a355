// Package archiver bundles and restores a task's declared output file
// trees, per spec.md §4.4. Output trees are stored as a single tar file
// per cache entry (output.tar), written and read with the standard
// library's archive/tar (the same package turborepo's cacheitem wraps),
// since the format is plain POSIX tar with no compression or indexing
// need beyond sequential read/write.
package archiver

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/hashicorp/go-hclog"

	"forge/internal/config"
)

// OutputTarFile is the archive name within a task's cache directory.
const OutputTarFile = "output.tar"

// ErrArchive reports a failure building or restoring an output archive.
var ErrArchive = errors.New("archive error")

// Write bundles every file matched by selectors into cacheDir/output.tar,
// selector by selector and sorted by path within each selector, preserving
// each file's mode bits.
func Write(log hclog.Logger, selectors []config.Selector, cacheDir string) error {
	path := filepath.Join(cacheDir, OutputTarFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrArchive, path, err)
	}
	defer func() { _ = f.Close() }()

	tw := tar.NewWriter(f)
	defer func() { _ = tw.Close() }()

	for _, sel := range selectors {
		matcher, err := compileFilters(sel.Filters)
		if err != nil {
			return fmt.Errorf("%w: compiling filters for %q: %v", ErrArchive, sel.Root, err)
		}

		var paths []string
		walkErr := filepath.WalkDir(sel.Root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if matcher.Match(p) {
				paths = append(paths, p)
			}
			return nil
		})
		if walkErr != nil {
			return fmt.Errorf("%w: walking %q: %v", ErrArchive, sel.Root, walkErr)
		}
		sort.Strings(paths)

		for _, p := range paths {
			if err := appendFile(tw, p); err != nil {
				return fmt.Errorf("%w: archiving %q: %v", ErrArchive, p, err)
			}
			log.Debug("archived output file", "path", p)
		}
	}

	return nil
}

func appendFile(tw *tar.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = path

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = io.Copy(tw, f)
	return err
}

// Read ensures every selector's root exists, then restores the output.tar
// in cacheDir over them if present; a missing archive is a legitimate
// no-output task, not an error.
func Read(log hclog.Logger, selectors []config.Selector, cacheDir string) error {
	for _, sel := range selectors {
		if err := os.MkdirAll(sel.Root, 0o755); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrArchive, sel.Root, err)
		}
	}

	path := filepath.Join(cacheDir, OutputTarFile)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no archive found")
			return nil
		}
		return fmt.Errorf("%w: opening %s: %v", ErrArchive, path, err)
	}
	defer func() { _ = f.Close() }()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrArchive, path, err)
		}

		if err := restoreFile(tr, hdr); err != nil {
			return fmt.Errorf("%w: restoring %q: %v", ErrArchive, hdr.Name, err)
		}
		log.Debug("restored output file", "path", hdr.Name, "size", hdr.Size)
	}

	return nil
}

// compileFilters builds a single glob matcher covering any of the filters,
// matching internal/fingerprint's matcher (no separator argument, so "*"
// crosses directory boundaries, mirroring the original tool's globset
// default of literal_separator=false).
func compileFilters(filters []string) (glob.Glob, error) {
	if len(filters) == 0 {
		return noMatch{}, nil
	}
	if len(filters) == 1 {
		return glob.Compile(filters[0])
	}
	return glob.Compile("{" + strings.Join(filters, ",") + "}")
}

type noMatch struct{}

func (noMatch) Match(string) bool { return false }

func restoreFile(tr *tar.Reader, hdr *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(hdr.Name), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(hdr.Name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if err := out.Chmod(os.FileMode(hdr.Mode)); err != nil {
		return err
	}
	_, err = io.Copy(out, tr)
	return err
}
