package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrConfigNotFound reports that no "<task>.toml" file exists for a task name.
var ErrConfigNotFound = errors.New("config not found")

// ErrConfigParse reports a malformed or schema-mismatched TOML document.
var ErrConfigParse = errors.New("config parse error")

// Loader finds and parses task configuration files in a working directory.
type Loader struct {
	Dir string
}

// NewLoader creates a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Load reads and parses "<name>.toml" from the loader's directory.
//
// Returns ErrConfigNotFound if the file is absent, ErrConfigParse if the TOML
// is malformed or doesn't match the TaskConfig schema.
func (l *Loader) Load(name string) (*TaskConfig, error) {
	path := filepath.Join(l.Dir, name+".toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg TaskConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigParse, path, err)
	}
	cfg.ID = name
	cfg.Bytes = data

	return &cfg, nil
}

// Discover finds every "*.toml" file directly in the loader's directory and
// parses it, for the zero-argument task-listing CLI path (spec.md §6,
// supplemented from original_source/src/config_file.rs::find_all).
//
// Parse failures for individual files are skipped rather than aborting the
// whole listing, matching the original tool's tolerant discovery.
func (l *Loader) Discover() ([]*TaskConfig, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".toml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
		}
	}
	sort.Strings(names)

	configs := make([]*TaskConfig, 0, len(names))
	for _, name := range names {
		cfg, err := l.Load(name)
		if err != nil {
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}
