// Package taskrun orchestrates a single task's execution: fingerprint its
// inputs, probe the manifest store for a cached result, and either replay
// that result or run the command and capture a new one, per spec.md §4.5.
package taskrun

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"forge/internal/archiver"
	"forge/internal/cachestore"
	"forge/internal/config"
	"forge/internal/fingerprint"
	"forge/internal/ptyrun"
	"forge/internal/reporter"
)

// Executor runs one task at a time against a shared cache root.
type Executor struct {
	CacheRoot string
	Log       hclog.Logger
	Report    *reporter.Reporter
}

// New creates an Executor rooted at cacheRoot (spec.md's ".boost" directory).
func New(cacheRoot string, log hclog.Logger, report *reporter.Reporter) *Executor {
	return &Executor{CacheRoot: cacheRoot, Log: log, Report: report}
}

// Run executes cfg per spec.md §4.5: compute its fingerprint, probe the
// manifest store, and replay a hit or run-and-capture a miss.
func (e *Executor) Run(cfg *config.TaskConfig) error {
	start := time.Now()
	log := e.Report.TaskLabel(cfg.ID)

	description := cfg.Description
	if description == "" {
		description = "<no description>"
	}
	log("using config %q", description)

	fp, err := fingerprint.Compute(cfg)
	if err != nil {
		return fmt.Errorf("task %s: %w", cfg.ID, err)
	}

	cacheDir, manifest, found, err := cachestore.Read(e.CacheRoot, fp)
	if err != nil {
		return fmt.Errorf("task %s: %w", cfg.ID, err)
	}

	if found {
		if err := e.replay(cfg, cacheDir, manifest, log); err != nil {
			return fmt.Errorf("task %s: %w", cfg.ID, err)
		}
	} else {
		if err := e.execute(cfg, fp, log); err != nil {
			return fmt.Errorf("task %s: %w", cfg.ID, err)
		}
	}

	log("finished %s, in %s", cfg.ID, reporter.FormatDuration(time.Since(start)))
	return nil
}

func (e *Executor) replay(cfg *config.TaskConfig, cacheDir string, manifest *cachestore.Manifest, log func(string, ...any)) error {
	ago := reporter.FormatDuration(time.Since(manifest.Created))
	log("found local cache from %s ago, reprinting output...", ago)

	colorsPath := filepath.Join(cacheDir, ptyrun.ColorsFile)
	data, err := os.ReadFile(colorsPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", colorsPath, err)
	}
	fmt.Print(string(data))

	if cfg.Output != nil {
		return archiver.Read(e.Log, cfg.Output.Files, cacheDir)
	}
	return nil
}

func (e *Executor) execute(cfg *config.TaskConfig, fp fingerprint.Fingerprint, log func(string, ...any)) error {
	log("no cache found, executing %q", cfg.Run)

	// The cache directory for the log files exists as soon as a run starts;
	// manifest.json is written only after the command exits 0, so a failed
	// run leaves a clean miss behind, not a poisoned replay.
	cacheDir, err := cachestore.EnsureDir(e.CacheRoot, fp)
	if err != nil {
		return err
	}

	if err := ptyrun.Run(e.Log, cfg.Run, ".", cacheDir); err != nil {
		return err
	}

	if cfg.Output != nil {
		if err := archiver.Write(e.Log, cfg.Output.Files, cacheDir); err != nil {
			return err
		}
	}

	manifest := cachestore.NewManifest(fp, cfg)
	if _, err := cachestore.Write(e.CacheRoot, manifest); err != nil {
		return err
	}
	return nil
}
