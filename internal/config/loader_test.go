package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTaskToml(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name+".toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoader_LoadParsesRequiredAndOptionalFields(t *testing.T) {
	dir := t.TempDir()
	writeTaskToml(t, dir, "build", `
description = "builds the thing"
run = "echo hi"

[[depends_on]]
name = "lint"

[input]
invariants = ["date +%Y"]
env_vars = ["FOO"]

[[input.files]]
root = "src"
filters = ["*.go"]

[output]
[[output.files]]
root = "dist"
filters = ["*"]
`)

	loader := NewLoader(dir)
	cfg, err := loader.Load("build")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ID != "build" {
		t.Errorf("ID = %q, want %q", cfg.ID, "build")
	}
	if cfg.Run != "echo hi" {
		t.Errorf("Run = %q", cfg.Run)
	}
	if len(cfg.DependencyNames()) != 1 || cfg.DependencyNames()[0] != "lint" {
		t.Errorf("DependencyNames = %v", cfg.DependencyNames())
	}
	if cfg.Input.Files == nil || len(*cfg.Input.Files) != 1 || (*cfg.Input.Files)[0].Root != "src" {
		t.Errorf("Input.Files = %v", cfg.Input.Files)
	}
	if cfg.Output == nil || len(cfg.Output.Files) != 1 {
		t.Fatalf("Output.Files = %v", cfg.Output)
	}
	if len(cfg.Bytes) == 0 {
		t.Errorf("Bytes should hold the verbatim source")
	}
}

func TestLoader_LoadMissingReturnsConfigNotFound(t *testing.T) {
	loader := NewLoader(t.TempDir())
	_, err := loader.Load("absent")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestLoader_LoadMalformedReturnsConfigParse(t *testing.T) {
	dir := t.TempDir()
	writeTaskToml(t, dir, "broken", "this is not = [ valid toml")

	loader := NewLoader(dir)
	_, err := loader.Load("broken")
	if !errors.Is(err, ErrConfigParse) {
		t.Fatalf("err = %v, want ErrConfigParse", err)
	}
}

func TestTaskConfig_EffectiveFilesDefaultsWhenAbsent(t *testing.T) {
	cfg := &TaskConfig{}
	files := cfg.EffectiveFiles()
	if len(files) != 1 || files[0].Root != "." || files[0].Filters[0] != "*" {
		t.Errorf("EffectiveFiles = %v, want default selector", files)
	}
}

func TestLoader_LoadExplicitEmptyFilesIsDistinctFromAbsent(t *testing.T) {
	dir := t.TempDir()
	writeTaskToml(t, dir, "explicit-empty", `
run = "echo hi"

[input]
files = []
`)
	writeTaskToml(t, dir, "absent", `run = "echo hi"`)

	loader := NewLoader(dir)

	explicit, err := loader.Load("explicit-empty")
	if err != nil {
		t.Fatalf("Load(explicit-empty): %v", err)
	}
	if explicit.Input.Files == nil {
		t.Fatal("explicit `files = []` decoded as absent (nil), want non-nil empty slice")
	}
	if len(*explicit.Input.Files) != 0 {
		t.Errorf("explicit.Input.Files = %v, want empty", *explicit.Input.Files)
	}
	if got := explicit.EffectiveFiles(); len(got) != 0 {
		t.Errorf("EffectiveFiles() = %v, want no selectors for explicit empty files", got)
	}

	absent, err := loader.Load("absent")
	if err != nil {
		t.Fatalf("Load(absent): %v", err)
	}
	if absent.Input.Files != nil {
		t.Errorf("absent.Input.Files = %v, want nil", absent.Input.Files)
	}
	if got := absent.EffectiveFiles(); len(got) != 1 || got[0].Root != "." || len(got[0].Filters) != 1 || got[0].Filters[0] != "*" {
		t.Errorf("EffectiveFiles() = %v, want [DefaultSelector()]", got)
	}
}

func TestLoader_DiscoverFindsAllTomlFilesSorted(t *testing.T) {
	dir := t.TempDir()
	writeTaskToml(t, dir, "zeta", `run = "echo z"`)
	writeTaskToml(t, dir, "alpha", `run = "echo a"`)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(dir)
	configs, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("got %d configs, want 2", len(configs))
	}
	if configs[0].ID != "alpha" || configs[1].ID != "zeta" {
		t.Errorf("Discover order = [%s, %s], want [alpha, zeta]", configs[0].ID, configs[1].ID)
	}
}
