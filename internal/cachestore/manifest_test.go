package cachestore

import (
	"path/filepath"
	"testing"

	"forge/internal/config"
	"forge/internal/fingerprint"
)

func TestWriteThenRead_RoundTrips(t *testing.T) {
	root := t.TempDir()
	hash := fingerprint.Fingerprint("abc123")
	cfg := &config.TaskConfig{ID: "build", Bytes: []byte(`run = "echo hi"`)}

	m := NewManifest(hash, cfg)
	dir, err := Write(root, m)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if dir != filepath.Join(root, string(hash)) {
		t.Errorf("dir = %q", dir)
	}

	gotDir, gotManifest, found, err := Read(root, hash)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !found {
		t.Fatalf("Read: expected found")
	}
	if gotDir != dir {
		t.Errorf("gotDir = %q, want %q", gotDir, dir)
	}
	if gotManifest.Hash != hash {
		t.Errorf("Hash = %q, want %q", gotManifest.Hash, hash)
	}
	if gotManifest.Config == nil || gotManifest.Config.ID != cfg.ID {
		t.Errorf("Config = %+v, want ID %q", gotManifest.Config, cfg.ID)
	}
	if string(gotManifest.Config.Bytes) != string(cfg.Bytes) {
		t.Errorf("Config.Bytes = %q, want %q", gotManifest.Config.Bytes, cfg.Bytes)
	}
}

func TestRead_MissingManifestIsMissNotError(t *testing.T) {
	root := t.TempDir()
	_, m, found, err := Read(root, fingerprint.Fingerprint("nope"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if found || m != nil {
		t.Errorf("expected a clean miss, got found=%v m=%v", found, m)
	}
}

func TestRead_MalformedManifestIsError(t *testing.T) {
	root := t.TempDir()
	hash := fingerprint.Fingerprint("broken")
	dir, err := EnsureDir(root, hash)
	if err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, manifestFile), []byte("not json"), 0o644); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}

	_, _, _, err = Read(root, hash)
	if err == nil {
		t.Fatal("expected an error for malformed manifest.json")
	}
}
