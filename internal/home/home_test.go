package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultsToUserHome(t *testing.T) {
	d, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	userHome, _ := os.UserHomeDir()
	if d.Path() != filepath.Join(userHome, DefaultDirName) {
		t.Errorf("Path() = %q", d.Path())
	}
}

func TestDirLayout(t *testing.T) {
	root := t.TempDir()
	d, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if d.DefraDataPath() != filepath.Join(root, "defradb") {
		t.Errorf("DefraDataPath() = %q", d.DefraDataPath())
	}
	if d.ConfigPath() != filepath.Join(root, "config.yaml") {
		t.Errorf("ConfigPath() = %q", d.ConfigPath())
	}
	if d.PidPath() != filepath.Join(root, "scrapetab.pid") {
		t.Errorf("PidPath() = %q", d.PidPath())
	}
}

func TestEnsureExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fresh")
	d, _ := New(root)

	if d.Exists() {
		t.Fatal("directory should not exist yet")
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	if !d.Exists() {
		t.Error("directory should exist")
	}
	if _, err := os.Stat(d.DefraDataPath()); err != nil {
		t.Errorf("defra data directory missing: %v", err)
	}
	if d.ConfigExists() {
		t.Error("config file should not exist yet")
	}

	// Idempotent.
	if err := d.EnsureExists(); err != nil {
		t.Errorf("second EnsureExists() error = %v", err)
	}
}
