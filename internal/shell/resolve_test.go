package shell_test

import (
	"os"
	"path/filepath"
	"testing"

	"mkinitbench/internal/shell"
)

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.conf")
	if err := os.WriteFile(path, []byte("x=1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	gotDir, gotFile, err := shell.ResolveFile(path)
	if err != nil {
		t.Fatalf("ResolveFile: %v", err)
	}
	if gotFile != "data.conf" {
		t.Fatalf("file = %q, want %q", gotFile, "data.conf")
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	if gotDir != resolved {
		t.Fatalf("dir = %q, want %q", gotDir, resolved)
	}
}

func TestResolveFileFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.conf")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	link := filepath.Join(dir, "link.conf")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	_, gotFile, err := shell.ResolveFile(link)
	if err != nil {
		t.Fatalf("ResolveFile: %v", err)
	}
	if gotFile != "target.conf" {
		t.Fatalf("file = %q, want %q", gotFile, "target.conf")
	}
}

func TestResolveFileRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := shell.ResolveFile(dir); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestResolveFileMissing(t *testing.T) {
	if _, _, err := shell.ResolveFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
