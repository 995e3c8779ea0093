package plugin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCacheDirForIsStableAndCollisionFree(t *testing.T) {
	a, err := cacheDirFor("ghcr.io/acme/cigen-gitlab-plugin:v1")
	if err != nil {
		t.Fatalf("cacheDirFor: %v", err)
	}
	b, err := cacheDirFor("ghcr.io/acme/cigen-gitlab-plugin:v1")
	if err != nil {
		t.Fatalf("cacheDirFor: %v", err)
	}
	if a != b {
		t.Fatalf("expected the same image ref to map to the same directory, got %q and %q", a, b)
	}

	c, err := cacheDirFor("ghcr.io/acme/cigen-gitlab-plugin:v2")
	if err != nil {
		t.Fatalf("cacheDirFor: %v", err)
	}
	if a == c {
		t.Fatalf("expected distinct image refs to map to distinct directories")
	}

	if filepath.Base(filepath.Dir(a)) != "cigen" {
		t.Fatalf("expected cache dir to live under a cigen/plugins parent, got %q", a)
	}
}

func TestExistingBinaryFindsExecutableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable-bit semantics differ on windows")
	}

	dir := t.TempDir()
	if _, ok := existingBinary(dir); ok {
		t.Fatalf("expected no binary in an empty directory")
	}

	plain := filepath.Join(dir, "README.md")
	if err := os.WriteFile(plain, []byte("hi"), 0o644); err != nil {
		t.Fatalf("writing plain file: %v", err)
	}
	if _, ok := existingBinary(dir); ok {
		t.Fatalf("expected a non-executable file to be ignored")
	}

	bin := filepath.Join(dir, "plugin-binary")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing executable file: %v", err)
	}
	got, ok := existingBinary(dir)
	if !ok || got != bin {
		t.Fatalf("expected to find %q, got %q (ok=%v)", bin, got, ok)
	}
}

func TestResolveOCIRefRejectsEmptyImage(t *testing.T) {
	if _, err := ResolveOCIRef(context.Background(), "oci://"); err == nil {
		t.Fatal("expected an error for an oci_ref with no image")
	}
}
