package hashsum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/cigenhq/cigen/pkg/model"
)

func writeTestFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHashJobDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a")
	writeTestFile(t, root, "b.go", "package b")

	job := &model.Job{ID: "build", Image: "golang:1.23"}

	d1, err := HashJob(context.Background(), root, job, []string{"a.go", "b.go"}, "ci", "amd64")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	d2, err := HashJob(context.Background(), root, job, []string{"b.go", "a.go"}, "ci", "amd64")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if d1 != d2 {
		t.Errorf("hash should be independent of input file order: %s != %s", d1, d2)
	}
}

func TestHashJobChangesWithContent(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a")
	job := &model.Job{ID: "build"}

	before, err := HashJob(context.Background(), root, job, []string{"a.go"}, "ci", "amd64")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	writeTestFile(t, root, "a.go", "package a // changed")
	after, err := HashJob(context.Background(), root, job, []string{"a.go"}, "ci", "amd64")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if before == after {
		t.Error("expected hash to change when file content changes")
	}
}

func TestChecksumFilesIsOrderSensitive(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a")
	writeTestFile(t, root, "b.go", "package b")

	forward, err := ChecksumFiles(context.Background(), root, []string{"a.go", "b.go"})
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	reverse, err := ChecksumFiles(context.Background(), root, []string{"b.go", "a.go"})
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if forward == reverse {
		t.Error("checksum must depend on declaration order, per spec.md 4.4 step 4")
	}
	if len(forward) != 64 {
		t.Errorf("checksum must be the full 64 hex chars, got %d: %s", len(forward), forward)
	}
}

func TestChecksumFilesIsSingleShaOverConcatenatedContent(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a")
	writeTestFile(t, root, "b.go", "package b")

	got, err := ChecksumFiles(context.Background(), root, []string{"a.go", "b.go"})
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}

	h := sha256.New()
	h.Write([]byte("package a"))
	h.Write([]byte("package b"))
	want := hex.EncodeToString(h.Sum(nil))

	if got != want {
		t.Errorf("got %s, want %s (sha256 of raw concatenated contents)", got, want)
	}
}

func TestHashJobChangesWithArch(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.go", "package a")
	job := &model.Job{ID: "build"}

	amd64, err := HashJob(context.Background(), root, job, []string{"a.go"}, "ci", "amd64")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	arm64, err := HashJob(context.Background(), root, job, []string{"a.go"}, "ci", "arm64")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if amd64 == arm64 {
		t.Error("expected hash to differ by architecture")
	}
}
