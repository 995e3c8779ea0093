package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaultsWithNoConfig(t *testing.T) {
	dir := t.TempDir()
	result, c := Load(dir)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	if result.Config.Providers[0] != "circleci" {
		t.Errorf("expected default provider circleci, got %v", result.Config.Providers)
	}
}

func TestLoadMergesConfigFragments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yml"), `
providers: [circleci, github-actions]
source_file_groups:
  go:
    patterns: ["**/*.go"]
`)
	writeFile(t, filepath.Join(dir, "config", "10-cache.yml"), `
cache_definitions:
  go-mod:
    paths: ["$GOPATH/pkg/mod"]
`)

	result, c := Load(dir)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	if len(result.Config.Providers) != 2 {
		t.Errorf("expected 2 providers, got %v", result.Config.Providers)
	}
	if _, ok := result.Config.SourceFileGroups["go"]; !ok {
		t.Error("expected go source file group from config.yml")
	}
	if _, ok := result.Config.CacheDefinitions["go-mod"]; !ok {
		t.Error("expected go-mod cache definition from fragment")
	}
}

func TestLoadWorkflowsAndJobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yml"), `providers: [circleci]`)
	writeFile(t, filepath.Join(dir, "workflows", "ci", "jobs", "build.yml"), `
image: golang:1.23
steps:
  - run:
      command: go build ./...
`)

	result, c := Load(dir)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	wf, ok := result.Workflows["ci"]
	if !ok {
		t.Fatal("expected ci workflow")
	}
	job, ok := wf.Jobs["build"]
	if !ok {
		t.Fatal("expected build job")
	}
	if job.Image != "golang:1.23" {
		t.Errorf("image = %q", job.Image)
	}
}

func TestResolveReferencesCatchesDanglingRequires(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.yml"), `providers: [circleci]`)
	writeFile(t, filepath.Join(dir, "workflows", "ci", "jobs", "test.yml"), `
image: golang:1.23
requires: [nonexistent]
steps:
  - run:
      command: go test ./...
`)

	result, c := Load(dir)
	if c.HasErrors() {
		t.Fatalf("unexpected load errors: %v", c.Err())
	}

	refs := ResolveReferences(result)
	if !refs.HasErrors() {
		t.Fatal("expected a reference error for dangling requires")
	}
}
