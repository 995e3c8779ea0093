package tmpl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandInlineSubstitutesVar(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"Name": "build"})
	out, err := e.ExpandInline("job-{{ Name }}")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out != "job-build" {
		t.Errorf("got %q", out)
	}
}

func TestExpandInlineIf(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"Enabled": true})
	out, err := e.ExpandInline("{% if Enabled %}yes{% else %}no{% endif %}")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out != "yes" {
		t.Errorf("got %q", out)
	}
}

func TestExpandInlineFilters(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"Name": "build"})
	out, err := e.ExpandInline("{{ Name | upper }}")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out != "BUILD" {
		t.Errorf("got %q", out)
	}
}

func TestExpandInlineDefaultFilter(t *testing.T) {
	e := New(t.TempDir(), map[string]any{"Name": ""})
	out, err := e.ExpandInline(`{{ Name | default("fallback") }}`)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out != "fallback" {
		t.Errorf("got %q", out)
	}
}

func TestExpandFileReadsRelativeToRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "version.txt"), []byte("1.2.3"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	e := New(dir, nil)
	out, err := e.ExpandInline(`{{ read "version.txt" }}`)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if out != "1.2.3" {
		t.Errorf("got %q", out)
	}
}

func TestExpandInlineUndefinedVarErrors(t *testing.T) {
	e := New(t.TempDir(), map[string]any{})
	if _, err := e.ExpandInline("{{ Missing }}"); err == nil {
		t.Fatal("expected error for undefined variable")
	}
}

func TestResolveVarsPrecedence(t *testing.T) {
	vars := ResolveVars(
		map[string]string{"Env": "config", "Only": "config"},
		[]string{"CIGEN_VAR_Env=fromenv", "IRRELEVANT=skip"},
		map[string]string{"Env": "cli"},
	)
	if vars["Env"] != "cli" {
		t.Errorf("expected cli to win, got %v", vars["Env"])
	}
	if vars["Only"] != "config" {
		t.Errorf("expected config value preserved, got %v", vars["Only"])
	}
	if _, ok := vars["IRRELEVANT"]; ok {
		t.Error("non CIGEN_VAR_ env entries must not leak in")
	}
}
