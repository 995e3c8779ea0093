package model

import "testing"

func TestDetectCycleFindsCycle(t *testing.T) {
	groups := map[string]*SourceFileGroup{
		"a": {Refs: []string{"b"}},
		"b": {Refs: []string{"c"}},
		"c": {Refs: []string{"a"}},
	}
	cyc := DetectCycle(groups, "a")
	if cyc == nil {
		t.Fatal("expected cycle to be detected")
	}
}

func TestDetectCycleNoCycle(t *testing.T) {
	groups := map[string]*SourceFileGroup{
		"a": {Refs: []string{"b"}},
		"b": {Patterns: []string{"**/*.go"}},
	}
	if cyc := DetectCycle(groups, "a"); cyc != nil {
		t.Fatalf("expected no cycle, got %v", cyc)
	}
}

func TestValidateSourceFileGroupsRejectsUnknownRef(t *testing.T) {
	groups := map[string]*SourceFileGroup{
		"a": {Refs: []string{"missing"}},
	}
	if err := ValidateSourceFileGroups(groups); err == nil {
		t.Fatal("expected error for unknown ref")
	}
}

func TestValidateSourceFileGroupsRejectsCycle(t *testing.T) {
	groups := map[string]*SourceFileGroup{
		"a": {Refs: []string{"b"}},
		"b": {Refs: []string{"a"}},
	}
	if err := ValidateSourceFileGroups(groups); err == nil {
		t.Fatal("expected error for cycle")
	}
}

func TestValidateSourceFileGroupsOK(t *testing.T) {
	groups := map[string]*SourceFileGroup{
		"go":  {Patterns: []string{"**/*.go"}},
		"all": {Refs: []string{"go"}},
	}
	if err := ValidateSourceFileGroups(groups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
