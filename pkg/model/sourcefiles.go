package model

import "fmt"

// SourceFileGroup names a set of glob patterns plus references to
// other groups, composed together when C4 resolves the group's
// tracked-file listing (spec.md 4.3).
type SourceFileGroup struct {
	// Patterns are glob patterns relative to the repository root.
	Patterns []string `yaml:"patterns,omitempty" json:"patterns,omitempty" jsonschema:"description=Glob patterns relative to the repository root"`

	// Refs names other SourceFileGroups to union in.
	Refs []string `yaml:"refs,omitempty" json:"refs,omitempty" jsonschema:"description=Other source file groups to include"`
}

// DetectCycle walks a name's Refs transitively and reports the first
// cycle found, mirroring the DFS-with-recursion-stack technique the
// teacher's graph package uses for dependency cycles
// (internal/graph/dependency.go DetectCycles).
func DetectCycle(groups map[string]*SourceFileGroup, start string) []string {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	var path []string

	var dfs func(name string) []string
	dfs = func(name string) []string {
		visited[name] = true
		stack[name] = true
		path = append(path, name)

		g := groups[name]
		if g != nil {
			for _, ref := range g.Refs {
				if !visited[ref] {
					if cyc := dfs(ref); cyc != nil {
						return cyc
					}
				} else if stack[ref] {
					for i, n := range path {
						if n == ref {
							cyc := make([]string, len(path)-i)
							copy(cyc, path[i:])
							return cyc
						}
					}
				}
			}
		}

		path = path[:len(path)-1]
		stack[name] = false
		return nil
	}

	return dfs(start)
}

// ValidateSourceFileGroups checks every Refs entry resolves and no
// group reaches a cycle through its references.
func ValidateSourceFileGroups(groups map[string]*SourceFileGroup) error {
	for name, g := range groups {
		for _, ref := range g.Refs {
			if _, ok := groups[ref]; !ok {
				return fmt.Errorf("source file group %q references unknown group %q", name, ref)
			}
		}
	}
	for name := range groups {
		if cyc := DetectCycle(groups, name); cyc != nil {
			return fmt.Errorf("source file group reference cycle: %v", cyc)
		}
	}
	return nil
}
