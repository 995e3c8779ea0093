package hashsum

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cigenhq/cigen/pkg/model"
)

// ResolveGroup expands a named source file group's patterns against
// tracked, recursively unioning every group it Refs. The result is
// sorted and deduplicated so two different reference orderings of the
// same groups still hash identically.
func ResolveGroup(groups map[string]*model.SourceFileGroup, name string, tracked []string) ([]string, error) {
	set := make(map[string]bool)
	if err := collectGroup(groups, name, tracked, set, make(map[string]bool)); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// ResolveGroupOrdered expands a named source file group the same way
// ResolveGroup does, but preserves declaration order instead of sorting:
// patterns are matched in the order they're declared, against tracked
// in its own (version-control listing) order, and a file matched by an
// earlier pattern or an earlier Refs entry keeps its earlier position.
// internal/probe uses this to resolve a cache key's checksum-source
// segment, whose grammar (spec.md 4.4 step 4) is declaration-order
// sensitive; ResolveGroup's sorted form remains correct for every other
// caller, where only set membership (not order) matters.
func ResolveGroupOrdered(groups map[string]*model.SourceFileGroup, name string, tracked []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	if err := collectGroupOrdered(groups, name, tracked, &out, seen, make(map[string]bool)); err != nil {
		return nil, err
	}
	return out, nil
}

func collectGroupOrdered(groups map[string]*model.SourceFileGroup, name string, tracked []string, out *[]string, seen, visiting map[string]bool) error {
	if visiting[name] {
		return nil
	}
	visiting[name] = true
	defer delete(visiting, name)

	g, ok := groups[name]
	if !ok {
		return nil
	}

	for _, pattern := range g.Patterns {
		for _, path := range tracked {
			matched, err := filepath.Match(pattern, path)
			if (err == nil && matched) || matchDoubleStar(pattern, path) {
				if !seen[path] {
					seen[path] = true
					*out = append(*out, path)
				}
			}
		}
	}

	for _, ref := range g.Refs {
		if err := collectGroupOrdered(groups, ref, tracked, out, seen, visiting); err != nil {
			return err
		}
	}

	return nil
}

func collectGroup(groups map[string]*model.SourceFileGroup, name string, tracked []string, set, visiting map[string]bool) error {
	if visiting[name] {
		return nil // cycle guard; model.ValidateSourceFileGroups rejects cycles earlier
	}
	visiting[name] = true
	defer delete(visiting, name)

	g, ok := groups[name]
	if !ok {
		return nil
	}

	for _, pattern := range g.Patterns {
		for _, path := range tracked {
			matched, err := filepath.Match(pattern, path)
			if err == nil && matched {
				set[path] = true
				continue
			}
			if matchDoubleStar(pattern, path) {
				set[path] = true
			}
		}
	}

	for _, ref := range g.Refs {
		if err := collectGroup(groups, ref, tracked, set, visiting); err != nil {
			return err
		}
	}

	return nil
}

// matchDoubleStar supports "**/" glob segments that filepath.Match
// alone can't express, following the same double-star matching idea
// as the teacher's internal/filter/glob.go.
func matchDoubleStar(pattern, path string) bool {
	if !containsDoubleStar(pattern) {
		return false
	}

	patSegs := splitPath(pattern)
	pathSegs := splitPath(path)
	return matchSegments(patSegs, pathSegs)
}

func containsDoubleStar(pattern string) bool {
	for i := 0; i+1 < len(pattern); i++ {
		if pattern[i] == '*' && pattern[i+1] == '*' {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	return strings.Split(filepath.ToSlash(p), "/")
}

func matchSegments(pat, path []string) bool {
	if len(pat) == 0 {
		return len(path) == 0
	}
	if pat[0] == "**" {
		if matchSegments(pat[1:], path) {
			return true
		}
		for i := range path {
			if matchSegments(pat[1:], path[i+1:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], path[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], path[1:])
}
