package hashsum

import (
	"reflect"
	"testing"

	"github.com/cigenhq/cigen/pkg/model"
)

func TestResolveGroupPatternsOnly(t *testing.T) {
	groups := map[string]*model.SourceFileGroup{
		"go": {Patterns: []string{"*.go"}},
	}
	tracked := []string{"main.go", "README.md"}
	got, err := ResolveGroup(groups, "go", tracked)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"main.go"}) {
		t.Errorf("got %v", got)
	}
}

func TestResolveGroupDoubleStar(t *testing.T) {
	groups := map[string]*model.SourceFileGroup{
		"go": {Patterns: []string{"**/*.go"}},
	}
	tracked := []string{"pkg/model/job.go", "pkg/model/README.md", "main.go"}
	got, err := ResolveGroup(groups, "go", tracked)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"main.go", "pkg/model/job.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveGroupFollowsRefs(t *testing.T) {
	groups := map[string]*model.SourceFileGroup{
		"go":  {Patterns: []string{"*.go"}},
		"all": {Refs: []string{"go"}, Patterns: []string{"*.md"}},
	}
	tracked := []string{"main.go", "README.md", "ignored.txt"}
	got, err := ResolveGroup(groups, "all", tracked)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"README.md", "main.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveGroupOrderedPreservesDeclarationOrder(t *testing.T) {
	groups := map[string]*model.SourceFileGroup{
		"go": {Patterns: []string{"*.go"}},
	}
	// ResolveGroup sorts to "a.go", "m.go"; ResolveGroupOrdered must
	// keep tracked's own listing order instead.
	tracked := []string{"m.go", "a.go"}

	got, err := ResolveGroupOrdered(groups, "go", tracked)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"m.go", "a.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolveGroupOrderedDedupesKeepingFirstOccurrence(t *testing.T) {
	groups := map[string]*model.SourceFileGroup{
		"go":  {Patterns: []string{"*.go"}},
		"all": {Patterns: []string{"m.go"}, Refs: []string{"go"}},
	}
	tracked := []string{"m.go", "a.go"}

	got, err := ResolveGroupOrdered(groups, "all", tracked)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"m.go", "a.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
