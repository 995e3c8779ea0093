package graph

import (
	"testing"

	"github.com/cigenhq/cigen/pkg/model"
)

func wf(name string, jobs map[string]*model.Job) map[string]*model.Workflow {
	return map[string]*model.Workflow{name: {Name: name, Jobs: jobs}}
}

func TestBuildExpandsArchitectureMatrix(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"build": {Architectures: []string{"amd64", "arm64"}},
	})
	g, c := Build(workflows, nil)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	if len(g.Nodes()) != 2 {
		t.Fatalf("expected 2 expanded nodes, got %d", len(g.Nodes()))
	}
}

func TestBuildWiresAndEdges(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"build": {Architectures: []string{"amd64"}},
		"test":  {Architectures: []string{"amd64"}, Requires: []string{"build"}},
	})
	g, c := Build(workflows, nil)
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	testID := NodeID{Workflow: "ci", Job: "test", Arch: "amd64"}
	edges := g.Edges(testID)
	if len(edges) != 1 || edges[0].Kind != EdgeAnd {
		t.Fatalf("expected 1 AND edge, got %v", edges)
	}
}

func TestBuildReportsDanglingRequires(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"test": {Requires: []string{"missing"}},
	})
	_, c := Build(workflows, nil)
	if !c.HasErrors() {
		t.Fatal("expected graph error for dangling requires")
	}
}

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"build": {},
		"test":  {Requires: []string{"build"}},
	})
	g, _ := Build(workflows, []string{""})
	order, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	buildIdx, testIdx := -1, -1
	for i, id := range order {
		if id == "ci/build/" {
			buildIdx = i
		}
		if id == "ci/test/" {
			testIdx = i
		}
	}
	if buildIdx < 0 || testIdx < 0 || buildIdx > testIdx {
		t.Fatalf("expected build before test, got %v", order)
	}
}

func TestDetectCyclesFindsCycle(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"a": {Requires: []string{"b"}},
		"b": {Requires: []string{"a"}},
	})
	g, _ := Build(workflows, []string{""})
	cycles := g.DetectCycles()
	if len(cycles) == 0 {
		t.Fatal("expected at least one cycle")
	}
}

func TestExecutionLevelsGroupsParallelWork(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"build": {},
		"lint":  {},
		"test":  {Requires: []string{"build", "lint"}},
	})
	g, _ := Build(workflows, []string{""})
	levels, err := g.ExecutionLevels()
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d: %v", len(levels), levels)
	}
	if len(levels[0]) != 2 {
		t.Fatalf("expected 2 nodes in level 0, got %v", levels[0])
	}
}

func TestBuildRejectsCrossStageEdge(t *testing.T) {
	workflows := map[string]*model.Workflow{
		"ci": {Name: "ci", Stage: "build", Jobs: map[string]*model.Job{
			"b": {Requires: []string{"d"}},
		}},
		"release": {Name: "release", Stage: "deploy", Jobs: map[string]*model.Job{
			"d": {},
		}},
	}
	_, c := Build(workflows, []string{""})
	if !c.HasErrors() {
		t.Fatal("expected a GraphError for a requires crossing stages")
	}
}

func TestBuildWiresSameStageCrossWorkflowEdge(t *testing.T) {
	workflows := map[string]*model.Workflow{
		"ci": {Name: "ci", Stage: "build", Jobs: map[string]*model.Job{
			"b": {Requires: []string{"d"}},
		}},
		"shared": {Name: "shared", Stage: "build", Jobs: map[string]*model.Job{
			"d": {},
		}},
	}
	g, c := Build(workflows, []string{""})
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	edges := g.Edges(NodeID{Workflow: "ci", Job: "b", Arch: ""})
	if len(edges) != 1 || edges[0].To != (NodeID{Workflow: "shared", Job: "d", Arch: ""}) {
		t.Fatalf("expected 1 edge into shared/d, got %v", edges)
	}
}

func TestOrEdgesRecordedDistinctly(t *testing.T) {
	workflows := wf("ci", map[string]*model.Job{
		"unit":        {},
		"integration": {},
		"deploy":      {RequiresAny: []string{"unit", "integration"}},
	})
	g, c := Build(workflows, []string{""})
	if c.HasErrors() {
		t.Fatalf("unexpected errors: %v", c.Err())
	}
	edges := g.Edges(NodeID{Workflow: "ci", Job: "deploy", Arch: ""})
	if len(edges) != 2 {
		t.Fatalf("expected 2 OR edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Kind != EdgeOr {
			t.Fatalf("expected OR edges, got %v", e.Kind)
		}
	}
}
