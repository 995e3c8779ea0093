package circleci

import (
	"context"
	"strings"
	"testing"

	"github.com/cigenhq/cigen/internal/cacheengine"
	"github.com/cigenhq/cigen/internal/emit"
	"github.com/cigenhq/cigen/internal/graph"
	"github.com/cigenhq/cigen/pkg/model"
)

func TestRenderStepSkipCheckAndMarkDone(t *testing.T) {
	skip, err := renderStep(model.Step{Kind: model.StepSkipCheck, SkipCheck: &model.SkipCheckStep{Key: "build/amd64"}}, nil)
	if err != nil {
		t.Fatalf("renderStep skip_check: %v", err)
	}
	m := skip.(map[string]any)["run"].(emit.OrderedMap)
	cmd := findEntry(t, m, "command")
	if cmd != "cigen skip-check 'build/amd64'" {
		t.Fatalf("unexpected skip_check command: %q", cmd)
	}

	done, err := renderStep(model.Step{Kind: model.StepMarkDone, MarkDone: &model.SkipCheckStep{Key: "build/amd64"}}, nil)
	if err != nil {
		t.Fatalf("renderStep mark_done: %v", err)
	}
	m = done.(map[string]any)["run"].(emit.OrderedMap)
	cmd = findEntry(t, m, "command")
	if cmd != "cigen skip-check --mark 'build/amd64'" {
		t.Fatalf("unexpected mark_done command: %q", cmd)
	}
}

func findEntry(t *testing.T, m emit.OrderedMap, key string) any {
	t.Helper()
	for _, e := range m {
		if e.Key == key {
			return e.Value
		}
	}
	t.Fatalf("key %q not found in %v", key, m)
	return nil
}

func TestAddPassthroughEmitsUnknownKeys(t *testing.T) {
	out := emit.OrderedMap{}
	out.Add("steps", []any{"checkout"})
	addPassthrough(&out, &model.Job{Passthrough: map[string]any{
		"gitlab_only_key": "value",
		"another_key":     42,
	}})

	if v := findEntry(t, out, "gitlab_only_key"); v != "value" {
		t.Fatalf("expected passthrough key to survive, got %v", v)
	}
	if v := findEntry(t, out, "another_key"); v != 42 {
		t.Fatalf("expected passthrough key to survive, got %v", v)
	}
}

func TestAddPassthroughNoopWhenEmpty(t *testing.T) {
	out := emit.OrderedMap{}
	addPassthrough(&out, &model.Job{})
	if len(out) != 0 {
		t.Fatalf("expected no entries added, got %v", out)
	}
}

func TestGeneratePatchesApprovalStatusWhenConfigured(t *testing.T) {
	g := graph.New()
	buildID := graph.NodeID{Workflow: "ci", Job: "build", Arch: ""}
	deployAID := graph.NodeID{Workflow: "ci", Job: "deploy-a", Arch: ""}
	deployBID := graph.NodeID{Workflow: "ci", Job: "deploy-b", Arch: ""}
	finishID := graph.NodeID{Workflow: "ci", Job: "finish", Arch: ""}

	g.AddNode(buildID, &model.Job{ID: "build", Steps: []model.Step{{Kind: model.StepCheckout}}})
	g.AddNode(deployAID, &model.Job{ID: "deploy-a", Steps: []model.Step{{Kind: model.StepCheckout}}})
	g.AddNode(deployBID, &model.Job{ID: "deploy-b", Steps: []model.Step{{Kind: model.StepCheckout}}})
	g.AddNode(finishID, &model.Job{ID: "finish", Steps: []model.Step{{Kind: model.StepCheckout}}})
	g.AddEdge(finishID, deployAID, graph.EdgeOr)
	g.AddEdge(finishID, deployBID, graph.EdgeOr)

	cfg := &model.Config{
		Providers:     []string{Name},
		Architectures: []string{""},
		CircleCI:      model.CircleCIConfig{FixGitHubStatus: true},
	}

	in := emit.Input{
		Config: cfg,
		Workflows: map[string]*model.Workflow{
			"ci": {
				Name: "ci",
				Jobs: map[string]*model.Job{
					"build":    {ID: "build", Steps: []model.Step{{Kind: model.StepCheckout}}},
					"deploy-a": {ID: "deploy-a", Steps: []model.Step{{Kind: model.StepCheckout}}},
					"deploy-b": {ID: "deploy-b", Steps: []model.Step{{Kind: model.StepCheckout}}},
					"finish":   {ID: "finish", RequiresAny: []string{"deploy-a", "deploy-b"}, Steps: []model.Step{{Kind: model.StepCheckout}}},
				},
			},
		},
		Graph:     g,
		Synthesis: map[graph.NodeID][]model.Step{},
		Caches:    map[graph.NodeID][]cacheengine.ResolvedCache{},
	}
	in.Synthesis[buildID] = []model.Step{{Kind: model.StepCheckout}}
	in.Synthesis[deployAID] = []model.Step{{Kind: model.StepCheckout}}
	in.Synthesis[deployBID] = []model.Step{{Kind: model.StepCheckout}}
	in.Synthesis[finishID] = []model.Step{{Kind: model.StepCheckout}}

	frags, diags := New().Generate(context.Background(), in)
	for _, d := range diags {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if len(frags) != 2 {
		t.Fatalf("expected dynamic setup+continue split, got %d fragments", len(frags))
	}

	var continueYAML string
	for _, f := range frags {
		if f.Path == ".circleci/continue-config.yml" {
			continueYAML = string(f.Content)
		}
	}
	if continueYAML == "" {
		t.Fatalf("missing continue-config.yml fragment")
	}
	if !strings.Contains(continueYAML, patchStatusJobName) {
		t.Fatalf("expected %s job in rendered config:\n%s", patchStatusJobName, continueYAML)
	}
	if !strings.Contains(continueYAML, "cigen circleci fix-github-status") {
		t.Fatalf("expected fix-github-status command in rendered config:\n%s", continueYAML)
	}
}

func TestGenerateOmitsPatchJobWhenNotConfigured(t *testing.T) {
	g := graph.New()
	buildID := graph.NodeID{Workflow: "ci", Job: "build", Arch: ""}
	g.AddNode(buildID, &model.Job{ID: "build"})

	cfg := &model.Config{Providers: []string{Name}, Architectures: []string{""}}
	in := emit.Input{
		Config: cfg,
		Workflows: map[string]*model.Workflow{
			"ci": {Name: "ci", Jobs: map[string]*model.Job{"build": {ID: "build"}}},
		},
		Graph:     g,
		Synthesis: map[graph.NodeID][]model.Step{buildID: {{Kind: model.StepCheckout}}},
		Caches:    map[graph.NodeID][]cacheengine.ResolvedCache{},
	}

	frags, diags := New().Generate(context.Background(), in)
	for _, d := range diags {
		t.Fatalf("unexpected diagnostic: %v", d)
	}
	if len(frags) != 1 || frags[0].Path != ".circleci/config.yml" {
		t.Fatalf("expected single non-dynamic fragment, got %v", frags)
	}
	if strings.Contains(string(frags[0].Content), patchStatusJobName) {
		t.Fatalf("did not expect %s job when FixGitHubStatus is unset", patchStatusJobName)
	}
}
