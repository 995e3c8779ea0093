package compile

import (
	"context"
	"testing"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/internal/emit"
	"github.com/cigenhq/cigen/internal/emit/circleci"
	"github.com/cigenhq/cigen/internal/emit/ghactions"
	"github.com/cigenhq/cigen/internal/graph"
	"github.com/cigenhq/cigen/pkg/model"
)

func simpleInput(t *testing.T) emit.Input {
	t.Helper()
	g := graph.New()
	id := graph.NodeID{Workflow: "ci", Job: "build", Arch: ""}
	g.AddNode(id, &model.Job{ID: "build"})

	return emit.Input{
		Config: &model.Config{Architectures: []string{""}},
		Workflows: map[string]*model.Workflow{
			"ci": {Name: "ci", On: []string{"push"}, Jobs: map[string]*model.Job{
				"build": {ID: "build"},
			}},
		},
		Graph:     g,
		Synthesis: map[graph.NodeID][]model.Step{id: {{Kind: model.StepCheckout}}},
	}
}

func TestGenerateFragmentsRunsBuiltinProvidersConcurrently(t *testing.T) {
	in := simpleInput(t)
	c := &diag.Collector{}

	frags, err := generateFragments(context.Background(), []string{circleci.Name, ghactions.Name}, nil, in, c)
	if err != nil {
		t.Fatalf("generateFragments: %v", err)
	}
	for _, d := range c.Diagnostics() {
		t.Fatalf("unexpected diagnostic: %v", d)
	}

	paths := map[string]bool{}
	for _, f := range frags {
		paths[f.Path] = true
	}
	if !paths[".circleci/config.yml"] {
		t.Errorf("expected a circleci fragment, got %v", frags)
	}
	if !paths[".github/workflows/ci.yml"] {
		t.Errorf("expected a github-actions fragment, got %v", frags)
	}
}

func TestGenerateFragmentsWarnsOnUnknownProvider(t *testing.T) {
	in := simpleInput(t)
	c := &diag.Collector{}

	frags, err := generateFragments(context.Background(), []string{"gitlab-ci"}, nil, in, c)
	if err != nil {
		t.Fatalf("generateFragments: %v", err)
	}
	if len(frags) != 0 {
		t.Fatalf("expected no fragments for an unmatched provider, got %v", frags)
	}

	diags := c.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %v", diags)
	}
	if diags[0].Kind != diag.KindConfig {
		t.Fatalf("expected a config diagnostic for an unmatched provider, got %v", diags[0].Kind)
	}
	if diags[0].Level != diag.LevelWarning {
		t.Fatalf("expected a warning, not an error, for an unmatched provider")
	}
}

func TestGenerateFragmentsRejectsOverlappingOutputPaths(t *testing.T) {
	in := simpleInput(t)
	c := &diag.Collector{}

	// Two providers both named circleci emit identical fragments at
	// the identical path; the second claim must be rejected rather
	// than silently overwriting the first.
	frags, err := generateFragments(context.Background(), []string{circleci.Name, circleci.Name}, nil, in, c)
	if err != nil {
		t.Fatalf("generateFragments: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected only the first provider's fragment to be kept, got %v", frags)
	}

	var sawCollision bool
	for _, d := range c.Diagnostics() {
		if d.Kind == diag.KindProvider {
			sawCollision = true
		}
	}
	if !sawCollision {
		t.Fatalf("expected a provider-error diagnostic reporting the output path collision, got %v", c.Diagnostics())
	}
}

func TestGenerateFragmentsRoutesUnmatchedProviderToConfiguredPlugin(t *testing.T) {
	in := simpleInput(t)
	c := &diag.Collector{}

	// The plugin ref names no real command/oci_ref, so spawning it
	// fails fast — but that failure must surface as a plugin
	// diagnostic, proving the provider name was matched against
	// Config.Plugins and dispatched to internal/plugin.GenerateAll
	// rather than falling through to the generic unknown-provider
	// warning.
	plugins := []model.PluginRef{{Name: "gitlab-ci"}}
	frags, err := generateFragments(context.Background(), []string{"gitlab-ci"}, plugins, in, c)
	if err != nil {
		t.Fatalf("generateFragments: %v", err)
	}
	if len(frags) != 0 {
		t.Fatalf("expected no fragments from a plugin that fails to spawn, got %v", frags)
	}

	diags := c.Diagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %v", diags)
	}
	if diags[0].Kind != diag.KindPlugin {
		t.Fatalf("expected a plugin diagnostic for the unspawnable plugin, got kind %v: %v", diags[0].Kind, diags[0])
	}
}
