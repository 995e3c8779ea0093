// Package emit defines the provider emitter contract (spec.md 4.7) and
// the deterministic-YAML building blocks both the circleci and
// ghactions subpackages marshal through.
package emit

import (
	"context"

	"github.com/cigenhq/cigen/internal/cacheengine"
	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/internal/graph"
	"github.com/cigenhq/cigen/pkg/model"
)

// Fragment is one generated file: a path relative to Config.OutputDir
// and its rendered bytes.
type Fragment struct {
	Path    string
	Content []byte
}

// Input bundles everything an Emitter needs that it can't discover on
// its own: the expanded dependency graph, each node's synthesized
// steps, and the originating workflows (for trigger/name metadata the
// graph doesn't carry).
type Input struct {
	Config    *model.Config
	Workflows map[string]*model.Workflow
	Graph     *graph.Graph
	Synthesis map[graph.NodeID][]model.Step
	Caches    map[graph.NodeID][]cacheengine.ResolvedCache
}

// Emitter turns a resolved Input into native provider configuration
// fragments. Two or more Emitters may run concurrently against the
// same Input (internal/compile.generateFragments enforces disjoint
// output paths across them, including plugin-provided fragments); a
// single Emitter's own Generate call is expected to be self-contained
// and side-effect free besides its return value.
type Emitter interface {
	Name() string
	Generate(ctx context.Context, in Input) ([]Fragment, []*diag.Diagnostic)
}
