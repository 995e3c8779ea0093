// Package graph builds and analyzes the job dependency graph: matrix
// expansion across architectures, AND (requires) and OR (requires_any)
// edges, cycle detection, and execution-level computation. Adapted
// from the teacher's internal/graph/dependency.go — the same
// Kahn's-algorithm topological sort and DFS cycle detector, generalized
// from single-kind module dependencies to two edge kinds over
// (workflow, job, architecture) triples (spec.md 4.5).
package graph

import (
	"fmt"
	"sort"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/pkg/model"
)

// NodeID identifies one matrix-expanded job instance.
type NodeID struct {
	Workflow string
	Job      string
	Arch     string
}

func (id NodeID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Workflow, id.Job, id.Arch)
}

// EdgeKind distinguishes "all of these must succeed" from "any one of
// these succeeding is enough" (spec.md 4.5).
type EdgeKind int

const (
	EdgeAnd EdgeKind = iota
	EdgeOr
)

// State names a node's progress through the compiler's later phases.
// Build creates every node as Pending; no later phase changes it, and
// a node whose resolution or synthesis fails is not marked Failed.
type State int

const (
	Pending State = iota
	Expanded
	Resolved
	Synthesized
	Emitted
	Failed
)

// Node is one matrix-expanded job instance plus its phase state.
type Node struct {
	ID    NodeID
	Job   *model.Job
	State State
}

// Edge is a directed dependency: From depends on To.
type Edge struct {
	To   NodeID
	Kind EdgeKind
}

// Graph is the dependency graph over every expanded job instance in
// every workflow.
type Graph struct {
	nodes        map[string]*Node
	edges        map[string][]Edge
	reverseEdges map[string][]Edge
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:        make(map[string]*Node),
		edges:        make(map[string][]Edge),
		reverseEdges: make(map[string][]Edge),
	}
}

// AddNode registers a node if it isn't already present.
func (g *Graph) AddNode(id NodeID, job *model.Job) {
	key := id.String()
	if _, exists := g.nodes[key]; !exists {
		g.nodes[key] = &Node{ID: id, Job: job, State: Pending}
	}
}

// AddEdge records that from depends on to, with the given kind.
func (g *Graph) AddEdge(from, to NodeID, kind EdgeKind) {
	fromKey, toKey := from.String(), to.String()
	if _, ok := g.nodes[fromKey]; !ok {
		return
	}
	if _, ok := g.nodes[toKey]; !ok {
		return
	}
	for _, e := range g.edges[fromKey] {
		if e.To == to && e.Kind == kind {
			return
		}
	}
	g.edges[fromKey] = append(g.edges[fromKey], Edge{To: to, Kind: kind})
	g.reverseEdges[toKey] = append(g.reverseEdges[toKey], Edge{To: from, Kind: kind})
}

// Nodes returns every node, keyed by NodeID.String().
func (g *Graph) Nodes() map[string]*Node { return g.nodes }

// GetNode returns a node by ID, or nil.
func (g *Graph) GetNode(id NodeID) *Node { return g.nodes[id.String()] }

// Edges returns the outgoing edges of a node.
func (g *Graph) Edges(id NodeID) []Edge { return g.edges[id.String()] }

// Build expands every workflow's jobs across their architecture matrix
// and wires requires/requires_any edges. A dependency on a job ID that
// no workflow declares, or one found in another workflow whose stage
// differs, is a diag.GraphError; a job in another workflow of the same
// stage is wired normally. The graph returned still contains every job that
// resolved cleanly (spec.md 4.7: a bad job doesn't abort its siblings).
func Build(workflows map[string]*model.Workflow, defaultArchs []string) (*Graph, *diag.Collector) {
	g := New()
	var c diag.Collector

	for wfName, wf := range workflows {
		for jobID, job := range wf.Jobs {
			archs := job.Architectures
			if len(archs) == 0 {
				archs = defaultArchs
			}
			if len(archs) == 0 {
				archs = []string{""}
			}
			for _, arch := range archs {
				g.AddNode(NodeID{Workflow: wfName, Job: jobID, Arch: arch}, job)
			}
		}
	}

	for wfName, wf := range workflows {
		for jobID, job := range wf.Jobs {
			from := archsFor(job, defaultArchs)
			for _, arch := range from {
				fromID := NodeID{Workflow: wfName, Job: jobID, Arch: arch}
				for _, dep := range job.Requires {
					if err := wireEdge(g, workflows, wf, wfName, fromID, dep, arch, defaultArchs, EdgeAnd); err != nil {
						c.Add(diag.GraphError(diag.Span{Path: fmt.Sprintf("workflows/%s/jobs/%s.yml", wfName, jobID)}, "%s", err.Error()))
					}
				}
				for _, dep := range job.RequiresAny {
					if err := wireEdge(g, workflows, wf, wfName, fromID, dep, arch, defaultArchs, EdgeOr); err != nil {
						c.Add(diag.GraphError(diag.Span{Path: fmt.Sprintf("workflows/%s/jobs/%s.yml", wfName, jobID)}, "%s", err.Error()))
					}
				}
			}
		}
	}

	return g, &c
}

func archsFor(job *model.Job, defaultArchs []string) []string {
	if len(job.Architectures) > 0 {
		return job.Architectures
	}
	if len(defaultArchs) > 0 {
		return defaultArchs
	}
	return []string{""}
}

// wireEdge connects fromID to dep's node(s). dep is looked up in wf
// first (the common case: a same-workflow requires); if not found
// there, every other workflow is searched so a job can also depend on
// one declared in a different workflow sharing the same stage. A dep
// found in a workflow whose Stage differs from wf's is a cross-stage
// edge and is rejected outright — stages depend on stages, not jobs
// (spec.md 4.5, scenario S6) — even though each workflow only carries
// one Stage value, so "cross-stage" here means "cross-workflow with a
// different stage label" rather than a finer per-job grouping.
func wireEdge(g *Graph, workflows map[string]*model.Workflow, wf *model.Workflow, wfName string, fromID NodeID, dep, arch string, defaultArchs []string, kind EdgeKind) error {
	depJob, ok := wf.Jobs[dep]
	depWfName := wfName

	if !ok {
		for otherName, otherWf := range workflows {
			if otherName == wfName {
				continue
			}
			if j, found := otherWf.Jobs[dep]; found {
				if otherWf.Stage != wf.Stage {
					return fmt.Errorf("job %q requires %q, which lives in workflow %q, stage %q (this job is in stage %q): cross-stage edges are rejected", fromID.Job, dep, otherName, otherWf.Stage, wf.Stage)
				}
				depJob, ok, depWfName = j, true, otherName
				break
			}
		}
	}
	if !ok {
		return fmt.Errorf("job %q requires %q, which is not in workflow %q", fromID.Job, dep, wfName)
	}

	depArchs := archsFor(depJob, defaultArchs)
	for _, da := range depArchs {
		if da == arch {
			g.AddEdge(fromID, NodeID{Workflow: depWfName, Job: dep, Arch: da}, kind)
			return nil
		}
	}
	for _, da := range depArchs {
		g.AddEdge(fromID, NodeID{Workflow: depWfName, Job: dep, Arch: da}, kind)
	}
	return nil
}

// TopologicalSort returns every node key in dependency order
// (dependencies first), treating both AND and OR edges as ordering
// constraints. Deterministic: ties are broken lexically, exactly as
// the teacher's TopologicalSort does with sort.Strings on the ready
// queue.
func (g *Graph) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int)
	for id := range g.nodes {
		inDegree[id] = len(g.edges[id])
	}

	var queue []string
	for id, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, e := range g.reverseEdges[node] {
			depKey := e.To.String()
			inDegree[depKey]--
			if inDegree[depKey] == 0 {
				queue = append(queue, depKey)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("cycle detected in dependency graph")
	}
	return result, nil
}

// ExecutionLevels groups nodes by the longest dependency chain leading
// to them; nodes in the same level can run in parallel.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	levels := make(map[string]int)
	for _, id := range sorted {
		maxDep := -1
		for _, e := range g.edges[id] {
			if l := levels[e.To.String()]; l > maxDep {
				maxDep = l
			}
		}
		levels[id] = maxDep + 1
	}

	maxLevel := 0
	for _, l := range levels {
		if l > maxLevel {
			maxLevel = l
		}
	}

	result := make([][]string, maxLevel+1)
	for id, l := range levels {
		result[l] = append(result[l], id)
	}
	for i := range result {
		sort.Strings(result[i])
	}
	return result, nil
}

// DetectCycles returns every cycle found via DFS with a recursion
// stack, the same technique as the teacher's DetectCycles.
func (g *Graph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var path []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, e := range g.edges[node] {
			neighbor := e.To.String()
			if !visited[neighbor] {
				if dfs(neighbor) {
					return true
				}
			} else if recStack[neighbor] {
				cycleStart := -1
				for i, n := range path {
					if n == neighbor {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart)
					copy(cycle, path[cycleStart:])
					cycles = append(cycles, cycle)
				}
			}
		}

		path = path[:len(path)-1]
		recStack[node] = false
		return false
	}

	keys := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, id := range keys {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// Subgraph returns a new Graph containing only the named nodes and the
// edges between them.
func (g *Graph) Subgraph(ids []string) *Graph {
	sub := New()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	for id := range set {
		if n, ok := g.nodes[id]; ok {
			sub.nodes[id] = &Node{ID: n.ID, Job: n.Job, State: n.State}
		}
	}

	for from := range set {
		for _, e := range g.edges[from] {
			if set[e.To.String()] {
				sub.AddEdge(g.nodes[from].ID, e.To, e.Kind)
			}
		}
	}

	return sub
}

// Stats summarizes a graph the way the teacher's GraphStats does.
type Stats struct {
	TotalNodes  int
	TotalEdges  int
	RootNodes   int
	LeafNodes   int
	MaxDepth    int
	HasCycles   bool
	CycleCount  int
}

// GetStats computes Stats for the whole graph.
func (g *Graph) GetStats() Stats {
	stats := Stats{TotalNodes: len(g.nodes)}
	for _, edges := range g.edges {
		stats.TotalEdges += len(edges)
	}
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			stats.RootNodes++
		}
		if len(g.reverseEdges[id]) == 0 {
			stats.LeafNodes++
		}
	}
	if levels, err := g.ExecutionLevels(); err == nil {
		stats.MaxDepth = len(levels) - 1
	}
	cycles := g.DetectCycles()
	stats.HasCycles = len(cycles) > 0
	stats.CycleCount = len(cycles)
	return stats
}
