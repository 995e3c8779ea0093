// Package compile wires every compiler phase together in the fixed
// order spec.md 4 describes: load, resolve references, expand
// templates, build the graph, resolve caches per node, synthesize
// steps, then emit. cmd/cigen stays a thin cobra shell around this
// package, the way the teacher's cmd/terraci/cmd/generate.go stays a
// thin shell around internal/discovery + internal/graph +
// internal/pipeline/gitlab.
package compile

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cigenhq/cigen/internal/cacheengine"
	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/internal/emit"
	"github.com/cigenhq/cigen/internal/emit/circleci"
	"github.com/cigenhq/cigen/internal/emit/ghactions"
	"github.com/cigenhq/cigen/internal/graph"
	"github.com/cigenhq/cigen/internal/hashsum"
	"github.com/cigenhq/cigen/internal/loader"
	"github.com/cigenhq/cigen/internal/plugin"
	"github.com/cigenhq/cigen/internal/probe"
	"github.com/cigenhq/cigen/internal/synth"
	"github.com/cigenhq/cigen/internal/tmpl"
	"github.com/cigenhq/cigen/pkg/model"
)

// Options configures one compile run.
type Options struct {
	Root    string
	CLIVars map[string]string
	Environ []string
}

// Result is everything a caller might want back: the loaded/resolved
// model, the built graph, and (if emission ran clean enough to
// attempt it) the rendered provider fragments.
type Result struct {
	Config    *model.Config
	Workflows map[string]*model.Workflow
	Graph     *graph.Graph
	Fragments []emit.Fragment
}

// Load runs phases 1-2 only: load and resolve references. Used by the
// validate and skip-check commands; it builds no graph and emits nothing.
func Load(opts Options) (*loader.Result, *diag.Collector) {
	res, c := loader.Load(opts.Root)
	if c.HasErrors() {
		return res, c
	}
	refC := loader.ResolveReferences(res)
	for _, d := range refC.Diagnostics() {
		c.Add(d)
	}
	return res, c
}

// Run executes every phase through emission. Diagnostics from every
// phase accumulate in one Collector; a phase with HasErrors() true
// halts before the next phase runs, but diagnostics already recorded
// from earlier phases are preserved (spec.md 4.7: report everything
// found, not just the first failure).
func Run(ctx context.Context, opts Options) (*Result, *diag.Collector) {
	c := &diag.Collector{}

	loaded, loadC := Load(opts)
	for _, d := range loadC.Diagnostics() {
		c.Add(d)
	}
	if c.HasErrors() {
		return nil, c
	}

	vars := tmpl.ResolveVars(loaded.Config.Vars, opts.Environ, opts.CLIVars)
	if err := expandTemplates(opts.Root, vars, loaded); err != nil {
		c.Add(diag.TemplateError(diag.Span{}, "%s", err.Error()))
		return nil, c
	}

	g, graphC := graph.Build(loaded.Workflows, loaded.Config.Architectures)
	for _, d := range graphC.Diagnostics() {
		c.Add(d)
	}
	if c.HasErrors() {
		return nil, c
	}

	tracked, err := hashsum.TrackedFiles(opts.Root)
	if err != nil {
		c.Add(diag.HashError(diag.Span{}, "listing tracked files: %s", err))
		return nil, c
	}

	synthesis := make(map[graph.NodeID][]model.Step)
	caches := make(map[graph.NodeID][]cacheengine.ResolvedCache)
	fs := &probe.Filesystem{Root: opts.Root}
	checksums := &probe.ChecksumSources{Root: opts.Root, Groups: loaded.Config.SourceFileGroups, Tracked: tracked}

	for key, node := range g.Nodes() {
		kctx := cacheengine.KeyContext{OS: runtime.GOOS, Arch: node.ID.Arch}
		resolved, err := cacheengine.Resolve(ctx, node.Job, loaded.Config.CacheDefinitions, loaded.Config.VersionSources, kctx, fs, checksums)
		if err != nil {
			c.Add(diag.HashError(diag.Span{}, "job %s: resolving cache: %s", key, err))
			continue
		}
		caches[node.ID] = resolved

		skipKey := ""
		enableSkip := node.Job.SourceFiles != ""
		if enableSkip {
			paths, err := hashsum.ResolveGroup(loaded.Config.SourceFileGroups, node.Job.SourceFiles, tracked)
			if err != nil {
				c.Add(diag.HashError(diag.Span{}, "job %s: resolving source files: %s", key, err))
				continue
			}
			digest, err := hashsum.HashJob(ctx, opts.Root, node.Job, paths, node.ID.Workflow, node.ID.Arch)
			if err != nil {
				c.Add(diag.HashError(diag.Span{}, "job %s: hashing: %s", key, err))
				continue
			}
			skipKey = fmt.Sprintf("%s-%s", node.ID, digest)
		}

		steps, err := synth.Synthesize(node.Job, resolved, synth.Options{
			EnableSkipCheck: enableSkip,
			SkipCacheKey:    skipKey,
			Commands:        loaded.Commands,
		})
		if err != nil {
			c.Add(diag.GraphError(diag.Span{}, "job %s: synthesizing steps: %s", key, err))
			continue
		}
		synthesis[node.ID] = steps
	}
	if c.HasErrors() {
		return nil, c
	}

	in := emit.Input{
		Config:    loaded.Config,
		Workflows: loaded.Workflows,
		Graph:     g,
		Synthesis: synthesis,
		Caches:    caches,
	}

	fragments, err := generateFragments(ctx, loaded.Config.Providers, loaded.Config.Plugins, in, c)
	if err != nil {
		c.Add(diag.ProviderError(diag.Span{}, "%s", err))
		return nil, c
	}

	return &Result{Config: loaded.Config, Workflows: loaded.Workflows, Graph: g, Fragments: fragments}, c
}

// providerResult is one provider's Generate output, collected off the
// errgroup goroutine that produced it so results can be merged back
// into c in provider-list order rather than goroutine-finish order —
// determinism matters here the same way it does in every emitter's own
// output (spec.md 4.7/5).
type providerResult struct {
	name      string
	fragments []emit.Fragment
	diags     []*diag.Diagnostic
}

// generateFragments runs every configured provider's Emitter.Generate
// concurrently (golang.org/x/sync/errgroup, the same concurrency
// primitive internal/hashsum.HashFiles already uses for its worker
// pool) since providers don't share mutable state — each only reads
// in and writes its own Fragment slice. A provider name that matches
// no built-in emitter but does match a configured internal/plugin.Ref
// is dispatched to the plugin host instead of producing a warning;
// internal/plugin.GenerateAll does its own internal concurrency across
// however many plugins that turns out to be. Once every provider (and
// every plugin) has finished, fragments are checked pairwise for an
// output path two of them both claim, which would otherwise silently
// let one provider's generated file clobber another's (spec.md 5).
func generateFragments(ctx context.Context, providers []string, plugins []model.PluginRef, in emit.Input, c *diag.Collector) ([]emit.Fragment, error) {
	pluginByName := make(map[string]model.PluginRef, len(plugins))
	for _, p := range plugins {
		pluginByName[p.Name] = p
	}

	results := make([]providerResult, len(providers))
	var pluginRefs []model.PluginRef

	g, gctx := errgroup.WithContext(ctx)
	for i, providerName := range providers {
		i, providerName := i, providerName
		var e emit.Emitter
		switch providerName {
		case circleci.Name:
			e = circleci.New()
		case ghactions.Name:
			e = ghactions.New()
		default:
			if ref, ok := pluginByName[providerName]; ok {
				pluginRefs = append(pluginRefs, ref)
				results[i] = providerResult{name: providerName}
				continue
			}
			results[i] = providerResult{name: providerName, diags: []*diag.Diagnostic{
				diag.Warning(diag.ConfigError(diag.Span{}, "provider %q has no built-in emitter and no matching entry under plugins", providerName)),
			}}
			continue
		}

		g.Go(func() error {
			frags, diags := e.Generate(gctx, in)
			results[i] = providerResult{name: providerName, fragments: frags, diags: diags}
			return nil
		})
	}

	var pluginFragments []emit.Fragment
	var pluginDiags []*diag.Diagnostic
	if len(pluginRefs) > 0 {
		g.Go(func() error {
			pluginFragments, pluginDiags = plugin.GenerateAll(gctx, pluginRefs, in)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fragments []emit.Fragment
	seenPaths := map[string]string{}
	claim := func(owner string, frag emit.Fragment) {
		if prev, ok := seenPaths[frag.Path]; ok {
			c.Add(diag.ProviderError(diag.Span{}, "output path %q is written by both provider %q and provider %q", frag.Path, prev, owner))
			return
		}
		seenPaths[frag.Path] = owner
		fragments = append(fragments, frag)
	}

	for _, r := range results {
		for _, d := range r.diags {
			c.Add(d)
		}
		for _, frag := range r.fragments {
			claim(r.name, frag)
		}
	}
	for _, d := range pluginDiags {
		c.Add(d)
	}
	for _, frag := range pluginFragments {
		claim("plugin", frag)
	}

	return fragments, nil
}

// expandTemplates walks every RunStep's Command/Environment values (in
// both job.Steps and every reusable Command's Steps) and expands them
// against vars, in place. internal/synth's uses_command expansion
// layers command parameters on top of this pass's result.
func expandTemplates(root string, vars map[string]any, loaded *loader.Result) error {
	engine := tmpl.New(root, vars)

	for _, cmd := range loaded.Commands {
		if err := expandSteps(engine, cmd.Steps); err != nil {
			return fmt.Errorf("command %q: %w", cmd.Name, err)
		}
	}
	for wfName, wf := range loaded.Workflows {
		for jobID, job := range wf.Jobs {
			if err := expandSteps(engine, job.Steps); err != nil {
				return fmt.Errorf("workflow %q job %q: %w", wfName, jobID, err)
			}
		}
	}
	return nil
}

func expandSteps(engine *tmpl.Engine, steps []model.Step) error {
	for i := range steps {
		if steps[i].Kind != model.StepRun || steps[i].Run == nil {
			continue
		}
		r := steps[i].Run
		expanded, err := engine.ExpandInline(r.Command)
		if err != nil {
			return err
		}
		r.Command = expanded

		for k, v := range r.Environment {
			ev, err := engine.ExpandInline(v)
			if err != nil {
				return err
			}
			r.Environment[k] = ev
		}
	}
	return nil
}

// WriteFragments writes every fragment under root's output directory.
func WriteFragments(outputDir string, fragments []emit.Fragment) error {
	for _, f := range fragments {
		full := outputDir + "/" + f.Path
		if err := os.MkdirAll(dirOf(full), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(full, f.Content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Path, err)
		}
	}
	return nil
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}
