// Package ghactions emits GitHub Actions workflow YAML from a resolved
// graph.Graph and its synthesized steps: one file per source workflow,
// using GitHub's own needs/if mechanism to approximate requires_any
// and its cache/upload-artifact actions in place of CircleCI's
// restore_cache/save_cache/store_artifacts primitives. Grounded, like
// internal/emit/circleci, on the teacher's Pipeline.ToYAML
// map-then-marshal technique (internal/pipeline/gitlab/generator.go),
// adapted to GitHub's per-workflow-file layout instead of GitLab's
// single document.
package ghactions

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cigenhq/cigen/internal/cacheengine"
	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/internal/emit"
	"github.com/cigenhq/cigen/internal/graph"
	"github.com/cigenhq/cigen/pkg/model"
	"gopkg.in/yaml.v3"
)

// Name is the provider string Config.Providers selects this emitter
// with.
const Name = "github-actions"

// Emitter implements emit.Emitter for GitHub Actions.
type Emitter struct{}

// New returns a GitHub Actions Emitter.
func New() *Emitter { return &Emitter{} }

// Name returns "github-actions".
func (e *Emitter) Name() string { return Name }

// Generate renders one workflow YAML file per source workflow.
func (e *Emitter) Generate(ctx context.Context, in emit.Input) ([]emit.Fragment, []*diag.Diagnostic) {
	var diags []*diag.Diagnostic
	var fragments []emit.Fragment

	dir := in.Config.GitHubActions.WorkflowDir
	if dir == "" {
		dir = ".github/workflows"
	}

	workflowNames := make([]string, 0, len(in.Workflows))
	for name := range in.Workflows {
		workflowNames = append(workflowNames, name)
	}
	sort.Strings(workflowNames)

	for _, wfName := range workflowNames {
		wf := in.Workflows[wfName]
		doc := emit.OrderedMap{}
		doc.Add("name", wfName)
		doc.Add("on", onTriggers(wf.On))

		jobs := emit.OrderedMap{}
		for _, jobID := range wf.JobIDs() {
			job := wf.Jobs[jobID]
			archs := job.Architectures
			if len(archs) == 0 {
				archs = in.Config.Architectures
			}
			if len(archs) == 0 {
				archs = []string{""}
			}

			for _, arch := range archs {
				id := graph.NodeID{Workflow: wfName, Job: jobID, Arch: arch}
				node := in.Graph.GetNode(id)
				if node == nil {
					continue
				}

				jobDoc, warnings, d := buildJob(id, node, in)
				diags = append(diags, warnings...)
				if d != nil {
					diags = append(diags, d)
					continue
				}
				jobs.Add(jobKey(id), jobDoc)
			}
		}
		doc.Add("jobs", jobs)

		body, err := yaml.Marshal(doc)
		if err != nil {
			diags = append(diags, diag.ProviderError(diag.Span{}, "marshaling github actions workflow %q: %s", wfName, err))
			continue
		}
		fragments = append(fragments, emit.Fragment{Path: path.Join(dir, wfName+".yml"), Content: body})
	}

	return fragments, diags
}

// onTriggers turns a workflow's trigger event list into the simple
// form of GitHub's `on:` — no filters, since spec.md's Workflow.On
// only names event types.
func onTriggers(events []string) any {
	if len(events) == 0 {
		return []string{"push"}
	}
	return events
}

// jobKey is the job ID GitHub Actions uses internally (unique within
// one workflow file; must be a valid identifier, so '/' can't appear
// the way it does in NodeID.String()).
func jobKey(id graph.NodeID) string {
	if id.Arch == "" {
		return id.Job
	}
	return fmt.Sprintf("%s_%s", id.Job, id.Arch)
}

// dependencies splits a node's outgoing edges into AND and OR targets.
func dependencies(g *graph.Graph, id graph.NodeID) (and, or []graph.NodeID) {
	for _, e := range g.Edges(id) {
		if e.Kind == graph.EdgeAnd {
			and = append(and, e.To)
		} else {
			or = append(or, e.To)
		}
	}
	return and, or
}

// needsAndCondition builds this job's `needs:` list and `if:`
// expression. GitHub fails a job by default if anything in needs
// failed; requires_any's "any one succeeding is enough" therefore
// needs both every dependency listed in needs (so it still orders
// after them) and an explicit if: that only requires AND deps to have
// succeeded and at least one OR dep to have succeeded, with always()
// so the default needs-all-success gate doesn't veto it first
// (spec.md 4.5, 4.7, 8; SPEC_FULL 12).
func needsAndCondition(id graph.NodeID, and, or []graph.NodeID) (needs []string, cond string) {
	for _, d := range and {
		needs = append(needs, jobKey(d))
	}
	for _, d := range or {
		needs = append(needs, jobKey(d))
	}
	sort.Strings(needs)

	if len(and) == 0 && len(or) == 0 {
		return needs, ""
	}

	var clauses []string
	for _, d := range and {
		clauses = append(clauses, fmt.Sprintf("needs.%s.result == 'success'", jobKey(d)))
	}
	if len(or) > 0 {
		var orClauses []string
		for _, d := range or {
			orClauses = append(orClauses, fmt.Sprintf("needs.%s.result == 'success'", jobKey(d)))
		}
		clauses = append(clauses, "("+strings.Join(orClauses, " || ")+")")
	}

	return needs, "always() && " + strings.Join(clauses, " && ")
}

func buildJob(id graph.NodeID, node *graph.Node, in emit.Input) (emit.OrderedMap, []*diag.Diagnostic, *diag.Diagnostic) {
	job := node.Job
	out := emit.OrderedMap{}

	and, or := dependencies(in.Graph, id)
	if needs, cond := needsAndCondition(id, and, or); len(needs) > 0 {
		out.Add("needs", needs)
		if cond != "" {
			out.Add("if", cond)
		}
	}

	out.Add("runs-on", runsOn(in.Config, job, id.Arch))

	if job.Image != "" {
		out.Add("container", job.Image)
	}
	if len(job.Environment) > 0 {
		out.Add("env", emit.SortedMap(toAnyMap(job.Environment)))
	}
	if svcs, d := services(job, in.Config); d != nil {
		return nil, nil, d
	} else if len(svcs) > 0 {
		out.Add("services", svcs)
	}
	if job.Parallelism > 1 {
		out.Add("strategy", emit.OrderedMap{{Key: "matrix", Value: map[string]any{
			"shard": shardRange(job.Parallelism),
		}}})
	}

	steps, warnings, d := renderSteps(id, in.Synthesis[id], in.Caches[id])
	if d != nil {
		return nil, warnings, d
	}
	out.Add("steps", steps)

	addPassthrough(&out, job)

	return out, warnings, nil
}

// addPassthrough emits every job key the loader didn't recognize
// verbatim, sorted for determinism, so a provider-specific escape
// hatch (spec.md 4.1) survives to the generated YAML instead of being
// silently dropped at emission.
func addPassthrough(out *emit.OrderedMap, job *model.Job) {
	if len(job.Passthrough) == 0 {
		return
	}
	keys := make([]string, 0, len(job.Passthrough))
	for k := range job.Passthrough {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Add(k, job.Passthrough[k])
	}
}

func shardRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// runsOn resolves a runner label: Config.ResourceClasses[arch][tier]
// when the job names a tier, else a sane per-architecture default.
func runsOn(cfg *model.Config, job *model.Job, arch string) string {
	if job.ResourceClass != "" {
		if tiers, ok := cfg.ResourceClasses[arch]; ok {
			if label, ok := tiers[job.ResourceClass]; ok {
				return label
			}
		}
	}
	switch arch {
	case "arm64":
		return "ubuntu-24.04-arm"
	default:
		return "ubuntu-latest"
	}
}

func services(job *model.Job, cfg *model.Config) (emit.OrderedMap, *diag.Diagnostic) {
	if len(job.Services) == 0 {
		return nil, nil
	}
	names := append([]string{}, job.Services...)
	sort.Strings(names)

	out := emit.OrderedMap{}
	for _, name := range names {
		svc, ok := cfg.Services[name]
		if !ok {
			return nil, diag.ProviderError(diag.Span{}, "job references service %q, which has no definition", name)
		}
		body := map[string]any{"image": svc.Image}
		if len(svc.Environment) > 0 {
			body["env"] = svc.Environment
		}
		out.Add(name, body)
	}
	return out, nil
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// skipCheckGate is the if: expression every step after a skip-check
// probe is gated with, reading back the output the probe's own
// `cigen skip-check` invocation wrote via $GITHUB_OUTPUT (spec.md 4.6
// step 2, 4.7).
const skipCheckGate = "steps.skip_check.outputs.skip != 'true'"

// renderSteps converts synthesized steps to GitHub Actions step YAML.
// Once a StepSkipCheck is rendered, every later step's if: is extended
// with skipCheckGate so the whole remainder of the job is skipped on a
// cache hit, the GitHub Actions realization of the same early-exit
// step spec.md 4.6 describes (CircleCI's emitter instead halts the job
// outright via circleci-agent, since it has no per-step conditional).
func renderSteps(id graph.NodeID, steps []model.Step, caches []cacheengine.ResolvedCache) ([]any, []*diag.Diagnostic, *diag.Diagnostic) {
	var warnings []*diag.Diagnostic
	out := make([]any, 0, len(steps))
	gate := ""
	for _, s := range steps {
		rendered, err := renderStep(s, caches)
		if err != nil {
			return nil, warnings, diag.ProviderError(diag.Span{}, "job %s: %s", id, err.Error())
		}
		if rendered == nil {
			if s.Kind == model.StepUsesModule {
				warnings = append(warnings, diag.Warning(diag.ProviderError(diag.Span{}, "job %s: uses_module %q targets provider %q, not github-actions; step dropped", id, s.UsesModule.Module, s.UsesModule.Provider)))
			}
			continue
		}
		if s.Kind == model.StepSkipCheck {
			out = append(out, rendered)
			gate = skipCheckGate
			continue
		}
		out = append(out, applyGate(rendered, gate))
	}
	return out, warnings, nil
}

// applyGate extends v's if: with gate (AND-ed onto any existing
// condition), or leaves v untouched when gate is empty.
func applyGate(v any, gate string) any {
	if gate == "" {
		return v
	}
	om, ok := v.(emit.OrderedMap)
	if !ok {
		return v
	}
	for i, e := range om {
		if e.Key == "if" {
			existing, _ := e.Value.(string)
			om[i].Value = combineIf(existing, gate)
			return om
		}
	}
	om.Add("if", gate)
	return om
}

func combineIf(existing, gate string) string {
	if existing == "" {
		return gate
	}
	return existing + " && " + gate
}

// stepIf maps the step sum type's provider-neutral When field to
// GitHub's if: expression.
func stepIf(when string) string {
	switch when {
	case "always":
		return "always()"
	case "on_failure":
		return "failure()"
	default:
		return ""
	}
}

func renderStep(s model.Step, caches []cacheengine.ResolvedCache) (any, error) {
	switch s.Kind {
	case model.StepCheckout:
		m := map[string]any{"uses": "actions/checkout@v4"}
		if s.Checkout != nil && s.Checkout.Path != "" {
			m["with"] = map[string]any{"path": s.Checkout.Path}
		}
		return emit.SortedMap(m), nil

	case model.StepRun:
		r := s.Run
		m := map[string]any{"run": r.Command}
		if r.Name != "" {
			m["name"] = r.Name
		}
		if len(r.Environment) > 0 {
			m["env"] = r.Environment
		}
		if r.WorkingDir != "" {
			m["working-directory"] = r.WorkingDir
		}
		if cond := stepIf(r.When); cond != "" {
			m["if"] = cond
		}
		return emit.SortedMap(m), nil

	case model.StepRestoreCache:
		c, ok := findCache(caches, s.RestoreCache.Name)
		if !ok {
			return nil, fmt.Errorf("restore_cache references unresolved cache %q", s.RestoreCache.Name)
		}
		return emit.SortedMap(map[string]any{
			"uses": "actions/cache/restore@v4",
			"id":   "cache-" + sanitizeID(c.Name),
			"with": map[string]any{
				"path":              strings.Join(c.Paths, "\n"),
				"key":               c.Key,
				"restore-keys":      strings.Join(c.RestoreKeys, "\n"),
			},
		}), nil

	case model.StepSaveCache:
		c, ok := findCache(caches, s.SaveCache.Name)
		if !ok {
			return nil, fmt.Errorf("save_cache references unresolved cache %q", s.SaveCache.Name)
		}
		return emit.SortedMap(map[string]any{
			"uses": "actions/cache/save@v4",
			"if":   "always()",
			"with": map[string]any{
				"path": strings.Join(c.Paths, "\n"),
				"key":  c.Key,
			},
		}), nil

	case model.StepStoreTestResults:
		return emit.SortedMap(map[string]any{
			"uses": "actions/upload-artifact@v4",
			"if":   "always()",
			"with": map[string]any{
				"name": "test-results",
				"path": s.StoreTestResults.Path,
			},
		}), nil

	case model.StepStoreArtifacts:
		return emit.SortedMap(map[string]any{
			"uses": "actions/upload-artifact@v4",
			"with": map[string]any{
				"name": artifactName(s.StoreArtifacts.Path),
				"path": s.StoreArtifacts.Path,
			},
		}), nil

	case model.StepUsesModule:
		if s.UsesModule.Provider != Name {
			return nil, nil
		}
		m := map[string]any{"uses": s.UsesModule.Module}
		if len(s.UsesModule.With) > 0 {
			m["with"] = s.UsesModule.With
		}
		return emit.SortedMap(m), nil

	case model.StepUsesCommand:
		return nil, fmt.Errorf("uses_command step %q reached the emitter unexpanded", s.UsesCommand.Name)

	case model.StepSkipCheck:
		return emit.SortedMap(map[string]any{
			"id":   "skip_check",
			"name": "skip-check",
			"run":  fmt.Sprintf("cigen skip-check %s", shellQuote(s.SkipCheck.Key)),
		}), nil

	case model.StepMarkDone:
		return emit.SortedMap(map[string]any{
			"name": "mark skip-cache done",
			"run":  fmt.Sprintf("cigen skip-check --mark %s", shellQuote(s.MarkDone.Key)),
		}), nil

	default:
		return nil, fmt.Errorf("unhandled step kind %q", s.Kind)
	}
}

// shellQuote wraps s in single quotes for embedding in a generated run
// command, escaping any single quote it contains the POSIX way.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func artifactName(p string) string {
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return "artifact"
	}
	return base
}

func sanitizeID(name string) string {
	return strings.NewReplacer("/", "-", " ", "-").Replace(name)
}

func findCache(caches []cacheengine.ResolvedCache, name string) (cacheengine.ResolvedCache, bool) {
	for _, c := range caches {
		if c.Name == name {
			return c, true
		}
	}
	return cacheengine.ResolvedCache{}, false
}
