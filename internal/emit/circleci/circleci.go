// Package circleci emits CircleCI 2.1 pipeline configuration from a
// resolved graph.Graph and its synthesized steps. It follows the same
// assemble-a-map-then-yaml.Marshal technique the teacher's
// internal/pipeline/gitlab/generator.go Pipeline.ToYAML uses (sorted
// job names folded onto a flat document map), generalized to
// CircleCI's job/workflow shape and to spec.md 4.7's arch-suffixed job
// names and approval-job workaround for requires_any.
package circleci

import (
	"context"
	"fmt"
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
const Name = "circleci"

// Emitter implements emit.Emitter for CircleCI.
type Emitter struct{}

// New returns a CircleCI Emitter.
func New() *Emitter { return &Emitter{} }

// Name returns "circleci".
func (e *Emitter) Name() string { return Name }

// Generate renders in's graph and synthesized steps into CircleCI
// config fragments. When any job has an OR dependency, CircleCI has no
// native way to express "proceed once any of these succeeded" across a
// static workflow, so this emitter falls back to the documented
// approval-job workaround (spec.md 4.7, SPEC_FULL 12) and, since that
// workaround needs a job whose requires list isn't known until the
// graph is built, always pairs it with the dynamic-config two-file
// split.
func (e *Emitter) Generate(ctx context.Context, in emit.Input) ([]emit.Fragment, []*diag.Diagnostic) {
	var diags []*diag.Diagnostic

	ccJobs := emit.OrderedMap{}
	workflowDocs := emit.OrderedMap{}
	hasApproval := false
	approvalsByWorkflow := map[string][]string{}

	workflowNames := make([]string, 0, len(in.Workflows))
	for name := range in.Workflows {
		workflowNames = append(workflowNames, name)
	}
	sort.Strings(workflowNames)

	for _, wfName := range workflowNames {
		wf := in.Workflows[wfName]
		jobIDs := wf.JobIDs()

		var wfJobs []any
		for _, jobID := range jobIDs {
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

				ccJob, warnings, d := buildJob(id, node, in)
				diags = append(diags, warnings...)
				if d != nil {
					diags = append(diags, d)
					continue
				}
				ccJobs.Add(jobName(id), ccJob)

				andDeps, orDeps := dependencies(in.Graph, id)
				entry, extraJobs, extraRefs := workflowEntry(id, andDeps, orDeps, in.Config)
				if len(extraJobs) > 0 {
					hasApproval = true
					approvalsByWorkflow[wfName] = append(approvalsByWorkflow[wfName], approvalName(id))
					extraNames := make([]string, 0, len(extraJobs))
					for name := range extraJobs {
						extraNames = append(extraNames, name)
					}
					sort.Strings(extraNames)
					for _, name := range extraNames {
						ccJobs.Add(name, extraJobs[name])
					}
				}
				wfJobs = append(wfJobs, entry)
				wfJobs = append(wfJobs, extraRefs...)
			}
		}

		if in.Config.CircleCI.FixGitHubStatus {
			if contexts := approvalsByWorkflow[wfName]; len(contexts) > 0 {
				sort.Strings(contexts)
				wfJobs = append(wfJobs, map[string]any{
					patchStatusJobName: map[string]any{"requires": contexts},
				})
			}
		}

		workflowDoc := emit.OrderedMap{}
		workflowDoc.Add("jobs", wfJobs)
		workflowDocs.Add(wfName, workflowDoc)
	}

	if in.Config.CircleCI.FixGitHubStatus && hasApproval {
		ccJobs.Add(patchStatusJobName, patchStatusJob(approvalsByWorkflow))
	}

	content := emit.OrderedMap{}
	content.Add("version", 2.1)
	content.Add("jobs", ccJobs)
	content.Add("workflows", workflowDocs)

	body, err := yaml.Marshal(content)
	if err != nil {
		diags = append(diags, diag.ProviderError(diag.Span{}, "marshaling circleci config: %s", err))
		return nil, diags
	}

	dynamic := in.Config.CircleCI.Dynamic || hasApproval
	if !dynamic {
		return []emit.Fragment{{Path: ".circleci/config.yml", Content: body}}, diags
	}

	setup, err := marshalSetup()
	if err != nil {
		diags = append(diags, diag.ProviderError(diag.Span{}, "marshaling circleci setup config: %s", err))
		return nil, diags
	}

	return []emit.Fragment{
		{Path: ".circleci/config.yml", Content: setup},
		{Path: ".circleci/continue-config.yml", Content: body},
	}, diags
}

// marshalSetup renders the small setup-workflow config that hands off
// to continue-config.yml via the circleci/continuation orb — the
// half of the two-file split that never changes between runs.
func marshalSetup() ([]byte, error) {
	doc := emit.OrderedMap{}
	doc.Add("version", 2.1)
	doc.Add("setup", true)
	doc.Add("orbs", emit.SortedMap(map[string]any{"continuation": "circleci/continuation@0.3.0"}))

	triggerJob := emit.OrderedMap{}
	triggerJob.Add("docker", []map[string]string{{"image": "cimg/base:current"}})
	triggerJob.Add("steps", []any{
		"checkout",
		map[string]any{"continuation/continue": map[string]any{
			"configuration_path": ".circleci/continue-config.yml",
		}},
	})
	jobs := emit.OrderedMap{}
	jobs.Add("trigger-continuation", triggerJob)
	doc.Add("jobs", jobs)

	wf := emit.OrderedMap{}
	wf.Add("jobs", []any{"trigger-continuation"})
	workflows := emit.OrderedMap{}
	workflows.Add("setup", wf)
	doc.Add("workflows", workflows)

	return yaml.Marshal(doc)
}

// jobName derives the provider-native job name spec.md 4.7 requires:
// workflow and job ID, arch-suffixed unless the job has no matrix.
func jobName(id graph.NodeID) string {
	if id.Arch == "" {
		return fmt.Sprintf("%s_%s", id.Workflow, id.Job)
	}
	return fmt.Sprintf("%s_%s_%s", id.Workflow, id.Job, id.Arch)
}

func approvalName(id graph.NodeID) string {
	return jobName(id) + "_approval"
}

func shimName(id, dep graph.NodeID) string {
	return jobName(id) + "_approve_via_" + jobName(dep)
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

// workflowEntry builds this node's entry in the workflow's jobs list
// plus, when it has OR dependencies, the approval job and one shim job
// per OR source CircleCI needs to approximate requires_any (spec.md
// 4.7, 8; SPEC_FULL 12).
func workflowEntry(id graph.NodeID, and, or []graph.NodeID, cfg *model.Config) (entry any, extraJobs map[string]any, extraRefs []any) {
	reqs := make([]string, 0, len(and)+1)
	for _, d := range and {
		reqs = append(reqs, jobName(d))
	}

	if len(or) == 0 {
		sort.Strings(reqs)
		if len(reqs) == 0 {
			return jobName(id), nil, nil
		}
		m := map[string]any{}
		m[jobName(id)] = map[string]any{"requires": reqs}
		return m, nil, nil
	}

	extraJobs = map[string]any{}
	approval := approvalName(id)
	extraJobs[approval] = map[string]any{"type": "approval"}
	extraRefs = append(extraRefs, approval)

	apiTokenEnv := cfg.CircleCI.APIToken
	if apiTokenEnv == "" {
		apiTokenEnv = "CIRCLE_TOKEN"
	}

	for _, dep := range or {
		shim := shimName(id, dep)
		extraJobs[shim] = map[string]any{
			"docker": []map[string]string{{"image": "cimg/base:current"}},
			"steps": []any{
				map[string]any{"run": map[string]any{
					"name":    fmt.Sprintf("approve %s if %s succeeded", approval, jobName(dep)),
					"command": approvalCommand(apiTokenEnv, approval),
				}},
			},
		}
		extraRefs = append(extraRefs, map[string]any{shim: map[string]any{"requires": []string{jobName(dep)}}})
	}

	reqs = append(reqs, approval)
	sort.Strings(reqs)
	m := map[string]any{}
	m[jobName(id)] = map[string]any{"requires": reqs}
	return m, extraJobs, extraRefs
}

// approvalCommand is the shell invoked by each OR-dependency shim job:
// it calls `cigen circleci approve`, which looks up the approval job's
// id within the running workflow via internal/circleciapi and approves
// it. APIToken is read from apiTokenEnv at run time by the cigen
// binary, not interpolated into the command here.
func approvalCommand(apiTokenEnv, approvalJob string) string {
	return fmt.Sprintf("cigen circleci approve --token-env %s %s", shellQuote(apiTokenEnv), shellQuote(approvalJob))
}

// shellQuote wraps s in single quotes for embedding in a generated
// run command, escaping any single quote it contains the POSIX way.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

const patchStatusJobName = "patch_approval_jobs_status"

// patchStatusJob builds the job Config.CircleCI.FixGitHubStatus adds:
// one run step that sets every approval-gated job's GitHub commit
// status to success via internal/ghstatus, since CircleCI's own
// pipeline-wide status never reaches the per-check context GitHub's
// required-checks UI is looking at.
func patchStatusJob(approvalsByWorkflow map[string][]string) map[string]any {
	seen := map[string]bool{}
	var contexts []string
	for _, names := range approvalsByWorkflow {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				contexts = append(contexts, n)
			}
		}
	}
	sort.Strings(contexts)

	args := make([]string, len(contexts))
	for i, c := range contexts {
		args[i] = shellQuote(c)
	}

	return map[string]any{
		"docker": []map[string]string{{"image": "cimg/base:current"}},
		"steps": []any{
			map[string]any{"run": map[string]any{
				"name":    "patch approval jobs GitHub status",
				"command": fmt.Sprintf("cigen circleci fix-github-status %s", strings.Join(args, " ")),
			}},
		},
	}
}

// buildJob renders one expanded job instance's CircleCI job body.
func buildJob(id graph.NodeID, node *graph.Node, in emit.Input) (emit.OrderedMap, []*diag.Diagnostic, *diag.Diagnostic) {
	job := node.Job
	out := emit.OrderedMap{}

	if job.Image != "" {
		out.Add("docker", []map[string]string{{"image": job.Image}})
	}
	if rc := resourceClass(in.Config, job, id.Arch); rc != "" {
		out.Add("resource_class", rc)
	}
	if job.Parallelism > 1 {
		out.Add("parallelism", job.Parallelism)
	}
	if len(job.Environment) > 0 {
		out.Add("environment", emit.SortedMap(toAnyMap(job.Environment)))
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

func resourceClass(cfg *model.Config, job *model.Job, arch string) string {
	if job.ResourceClass == "" {
		return ""
	}
	tiers, ok := cfg.ResourceClasses[arch]
	if !ok {
		return ""
	}
	return tiers[job.ResourceClass]
}

func toAnyMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// renderSteps converts a synthesized step sequence to CircleCI step
// YAML. A step this provider can't express (an unrecognized
// uses_module provider) is dropped with a Warning diagnostic rather
// than failing the whole job, matching spec.md 4.7's "a bad node
// doesn't abort its siblings".
func renderSteps(id graph.NodeID, steps []model.Step, caches []cacheengine.ResolvedCache) ([]any, []*diag.Diagnostic, *diag.Diagnostic) {
	var warnings []*diag.Diagnostic
	out := make([]any, 0, len(steps))
	for _, s := range steps {
		rendered, err := renderStep(s, caches)
		if err != nil {
			return nil, warnings, diag.ProviderError(diag.Span{}, "job %s: %s", id, err.Error())
		}
		if rendered == nil {
			if s.Kind == model.StepUsesModule {
				warnings = append(warnings, diag.Warning(diag.ProviderError(diag.Span{}, "job %s: uses_module %q targets provider %q, not circleci; step dropped", id, s.UsesModule.Module, s.UsesModule.Provider)))
			}
			continue
		}
		out = append(out, rendered)
	}
	return out, warnings, nil
}

func renderStep(s model.Step, caches []cacheengine.ResolvedCache) (any, error) {
	switch s.Kind {
	case model.StepCheckout:
		if s.Checkout != nil && s.Checkout.Path != "" {
			return map[string]any{"checkout": map[string]any{"path": s.Checkout.Path}}, nil
		}
		return "checkout", nil

	case model.StepRun:
		r := s.Run
		m := map[string]any{"command": r.Command}
		if r.Name != "" {
			m["name"] = r.Name
		}
		if len(r.Environment) > 0 {
			m["environment"] = r.Environment
		}
		if r.WorkingDir != "" {
			m["working_directory"] = r.WorkingDir
		}
		if r.When != "" {
			m["when"] = r.When
		}
		return map[string]any{"run": emit.SortedMap(m)}, nil

	case model.StepRestoreCache:
		c, ok := findCache(caches, s.RestoreCache.Name)
		if !ok {
			return nil, fmt.Errorf("restore_cache references unresolved cache %q", s.RestoreCache.Name)
		}
		keys := append([]string{c.Key}, c.RestoreKeys...)
		return map[string]any{"restore_cache": map[string]any{"keys": keys}}, nil

	case model.StepSaveCache:
		c, ok := findCache(caches, s.SaveCache.Name)
		if !ok {
			return nil, fmt.Errorf("save_cache references unresolved cache %q", s.SaveCache.Name)
		}
		return map[string]any{"save_cache": map[string]any{"key": c.Key, "paths": c.Paths}}, nil

	case model.StepStoreTestResults:
		return map[string]any{"store_test_results": map[string]any{"path": s.StoreTestResults.Path}}, nil

	case model.StepStoreArtifacts:
		return map[string]any{"store_artifacts": map[string]any{"path": s.StoreArtifacts.Path}}, nil

	case model.StepUsesModule:
		if s.UsesModule.Provider != Name {
			return nil, nil
		}
		return map[string]any{s.UsesModule.Module: s.UsesModule.With}, nil

	case model.StepUsesCommand:
		// internal/synth.ExpandCommands inlines uses_command steps
		// before emission ever sees them; one surviving here means
		// expansion was skipped upstream, not something this emitter
		// can render.
		return nil, fmt.Errorf("uses_command step %q reached the emitter unexpanded", s.UsesCommand.Name)

	case model.StepSkipCheck:
		// CircleCI has no per-step conditional tied to a prior step's
		// output, so the early-exit probe is a single run step: on a
		// cache hit, `cigen skip-check` itself calls circleci-agent step
		// halt, ending the job right here instead of gating every
		// following step individually.
		return map[string]any{"run": emit.SortedMap(map[string]any{
			"name":    "skip-check",
			"command": fmt.Sprintf("cigen skip-check %s", shellQuote(s.SkipCheck.Key)),
		})}, nil

	case model.StepMarkDone:
		return map[string]any{"run": emit.SortedMap(map[string]any{
			"name":    "mark skip-cache done",
			"command": fmt.Sprintf("cigen skip-check --mark %s", shellQuote(s.MarkDone.Key)),
		})}, nil

	default:
		return nil, fmt.Errorf("unhandled step kind %q", s.Kind)
	}
}

func findCache(caches []cacheengine.ResolvedCache, name string) (cacheengine.ResolvedCache, bool) {
	for _, c := range caches {
		if c.Name == name {
			return c, true
		}
	}
	return cacheengine.ResolvedCache{}, false
}
