// Package synth synthesizes a job's final, provider-agnostic step
// sequence: checkout, the conditional skip-check, per-declaration cache
// restore, the package-install step desugared from job.packages, the
// user-authored steps (with uses_command expanded inline), cache-path
// validation, cache save, the skip-cache exists-marker write, and
// artifact/test-result forwarding — the nine-step order spec.md 4.6
// fixes (SPEC_FULL 11).
package synth

import (
	"fmt"

	"github.com/cigenhq/cigen/internal/cacheengine"
	"github.com/cigenhq/cigen/internal/tmpl"
	"github.com/cigenhq/cigen/pkg/model"
)

// Options controls the parts of synthesis that depend on the target
// workflow/provider rather than the job alone.
type Options struct {
	// EnableSkipCheck gates step 2. internal/compile sets it for every
	// job that declares source_files; the workflow's dynamic setting and
	// the target provider do not affect it.
	EnableSkipCheck bool

	// SkipCacheKey is the key the skip-check step probes and, on a
	// cache miss, the exists-marker step later writes.
	SkipCacheKey string

	// Commands is the reusable command library uses_command steps
	// expand against.
	Commands map[string]*model.Command
}

// Synthesize produces the full step sequence for job, given its
// already-resolved caches.
func Synthesize(job *model.Job, caches []cacheengine.ResolvedCache, opts Options) ([]model.Step, error) {
	var steps []model.Step

	// 1. checkout
	steps = append(steps, model.Step{Kind: model.StepCheckout, Checkout: &model.CheckoutStep{}})

	// 2. conditional skip-check
	if opts.EnableSkipCheck && job.SourceFiles != "" {
		steps = append(steps, skipCheckStep(opts.SkipCacheKey))
	}

	// 3. cache-restore-per-declaration
	for _, rc := range caches {
		steps = append(steps, model.Step{Kind: model.StepRestoreCache, RestoreCache: &model.CacheStepRef{Name: rc.Name}})
	}

	// 4. package-install-when-declared
	if len(job.Packages) > 0 {
		steps = append(steps, packageInstallStep(job.Packages))
	}

	// 5. user-authored steps, with uses_command expanded inline
	userSteps, err := ExpandCommands(job.Steps, opts.Commands)
	if err != nil {
		return nil, err
	}
	steps = append(steps, userSteps...)

	// 6. cache-path-validation
	for _, rc := range caches {
		steps = append(steps, cacheValidateStep(rc))
	}

	// 7. cache-save
	for _, rc := range caches {
		steps = append(steps, model.Step{Kind: model.StepSaveCache, SaveCache: &model.CacheStepRef{Name: rc.Name}})
	}

	// 8. exists-marker (skip-cache write), only meaningful alongside
	// the skip-check this job opted into.
	if opts.EnableSkipCheck && job.SourceFiles != "" {
		steps = append(steps, existsMarkerStep(opts.SkipCacheKey))
	}

	// 9. artifact / test-result forwarding
	if job.TestResults != "" {
		steps = append(steps, model.Step{Kind: model.StepStoreTestResults, StoreTestResults: &model.PathStep{Path: job.TestResults}})
	}
	for _, path := range job.Artifacts {
		steps = append(steps, model.Step{Kind: model.StepStoreArtifacts, StoreArtifacts: &model.PathStep{Path: path}})
	}

	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("synthesized an invalid step: %w", err)
		}
	}

	return steps, nil
}

// skipCheckStep is the provider-agnostic early-exit probe: each emitter
// renders it in its own native idiom (GitHub Actions: a step with
// id: skip_check and outputs.skip, gating every later step with an
// if:; CircleCI: a run step that halts the job via circleci-agent when
// the key is already marked done), both backed by the same
// `cigen skip-check` subcommand calling into internal/skipcache
// (spec.md 4.6 step 2, 4.7).
func skipCheckStep(key string) model.Step {
	return model.Step{Kind: model.StepSkipCheck, SkipCheck: &model.SkipCheckStep{Key: key}}
}

// existsMarkerStep is step 8's skip-cache write: it only runs once
// every step up to it succeeded.
func existsMarkerStep(key string) model.Step {
	return model.Step{Kind: model.StepMarkDone, MarkDone: &model.SkipCheckStep{Key: key}}
}

func packageInstallStep(packages []string) model.Step {
	cmd := "cigen-install"
	for _, p := range packages {
		cmd += " " + p
	}
	return model.Step{Kind: model.StepRun, Run: &model.RunStep{Name: "install packages", Command: cmd}}
}

func cacheValidateStep(rc cacheengine.ResolvedCache) model.Step {
	cmd := "test"
	for i, p := range rc.Paths {
		if i > 0 {
			cmd += " -a"
		}
		cmd += fmt.Sprintf(" -e %q", p)
	}
	return model.Step{
		Kind: model.StepRun,
		Run: &model.RunStep{
			Name:    fmt.Sprintf("validate cache paths for %s", rc.Name),
			Command: cmd,
			When:    "always",
		},
	}
}

// ExpandCommands replaces every uses_command step with the referenced
// Command's own steps, substituting its declared parameters (caller
// overrides winning over the command's own defaults) into each
// expanded run step's shell command via internal/tmpl. Non-command
// steps pass through unchanged.
func ExpandCommands(steps []model.Step, commands map[string]*model.Command) ([]model.Step, error) {
	var out []model.Step
	for _, s := range steps {
		if s.Kind != model.StepUsesCommand {
			out = append(out, s)
			continue
		}

		cmd, ok := commands[s.UsesCommand.Name]
		if !ok {
			return nil, fmt.Errorf("uses_command %q: command not found", s.UsesCommand.Name)
		}

		params := make(map[string]any, len(cmd.Parameters))
		for name, p := range cmd.Parameters {
			params[name] = p.Default
		}
		for name, v := range s.UsesCommand.Parameters {
			params[name] = v
		}

		engine := tmpl.New("", params)
		for _, cs := range cmd.Steps {
			expanded := cs
			if cs.Kind == model.StepRun && cs.Run != nil {
				rendered, err := engine.ExpandInline(cs.Run.Command)
				if err != nil {
					return nil, fmt.Errorf("expanding command %q step: %w", cmd.Name, err)
				}
				run := *cs.Run
				run.Command = rendered
				expanded = model.Step{Kind: model.StepRun, Run: &run}
			}
			out = append(out, expanded)
		}
	}
	return out, nil
}
