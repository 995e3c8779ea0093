package model

import "sort"

// Workflow is a named group of jobs that share a trigger and, for
// providers that support it, a dynamic-generation boundary.
type Workflow struct {
	// Name identifies the workflow; it becomes part of every emitted
	// job's provider-native name.
	Name string `yaml:"name" json:"name" jsonschema:"description=Workflow name,required"`

	// Stage is an optional coarse grouping hint (e.g. "test",
	// "deploy") some providers render as a visual lane.
	Stage string `yaml:"stage,omitempty" json:"stage,omitempty" jsonschema:"description=Optional stage/lane grouping hint"`

	// Dynamic forces the two-file setup/continuation split on
	// providers that need it for requires_any (spec.md 4.7, 9).
	Dynamic bool `yaml:"dynamic,omitempty" json:"dynamic,omitempty" jsonschema:"description=Force dynamic-config generation for this workflow"`

	// On lists the trigger events this workflow responds to, in
	// whatever vocabulary the target provider understands natively
	// (push, pull_request, schedule, …); providers translate as best
	// they can and warn on constructs they can't express.
	On []string `yaml:"on,omitempty" json:"on,omitempty" jsonschema:"description=Trigger events"`

	// Jobs are the workflow's member jobs, keyed by job ID.
	Jobs map[string]*Job `yaml:"jobs" json:"jobs" jsonschema:"description=Jobs in this workflow,required"`
}

// JobIDs returns the workflow's job IDs in a stable, sorted order —
// used anywhere output must be deterministic (spec.md 4.7, 5).
func (w *Workflow) JobIDs() []string {
	ids := make([]string, 0, len(w.Jobs))
	for id := range w.Jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Command is a reusable step sequence referenced by StepUsesCommand.
type Command struct {
	Name        string `yaml:"name" json:"name" jsonschema:"description=Command name,required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty" jsonschema:"description=Human-readable description"`
	Parameters  map[string]CommandParameter `yaml:"parameters,omitempty" json:"parameters,omitempty" jsonschema:"description=Parameters the command accepts"`
	Steps       []Step `yaml:"steps" json:"steps" jsonschema:"description=Step sequence this command expands to,required"`
}

// CommandParameter describes one parameter a Command accepts.
type CommandParameter struct {
	Type    string `yaml:"type" json:"type" jsonschema:"description=Parameter type,enum=string,enum=boolean,enum=integer,required"`
	Default string `yaml:"default,omitempty" json:"default,omitempty" jsonschema:"description=Default value if the caller omits this parameter"`
}
