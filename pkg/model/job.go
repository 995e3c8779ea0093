package model

// Job is one unit of work in a workflow: an image/runner, a matrix of
// architectures it expands across, the dependency edges it declares on
// sibling jobs, and the cache/step/artifact behavior C7 synthesizes
// around its user-authored Steps.
type Job struct {
	// ID is the job's name within its workflow; combined with
	// workflow name and architecture to form the provider-native job
	// name (spec.md 4.7).
	ID string `yaml:"-" json:"-"`

	// Image is the container image (or, for providers without
	// container jobs, the runner label) this job executes in.
	Image string `yaml:"image,omitempty" json:"image,omitempty" jsonschema:"description=Container image or runner label"`

	// Architectures overrides the config-level default matrix for
	// this job only. Empty means "inherit Config.Architectures".
	Architectures []string `yaml:"architectures,omitempty" json:"architectures,omitempty" jsonschema:"description=Architecture matrix override for this job"`

	// ResourceClass names a tier key into Config.ResourceClasses,
	// resolved per architecture at emission time.
	ResourceClass string `yaml:"resource_class,omitempty" json:"resource_class,omitempty" jsonschema:"description=Resource class tier name"`

	// Parallelism splits this job into N provider-native parallel
	// runners (e.g. CircleCI's parallelism, a GitHub Actions matrix
	// dimension); 0/1 means no splitting.
	Parallelism int `yaml:"parallelism,omitempty" json:"parallelism,omitempty" jsonschema:"description=Number of parallel runners to split the job across,minimum=1"`

	// SourceFiles points at the SourceFileGroup the skip-check step
	// hashes to decide whether this job's work is already done
	// (spec.md 4.3, 4.6 step 2).
	SourceFiles string `yaml:"source_files,omitempty" json:"source_files,omitempty" jsonschema:"description=Source file group name used for the skip-check"`

	// Requires lists sibling job IDs that must all succeed before
	// this job starts (AND edges, spec.md 4.5).
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty" jsonschema:"description=Job IDs that must all succeed first"`

	// RequiresAny lists sibling job IDs where at least one succeeding
	// is sufficient (OR edges, spec.md 4.5, 4.7, 8).
	RequiresAny []string `yaml:"requires_any,omitempty" json:"requires_any,omitempty" jsonschema:"description=Job IDs where at least one succeeding is sufficient"`

	// Cache maps a cache name to a cache use; the name must match an
	// entry in Config.CacheDefinitions.
	Cache map[string]*CacheUse `yaml:"cache,omitempty" json:"cache,omitempty" jsonschema:"description=Cache uses keyed by local name"`

	// Packages is sugar for a package-install step: C7 (internal/synth)
	// synthesizes one `cigen-install` run step from it. It declares no
	// cache; Cache is left exactly as written.
	Packages []string `yaml:"packages,omitempty" json:"packages,omitempty" jsonschema:"description=Package manager packages to install and cache (sugar for cache + install step)"`

	// Services are service names resolved against Config.Services.
	Services []string `yaml:"services,omitempty" json:"services,omitempty" jsonschema:"description=Service container names attached to this job"`

	// Environment sets job-scoped environment variables.
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty" jsonschema:"description=Job-scoped environment variables"`

	// Steps is the user-authored step sequence C7 wraps with
	// checkout/skip-check/cache/artifact scaffolding.
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty" jsonschema:"description=User-authored step sequence"`

	// Artifacts names paths to persist as provider-native job
	// artifacts after the job completes.
	Artifacts []string `yaml:"artifacts,omitempty" json:"artifacts,omitempty" jsonschema:"description=Paths to persist as job artifacts"`

	// TestResults names a directory of machine-readable test reports
	// (JUnit XML, etc.) to surface through the provider's native test
	// reporting, when it has one.
	TestResults string `yaml:"test_results,omitempty" json:"test_results,omitempty" jsonschema:"description=Directory of test result reports to surface"`

	// Passthrough preserves unrecognized keys verbatim so an emitter
	// or plugin can still see provider-specific escape hatches without
	// the loader silently dropping them (spec.md 4.1).
	Passthrough map[string]any `yaml:"-" json:"-"`
}

// CacheUse is a job's reference to (and optional override of) a named
// cache definition.
type CacheUse struct {
	// Paths, when non-empty, replaces the paths of
	// Config.CacheDefinitions[name] for this job; every other part of
	// the definition is used as declared.
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty" jsonschema:"description=Override paths for this cache use"`
}

// Step is a closed sum type: exactly one of its Kind-selected fields is
// populated. Modeling it this way (rather than a map[string]any or an
// interface with dynamic dispatch) lets both synthesis and every
// emitter switch over Kind and get a compile error if a case is missed
// (spec.md 9).
type Step struct {
	Kind StepKind `yaml:"-" json:"-"`

	// Run holds the shell command for StepRun.
	Run *RunStep `yaml:"run,omitempty" json:"run,omitempty"`

	// Checkout holds StepCheckout's (usually empty) options.
	Checkout *CheckoutStep `yaml:"checkout,omitempty" json:"checkout,omitempty"`

	// RestoreCache names the cache (by local job.cache key) to
	// restore outside the automatic per-declaration restore C7 already
	// synthesizes — used for ad hoc restores mid-step-list.
	RestoreCache *CacheStepRef `yaml:"restore_cache,omitempty" json:"restore_cache,omitempty"`

	// SaveCache is the ad hoc analogue of RestoreCache.
	SaveCache *CacheStepRef `yaml:"save_cache,omitempty" json:"save_cache,omitempty"`

	// StoreTestResults names a directory of test reports, identical in
	// shape to Job.TestResults but usable mid-sequence.
	StoreTestResults *PathStep `yaml:"store_test_results,omitempty" json:"store_test_results,omitempty"`

	// StoreArtifacts names a path to persist, mid-sequence.
	StoreArtifacts *PathStep `yaml:"store_artifacts,omitempty" json:"store_artifacts,omitempty"`

	// UsesCommand invokes a named Command with parameters.
	UsesCommand *UsesCommandStep `yaml:"uses_command,omitempty" json:"uses_command,omitempty"`

	// UsesModule invokes a provider-native reusable unit (a GitHub
	// Action, a CircleCI orb command) that has no cross-provider
	// translation — each emitter renders it in its own vocabulary and
	// warns if it can't.
	UsesModule *UsesModuleStep `yaml:"uses_module,omitempty" json:"uses_module,omitempty"`

	// SkipCheck holds StepSkipCheck's key: the early-exit probe C7
	// synthesizes at step 2, backed by internal/skipcache (spec.md 4.6
	// step 2, 4.7's skip-check scenario).
	SkipCheck *SkipCheckStep `yaml:"-" json:"-"`

	// MarkDone holds StepMarkDone's key: the step 8 write that records
	// this job's skip-check key as done once every step up to it
	// succeeded.
	MarkDone *SkipCheckStep `yaml:"-" json:"-"`
}

// StepKind enumerates the closed set of step variants.
type StepKind int

const (
	StepRun StepKind = iota
	StepCheckout
	StepRestoreCache
	StepSaveCache
	StepStoreTestResults
	StepStoreArtifacts
	StepUsesCommand
	StepUsesModule
	StepSkipCheck
	StepMarkDone
)

func (k StepKind) String() string {
	switch k {
	case StepRun:
		return "run"
	case StepCheckout:
		return "checkout"
	case StepRestoreCache:
		return "restore_cache"
	case StepSaveCache:
		return "save_cache"
	case StepStoreTestResults:
		return "store_test_results"
	case StepStoreArtifacts:
		return "store_artifacts"
	case StepUsesCommand:
		return "uses_command"
	case StepUsesModule:
		return "uses_module"
	case StepSkipCheck:
		return "skip_check"
	case StepMarkDone:
		return "mark_done"
	default:
		return "unknown"
	}
}

// RunStep executes a shell command.
type RunStep struct {
	Name        string            `yaml:"name,omitempty" json:"name,omitempty"`
	Command     string            `yaml:"command" json:"command"`
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	WorkingDir  string            `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	When        string            `yaml:"when,omitempty" json:"when,omitempty" jsonschema:"enum=always,enum=on_success,enum=on_failure"`
}

// CheckoutStep checks out the repository.
type CheckoutStep struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// CacheStepRef refers to a job.cache key for ad hoc restore/save steps.
type CacheStepRef struct {
	Name string `yaml:"name" json:"name"`
}

// PathStep names a single path (artifact or test-result directory).
type PathStep struct {
	Path string `yaml:"path" json:"path"`
}

// UsesCommandStep invokes a reusable Command.
type UsesCommandStep struct {
	Name       string            `yaml:"name" json:"name"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// SkipCheckStep names the skip-cache key StepSkipCheck probes or
// StepMarkDone writes; Key is the already-computed cache key string
// (job/workflow/arch plus the source-file content digest), not a
// template.
type SkipCheckStep struct {
	Key string `yaml:"key" json:"key"`
}

// UsesModuleStep invokes a provider-native construct with no portable
// translation; Provider scopes it ("github-actions", "circleci") and
// With carries provider-specific parameters verbatim.
type UsesModuleStep struct {
	Provider string         `yaml:"provider" json:"provider"`
	Module   string         `yaml:"module" json:"module"`
	With     map[string]any `yaml:"with,omitempty" json:"with,omitempty"`
}
