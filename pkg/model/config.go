// Package model defines the provider-agnostic pipeline description that
// every other package operates on: the root Config, its Workflows and
// Jobs, the Step sum type, and the cache/version/source-file reference
// types a Job can point at. Everything here is pure data — no package
// under pkg/model talks to the filesystem, a template engine, or a
// provider; internal/loader fills it in, internal/graph and
// internal/synth consume it.
package model

// Config is the root of a loaded pipeline description: one set of
// provider/output settings shared by every workflow, plus the named
// collections (cache definitions, version sources, source-file groups,
// reusable commands) that jobs reference by name.
type Config struct {
	// Provider selects which native CI system to emit for. "circleci",
	// "github-actions", or the Name of an entry under Plugins.
	Providers []string `yaml:"providers" json:"providers" jsonschema:"description=Target CI providers to emit,minItems=1"`

	// OutputDir is the root directory native config files are written
	// to (provider emitters choose their own conventional filenames
	// under it, e.g. .circleci/config.yml or .github/workflows/*.yml).
	OutputDir string `yaml:"output_dir,omitempty" json:"output_dir,omitempty" jsonschema:"description=Root directory for generated native config files,default=."`

	// Architectures is the default matrix dimension every job expands
	// across unless it declares its own.
	Architectures []string `yaml:"architectures,omitempty" json:"architectures,omitempty" jsonschema:"description=Default architecture matrix (e.g. amd64\\, arm64)"`

	// ResourceClasses maps architecture -> tier name -> provider-native
	// resource class string (spec.md job.resource_class references a
	// tier name here, not a provider string directly).
	ResourceClasses map[string]map[string]string `yaml:"resource_classes,omitempty" json:"resource_classes,omitempty" jsonschema:"description=Architecture to tier to provider-native resource class mapping"`

	// Vars supplies the lowest-precedence template variables (spec.md
	// 4.2's vars < env < CLI ordering).
	Vars map[string]string `yaml:"vars,omitempty" json:"vars,omitempty" jsonschema:"description=Default template variables"`

	// CacheDefinitions are named, inheritable cache shapes jobs select
	// via job.cache.<name>.
	CacheDefinitions map[string]*CacheDefinition `yaml:"cache_definitions,omitempty" json:"cache_definitions,omitempty" jsonschema:"description=Named reusable cache definitions"`

	// VersionSources are named tool-version probes cache keys can fold
	// in (job.cache.<name>.version references one by name).
	VersionSources map[string]*VersionSource `yaml:"version_sources,omitempty" json:"version_sources,omitempty" jsonschema:"description=Named tool version probes"`

	// SourceFileGroups are named, composable glob+reference sets used
	// by both hashing (C4) and cache-key checksums (C5).
	SourceFileGroups map[string]*SourceFileGroup `yaml:"source_file_groups,omitempty" json:"source_file_groups,omitempty" jsonschema:"description=Named reusable source-file groups"`

	// Services are named long-running containers jobs can attach by
	// reference (database, message broker, …).
	Services map[string]*Service `yaml:"services,omitempty" json:"services,omitempty" jsonschema:"description=Named service container definitions"`

	// CircleCI holds provider-specific knobs that have no GitHub
	// Actions equivalent.
	CircleCI CircleCIConfig `yaml:"circleci,omitempty" json:"circleci,omitempty" jsonschema:"description=CircleCI-specific settings"`

	// GitHubActions holds provider-specific knobs that have no
	// CircleCI equivalent.
	GitHubActions GitHubActionsConfig `yaml:"github_actions,omitempty" json:"github_actions,omitempty" jsonschema:"description=GitHub Actions-specific settings"`

	// Plugins lists external provider plugins to spawn in addition to
	// (or instead of) the built-in CircleCI/GitHub Actions emitters.
	Plugins []PluginRef `yaml:"plugins,omitempty" json:"plugins,omitempty" jsonschema:"description=External provider plugins to load"`

	// SkipCache configures the backend `cigen skip-check` (invoked by
	// C7's synthesized skip-check/mark-done steps) stores sentinel keys
	// in when the provider has no native mechanism of its own
	// (internal/skipcache, SPEC_FULL 14).
	SkipCache SkipCacheConfig `yaml:"skip_cache,omitempty" json:"skip_cache,omitempty" jsonschema:"description=Skip-cache backend settings"`
}

// SkipCacheConfig selects and configures one internal/skipcache
// backend. Backend defaults to "local".
type SkipCacheConfig struct {
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"description=Skip-cache storage backend,enum=local,enum=redis,enum=s3,default=local"`

	// Dir is the sentinel-file directory for Backend "local".
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=Sentinel file directory for the local backend,default=.cigen/skip-cache"`

	// RedisAddr/RedisPrefix configure Backend "redis".
	RedisAddr   string `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty" jsonschema:"description=Redis server address for the redis backend"`
	RedisPrefix string `yaml:"redis_prefix,omitempty" json:"redis_prefix,omitempty" jsonschema:"description=Key prefix for the redis backend"`

	// S3Bucket/S3Prefix configure Backend "s3".
	S3Bucket string `yaml:"s3_bucket,omitempty" json:"s3_bucket,omitempty" jsonschema:"description=Bucket name for the s3 backend"`
	S3Prefix string `yaml:"s3_prefix,omitempty" json:"s3_prefix,omitempty" jsonschema:"description=Key prefix for the s3 backend"`
}

// CircleCIConfig captures the CircleCI-only escape hatches described in
// spec.md 4.7: the dynamic-config two-file split and the
// commit-status-patching shim for OR-dependencies.
type CircleCIConfig struct {
	// Dynamic enables the setup-workflow + continuation-config split
	// required when any job uses requires_any.
	Dynamic bool `yaml:"dynamic,omitempty" json:"dynamic,omitempty" jsonschema:"description=Emit a two-file dynamic-config pipeline"`

	// FixGitHubStatus appends a patch_approval_jobs_status job that
	// rewrites the GitHub commit status left behind by CircleCI's
	// approval-job workaround.
	FixGitHubStatus bool `yaml:"fix_github_status,omitempty" json:"fix_github_status,omitempty" jsonschema:"description=Patch GitHub commit status after approval-job workaround jobs run"`

	// APIToken names the environment variable holding a CircleCI API
	// token, used by the automated_approval command.
	APIToken string `yaml:"api_token_env,omitempty" json:"api_token_env,omitempty" jsonschema:"description=Environment variable holding a CircleCI API token,default=CIRCLE_TOKEN"`
}

// GitHubActionsConfig captures GitHub-Actions-only settings.
type GitHubActionsConfig struct {
	// WorkflowDir overrides the default .github/workflows output
	// directory.
	WorkflowDir string `yaml:"workflow_dir,omitempty" json:"workflow_dir,omitempty" jsonschema:"description=Directory workflow YAML files are written to,default=.github/workflows"`
}

// PluginRef names an external provider plugin and how to obtain it.
type PluginRef struct {
	// Name is the capability-namespaced provider name the plugin
	// claims (e.g. "gitlab-ci").
	Name string `yaml:"name" json:"name" jsonschema:"description=Provider name the plugin implements,required"`

	// Command is the local executable to spawn. Mutually exclusive
	// with OCIRef.
	Command string `yaml:"command,omitempty" json:"command,omitempty" jsonschema:"description=Local executable to spawn as the plugin"`

	// OCIRef is an oci://registry/image:tag reference resolved to a
	// local binary before spawn.
	OCIRef string `yaml:"oci_ref,omitempty" json:"oci_ref,omitempty" jsonschema:"description=OCI artifact reference to fetch the plugin binary from"`

	// Args are passed to the spawned plugin process.
	Args []string `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"description=Extra arguments passed to the plugin process"`
}

// DefaultConfig returns a Config with the defaults spec.md assumes when
// a field is omitted.
func DefaultConfig() *Config {
	return &Config{
		Providers:     []string{"circleci"},
		OutputDir:     ".",
		Architectures: []string{"amd64"},
		CircleCI: CircleCIConfig{
			APIToken: "CIRCLE_TOKEN",
		},
		GitHubActions: GitHubActionsConfig{
			WorkflowDir: ".github/workflows",
		},
		SkipCache: SkipCacheConfig{
			Backend: "local",
			Dir:     ".cigen/skip-cache",
		},
	}
}
