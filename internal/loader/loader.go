// Package loader reads a cigen project off disk into the typed model:
// the root config (merged from config.yml plus config/*.yml fragments),
// every workflow's jobs, and the shared command library. It is the
// first compiler phase (spec.md 4.1) and the only one that touches the
// filesystem directly on the config-reading side (internal/hashsum
// touches it again, later, to read file contents for checksums).
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v4"

	"github.com/cigenhq/cigen/internal/diag"
	"github.com/cigenhq/cigen/pkg/log"
	"github.com/cigenhq/cigen/pkg/model"
)

// Result is everything Load produces from a project root.
type Result struct {
	Config    *model.Config
	Workflows map[string]*model.Workflow
	Commands  map[string]*model.Command
}

// Load reads config.yml (or config/*.yml fragments), every
// workflows/<name>/config.yml plus workflows/<name>/jobs/*.yml, and
// commands/*.yml rooted at dir. Diagnostics accumulate in the returned
// Collector. The returned Result is nil when loading cannot continue
// at all: an unreadable root directory or a config fragment that
// cannot be read or parsed.
func Load(dir string) (*Result, *diag.Collector) {
	var c diag.Collector
	log.WithField("dir", dir).Debug("loading project")
	log.IncreasePadding()
	defer log.DecreasePadding()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		c.Add(diag.Wrap(diag.IOError(diag.Span{Path: dir}, "project root is not a readable directory"), err))
		return nil, &c
	}

	cfg := model.DefaultConfig()
	if err := loadConfig(dir, cfg, &c); err != nil {
		return nil, &c
	}

	commands := loadCommands(dir, &c)
	workflows := loadWorkflows(dir, &c)

	if err := ValidateSchema(dir, cfg, &c); err != nil {
		c.Add(diag.Wrap(diag.ConfigError(diag.Span{Path: dir}, "schema validation failed"), err))
	}

	return &Result{Config: cfg, Workflows: workflows, Commands: commands}, &c
}

// loadConfig merges config.yml with every config/*.yml fragment, deep
// merging maps and unioning the definition-name-keyed collections
// (cache_definitions, version_sources, source_file_groups, services)
// rather than letting a later fragment silently clobber an earlier
// one's entries (spec.md 4.1).
func loadConfig(dir string, cfg *model.Config, c *diag.Collector) error {
	paths := configFragmentPaths(dir)
	if len(paths) == 0 {
		log.Debug("no config.yml found, using defaults")
		return nil
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			c.Add(diag.Wrap(diag.IOError(diag.Span{Path: p}, "failed to read config fragment"), err))
			return err
		}

		var fragment model.Config
		if err := yaml.Unmarshal(data, &fragment); err != nil {
			c.Add(diag.Wrap(diag.ConfigError(diag.Span{Path: p}, "invalid YAML"), err))
			return err
		}

		mergeConfig(cfg, &fragment)
	}

	return nil
}

// configFragmentPaths returns config.yml (if present) followed by the
// lexically sorted contents of config/*.yml, mirroring the teacher's
// single-file config.Load but generalized to fragment merging.
func configFragmentPaths(dir string) []string {
	var paths []string
	if root := filepath.Join(dir, "config.yml"); fileExists(root) {
		paths = append(paths, root)
	}
	if root := filepath.Join(dir, "config.yaml"); fileExists(root) {
		paths = append(paths, root)
	}

	fragDir := filepath.Join(dir, "config")
	entries, err := os.ReadDir(fragDir)
	if err == nil {
		var names []string
		for _, e := range entries {
			if !e.IsDir() && isYAML(e.Name()) {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			paths = append(paths, filepath.Join(fragDir, n))
		}
	}

	return paths
}

func loadCommands(dir string, c *diag.Collector) map[string]*model.Command {
	commands := make(map[string]*model.Command)
	cmdDir := filepath.Join(dir, "commands")
	entries, err := os.ReadDir(cmdDir)
	if err != nil {
		return commands
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isYAML(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, n := range names {
		path := filepath.Join(cmdDir, n)
		data, err := os.ReadFile(path)
		if err != nil {
			c.Add(diag.Wrap(diag.IOError(diag.Span{Path: path}, "failed to read command"), err))
			continue
		}
		var cmd model.Command
		if err := yaml.Unmarshal(data, &cmd); err != nil {
			c.Add(diag.Wrap(diag.ConfigError(diag.Span{Path: path}, "invalid command YAML"), err))
			continue
		}
		if cmd.Name == "" {
			cmd.Name = strings.TrimSuffix(n, filepath.Ext(n))
		}
		commands[cmd.Name] = &cmd
	}

	return commands
}

func loadWorkflows(dir string, c *diag.Collector) map[string]*model.Workflow {
	workflows := make(map[string]*model.Workflow)
	wfRoot := filepath.Join(dir, "workflows")
	entries, err := os.ReadDir(wfRoot)
	if err != nil {
		log.Debug("no workflows directory found")
		return workflows
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		wf := &model.Workflow{Name: name, Jobs: make(map[string]*model.Job)}
		wfDir := filepath.Join(wfRoot, name)

		if cfgPath := filepath.Join(wfDir, "config.yml"); fileExists(cfgPath) {
			data, err := os.ReadFile(cfgPath)
			if err != nil {
				c.Add(diag.Wrap(diag.IOError(diag.Span{Path: cfgPath}, "failed to read workflow config"), err))
			} else if err := yaml.Unmarshal(data, wf); err != nil {
				c.Add(diag.Wrap(diag.ConfigError(diag.Span{Path: cfgPath}, "invalid workflow config"), err))
			}
		}
		wf.Name = name
		if wf.Jobs == nil {
			wf.Jobs = make(map[string]*model.Job)
		}

		jobsDir := filepath.Join(wfDir, "jobs")
		jobEntries, err := os.ReadDir(jobsDir)
		if err == nil {
			var jobNames []string
			for _, e := range jobEntries {
				if !e.IsDir() && isYAML(e.Name()) {
					jobNames = append(jobNames, e.Name())
				}
			}
			sort.Strings(jobNames)

			for _, jn := range jobNames {
				jobPath := filepath.Join(jobsDir, jn)
				data, err := os.ReadFile(jobPath)
				if err != nil {
					c.Add(diag.Wrap(diag.IOError(diag.Span{Path: jobPath}, "failed to read job"), err))
					continue
				}
				var job model.Job
				if err := yaml.Unmarshal(data, &job); err != nil {
					c.Add(diag.Wrap(diag.ConfigError(diag.Span{Path: jobPath}, "invalid job YAML"), err))
					continue
				}
				job.ID = strings.TrimSuffix(jn, filepath.Ext(jn))
				wf.Jobs[job.ID] = &job
			}
		}

		workflows[name] = wf
	}

	return workflows
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

// mergeConfig folds src into dst in place: scalars and slices from src
// override dst (except Plugins, which src appends to dst), while the
// name-keyed collections are unioned entry by
// entry so two fragments can each contribute cache definitions without
// one fragment having to repeat the other's (spec.md 4.1).
func mergeConfig(dst, src *model.Config) {
	if len(src.Providers) > 0 {
		dst.Providers = src.Providers
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if len(src.Architectures) > 0 {
		dst.Architectures = src.Architectures
	}
	for arch, tiers := range src.ResourceClasses {
		if dst.ResourceClasses == nil {
			dst.ResourceClasses = make(map[string]map[string]string)
		}
		if dst.ResourceClasses[arch] == nil {
			dst.ResourceClasses[arch] = make(map[string]string)
		}
		for tier, class := range tiers {
			dst.ResourceClasses[arch][tier] = class
		}
	}
	for k, v := range src.Vars {
		if dst.Vars == nil {
			dst.Vars = make(map[string]string)
		}
		dst.Vars[k] = v
	}
	for name, def := range src.CacheDefinitions {
		if dst.CacheDefinitions == nil {
			dst.CacheDefinitions = make(map[string]*model.CacheDefinition)
		}
		dst.CacheDefinitions[name] = def
	}
	for name, vs := range src.VersionSources {
		if dst.VersionSources == nil {
			dst.VersionSources = make(map[string]*model.VersionSource)
		}
		dst.VersionSources[name] = vs
	}
	for name, g := range src.SourceFileGroups {
		if dst.SourceFileGroups == nil {
			dst.SourceFileGroups = make(map[string]*model.SourceFileGroup)
		}
		dst.SourceFileGroups[name] = g
	}
	for name, svc := range src.Services {
		if dst.Services == nil {
			dst.Services = make(map[string]*model.Service)
		}
		dst.Services[name] = svc
	}
	if src.CircleCI.Dynamic {
		dst.CircleCI.Dynamic = true
	}
	if src.CircleCI.FixGitHubStatus {
		dst.CircleCI.FixGitHubStatus = true
	}
	if src.CircleCI.APIToken != "" {
		dst.CircleCI.APIToken = src.CircleCI.APIToken
	}
	if src.GitHubActions.WorkflowDir != "" {
		dst.GitHubActions.WorkflowDir = src.GitHubActions.WorkflowDir
	}
	if len(src.Plugins) > 0 {
		dst.Plugins = append(dst.Plugins, src.Plugins...)
	}
	if src.SkipCache.Backend != "" {
		dst.SkipCache.Backend = src.SkipCache.Backend
	}
	if src.SkipCache.Dir != "" {
		dst.SkipCache.Dir = src.SkipCache.Dir
	}
	if src.SkipCache.RedisAddr != "" {
		dst.SkipCache.RedisAddr = src.SkipCache.RedisAddr
	}
	if src.SkipCache.RedisPrefix != "" {
		dst.SkipCache.RedisPrefix = src.SkipCache.RedisPrefix
	}
	if src.SkipCache.S3Bucket != "" {
		dst.SkipCache.S3Bucket = src.SkipCache.S3Bucket
	}
	if src.SkipCache.S3Prefix != "" {
		dst.SkipCache.S3Prefix = src.SkipCache.S3Prefix
	}
}

// ResolveReferences walks every workflow's jobs and reports any
// dangling reference to a cache definition, version source, source
// file group, service, or command — the cross-checks that can only
// happen once the whole project is loaded (spec.md 4.1's reference
// validation step, ahead of graph building).
func ResolveReferences(r *Result) *diag.Collector {
	var c diag.Collector

	for wfName, wf := range r.Workflows {
		for jobID, job := range wf.Jobs {
			span := diag.Span{Path: fmt.Sprintf("workflows/%s/jobs/%s.yml", wfName, jobID)}

			if job.SourceFiles != "" {
				if _, ok := r.Config.SourceFileGroups[job.SourceFiles]; !ok {
					c.Add(diag.ReferenceError(span, "source_files %q not found", job.SourceFiles))
				}
			}
			for name := range job.Cache {
				if _, ok := r.Config.CacheDefinitions[name]; !ok {
					c.Add(diag.ReferenceError(span, "cache %q not found", name))
				}
			}
			for _, svc := range job.Services {
				if _, ok := r.Config.Services[svc]; !ok {
					c.Add(diag.ReferenceError(span, "service %q not found", svc))
				}
			}
			for _, req := range job.Requires {
				if _, ok := wf.Jobs[req]; !ok {
					c.Add(diag.ReferenceError(span, "requires %q not found in workflow %q", req, wfName))
				}
			}
			for _, req := range job.RequiresAny {
				if _, ok := wf.Jobs[req]; !ok {
					c.Add(diag.ReferenceError(span, "requires_any %q not found in workflow %q", req, wfName))
				}
			}
			for _, step := range job.Steps {
				if step.Kind == model.StepUsesCommand {
					if _, ok := r.Commands[step.UsesCommand.Name]; !ok {
						c.Add(diag.ReferenceError(span, "uses_command %q not found", step.UsesCommand.Name))
					}
				}
			}
		}
	}

	if err := model.ValidateSourceFileGroups(r.Config.SourceFileGroups); err != nil {
		c.Add(diag.ReferenceError(diag.Span{}, "%s", err.Error()))
	}

	return &c
}
