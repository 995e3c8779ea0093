package model

// jobAlias mirrors Job's exported, tagged fields so UnmarshalYAML can
// decode into it without recursing into itself.
type jobAlias struct {
	Image         string               `yaml:"image,omitempty"`
	Architectures []string             `yaml:"architectures,omitempty"`
	ResourceClass string               `yaml:"resource_class,omitempty"`
	Parallelism   int                  `yaml:"parallelism,omitempty"`
	SourceFiles   string               `yaml:"source_files,omitempty"`
	Requires      []string             `yaml:"requires,omitempty"`
	RequiresAny   []string             `yaml:"requires_any,omitempty"`
	Cache         map[string]*CacheUse `yaml:"cache,omitempty"`
	Packages      []string             `yaml:"packages,omitempty"`
	Services      []string             `yaml:"services,omitempty"`
	Environment   map[string]string    `yaml:"environment,omitempty"`
	Steps         []Step               `yaml:"steps,omitempty"`
	Artifacts     []string             `yaml:"artifacts,omitempty"`
	TestResults   string               `yaml:"test_results,omitempty"`
}

// knownJobKeys lists every yaml tag jobAlias recognizes, used to split
// a raw job document into typed fields plus Passthrough (spec.md 4.1:
// unknown job.* keys are preserved, not silently dropped).
var knownJobKeys = map[string]bool{
	"image": true, "architectures": true, "resource_class": true,
	"parallelism": true, "source_files": true, "requires": true,
	"requires_any": true, "cache": true, "packages": true,
	"services": true, "environment": true, "steps": true,
	"artifacts": true, "test_results": true,
}

// UnmarshalYAML decodes the typed job fields, then re-decodes the same
// node as a raw map and stashes any key jobAlias doesn't recognize into
// Passthrough so it survives to emission untouched.
func (j *Job) UnmarshalYAML(unmarshal func(any) error) error {
	var alias jobAlias
	if err := unmarshal(&alias); err != nil {
		return err
	}

	var raw map[string]any
	if err := unmarshal(&raw); err != nil {
		return err
	}

	*j = Job{
		Image:         alias.Image,
		Architectures: alias.Architectures,
		ResourceClass: alias.ResourceClass,
		Parallelism:   alias.Parallelism,
		SourceFiles:   alias.SourceFiles,
		Requires:      alias.Requires,
		RequiresAny:   alias.RequiresAny,
		Cache:         alias.Cache,
		Packages:      alias.Packages,
		Services:      alias.Services,
		Environment:   alias.Environment,
		Steps:         alias.Steps,
		Artifacts:     alias.Artifacts,
		TestResults:   alias.TestResults,
	}

	for k, v := range raw {
		if !knownJobKeys[k] {
			if j.Passthrough == nil {
				j.Passthrough = make(map[string]any)
			}
			j.Passthrough[k] = v
		}
	}

	return nil
}
