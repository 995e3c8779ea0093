package model

import "fmt"

// stepAlias mirrors Step's exported fields without its custom
// (Un)MarshalYAML so the decoder doesn't recurse into itself — the
// same alias trick the teacher uses for Image/VaultSecret shorthand
// decoding (pkg/config/config.go).
type stepAlias struct {
	Run              *RunStep          `yaml:"run,omitempty"`
	Checkout         *CheckoutStep     `yaml:"checkout,omitempty"`
	RestoreCache     *CacheStepRef     `yaml:"restore_cache,omitempty"`
	SaveCache        *CacheStepRef     `yaml:"save_cache,omitempty"`
	StoreTestResults *PathStep         `yaml:"store_test_results,omitempty"`
	StoreArtifacts   *PathStep         `yaml:"store_artifacts,omitempty"`
	UsesCommand      *UsesCommandStep  `yaml:"uses_command,omitempty"`
	UsesModule       *UsesModuleStep   `yaml:"uses_module,omitempty"`
}

// UnmarshalYAML decodes whichever one key is present and records the
// matching Kind. Exactly one key must be set; zero or several is a
// malformed document.
func (s *Step) UnmarshalYAML(unmarshal func(any) error) error {
	var alias stepAlias
	if err := unmarshal(&alias); err != nil {
		return err
	}

	set := 0
	assign := func(kind StepKind) { s.Kind = kind; set++ }

	*s = Step{}
	if alias.Run != nil {
		s.Run = alias.Run
		assign(StepRun)
	}
	if alias.Checkout != nil {
		s.Checkout = alias.Checkout
		assign(StepCheckout)
	}
	if alias.RestoreCache != nil {
		s.RestoreCache = alias.RestoreCache
		assign(StepRestoreCache)
	}
	if alias.SaveCache != nil {
		s.SaveCache = alias.SaveCache
		assign(StepSaveCache)
	}
	if alias.StoreTestResults != nil {
		s.StoreTestResults = alias.StoreTestResults
		assign(StepStoreTestResults)
	}
	if alias.StoreArtifacts != nil {
		s.StoreArtifacts = alias.StoreArtifacts
		assign(StepStoreArtifacts)
	}
	if alias.UsesCommand != nil {
		s.UsesCommand = alias.UsesCommand
		assign(StepUsesCommand)
	}
	if alias.UsesModule != nil {
		s.UsesModule = alias.UsesModule
		assign(StepUsesModule)
	}

	if set == 0 {
		return fmt.Errorf("step has no recognized kind (run, checkout, restore_cache, save_cache, store_test_results, store_artifacts, uses_command, uses_module)")
	}
	if set > 1 {
		return fmt.Errorf("step declares %d kinds, exactly one is allowed", set)
	}
	return nil
}

// MarshalYAML re-exposes only the populated field so round-tripping
// (and provider emission through gopkg.in/yaml.v3) doesn't leak the
// internal Kind tag or the zeroed-out sibling pointers.
func (s Step) MarshalYAML() (any, error) {
	switch s.Kind {
	case StepRun:
		return map[string]any{"run": s.Run}, nil
	case StepCheckout:
		return map[string]any{"checkout": s.Checkout}, nil
	case StepRestoreCache:
		return map[string]any{"restore_cache": s.RestoreCache}, nil
	case StepSaveCache:
		return map[string]any{"save_cache": s.SaveCache}, nil
	case StepStoreTestResults:
		return map[string]any{"store_test_results": s.StoreTestResults}, nil
	case StepStoreArtifacts:
		return map[string]any{"store_artifacts": s.StoreArtifacts}, nil
	case StepUsesCommand:
		return map[string]any{"uses_command": s.UsesCommand}, nil
	case StepUsesModule:
		return map[string]any{"uses_module": s.UsesModule}, nil
	case StepSkipCheck:
		return map[string]any{"skip_check": s.SkipCheck}, nil
	case StepMarkDone:
		return map[string]any{"mark_done": s.MarkDone}, nil
	default:
		return nil, fmt.Errorf("step has no recognized kind set")
	}
}

// Validate rejects field combinations that UnmarshalYAML's "exactly one
// key" rule can't catch on its own (steps built programmatically rather
// than decoded, e.g. by internal/synth).
func (s Step) Validate() error {
	switch s.Kind {
	case StepRun:
		if s.Run == nil || s.Run.Command == "" {
			return fmt.Errorf("run step requires a command")
		}
	case StepRestoreCache, StepSaveCache:
		ref := s.RestoreCache
		if s.Kind == StepSaveCache {
			ref = s.SaveCache
		}
		if ref == nil || ref.Name == "" {
			return fmt.Errorf("%s step requires a cache name", s.Kind)
		}
	case StepStoreTestResults, StepStoreArtifacts:
		p := s.StoreTestResults
		if s.Kind == StepStoreArtifacts {
			p = s.StoreArtifacts
		}
		if p == nil || p.Path == "" {
			return fmt.Errorf("%s step requires a path", s.Kind)
		}
	case StepUsesCommand:
		if s.UsesCommand == nil || s.UsesCommand.Name == "" {
			return fmt.Errorf("uses_command step requires a command name")
		}
	case StepUsesModule:
		if s.UsesModule == nil || s.UsesModule.Module == "" {
			return fmt.Errorf("uses_module step requires a module name")
		}
	case StepSkipCheck:
		if s.SkipCheck == nil || s.SkipCheck.Key == "" {
			return fmt.Errorf("skip_check step requires a key")
		}
	case StepMarkDone:
		if s.MarkDone == nil || s.MarkDone.Key == "" {
			return fmt.Errorf("mark_done step requires a key")
		}
	case StepCheckout:
		// no required fields
	default:
		return fmt.Errorf("step has no recognized kind set")
	}
	return nil
}
