package synth

import (
	"testing"

	"github.com/cigenhq/cigen/internal/cacheengine"
	"github.com/cigenhq/cigen/pkg/model"
)

func TestSynthesizeOrdersStepsCorrectly(t *testing.T) {
	job := &model.Job{
		SourceFiles: "go",
		Packages:    []string{"curl"},
		Steps: []model.Step{
			{Kind: model.StepRun, Run: &model.RunStep{Command: "go build ./..."}},
		},
		Artifacts:   []string{"dist/"},
		TestResults: "reports/",
	}
	caches := []cacheengine.ResolvedCache{{Name: "go-mod", Paths: []string{"$GOPATH/pkg/mod"}}}

	steps, err := Synthesize(job, caches, Options{EnableSkipCheck: true, SkipCacheKey: "linux-amd64-build"})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	var kinds []model.StepKind
	for _, s := range steps {
		kinds = append(kinds, s.Kind)
	}

	expectBefore := func(a, b model.StepKind) {
		ai, bi := -1, -1
		for i, k := range kinds {
			if k == a && ai == -1 {
				ai = i
			}
			if k == b && bi == -1 {
				bi = i
			}
		}
		if ai == -1 || bi == -1 || ai > bi {
			t.Errorf("expected %v before %v in %v", a, b, kinds)
		}
	}

	if kinds[0] != model.StepCheckout {
		t.Fatalf("expected checkout first, got %v", kinds)
	}
	expectBefore(model.StepCheckout, model.StepRestoreCache)
	expectBefore(model.StepRestoreCache, model.StepSaveCache)
	expectBefore(model.StepSaveCache, model.StepStoreArtifacts)
	expectBefore(model.StepStoreTestResults, model.StepStoreArtifacts)
}

func TestSynthesizeSkipsSkipCheckWhenDisabled(t *testing.T) {
	job := &model.Job{SourceFiles: "go"}
	steps, err := Synthesize(job, nil, Options{EnableSkipCheck: false})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	for _, s := range steps {
		if s.Kind == model.StepSkipCheck {
			t.Fatal("did not expect a skip-check step when EnableSkipCheck is false")
		}
	}
}

func TestExpandCommandsSubstitutesParameters(t *testing.T) {
	commands := map[string]*model.Command{
		"greet": {
			Name:       "greet",
			Parameters: map[string]model.CommandParameter{"name": {Type: "string", Default: "world"}},
			Steps: []model.Step{
				{Kind: model.StepRun, Run: &model.RunStep{Command: "echo hello {{ name }}"}},
			},
		},
	}
	steps := []model.Step{
		{Kind: model.StepUsesCommand, UsesCommand: &model.UsesCommandStep{Name: "greet", Parameters: map[string]string{"name": "cigen"}}},
	}

	expanded, err := ExpandCommands(steps, commands)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(expanded) != 1 || expanded[0].Run.Command != "echo hello cigen" {
		t.Fatalf("unexpected expansion: %+v", expanded)
	}
}

func TestExpandCommandsErrorsOnUnknownCommand(t *testing.T) {
	steps := []model.Step{{Kind: model.StepUsesCommand, UsesCommand: &model.UsesCommandStep{Name: "missing"}}}
	if _, err := ExpandCommands(steps, map[string]*model.Command{}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
