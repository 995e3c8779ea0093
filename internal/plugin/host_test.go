package plugin

import (
	"bufio"
	"context"
	"os"
	"testing"
	"time"

	"github.com/cigenhq/cigen/internal/emit"
	"github.com/cigenhq/cigen/pkg/model"
)

// TestMain lets the compiled test binary double as the fake plugin
// process Spawn/Generate exercise below: when CIGEN_PLUGIN_TEST_HELPER
// is set, the binary speaks the wire protocol over stdin/stdout instead
// of running the test suite. This is the standard os/exec
// self-reexec-as-helper-process pattern.
func TestMain(m *testing.M) {
	if os.Getenv("CIGEN_PLUGIN_TEST_HELPER") == "1" {
		runHelperPlugin()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runHelperPlugin() {
	in := bufio.NewReader(os.Stdin)

	helloFrame, err := readFrame(in)
	if err != nil {
		os.Exit(1)
	}
	if _, err := decodeHello(helloFrame); err != nil {
		os.Exit(1)
	}
	if err := writeFrame(os.Stdout, encodePluginInfo(PluginInfo{
		Name:         "helper",
		Capabilities: []string{"cache"},
	})); err != nil {
		os.Exit(1)
	}

	for {
		frame, err := readFrame(in)
		if err != nil {
			return
		}
		req, err := decodeGenerateRequest(frame)
		if err != nil {
			return
		}
		if os.Getenv("CIGEN_PLUGIN_TEST_HANG") == "1" {
			time.Sleep(10 * time.Second)
		}
		resp := GenerateResponse{
			Fragments: []Fragment{{Path: "helper.yml", Content: req.ConfigJSON}},
		}
		if err := writeFrame(os.Stdout, encodeGenerateResponse(resp)); err != nil {
			return
		}
	}
}

func helperRef(t *testing.T, extraEnv ...string) model.PluginRef {
	t.Helper()
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	t.Setenv("CIGEN_PLUGIN_TEST_HELPER", "1")
	for _, e := range extraEnv {
		t.Setenv(e, "1")
	}
	return model.PluginRef{Name: "helper", Command: self}
}

func TestSpawnCompletesHandshake(t *testing.T) {
	ref := helperRef(t)
	proc, err := Spawn(context.Background(), ref)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer proc.Close()

	if proc.Info.Name != "helper" {
		t.Errorf("info.Name = %q, want %q", proc.Info.Name, "helper")
	}
	if len(proc.Info.Capabilities) != 1 || proc.Info.Capabilities[0] != "cache" {
		t.Errorf("info.Capabilities = %v", proc.Info.Capabilities)
	}
}

func TestGenerateRoundTripsFragments(t *testing.T) {
	ref := helperRef(t)
	proc, err := Spawn(context.Background(), ref)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer proc.Close()

	in := emit.Input{Config: &model.Config{Providers: []string{"helper"}}}
	resp, err := proc.Generate(context.Background(), in, time.Second)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Fragments) != 1 || resp.Fragments[0].Path != "helper.yml" {
		t.Fatalf("fragments = %+v", resp.Fragments)
	}
}

func TestGenerateTimesOutOnHungPlugin(t *testing.T) {
	ref := helperRef(t, "CIGEN_PLUGIN_TEST_HANG")
	proc, err := Spawn(context.Background(), ref)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	_, err = proc.Generate(context.Background(), emit.Input{}, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected a timeout error from a hung plugin")
	}
}

func TestGenerateAllMergesFragmentsInRefOrder(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	t.Setenv("CIGEN_PLUGIN_TEST_HELPER", "1")

	refs := []model.PluginRef{
		{Name: "first", Command: self},
		{Name: "second", Command: self},
	}
	fragments, diags := GenerateAll(context.Background(), refs, emit.Input{Config: &model.Config{}})
	for _, d := range diags {
		t.Errorf("unexpected diagnostic: %s", d.Message)
	}
	if len(fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d: %+v", len(fragments), fragments)
	}
}
