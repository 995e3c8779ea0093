package plugin

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello plugin")
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	got, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 0xff, 0xff, 0xff})
	if _, err := readFrame(&buf); err == nil {
		t.Fatal("expected an error for a frame length over the cap")
	}
}

func TestHelloRoundTrip(t *testing.T) {
	got, err := decodeHello(encodeHello(Hello{CigenVersion: "1"}))
	if err != nil {
		t.Fatalf("decodeHello: %v", err)
	}
	if got.CigenVersion != "1" {
		t.Errorf("got %q, want %q", got.CigenVersion, "1")
	}
}

func TestPluginInfoRoundTrip(t *testing.T) {
	want := PluginInfo{Name: "gitlab-ci", Capabilities: []string{"cache", "skip_check"}}
	got, err := decodePluginInfo(encodePluginInfo(want))
	if err != nil {
		t.Fatalf("decodePluginInfo: %v", err)
	}
	if got.Name != want.Name {
		t.Errorf("name = %q, want %q", got.Name, want.Name)
	}
	if len(got.Capabilities) != 2 || got.Capabilities[0] != "cache" || got.Capabilities[1] != "skip_check" {
		t.Errorf("capabilities = %v, want %v", got.Capabilities, want.Capabilities)
	}
}

func TestGenerateRequestRoundTrip(t *testing.T) {
	want := GenerateRequest{ConfigJSON: []byte(`{"providers":["gitlab-ci"]}`), RequestID: "req-1"}
	got, err := decodeGenerateRequest(encodeGenerateRequest(want))
	if err != nil {
		t.Fatalf("decodeGenerateRequest: %v", err)
	}
	if string(got.ConfigJSON) != string(want.ConfigJSON) {
		t.Errorf("config json = %q, want %q", got.ConfigJSON, want.ConfigJSON)
	}
	if got.RequestID != want.RequestID {
		t.Errorf("request id = %q, want %q", got.RequestID, want.RequestID)
	}
}

func TestGenerateResponseRoundTrip(t *testing.T) {
	want := GenerateResponse{
		Fragments: []Fragment{
			{Path: ".gitlab-ci.yml", Content: []byte("stages: []\n")},
		},
		Diagnostics: []Diagnostic{
			{Severity: "warning", Message: "job foo has no steps"},
		},
	}
	got, err := decodeGenerateResponse(encodeGenerateResponse(want))
	if err != nil {
		t.Fatalf("decodeGenerateResponse: %v", err)
	}
	if len(got.Fragments) != 1 || got.Fragments[0].Path != ".gitlab-ci.yml" {
		t.Fatalf("fragments = %+v", got.Fragments)
	}
	if string(got.Fragments[0].Content) != "stages: []\n" {
		t.Errorf("content = %q", got.Fragments[0].Content)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Severity != "warning" {
		t.Fatalf("diagnostics = %+v", got.Diagnostics)
	}
}

func TestGenerateResponseRoundTripMultiple(t *testing.T) {
	want := GenerateResponse{
		Fragments: []Fragment{
			{Path: "a.yml", Content: []byte("a")},
			{Path: "b.yml", Content: []byte("b")},
		},
	}
	got, err := decodeGenerateResponse(encodeGenerateResponse(want))
	if err != nil {
		t.Fatalf("decodeGenerateResponse: %v", err)
	}
	if len(got.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got.Fragments))
	}
	if got.Fragments[0].Path != "a.yml" || got.Fragments[1].Path != "b.yml" {
		t.Errorf("fragments out of order: %+v", got.Fragments)
	}
}
