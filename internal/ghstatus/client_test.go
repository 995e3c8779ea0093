package ghstatus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v68/github"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}

	prev := newClient
	newClient = func(token string) *github.Client {
		c := prev(token)
		c.BaseURL = base
		return c
	}
	t.Cleanup(func() { newClient = prev })
}

func TestFixApprovalStatusesPatchesEveryContext(t *testing.T) {
	var gotPaths []string
	var gotBodies []github.RepoStatus

	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		gotPaths = append(gotPaths, r.URL.Path)
		var status github.RepoStatus
		if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		gotBodies = append(gotBodies, status)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(status)
	})

	err := FixApprovalStatuses(context.Background(), "tok", "acme", "widgets", "deadbeef", []string{"build_amd64_approval", "build_arm64_approval"})
	if err != nil {
		t.Fatalf("FixApprovalStatuses: %v", err)
	}

	if len(gotPaths) != 2 {
		t.Fatalf("expected 2 status updates, got %d: %v", len(gotPaths), gotPaths)
	}
	wantPath := "/repos/acme/widgets/statuses/deadbeef"
	for _, p := range gotPaths {
		if p != wantPath {
			t.Fatalf("unexpected path %q, want %q", p, wantPath)
		}
	}
	for i, ctxName := range []string{"build_amd64_approval", "build_arm64_approval"} {
		if gotBodies[i].GetContext() != ctxName {
			t.Fatalf("status %d context = %q, want %q", i, gotBodies[i].GetContext(), ctxName)
		}
		if gotBodies[i].GetState() != "success" {
			t.Fatalf("status %d state = %q, want success", i, gotBodies[i].GetState())
		}
	}
}

func TestFixApprovalStatusesStopsOnFirstError(t *testing.T) {
	calls := 0
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := FixApprovalStatuses(context.Background(), "tok", "acme", "widgets", "deadbeef", []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected an error from a failing status update")
	}
	if calls != 1 {
		t.Fatalf("expected the loop to stop after the first failure, got %d calls", calls)
	}
}
