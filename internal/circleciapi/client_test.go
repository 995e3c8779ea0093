package circleciapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAutomatedApprovalResolvesIDThenApproves(t *testing.T) {
	var approvedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Circle-Token") != "tok" {
			t.Errorf("missing Circle-Token header")
		}
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v2/workflow/wf-1/job":
			w.Write([]byte(`{"items":[{"id":"job-abc","name":"approve-deploy"}]}`))
		case r.Method == http.MethodPost:
			approvedPath = r.URL.Path
			w.WriteHeader(http.StatusAccepted)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New("tok")
	c.http.RetryMax = 0
	c.baseURL = srv.URL + "/api/v2"

	id, err := c.JobID(context.Background(), "wf-1", "approve-deploy")
	if err != nil {
		t.Fatalf("JobID: %v", err)
	}
	if id != "job-abc" {
		t.Fatalf("got id %q, want job-abc", id)
	}

	if err := c.Approve(context.Background(), "wf-1", id); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approvedPath != "/api/v2/workflow/wf-1/approve/job-abc" {
		t.Fatalf("unexpected approve path %q", approvedPath)
	}
}

func TestJobIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := New("tok")
	c.http.RetryMax = 0
	c.baseURL = srv.URL + "/api/v2"

	if _, err := c.JobID(context.Background(), "wf-1", "missing"); err == nil {
		t.Fatal("expected an error for a job name with no match")
	}
}
