package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/projects/demo/chat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "answer", "sources": [{"path": "a.go", "source": "file"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	ans, err := c.Chat(context.Background(), "demo", "q?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if ans.Text != "answer" || len(ans.Sources) != 1 {
		t.Errorf("answer = %+v", ans)
	}
}

func TestIndexReturnsJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"job_id": "indexing-1-abc"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	jobID, err := c.Index(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if jobID != "indexing-1-abc" {
		t.Errorf("jobID = %q", jobID)
	}
}

func TestServerErrorMessageSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "project not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.JobStatus(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "project not found") {
		t.Errorf("error = %v, want the server's message", err)
	}
}

func TestDefaultEndpoint(t *testing.T) {
	t.Setenv("REPOLENS_SERVER_URL", "")
	c := New("")
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q", c.baseURL)
	}

	t.Setenv("REPOLENS_SERVER_URL", "http://remote:9999")
	c = New("")
	if c.baseURL != "http://remote:9999" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}
