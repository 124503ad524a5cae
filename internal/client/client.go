// Package client provides an HTTP client for the RepoLens server API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to the RepoLens server's JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client.
// If baseURL is empty, uses REPOLENS_SERVER_URL env var or defaults to localhost:8080.
// Timeout can be configured via REPOLENS_CLIENT_TIMEOUT env var (default 10m for chat operations).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("REPOLENS_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("REPOLENS_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Project mirrors the server's project representation.
type Project struct {
	Name    string `json:"name"`
	RepoURL string `json:"repo_url"`
}

// Job mirrors the server's job status representation.
type Job struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ChatSource is one chunk an answer drew from.
type ChatSource struct {
	Path       string `json:"path"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// ChatAnswer is the server's chat response.
type ChatAnswer struct {
	Text    string       `json:"text"`
	Sources []ChatSource `json:"sources"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateProject registers a repository with the server.
func (c *Client) CreateProject(ctx context.Context, name, repoURL string) (*Project, error) {
	var project Project
	err := c.do(ctx, "POST", "/api/projects", Project{Name: name, RepoURL: repoURL}, &project)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects returns all registered projects.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, "GET", "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Index starts an indexing job and returns its identifier for polling.
func (c *Client) Index(ctx context.Context, projectID string) (string, error) {
	var resp jobResponse
	err := c.do(ctx, "POST", "/api/projects/"+projectID+"/index", nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// JobStatus reports a job's current state.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Job, error) {
	var job Job
	if err := c.do(ctx, "GET", "/api/jobs/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Chat asks a question about a project.
func (c *Client) Chat(ctx context.Context, projectID, question string) (*ChatAnswer, error) {
	var answer ChatAnswer
	err := c.do(ctx, "POST", "/api/projects/"+projectID+"/chat",
		map[string]string{"question": question}, &answer)
	if err != nil {
		return nil, err
	}
	return &answer, nil
}

// ProgressEvent is one stage update streamed over the progress websocket.
type ProgressEvent struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
}

// WatchProgress subscribes to the server's progress stream for one
// project. The channel closes when the connection drops or ctx is
// cancelled; events for other projects are filtered out.
func (c *Client) WatchProgress(ctx context.Context, projectID string) (<-chan ProgressEvent, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/ws/progress"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial progress stream: %w", err)
	}

	ch := make(chan ProgressEvent)
	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var ev ProgressEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if ev.ProjectID != projectID {
				continue
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Unblock the reader when the caller gives up.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return ch, nil
}

// do sends one JSON request and decodes the response into result.
func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server error: %s", apiErr.Error)
		}
		return fmt.Errorf("server error: %s", resp.Status)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
