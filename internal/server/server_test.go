package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/davidgraf/repolens/internal/chat"
	"github.com/davidgraf/repolens/internal/db"
	"github.com/davidgraf/repolens/internal/models"
	"github.com/davidgraf/repolens/internal/queue"
)

type fakeStore struct {
	projects map[string]*models.Project
	meetings map[string]*models.Meeting
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[string]*models.Project),
		meetings: make(map[string]*models.Meeting),
	}
}

func (f *fakeStore) CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error) {
	p := &models.Project{
		ID:      surrealmodels.NewRecordID("project", input.Name),
		Name:    input.Name,
		RepoURL: input.RepoURL,
	}
	f.projects[input.Name] = p
	return p, nil
}

// GetProject mirrors the real store: the reference may be a record ID or a
// project name.
func (f *fakeStore) GetProject(ctx context.Context, ref string) (*models.Project, error) {
	if p, ok := f.projects[ref]; ok {
		return p, nil
	}
	for _, p := range f.projects {
		if p.Name == ref {
			return p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	out := []models.Project{}
	for _, p := range f.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, id string) error {
	delete(f.projects, id)
	return nil
}

func (f *fakeStore) ListCommits(ctx context.Context, project string) ([]models.Commit, error) {
	return []models.Commit{}, nil
}

func (f *fakeStore) ListSourceFiles(ctx context.Context, project string) ([]models.SourceFile, error) {
	return []models.SourceFile{}, nil
}

func (f *fakeStore) CreateMeeting(ctx context.Context, project, title, audioPath string) (*models.Meeting, error) {
	m := &models.Meeting{
		ID:        surrealmodels.NewRecordID("meeting", "m1"),
		Project:   project,
		Title:     title,
		AudioPath: audioPath,
	}
	f.meetings["m1"] = m
	return m, nil
}

func (f *fakeStore) ListMeetings(ctx context.Context, project string) ([]models.Meeting, error) {
	out := []models.Meeting{}
	for _, m := range f.meetings {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeStore) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	m, ok := f.meetings[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return m, nil
}

type fakeQueue struct {
	payloads []queue.Payload
	jobs     map[string]queue.Job
}

func (f *fakeQueue) Enqueue(payload queue.Payload) string {
	f.payloads = append(f.payloads, payload)
	return "indexing-1-abc"
}

func (f *fakeQueue) Status(id string) (queue.Job, bool) {
	job, ok := f.jobs[id]
	return job, ok
}

type fakeChatter struct {
	answer     chat.Answer
	err        error
	gotProject string
}

func (f *fakeChatter) Ask(ctx context.Context, projectID, question string) (chat.Answer, error) {
	f.gotProject = projectID
	return f.answer, f.err
}

func newTestServer(t *testing.T, store Store, jobs JobQueue, chatter Chatter) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(store, jobs, chatter, nil, logger, t.TempDir()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestCreateProjectValidation(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeQueue{}, &fakeChatter{})

	resp, err := http.Post(srv.URL+"/api/projects", "application/json",
		strings.NewReader(`{"name": "demo"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing repo_url", resp.StatusCode)
	}
}

func TestCreateAndGetProject(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(t, store, &fakeQueue{}, &fakeChatter{})

	resp, err := http.Post(srv.URL+"/api/projects", "application/json",
		strings.NewReader(`{"name": "demo", "repo_url": "https://example.com/demo.git"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decode[struct {
		Name    string `json:"name"`
		RepoURL string `json:"repo_url"`
	}](t, resp)
	if created.Name != "demo" {
		t.Errorf("created project = %+v", created)
	}

	resp, err = http.Get(srv.URL + "/api/projects/demo")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/projects/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown project status = %d, want 404", resp.StatusCode)
	}
}

func TestIndexProjectEnqueues(t *testing.T) {
	store := newFakeStore()
	store.projects["demo"] = &models.Project{
		ID:      surrealmodels.NewRecordID("project", "demo"),
		Name:    "demo",
		RepoURL: "https://example.com/demo.git",
	}
	jobs := &fakeQueue{}
	srv := newTestServer(t, store, jobs, &fakeChatter{})

	resp, err := http.Post(srv.URL+"/api/projects/demo/index", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["job_id"] == "" {
		t.Error("response missing job_id")
	}

	if len(jobs.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(jobs.payloads))
	}
	p, ok := jobs.payloads[0].(queue.IndexingPayload)
	if !ok {
		t.Fatalf("payload type = %T", jobs.payloads[0])
	}
	if p.ProjectID != "demo" || p.RepoURL != "https://example.com/demo.git" {
		t.Errorf("payload = %+v", p)
	}
}

// Record IDs are store-generated, so a client that only ever saw the name
// it chose must still be able to index and chat. The handlers resolve the
// name and key all downstream work by the record ID.
func TestProjectAddressableByName(t *testing.T) {
	store := newFakeStore()
	store.projects["uel7dmtbk2ihtroj1pqv"] = &models.Project{
		ID:      surrealmodels.NewRecordID("project", "uel7dmtbk2ihtroj1pqv"),
		Name:    "demo",
		RepoURL: "https://example.com/demo.git",
	}
	jobs := &fakeQueue{}
	chatter := &fakeChatter{}
	srv := newTestServer(t, store, jobs, chatter)

	resp, err := http.Post(srv.URL+"/api/projects/demo/index", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("index by name status = %d, want 202", resp.StatusCode)
	}
	p, ok := jobs.payloads[0].(queue.IndexingPayload)
	if !ok {
		t.Fatalf("payload type = %T", jobs.payloads[0])
	}
	if p.ProjectID != "uel7dmtbk2ihtroj1pqv" {
		t.Errorf("payload project = %q, want the record ID, not the name", p.ProjectID)
	}

	resp, err = http.Post(srv.URL+"/api/projects/demo/chat", "application/json",
		strings.NewReader(`{"question": "where is auth?"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat by name status = %d, want 200", resp.StatusCode)
	}
	if chatter.gotProject != "uel7dmtbk2ihtroj1pqv" {
		t.Errorf("chat project = %q, want the record ID", chatter.gotProject)
	}
}

func TestIndexUnknownProject(t *testing.T) {
	jobs := &fakeQueue{}
	srv := newTestServer(t, newFakeStore(), jobs, &fakeChatter{})

	resp, err := http.Post(srv.URL+"/api/projects/nope/index", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if len(jobs.payloads) != 0 {
		t.Error("job enqueued for unknown project")
	}
}

func TestJobStatus(t *testing.T) {
	jobs := &fakeQueue{jobs: map[string]queue.Job{
		"indexing-1-abc": {ID: "indexing-1-abc", Type: queue.TypeIndexing, Status: queue.StatusProcessing},
	}}
	srv := newTestServer(t, newFakeStore(), jobs, &fakeChatter{})

	resp, err := http.Get(srv.URL + "/api/jobs/indexing-1-abc")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	job := decode[queue.Job](t, resp)
	if job.Status != queue.StatusProcessing {
		t.Errorf("job status = %q", job.Status)
	}

	resp, err = http.Get(srv.URL + "/api/jobs/expired-or-unknown")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown job status = %d, want 404", resp.StatusCode)
	}
}

func TestChat(t *testing.T) {
	chatter := &fakeChatter{answer: chat.Answer{
		Text:    "See internal/auth.",
		Sources: []chat.Source{{Path: "internal/auth/token.go", Source: "file"}},
	}}
	store := newFakeStore()
	store.projects["demo"] = &models.Project{
		ID:      surrealmodels.NewRecordID("project", "demo"),
		Name:    "demo",
		RepoURL: "u",
	}
	srv := newTestServer(t, store, &fakeQueue{}, chatter)

	resp, err := http.Post(srv.URL+"/api/projects/demo/chat", "application/json",
		strings.NewReader(`{"question": "where is auth?"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	ans := decode[chat.Answer](t, resp)
	if ans.Text != "See internal/auth." || len(ans.Sources) != 1 {
		t.Errorf("answer = %+v", ans)
	}

	resp, err = http.Post(srv.URL+"/api/projects/demo/chat", "application/json",
		strings.NewReader(`{"question": "  "}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank question status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadMeeting(t *testing.T) {
	store := newFakeStore()
	store.projects["demo"] = &models.Project{
		ID:      surrealmodels.NewRecordID("project", "demo"),
		Name:    "demo",
		RepoURL: "u",
	}
	jobs := &fakeQueue{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audioDir := t.TempDir()
	srv := httptest.NewServer(New(store, jobs, &fakeChatter{}, nil, logger, audioDir).Handler())
	defer srv.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "standup.mp3")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake audio bytes"))
	mw.WriteField("title", "Monday standup")
	mw.Close()

	resp, err := http.Post(srv.URL+"/api/projects/demo/meetings", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	out := decode[struct {
		JobID   string `json:"job_id"`
		Meeting struct {
			Title string `json:"title"`
		} `json:"meeting"`
	}](t, resp)
	if out.JobID == "" || out.Meeting.Title != "Monday standup" {
		t.Errorf("response = %+v", out)
	}

	if len(jobs.payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(jobs.payloads))
	}
	p, ok := jobs.payloads[0].(queue.TranscriptionPayload)
	if !ok {
		t.Fatalf("payload type = %T", jobs.payloads[0])
	}
	if p.MeetingID != "m1" || p.ProjectID != "demo" {
		t.Errorf("payload = %+v", p)
	}

	// The upload is stored with its original extension.
	if filepath.Ext(p.AudioPath) != ".mp3" {
		t.Errorf("audio path = %q, want .mp3 extension", p.AudioPath)
	}
	data, err := os.ReadFile(p.AudioPath)
	if err != nil {
		t.Fatalf("read saved upload: %v", err)
	}
	if string(data) != "fake audio bytes" {
		t.Errorf("saved upload = %q", data)
	}
}

func TestTranscribeMeetingRetry(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(audio, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	store.meetings["m1"] = &models.Meeting{
		ID:        surrealmodels.NewRecordID("meeting", "m1"),
		Project:   "demo",
		AudioPath: audio,
	}
	jobs := &fakeQueue{}
	srv := newTestServer(t, store, jobs, &fakeChatter{})

	resp, err := http.Post(srv.URL+"/api/meetings/m1/transcribe", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	p, ok := jobs.payloads[0].(queue.TranscriptionPayload)
	if !ok || p.MeetingID != "m1" || p.ProjectID != "demo" || p.AudioPath != audio {
		t.Errorf("payload = %+v", jobs.payloads[0])
	}

	// A consumed recording cannot be retried.
	os.Remove(audio)
	resp, err = http.Post(srv.URL+"/api/meetings/m1/transcribe", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 when recording is gone", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, newFakeStore(), &fakeQueue{}, &fakeChatter{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
