// Package server exposes the HTTP JSON API: project management, job
// submission and polling, chat, and the progress websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/davidgraf/repolens/internal/chat"
	"github.com/davidgraf/repolens/internal/db"
	"github.com/davidgraf/repolens/internal/models"
	"github.com/davidgraf/repolens/internal/queue"
)

// maxUploadBytes caps meeting recording uploads.
const maxUploadBytes = 512 << 20

// Store is the relational surface the API needs.
type Store interface {
	CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListCommits(ctx context.Context, project string) ([]models.Commit, error)
	ListSourceFiles(ctx context.Context, project string) ([]models.SourceFile, error)
	CreateMeeting(ctx context.Context, project, title, audioPath string) (*models.Meeting, error)
	ListMeetings(ctx context.Context, project string) ([]models.Meeting, error)
	GetMeeting(ctx context.Context, id string) (*models.Meeting, error)
}

// JobQueue submits background work and reports its status.
type JobQueue interface {
	Enqueue(payload queue.Payload) string
	Status(id string) (queue.Job, bool)
}

// Chatter answers questions about a project.
type Chatter interface {
	Ask(ctx context.Context, projectID, question string) (chat.Answer, error)
}

// Server holds the API dependencies and builds the route table.
type Server struct {
	store    Store
	jobs     JobQueue
	chatter  Chatter
	ws       http.Handler
	logger   *slog.Logger
	audioDir string
}

// New creates a server. ws handles the progress websocket endpoint;
// audioDir is where meeting uploads are written.
func New(store Store, jobs JobQueue, chatter Chatter, ws http.Handler, logger *slog.Logger, audioDir string) *Server {
	return &Server{
		store:    store,
		jobs:     jobs,
		chatter:  chatter,
		ws:       ws,
		logger:   logger,
		audioDir: audioDir,
	}
}

// Handler returns the fully routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("POST /api/projects", s.createProject)
	mux.HandleFunc("GET /api/projects", s.listProjects)
	mux.HandleFunc("GET /api/projects/{id}", s.getProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.deleteProject)
	mux.HandleFunc("POST /api/projects/{id}/index", s.indexProject)
	mux.HandleFunc("GET /api/projects/{id}/commits", s.listCommits)
	mux.HandleFunc("GET /api/projects/{id}/files", s.listFiles)
	mux.HandleFunc("POST /api/projects/{id}/meetings", s.uploadMeeting)
	mux.HandleFunc("GET /api/projects/{id}/meetings", s.listMeetings)
	mux.HandleFunc("GET /api/meetings/{id}", s.getMeeting)
	mux.HandleFunc("POST /api/meetings/{id}/transcribe", s.transcribeMeeting)
	mux.HandleFunc("POST /api/projects/{id}/chat", s.chat)
	mux.HandleFunc("GET /api/jobs/{id}", s.jobStatus)

	if s.ws != nil {
		mux.Handle("GET /ws/progress", s.ws)
	}

	return LoggingMiddleware(s.logger)(mux)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// storeError maps storage failures onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, db.ErrAlreadyExists):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var input models.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if input.Name == "" || input.RepoURL == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("name and repo_url are required"))
		return
	}

	project, err := s.store.CreateProject(r.Context(), input)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, project)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, projects)
}

// resolveProject looks up the {id} path segment as a record ID or a project
// name and returns the plain record ID. All stored rows (commits, files,
// meetings, chunks) are keyed by that ID, so handlers canonicalize before
// touching anything downstream.
func (s *Server) resolveProject(r *http.Request) (*models.Project, string, error) {
	project, err := s.store.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, "", err
	}
	id, err := models.RecordIDString(project.ID)
	if err != nil {
		return nil, "", err
	}
	return project, id, nil
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, _, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, project)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	_, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if err := s.store.DeleteProject(r.Context(), projectID); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

// indexProject enqueues an indexing run and returns immediately with the
// job identifier for polling.
func (s *Server) indexProject(w http.ResponseWriter, r *http.Request) {
	project, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}

	jobID := s.jobs.Enqueue(queue.IndexingPayload{
		ProjectID: projectID,
		RepoURL:   project.RepoURL,
	})
	s.writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

func (s *Server) listCommits(w http.ResponseWriter, r *http.Request) {
	_, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	commits, err := s.store.ListCommits(r.Context(), projectID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, commits)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	_, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	files, err := s.store.ListSourceFiles(r.Context(), projectID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

type meetingResponse struct {
	Meeting *models.Meeting `json:"meeting"`
	JobID   string          `json:"job_id"`
}

// uploadMeeting stores the recording on disk, creates the meeting record
// and enqueues transcription.
func (s *Server) uploadMeeting(w http.ResponseWriter, r *http.Request) {
	_, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("audio file required: %w", err))
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	audioPath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	meeting, err := s.store.CreateMeeting(r.Context(), projectID, title, audioPath)
	if err != nil {
		s.storeError(w, err)
		return
	}

	meetingID, err := models.RecordIDString(meeting.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	jobID := s.jobs.Enqueue(queue.TranscriptionPayload{
		MeetingID: meetingID,
		AudioPath: audioPath,
		ProjectID: projectID,
	})
	s.writeJSON(w, http.StatusAccepted, meetingResponse{Meeting: meeting, JobID: jobID})
}

func (s *Server) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(s.audioDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

func (s *Server) listMeetings(w http.ResponseWriter, r *http.Request) {
	_, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}
	meetings, err := s.store.ListMeetings(r.Context(), projectID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, meetings)
}

// transcribeMeeting re-enqueues transcription for a stored meeting. The
// recording stays on disk until a run has persisted the transcript, so
// failed runs can be retried; after a successful run this returns 409.
func (s *Server) transcribeMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	meeting, err := s.store.GetMeeting(r.Context(), meetingID)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if _, err := os.Stat(meeting.AudioPath); err != nil {
		s.writeError(w, http.StatusConflict, errors.New("recording no longer available"))
		return
	}

	jobID := s.jobs.Enqueue(queue.TranscriptionPayload{
		MeetingID: meetingID,
		AudioPath: meeting.AudioPath,
		ProjectID: meeting.Project,
	})
	s.writeJSON(w, http.StatusAccepted, jobResponse{JobID: jobID})
}

func (s *Server) getMeeting(w http.ResponseWriter, r *http.Request) {
	meeting, err := s.store.GetMeeting(r.Context(), r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, meeting)
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	_, projectID, err := s.resolveProject(r)
	if err != nil {
		s.storeError(w, err)
		return
	}

	answer, err := s.chatter.Ask(r.Context(), projectID, req.Question)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

// jobStatus reports a job's current state. Jobs expire from lookup after
// the retention window; expired and unknown ids both return 404.
func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Status(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, errors.New("job not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}
