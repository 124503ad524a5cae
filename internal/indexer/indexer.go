// Package indexer runs the repository indexing pipeline: clone, commit
// extraction, file scanning, relational persistence, chunking and
// embedding.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/davidgraf/repolens/internal/gitrepo"
	"github.com/davidgraf/repolens/internal/models"
	"github.com/davidgraf/repolens/internal/progress"
	"github.com/davidgraf/repolens/internal/scan"
	"github.com/davidgraf/repolens/internal/splitter"
	"github.com/davidgraf/repolens/internal/vectorstore"
)

// Snapshotter produces a working tree and commit history for a repository.
type Snapshotter interface {
	Clone(ctx context.Context, repoURL, targetPath string) error
	Log(ctx context.Context, repoPath string, limit int) ([]gitrepo.Commit, error)
	Cleanup(path string) error
}

// Store persists the relational side of an indexing run.
type Store interface {
	UpsertCommit(ctx context.Context, input models.CommitInput) error
	UpsertSourceFile(ctx context.Context, input models.SourceFileInput) error
}

// VectorIndex persists and clears embedded chunks.
type VectorIndex interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) (int, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// Result summarizes one indexing run.
type Result struct {
	Success       bool   `json:"success"`
	FilesIndexed  int    `json:"files_indexed"`
	ChunksCreated int    `json:"chunks_created"`
	Summary       string `json:"summary,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Indexer wires the pipeline's collaborators together.
type Indexer struct {
	snapshots Snapshotter
	store     Store
	vectors   VectorIndex
	notifier  progress.Notifier

	workRoot    string
	commitLimit int
}

// New creates an indexer. workRoot is the scratch directory clones live
// under; commitLimit caps how much history is extracted per run.
func New(snapshots Snapshotter, store Store, vectors VectorIndex, notifier progress.Notifier, workRoot string, commitLimit int) *Indexer {
	if notifier == nil {
		notifier = progress.Nop{}
	}
	return &Indexer{
		snapshots:   snapshots,
		store:       store,
		vectors:     vectors,
		notifier:    notifier,
		workRoot:    workRoot,
		commitLimit: commitLimit,
	}
}

func (ix *Indexer) emit(projectID, status string, pct int) {
	ix.notifier.Emit(progress.Event{ProjectID: projectID, Status: status, Progress: pct})
}

// IndexRepository runs the full pipeline for one project. The returned
// Result is also populated on failure; the error mirrors Result.Error for
// callers that propagate it into a job status.
func (ix *Indexer) IndexRepository(ctx context.Context, projectID, repoURL string) (Result, error) {
	log := slog.With("project", projectID, "repo_url", repoURL)
	log.Info("indexing started")

	repoPath := filepath.Join(ix.workRoot, projectID)
	// Cleanup also runs on failure exits so failed runs do not leave
	// clones behind.
	cleaned := false
	cleanup := func() {
		if cleaned {
			return
		}
		cleaned = true
		if err := ix.snapshots.Cleanup(repoPath); err != nil {
			log.Warn("clone cleanup failed", "path", repoPath, "error", err)
		}
	}
	defer cleanup()

	ix.emit(projectID, "cloning", 10)
	if err := ix.snapshots.Clone(ctx, repoURL, repoPath); err != nil {
		err = fmt.Errorf("clone repository: %w", err)
		return Result{Error: err.Error()}, err
	}

	ix.emit(projectID, "processing", 30)
	commits, err := ix.snapshots.Log(ctx, repoPath, ix.commitLimit)
	if err != nil {
		// History extraction is best effort. A repository with no
		// readable log still gets its files indexed.
		log.Warn("commit extraction failed", "error", err)
		commits = nil
	}
	commitsStored := 0
	for _, c := range commits {
		input := models.CommitInput{
			Project: projectID,
			Hash:    c.Hash,
			Author:  c.Author,
			Email:   c.Email,
			Date:    c.Date,
			Message: c.Message,
		}
		if err := ix.store.UpsertCommit(ctx, input); err != nil {
			log.Warn("commit skipped", "hash", c.Hash, "error", err)
			continue
		}
		commitsStored++
	}

	ix.emit(projectID, "scanning", 45)
	paths, err := scan.CollectFiles(repoPath)
	if err != nil {
		err = fmt.Errorf("scan repository: %w", err)
		return Result{Error: err.Error()}, err
	}

	ix.emit(projectID, "processing", 60)
	filesIndexed := 0
	var docs []vectorstore.Document
	for _, path := range paths {
		relPath, err := scan.RelativePath(repoPath, path)
		if err != nil {
			log.Warn("file skipped", "path", path, "error", err)
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn("file skipped", "path", relPath, "error", err)
			continue
		}

		input := models.SourceFileInput{
			Project:  projectID,
			Name:     filepath.Base(path),
			Path:     relPath,
			Language: scan.DetectLanguage(path),
			Content:  string(content),
		}
		if err := ix.store.UpsertSourceFile(ctx, input); err != nil {
			log.Warn("file skipped", "path", relPath, "error", err)
			continue
		}
		filesIndexed++

		category := scan.ClassifyContentCategory(path)
		for i, chunk := range splitter.Split(string(content), category) {
			docs = append(docs, vectorstore.Document{
				Project:    projectID,
				Path:       relPath,
				Source:     "file",
				ChunkIndex: i,
				Content:    chunk,
			})
		}
	}

	// Old chunks go before new ones arrive so a project never holds
	// embeddings for files that vanished from the repository.
	ix.emit(projectID, "clearing_embeddings", 80)
	if err := ix.vectors.DeleteProject(ctx, projectID); err != nil {
		err = fmt.Errorf("clear embeddings: %w", err)
		return Result{Error: err.Error()}, err
	}

	ix.emit(projectID, "creating_embeddings", 90)
	chunksCreated, err := ix.vectors.AddDocuments(ctx, docs)
	if err != nil {
		err = fmt.Errorf("create embeddings: %w", err)
		return Result{Error: err.Error()}, err
	}

	ix.emit(projectID, "cleaning", 95)
	cleanup()

	ix.emit(projectID, "complete", 100)
	summary := fmt.Sprintf("Indexed %d files and %d commits", filesIndexed, commitsStored)
	log.Info("indexing finished", "files", filesIndexed, "commits", commitsStored, "chunks", chunksCreated)

	return Result{
		Success:       true,
		FilesIndexed:  filesIndexed,
		ChunksCreated: chunksCreated,
		Summary:       summary,
	}, nil
}
