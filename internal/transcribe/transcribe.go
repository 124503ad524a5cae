// Package transcribe runs the meeting transcription pipeline: audio
// conversion, speech recognition, summarization and embedding of the
// transcript.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/davidgraf/repolens/internal/progress"
	"github.com/davidgraf/repolens/internal/scan"
	"github.com/davidgraf/repolens/internal/speech"
	"github.com/davidgraf/repolens/internal/splitter"
	"github.com/davidgraf/repolens/internal/vectorstore"
)

// Summarizer condenses a transcript into key points and action items.
type Summarizer interface {
	SummarizeMeeting(ctx context.Context, transcript string) (string, error)
}

// MeetingStore persists transcription results.
type MeetingStore interface {
	UpdateMeetingTranscript(ctx context.Context, meetingID, transcript, summary string) error
}

// VectorIndex stores transcript chunks for retrieval.
type VectorIndex interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) (int, error)
	DeletePath(ctx context.Context, projectID, path string) error
}

// Result summarizes one transcription run.
type Result struct {
	Success       bool   `json:"success"`
	Transcript    string `json:"transcript,omitempty"`
	Summary       string `json:"summary,omitempty"`
	ChunksCreated int    `json:"chunks_created"`
	Error         string `json:"error,omitempty"`
}

// Pipeline wires the transcription collaborators together.
type Pipeline struct {
	converter   Converter
	transcriber speech.Transcriber
	summarizer  Summarizer
	store       MeetingStore
	vectors     VectorIndex
	notifier    progress.Notifier
}

// New creates a transcription pipeline.
func New(converter Converter, transcriber speech.Transcriber, summarizer Summarizer, store MeetingStore, vectors VectorIndex, notifier progress.Notifier) *Pipeline {
	if notifier == nil {
		notifier = progress.Nop{}
	}
	return &Pipeline{
		converter:   converter,
		transcriber: transcriber,
		summarizer:  summarizer,
		store:       store,
		vectors:     vectors,
		notifier:    notifier,
	}
}

func (p *Pipeline) emit(projectID, status string, pct int) {
	p.notifier.Emit(progress.Event{ProjectID: projectID, Status: status, Progress: pct})
}

// TranscribeMeeting runs the full pipeline for one uploaded recording.
// Conversion and recognition failures are fatal; a summarization failure
// falls back to a deterministic transcript preview so the transcript is
// never lost.
func (p *Pipeline) TranscribeMeeting(ctx context.Context, projectID, meetingID, audioPath string) (Result, error) {
	log := slog.With("project", projectID, "meeting", meetingID)
	log.Info("transcription started", "audio", audioPath)

	p.emit(projectID, "converting", 10)
	wavPath, err := p.converter.ToWav(ctx, audioPath)
	if err != nil {
		err = fmt.Errorf("convert audio: %w", err)
		return Result{Error: err.Error()}, err
	}
	// The converted wav is scratch on every exit path. The original upload
	// must survive failed runs so a transcription can be retried against it;
	// it is removed only after the transcript has been persisted.
	defer func() {
		if wavPath == audioPath {
			return
		}
		if err := os.Remove(wavPath); err != nil && !os.IsNotExist(err) {
			log.Warn("audio cleanup failed", "path", wavPath, "error", err)
		}
	}()

	p.emit(projectID, "transcribing", 40)
	transcript, err := p.transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		err = fmt.Errorf("transcribe audio: %w", err)
		return Result{Error: err.Error()}, err
	}

	p.emit(projectID, "summarizing", 70)
	summary, err := p.summarizer.SummarizeMeeting(ctx, transcript)
	if err != nil {
		log.Warn("summarization failed, using transcript preview", "error", err)
		summary = fallbackSummary(transcript)
	}

	if err := p.store.UpdateMeetingTranscript(ctx, meetingID, transcript, summary); err != nil {
		err = fmt.Errorf("store transcript: %w", err)
		return Result{Error: err.Error()}, err
	}
	// The transcript is durable now, so the upload is no longer needed.
	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		log.Warn("audio cleanup failed", "path", audioPath, "error", err)
	}

	p.emit(projectID, "creating_embeddings", 90)
	if err := p.vectors.DeletePath(ctx, projectID, meetingID); err != nil {
		err = fmt.Errorf("clear meeting embeddings: %w", err)
		return Result{Error: err.Error()}, err
	}
	var docs []vectorstore.Document
	for i, chunk := range splitter.Split(transcript, scan.CategoryMeeting) {
		docs = append(docs, vectorstore.Document{
			Project:    projectID,
			Path:       meetingID,
			Source:     "meeting",
			ChunkIndex: i,
			Content:    chunk,
		})
	}
	chunksCreated, err := p.vectors.AddDocuments(ctx, docs)
	if err != nil {
		err = fmt.Errorf("embed transcript: %w", err)
		return Result{Error: err.Error()}, err
	}

	p.emit(projectID, "complete", 100)
	log.Info("transcription finished", "transcript_chars", len(transcript), "chunks", chunksCreated)

	return Result{
		Success:       true,
		Transcript:    transcript,
		Summary:       summary,
		ChunksCreated: chunksCreated,
	}, nil
}

// fallbackSummary builds a summary from the transcript itself when no
// model is available.
func fallbackSummary(transcript string) string {
	var nonBlank []string
	for _, line := range strings.Split(transcript, "\n") {
		if strings.TrimSpace(line) != "" {
			nonBlank = append(nonBlank, line)
		}
	}

	preview := nonBlank
	if len(preview) > 5 {
		preview = preview[:5]
	}

	return fmt.Sprintf("Meeting Summary:\n\nTotal lines: %d\nPreview:\n%s...",
		len(nonBlank), strings.Join(preview, "\n"))
}
