// Package chat answers questions about a project by retrieving the most
// relevant indexed chunks and synthesizing an answer with the language
// model.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/davidgraf/repolens/internal/models"
)

// Retriever finds chunks similar to a query within one project.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query, projectID string, k int) ([]models.Chunk, error)
}

// Synthesizer turns retrieved context into an answer.
type Synthesizer interface {
	SynthesizeAnswer(ctx context.Context, query string, context string) (string, error)
}

// Source is one retrieved chunk cited by an answer.
type Source struct {
	Path       string `json:"path"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
}

// Answer is the chat response plus the chunks it drew from.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Service wires retrieval and synthesis together.
type Service struct {
	retriever   Retriever
	synthesizer Synthesizer
	topK        int
}

// New creates a chat service retrieving topK chunks per question.
func New(retriever Retriever, synthesizer Synthesizer, topK int) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{retriever: retriever, synthesizer: synthesizer, topK: topK}
}

// Ask answers one question about a project. With no indexed content the
// model is not consulted at all.
func (s *Service) Ask(ctx context.Context, projectID, question string) (Answer, error) {
	chunks, err := s.retriever.SimilaritySearch(ctx, question, projectID, s.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}

	if len(chunks) == 0 {
		return Answer{
			Text: "No indexed content found for this project. Index the repository first.",
		}, nil
	}

	answer, err := s.synthesizer.SynthesizeAnswer(ctx, question, buildContext(chunks))
	if err != nil {
		return Answer{}, fmt.Errorf("synthesize answer: %w", err)
	}

	sources := make([]Source, len(chunks))
	for i, c := range chunks {
		sources[i] = Source{Path: c.Path, Source: c.Source, ChunkIndex: c.ChunkIndex}
	}

	slog.Debug("chat answered", "project", projectID, "chunks", len(chunks))
	return Answer{Text: answer, Sources: sources}, nil
}

// buildContext labels each chunk with its origin so the model can cite
// file paths.
func buildContext(chunks []models.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		label := c.Path
		if c.Source == "meeting" {
			label = "meeting " + c.Path
		}
		fmt.Fprintf(&b, "[%s]\n%s", label, c.Content)
	}
	return b.String()
}
