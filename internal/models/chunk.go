package models

import (
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk is one embedded slice of a source file or meeting transcript.
// Source distinguishes where the text came from ("file" or "meeting").
type Chunk struct {
	ID         surrealmodels.RecordID `json:"id"`
	Project    string                 `json:"project"`
	Path       string                 `json:"path"`
	Source     string                 `json:"source"`
	ChunkIndex int                    `json:"chunk_index"`
	Content    string                 `json:"content"`
	Embedding  []float32              `json:"embedding,omitempty"`
}

// ChunkInput is the input structure for inserting a chunk.
type ChunkInput struct {
	Project    string    `json:"project"`
	Path       string    `json:"path"`
	Source     string    `json:"source"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
}
