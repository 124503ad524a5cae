package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Meeting is an uploaded recording. Transcript and summary stay nil
// until the transcription pipeline completes.
type Meeting struct {
	ID         surrealmodels.RecordID `json:"id"`
	Project    string                 `json:"project"`
	Title      string                 `json:"title"`
	AudioPath  string                 `json:"audio_path"`
	Transcript *string                `json:"transcript,omitempty"`
	Summary    *string                `json:"summary,omitempty"`
	UploadedAt time.Time              `json:"uploaded_at"`
}
