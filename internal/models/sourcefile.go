package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SourceFile is the latest known content of one repository file.
// At most one record exists per (project, path); paths are
// repository-relative with forward slashes.
type SourceFile struct {
	ID        surrealmodels.RecordID `json:"id"`
	Project   string                 `json:"project"`
	Name      string                 `json:"name"`
	Path      string                 `json:"path"`
	Language  string                 `json:"language"`
	Content   string                 `json:"content"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// SourceFileInput is the input structure for upserting a source file.
type SourceFileInput struct {
	Project  string `json:"project"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Language string `json:"language"`
	Content  string `json:"content"`
}
