// Package models defines the record types persisted for indexed projects.
package models

import (
	"fmt"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Project is a connected source-code repository.
type Project struct {
	ID        surrealmodels.RecordID `json:"id"`
	Name      string                 `json:"name"`
	RepoURL   string                 `json:"repo_url"`
	CreatedAt time.Time              `json:"created_at"`
}

// ProjectInput is the input structure for creating a project.
type ProjectInput struct {
	Name    string `json:"name"`
	RepoURL string `json:"repo_url"`
}

// RecordIDString extracts the bare identifier from a SurrealDB record ID.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	switch v := id.ID.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported record ID type %T", id.ID)
	}
}
