package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Commit is one historical commit of a project's repository.
// Uniqueness is enforced on (project, hash); re-indexing upserts.
type Commit struct {
	ID        surrealmodels.RecordID `json:"id"`
	Project   string                 `json:"project"`
	Hash      string                 `json:"hash"`
	Author    string                 `json:"author"`
	Email     string                 `json:"email"`
	Date      time.Time              `json:"date"`
	Message   string                 `json:"message"`
	CreatedAt time.Time              `json:"created_at"`
}

// CommitInput is the input structure for upserting a commit.
type CommitInput struct {
	Project string    `json:"project"`
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
}
