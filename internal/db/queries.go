package db

import (
	"context"
	"fmt"

	"github.com/davidgraf/repolens/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// CreateProject creates a new project record.
func (c *Client) CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error) {
	results, err := surrealdb.Query[[]models.Project](ctx, c.db, `
		CREATE project CONTENT {
			name: $name,
			repo_url: $repo_url
		}
	`, map[string]any{
		"name":     input.Name,
		"repo_url": input.RepoURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create project: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetProject retrieves a project by record ID or by name, so clients can
// address projects by the name they chose. Returns ErrNotFound if missing.
func (c *Client) GetProject(ctx context.Context, ref string) (*models.Project, error) {
	results, err := surrealdb.Query[[]models.Project](ctx, c.db, `
		SELECT * FROM project WHERE id = type::record("project", $ref) OR name = $ref LIMIT 1
	`, map[string]any{"ref": ref})
	if err != nil {
		return nil, fmt.Errorf("get project: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// ListProjects returns all projects, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	results, err := surrealdb.Query[[]models.Project](ctx, c.db, `
		SELECT * FROM project ORDER BY created_at DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Project{}, nil
	}
	return (*results)[0].Result, nil
}

// DeleteProject removes a project record by ID.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("project", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", wrapQueryError(err))
	}
	return nil
}

// UpsertCommit inserts or updates a commit keyed by (project, hash).
func (c *Client) UpsertCommit(ctx context.Context, input models.CommitInput) error {
	existing, err := surrealdb.Query[[]models.Commit](ctx, c.db, `
		SELECT * FROM commit WHERE project = $project AND hash = $hash LIMIT 1
	`, map[string]any{"project": input.Project, "hash": input.Hash})
	if err != nil {
		return fmt.Errorf("find commit: %w", wrapQueryError(err))
	}

	vars := map[string]any{
		"project": input.Project,
		"hash":    input.Hash,
		"author":  input.Author,
		"email":   input.Email,
		"date":    input.Date,
		"message": input.Message,
	}

	if existing != nil && len(*existing) > 0 && len((*existing)[0].Result) > 0 {
		vars["id"] = (*existing)[0].Result[0].ID
		_, err = surrealdb.Query[any](ctx, c.db, `
			UPDATE $id SET author = $author, email = $email, date = $date, message = $message
		`, vars)
		if err != nil {
			return fmt.Errorf("update commit: %w", wrapQueryError(err))
		}
		return nil
	}

	_, err = surrealdb.Query[any](ctx, c.db, `
		CREATE commit CONTENT {
			project: $project,
			hash: $hash,
			author: $author,
			email: $email,
			date: $date,
			message: $message
		}
	`, vars)
	if err != nil {
		return fmt.Errorf("create commit: %w", wrapQueryError(err))
	}
	return nil
}

// ListCommits returns a project's commits, newest first.
func (c *Client) ListCommits(ctx context.Context, project string) ([]models.Commit, error) {
	results, err := surrealdb.Query[[]models.Commit](ctx, c.db, `
		SELECT * FROM commit WHERE project = $project ORDER BY date DESC
	`, map[string]any{"project": project})
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Commit{}, nil
	}
	return (*results)[0].Result, nil
}

// UpsertSourceFile inserts or updates a source file keyed by (project, path).
func (c *Client) UpsertSourceFile(ctx context.Context, input models.SourceFileInput) error {
	existing, err := surrealdb.Query[[]models.SourceFile](ctx, c.db, `
		SELECT * FROM source_file WHERE project = $project AND path = $path LIMIT 1
	`, map[string]any{"project": input.Project, "path": input.Path})
	if err != nil {
		return fmt.Errorf("find source file: %w", wrapQueryError(err))
	}

	vars := map[string]any{
		"project":  input.Project,
		"name":     input.Name,
		"path":     input.Path,
		"language": input.Language,
		"content":  input.Content,
	}

	if existing != nil && len(*existing) > 0 && len((*existing)[0].Result) > 0 {
		vars["id"] = (*existing)[0].Result[0].ID
		_, err = surrealdb.Query[any](ctx, c.db, `
			UPDATE $id SET name = $name, language = $language, content = $content, updated_at = time::now()
		`, vars)
		if err != nil {
			return fmt.Errorf("update source file: %w", wrapQueryError(err))
		}
		return nil
	}

	_, err = surrealdb.Query[any](ctx, c.db, `
		CREATE source_file CONTENT {
			project: $project,
			name: $name,
			path: $path,
			language: $language,
			content: $content
		}
	`, vars)
	if err != nil {
		return fmt.Errorf("create source file: %w", wrapQueryError(err))
	}
	return nil
}

// ListSourceFiles returns a project's files ordered by path.
func (c *Client) ListSourceFiles(ctx context.Context, project string) ([]models.SourceFile, error) {
	results, err := surrealdb.Query[[]models.SourceFile](ctx, c.db, `
		SELECT * FROM source_file WHERE project = $project ORDER BY path ASC
	`, map[string]any{"project": project})
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.SourceFile{}, nil
	}
	return (*results)[0].Result, nil
}

// CountSourceFiles returns the number of persisted files for a project.
func (c *Client) CountSourceFiles(ctx context.Context, project string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}
	results, err := surrealdb.Query[[]countRow](ctx, c.db, `
		SELECT count() AS count FROM source_file WHERE project = $project GROUP ALL
	`, map[string]any{"project": project})
	if err != nil {
		return 0, fmt.Errorf("count source files: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// CreateMeeting records an uploaded meeting recording.
func (c *Client) CreateMeeting(ctx context.Context, project, title, audioPath string) (*models.Meeting, error) {
	results, err := surrealdb.Query[[]models.Meeting](ctx, c.db, `
		CREATE meeting CONTENT {
			project: $project,
			title: $title,
			audio_path: $audio_path
		}
	`, map[string]any{
		"project":    project,
		"title":      title,
		"audio_path": audioPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create meeting: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create meeting: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// ListMeetings returns a project's meetings, newest first.
func (c *Client) ListMeetings(ctx context.Context, project string) ([]models.Meeting, error) {
	results, err := surrealdb.Query[[]models.Meeting](ctx, c.db, `
		SELECT * FROM meeting WHERE project = $project ORDER BY uploaded_at DESC
	`, map[string]any{"project": project})
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Meeting{}, nil
	}
	return (*results)[0].Result, nil
}

// GetMeeting retrieves a meeting by ID. Returns ErrNotFound if missing.
func (c *Client) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	results, err := surrealdb.Query[[]models.Meeting](ctx, c.db, `
		SELECT * FROM type::record("meeting", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// UpdateMeetingTranscript stores the transcript and summary produced by the
// transcription pipeline.
func (c *Client) UpdateMeetingTranscript(ctx context.Context, id, transcript, summary string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("meeting", $id) SET transcript = $transcript, summary = $summary
	`, map[string]any{
		"id":         id,
		"transcript": transcript,
		"summary":    summary,
	})
	if err != nil {
		return fmt.Errorf("update meeting transcript: %w", wrapQueryError(err))
	}
	return nil
}
