// Package gitrepo obtains a local working copy of a remote repository and
// its bounded commit history by shelling out to git.
package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// logFormat produces one line per commit. Messages may themselves contain
// the separator character and must be reassembled when parsed.
const logFormat = "%H|%an|%ae|%ad|%s"

// Commit is one parsed entry of the commit log.
type Commit struct {
	Hash    string
	Author  string
	Email   string
	Date    time.Time
	Message string
}

// Extractor clones repositories and reads their commit logs.
type Extractor struct {
	// GitBin overrides the git binary, defaulting to "git" on PATH.
	GitBin string
}

func (e *Extractor) git() string {
	if e.GitBin != "" {
		return e.GitBin
	}
	return "git"
}

// Clone materializes repoURL at targetPath. Any pre-existing directory at
// targetPath is removed first so that re-indexing starts from a clean
// snapshot.
func (e *Extractor) Clone(ctx context.Context, repoURL, targetPath string) error {
	if err := os.RemoveAll(targetPath); err != nil {
		return fmt.Errorf("clean snapshot path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot parent: %w", err)
	}

	output, err := runCommand(ctx, e.git(), "clone", repoURL, targetPath)
	if err != nil {
		return fmt.Errorf("git clone: %w: %s", err, strings.TrimSpace(output))
	}
	return nil
}

// Log returns up to limit of the most recent commits at repoPath.
func (e *Extractor) Log(ctx context.Context, repoPath string, limit int) ([]Commit, error) {
	cmd := exec.CommandContext(ctx, e.git(),
		"log",
		"-n", fmt.Sprintf("%d", limit),
		"--date=iso",
		"--pretty=format:"+logFormat,
	)
	cmd.Dir = repoPath

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	return ParseLog(string(out)), nil
}

// ParseLog parses git log output in the hash|author|email|date|message
// format. Malformed lines are dropped; pipes inside the message are
// reassembled rather than truncated.
func ParseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 5 {
			continue
		}

		date, err := parseGitDate(parts[3])
		if err != nil {
			continue
		}

		commits = append(commits, Commit{
			Hash:    parts[0],
			Author:  parts[1],
			Email:   parts[2],
			Date:    date,
			Message: strings.Join(parts[4:], "|"),
		})
	}
	return commits
}

// git's --date=iso format: 2024-01-02 15:04:05 -0700
func parseGitDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05 -0700", strings.TrimSpace(s))
}

// Cleanup removes a snapshot directory recursively.
func (e *Extractor) Cleanup(path string) error {
	return os.RemoveAll(path)
}

// runCommand executes an external binary and captures combined output.
func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()
	return output.String(), err
}
