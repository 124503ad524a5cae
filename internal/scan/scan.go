// Package scan decides which repository files are indexable and classifies
// their content for chunking.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Category drives chunking parameters for a piece of content.
type Category string

const (
	CategoryCode          Category = "code"
	CategoryDocumentation Category = "documentation"
	CategoryMeeting       Category = "meeting"
)

// ignoredDirectories are skipped entirely during traversal, descendants
// included.
var ignoredDirectories = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".next":        {},
	"dist":         {},
	"build":        {},
	"coverage":     {},
	".cache":       {},
	"vendor":       {},
	"__pycache__":  {},
}

// ignoredFiles are skipped by exact name.
var ignoredFiles = map[string]struct{}{
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	".env":              {},
	".env.local":        {},
}

// allowedExtensions is the extension allow-list for indexable files.
var allowedExtensions = map[string]struct{}{
	".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {},
	".py": {}, ".java": {}, ".c": {}, ".cpp": {}, ".h": {},
	".go": {}, ".rs": {}, ".rb": {}, ".php": {},
	".css": {}, ".html": {}, ".vue": {}, ".svelte": {},
	".md": {}, ".txt": {}, ".json": {}, ".yaml": {}, ".yml": {},
	".prisma": {}, ".sql": {}, ".sh": {}, ".bat": {},
	".kt": {}, ".swift": {},
}

// binaryExtensions mark files whose content is never read.
var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".pdf": {}, ".zip": {}, ".tar": {}, ".gz": {}, ".rar": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
}

// languageByExtension maps extensions to human-readable language labels.
var languageByExtension = map[string]string{
	".ts":     "TypeScript",
	".tsx":    "TypeScript React",
	".js":     "JavaScript",
	".jsx":    "JavaScript React",
	".py":     "Python",
	".java":   "Java",
	".c":      "C",
	".cpp":    "C++",
	".h":      "C/C++ Header",
	".go":     "Go",
	".rs":     "Rust",
	".rb":     "Ruby",
	".php":    "PHP",
	".css":    "CSS",
	".html":   "HTML",
	".vue":    "Vue",
	".svelte": "Svelte",
	".md":     "Markdown",
	".json":   "JSON",
	".yaml":   "YAML",
	".yml":    "YAML",
	".prisma": "Prisma",
	".sql":    "SQL",
	".sh":     "Shell",
	".bat":    "Batch",
	".kt":     "Kotlin",
	".swift":  "Swift",
}

// IsIgnoredDirectory reports whether a directory name is on the deny-list.
func IsIgnoredDirectory(name string) bool {
	_, ok := ignoredDirectories[name]
	return ok
}

// IsIgnoredFile reports whether a file name is on the deny-list.
func IsIgnoredFile(name string) bool {
	_, ok := ignoredFiles[name]
	return ok
}

// IsAllowedExtension reports whether a path's extension is on the allow-list.
func IsAllowedExtension(path string) bool {
	_, ok := allowedExtensions[ext(path)]
	return ok
}

// IsBinary reports whether a path's extension is associated with binary
// content.
func IsBinary(path string) bool {
	_, ok := binaryExtensions[ext(path)]
	return ok
}

// DetectLanguage maps a file's extension to a language label, falling back
// to "Unknown".
func DetectLanguage(path string) string {
	if lang, ok := languageByExtension[ext(path)]; ok {
		return lang
	}
	return "Unknown"
}

// ClassifyContentCategory labels a file's content as documentation for prose
// extensions, code otherwise.
func ClassifyContentCategory(path string) Category {
	switch ext(path) {
	case ".md", ".txt", ".rst":
		return CategoryDocumentation
	default:
		return CategoryCode
	}
}

// CollectFiles walks root depth-first and returns the absolute paths of all
// indexable files. Ignored directories are skipped entirely; files are
// filtered by the name deny-list, the extension allow-list, and the binary
// deny-list.
func CollectFiles(root string) ([]string, error) {
	var files []string

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && IsIgnoredDirectory(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if IsIgnoredFile(d.Name()) {
			return nil
		}
		if !IsAllowedExtension(path) || IsBinary(path) {
			return nil
		}
		files = append(files, path)
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	return files, nil
}

// RelativePath returns a file's path relative to root with forward slashes,
// regardless of the host path separator.
func RelativePath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
