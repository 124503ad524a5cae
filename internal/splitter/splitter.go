// Package splitter cuts raw text into overlapping chunks sized for
// independent embedding. Splitting prefers paragraph boundaries, then line
// boundaries, then spaces, and falls back to arbitrary character positions
// for unbroken runs longer than the chunk size.
package splitter

import (
	"strings"
	"unicode/utf8"

	"github.com/davidgraf/repolens/internal/scan"
)

// Config defines chunking parameters for one content category.
type Config struct {
	// ChunkSize is the maximum chunk length in characters. A single
	// unbreakable run longer than this may still produce an oversized chunk.
	ChunkSize int
	// ChunkOverlap is the approximate character overlap between consecutive
	// chunks.
	ChunkOverlap int
}

// Per-category defaults. Code gets larger chunks than prose so that
// functions survive splitting intact.
var configs = map[scan.Category]Config{
	scan.CategoryCode:          {ChunkSize: 1500, ChunkOverlap: 200},
	scan.CategoryDocumentation: {ChunkSize: 1000, ChunkOverlap: 100},
	scan.CategoryMeeting:       {ChunkSize: 800, ChunkOverlap: 150},
}

// ConfigFor returns the chunking parameters for a content category.
// Unknown categories fall back to the code configuration.
func ConfigFor(category scan.Category) Config {
	if cfg, ok := configs[category]; ok {
		return cfg
	}
	return configs[scan.CategoryCode]
}

// separators in preference order. The empty separator splits between
// arbitrary characters and always applies.
var separators = []string{"\n\n", "\n", " ", ""}

// Split cuts content into chunks for the given content category.
// Empty content yields no chunks.
func Split(content string, category scan.Category) []string {
	return SplitWithConfig(content, ConfigFor(category))
}

// SplitWithConfig cuts content into chunks using explicit parameters.
func SplitWithConfig(content string, cfg Config) []string {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return splitRecursive(content, separators, cfg)
}

// splitRecursive splits text on the first separator that occurs in it,
// merges the pieces back into chunks of at most ChunkSize characters, and
// recurses with finer separators on pieces that are still too large.
func splitRecursive(text string, seps []string, cfg Config) []string {
	sep := seps[len(seps)-1]
	var finer []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			finer = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		// Last resort: split between characters (rune-safe).
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var chunks []string
	var fitting []string

	flush := func() {
		if len(fitting) > 0 {
			chunks = append(chunks, merge(fitting, sep, cfg)...)
			fitting = nil
		}
	}

	for _, piece := range pieces {
		if length(piece) <= cfg.ChunkSize {
			fitting = append(fitting, piece)
			continue
		}
		flush()
		if len(finer) == 0 {
			// A single unbreakable run; emit oversized rather than corrupt it.
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, splitRecursive(piece, finer, cfg)...)
		}
	}
	flush()

	return chunks
}

// merge greedily joins pieces into chunks of at most ChunkSize characters,
// carrying roughly ChunkOverlap trailing characters into the next chunk.
func merge(pieces []string, sep string, cfg Config) []string {
	sepLen := length(sep)

	var chunks []string
	var window []string
	total := 0

	emit := func() {
		joined := strings.TrimSpace(strings.Join(window, sep))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := length(piece)

		joinLen := 0
		if len(window) > 0 {
			joinLen = sepLen
		}

		if total+pieceLen+joinLen > cfg.ChunkSize && len(window) > 0 {
			emit()

			// Shrink the window from the front until it fits within the
			// overlap budget and leaves room for the next piece.
			for total > cfg.ChunkOverlap ||
				(total+pieceLen+joinLen > cfg.ChunkSize && total > 0) {
				total -= length(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}

		window = append(window, piece)
		total += pieceLen
		if len(window) > 1 {
			total += sepLen
		}
	}

	emit()
	return chunks
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
