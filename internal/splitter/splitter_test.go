package splitter

import (
	"strings"
	"testing"

	"github.com/davidgraf/repolens/internal/scan"
)

func TestSplitEmptyContent(t *testing.T) {
	tests := []string{"", "   ", "\n\n\t"}
	for _, content := range tests {
		if chunks := Split(content, scan.CategoryCode); len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", content, len(chunks))
		}
	}
}

func TestSplitShortContent(t *testing.T) {
	content := "short paragraph that easily fits in one chunk"
	chunks := Split(content, scan.CategoryDocumentation)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != content {
		t.Errorf("chunk = %q, want unchanged content", chunks[0])
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	// Many paragraphs, each well under the chunk size.
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString(strings.Repeat("lorem ipsum dolor sit amet ", 4))
		b.WriteString("\n\n")
	}
	content := b.String()

	cfg := Config{ChunkSize: 500, ChunkOverlap: 50}
	chunks := SplitWithConfig(content, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > cfg.ChunkSize {
			t.Errorf("chunk[%d] length %d exceeds chunk size %d", i, len(c), cfg.ChunkSize)
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk[%d] is blank", i)
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	content := strings.Join(words, " ")

	cfg := Config{ChunkSize: 100, ChunkOverlap: 30}
	chunks := SplitWithConfig(content, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Consecutive chunks must share an overlap region: the next chunk
	// starts with a suffix of the previous one.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		overlapped := false
		for n := min(len(prev), len(cur)); n > 0; n-- {
			if strings.HasSuffix(prev, cur[:n]) {
				overlapped = true
				break
			}
		}
		if !overlapped {
			t.Errorf("chunks %d and %d share no overlap region", i-1, i)
		}
	}
}

func TestSplitUnbreakableRun(t *testing.T) {
	// A single token longer than the chunk size cannot be broken on any
	// separator except character positions.
	content := strings.Repeat("x", 250)

	cfg := Config{ChunkSize: 100, ChunkOverlap: 10}
	chunks := SplitWithConfig(content, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected the run to be split at character positions, got %d chunks", len(chunks))
	}
	var rebuilt strings.Builder
	for _, c := range chunks {
		if len(c) > cfg.ChunkSize {
			t.Errorf("character-split chunk length %d exceeds %d", len(c), cfg.ChunkSize)
		}
		rebuilt.WriteString(c)
	}
	if !strings.HasPrefix(rebuilt.String(), "xxx") {
		t.Error("chunk content corrupted")
	}
}

func TestSplitKeepsExactSizePieceWhole(t *testing.T) {
	// A piece of exactly ChunkSize fits and must come back as one chunk
	// instead of being pushed down to finer separators.
	exact := "aaaa bbbb cccc"
	cfg := Config{ChunkSize: len(exact), ChunkOverlap: 0}
	content := "hi\n\n" + exact + "\n\nbye"

	chunks := SplitWithConfig(content, cfg)

	found := false
	for _, c := range chunks {
		if c == exact {
			found = true
		}
		if len(c) > cfg.ChunkSize {
			t.Errorf("chunk %q length %d exceeds %d", c, len(c), cfg.ChunkSize)
		}
	}
	if !found {
		t.Errorf("chunks = %q, want %q kept whole", chunks, exact)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("alpha ", 12)
	para2 := strings.Repeat("beta ", 12)
	content := strings.TrimSpace(para1) + "\n\n" + strings.TrimSpace(para2)

	cfg := Config{ChunkSize: 80, ChunkOverlap: 0}
	chunks := SplitWithConfig(content, cfg)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (one per paragraph)", len(chunks))
	}
	if strings.Contains(chunks[0], "beta") || strings.Contains(chunks[1], "alpha") {
		t.Error("paragraphs were not kept apart")
	}
}

func TestConfigFor(t *testing.T) {
	tests := []struct {
		category    scan.Category
		wantSize    int
		wantOverlap int
	}{
		{scan.CategoryCode, 1500, 200},
		{scan.CategoryDocumentation, 1000, 100},
		{scan.CategoryMeeting, 800, 150},
		{scan.Category("bogus"), 1500, 200}, // falls back to code
	}

	for _, tt := range tests {
		cfg := ConfigFor(tt.category)
		if cfg.ChunkSize != tt.wantSize || cfg.ChunkOverlap != tt.wantOverlap {
			t.Errorf("ConfigFor(%q) = %+v, want {%d %d}", tt.category, cfg, tt.wantSize, tt.wantOverlap)
		}
	}
}
