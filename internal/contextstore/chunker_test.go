package contextstore

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := ChunkText("a short document", 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0])
}

func TestChunkText_EmptyText(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ChunkText("", 100, 20))
	assert.Nil(t, ChunkText("   \n\n  ", 100, 20))
}

func TestChunkText_RespectsChunkSize(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This is sentence number one of the paragraph. It keeps going for a while.\n\n")
	}

	chunks := ChunkText(b.String(), 200, 40)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200, "chunk %d", i)
		assert.NotEmpty(t, strings.TrimSpace(chunk), "chunk %d", i)
	}
}

func TestChunkText_OverlapCarriesTail(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("alpha beta gamma delta epsilon. ", 30)
	chunks := ChunkText(text, 120, 30)
	require.Greater(t, len(chunks), 1)

	// Each chunk after the first starts with text already seen at the end of
	// its predecessor
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if utf8.RuneCountInString(head) > 20 {
			head = string([]rune(head)[:20])
		}
		assert.Contains(t, chunks[i-1], strings.TrimSpace(head), "chunk %d", i)
	}
}

func TestChunkText_NoSeparators(t *testing.T) {
	t.Parallel()

	// A single unbroken run splits at the rune level
	text := strings.Repeat("x", 550)
	chunks := ChunkText(text, 200, 0)
	require.GreaterOrEqual(t, len(chunks), 3)
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	assert.Equal(t, 550, total)
}
