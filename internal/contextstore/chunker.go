package contextstore

import (
	"strings"
	"unicode/utf8"
)

// Default chunking parameters for indexed documents.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separators tried in priority order when splitting oversized text. The
// empty separator means rune-level splitting as the last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// ChunkText splits text into chunks of at most chunkSize characters with
// roughly overlap characters shared between consecutive chunks. Splitting is
// recursive: paragraph boundaries first, then lines, sentences, words, and
// finally runes.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	segments := splitSegments(text, separators, chunkSize)
	return mergeSegments(segments, chunkSize, overlap)
}

// splitSegments breaks text into pieces no longer than chunkSize, trying
// each separator in turn and recursing on oversized pieces.
func splitSegments(text string, seps []string, chunkSize int) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	for i, sep := range seps {
		if sep == "" {
			return splitByRunes(text, chunkSize)
		}
		parts := strings.Split(text, sep)
		if len(parts) == 1 {
			continue
		}
		var segments []string
		for j, part := range parts {
			// Keep the separator attached so merged chunks read naturally
			if j < len(parts)-1 {
				part += sep
			}
			segments = append(segments, splitSegments(part, seps[i+1:], chunkSize)...)
		}
		return segments
	}

	return splitByRunes(text, chunkSize)
}

func splitByRunes(text string, chunkSize int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// mergeSegments packs small segments into chunks up to chunkSize, seeding
// each new chunk with the tail of the previous one for continuity.
func mergeSegments(segments []string, chunkSize, overlap int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		if overlap > 0 && len(chunks) > 0 {
			tail := []rune(chunks[len(chunks)-1])
			if len(tail) > overlap {
				tail = tail[len(tail)-overlap:]
			}
			current.WriteString(string(tail))
		}
	}

	for _, segment := range segments {
		if utf8.RuneCountInString(current.String())+utf8.RuneCountInString(segment) > chunkSize && current.Len() > 0 {
			flush()
		}
		current.WriteString(segment)
	}
	if strings.TrimSpace(current.String()) != "" {
		chunk := strings.TrimSpace(current.String())
		// Skip a trailing chunk that is pure overlap of the previous one
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], chunk) {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
