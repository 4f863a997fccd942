// Package tokenizer provides the token model used everywhere the pipeline
// needs a budget: counting, truncation, and overlapping chunk windows.
// Tokens are whitespace-delimited terms after sanitization, which keeps
// chunking deterministic and reproducible across runs.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"personabrief/internal/core"
)

// Encode splits text into its token sequence. Control characters and other
// non-printable runes are sanitized to spaces first so reserved sequences
// in pasted or PDF-extracted text cannot break encoding.
func Encode(text string) []string {
	return strings.Fields(sanitize(text))
}

// Decode joins a token sequence back into text.
func Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

// CountTokens returns the number of tokens in text.
func CountTokens(text string) int {
	return len(Encode(text))
}

// Truncate returns text cut down to at most maxTokens tokens.
func Truncate(text string, maxTokens int) string {
	tokens := Encode(text)
	if len(tokens) <= maxTokens {
		return Decode(tokens)
	}
	return Decode(tokens[:maxTokens])
}

// Chunk splits text into overlapping token windows of chunkSize tokens.
// The cursor advances by chunkSize-overlap until it passes the total token
// count, so every window after the first repeats the last overlap tokens of
// its predecessor and the final window may be shorter than chunkSize.
// Identical input and parameters always produce identical boundaries.
func Chunk(text string, chunkSize, overlap int) ([]core.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must satisfy 0 <= overlap < chunk_size, got overlap=%d chunk_size=%d", overlap, chunkSize)
	}

	tokens := Encode(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []core.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, core.Chunk{
			Index:      len(chunks),
			Text:       Decode(tokens[start:end]),
			TokenStart: start,
			TokenCount: end - start,
		})
	}
	return chunks, nil
}

// sanitize replaces control and other non-printable runes with spaces,
// preserving ordinary whitespace so token boundaries survive.
func sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			return ' '
		}
		return r
	}, text)
}
