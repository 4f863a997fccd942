package tokenizer

import (
	"fmt"
	"strings"
	"testing"
)

func makeText(tokenCount int) string {
	var b strings.Builder
	for i := 0; i < tokenCount; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "tok%d", i)
	}
	return b.String()
}

func TestCountTokens(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty", text: "", expected: 0},
		{name: "whitespace only", text: "  \n\t ", expected: 0},
		{name: "simple sentence", text: "the quick brown fox", expected: 4},
		{name: "collapses repeated whitespace", text: "a   b \n\n c", expected: 3},
		{name: "control characters sanitized", text: "alpha\x00beta\x07gamma", expected: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CountTokens(tc.text); got != tc.expected {
				t.Errorf("CountTokens(%q) = %d, want %d", tc.text, got, tc.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	text := makeText(100)

	if got := Truncate(text, 10); CountTokens(got) != 10 {
		t.Errorf("expected 10 tokens after truncation, got %d", CountTokens(got))
	}

	if got := Truncate(text, 200); CountTokens(got) != 100 {
		t.Errorf("truncation above length should be a no-op, got %d tokens", CountTokens(got))
	}
}

func TestChunkBoundaries(t *testing.T) {
	// 10,000 tokens with chunk_size=3072 and overlap=256 advance the cursor
	// by 2816 and yield 4 chunks, the last one shorter.
	text := makeText(10000)

	chunks, err := Chunk(text, 3072, 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	expectedStarts := []int{0, 2816, 5632, 8448}
	for i, chunk := range chunks {
		if chunk.TokenStart != expectedStarts[i] {
			t.Errorf("chunk %d starts at token %d, want %d", i, chunk.TokenStart, expectedStarts[i])
		}
		if chunk.Index != i {
			t.Errorf("chunk %d carries index %d", i, chunk.Index)
		}
	}

	if last := chunks[3]; last.TokenCount != 10000-8448 {
		t.Errorf("last chunk has %d tokens, want %d", last.TokenCount, 10000-8448)
	}
}

func TestChunkDeterministic(t *testing.T) {
	text := makeText(5000)

	first, err := Chunk(text, 512, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Chunk(text, 512, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkReconstruction(t *testing.T) {
	// Trimming each chunk's leading overlap must reconstruct the original
	// token sequence without gaps or duplication.
	text := makeText(1000)
	chunkSize, overlap := 128, 32

	chunks, err := Chunk(text, chunkSize, overlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rebuilt []string
	for i, chunk := range chunks {
		tokens := Encode(chunk.Text)
		if i > 0 {
			tokens = tokens[overlap:]
		}
		rebuilt = append(rebuilt, tokens...)
	}

	original := Encode(text)
	if len(rebuilt) != len(original) {
		t.Fatalf("rebuilt %d tokens, want %d", len(rebuilt), len(original))
	}
	for i := range original {
		if rebuilt[i] != original[i] {
			t.Fatalf("token %d mismatch: %q vs %q", i, rebuilt[i], original[i])
		}
	}
}

func TestChunkInvalidParameters(t *testing.T) {
	testCases := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{name: "zero chunk size", chunkSize: 0, overlap: 0},
		{name: "negative overlap", chunkSize: 100, overlap: -1},
		{name: "overlap equals chunk size", chunkSize: 100, overlap: 100},
		{name: "overlap exceeds chunk size", chunkSize: 100, overlap: 150},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Chunk("some text", tc.chunkSize, tc.overlap); err == nil {
				t.Errorf("expected error for chunk_size=%d overlap=%d", tc.chunkSize, tc.overlap)
			}
		})
	}
}

func TestChunkEmptyText(t *testing.T) {
	chunks, err := Chunk("", 100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}
