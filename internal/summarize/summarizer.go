package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"personabrief/internal/core"
	"personabrief/internal/llm"
	"personabrief/internal/logger"
)

// LLMClient defines the completion surface the summarizer needs.
type LLMClient interface {
	GenerateText(ctx context.Context, prompt string, opts llm.TextOptions) (string, error)
	ModelName() string
}

// Options configures the summarizer behavior.
type Options struct {
	// MaxTokens caps each generated summary.
	MaxTokens int32

	// Temperature for generation; summaries want consistency over flair.
	Temperature float32

	// RequestsPerSec paces chunk summarization against the shared provider
	// rate limit. Zero disables pacing.
	RequestsPerSec float64

	// CallTimeout bounds each individual provider call so one stuck call
	// cannot hang the whole run.
	CallTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxTokens:      500,
		Temperature:    0.3,
		RequestsPerSec: 0.5,
		CallTimeout:    60 * time.Second,
	}
}

// Summarizer turns document chunks into per-chunk summaries and reduces
// them into one persona-targeted executive summary.
type Summarizer struct {
	client  LLMClient
	options Options
	limiter *rate.Limiter
}

// NewSummarizer creates a summarizer with the given client and options.
func NewSummarizer(client LLMClient, options Options) *Summarizer {
	var limiter *rate.Limiter
	if options.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSec), 1)
	}
	return &Summarizer{client: client, options: options, limiter: limiter}
}

// chunkPrompt frames one chunk for one persona.
const chunkPrompt = `The following is part %d of %d of a larger document. Summarize it for a %s, focusing only on the information relevant to that role's responsibilities. Be concise and concrete; skip generic background.

Document part:
%s`

// SummarizeChunks produces one summary per chunk, in chunk order. A failed
// chunk fills its slot with an explicit placeholder naming the chunk and
// the error, and the batch continues; no chunk failure is fatal. Pacing
// between calls respects the configured request rate.
func (s *Summarizer) SummarizeChunks(ctx context.Context, chunks []core.Chunk, persona *core.Persona) ([]core.ChunkSummary, error) {
	summaries := make([]core.ChunkSummary, len(chunks))

	for i, chunk := range chunks {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := s.summarizeChunk(ctx, chunk, len(chunks), persona)
		if err != nil {
			logger.Warn("chunk summarization failed", "chunk", chunk.Index, "error", err.Error())
			summaries[i] = core.ChunkSummary{
				Index:  chunk.Index,
				Text:   fmt.Sprintf("[chunk %d failed: %v]", chunk.Index, err),
				Failed: true,
			}
			continue
		}
		summaries[i] = core.ChunkSummary{Index: chunk.Index, Text: text}
	}

	return summaries, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, chunk core.Chunk, total int, persona *core.Persona) (string, error) {
	callCtx := ctx
	if s.options.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.options.CallTimeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(chunkPrompt, chunk.Index+1, total, persona.Name, chunk.Text)
	return s.client.GenerateText(callCtx, prompt, llm.TextOptions{
		MaxTokens:   s.options.MaxTokens,
		Temperature: s.options.Temperature,
		System:      persona.Description,
	})
}

// Reduce combines all chunk summaries, persona metadata, and glossary
// context into one final synthesis call. Provider failure soft-fails into
// an explicit error narrative in the result text rather than propagating
// past the pipeline boundary.
func (s *Summarizer) Reduce(ctx context.Context, doc *core.Document, summaries []core.ChunkSummary, persona *core.Persona, glossary []core.GlossarySnippet) *core.ExecutiveSummary {
	result := &core.ExecutiveSummary{
		ID:            uuid.NewString(),
		DocumentID:    doc.ID,
		Persona:       persona.Name,
		ChunkCount:    len(summaries),
		ModelUsed:     s.client.ModelName(),
		DateGenerated: time.Now().UTC(),
	}
	for _, summary := range summaries {
		if summary.Failed {
			result.FailedChunks++
		}
	}

	callCtx := ctx
	if s.options.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.options.CallTimeout)
		defer cancel()
	}

	text, err := s.client.GenerateText(callCtx, reducePrompt(doc, summaries, persona, glossary), llm.TextOptions{
		MaxTokens:   s.options.MaxTokens,
		Temperature: s.options.Temperature,
		System:      persona.Description,
	})
	if err != nil {
		logger.Error("executive summary reduction failed", err, "document", doc.Filename)
		result.Text = fmt.Sprintf("Summary generation failed: %v. %d of %d section summaries were produced and are retained above.",
			err, len(summaries)-result.FailedChunks, len(summaries))
		return result
	}

	result.Text = strings.TrimSpace(text)
	return result
}

// reducePrompt weaves the ordered chunk summaries, persona preferences,
// and glossary snippets into the synthesis instruction.
func reducePrompt(doc *core.Document, summaries []core.ChunkSummary, persona *core.Persona, glossary []core.GlossarySnippet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are preparing an executive summary of the document %q for a %s.\n\n", doc.Filename, persona.Name)

	if persona.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", persona.Tone)
	}
	if persona.Format != "" {
		fmt.Fprintf(&b, "Preferred format: %s\n", persona.Format)
	}
	if len(persona.Goals) > 0 {
		fmt.Fprintf(&b, "Reader goals: %s\n", strings.Join(persona.Goals, "; "))
	}
	if persona.DomainFocus != "" {
		fmt.Fprintf(&b, "Domain focus: %s\n", persona.DomainFocus)
	}

	if len(glossary) > 0 {
		b.WriteString("\nGlossary context that may clarify terminology:\n")
		for _, snippet := range glossary {
			fmt.Fprintf(&b, "- %s\n", snippet.Text)
		}
	}

	b.WriteString("\nThe document was summarized section by section, in order:\n\n")
	for _, summary := range summaries {
		fmt.Fprintf(&b, "--- Section %d ---\n%s\n\n", summary.Index+1, summary.Text)
	}

	b.WriteString(`Synthesize these section summaries into one cohesive executive summary. Foreground the findings this reader would act on; leave out generic material and do not restate section boundaries. If a section summary is an error placeholder, ignore it rather than mentioning the error.`)

	return b.String()
}
