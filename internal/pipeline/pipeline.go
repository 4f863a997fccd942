// Package pipeline orchestrates one summarization run: keyword
// extraction, relevance scoring against a persona, the accept/reject
// gate, chunking, per-chunk summarization, and the final reduction.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"personabrief/internal/core"
	"personabrief/internal/llm"
	"personabrief/internal/logger"
	"personabrief/internal/personas"
	"personabrief/internal/relevance"
	"personabrief/internal/tokenizer"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusRejected Status = "rejected" // Gate declined the document; a SkippedRecord was written
	StatusReduced  Status = "reduced"  // Executive summary produced
)

// LLM is the provider surface the pipeline calls directly. Chunk
// summarization and reduction go through the Summarizer instead.
type LLM interface {
	ExtractKeywords(ctx context.Context, text string) llm.KeywordResult
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Summarizer handles the fan-out and reduction stages.
type Summarizer interface {
	SummarizeChunks(ctx context.Context, chunks []core.Chunk, persona *core.Persona) ([]core.ChunkSummary, error)
	Reduce(ctx context.Context, doc *core.Document, summaries []core.ChunkSummary, persona *core.Persona, glossary []core.GlossarySnippet) *core.ExecutiveSummary
}

// AuditLog receives the rejection records the gate emits.
type AuditLog interface {
	RecordSkipped(record core.SkippedRecord) error
}

// Options configures a pipeline instance.
type Options struct {
	ChunkSize       int // Nominal tokens per chunk
	ChunkOverlap    int // Tokens shared with the previous chunk
	PrefixRetrySize int // Tokens of document prefix used for the keyword retry
	GlossaryTopK    int // Glossary snippets fetched for reduction context
}

// DefaultOptions returns the standard pipeline parameters.
func DefaultOptions() Options {
	return Options{
		ChunkSize:       3072,
		ChunkOverlap:    256,
		PrefixRetrySize: 3072,
		GlossaryTopK:    5,
	}
}

// Result is the single artifact of a run: either a summary or a
// rejection record, never both.
type Result struct {
	Status  Status
	Summary *core.ExecutiveSummary // Set when Status is StatusReduced
	Skipped *core.SkippedRecord    // Set when Status is StatusRejected
	Score   float64                // Calibrated relevance score (0.0 when irrelevant)
	Label   relevance.Label
}

// Pipeline wires the stages together. Construct once per process and
// share across runs; each run owns its own document state.
type Pipeline struct {
	llm        LLM
	summarizer Summarizer
	store      personas.Store
	scorer     *relevance.Scorer
	audit      AuditLog
	options    Options
}

// New creates a pipeline over the given collaborators.
func New(llmClient LLM, summarizer Summarizer, store personas.Store, scorer *relevance.Scorer, audit AuditLog, options Options) *Pipeline {
	return &Pipeline{
		llm:        llmClient,
		summarizer: summarizer,
		store:      store,
		scorer:     scorer,
		audit:      audit,
		options:    options,
	}
}

// Run processes one document for one persona. force bypasses the
// relevance gate; it cannot rescue a document whose keyword extraction
// found nothing, because there is then no signal to summarize against.
func (p *Pipeline) Run(ctx context.Context, doc *core.Document, personaName string, force bool) (*Result, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: document has no extractable text", core.ErrInvalidInput)
	}
	if strings.TrimSpace(personaName) == "" {
		return nil, fmt.Errorf("%w: no persona selected", core.ErrInvalidInput)
	}

	persona, err := p.store.Get(ctx, personaName)
	if err != nil {
		return nil, fmt.Errorf("persona lookup failed for %q: %w", personaName, err)
	}

	keywords, err := p.extractKeywords(ctx, doc.Text)
	if err != nil {
		return nil, err
	}
	if keywords == "" {
		// Nothing domain-relevant even in the prefix retry: terminal
		// business outcome, not an error.
		return p.reject(doc, personaName, 0.0, relevance.LabelIrrelevant)
	}
	doc.Keywords = keywords
	logger.Debug("extracted keywords", "document", doc.Filename, "keywords", keywords)

	doc.Embedding, err = p.llm.GenerateEmbedding(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("document embedding failed: %w", err)
	}

	personaVector, err := p.personaVector(ctx, persona)
	if err != nil {
		return nil, err
	}

	score := p.scorer.Score(doc.Embedding, personaVector)
	label := p.scorer.Label(score)
	logger.Info("scored document", "document", doc.Filename, "persona", personaName, "score", score, "label", string(label))

	if !p.scorer.Accept(score) && !force {
		return p.reject(doc, personaName, score, label)
	}

	doc.Chunks, err = tokenizer.Chunk(doc.Text, p.options.ChunkSize, p.options.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	summaries, err := p.summarizer.SummarizeChunks(ctx, doc.Chunks, persona)
	if err != nil {
		return nil, err
	}

	glossary := p.glossaryContext(ctx, doc.Embedding)

	summary := p.summarizer.Reduce(ctx, doc, summaries, persona, glossary)
	summary.Score = score
	summary.Label = string(label)

	return &Result{
		Status:  StatusReduced,
		Summary: summary,
		Score:   score,
		Label:   label,
	}, nil
}

// extractKeywords runs extraction on the full text and, when the model
// finds nothing, retries once against a prefix of the document. One
// off-topic stretch must not disqualify a long document on its own.
func (p *Pipeline) extractKeywords(ctx context.Context, text string) (string, error) {
	result := p.llm.ExtractKeywords(ctx, text)
	if result.Failed {
		return "", fmt.Errorf("keyword extraction failed: %w", result.Err)
	}
	if !result.Empty() {
		return result.Keywords, nil
	}

	prefix := tokenizer.Truncate(text, p.options.PrefixRetrySize)
	if strings.TrimSpace(prefix) == "" {
		return "", nil
	}
	logger.Debug("keyword extraction empty, retrying against document prefix", "prefix_tokens", p.options.PrefixRetrySize)

	result = p.llm.ExtractKeywords(ctx, prefix)
	if result.Failed {
		return "", fmt.Errorf("keyword extraction failed: %w", result.Err)
	}
	return result.Keywords, nil
}

// personaVector returns the persona's stored embedding, falling back to
// embedding its description when the store only holds a zero vector
// (catalog-backed personas have no precomputed embeddings).
func (p *Pipeline) personaVector(ctx context.Context, persona *core.Persona) ([]float64, error) {
	vector, err := p.store.GetVector(ctx, persona.Name)
	if err != nil {
		return nil, fmt.Errorf("persona vector lookup failed for %q: %w", persona.Name, err)
	}
	if !isZero(vector) {
		return vector, nil
	}

	logger.Debug("persona vector is zero, embedding description", "persona", persona.Name)
	vector, err = p.llm.GenerateEmbedding(ctx, persona.Description)
	if err != nil {
		return nil, fmt.Errorf("persona embedding failed for %q: %w", persona.Name, err)
	}
	return vector, nil
}

// glossaryContext fetches top-k glossary snippets for the reduction.
// Glossary context is a nicety; lookups that fail degrade to none.
func (p *Pipeline) glossaryContext(ctx context.Context, vector []float64) []core.GlossarySnippet {
	snippets, err := p.store.GlossarySearch(ctx, vector, p.options.GlossaryTopK)
	if err != nil {
		logger.Warn("glossary search failed", "error", err.Error())
		return nil
	}
	return snippets
}

// reject writes the audit record and builds the terminal rejection result.
func (p *Pipeline) reject(doc *core.Document, personaName string, score float64, label relevance.Label) (*Result, error) {
	record := core.SkippedRecord{
		Timestamp: time.Now().UTC(),
		Persona:   personaName,
		Score:     score,
		Label:     string(label),
		Filename:  doc.Filename,
	}
	if err := p.audit.RecordSkipped(record); err != nil {
		logger.Error("failed to record skipped document", err, "document", doc.Filename)
	}
	logger.Info("document rejected", "document", doc.Filename, "persona", personaName, "score", score, "label", string(label))

	return &Result{
		Status:  StatusRejected,
		Skipped: &record,
		Score:   score,
		Label:   label,
	}, nil
}

func isZero(vector []float64) bool {
	for _, v := range vector {
		if v != 0 {
			return false
		}
	}
	return true
}
