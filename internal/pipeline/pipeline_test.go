package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"personabrief/internal/core"
	"personabrief/internal/llm"
	"personabrief/internal/relevance"
)

// fakeLLM scripts keyword and embedding responses.
type fakeLLM struct {
	keywordResults []llm.KeywordResult
	keywordCalls   int
	keywordTexts   []string
	embedding      []float64
	embedErr       error
	embedTexts     []string
}

func (f *fakeLLM) ExtractKeywords(ctx context.Context, text string) llm.KeywordResult {
	f.keywordTexts = append(f.keywordTexts, text)
	i := f.keywordCalls
	f.keywordCalls++
	if i < len(f.keywordResults) {
		return f.keywordResults[i]
	}
	return llm.KeywordResult{Keywords: "malware, ransomware"}
}

func (f *fakeLLM) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	f.embedTexts = append(f.embedTexts, text)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.embedding != nil {
		return f.embedding, nil
	}
	return []float64{1, 0, 0}, nil
}

// fakeSummarizer records calls and returns canned summaries.
type fakeSummarizer struct {
	called    bool
	reduced   bool
	summaries []core.ChunkSummary
	glossary  []core.GlossarySnippet
}

func (f *fakeSummarizer) SummarizeChunks(ctx context.Context, chunks []core.Chunk, persona *core.Persona) ([]core.ChunkSummary, error) {
	f.called = true
	summaries := make([]core.ChunkSummary, len(chunks))
	for i := range chunks {
		summaries[i] = core.ChunkSummary{Index: i, Text: fmt.Sprintf("summary %d", i)}
	}
	f.summaries = summaries
	return summaries, nil
}

func (f *fakeSummarizer) Reduce(ctx context.Context, doc *core.Document, summaries []core.ChunkSummary, persona *core.Persona, glossary []core.GlossarySnippet) *core.ExecutiveSummary {
	f.reduced = true
	f.glossary = glossary
	return &core.ExecutiveSummary{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Persona:    persona.Name,
		Text:       "final narrative",
		ChunkCount: len(summaries),
	}
}

// fakePersonaStore serves one persona with a configurable vector.
type fakePersonaStore struct {
	persona   *core.Persona
	vector    []float64
	vectorErr error
	getErr    error
	snippets  []core.GlossarySnippet
	searchErr error
}

func (f *fakePersonaStore) ListNames(ctx context.Context) ([]string, error) {
	return []string{f.persona.Name}, nil
}

func (f *fakePersonaStore) Get(ctx context.Context, name string) (*core.Persona, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.persona, nil
}

func (f *fakePersonaStore) GetVector(ctx context.Context, name string) ([]float64, error) {
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	return f.vector, nil
}

func (f *fakePersonaStore) GlossarySearch(ctx context.Context, embedding []float64, topK int) ([]core.GlossarySnippet, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.snippets, nil
}

// fakeAudit collects skipped records.
type fakeAudit struct {
	records []core.SkippedRecord
}

func (f *fakeAudit) RecordSkipped(record core.SkippedRecord) error {
	f.records = append(f.records, record)
	return nil
}

func testDoc(text string) *core.Document {
	return &core.Document{ID: uuid.NewString(), Filename: "report.pdf", Text: text}
}

func testStore(vector []float64) *fakePersonaStore {
	return &fakePersonaStore{
		persona: &core.Persona{Name: "Malware Analyst", Description: "You reverse-engineer malicious software."},
		vector:  vector,
	}
}

func newTestPipeline(llmClient *fakeLLM, store *fakePersonaStore) (*Pipeline, *fakeSummarizer, *fakeAudit) {
	summarizer := &fakeSummarizer{}
	audit := &fakeAudit{}
	scorer := relevance.NewScorer(relevance.DefaultThresholds())
	p := New(llmClient, summarizer, store, scorer, audit, DefaultOptions())
	return p, summarizer, audit
}

func longText(tokens int) string {
	words := make([]string, tokens)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestRun_IrrelevantAfterPrefixRetry(t *testing.T) {
	llmClient := &fakeLLM{keywordResults: []llm.KeywordResult{{}, {}}} // empty twice
	p, summarizer, audit := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	result, err := p.Run(context.Background(), testDoc(longText(5000)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusRejected {
		t.Fatalf("Status = %q, want rejected", result.Status)
	}
	if llmClient.keywordCalls != 2 {
		t.Errorf("keyword calls = %d, want 2 (full text then prefix)", llmClient.keywordCalls)
	}
	if len(llmClient.keywordTexts[1]) >= len(llmClient.keywordTexts[0]) {
		t.Error("retry should run against a shorter prefix of the document")
	}
	if len(audit.records) != 1 {
		t.Fatalf("got %d skipped records, want exactly 1", len(audit.records))
	}
	record := audit.records[0]
	if record.Label != string(relevance.LabelIrrelevant) || record.Score != 0.0 {
		t.Errorf("record = %+v, want label Irrelevant and score 0.0", record)
	}
	if record.Filename != "report.pdf" || record.Persona != "Malware Analyst" {
		t.Errorf("record provenance wrong: %+v", record)
	}
	if summarizer.called {
		t.Error("summarizer invoked for a rejected document")
	}
}

func TestRun_PrefixRetryRecovers(t *testing.T) {
	llmClient := &fakeLLM{keywordResults: []llm.KeywordResult{{}, {Keywords: "phishing, credential theft"}}}
	p, summarizer, audit := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusReduced {
		t.Fatalf("Status = %q, want reduced", result.Status)
	}
	if !summarizer.reduced {
		t.Error("reducer not invoked")
	}
	if len(audit.records) != 0 {
		t.Errorf("got %d skipped records, want 0", len(audit.records))
	}
}

func TestRun_HighScoreProducesSummary(t *testing.T) {
	// Identical vectors: raw cosine 1.0, calibrated 1.0, label Excellent.
	vector := []float64{0.3, 0.5, 0.2}
	llmClient := &fakeLLM{embedding: vector}
	store := testStore(vector)
	store.snippets = []core.GlossarySnippet{{Text: "EDR: endpoint detection and response"}}
	p, summarizer, _ := newTestPipeline(llmClient, store)

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusReduced {
		t.Fatalf("Status = %q, want reduced", result.Status)
	}
	if result.Summary == nil || result.Summary.Text == "" {
		t.Fatal("expected a non-empty final summary")
	}
	if result.Summary.Score != result.Score || result.Summary.Label != string(result.Label) {
		t.Errorf("summary not stamped with gate score/label: %+v", result.Summary)
	}
	if result.Label != relevance.LabelExcellent {
		t.Errorf("Label = %q, want Excellent for identical vectors", result.Label)
	}
	if len(summarizer.glossary) != 1 {
		t.Errorf("glossary context not passed to reducer: %v", summarizer.glossary)
	}
}

func TestRun_GoodLabelAboveGate(t *testing.T) {
	// Orthogonal-ish vectors tuned so the calibrated score lands in the
	// Good bucket: raw 0.8 -> (1.8/2)^2 = 0.81.
	llmClient := &fakeLLM{embedding: []float64{0.8, 0.6, 0}}
	p, _, _ := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Label != relevance.LabelGood {
		t.Errorf("Label = %q, want Good for calibrated score %.3f", result.Label, result.Score)
	}
	if result.Status != StatusReduced {
		t.Errorf("Status = %q, want reduced", result.Status)
	}
}

func TestRun_LowScoreRejected(t *testing.T) {
	// Opposed vectors: raw -1, calibrated 0, below the gate.
	llmClient := &fakeLLM{embedding: []float64{-1, 0, 0}}
	p, summarizer, audit := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusRejected {
		t.Fatalf("Status = %q, want rejected", result.Status)
	}
	if len(audit.records) != 1 {
		t.Fatalf("got %d skipped records, want 1", len(audit.records))
	}
	if audit.records[0].Score != result.Score || audit.records[0].Label != string(result.Label) {
		t.Errorf("record does not match gate decision: %+v vs %+v", audit.records[0], result)
	}
	if summarizer.called {
		t.Error("summarizer invoked for a rejected document")
	}
}

func TestRun_ForceOverridesGate(t *testing.T) {
	llmClient := &fakeLLM{embedding: []float64{-1, 0, 0}}
	p, summarizer, audit := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusReduced {
		t.Fatalf("Status = %q, want reduced under override", result.Status)
	}
	if !summarizer.reduced {
		t.Error("reducer not invoked under override")
	}
	if len(audit.records) != 0 {
		t.Errorf("got %d skipped records, want 0 under override", len(audit.records))
	}
}

func TestRun_ForceCannotRescueIrrelevant(t *testing.T) {
	llmClient := &fakeLLM{keywordResults: []llm.KeywordResult{{}, {}}}
	p, _, audit := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusRejected {
		t.Errorf("Status = %q, want rejected when no keywords exist", result.Status)
	}
	if len(audit.records) != 1 {
		t.Errorf("got %d skipped records, want 1", len(audit.records))
	}
}

func TestRun_InvalidInput(t *testing.T) {
	p, _, _ := newTestPipeline(&fakeLLM{}, testStore([]float64{1, 0, 0}))

	tests := []struct {
		name    string
		doc     *core.Document
		persona string
	}{
		{"nil document", nil, "Malware Analyst"},
		{"empty text", testDoc("   "), "Malware Analyst"},
		{"no persona", testDoc("some text"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.doc, tt.persona, false)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("Run error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRun_KeywordFailureHalts(t *testing.T) {
	providerErr := errors.New("model exploded")
	llmClient := &fakeLLM{keywordResults: []llm.KeywordResult{{Failed: true, Err: providerErr}}}
	p, _, audit := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	_, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err == nil || !strings.Contains(err.Error(), "keyword extraction failed") {
		t.Errorf("Run error = %v, want keyword extraction failure", err)
	}
	if len(audit.records) != 0 {
		t.Error("provider failure must not write a skipped record")
	}
}

func TestRun_EmbeddingFailureHalts(t *testing.T) {
	llmClient := &fakeLLM{embedErr: fmt.Errorf("%w: rate limited", core.ErrServiceUnavailable)}
	p, _, _ := newTestPipeline(llmClient, testStore([]float64{1, 0, 0}))

	_, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if !errors.Is(err, core.ErrServiceUnavailable) {
		t.Errorf("Run error = %v, want ErrServiceUnavailable", err)
	}
}

func TestRun_ZeroPersonaVectorFallsBackToDescription(t *testing.T) {
	llmClient := &fakeLLM{embedding: []float64{1, 0, 0}}
	store := testStore([]float64{0, 0, 0})
	p, _, _ := newTestPipeline(llmClient, store)

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Second embedding call must carry the persona description.
	if len(llmClient.embedTexts) != 2 {
		t.Fatalf("embed calls = %d, want 2 (keywords + persona description)", len(llmClient.embedTexts))
	}
	if llmClient.embedTexts[1] != store.persona.Description {
		t.Errorf("fallback embed text = %q, want persona description", llmClient.embedTexts[1])
	}
	if result.Status != StatusReduced {
		t.Errorf("Status = %q, want reduced with identical fallback vectors", result.Status)
	}
}

func TestRun_GlossaryFailureDegrades(t *testing.T) {
	vector := []float64{1, 0, 0}
	llmClient := &fakeLLM{embedding: vector}
	store := testStore(vector)
	store.searchErr = errors.New("glossary store down")
	p, summarizer, _ := newTestPipeline(llmClient, store)

	result, err := p.Run(context.Background(), testDoc(longText(100)), "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusReduced {
		t.Errorf("Status = %q, want reduced despite glossary failure", result.Status)
	}
	if len(summarizer.glossary) != 0 {
		t.Errorf("glossary = %v, want none", summarizer.glossary)
	}
}

func TestRun_ChunkCountForLongDocument(t *testing.T) {
	vector := []float64{1, 0, 0}
	llmClient := &fakeLLM{embedding: vector}
	p, summarizer, _ := newTestPipeline(llmClient, testStore(vector))

	doc := testDoc(longText(10000))
	result, err := p.Run(context.Background(), doc, "Malware Analyst", false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusReduced {
		t.Fatalf("Status = %q, want reduced", result.Status)
	}
	if len(doc.Chunks) != 4 {
		t.Errorf("got %d chunks, want 4 for 10000 tokens at size 3072 / overlap 256", len(doc.Chunks))
	}
	if len(summarizer.summaries) != 4 {
		t.Errorf("got %d chunk summaries, want 4", len(summarizer.summaries))
	}
}
