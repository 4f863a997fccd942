package core

import "time"

// Document represents one uploaded document flowing through a single
// pipeline run. It is materialized once per upload and discarded after
// the run; nothing here is persisted.
type Document struct {
	ID        string    `json:"id"`         // Unique identifier for this run's document
	Filename  string    `json:"filename"`   // Original filename of the upload
	Text      string    `json:"text"`       // Raw extracted text (PDF/ZIP/text/JSON all normalize to this)
	Keywords  string    `json:"keywords"`   // Comma-separated keyword string derived by the extractor
	Embedding []float64 `json:"embedding"`  // Vector embedding of the keyword string
	Chunks    []Chunk   `json:"chunks"`     // Ordered token-bounded chunks of Text
	DateAdded time.Time `json:"date_added"` // When the document entered the pipeline
}

// Persona is a named professional role profile used to bias summarization
// tone and content focus. Personas live in the external persona store and
// are read-only to this process.
type Persona struct {
	Name        string    `json:"name"`         // Unique name within the active persona set
	Description string    `json:"description"`  // Role description used as the system instruction
	Tone        string    `json:"tone"`         // Preferred tone (optional)
	Style       string    `json:"style"`        // Communication style (optional)
	Format      string    `json:"format"`       // Preferred output format (optional)
	Goals       []string  `json:"goals"`        // Professional goals (optional)
	CommonTasks []string  `json:"common_tasks"` // Typical day-to-day tasks (optional)
	DomainFocus string    `json:"domain_focus"` // Area of the security domain this persona watches
	Embedding   []float64 `json:"embedding"`    // Precomputed profile embedding
}

// Chunk is an ordered, token-bounded substring of a Document's text.
// Chunks overlap their predecessor so no concept is fully severed at a
// boundary, and are immutable once produced.
type Chunk struct {
	Index      int    `json:"index"`       // Position within the document, 0-based
	Text       string `json:"text"`        // Chunk text
	TokenStart int    `json:"token_start"` // Token index of the chunk start in the document
	TokenCount int    `json:"token_count"` // Number of tokens in this chunk
}

// ChunkSummary is the result of summarizing exactly one Chunk for one
// Persona. Failed is set when generation errored; Text then holds an
// explicit placeholder rather than a summary, and the batch continues.
type ChunkSummary struct {
	Index  int    `json:"index"`  // Matches the source Chunk's Index
	Text   string `json:"text"`   // Summary text, or an error placeholder when Failed
	Failed bool   `json:"failed"` // Whether generation failed for this chunk
}

// ExecutiveSummary is the terminal artifact of an accepted run: the
// reduction of all chunk summaries into one persona-targeted narrative.
type ExecutiveSummary struct {
	ID            string    `json:"id"`             // Unique identifier for the summary
	DocumentID    string    `json:"document_id"`    // Source document
	Persona       string    `json:"persona"`        // Persona the summary targets
	Text          string    `json:"text"`           // The synthesized narrative
	ChunkCount    int       `json:"chunk_count"`    // Number of chunks reduced
	FailedChunks  int       `json:"failed_chunks"`  // How many chunk slots carried placeholders
	Score         float64   `json:"score"`          // Calibrated relevance score that passed the gate
	Label         string    `json:"label"`          // Relevance label at gate time
	ModelUsed     string    `json:"model_used"`     // Completion model that produced the reduction
	DateGenerated time.Time `json:"date_generated"` // When the reduction finished
}

// SkippedRecord is one row of the append-only audit trail written when the
// gate rejects a document.
type SkippedRecord struct {
	Timestamp time.Time `json:"timestamp"` // When the rejection happened
	Persona   string    `json:"persona"`   // Persona the document was scored against
	Score     float64   `json:"score"`     // Calibrated score at rejection (0.0 for irrelevant docs)
	Label     string    `json:"label"`     // Relevance label ("Irrelevant" when keywords were empty)
	Filename  string    `json:"filename"`  // Document filename
}

// Feedback is a user rating of a generated summary.
type Feedback struct {
	ID        string    `json:"id"`         // Unique identifier for the feedback entry
	SummaryID string    `json:"summary_id"` // Summary being rated
	Rating    int       `json:"rating"`     // 1-5 stars
	Comment   string    `json:"comment"`    // Free-form comment (optional)
	DateAdded time.Time `json:"date_added"` // When the rating was recorded
}

// KEVEntry is one vulnerability from the CISA Known Exploited
// Vulnerabilities catalog, optionally enriched with a flattened text
// representation suitable for embedding.
type KEVEntry struct {
	CVEID             string `json:"cveID"`
	VendorProject     string `json:"vendorProject"`
	Product           string `json:"product"`
	VulnerabilityName string `json:"vulnerabilityName"`
	ShortDescription  string `json:"shortDescription"`
	RequiredAction    string `json:"requiredAction"`
	KnownRansomware   string `json:"knownRansomwareCampaignUse"`
	DueDate           string `json:"dueDate"`
	Notes             string `json:"notes"`
	DateScraped       string `json:"date_scraped,omitempty"`
	EmbeddingText     string `json:"embedding_text,omitempty"`
}

// GlossarySnippet is one glossary document returned by the persona store's
// top-k vector search, used as extra context during reduction.
type GlossarySnippet struct {
	Text       string  `json:"text"`       // Glossary text
	Similarity float64 `json:"similarity"` // Cosine similarity to the query vector, when reported
}
