package personas

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"personabrief/internal/core"
)

// PgVectorStore implements Store over PostgreSQL with the pgvector
// extension, for deployments that host the knowledge store in Postgres
// instead of a document database. Expected schema:
//
//	personas(name TEXT PRIMARY KEY, description TEXT, tone TEXT,
//	         style TEXT, format TEXT, goals TEXT[], common_tasks TEXT[],
//	         domain_focus TEXT, embedding vector)
//	glossary(id SERIAL PRIMARY KEY, text TEXT, embedding vector)
type PgVectorStore struct {
	db         *sql.DB
	dimensions int
}

// NewPgVectorStore creates a pgvector-backed store adapter.
func NewPgVectorStore(db *sql.DB, dimensions int) *PgVectorStore {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &PgVectorStore{db: db, dimensions: dimensions}
}

// ListNames returns all persona names, sorted.
func (p *PgVectorStore) ListNames(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name FROM personas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan persona name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Get fetches one persona row by exact name.
func (p *PgVectorStore) Get(ctx context.Context, name string) (*core.Persona, error) {
	query := `
		SELECT description, tone, style, format, goals, common_tasks, domain_focus, embedding::text
		FROM personas
		WHERE name = $1
	`

	persona := &core.Persona{Name: name}
	var goals, tasks pq.StringArray
	var embedding sql.NullString
	err := p.db.QueryRowContext(ctx, query, name).Scan(
		&persona.Description, &persona.Tone, &persona.Style, &persona.Format,
		&goals, &tasks, &persona.DomainFocus, &embedding,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: unknown persona %q", core.ErrInvalidInput, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch persona %q: %w", name, err)
	}

	persona.Goals = goals
	persona.CommonTasks = tasks
	if embedding.Valid {
		persona.Embedding = parseVector(embedding.String)
	}
	return persona, nil
}

// GetVector fetches the persona's embedding, falling back to a zero vector
// when the row has none.
func (p *PgVectorStore) GetVector(ctx context.Context, name string) ([]float64, error) {
	persona, err := p.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(persona.Embedding) == 0 {
		return make([]float64, p.dimensions), nil
	}
	return persona.Embedding, nil
}

// GlossarySearch runs a cosine-distance top-k search over the glossary
// table using the pgvector <=> operator.
func (p *PgVectorStore) GlossarySearch(ctx context.Context, embedding []float64, topK int) ([]core.GlossarySnippet, error) {
	if topK <= 0 {
		topK = 5
	}

	query := `
		SELECT text, 1 - (embedding <=> $1::vector) AS similarity
		FROM glossary
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`

	rows, err := p.db.QueryContext(ctx, query, formatVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("glossary search failed: %w", err)
	}
	defer rows.Close()

	var snippets []core.GlossarySnippet
	for rows.Next() {
		var snippet core.GlossarySnippet
		if err := rows.Scan(&snippet.Text, &snippet.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan glossary row: %w", err)
		}
		snippets = append(snippets, snippet)
	}
	return snippets, rows.Err()
}

// formatVector renders an embedding in pgvector literal syntax.
func formatVector(embedding []float64) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector reads a pgvector literal back into a slice. Malformed
// components parse as 0 rather than failing the whole row.
func parseVector(s string) []float64 {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	vector := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err == nil {
			vector[i] = v
		}
	}
	return vector
}
