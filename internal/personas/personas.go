// Package personas adapts the external persona/glossary knowledge store.
// The store is shared, read-mostly state owned by another system; this
// package only performs keyed lookups and top-k vector search, never
// writes.
package personas

import (
	"context"

	"personabrief/internal/core"
)

// Store is the read-only query surface over the persona and glossary
// collections.
type Store interface {
	// ListNames returns all persona identifiers in the active set.
	ListNames(ctx context.Context) ([]string, error)

	// Get fetches a persona's metadata by exact name match.
	Get(ctx context.Context, name string) (*core.Persona, error)

	// GetVector fetches a persona's precomputed embedding by exact name
	// match. A persona without a stored vector returns a zero vector of
	// the deployment's dimensionality rather than an error.
	GetVector(ctx context.Context, name string) ([]float64, error)

	// GlossarySearch returns the top-k glossary snippets nearest to the
	// query embedding.
	GlossarySearch(ctx context.Context, embedding []float64, topK int) ([]core.GlossarySnippet, error)
}
