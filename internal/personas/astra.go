package personas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"personabrief/internal/core"
)

// AstraStore queries an Astra Data API deployment over REST. The persona
// collection holds one document per persona with its profile text,
// structured metadata, and precomputed $vector; the glossary collection is
// searched by vector similarity.
type AstraStore struct {
	endpoint           string
	token              string
	personaCollection  string
	glossaryCollection string
	dimensions         int
	client             *http.Client
}

// AstraConfig configures the REST adapter.
type AstraConfig struct {
	Endpoint           string
	Token              string
	PersonaCollection  string
	GlossaryCollection string
	Dimensions         int
	Timeout            time.Duration
}

// NewAstraStore creates an adapter for the given deployment.
func NewAstraStore(cfg AstraConfig) *AstraStore {
	if cfg.PersonaCollection == "" {
		cfg.PersonaCollection = "persona_vectors"
	}
	if cfg.GlossaryCollection == "" {
		cfg.GlossaryCollection = "glossary_vectors"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &AstraStore{
		endpoint:           cfg.Endpoint,
		token:              cfg.Token,
		personaCollection:  cfg.PersonaCollection,
		glossaryCollection: cfg.GlossaryCollection,
		dimensions:         cfg.Dimensions,
		client:             &http.Client{Timeout: cfg.Timeout},
	}
}

// astraDocument mirrors the wire shape of one stored document.
type astraDocument struct {
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	Vector   []float64 `json:"$vector"`
	Metadata struct {
		Persona     string   `json:"persona"`
		Tone        string   `json:"tone"`
		Style       string   `json:"style"`
		Format      string   `json:"format"`
		Goals       []string `json:"goals"`
		CommonTasks []string `json:"common_tasks"`
		DomainFocus string   `json:"domain_focus"`
	} `json:"metadata"`
	Similarity float64 `json:"$similarity"`
}

type astraResponse struct {
	Data struct {
		Documents []astraDocument `json:"documents"`
	} `json:"data"`
}

// post issues one Data API request against a collection operation path.
func (s *AstraStore) post(ctx context.Context, collection, op string, payload any) (*astraResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/api/json/v1/%s/%s", s.endpoint, collection, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("x-cassandra-token", s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("persona store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("persona store returned %s: %s", resp.Status, string(data))
	}

	var parsed astraResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode persona store response: %w", err)
	}
	return &parsed, nil
}

// ListNames lists all persona names present in the persona collection.
func (s *AstraStore) ListNames(ctx context.Context) ([]string, error) {
	payload := map[string]any{
		"options": map[string]any{"limit": 50},
	}
	resp, err := s.post(ctx, s.personaCollection, "find", payload)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, doc := range resp.Data.Documents {
		name := doc.Metadata.Persona
		if name == "" {
			name = doc.Name
		}
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Get fetches one persona by exact name.
func (s *AstraStore) Get(ctx context.Context, name string) (*core.Persona, error) {
	doc, err := s.findOne(ctx, name)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: unknown persona %q", core.ErrInvalidInput, name)
	}

	persona := &core.Persona{
		Name:        name,
		Description: doc.Text,
		Tone:        doc.Metadata.Tone,
		Style:       doc.Metadata.Style,
		Format:      doc.Metadata.Format,
		Goals:       doc.Metadata.Goals,
		CommonTasks: doc.Metadata.CommonTasks,
		DomainFocus: doc.Metadata.DomainFocus,
		Embedding:   doc.Vector,
	}
	return persona, nil
}

// GetVector fetches the persona's stored $vector, falling back to a zero
// vector when the document has none.
func (s *AstraStore) GetVector(ctx context.Context, name string) ([]float64, error) {
	doc, err := s.findOne(ctx, name)
	if err != nil {
		return nil, err
	}
	if doc == nil || len(doc.Vector) == 0 {
		return make([]float64, s.dimensions), nil
	}
	return doc.Vector, nil
}

func (s *AstraStore) findOne(ctx context.Context, name string) (*astraDocument, error) {
	payload := map[string]any{
		"filter": map[string]any{
			"metadata.persona": map[string]any{"$eq": name},
		},
		"options": map[string]any{"limit": 1},
	}
	resp, err := s.post(ctx, s.personaCollection, "find", payload)
	if err != nil {
		return nil, err
	}
	if len(resp.Data.Documents) == 0 {
		return nil, nil
	}
	return &resp.Data.Documents[0], nil
}

// GlossarySearch runs a top-k vector search over the glossary collection.
// A failed search degrades to no glossary context rather than failing the
// run; reduction works without it.
func (s *AstraStore) GlossarySearch(ctx context.Context, embedding []float64, topK int) ([]core.GlossarySnippet, error) {
	if topK <= 0 {
		topK = 5
	}
	payload := map[string]any{
		"vector": embedding,
		"limit":  topK,
	}
	resp, err := s.post(ctx, s.glossaryCollection, "vector-search", payload)
	if err != nil {
		return nil, err
	}

	snippets := make([]core.GlossarySnippet, 0, len(resp.Data.Documents))
	for _, doc := range resp.Data.Documents {
		if doc.Text == "" {
			continue
		}
		snippets = append(snippets, core.GlossarySnippet{Text: doc.Text, Similarity: doc.Similarity})
	}
	return snippets, nil
}
