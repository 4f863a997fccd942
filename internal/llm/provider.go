package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// genaiProvider backs the client with the Gemini API.
type genaiProvider struct {
	client *genai.Client
}

func (p *genaiProvider) Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *genaiProvider) Embed(ctx context.Context, model, text string, dims int32) ([]float64, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}

	cfg := &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	}

	resp, err := p.client.Models.EmbedContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned from API")
	}

	values := resp.Embeddings[0].Values
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = float64(v)
	}
	return vector, nil
}
