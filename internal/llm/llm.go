package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"google.golang.org/genai"

	"personabrief/internal/core"
	"personabrief/internal/tokenizer"
)

const (
	// DefaultModel is the default completion model.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel is the default model for generating embeddings.
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is the output dimension for embeddings.
	DefaultEmbeddingDimensions = int32(1536)

	// EmbedMaxTokens caps embedding input by token count.
	EmbedMaxTokens = 8192
	// EmbedMaxChars caps embedding input by character count. Applied after
	// token truncation: token truncation alone does not bound payload size.
	EmbedMaxChars = 16000

	// KeywordPrompt constrains extraction to domain-relevant terms only and
	// demands an explicit empty result for off-topic documents, so a clearly
	// out-of-scope upload never costs a full-document embedding.
	KeywordPrompt = `Extract the top 10 technical cybersecurity keywords, concepts, or entities from this document. Return them as a single comma-separated string with no other text. If the document has no cybersecurity content at all, return an empty string.

Document:
%s`
)

// Options configures the client. Zero values fall back to viper
// configuration and then to the package defaults.
type Options struct {
	APIKey              string
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int32
	Backoff             Backoff
}

// TextOptions contains per-call options for text generation.
type TextOptions struct {
	MaxTokens   int32
	Temperature float32
	System      string // system instruction, usually the persona description
	Model       string // overrides the client's model when set
}

// provider is the narrow surface the client needs from the model SDK.
// Tests substitute a fake; production uses the genai-backed implementation.
type provider interface {
	Generate(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)
	Embed(ctx context.Context, model, text string, dims int32) ([]float64, error)
}

// Client wraps the completion and embedding provider. It is created once
// per process and shared read-only across runs.
type Client struct {
	provider       provider
	modelName      string
	embeddingModel string
	embeddingDims  int32
	backoff        Backoff
}

// NewClient creates a client against the real provider. The API key is
// resolved from GEMINI_API_KEY, then GOOGLE_AI_API_KEY, then the
// gemini.api_key viper setting.
func NewClient(opts Options) (*Client, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_AI_API_KEY")
	}
	if apiKey == "" {
		apiKey = viper.GetString("gemini.api_key")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required: set GEMINI_API_KEY or gemini.api_key in the config file")
	}

	gClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newClient(&genaiProvider{client: gClient}, opts), nil
}

func newClient(p provider, opts Options) *Client {
	modelName := opts.Model
	if modelName == "" {
		modelName = viper.GetString("gemini.model")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	embeddingModel := opts.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	dims := opts.EmbeddingDimensions
	if dims <= 0 {
		dims = DefaultEmbeddingDimensions
	}

	backoff := opts.Backoff
	if backoff.MaxAttempts <= 0 {
		backoff = DefaultBackoff()
	}

	return &Client{
		provider:       p,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		embeddingDims:  dims,
		backoff:        backoff,
	}
}

// ModelName returns the completion model this client targets.
func (c *Client) ModelName() string {
	return c.modelName
}

// GenerateText issues one completion call. Failures are reported as
// ErrProviderError; retrying is the caller's policy decision, not this
// method's.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts TextOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", core.ErrInvalidInput)
	}

	model := c.modelName
	if opts.Model != "" {
		model = opts.Model
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	var cfg *genai.GenerateContentConfig
	if opts.MaxTokens > 0 || opts.Temperature > 0 || opts.System != "" {
		cfg = &genai.GenerateContentConfig{}
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			cfg.Temperature = genai.Ptr(opts.Temperature)
		}
		if opts.System != "" {
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: opts.System}},
			}
		}
	}

	text, err := c.provider.Generate(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrProviderError, err)
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty response from model", core.ErrProviderError)
	}
	return text, nil
}

// GenerateEmbedding embeds text, truncating first by token count and then
// by character count. Rate-limited calls are retried under the configured
// backoff; exhaustion surfaces as ErrServiceUnavailable, any other provider
// failure as ErrProviderError.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: cannot embed empty text", core.ErrInvalidInput)
	}

	text = tokenizer.Truncate(text, EmbedMaxTokens)
	if len(text) > EmbedMaxChars {
		text = text[:EmbedMaxChars]
	}

	var vector []float64
	err := c.backoff.Retry(ctx, func() error {
		var embedErr error
		vector, embedErr = c.provider.Embed(ctx, c.embeddingModel, text, c.embeddingDims)
		return embedErr
	})
	if err != nil {
		if errors.Is(err, errRetriesExhausted) {
			return nil, fmt.Errorf("%w: embedding rate-limited after %d attempts: %v", core.ErrServiceUnavailable, c.backoff.MaxAttempts, err)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrProviderError, err)
	}
	return vector, nil
}

// KeywordResult distinguishes "the document is off-topic" from "the
// provider failed". Callers must not treat the two the same way: the
// first is a business outcome, the second is a soft failure.
type KeywordResult struct {
	Keywords string // comma-separated terms, possibly empty
	Failed   bool   // the provider call errored; Keywords carries no signal
	Err      error  // failure detail when Failed
}

// Empty reports a successful extraction that found nothing, i.e. the model
// judged the document out of domain.
func (r KeywordResult) Empty() bool {
	return !r.Failed && strings.TrimSpace(r.Keywords) == ""
}

// Terms splits the keyword string into individual cleaned terms.
func (r KeywordResult) Terms() []string {
	if r.Failed {
		return nil
	}
	var terms []string
	for _, term := range strings.Split(r.Keywords, ",") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// ExtractKeywords reduces a document to a compact comma-separated list of
// domain terms. Provider failures never propagate as errors; they come
// back as a failed result so the pipeline can decide what a missing signal
// means.
func (c *Client) ExtractKeywords(ctx context.Context, text string) KeywordResult {
	if strings.TrimSpace(text) == "" {
		return KeywordResult{Keywords: ""}
	}

	prompt := fmt.Sprintf(KeywordPrompt, text)
	response, err := c.GenerateText(ctx, prompt, TextOptions{MaxTokens: 150})
	if err != nil {
		// The model signals an off-topic document by returning nothing,
		// which surfaces here as an empty-response error.
		if strings.Contains(err.Error(), "empty response") {
			return KeywordResult{Keywords: ""}
		}
		return KeywordResult{Failed: true, Err: err}
	}

	keywords := strings.Trim(strings.TrimSpace(response), `"'`)
	if strings.EqualFold(keywords, "none") {
		keywords = ""
	}
	return KeywordResult{Keywords: keywords}
}
