package embedding

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIModel = "text-embedding-3-small"

// OpenAI generates embeddings through the OpenAI embeddings endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	dims   int
}

// NewOpenAI creates an OpenAI provider. An empty APIKey falls back to
// OPENAI_API_KEY.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedding: openai provider requires an API key (embedding.api_key or OPENAI_API_KEY)")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims == 0 {
		dims = openaiDefaultDims(model)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		dims:   dims,
	}, nil
}

func (p *OpenAI) Name() string    { return "openai" }
func (p *OpenAI) Dimensions() int { return p.dims }

// EmbedOne embeds a single text.
func (p *OpenAI) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in one request. Results are placed by the index the
// API reports, so the output order always matches the input order.
func (p *OpenAI) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(p.model),
	}
	if isVariableDimModel(p.model) {
		params.Dimensions = openai.Int(int64(p.dims))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, unavailable(p.Name(), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, unavailable(p.Name(), fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		i := int(d.Index)
		if i < 0 || i >= len(out) || out[i] != nil {
			return nil, unavailable(p.Name(), fmt.Errorf("invalid or duplicate result index %d", d.Index))
		}
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		if err := validateVector(vec, p.dims); err != nil {
			return nil, unavailable(p.Name(), fmt.Errorf("input %d: %w", i, err))
		}
		out[i] = vec
	}
	return out, nil
}

func openaiDefaultDims(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

// isVariableDimModel reports whether model accepts a dimensions parameter.
func isVariableDimModel(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}
