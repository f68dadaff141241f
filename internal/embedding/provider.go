// Package embedding adapts external embedding models to a fixed-dimension
// vector interface.
//
// Supported providers:
//   - openai: OpenAI (or any OpenAI-compatible /v1/embeddings server) via openai-go.
//   - local: deterministic feature hashing, offline and non-semantic. Useful for
//     development and demos; similarity only reflects shared words.
package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/starford/recall/internal/apperr"
)

// Provider turns text into embedding vectors.
//
// EmbedMany returns exactly one vector per input, in input order. Every
// failure is reported as apperr.ErrEmbeddingUnavailable; a provider never
// substitutes a zero vector.
type Provider interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// NewProvider builds the provider named in cfg.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg)
	case "local":
		return NewLocal(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q (supported: openai, local)", cfg.Provider)
	}
}

// unavailable tags err as an embedding failure with provider context.
func unavailable(provider string, err error) error {
	return apperr.Wrap(apperr.ErrEmbeddingUnavailable, fmt.Errorf("embedding: %s: %w", provider, err))
}

// validateVector rejects vectors of the wrong size, all-zero vectors, and
// vectors containing NaN or Inf.
func validateVector(vec []float32, dims int) error {
	if dims > 0 && len(vec) != dims {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", dims, len(vec))
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty vector")
	}
	allZero := true
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("vector contains non-finite value")
		}
		if v != 0 {
			allZero = false
		}
	}
	if allZero {
		return fmt.Errorf("vector is all zeros")
	}
	return nil
}
